// ABOUTME: Long-running front-end commands: web server, terminal UI and MCP server
// ABOUTME: Also holds the session commands that pick the current user for templates
package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/harperreed/crmdeck/handlers"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/session"
	"github.com/harperreed/crmdeck/tui"
	"github.com/harperreed/crmdeck/web"
)

func ServeCmd(app *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := app.Deps(cmd.Context())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = app.Config.WebAddr
			}
			app.printf("Serving on http://%s\n", addr)
			return web.NewServer(deps).Start(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func TUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := app.Deps(cmd.Context())
			if err != nil {
				return err
			}
			m := tui.NewModel(cmd.Context(), deps)
			defer m.Close()

			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("tui failed: %w", err)
			}
			return nil
		},
	}
}

func MCPCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout so an assistant can
filter contacts, run bulk edits, move deals and read the pipeline.

Logs go to stderr; stdout carries protocol messages only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := app.Deps(cmd.Context())
			if err != nil {
				return err
			}
			server := handlers.NewServer(deps, app.Version)
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

func SessionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the signed-in user used as the email sender",
	}
	cmd.AddCommand(sessionLoginCmd(app))
	cmd.AddCommand(sessionLogoutCmd(app))
	cmd.AddCommand(sessionWhoamiCmd(app))
	return cmd
}

func sessionLoginCmd(app *App) *cobra.Command {
	var user models.User
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Set the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user.Email != "" && !models.IsValidEmail(user.Email) {
				return fmt.Errorf("invalid email %q", user.Email)
			}
			deps, err := app.Deps(cmd.Context())
			if err != nil {
				return err
			}
			user.ID = uuid.NewString()
			if err := deps.Session.SetUser(cmd.Context(), &user); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}
			app.printf("%s Signed in as %s\n", okMark, user.Name)
			if app.Config.RedisURL == "" {
				app.printf("%s\n", dimText("No CRMDECK_REDIS_URL set; the session lasts only for this process."))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user.Name, "name", "", "Your name (required)")
	cmd.Flags().StringVar(&user.Email, "email", "", "Your email address")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func sessionLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := app.Deps(cmd.Context())
			if err != nil {
				return err
			}
			if err := deps.Session.ClearUser(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			app.printf("%s Signed out\n", okMark)
			return nil
		},
	}
}

func sessionWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := app.Deps(cmd.Context())
			if err != nil {
				return err
			}
			user, err := deps.Session.CurrentUser(cmd.Context())
			if errors.Is(err, session.ErrNoUser) {
				app.printf("Not signed in\n")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read session: %w", err)
			}
			app.printf("%s", user.Name)
			if user.Email != "" {
				app.printf(" <%s>", user.Email)
			}
			app.printf("\n")
			return nil
		},
	}
}
