// ABOUTME: Email CLI commands
// ABOUTME: Gmail OAuth setup, template listing and drafting or sending a message to a contact or deal
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/harperreed/crmdeck/email"
	"github.com/harperreed/crmdeck/pages"
)

func EmailCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Compose and send email to contacts",
	}
	cmd.AddCommand(emailAuthCmd(app))
	cmd.AddCommand(emailTemplatesCmd(app))
	cmd.AddCommand(emailDraftCmd(app))
	cmd.AddCommand(emailSendCmd(app))
	return cmd
}

func emailAuthCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize sending through Gmail",
		Long: `Authorize crmdeck to send mail through your Gmail account.

GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set. A browser window opens
for consent; the token is saved to the configured gmail_token path or the XDG
data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			oauthCfg := email.NewOAuthConfig()
			if oauthCfg.ClientID == "" || oauthCfg.ClientSecret == "" {
				return errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
			}

			token, err := app.runOAuthFlow(ctx, oauthCfg)
			if err != nil {
				return fmt.Errorf("OAuth flow failed: %w", err)
			}

			path := app.Config.GmailToken
			if path == "" {
				path = email.DefaultTokenPath()
			}
			if err := email.SaveToken(path, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			app.printf("\n%s Authenticated successfully\n", okMark)
			app.printf("%s Token saved to %s\n\n", okMark, path)
			app.printf("Set CRMDECK_GMAIL_TOKEN=%s to send through Gmail.\n", path)
			return nil
		},
	}
}

// runOAuthFlow serves the redirect URL locally until Google calls back with a code.
func (a *App) runOAuthFlow(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	tokens := make(chan *oauth2.Token, 1)
	errs := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errs <- errors.New("no authorization code received")
			return
		}
		token, err := cfg.Exchange(ctx, code)
		if err != nil {
			errs <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}
		tokens <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: "localhost:8080", Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	authURL := cfg.AuthCodeURL("state", oauth2.AccessTypeOffline)
	a.printf("Opening browser for Google OAuth...\n")
	a.printf("\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)
	_ = openBrowser(authURL)

	select {
	case token := <-tokens:
		return token, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func openBrowser(url string) error {
	var name string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		name, args = "open", []string{url}
	case "windows":
		name, args = "cmd", []string{"/c", "start", url}
	default:
		name, args = "xdg-open", []string{url}
	}
	return exec.Command(name, args...).Start()
}

func emailTemplatesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List email templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := app.Deps(cmd.Context())
			if err != nil {
				return err
			}
			list, err := pages.NewComposer(deps).Templates(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load templates: %w", err)
			}
			if len(list) == 0 {
				app.printf("No templates found.\n")
				return nil
			}
			w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSUBJECT")
			_, _ = fmt.Fprintln(w, "--\t----\t--------\t-------")
			for _, t := range list {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Name, t.Category, t.Subject)
			}
			return w.Flush()
		},
	}
}

type draftFlags struct {
	contactID, dealID, templateID int64
	to, subject, body             string
}

func (f *draftFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.contactID, "contact", 0, "Contact id to write to")
	cmd.Flags().Int64Var(&f.dealID, "deal", 0, "Deal id the message is about")
	cmd.Flags().Int64Var(&f.templateID, "template", 0, "Template id to fill in")
	cmd.Flags().StringVar(&f.to, "to", "", "Override the recipient")
	cmd.Flags().StringVar(&f.subject, "subject", "", "Override the subject")
	cmd.Flags().StringVar(&f.body, "body", "", "Override the body")
}

// compose opens a draft and applies the template and overrides.
func (a *App) compose(cmd *cobra.Command, f *draftFlags) (*pages.Composer, email.Draft, error) {
	if f.contactID == 0 && f.dealID == 0 {
		return nil, email.Draft{}, errors.New("--contact or --deal is required")
	}
	deps, err := a.Deps(cmd.Context())
	if err != nil {
		return nil, email.Draft{}, err
	}
	composer := pages.NewComposer(deps)
	d, err := composer.Open(cmd.Context(), f.contactID, f.dealID)
	if err != nil {
		return nil, email.Draft{}, fmt.Errorf("failed to open draft: %w", err)
	}
	if f.templateID != 0 {
		if d, err = composer.UseTemplate(cmd.Context(), f.templateID); err != nil {
			return nil, email.Draft{}, fmt.Errorf("failed to apply template: %w", err)
		}
	}
	if cmd.Flags().Changed("to") {
		d.To = f.to
	}
	if cmd.Flags().Changed("subject") {
		d.Subject = f.subject
	}
	if cmd.Flags().Changed("body") {
		d.Body = f.body
	}
	composer.Edit(d)
	return composer, d, nil
}

func (a *App) printDraft(d email.Draft) {
	a.printf("To:      %s\n", d.To)
	a.printf("Subject: %s\n\n", d.Subject)
	a.printf("%s\n", d.Body)
}

func emailDraftCmd(app *App) *cobra.Command {
	var flags draftFlags
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Print a prefilled message without sending it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, d, err := app.compose(cmd, &flags)
			if err != nil {
				return err
			}
			app.printDraft(d)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func emailSendCmd(app *App) *cobra.Command {
	var flags draftFlags
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message and log it as an email activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			composer, d, err := app.compose(cmd, &flags)
			if err != nil {
				return err
			}
			receipt, err := composer.Send(cmd.Context(), d)
			if err != nil {
				return fmt.Errorf("failed to send email: %w", err)
			}
			app.printf("%s Email sent to %s\n", okMark, receipt.To)
			app.printf("  Message ID: %s\n", receipt.MessageID)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}
