// ABOUTME: Shared CLI state: configuration, logger and the lazily opened page dependencies
// ABOUTME: Builds the cobra root command and wires every subcommand to one App
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/harperreed/crmdeck/config"
	"github.com/harperreed/crmdeck/email"
	"github.com/harperreed/crmdeck/feed"
	"github.com/harperreed/crmdeck/logging"
	"github.com/harperreed/crmdeck/models"
	"github.com/harperreed/crmdeck/pages"
	"github.com/harperreed/crmdeck/session"
)

// sessionTTL is how long a Redis-backed login lasts.
const sessionTTL = 30 * 24 * time.Hour

// App carries what every command needs. Config and Logger are filled by the
// root command before any subcommand runs unless a caller set them first.
type App struct {
	Version    string
	ConfigPath string
	Backend    string
	LogLevel   string

	Config *config.Config
	Logger *zap.Logger

	Out io.Writer
	In  io.Reader

	deps    *pages.Deps
	closers []func() error
}

func NewApp(version string) *App {
	return &App{Version: version, Out: os.Stdout, In: os.Stdin}
}

// NewRootCmd assembles the command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:     "crmdeck",
		Short:   "crmdeck - contacts, deals and activity from the terminal",
		Version: app.Version,
		Long: `crmdeck is a small CRM client: filter contacts, run bulk edits, watch the
deal pipeline and keep an eye on recent activity.

Backends are chosen with --backend or CRMDECK_BACKEND: mock, remote, sqlite,
postgres or charm.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
		},
	}

	root.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/crmdeck/config.yaml)")
	root.PersistentFlags().StringVar(&app.Backend, "backend", "", "Record backend: mock, remote, sqlite, postgres or charm")
	root.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(ContactsCmd(app))
	root.AddCommand(DealsCmd(app))
	root.AddCommand(PipelineCmd(app))
	root.AddCommand(ActivitiesCmd(app))
	root.AddCommand(DashboardCmd(app))
	root.AddCommand(EmailCmd(app))
	root.AddCommand(SessionCmd(app))
	root.AddCommand(ServeCmd(app))
	root.AddCommand(TUICmd(app))
	root.AddCommand(MCPCmd(app))
	root.AddCommand(SyncCmd(app))

	return root
}

func (a *App) setup(cmd *cobra.Command) error {
	if a.Config == nil {
		cfg, err := config.Load(a.ConfigPath)
		if err != nil {
			return err
		}
		a.Config = cfg
	}
	if a.Backend != "" {
		a.Config.Backend = a.Backend
	}
	if a.LogLevel != "" {
		a.Config.LogLevel = a.LogLevel
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}

	if a.Logger != nil {
		return nil
	}
	var (
		logger *zap.Logger
		err    error
	)
	if cmd.Name() == "tui" {
		logger, err = logging.NewFile(a.Config.LogLevel, filepath.Join(xdg.StateHome, "crmdeck", "tui.log"))
	} else {
		logger, err = logging.New(a.Config.LogLevel, false)
	}
	if err != nil {
		return err
	}
	a.Logger = logger
	a.closers = append(a.closers, func() error {
		_ = logger.Sync()
		return nil
	})
	return nil
}

// Deps opens the gateway, session store and sender on first use.
func (a *App) Deps(ctx context.Context) (pages.Deps, error) {
	if a.deps != nil {
		return *a.deps, nil
	}

	gw, err := a.Config.OpenGateway(ctx)
	if err != nil {
		return pages.Deps{}, err
	}
	a.closers = append(a.closers, gw.Close)

	sess, err := a.openSession(ctx)
	if err != nil {
		return pages.Deps{}, err
	}

	sender, err := a.openSender(ctx)
	if err != nil {
		return pages.Deps{}, err
	}

	deps := pages.Deps{
		Gateway:  gw,
		Feed:     feed.New(a.Config.FeedCap),
		Session:  sess,
		Sender:   sender,
		Logger:   logging.OrNop(a.Logger),
		Interval: a.Config.RefreshInterval,
	}.WithDefaults()
	a.deps = &deps
	return deps, nil
}

func (a *App) openSession(ctx context.Context) (session.Store, error) {
	var store session.Store = session.NewMemory()
	if a.Config.RedisURL != "" {
		rs, err := session.NewRedisStore(a.Config.RedisURL, "", sessionTTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		store = rs
	}

	if a.Config.SenderName != "" && !session.IsAuthenticated(ctx, store) {
		user := &models.User{ID: uuid.NewString(), Name: a.Config.SenderName, Email: a.Config.SenderEmail}
		if err := store.SetUser(ctx, user); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (a *App) openSender(ctx context.Context) (email.Sender, error) {
	if a.Config.GmailToken == "" {
		return email.NewSimulated(0, a.Logger), nil
	}
	token, err := email.LoadToken(a.Config.GmailToken)
	if err != nil {
		return nil, fmt.Errorf("failed to load Gmail token (run 'crmdeck email auth'): %w", err)
	}
	return email.NewGmail(ctx, token, a.Config.SenderEmail)
}

// Close releases everything Deps and setup opened, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.Logger != nil {
			a.Logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
	a.deps = nil
}

// confirm asks a yes/no question. Without a terminal on stdin the answer is no.
func (a *App) confirm(prompt string) bool {
	f, ok := a.In.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	_, _ = fmt.Fprintf(a.Out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.Out, format, args...)
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	dimText  = color.New(color.Faint).SprintFunc()
)
