// ABOUTME: Charm KV sync CLI commands for the charm backend
// ABOUTME: Shows connection status, syncs on demand, toggles auto-sync and wipes the local store
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harperreed/crmdeck/charm"
	"github.com/harperreed/crmdeck/config"
)

func SyncCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud sync for the charm backend",
	}
	cmd.AddCommand(syncStatusCmd(app))
	cmd.AddCommand(syncNowCmd(app))
	cmd.AddCommand(syncAutoCmd(app))
	cmd.AddCommand(syncHostCmd(app))
	cmd.AddCommand(syncWipeCmd(app))
	return cmd
}

func syncStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show charm sync configuration and identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := charm.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load charm config: %w", err)
			}

			app.printf("Charm Sync Status:\n")
			app.printf("  Config path:  %s\n", cfg.Path())
			app.printf("  Server:       %s\n", cfg.Host)
			app.printf("  Auto-sync:    %t\n", cfg.AutoSync)
			app.printf("  Stale after:  %s\n", cfg.StaleThreshold)
			if app.Config.Backend != config.BackendCharm {
				app.printf("  Backend:      %s (sync only applies to the charm backend)\n", app.Config.Backend)
				return nil
			}

			client, err := charm.NewClient(cfg)
			if err != nil {
				app.printf("  Store:        %s %v\n", failMark, err)
				return nil
			}
			defer func() { _ = client.Close() }()

			id, err := client.ID()
			if err != nil {
				app.printf("  Connected:    %s No (%v)\n", failMark, err)
				return nil
			}
			app.printf("  Connected:    %s Yes\n", okMark)
			app.printf("  User ID:      %s\n", id)

			keys, err := client.Keys()
			if err != nil {
				app.printf("  Keys:         %s %v\n", failMark, err)
				return nil
			}
			app.printf("  Keys:         %d\n", len(keys))
			return nil
		},
	}
}

func syncNowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Sync with the charm server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := charm.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load charm config: %w", err)
			}
			client, err := charm.NewClient(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			start := time.Now()
			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			app.printf("%s Sync completed in %.2fs\n", okMark, time.Since(start).Seconds())
			return nil
		},
	}
}

func syncAutoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "auto <on|off>",
		Short:     "Turn sync-after-every-write on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			cfg, err := charm.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load charm config: %w", err)
			}
			if err := cfg.SetAutoSync(enabled); err != nil {
				return fmt.Errorf("failed to save charm config: %w", err)
			}
			app.printf("%s Auto-sync %s\n", okMark, args[0])
			return nil
		},
	}
}

func syncHostCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "host <hostname>",
		Short: "Point sync at a self-hosted charm server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := charm.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load charm config: %w", err)
			}
			if err := cfg.SetHost(args[0]); err != nil {
				return fmt.Errorf("failed to save charm config: %w", err)
			}
			app.printf("%s Charm host set to %s\n", okMark, args[0])
			return nil
		},
	}
}

func syncWipeCmd(app *App) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every record in the charm store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				app.printf("WARNING: This will permanently delete all CRM data in the charm store!\n")
				app.printf("  - Contacts, deals, activities and templates are removed\n")
				app.printf("  - Synced devices lose the data on their next sync\n")
				app.printf("\nTo proceed, run: crmdeck sync wipe --confirm\n")
				return nil
			}

			cfg, err := charm.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load charm config: %w", err)
			}
			client, err := charm.NewClient(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := client.Reset(); err != nil {
				return fmt.Errorf("failed to wipe charm store: %w", err)
			}
			app.printf("%s All charm data wiped\n", okMark)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the wipe")
	return cmd
}
