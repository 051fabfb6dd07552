// ABOUTME: Seeding utility that loads the demo dataset into a persistent backend.
// ABOUTME: Refuses to write into a non-empty store unless forced, with a dry-run mode.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/harperreed/crmdeck/charm"
	"github.com/harperreed/crmdeck/config"
	"github.com/harperreed/crmdeck/db"
	"github.com/harperreed/crmdeck/gateway"
)

type seeder interface {
	Seed(ctx context.Context, data gateway.Dataset) error
}

func main() {
	configPath := flag.String("config", "", "Config file (default: XDG config path)")
	backend := flag.String("backend", "", "Backend to seed: sqlite, postgres or charm (default from config)")
	dryRun := flag.Bool("dry-run", false, "Show what would happen without making changes")
	force := flag.Bool("force", false, "Seed even if the store already has contacts")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if *backend != "" {
		cfg.Backend = *backend
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Error: %v", err)
		}
	}

	if err := seed(context.Background(), cfg, *dryRun, *force); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}

func seed(ctx context.Context, cfg *config.Config, dryRun, force bool) error {
	target, gw, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = gw.Close() }()

	existing, err := gw.Contacts.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read existing contacts: %w", err)
	}
	log.Printf("Backend %s has %d contacts", cfg.Backend, len(existing))
	if len(existing) > 0 && !force {
		log.Printf("WARNING: Seeding adds demo records next to existing data")
		log.Printf("Use -force flag to proceed")
		return fmt.Errorf("seeding requires -force flag")
	}

	data := gateway.Fixtures(time.Now())
	if dryRun {
		log.Printf("[DRY RUN] Would insert %d contacts, %d deals, %d activities, %d templates",
			len(data.Contacts), len(data.Deals), len(data.Activities), len(data.Templates))
		return nil
	}

	if err := target.Seed(ctx, data); err != nil {
		return err
	}
	log.Printf("Seeded %d contacts, %d deals, %d activities, %d templates",
		len(data.Contacts), len(data.Deals), len(data.Activities), len(data.Templates))
	return nil
}

func open(ctx context.Context, cfg *config.Config) (seeder, *gateway.Gateway, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		conn, err := db.OpenDatabase(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		store := db.NewStore(conn, db.SQLite)
		return store, store.Gateway(), nil

	case config.BackendPostgres:
		conn, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := db.NewStore(conn, db.Postgres)
		return store, store.Gateway(), nil

	case config.BackendCharm:
		charmCfg, err := charm.LoadConfig()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load charm config: %w", err)
		}
		client, err := charm.NewClient(charmCfg)
		if err != nil {
			return nil, nil, err
		}
		store := charm.NewStore(client)
		return store, store.Gateway(), nil
	}
	return nil, nil, fmt.Errorf("backend %q cannot be seeded", cfg.Backend)
}
