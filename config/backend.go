// ABOUTME: Builds the record gateway selected by configuration
// ABOUTME: Opens the mock, hosted, SQLite, PostgreSQL or charm KV backend
package config

import (
	"context"
	"fmt"

	"github.com/harperreed/crmdeck/charm"
	"github.com/harperreed/crmdeck/db"
	"github.com/harperreed/crmdeck/gateway"
)

// OpenGateway opens the configured backend. The mock backend is seeded with
// fixtures; the others start from whatever their store already holds.
func (c *Config) OpenGateway(ctx context.Context) (*gateway.Gateway, error) {
	switch c.Backend {
	case BackendMock:
		return gateway.NewMemory(gateway.WithFixtures(), gateway.WithLatency(c.MockLatency)).Gateway(), nil

	case BackendRemote:
		client, err := gateway.NewClient(gateway.ClientConfig{
			BaseURL:   c.APIURL,
			ProjectID: c.ProjectID,
			PublicKey: c.PublicKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingSetting, err)
		}
		return client.Gateway(), nil

	case BackendSQLite:
		conn, err := db.OpenDatabase(c.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db.NewStore(conn, db.SQLite).Gateway(), nil

	case BackendPostgres:
		conn, err := db.OpenPostgres(ctx, c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db.NewStore(conn, db.Postgres).Gateway(), nil

	case BackendCharm:
		charmCfg, err := charm.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load charm config: %w", err)
		}
		client, err := charm.NewClient(charmCfg)
		if err != nil {
			return nil, err
		}
		return charm.NewStore(client).Gateway(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", c.Backend)
}
