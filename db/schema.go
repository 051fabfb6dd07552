// ABOUTME: Database schema definitions for both supported dialects
// ABOUTME: Creates contacts, deals, activities and email template tables
package db

import (
	"database/sql"
	"fmt"
	"strings"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'lead',
	tags TEXT NOT NULL DEFAULT '[]',
	last_contacted DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_status ON contacts(status);

CREATE TABLE IF NOT EXISTS deals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	value REAL NOT NULL DEFAULT 0,
	stage TEXT NOT NULL,
	contact_id INTEGER NOT NULL,
	probability REAL NOT NULL DEFAULT 0,
	expected_close DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deals_stage ON deals(stage);

CREATE TABLE IF NOT EXISTS activities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	description TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	contact_id INTEGER,
	deal_id INTEGER,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activities_timestamp ON activities(timestamp);

CREATE TABLE IF NOT EXISTS email_templates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	subject TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
);
`

// postgresSchema is derived from the SQLite one; only column types differ.
var postgresSchema = strings.NewReplacer(
	"INTEGER PRIMARY KEY AUTOINCREMENT", "BIGSERIAL PRIMARY KEY",
	"DATETIME", "TIMESTAMPTZ",
	"REAL", "DOUBLE PRECISION",
	"INTEGER", "BIGINT",
).Replace(sqliteSchema)

func InitSchema(db *sql.DB, dialect Dialect) error {
	switch dialect {
	case SQLite:
		_, err := db.Exec(sqliteSchema)
		return err
	case Postgres:
		_, err := db.Exec(postgresSchema)
		return err
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
}
