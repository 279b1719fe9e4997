package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// Migrator handles database schema migrations
type Migrator interface {
	// Migrate applies all pending migrations
	Migrate(ctx context.Context) error

	// CurrentVersion returns the current schema version
	CurrentVersion(ctx context.Context) (int, error)
}

// migration represents a single database migration
type migration struct {
	version int
	name    string
	up      string
}

// migrator implements the Migrator interface
type migrator struct {
	db         *DB
	migrations []migration
}

// NewMigrator creates a new database migrator
func NewMigrator(db *DB) Migrator {
	return &migrator{
		db:         db,
		migrations: getMigrations(),
	}
}

// getMigrations returns all available migrations in order
func getMigrations() []migration {
	return []migration{
		{
			version: 1,
			name:    "instances_table",
			up: `
CREATE TABLE IF NOT EXISTS instances (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	http_port      INTEGER NOT NULL,
	bolt_port      INTEGER NOT NULL,
	username       TEXT NOT NULL,
	password       TEXT NOT NULL,
	container_name TEXT NOT NULL,
	container_id   TEXT NOT NULL DEFAULT '',
	volume_name    TEXT NOT NULL,
	status         TEXT NOT NULL,
	ontology_path  TEXT NOT NULL DEFAULT '',
	data_path      TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_instances_status ON instances(status);
CREATE INDEX IF NOT EXISTS idx_instances_created_at ON instances(created_at);
`,
		},
	}
}

// Migrate applies all pending migrations in a single transaction per migration.
func (m *migrator) Migrate(ctx context.Context) error {
	if err := m.ensureVersionTable(ctx); err != nil {
		return err
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	pending := make([]migration, 0, len(m.migrations))
	for _, mig := range m.migrations {
		if mig.version > current {
			pending = append(pending, mig)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })

	for _, mig := range pending {
		err := m.db.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.up); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", mig.version, mig.name, err)
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
				mig.version, mig.name)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// CurrentVersion returns the highest applied migration version.
func (m *migrator) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return 0, err
	}

	var version sql.NullInt64
	err := m.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

func (m *migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TIMESTAMP NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}
