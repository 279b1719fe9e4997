package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// DB wraps the SQLite registry connection.
type DB struct {
	conn *sql.DB
	path string
}

// Config holds database configuration options
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// DefaultConfig returns sensible defaults for database configuration
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		BusyTimeout: 30 * time.Second,
	}
}

// Open creates a new database connection with optimized settings.
// Enables WAL mode, foreign keys, immediate transaction locking, and a
// busy timeout. Immediate locking makes BeginTx take the write lock up
// front, which is what serializes concurrent port allocation across
// processes sharing the registry file.
func Open(path string) (*DB, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig creates a new database connection with custom configuration
func OpenWithConfig(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d&_txlock=immediate",
		cfg.Path,
		int(cfg.BusyTimeout.Milliseconds()),
	)

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.WrapError(types.REGISTRY_OPEN_FAILED, "failed to open database", err)
	}

	// A single connection keeps transaction semantics simple for a CLI.
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, types.WrapError(types.REGISTRY_OPEN_FAILED, "failed to ping database", err)
	}

	db := &DB{
		conn: conn,
		path: cfg.Path,
	}

	var journalMode string
	if err := db.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		conn.Close()
		return nil, types.WrapError(types.REGISTRY_OPEN_FAILED, "failed to verify journal mode", err)
	}
	if journalMode != "wal" {
		conn.Close()
		return nil, types.NewError(types.REGISTRY_OPEN_FAILED, fmt.Sprintf("WAL mode not enabled (got %s)", journalMode))
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Health performs a health check on the database connection
func (db *DB) Health(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return types.WrapError(types.REGISTRY_QUERY_FAILED, "ping failed", err)
	}

	var result int
	if err := db.conn.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return types.WrapError(types.REGISTRY_QUERY_FAILED, "query failed", err)
	}
	return nil
}

// WithTx executes a function within a transaction.
// If the function returns an error, the transaction is rolled back.
// The DSN's _txlock=immediate means the write lock is acquired at Begin,
// not at first write, so two processes cannot interleave inside fn.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return types.WrapError(types.REGISTRY_QUERY_FAILED, "failed to commit transaction", err)
	}
	return nil
}

// InitSchema initializes the database schema using migrations
func (db *DB) InitSchema() error {
	migrator := NewMigrator(db)
	if err := migrator.Migrate(context.Background()); err != nil {
		return types.WrapError(types.REGISTRY_MIGRATION_FAILED, "failed to run migrations", err)
	}
	return nil
}

// QueryContext wraps the underlying connection's QueryContext
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext wraps the underlying connection's QueryRowContext
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// ExecContext wraps the underlying connection's ExecContext
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}
