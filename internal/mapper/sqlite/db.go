package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (records table)
// 1 - Added index on records(entity_type, seq)
const currentSchemaVersion = 1

// DB is a SQLite database shared by the mappers of several entity types.
type DB struct {
	db     *sql.DB
	clock  Clock
	logger *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithClock replaces the seq clock. Tests use a deterministic clock so the
// same scenario always stamps the same values.
func WithClock(c Clock) Option {
	return func(d *DB) {
		d.clock = c
	}
}

// WithLogger sets the logger used for statement-level debug output.
func WithLogger(l *slog.Logger) Option {
	return func(d *DB) {
		d.logger = l
	}
}

// Open creates or opens a SQLite database at path.
// Pragmas, schema and migrations are applied on every open; the function
// is idempotent.
func Open(path string, opts ...Option) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	d := &DB{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(d)
	}
	if d.clock == nil {
		var last int64
		if err := db.QueryRow("SELECT COALESCE(MAX(seq), 0) FROM records").Scan(&last); err != nil {
			db.Close()
			return nil, fmt.Errorf("read last seq: %w", err)
		}
		d.clock = NewSeqClock(last)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Mapper returns the mapper for one entity type.
func (d *DB) Mapper(entityType string) *Mapper {
	return &Mapper{db: d, typ: entityType}
}

// Count returns the number of stored rows for entityType.
func (d *DB) Count(ctx context.Context, entityType string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE entity_type = ?", entityType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", entityType, err)
	}
	return n, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_records_type_seq ON records(entity_type, seq)")
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
