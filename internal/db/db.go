package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/annot/internal/config"
	_ "modernc.org/sqlite"
)

// baseSchema is the original notes table. Later columns are added by
// columnMigrations, never by editing this statement.
const baseSchema = `
CREATE TABLE IF NOT EXISTS notes (
  id      INTEGER PRIMARY KEY AUTOINCREMENT,
  doc_id  TEXT NOT NULL,
  page    INTEGER NOT NULL,
  x       REAL NOT NULL,
  y       REAL NOT NULL,
  content TEXT NOT NULL
);`

const indexSchema = `
CREATE INDEX IF NOT EXISTS idx_notes_doc_page ON notes(doc_id, page);`

// ColumnMigration adds one optional column to the notes table if it is absent.
type ColumnMigration struct {
	Name       string
	Definition string
}

// columnMigrations are applied in order on every startup.
var columnMigrations = []ColumnMigration{
	{Name: "color", Definition: "TEXT DEFAULT '#fbbf24'"},
	{Name: "coordinate_space", Definition: "TEXT DEFAULT 'normalized'"},
	{Name: "ref_width", Definition: "INTEGER"},
	{Name: "ref_height", Definition: "INTEGER"},
}

// Init opens the SQLite notes database at dbPath and brings its schema up to date.
// Parent directories are created as needed.
func Init(ctx context.Context, dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas in the connection string apply to every pooled connection.
	// _txlock=immediate makes BeginTx take the write lock up front so
	// concurrent writers wait on busy_timeout instead of failing on upgrade.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	// Best-effort, file exists after migrate
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// Migrate ensures the notes table exists and adds any missing optional
// columns by inspecting the live schema. Existing rows are never rewritten.
// Returns the names of the columns it added.
func Migrate(ctx context.Context, db *sql.DB) ([]string, error) {
	if _, err := db.ExecContext(ctx, baseSchema); err != nil {
		return nil, fmt.Errorf("create notes table: %w", err)
	}

	existing, err := Columns(ctx, db, "notes")
	if err != nil {
		return nil, err
	}

	var added []string
	for _, m := range columnMigrations {
		if existing[m.Name] {
			continue
		}
		ddl := fmt.Sprintf("ALTER TABLE notes ADD COLUMN %s %s", m.Name, m.Definition)
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return added, fmt.Errorf("add column %s: %w", m.Name, err)
		}
		added = append(added, m.Name)
	}

	if _, err := db.ExecContext(ctx, indexSchema); err != nil {
		return added, fmt.Errorf("create notes index: %w", err)
	}

	return added, nil
}

// Columns returns the set of column names currently defined on table.
func Columns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(ctx context.Context, db *sql.DB) error {
	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}
