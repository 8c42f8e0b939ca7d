package unknowns

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite unknown-drug store, creating the
// database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency across host requests.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS unknown_drugs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		drug_name TEXT NOT NULL,
		module TEXT NOT NULL,
		seen_count INTEGER NOT NULL DEFAULT 1,
		first_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(drug_name, module)
	);

	CREATE INDEX IF NOT EXISTS idx_unknown_drug_name ON unknown_drugs(drug_name);
	CREATE INDEX IF NOT EXISTS idx_unknown_last_seen ON unknown_drugs(last_seen);
	`

	_, err := db.Exec(schema)
	return err
}

// Record appends a new (drugName, module) pair or bumps the existing
// row's seen count. The read-modify-write is safe against concurrent
// appends because the UNIQUE constraint makes a lost check harmless.
func (s *SQLiteStore) Record(ctx context.Context, drugName, module string) error {
	now := time.Now()

	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM unknown_drugs WHERE drug_name = ? AND module = ?",
		drugName, module,
	).Scan(&id)

	if err == nil {
		_, err = s.db.ExecContext(ctx,
			"UPDATE unknown_drugs SET seen_count = seen_count + 1, last_seen = ? WHERE id = ?",
			now, id,
		)
		return err
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO unknown_drugs (drug_name, module, seen_count, first_seen, last_seen)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(drug_name, module) DO UPDATE SET
			seen_count = seen_count + 1, last_seen = excluded.last_seen
	`, drugName, module, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// List returns entries most recent first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, drug_name, module, seen_count, first_seen, last_seen
		FROM unknown_drugs
		ORDER BY last_seen DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.DrugName, &e.Module, &e.SeenCount, &e.FirstSeen, &e.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// Count returns the number of distinct (drug_name, module) pairs.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM unknown_drugs").Scan(&count)
	return count, err
}

// maxExportLimit bounds a single export.
const maxExportLimit = 1000000

// ExportJSON exports the full log to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, w io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Entries:    all,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
