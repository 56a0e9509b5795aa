package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	label       TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL,
	results     TEXT NOT NULL,
	trace       TEXT NOT NULL,
	meta        TEXT,
	config      TEXT,
	manifest    TEXT,
	imported_at TEXT NOT NULL
);`

// StoredRun is a row of the run listing.
type StoredRun struct {
	ID         string
	Label      string
	Location   string
	ImportedAt string
}

// SQLiteStore keeps run documents as JSON text columns. Loading a stored run
// goes through the same validation as loading a directory.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the store at path, creating the parent
// directory if needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts or replaces the run under run.ID.
func (s *SQLiteStore) Save(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	docs, err := EncodeRun(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs(run_id, label, location, results, trace, meta, config, manifest, imported_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			label=excluded.label, location=excluded.location, results=excluded.results,
			trace=excluded.trace, meta=excluded.meta, config=excluded.config,
			manifest=excluded.manifest, imported_at=excluded.imported_at`,
		run.ID, run.Label, run.Location,
		string(docs.Results), string(docs.Trace),
		nullable(docs.Meta), nullable(docs.Config), nullable(docs.Manifest),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// Import loads the run directory at dir and saves it.
func (s *SQLiteStore) Import(ctx context.Context, dir string) (*Run, error) {
	run, err := DirLoader{}.Load(ctx, dir)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Load implements Loader; location is a run id.
func (s *SQLiteStore) Load(ctx context.Context, runID string) (*Run, error) {
	var (
		label, location, results, trace string
		meta, config, manifest          sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT label, location, results, trace, meta, config, manifest FROM runs WHERE run_id = ?`,
		runID,
	).Scan(&label, &location, &results, &trace, &meta, &config, &manifest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missing(runID, "runs", fmt.Errorf("run %q not in store", runID))
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	run, err := DecodeRun(location, Documents{
		Results:  []byte(results),
		Trace:    []byte(trace),
		Meta:     nullBytes(meta),
		Config:   nullBytes(config),
		Manifest: nullBytes(manifest),
	})
	if err != nil {
		return nil, err
	}
	run.ID = runID
	run.Label = label
	return run, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]StoredRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, label, location, imported_at FROM runs ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []StoredRun
	for rows.Next() {
		var r StoredRun
		if err := rows.Scan(&r.ID, &r.Label, &r.Location, &r.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullBytes(ns sql.NullString) []byte {
	if !ns.Valid {
		return nil
	}
	return []byte(ns.String)
}
