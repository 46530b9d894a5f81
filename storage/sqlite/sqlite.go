// Package sqlite is a storage.Storage backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NicValentine/LoFi-Cafe/storage"

	_ "modernc.org/sqlite"
)

// Storage keeps each run as a row with the whole record as JSON.
type Storage struct {
	db *sql.DB
}

// NewStorage opens or creates a database at the given path.
func NewStorage(dbPath string) (*Storage, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Storage{
		db: db,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		model       TEXT NOT NULL,
		version     TEXT NOT NULL DEFAULT '',
		agent       TEXT NOT NULL DEFAULT '',
		started_at  TEXT NOT NULL,
		ticks       INTEGER NOT NULL,
		stopped     TEXT NOT NULL,
		record      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) WriteRun(ctx context.Context, r *storage.RunRecord) error {
	js, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, model, version, agent, started_at, ticks, stopped, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Id, r.Model, r.Version, r.Agent, r.Started.UTC().Format(time.RFC3339Nano),
		r.Ticks, r.StoppedBecause.String(), string(js))
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.Id, err)
	}
	return nil
}

func (s *Storage) GetRun(ctx context.Context, model, id string) (*storage.RunRecord, error) {
	var js string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM runs WHERE model = ? AND id = ?`, model, id).Scan(&js)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	var r storage.RunRecord
	if err := json.Unmarshal([]byte(js), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Storage) ListRuns(ctx context.Context, model string) ([]*storage.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM runs WHERE ? = '' OR model = ? ORDER BY id`, model, model)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var acc []*storage.RunRecord
	for rows.Next() {
		var js string
		if err := rows.Scan(&js); err != nil {
			return nil, err
		}
		var r storage.RunRecord
		if err := json.Unmarshal([]byte(js), &r); err != nil {
			return nil, err
		}
		acc = append(acc, r.Summary())
	}
	return acc, rows.Err()
}
