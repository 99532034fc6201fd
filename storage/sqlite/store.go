// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package sqlite provides a durable storage.VectorStore on SQLite.
//
// Vectors are stored as mus-encoded blobs and scored in process; SQLite
// holds the records and their insertion order.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name       TEXT PRIMARY KEY,
	dimension  INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	collection  TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
	id          TEXT NOT NULL,
	text        TEXT NOT NULL,
	vector      BLOB NOT NULL,
	inserted_at TEXT NOT NULL,
	UNIQUE (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection, seq);
`

// Store is a SQLite-backed vector store.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore opens or creates a SQLite database at path.
func NewStore(path string) (storage.VectorStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return open(path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
}

// NewMemoryStore opens a private in-memory SQLite database.
func NewMemoryStore() (storage.VectorStore, error) {
	return open(":memory:?_pragma=foreign_keys(on)")
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	return nil
}

func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	if err := core.ValidateCollectionName(name); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, dimension, created_at) VALUES (?, 0, ?)`,
		name, formatTime(time.Now()))
	return err
}

func (s *Store) Upsert(ctx context.Context, name, id, text string, vector []float32) error {
	if err := core.ValidateRecord(id, vector); err != nil {
		return err
	}
	if err := core.ValidateCollectionName(name); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, dimension, created_at) VALUES (?, 0, ?)`,
		name, now); err != nil {
		return err
	}

	var dim int
	if err := tx.QueryRowContext(ctx, `SELECT dimension FROM collections WHERE name = ?`, name).Scan(&dim); err != nil {
		return err
	}
	switch {
	case dim == 0:
		if _, err := tx.ExecContext(ctx, `UPDATE collections SET dimension = ? WHERE name = ?`, len(vector), name); err != nil {
			return err
		}
	case dim != len(vector):
		return fmt.Errorf("%w: collection %q has dimension %d, got %d", core.ErrDimensionMismatch, name, dim, len(vector))
	}

	// Replacing keeps seq and inserted_at so insertion order is stable.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO records (collection, id, text, vector, inserted_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET text = excluded.text, vector = excluded.vector`,
		name, id, text, storage.MarshalVector(vector), now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, name string, query []float32, limit int, minScore float32) ([]*core.SearchResult, error) {
	if len(query) == 0 {
		return nil, core.ErrEmptyVector
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var dim int
	err := s.db.QueryRowContext(ctx, `SELECT dimension FROM collections WHERE name = ?`, name).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if dim != 0 && dim != len(query) {
		return nil, fmt.Errorf("%w: collection %q has dimension %d, query has %d", core.ErrDimensionMismatch, name, dim, len(query))
	}

	records, err := s.Records(ctx, name)
	if err != nil {
		return nil, err
	}
	return storage.Rank(records, query, limit, minScore), nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE name = ?`, name).Scan(&n)
	return n > 0, err
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE collection = ?`, name).Scan(&n)
	return n, err
}

func (s *Store) Records(ctx context.Context, name string) ([]*core.VectorRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, text, vector, inserted_at FROM records WHERE collection = ? ORDER BY seq`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*core.VectorRecord
	for rows.Next() {
		var (
			seq        int64
			blob       []byte
			insertedAt string
		)
		record := &core.VectorRecord{Collection: name}
		if err := rows.Scan(&seq, &record.ID, &record.Text, &blob, &insertedAt); err != nil {
			return nil, err
		}
		record.Seq = uint64(seq)
		if record.Vector, err = storage.UnmarshalVector(blob); err != nil {
			return nil, err
		}
		if record.InsertedAt, err = time.Parse(time.RFC3339Nano, insertedAt); err != nil {
			return nil, fmt.Errorf("%w: inserted_at: %w", storage.ErrSerializationFailed, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) Collections(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) Delete(ctx context.Context, name string, ids ...string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, name, id); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return err
	}
	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
