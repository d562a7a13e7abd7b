// Package memorydb keeps creep memory records in SQLite so they survive a
// restart of the host.
package memorydb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"hivecore.ai/internal/sim/memory"
)

type Store struct {
	db *sql.DB
}

var _ memory.Store = (*Store)(nil)

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS creep_memory (
			name TEXT PRIMARY KEY,
			record BLOB NOT NULL
		);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("memorydb init: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Load(name string) (memory.Record, error) {
	var b []byte
	err := s.db.QueryRow(`SELECT record FROM creep_memory WHERE name=?`, name).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return memory.Record{}, memory.ErrNotFound
	}
	if err != nil {
		return memory.Record{}, fmt.Errorf("load %s: %w", name, err)
	}
	return memory.Decode(b)
}

func (s *Store) Save(name string, r memory.Record) error {
	b, err := memory.Encode(r)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO creep_memory(name,record) VALUES(?,?)`, name, b); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func (s *Store) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM creep_memory WHERE name=?`, name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (s *Store) Names() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM creep_memory ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
