/*
 * ledger.go, part of qmmm.
 *
 * Copyright 2026 the goChem authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package ledger keeps the energies of each QM/MM step in an SQLite
//database.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/rmera/qmmm"
	_ "modernc.org/sqlite"
)

//Entry is the record of one step.
type Entry struct {
	Step     int64
	Energies qmmm.Energies
	Embedded int //number of embedding charges
}

//Store is an energy ledger. It is safe for concurrent use.
type Store struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

//Open opens, or creates, the ledger at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("ledger path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{path: path, db: db}, nil
}

//Record saves the entry e, replacing any previous record of the same step.
func (s *Store) Record(ctx context.Context, e Entry) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO steps (step, total, outer_energy, embedded)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(step) DO UPDATE SET
			total = excluded.total,
			outer_energy = excluded.outer_energy,
			embedded = excluded.embedded
	`, e.Step, e.Energies.Total, e.Energies.Outer, e.Embedded)
	if err != nil {
		return fmt.Errorf("record step %d: %w", e.Step, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM boundaries WHERE step = ?`, e.Step); err != nil {
		return fmt.Errorf("record step %d: %w", e.Step, err)
	}
	for i, b := range e.Energies.Boundaries {
		_, err := tx.ExecContext(ctx, `INSERT INTO boundaries (step, layer, energy) VALUES (?, ?, ?)`, e.Step, i, b)
		if err != nil {
			return fmt.Errorf("record step %d, layer %d: %w", e.Step, i, err)
		}
	}
	return tx.Commit()
}

//Steps returns all the entries, ordered by step.
func (s *Store) Steps(ctx context.Context) ([]Entry, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT step, total, outer_energy, embedded FROM steps ORDER BY step`)
	if err != nil {
		return nil, err
	}
	var ret []Entry
	index := make(map[int64]int)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Step, &e.Energies.Total, &e.Energies.Outer, &e.Embedded); err != nil {
			rows.Close()
			return nil, err
		}
		index[e.Step] = len(ret)
		ret = append(ret, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	brows, err := db.QueryContext(ctx, `SELECT step, energy FROM boundaries ORDER BY step, layer`)
	if err != nil {
		return nil, err
	}
	defer brows.Close()
	for brows.Next() {
		var step int64
		var energy float64
		if err := brows.Scan(&step, &energy); err != nil {
			return nil, err
		}
		if i, ok := index[step]; ok {
			ret[i].Energies.Boundaries = append(ret[i].Energies.Boundaries, energy)
		}
	}
	return ret, brows.Err()
}

//Close closes the ledger. It can't be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("ledger is closed")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS steps (
			step INTEGER PRIMARY KEY,
			total REAL NOT NULL,
			outer_energy REAL NOT NULL,
			embedded INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS boundaries (
			step INTEGER NOT NULL,
			layer INTEGER NOT NULL,
			energy REAL NOT NULL,
			PRIMARY KEY (step, layer)
		);
	`)
	return err
}
