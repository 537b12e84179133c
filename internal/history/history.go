// Package history keeps a local ledger of past planning runs in an
// embedded SQLite database so batch results can be compared across
// invocations.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded planning run.
type Run struct {
	PlanID             string
	CreatedAt          time.Time
	Status             string
	Orders             int
	Units              int
	Makespan           int
	TotalCost          float64
	ResidualCollisions int
}

// Store wraps the runs database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	plan_id             TEXT PRIMARY KEY,
	created_at          TEXT NOT NULL,
	status              TEXT NOT NULL,
	orders              INTEGER NOT NULL,
	units               INTEGER NOT NULL,
	makespan            INTEGER NOT NULL,
	total_cost          REAL NOT NULL,
	residual_collisions INTEGER NOT NULL
);`

// Open opens (and creates if needed) the run ledger at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one run.
func (s *Store) Record(r Run) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (plan_id, created_at, status, orders, units, makespan, total_cost, residual_collisions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.PlanID, r.CreatedAt.UTC().Format(time.RFC3339), r.Status,
		r.Orders, r.Units, r.Makespan, r.TotalCost, r.ResidualCollisions,
	)
	if err != nil {
		return fmt.Errorf("history: record run %s: %w", r.PlanID, err)
	}
	return nil
}

// Recent returns the newest n runs, newest first.
func (s *Store) Recent(n int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT plan_id, created_at, status, orders, units, makespan, total_cost, residual_collisions
		 FROM runs ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.PlanID, &created, &r.Status, &r.Orders, &r.Units, &r.Makespan, &r.TotalCost, &r.ResidualCollisions); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
