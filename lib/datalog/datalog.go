// Package datalog stores multiplexer scans in a SQLite database.
package datalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scanned_at TEXT NOT NULL,
	channel INTEGER NOT NULL,
	value REAL NOT NULL,
	logged_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_readings_channel ON readings(channel, scanned_at);
`

// timeLayout is fixed width so scan times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Reading is one stored channel reading.
type Reading struct {
	Channel int
	Value   float64
	Time    time.Time
}

// Store is an open datalog.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating datalog directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening datalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating datalog schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveScan stores the readings of one scan in a single transaction.
func (s *Store) SaveScan(ctx context.Context, readings []Reading) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO readings (scanned_at, channel, value) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range readings {
		if _, err := stmt.ExecContext(ctx, r.Time.UTC().Format(timeLayout), r.Channel, r.Value); err != nil {
			return fmt.Errorf("saving channel %d: %w", r.Channel, err)
		}
	}
	return tx.Commit()
}

// Readings returns the stored readings of channel in time order, or of every
// channel when channel is 0.
func (s *Store) Readings(ctx context.Context, channel int) ([]Reading, error) {
	q := `SELECT scanned_at, channel, value FROM readings`
	var args []any
	if channel != 0 {
		q += ` WHERE channel = ?`
		args = append(args, channel)
	}
	q += ` ORDER BY scanned_at, channel, id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reading
	for rows.Next() {
		var (
			r       Reading
			scanned string
		)
		if err := rows.Scan(&scanned, &r.Channel, &r.Value); err != nil {
			return nil, err
		}
		if r.Time, err = time.Parse(timeLayout, scanned); err != nil {
			return nil, fmt.Errorf("bad scan time %q: %w", scanned, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
