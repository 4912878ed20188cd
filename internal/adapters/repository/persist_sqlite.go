package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	createTopspeedTable = `
		CREATE TABLE IF NOT EXISTS topspeed (
			name TEXT PRIMARY KEY,
			speed_ms REAL NOT NULL,
			unit_id TEXT NOT NULL DEFAULT ''
		);
	`
	selectTopspeed = `SELECT name, speed_ms, unit_id FROM topspeed`
	upsertTopspeed = `
		INSERT INTO topspeed (name, speed_ms, unit_id) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET speed_ms = excluded.speed_ms, unit_id = excluded.unit_id
	`
)

// SQLitePersister keeps one row per name in a SQLite database.
// Each save upserts only the changed row.
type SQLitePersister struct {
	db *sql.DB
}

// NewSQLitePersister opens (creating if needed) the database at dsn.
func NewSQLitePersister(ctx context.Context, dsn string) (*SQLitePersister, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", dsn, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTopspeedTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create topspeed table: %w", err)
	}
	return &SQLitePersister{db: db}, nil
}

// Load implements Persister.
func (p *SQLitePersister) Load(ctx context.Context) ([]Entry, error) {
	rows, err := p.db.QueryContext(ctx, selectTopspeed)
	if err != nil {
		return nil, fmt.Errorf("query topspeed: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.SpeedMS, &e.UnitID); err != nil {
			return nil, fmt.Errorf("scan topspeed: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topspeed: %w", err)
	}
	return out, nil
}

// Save implements Persister.
func (p *SQLitePersister) Save(ctx context.Context, e Entry, _ []Entry) error {
	if _, err := p.db.ExecContext(ctx, upsertTopspeed, e.Name, e.SpeedMS, e.UnitID); err != nil {
		return fmt.Errorf("upsert %s: %w", e.Name, err)
	}
	return nil
}

// Close implements Persister.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}
