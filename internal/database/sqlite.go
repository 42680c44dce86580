package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers sqlite3
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS checks (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	target         TEXT      NOT NULL,
	protocol       TEXT      NOT NULL,
	status         TEXT      NOT NULL,
	summary        TEXT      NOT NULL,
	days_remaining REAL,
	elapsed_ms     INTEGER   NOT NULL,
	checked_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS checks_target_checked_at ON checks (target, checked_at);
`

type SQLiteDatabase struct {
	db *sql.DB
}

func NewSQLiteDatabase(ctx context.Context, path string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return &SQLiteDatabase{db: db}, nil
}

func (s *SQLiteDatabase) InsertCheck(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checks (target, protocol, status, summary, days_remaining, elapsed_ms, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Target, r.Protocol, r.Status, r.Summary, r.DaysRemaining, r.ElapsedMS, r.CheckedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert check: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) Recent(ctx context.Context, target string, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT target, protocol, status, summary, days_remaining, elapsed_ms, checked_at
		 FROM checks WHERE target = ? ORDER BY checked_at DESC, id DESC LIMIT ?`,
		target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query checks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var days sql.NullFloat64
		if err := rows.Scan(&r.Target, &r.Protocol, &r.Status, &r.Summary, &days, &r.ElapsedMS, &r.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan check: %w", err)
		}
		if days.Valid {
			r.DaysRemaining = &days.Float64
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}
