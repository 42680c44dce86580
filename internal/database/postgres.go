package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS checks (
	id             BIGSERIAL PRIMARY KEY,
	target         TEXT             NOT NULL,
	protocol       TEXT             NOT NULL,
	status         TEXT             NOT NULL,
	summary        TEXT             NOT NULL,
	days_remaining DOUBLE PRECISION,
	elapsed_ms     BIGINT           NOT NULL,
	checked_at     TIMESTAMPTZ      NOT NULL
);
CREATE INDEX IF NOT EXISTS checks_target_checked_at ON checks (target, checked_at);
`

type PostgresDatabase struct {
	pool *pgxpool.Pool
}

func NewPostgresDatabase(ctx context.Context, dsn string) (*PostgresDatabase, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create postgres schema: %w", err)
	}
	return &PostgresDatabase{pool: pool}, nil
}

func (p *PostgresDatabase) InsertCheck(ctx context.Context, r Record) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO checks (target, protocol, status, summary, days_remaining, elapsed_ms, checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.Target, r.Protocol, r.Status, r.Summary, r.DaysRemaining, r.ElapsedMS, r.CheckedAt)
	if err != nil {
		return fmt.Errorf("failed to insert check: %w", err)
	}
	return nil
}

func (p *PostgresDatabase) Recent(ctx context.Context, target string, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := p.pool.Query(ctx,
		`SELECT target, protocol, status, summary, days_remaining, elapsed_ms, checked_at
		 FROM checks WHERE target = $1 ORDER BY checked_at DESC, id DESC LIMIT $2`,
		target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query checks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Target, &r.Protocol, &r.Status, &r.Summary, &r.DaysRemaining, &r.ElapsedMS, &r.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan check: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (p *PostgresDatabase) Close() error {
	p.pool.Close()
	return nil
}
