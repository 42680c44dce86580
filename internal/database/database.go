// Package database keeps the history of certificate check runs.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidLimit = errors.New("limit must be positive")

// Record is one finished check run of a target.
type Record struct {
	Target   string
	Protocol string
	Status   string
	Summary  string
	// DaysRemaining is nil when no certificate was read.
	DaysRemaining *float64
	ElapsedMS     int64
	CheckedAt     time.Time
}

type Database interface {
	InsertCheck(ctx context.Context, record Record) error
	// Recent returns up to limit records of target, newest first.
	Recent(ctx context.Context, target string, limit int) ([]Record, error)
	Close() error
}

// NewDatabase opens a "sqlite" or "postgres" store and creates its schema.
func NewDatabase(ctx context.Context, dbType, dsn string) (Database, error) {
	switch dbType {
	case "sqlite":
		return NewSQLiteDatabase(ctx, dsn)
	case "postgres":
		return NewPostgresDatabase(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}
