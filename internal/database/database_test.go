package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDatabase(t *testing.T) Database {
	t.Helper()
	db, err := NewDatabase(context.Background(), "sqlite", filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabaseUnsupported(t *testing.T) {
	_, err := NewDatabase(context.Background(), "mysql", "whatever")
	assert.EqualError(t, err, "unsupported database type: mysql")
}

func TestSQLiteRoundTrip(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	days := 41.5

	records := []Record{
		{Target: "web", Protocol: "TLS", Status: "OK", Summary: "", DaysRemaining: &days, ElapsedMS: 120, CheckedAt: base},
		{Target: "web", Protocol: "TLS", Status: "CRIT", Summary: "Failed to fetch certificate: timeout", ElapsedMS: 10000, CheckedAt: base.Add(time.Hour)},
		{Target: "mail", Protocol: "SMTP", Status: "WARN", Summary: "Public key size is 2048 but expected 4096", ElapsedMS: 80, CheckedAt: base.Add(2 * time.Hour)},
	}
	for _, r := range records {
		require.NoError(t, db.InsertCheck(ctx, r))
	}

	got, err := db.Recent(ctx, "web", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "CRIT", got[0].Status)
	assert.Equal(t, "Failed to fetch certificate: timeout", got[0].Summary)
	assert.Nil(t, got[0].DaysRemaining)
	assert.Equal(t, int64(10000), got[0].ElapsedMS)
	assert.WithinDuration(t, base.Add(time.Hour), got[0].CheckedAt, 0)

	assert.Equal(t, "OK", got[1].Status)
	require.NotNil(t, got[1].DaysRemaining)
	assert.Equal(t, 41.5, *got[1].DaysRemaining)
	assert.WithinDuration(t, base, got[1].CheckedAt, 0)
}

func TestSQLiteRecentLimit(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.InsertCheck(ctx, Record{Target: "web", Protocol: "FILE", Status: "OK", CheckedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	got, err := db.Recent(ctx, "web", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.WithinDuration(t, base.Add(4*time.Minute), got[0].CheckedAt, 0)

	got, err = db.Recent(ctx, "unknown", 2)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = db.Recent(ctx, "web", 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}
