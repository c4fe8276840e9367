package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
	assert.Equal(t, dbPath, db.Path())
}

func TestWorksheet_ReadWrite(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	ws, err := db.Worksheet(ctx, "Calendar")
	require.NoError(t, err)
	assert.Equal(t, "Calendar", ws.Title())

	v, err := ws.Values(ctx)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, ws.UpdateRow(ctx, 1, []string{"Date", "Весь день", "10:00–12:00"}))
	require.NoError(t, ws.UpdateRow(ctx, 3, []string{"2026-10-16"}))
	require.NoError(t, ws.UpdateCell(ctx, 3, 3, "walk"))
	require.NoError(t, ws.UpdateCell(ctx, 1, 3, "10:00-12:00"))

	v, err = ws.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Date", "Весь день", "10:00-12:00"},
		{},
		{"2026-10-16", "", "walk"},
	}, v)

	require.NoError(t, ws.UpdateCell(ctx, 3, 3, ""))
	v, err = ws.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-10-16"}, v[2])

	assert.Error(t, ws.UpdateCell(ctx, 0, 1, "x"))
}

func TestWorksheet_AppendRow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	ws, err := db.Worksheet(ctx, "Bookings")
	require.NoError(t, err)
	other, err := db.Worksheet(ctx, "Other")
	require.NoError(t, err)

	require.NoError(t, ws.AppendRow(ctx, []string{"Timestamp", "RequestID"}))
	require.NoError(t, ws.AppendRow(ctx, []string{"2026-10-14T10:00:00", "RQ-1"}))
	require.NoError(t, other.AppendRow(ctx, []string{"x"}))

	v, err := ws.Values(ctx)
	require.NoError(t, err)
	require.Len(t, v, 2)
	assert.Equal(t, "RQ-1", v[1][1])

	ov, err := other.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x"}}, ov)
}
