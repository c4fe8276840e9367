package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryWorksheetTrimsAndAppends(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySpreadsheet()
	ws, err := s.Worksheet(ctx, "Sheet")
	require.NoError(t, err)

	require.NoError(t, ws.UpdateRow(ctx, 1, []string{"a", "b", ""}))
	require.NoError(t, ws.UpdateCell(ctx, 3, 2, "x"))
	require.NoError(t, ws.UpdateCell(ctx, 3, 2, ""))
	require.NoError(t, ws.AppendRow(ctx, []string{"c"}))

	v, err := ws.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, v)

	same, err := s.Worksheet(ctx, "Sheet")
	require.NoError(t, err)
	assert.Same(t, ws, same)
	assert.Error(t, ws.UpdateCell(ctx, 0, 1, "x"))
}
