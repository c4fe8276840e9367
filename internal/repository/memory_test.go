package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qwesade/internal/models"
)

func TestMemorySessionRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	repo := NewMemorySessionRepository(time.Hour)
	repo.now = func() time.Time { return now }

	session := &models.Session{UserID: 1, Step: models.StepChoosingService}
	require.NoError(t, repo.SetSession(ctx, session))

	// stored copy is independent of the caller's pointer
	session.Step = models.StepConfirming
	got, err := repo.GetSession(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StepChoosingService, got.Step)

	now = now.Add(2 * time.Hour)
	got, err = repo.GetSession(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.SetSession(ctx, session))
	require.NoError(t, repo.ClearSession(ctx, 1))
	got, err = repo.GetSession(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySessionRepository_RateLimit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	repo := NewMemorySessionRepository(time.Hour)
	repo.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		allowed, err := repo.CheckRateLimit(ctx, 1, 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, _ := repo.CheckRateLimit(ctx, 1, 2, time.Minute)
	assert.False(t, allowed)

	allowed, _ = repo.CheckRateLimit(ctx, 2, 2, time.Minute)
	assert.True(t, allowed, "limits are per user")

	now = now.Add(time.Minute + time.Second)
	allowed, _ = repo.CheckRateLimit(ctx, 1, 2, time.Minute)
	assert.True(t, allowed)
}
