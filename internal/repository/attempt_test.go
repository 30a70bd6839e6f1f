// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botlink-app/botlink/internal/models"
	"github.com/botlink-app/botlink/internal/ratelimit"
	"github.com/botlink-app/botlink/internal/testutil"
)

func TestRecordAttempt(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	attempt := &models.MagicLinkAttempt{
		Email:       "user@example.com",
		AttemptedAt: time.Now(),
		IPAddress:   "192.0.2.1",
		Success:     true,
	}
	err := repo.RecordAttempt(ctx, attempt)

	require.NoError(t, err)
	assert.NotZero(t, attempt.ID)
}

func TestAttemptsSince(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for _, offset := range []time.Duration{-2 * time.Hour, -30 * time.Minute, -time.Minute} {
		require.NoError(t, repo.RecordAttempt(ctx, &models.MagicLinkAttempt{
			Email:       "user@example.com",
			AttemptedAt: now.Add(offset),
			Success:     true,
		}))
	}
	// A different identity must not leak into the history.
	require.NoError(t, repo.RecordAttempt(ctx, &models.MagicLinkAttempt{
		Email:       "other@example.com",
		AttemptedAt: now,
		Success:     true,
	}))

	attempts, err := repo.AttemptsSince(ctx, models.Email("user@example.com"), now.Add(-time.Hour))

	require.NoError(t, err)
	require.Len(t, attempts, 2)
	// Oldest first.
	assert.True(t, attempts[0].AttemptedAt.Before(attempts[1].AttemptedAt))
}

func TestReserveSend(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	attempt := &models.MagicLinkAttempt{
		Email:       "user@example.com",
		AttemptedAt: time.Now(),
		IPAddress:   "192.0.2.1",
	}
	decision, err := repo.ReserveSend(ctx, attempt)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.True(t, attempt.Success)
	assert.NotZero(t, attempt.ID)

	// The reserved slot is visible to the next check.
	rows, err := repo.AttemptsSince(ctx, models.Email("user@example.com"), attempt.AttemptedAt.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Success)
}

func TestReserveSend_CooldownDenied(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	_, err := repo.ReserveSend(ctx, &models.MagicLinkAttempt{
		Email:       "user@example.com",
		AttemptedAt: now,
	})
	require.NoError(t, err)

	attempt := &models.MagicLinkAttempt{
		Email:       "user@example.com",
		AttemptedAt: now.Add(30 * time.Second),
	}
	decision, err := repo.ReserveSend(ctx, attempt)

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ratelimit.ReasonCooldown, decision.Reason)

	// The denial lands as a failure row, so it never counts later.
	assert.False(t, attempt.Success)
	rows, err := repo.AttemptsSince(ctx, models.Email("user@example.com"), now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.False(t, rows[1].Success)
}

func TestReserveSend_HourlyDenied(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 10; i++ {
		require.NoError(t, repo.RecordAttempt(ctx, &models.MagicLinkAttempt{
			Email:       "user@example.com",
			AttemptedAt: now.Add(-50 * time.Minute).Add(time.Duration(i) * 5 * time.Minute),
			Success:     true,
		}))
	}

	// Past the cooldown of the newest send, still ten inside the hour.
	decision, err := repo.ReserveSend(ctx, &models.MagicLinkAttempt{
		Email:       "user@example.com",
		AttemptedAt: now.Add(2 * time.Minute),
	})

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ratelimit.ReasonHourly, decision.Reason)
}

func TestAttemptsSince_IncludesFailures(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.RecordAttempt(ctx, &models.MagicLinkAttempt{
		Email:       "user@example.com",
		AttemptedAt: now,
		Success:     false,
	}))

	attempts, err := repo.AttemptsSince(ctx, models.Email("user@example.com"), now.Add(-time.Hour))

	require.NoError(t, err)
	require.Len(t, attempts, 1)
	// The policy ignores failures; the store still returns them.
	assert.False(t, attempts[0].Success)
}
