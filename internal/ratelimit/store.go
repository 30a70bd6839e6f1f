// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package ratelimit

import (
	"context"
	"time"

	"github.com/botlink-app/botlink/internal/models"
)

// AttemptRecorder appends one attempt row, whatever the outcome.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt *models.MagicLinkAttempt) error
}

// AttemptStore is the injected attempt history. The SQL implementation
// (repository.Repository) serializes through the database transaction;
// multi-instance deployments must share counts through the redis
// implementation.
type AttemptStore interface {
	AttemptRecorder
	// AttemptsSince returns attempts for the address after the cutoff,
	// oldest first.
	AttemptsSince(ctx context.Context, email models.Email, since time.Time) ([]models.MagicLinkAttempt, error)
	// ReserveSend atomically applies the send policy to the stored
	// history and records the attempt, denied attempts as failures.
	// The check and the write must be serialized per address so two
	// concurrent requests cannot both read a stale count and pass the
	// hourly cap.
	ReserveSend(ctx context.Context, attempt *models.MagicLinkAttempt) (Decision, error)
}
