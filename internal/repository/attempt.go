// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/vinovest/sqlx"

	"github.com/botlink-app/botlink/internal/models"
	"github.com/botlink-app/botlink/internal/ratelimit"
)

// RecordAttempt appends one row to the magic-link request log. Rows
// are written regardless of outcome and never deleted.
func (r *Repository) RecordAttempt(ctx context.Context, attempt *models.MagicLinkAttempt) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO magic_link_attempts (email, attempted_at, ip_address, success)
		 VALUES (?, ?, ?, ?)`,
		attempt.Email, attempt.AttemptedAt, attempt.IPAddress, attempt.Success)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		attempt.ID = id
	}
	return nil
}

// ReserveSend applies the send policy and records the attempt in one
// immediate transaction. The transaction takes the write lock before
// the history read, so concurrent requests for the same address
// serialize and cannot both pass the hourly cap on a stale count.
// Denied attempts are stored with success = false.
func (r *Repository) ReserveSend(ctx context.Context, attempt *models.MagicLinkAttempt) (ratelimit.Decision, error) {
	var decision ratelimit.Decision
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var history []models.MagicLinkAttempt
		if err := tx.SelectContext(ctx, &history,
			`SELECT * FROM magic_link_attempts
			 WHERE email = ? AND attempted_at > ?
			 ORDER BY attempted_at ASC, id ASC`,
			attempt.Email, attempt.AttemptedAt.Add(-ratelimit.HourlyWindow)); err != nil {
			return err
		}

		decision = ratelimit.CanSend(history, attempt.AttemptedAt)
		attempt.Success = decision.Allowed

		res, err := tx.ExecContext(ctx,
			`INSERT INTO magic_link_attempts (email, attempted_at, ip_address, success)
			 VALUES (?, ?, ?, ?)`,
			attempt.Email, attempt.AttemptedAt, attempt.IPAddress, attempt.Success)
		if err != nil {
			return err
		}
		if id, err := res.LastInsertId(); err == nil {
			attempt.ID = id
		}
		return nil
	})
	if err != nil {
		return ratelimit.Decision{}, err
	}
	return decision, nil
}

// AttemptsSince returns attempts for an address after the cutoff,
// oldest first.
func (r *Repository) AttemptsSince(ctx context.Context, email models.Email, since time.Time) ([]models.MagicLinkAttempt, error) {
	var attempts []models.MagicLinkAttempt
	err := r.db.SelectContext(ctx, &attempts,
		`SELECT * FROM magic_link_attempts
		 WHERE email = ? AND attempted_at > ?
		 ORDER BY attempted_at ASC, id ASC`,
		email.String(), since)
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
