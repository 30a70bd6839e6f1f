// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vinovest/sqlx"

	"github.com/botlink-app/botlink/internal/models"
)

// ErrTokenConsumed is returned by MarkTokenUsed and ConsumeToken when
// the token is no longer live: a concurrent call marked it used, a
// concurrent issue superseded it, or it expired after validation.
var ErrTokenConsumed = errors.New("token no longer live")

// IssueToken inserts tok as the owner's new live token. Any prior
// live token for the same owner and purpose is invalidated in the
// same transaction, so no observer can see two live tokens or none
// mid-transition.
func (r *Repository) IssueToken(ctx context.Context, tok *models.AuthToken) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE auth_tokens SET is_active = 0
			 WHERE owner_id = ? AND purpose = ? AND is_active = 1 AND used_at IS NULL`,
			tok.OwnerID, tok.Purpose)
		if err != nil {
			return fmt.Errorf("invalidating prior tokens: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO auth_tokens (id, owner_id, purpose, value, created_at, expires_at, used_at, is_active)
			 VALUES (?, ?, ?, ?, ?, ?, NULL, 1)`,
			tok.ID, tok.OwnerID, tok.Purpose, tok.Value, tok.CreatedAt, tok.ExpiresAt)
		if err != nil {
			return fmt.Errorf("inserting token: %w", err)
		}
		return nil
	})
}

// GetTokenByValue retrieves a token by its presented value.
func (r *Repository) GetTokenByValue(ctx context.Context, value string) (*models.AuthToken, error) {
	var tok models.AuthToken
	err := r.db.GetContext(ctx, &tok, `SELECT * FROM auth_tokens WHERE value = ?`, value)
	if err != nil {
		return nil, wrapError(err)
	}
	return &tok, nil
}

// MarkTokenUsed stamps used_at on a token. The guard keeps the stamp
// write-once and refuses tokens that stopped being live between
// validation and this write: a superseded or freshly expired token
// must never transition to used.
func (r *Repository) MarkTokenUsed(ctx context.Context, tokenID string, usedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auth_tokens SET used_at = ?
		 WHERE id = ? AND used_at IS NULL AND is_active = 1 AND expires_at > ?`,
		usedAt, tokenID, usedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenConsumed
	}
	return nil
}

// ConsumeToken binds the secondary account to the owner and marks the
// token used in one transaction. Both writes succeed or both roll
// back; a partially linked state is never committed. The liveness
// guard re-checks active and unexpired inside the transaction, so a
// token superseded or expired after validation cannot bind.
func (r *Repository) ConsumeToken(ctx context.Context, tokenID string, ownerID, secondaryAccountID int64, usedAt time.Time) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE auth_tokens SET used_at = ?
			 WHERE id = ? AND used_at IS NULL AND is_active = 1 AND expires_at > ?`,
			usedAt, tokenID, usedAt)
		if err != nil {
			return fmt.Errorf("marking token used: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrTokenConsumed
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE owners SET secondary_account_id = ? WHERE id = ?`,
			secondaryAccountID, ownerID); err != nil {
			return fmt.Errorf("binding secondary account: %w", err)
		}
		return nil
	})
}

// ListTokensByOwner returns all token rows for an owner, newest first.
// Used for auditing; rows are never deleted.
func (r *Repository) ListTokensByOwner(ctx context.Context, ownerID int64) ([]models.AuthToken, error) {
	var tokens []models.AuthToken
	err := r.db.SelectContext(ctx, &tokens,
		`SELECT * FROM auth_tokens WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// TokensIssuedSince returns the creation times of tokens issued to an
// owner after the cutoff, oldest first. Feeds the issuance rate limit.
func (r *Repository) TokensIssuedSince(ctx context.Context, ownerID int64, purpose models.TokenPurpose, since time.Time) ([]time.Time, error) {
	var stamps []time.Time
	err := r.db.SelectContext(ctx, &stamps,
		`SELECT created_at FROM auth_tokens
		 WHERE owner_id = ? AND purpose = ? AND created_at > ?
		 ORDER BY created_at ASC`, ownerID, purpose, since)
	if err != nil {
		return nil, err
	}
	return stamps, nil
}
