// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/botlink-app/botlink/internal/models"
)

// CreateOwner creates a new owner account.
func (r *Repository) CreateOwner(ctx context.Context, email, preferredLocale string) (*models.Owner, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO owners (email, preferred_locale) VALUES (?, ?)`,
		email, preferredLocale)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetOwnerByID(ctx, id)
}

// GetOwnerByID retrieves an owner by ID.
func (r *Repository) GetOwnerByID(ctx context.Context, id int64) (*models.Owner, error) {
	var owner models.Owner
	if err := r.db.GetContext(ctx, &owner, `SELECT * FROM owners WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &owner, nil
}

// GetOwnerByEmail retrieves an owner by their email address.
func (r *Repository) GetOwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	var owner models.Owner
	if err := r.db.GetContext(ctx, &owner, `SELECT * FROM owners WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &owner, nil
}

// GetOwnerBySecondaryID retrieves the owner a secondary account is
// bound to, if any.
func (r *Repository) GetOwnerBySecondaryID(ctx context.Context, secondaryAccountID int64) (*models.Owner, error) {
	var owner models.Owner
	err := r.db.GetContext(ctx, &owner,
		`SELECT * FROM owners WHERE secondary_account_id = ?`, secondaryAccountID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &owner, nil
}

// ClearSecondaryAccount unlinks the owner's secondary account. Calling
// it for an already unlinked owner is a no-op success.
func (r *Repository) ClearSecondaryAccount(ctx context.Context, ownerID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE owners SET secondary_account_id = NULL WHERE id = ?`, ownerID)
	return err
}
