// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package linking

import (
	"context"
	"log/slog"

	"github.com/botlink-app/botlink/internal/repository"
)

// SignOutPropagator clears the bot binding when the owner's web
// session ends.
type SignOutPropagator struct {
	repo *repository.Repository
}

// NewSignOutPropagator creates a SignOutPropagator.
func NewSignOutPropagator(repo *repository.Repository) *SignOutPropagator {
	return &SignOutPropagator{repo: repo}
}

// OnSignOut unlinks the owner's secondary account. Token rows are
// left untouched; a still-live token stays usable for re-linking.
// Calling it when already unlinked is a no-op success. The returned
// error is for logging only: sign-out must succeed regardless.
func (p *SignOutPropagator) OnSignOut(ctx context.Context, ownerID int64) error {
	if err := p.repo.ClearSecondaryAccount(ctx, ownerID); err != nil {
		slog.Error("sign-out unlink failed", "owner_id", ownerID, "error", err)
		return err
	}
	slog.Info("secondary account unlinked", "owner_id", ownerID)
	return nil
}
