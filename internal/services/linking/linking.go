// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package linking binds bot accounts to owners and clears the binding
// on sign-out.
package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/botlink-app/botlink/internal/models"
	"github.com/botlink-app/botlink/internal/repository"
	"github.com/botlink-app/botlink/internal/services/lifecycle"
)

// ErrCollision is returned when the secondary account is already
// bound to a different owner. The existing binding is never touched.
var ErrCollision = errors.New("secondary account already linked to another owner")

// Coordinator validates a presented token and performs the
// cross-account bind.
type Coordinator struct {
	lifecycle *lifecycle.Manager
	repo      *repository.Repository
	now       func() time.Time
}

// Outcome describes a successful link. AlreadyLinked means the exact
// binding existed before the call and nothing was mutated. Locale is
// the owner's preferred locale, propagated best-effort for the bot's
// message localization; it may be empty.
type Outcome struct {
	OwnerID       int64
	AlreadyLinked bool
	Locale        string
}

// New creates a Coordinator.
func New(lm *lifecycle.Manager, repo *repository.Repository) *Coordinator {
	return &Coordinator{lifecycle: lm, repo: repo, now: time.Now}
}

// Link validates tokenValue and binds secondaryAccountID to the
// token's owner. Validation errors propagate as-is. The bind and the
// used_at stamp commit in one transaction. A token issued for signing
// in is not accepted here and resolves to not-found.
func (c *Coordinator) Link(ctx context.Context, tokenValue string, secondaryAccountID int64) (*Outcome, error) {
	tok, err := c.lifecycle.Validate(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if tok.Purpose != models.TokenPurposeLink {
		return nil, lifecycle.ErrTokenNotFound
	}

	existing, err := c.repo.GetOwnerBySecondaryID(ctx, secondaryAccountID)
	switch {
	case err == nil && existing.ID == tok.OwnerID:
		slog.Info("link requested for existing binding",
			"owner_id", tok.OwnerID, "token_id", tok.ID)
		return c.outcome(ctx, tok.OwnerID, true), nil
	case err == nil:
		slog.Warn("link collision",
			"owner_id", tok.OwnerID, "bound_owner_id", existing.ID, "token_id", tok.ID)
		return nil, ErrCollision
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("looking up secondary account: %w", err)
	}

	if err := c.repo.ConsumeToken(ctx, tok.ID, tok.OwnerID, secondaryAccountID, c.now()); err != nil {
		if errors.Is(err, repository.ErrTokenConsumed) {
			// Lost a race with a concurrent link for the same token.
			return nil, lifecycle.ErrTokenUsed
		}
		return nil, fmt.Errorf("consuming token: %w", err)
	}

	slog.Info("accounts linked", "owner_id", tok.OwnerID, "token_id", tok.ID)
	return c.outcome(ctx, tok.OwnerID, false), nil
}

// outcome assembles the result, attaching the owner's locale when it
// can be read. A locale lookup failure must not fail the link.
func (c *Coordinator) outcome(ctx context.Context, ownerID int64, alreadyLinked bool) *Outcome {
	out := &Outcome{OwnerID: ownerID, AlreadyLinked: alreadyLinked}
	owner, err := c.repo.GetOwnerByID(ctx, ownerID)
	if err != nil {
		slog.Warn("locale lookup failed after link", "owner_id", ownerID, "error", err)
		return out
	}
	out.Locale = owner.PreferredLocale
	return out
}
