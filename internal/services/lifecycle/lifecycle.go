// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package lifecycle owns token issuance and validation. All token
// state transitions go through the Manager; no other component writes
// token rows.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/botlink-app/botlink/internal/config"
	"github.com/botlink-app/botlink/internal/models"
	"github.com/botlink-app/botlink/internal/ratelimit"
	"github.com/botlink-app/botlink/internal/repository"
	"github.com/botlink-app/botlink/internal/token"
)

// Validation outcomes. These are expected business results, returned
// as values so callers must handle each one explicitly.
var (
	ErrInvalidFormat    = errors.New("token value has invalid format")
	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenUsed        = errors.New("token already used")
	ErrTokenInvalidated = errors.New("token invalidated")
)

// Manager issues and validates tokens.
type Manager struct {
	repo *repository.Repository
	bot  config.BotConfig
	now  func() time.Time
}

// IssuedToken is handed back to the client after a successful issue.
type IssuedToken struct {
	Token     *models.AuthToken
	Value     string
	ExpiresAt time.Time
	DeepLink  string
}

// New creates a Manager. The bot config supplies the deep link prefix
// for link-purpose tokens.
func New(repo *repository.Repository, bot config.BotConfig) *Manager {
	return &Manager{repo: repo, bot: bot, now: time.Now}
}

// Issue generates a fresh token for the owner and persists it as the
// single live token for that owner and purpose. The prior live token,
// if any, is invalidated in the same transaction.
func (m *Manager) Issue(ctx context.Context, ownerID int64, purpose models.TokenPurpose) (*IssuedToken, error) {
	now := m.now()
	value, expiresAt, err := token.Generate(now)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	tok := &models.AuthToken{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Purpose:   purpose,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
	if err := m.repo.IssueToken(ctx, tok); err != nil {
		return nil, fmt.Errorf("persisting token: %w", err)
	}

	slog.Info("token issued",
		"owner_id", ownerID,
		"token_id", tok.ID,
		"purpose", purpose,
		"expires_at", expiresAt,
	)

	issued := &IssuedToken{Token: tok, Value: value, ExpiresAt: expiresAt}
	if purpose == models.TokenPurposeLink {
		issued.DeepLink = token.DeepLink(m.bot.LinkBaseURL, m.bot.Handle, value)
	}
	return issued, nil
}

// IssueAllowance checks the issuance rate limit for an owner without
// issuing anything. The check reuses the send policy over the owner's
// recent token history; Issue itself is never gated, so internal
// flows (and supersession) stay unconditional.
func (m *Manager) IssueAllowance(ctx context.Context, ownerID int64, purpose models.TokenPurpose) (ratelimit.Decision, error) {
	now := m.now()
	stamps, err := m.repo.TokensIssuedSince(ctx, ownerID, purpose, now.Add(-ratelimit.HourlyWindow))
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("loading issuance history: %w", err)
	}
	return ratelimit.CanSend(ratelimit.FromTimestamps(stamps), now), nil
}

// Validate resolves a presented value to its token row, or to exactly
// one of the validation outcomes. Precedence is fixed: format, then
// existence, then expired before used before invalidated. An
// expired-and-used token surfaces as expired so a used token leaks
// nothing extra once it has aged out.
func (m *Manager) Validate(ctx context.Context, value string) (*models.AuthToken, error) {
	if !token.ValidFormat(value) {
		return nil, ErrInvalidFormat
	}

	tok, err := m.repo.GetTokenByValue(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("looking up token: %w", err)
	}

	outcome := tok.Status(m.now())
	m.audit(tok, outcome)

	switch outcome {
	case models.TokenStatusExpired:
		return nil, ErrTokenExpired
	case models.TokenStatusUsed:
		return nil, ErrTokenUsed
	case models.TokenStatusInvalidated:
		return nil, ErrTokenInvalidated
	default:
		return tok, nil
	}
}

// audit records the validation outcome. Only the token ID is logged,
// never the value.
func (m *Manager) audit(tok *models.AuthToken, outcome models.TokenStatus) {
	slog.Info("token validated",
		"owner_id", tok.OwnerID,
		"token_id", tok.ID,
		"outcome", string(outcome),
	)
}
