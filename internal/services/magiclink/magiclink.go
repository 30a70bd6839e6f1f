// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package magiclink drives the rate-limited magic-link sign-in flow:
// policy check, attempt record, token issue, mail dispatch.
package magiclink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/botlink-app/botlink/internal/models"
	"github.com/botlink-app/botlink/internal/ratelimit"
	"github.com/botlink-app/botlink/internal/repository"
	"github.com/botlink-app/botlink/internal/services/lifecycle"
)

// Mailer is the outgoing-mail collaborator. Delivery happens after the
// attempt and token are committed, so a send failure never rolls back
// state.
type Mailer interface {
	SendMagicLink(ctx context.Context, to models.Email, tokenValue, locale string) error
}

// RateLimitError reports a denied request and when to retry.
type RateLimitError struct {
	Reason     ratelimit.Reason
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%s), retry after %ds", e.Reason, e.RetryAfter)
}

// Service orchestrates magic-link requests and verification.
type Service struct {
	repo      *repository.Repository
	store     ratelimit.AttemptStore
	lifecycle *lifecycle.Manager
	mailer    Mailer
	now       func() time.Time
}

// Result is returned for accepted requests. CooldownSeconds tells the
// client the minimum wait before the next request.
type Result struct {
	CooldownSeconds int
}

// New creates a Service.
func New(repo *repository.Repository, store ratelimit.AttemptStore, lm *lifecycle.Manager, mailer Mailer) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		lifecycle: lm,
		mailer:    mailer,
		now:       time.Now,
	}
}

// Request handles one magic-link request for rawEmail. The rate-limit
// decision and the attempt row land atomically through the store's
// ReserveSend, and both are committed before any mail is sent. Unknown
// addresses get the same accepted response as known ones, with no mail
// and a failed attempt row, so the endpoint does not confirm account
// existence.
func (s *Service) Request(ctx context.Context, rawEmail, ipAddress string) (*Result, error) {
	email, err := models.NewEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	now := s.now()

	owner, err := s.repo.GetOwnerByEmail(ctx, email.String())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.record(ctx, email, ipAddress, now, false)
			slog.Info("magic link requested for unknown address", "email", email.Masked())
			return s.result(), nil
		}
		return nil, fmt.Errorf("looking up owner: %w", err)
	}

	attempt := &models.MagicLinkAttempt{
		Email:       email.String(),
		AttemptedAt: now,
		IPAddress:   ipAddress,
	}
	decision, err := s.store.ReserveSend(ctx, attempt)
	if err != nil {
		return nil, fmt.Errorf("reserving send: %w", err)
	}
	if !decision.Allowed {
		slog.Info("magic link denied",
			"email", email.Masked(),
			"reason", string(decision.Reason),
			"retry_after_s", decision.RetryAfterSeconds(),
		)
		return nil, &RateLimitError{
			Reason:     decision.Reason,
			RetryAfter: decision.RetryAfterSeconds(),
		}
	}

	issued, err := s.lifecycle.Issue(ctx, owner.ID, models.TokenPurposeSignIn)
	if err != nil {
		// The reserved slot stays in the window; a retry after a
		// storage failure still honors the cooldown.
		return nil, err
	}

	// Token and attempt are committed; delivery is best effort from
	// here and a failure must not undo them.
	if err := s.mailer.SendMagicLink(ctx, email, issued.Value, owner.PreferredLocale); err != nil {
		slog.Error("magic link delivery failed",
			"email", email.Masked(),
			"token_id", issued.Token.ID,
			"error", err,
		)
	}

	return s.result(), nil
}

// Verify consumes a sign-in token and returns its owner. Link-purpose
// tokens are not accepted here.
func (s *Service) Verify(ctx context.Context, tokenValue string) (*models.Owner, error) {
	tok, err := s.lifecycle.Validate(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if tok.Purpose != models.TokenPurposeSignIn {
		return nil, lifecycle.ErrTokenNotFound
	}

	if err := s.repo.MarkTokenUsed(ctx, tok.ID, s.now()); err != nil {
		if errors.Is(err, repository.ErrTokenConsumed) {
			return nil, lifecycle.ErrTokenUsed
		}
		return nil, fmt.Errorf("consuming sign-in token: %w", err)
	}

	owner, err := s.repo.GetOwnerByID(ctx, tok.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("loading owner: %w", err)
	}
	slog.Info("magic link sign-in", "owner_id", owner.ID, "token_id", tok.ID)
	return owner, nil
}

func (s *Service) result() *Result {
	return &Result{CooldownSeconds: int(ratelimit.CooldownWindow / time.Second)}
}

// record appends the attempt row. The log is an audit trail, so a
// write failure is logged and swallowed rather than failing the
// request that already got its decision.
func (s *Service) record(ctx context.Context, email models.Email, ip string, at time.Time, success bool) {
	attempt := &models.MagicLinkAttempt{
		Email:       email.String(),
		AttemptedAt: at,
		IPAddress:   ip,
		Success:     success,
	}
	if err := s.store.RecordAttempt(ctx, attempt); err != nil {
		slog.Error("recording magic link attempt failed", "email", email.Masked(), "error", err)
	}
}
