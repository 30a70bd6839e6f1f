// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botlink-app/botlink/internal/config"
	"github.com/botlink-app/botlink/internal/models"
	"github.com/botlink-app/botlink/internal/repository"
	"github.com/botlink-app/botlink/internal/services/lifecycle"
	"github.com/botlink-app/botlink/internal/testutil"
	"github.com/botlink-app/botlink/internal/token"
)

func testBotConfig() config.BotConfig {
	return config.BotConfig{
		Handle:      "examplebot",
		LinkBaseURL: "https://t.me",
	}
}

func newManager(t *testing.T) (*lifecycle.Manager, *repository.Repository) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	return lifecycle.New(repo, testBotConfig()), repo
}

func TestIssue(t *testing.T) {
	m, repo := newManager(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	issued, err := m.Issue(ctx, owner.ID, models.TokenPurposeLink)

	require.NoError(t, err)
	assert.True(t, token.ValidFormat(issued.Value))
	assert.Equal(t, "https://t.me/examplebot?start="+issued.Value, issued.DeepLink)
	assert.WithinDuration(t, time.Now().Add(token.TTL), issued.ExpiresAt, 2*time.Second)
}

func TestIssue_SignInTokenHasNoDeepLink(t *testing.T) {
	m, repo := newManager(t)
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	issued, err := m.Issue(context.Background(), owner.ID, models.TokenPurposeSignIn)

	require.NoError(t, err)
	assert.Empty(t, issued.DeepLink)
}

func TestIssue_SupersedesPriorToken(t *testing.T) {
	m, repo := newManager(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	first, err := m.Issue(ctx, owner.ID, models.TokenPurposeLink)
	require.NoError(t, err)
	second, err := m.Issue(ctx, owner.ID, models.TokenPurposeLink)
	require.NoError(t, err)

	_, err = m.Validate(ctx, first.Value)
	assert.ErrorIs(t, err, lifecycle.ErrTokenInvalidated)

	tok, err := m.Validate(ctx, second.Value)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, tok.OwnerID)
}

func TestValidate_InvalidFormat(t *testing.T) {
	m, _ := newManager(t)

	for _, value := range []string{"", "short", "has spaces has spaces has spaces", "with-dash-with-dash-with-dash-wi"} {
		_, err := m.Validate(context.Background(), value)
		assert.ErrorIs(t, err, lifecycle.ErrInvalidFormat, "value=%q", value)
	}
}

func TestValidate_NotFound(t *testing.T) {
	m, _ := newManager(t)

	_, err := m.Validate(context.Background(), "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	assert.ErrorIs(t, err, lifecycle.ErrTokenNotFound)
}

func TestValidate_Expired(t *testing.T) {
	m, repo := newManager(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	expired := &models.AuthToken{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Purpose:   models.TokenPurposeLink,
		Value:     "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		CreatedAt: time.Now().Add(-20 * time.Minute),
		ExpiresAt: time.Now().Add(-time.Second),
		IsActive:  true,
	}
	require.NoError(t, repo.IssueToken(ctx, expired))

	_, err := m.Validate(ctx, expired.Value)

	assert.ErrorIs(t, err, lifecycle.ErrTokenExpired)
}

func TestValidate_Used(t *testing.T) {
	m, repo := newManager(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	issued, err := m.Issue(ctx, owner.ID, models.TokenPurposeSignIn)
	require.NoError(t, err)
	require.NoError(t, repo.MarkTokenUsed(ctx, issued.Token.ID, time.Now()))

	// The outcome is stable no matter how often it is checked.
	for i := 0; i < 3; i++ {
		_, err = m.Validate(ctx, issued.Value)
		assert.ErrorIs(t, err, lifecycle.ErrTokenUsed)
	}
}

func TestValidate_ExpiredWinsOverUsed(t *testing.T) {
	m, repo := newManager(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	// Used while still live, then aged out.
	usedAt := time.Now().Add(-20 * time.Minute)
	tok := &models.AuthToken{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Purpose:   models.TokenPurposeLink,
		Value:     "cccccccccccccccccccccccccccccccc",
		CreatedAt: time.Now().Add(-30 * time.Minute),
		ExpiresAt: time.Now().Add(-15 * time.Minute),
		IsActive:  true,
	}
	require.NoError(t, repo.IssueToken(ctx, tok))
	require.NoError(t, repo.MarkTokenUsed(ctx, tok.ID, usedAt))

	_, err := m.Validate(ctx, tok.Value)

	assert.ErrorIs(t, err, lifecycle.ErrTokenExpired)
}

func TestIssueAllowance(t *testing.T) {
	m, repo := newManager(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	decision, err := m.IssueAllowance(ctx, owner.ID, models.TokenPurposeLink)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	_, err = m.Issue(ctx, owner.ID, models.TokenPurposeLink)
	require.NoError(t, err)

	// A fresh issue puts the owner into the cooldown window.
	decision, err = m.IssueAllowance(ctx, owner.ID, models.TokenPurposeLink)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Positive(t, decision.RetryAfterSeconds())
}

func TestIssueAllowance_DoesNotGateIssue(t *testing.T) {
	m, repo := newManager(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	// Supersession stays unconditional even while the allowance is
	// exhausted.
	_, err := m.Issue(ctx, owner.ID, models.TokenPurposeLink)
	require.NoError(t, err)
	_, err = m.Issue(ctx, owner.ID, models.TokenPurposeLink)
	require.NoError(t, err)
}
