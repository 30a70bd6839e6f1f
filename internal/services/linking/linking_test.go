// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package linking_test

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
	"github.com/botlink-app/botlink/internal/services/linking"
	"github.com/botlink-app/botlink/internal/testutil"
)

func newCoordinator(t *testing.T) (*linking.Coordinator, *lifecycle.Manager, *repository.Repository) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	lm := lifecycle.New(repo, config.BotConfig{Handle: "examplebot", LinkBaseURL: "https://t.me"})
	return linking.New(lm, repo), lm, repo
}

func issueLinkToken(t *testing.T, lm *lifecycle.Manager, ownerID int64) *lifecycle.IssuedToken {
	t.Helper()
	issued, err := lm.Issue(context.Background(), ownerID, models.TokenPurposeLink)
	require.NoError(t, err)
	return issued
}

func TestLink(t *testing.T) {
	c, lm, repo := newCoordinator(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")
	issued := issueLinkToken(t, lm, owner.ID)

	outcome, err := c.Link(ctx, issued.Value, 555)

	require.NoError(t, err)
	assert.Equal(t, owner.ID, outcome.OwnerID)
	assert.False(t, outcome.AlreadyLinked)
	assert.Equal(t, "en", outcome.Locale)

	// Binding and token consumption committed together.
	got, err := repo.GetOwnerByID(ctx, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SecondaryAccountID)
	assert.Equal(t, int64(555), *got.SecondaryAccountID)

	tok, err := repo.GetTokenByValue(ctx, issued.Value)
	require.NoError(t, err)
	assert.NotNil(t, tok.UsedAt)
}

func TestLink_TokenIsSingleUse(t *testing.T) {
	c, lm, repo := newCoordinator(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")
	issued := issueLinkToken(t, lm, owner.ID)

	_, err := c.Link(ctx, issued.Value, 555)
	require.NoError(t, err)

	_, err = c.Link(ctx, issued.Value, 556)

	assert.ErrorIs(t, err, lifecycle.ErrTokenUsed)
}

func TestLink_AlreadyLinkedIsIdempotent(t *testing.T) {
	c, lm, repo := newCoordinator(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	first := issueLinkToken(t, lm, owner.ID)
	_, err := c.Link(ctx, first.Value, 555)
	require.NoError(t, err)

	// A fresh token for the same binding succeeds without mutating
	// anything; the token is not consumed.
	second := issueLinkToken(t, lm, owner.ID)
	outcome, err := c.Link(ctx, second.Value, 555)

	require.NoError(t, err)
	assert.True(t, outcome.AlreadyLinked)

	tok, err := repo.GetTokenByValue(ctx, second.Value)
	require.NoError(t, err)
	assert.Nil(t, tok.UsedAt)
}

func TestLink_Collision(t *testing.T) {
	c, lm, repo := newCoordinator(t)
	ctx := context.Background()
	ownerA := testutil.NewTestOwner(t, repo, "a@example.com")
	ownerB := testutil.NewTestOwner(t, repo, "b@example.com")

	tokenB := issueLinkToken(t, lm, ownerB.ID)
	_, err := c.Link(ctx, tokenB.Value, 555)
	require.NoError(t, err)

	tokenA := issueLinkToken(t, lm, ownerA.ID)
	_, err = c.Link(ctx, tokenA.Value, 555)

	assert.ErrorIs(t, err, linking.ErrCollision)

	// B's binding is unchanged, A stays unlinked, A's token unconsumed.
	gotB, err := repo.GetOwnerByID(ctx, ownerB.ID)
	require.NoError(t, err)
	require.NotNil(t, gotB.SecondaryAccountID)
	assert.Equal(t, int64(555), *gotB.SecondaryAccountID)

	gotA, err := repo.GetOwnerByID(ctx, ownerA.ID)
	require.NoError(t, err)
	assert.Nil(t, gotA.SecondaryAccountID)

	tok, err := repo.GetTokenByValue(ctx, tokenA.Value)
	require.NoError(t, err)
	assert.Nil(t, tok.UsedAt)
}

func TestLink_ExpiredTokenMutatesNothing(t *testing.T) {
	c, _, repo := newCoordinator(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	expired := &models.AuthToken{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Purpose:   models.TokenPurposeLink,
		Value:     "qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq",
		CreatedAt: time.Now().Add(-20 * time.Minute),
		ExpiresAt: time.Now().Add(-time.Second),
		IsActive:  true,
	}
	require.NoError(t, repo.IssueToken(ctx, expired))

	_, err := c.Link(ctx, expired.Value, 555)

	assert.ErrorIs(t, err, lifecycle.ErrTokenExpired)

	got, err := repo.GetOwnerByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SecondaryAccountID)

	tok, err := repo.GetTokenByValue(ctx, expired.Value)
	require.NoError(t, err)
	assert.Nil(t, tok.UsedAt)
}

func TestLink_SignInTokenNotAccepted(t *testing.T) {
	c, lm, repo := newCoordinator(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	signin, err := lm.Issue(ctx, owner.ID, models.TokenPurposeSignIn)
	require.NoError(t, err)

	_, err = c.Link(ctx, signin.Value, 555)

	assert.ErrorIs(t, err, lifecycle.ErrTokenNotFound)
}

func TestLink_ValidationErrorsPropagate(t *testing.T) {
	c, _, _ := newCoordinator(t)

	_, err := c.Link(context.Background(), "nope", 555)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidFormat)

	_, err = c.Link(context.Background(), "rrrrrrrrrrrrrrrrrrrrrrrrrrrrrrrr", 555)
	assert.ErrorIs(t, err, lifecycle.ErrTokenNotFound)
}
