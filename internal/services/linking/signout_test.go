// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package linking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botlink-app/botlink/internal/services/linking"
	"github.com/botlink-app/botlink/internal/testutil"
)

func TestOnSignOut(t *testing.T) {
	c, lm, repo := newCoordinator(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	// Build up token history: two superseded link tokens plus the one
	// actually consumed for the link.
	issueLinkToken(t, lm, owner.ID)
	issueLinkToken(t, lm, owner.ID)
	issued := issueLinkToken(t, lm, owner.ID)
	_, err := c.Link(ctx, issued.Value, 555)
	require.NoError(t, err)

	before, err := repo.ListTokensByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, before, 3)

	p := linking.NewSignOutPropagator(repo)
	require.NoError(t, p.OnSignOut(ctx, owner.ID))

	got, err := repo.GetOwnerByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SecondaryAccountID)

	// Unlinking only clears the binding; every token row survives
	// field for field.
	after, err := repo.ListTokensByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestOnSignOut_Idempotent(t *testing.T) {
	_, _, repo := newCoordinator(t)
	ctx := context.Background()
	owner := testutil.NewTestOwner(t, repo, "owner@example.com")

	p := linking.NewSignOutPropagator(repo)

	// Never linked, then repeated: both are no-op successes.
	require.NoError(t, p.OnSignOut(ctx, owner.ID))
	require.NoError(t, p.OnSignOut(ctx, owner.ID))
}

func TestOnSignOut_UnknownOwner(t *testing.T) {
	_, _, repo := newCoordinator(t)

	p := linking.NewSignOutPropagator(repo)

	// Clearing a binding that cannot exist is still a success.
	assert.NoError(t, p.OnSignOut(context.Background(), 999))
}
