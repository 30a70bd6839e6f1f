// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/botlink-app/botlink/internal/models"
)

func TestAuthTokenStatus(t *testing.T) {
	now := time.Now()
	used := now.Add(-time.Minute)

	tests := []struct {
		name     string
		tok      models.AuthToken
		expected models.TokenStatus
	}{
		{
			"live token",
			models.AuthToken{ExpiresAt: now.Add(time.Minute), IsActive: true},
			models.TokenStatusActive,
		},
		{
			"expired",
			models.AuthToken{ExpiresAt: now.Add(-time.Second), IsActive: true},
			models.TokenStatusExpired,
		},
		{
			"used",
			models.AuthToken{ExpiresAt: now.Add(time.Minute), IsActive: true, UsedAt: &used},
			models.TokenStatusUsed,
		},
		{
			"invalidated",
			models.AuthToken{ExpiresAt: now.Add(time.Minute), IsActive: false},
			models.TokenStatusInvalidated,
		},
		{
			// Expiry wins over used so an old consumed token leaks nothing.
			"expired and used",
			models.AuthToken{ExpiresAt: now.Add(-time.Second), IsActive: true, UsedAt: &used},
			models.TokenStatusExpired,
		},
		{
			"expired and invalidated",
			models.AuthToken{ExpiresAt: now.Add(-time.Second), IsActive: false},
			models.TokenStatusExpired,
		},
		{
			"used wins over invalidated",
			models.AuthToken{ExpiresAt: now.Add(time.Minute), IsActive: false, UsedAt: &used},
			models.TokenStatusUsed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.tok.Status(now))
		})
	}
}

func TestAuthTokenLive(t *testing.T) {
	now := time.Now()

	live := models.AuthToken{ExpiresAt: now.Add(time.Minute), IsActive: true}
	assert.True(t, live.Live(now))

	stale := models.AuthToken{ExpiresAt: now.Add(-time.Minute), IsActive: true}
	assert.False(t, stale.Live(now))
}
