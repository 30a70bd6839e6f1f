// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// TokenPurpose distinguishes the two token flows: signing in via a
// magic link and linking a bot account.
type TokenPurpose string

const (
	TokenPurposeSignIn TokenPurpose = "signin"
	TokenPurposeLink   TokenPurpose = "link"
)

// TokenStatus is derived from the token row, never stored.
type TokenStatus string

const (
	TokenStatusActive      TokenStatus = "active"
	TokenStatusExpired     TokenStatus = "expired"
	TokenStatusUsed        TokenStatus = "used"
	TokenStatusInvalidated TokenStatus = "invalidated"
)

// AuthToken is a short-lived, single-use token issued to an owner.
// Rows are never deleted; superseded and consumed tokens remain as an
// audit trail.
type AuthToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        string       `db:"id" json:"id"`
	OwnerID   int64        `db:"owner_id" json:"owner_id"`
	Purpose   TokenPurpose `db:"purpose" json:"purpose"`
	Value     string       `db:"value" json:"-"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	ExpiresAt time.Time    `db:"expires_at" json:"expires_at"`
	UsedAt    *time.Time   `db:"used_at" json:"used_at"`
	IsActive  bool         `db:"is_active" json:"is_active"`
}

// Status derives the lifecycle state at the given instant. Expiry is
// checked before "used" and "invalidated" so an expired-and-used token
// still surfaces as expired.
func (t *AuthToken) Status(now time.Time) TokenStatus {
	switch {
	case !t.ExpiresAt.After(now):
		return TokenStatusExpired
	case t.UsedAt != nil:
		return TokenStatusUsed
	case !t.IsActive:
		return TokenStatusInvalidated
	default:
		return TokenStatusActive
	}
}

// Live reports whether this is the owner's single live token: active,
// unused and not yet expired.
func (t *AuthToken) Live(now time.Time) bool {
	return t.Status(now) == TokenStatusActive
}
