// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// MagicLinkAttempt is one row of the append-only request log. Success
// means the request passed the rate limit and a mail was accepted for
// dispatch; denied and unknown-address requests are recorded with
// Success=false and never count toward any limit.
type MagicLinkAttempt struct { //nolint:govet // fieldalignment: readability over optimization
	ID          int64     `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	AttemptedAt time.Time `db:"attempted_at" json:"attempted_at"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	Success     bool      `db:"success" json:"success"`
}
