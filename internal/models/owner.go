// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Owner is the primary web-profile account. SecondaryAccountID holds
// the bot account bound to it; it is unique across all owners and nil
// while unlinked. Owner rows are never deleted.
type Owner struct { //nolint:govet // fieldalignment: readability over optimization
	ID                 int64     `db:"id" json:"id"`
	Email              string    `db:"email" json:"email"`
	PreferredLocale    string    `db:"preferred_locale" json:"preferred_locale"`
	SecondaryAccountID *int64    `db:"secondary_account_id" json:"secondary_account_id"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Linked reports whether a bot account is currently bound.
func (o *Owner) Linked() bool {
	return o.SecondaryAccountID != nil
}
