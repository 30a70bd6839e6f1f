// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token generates opaque token values and the deep links that
// carry them to the bot client.
package token

import (
	"crypto/rand"
	"fmt"
	"net/url"
	"regexp"
	"time"
)

const (
	// Length is the number of characters in a token value.
	Length = 32
	// TTL is how long a token stays valid after issuance.
	TTL = 15 * time.Minute

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var valueRe = regexp.MustCompile(`^[A-Za-z0-9]{32}$`)

// Generate produces a cryptographically random token value and its
// expiry. Uniqueness is enforced by the storage-level unique
// constraint, not here. An entropy-source failure is fatal for the
// caller and not retriable.
func Generate(now time.Time) (string, time.Time, error) {
	buf := make([]byte, Length)
	value := make([]byte, Length)
	for filled := 0; filled < Length; {
		if _, err := rand.Read(buf); err != nil {
			return "", time.Time{}, fmt.Errorf("reading entropy source: %w", err)
		}
		for _, b := range buf {
			// Rejection sampling keeps the draw uniform over the
			// 62-character alphabet.
			if b >= 248 {
				continue
			}
			value[filled] = alphabet[int(b)%len(alphabet)]
			filled++
			if filled == Length {
				break
			}
		}
	}
	return string(value), now.Add(TTL), nil
}

// ValidFormat reports whether a presented value matches the token
// format. Checked before any storage lookup.
func ValidFormat(value string) bool {
	return valueRe.MatchString(value)
}

// DeepLink builds the bot deep link for a token value, e.g.
// https://t.me/examplebot?start=<token>. The token appears verbatim.
func DeepLink(baseURL, botHandle, value string) string {
	return fmt.Sprintf("%s/%s?start=%s", baseURL, botHandle, url.QueryEscape(value))
}
