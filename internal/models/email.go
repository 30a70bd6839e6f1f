// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"errors"
	"net/mail"
	"strings"
)

// ErrInvalidEmail is returned for addresses that fail parsing.
var ErrInvalidEmail = errors.New("invalid email address")

// Email is a validated, trimmed, lower-cased address.
type Email string

// NewEmail normalizes and validates a raw address.
func NewEmail(raw string) (Email, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", ErrInvalidEmail
	}
	return Email(trimmed), nil
}

func (e Email) String() string {
	return string(e)
}

// Masked returns a redacted form safe for logs, keeping only the first
// character of the local part and the domain.
func (e Email) Masked() string {
	s := string(e)
	at := strings.LastIndex(s, "@")
	if at <= 0 {
		return "***"
	}
	return s[:1] + "***" + s[at:]
}
