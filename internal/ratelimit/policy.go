// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ratelimit decides whether a magic-link request may proceed,
// given the bounded attempt history for one identity.
package ratelimit

import (
	"time"

	"github.com/botlink-app/botlink/internal/models"
)

const (
	// CooldownWindow is the minimum spacing between successful sends.
	CooldownWindow = 60 * time.Second
	// HourlyWindow bounds the trailing window for the hourly rule.
	HourlyWindow = time.Hour
	// HourlyLimit is the maximum successful sends per HourlyWindow.
	HourlyLimit = 10
)

// Reason identifies which rule denied a request.
type Reason string

const (
	ReasonCooldown Reason = "rate_limit_cooldown"
	ReasonHourly   Reason = "rate_limit_exceeded"
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed    bool
	Reason     Reason
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the wait up to whole seconds, minimum 1.
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed {
		return 0
	}
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// CanSend applies the cooldown and hourly rules to the attempt
// history. It is a pure function: callers load the history and
// persist the attempt record regardless of the decision. Failed
// attempts never count toward either rule. When both rules would
// deny, the cooldown result wins.
func CanSend(attempts []models.MagicLinkAttempt, now time.Time) Decision {
	var last *models.MagicLinkAttempt
	var recent []time.Time
	cutoff := now.Add(-HourlyWindow)

	for i := range attempts {
		a := &attempts[i]
		if !a.Success {
			continue
		}
		if last == nil || a.AttemptedAt.After(last.AttemptedAt) {
			last = a
		}
		if a.AttemptedAt.After(cutoff) {
			recent = append(recent, a.AttemptedAt)
		}
	}

	if last != nil {
		if elapsed := now.Sub(last.AttemptedAt); elapsed < CooldownWindow {
			return Decision{
				Reason:     ReasonCooldown,
				RetryAfter: CooldownWindow - elapsed,
			}
		}
	}

	if len(recent) >= HourlyLimit {
		oldest := recent[0]
		for _, ts := range recent[1:] {
			if ts.Before(oldest) {
				oldest = ts
			}
		}
		return Decision{
			Reason:     ReasonHourly,
			RetryAfter: oldest.Add(HourlyWindow).Sub(now),
		}
	}

	return Decision{Allowed: true}
}

// FromTimestamps adapts a list of successful-send times to the attempt
// shape CanSend expects. Used where the history is kept as bare
// timestamps (the redis store, the token issuance log).
func FromTimestamps(stamps []time.Time) []models.MagicLinkAttempt {
	attempts := make([]models.MagicLinkAttempt, len(stamps))
	for i, ts := range stamps {
		attempts[i] = models.MagicLinkAttempt{AttemptedAt: ts, Success: true}
	}
	return attempts
}
