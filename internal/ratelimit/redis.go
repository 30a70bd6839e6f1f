// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/botlink-app/botlink/internal/models"
)

// RedisStore keeps the successful-send window in a redis sorted set so
// that every service instance sees the same counts. The append-only
// audit rows still go to the wrapped store; redis only answers the
// policy's history reads.
type RedisStore struct {
	client redis.UniversalClient
	audit  AttemptRecorder
}

// NewRedisStore creates a RedisStore that audits through next.
func NewRedisStore(client redis.UniversalClient, next AttemptRecorder) *RedisStore {
	return &RedisStore{client: client, audit: next}
}

func attemptsKey(email models.Email) string {
	return "botlink:attempts:" + email.String()
}

// RecordAttempt appends the audit row and, for successful sends, adds
// the timestamp to the shared window.
func (s *RedisStore) RecordAttempt(ctx context.Context, attempt *models.MagicLinkAttempt) error {
	if err := s.audit.RecordAttempt(ctx, attempt); err != nil {
		return err
	}
	if !attempt.Success {
		return nil
	}

	key := attemptsKey(models.Email(attempt.Email))
	member := fmt.Sprintf("%d:%s", attempt.AttemptedAt.UnixNano(), uuid.NewString())

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(attempt.AttemptedAt.UnixNano()),
		Member: member,
	})
	pipe.Expire(ctx, key, HourlyWindow+CooldownWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording attempt in redis: %w", err)
	}
	return nil
}

// ReserveSend reserves a slot in the shared window before checking the
// policy: the member is added first, the decision is taken against the
// members that precede it, and a denied reservation is removed again.
// Concurrent reservations order themselves by (score, member), so they
// agree on a single winner and the cap is never exceeded.
func (s *RedisStore) ReserveSend(ctx context.Context, attempt *models.MagicLinkAttempt) (Decision, error) {
	key := attemptsKey(models.Email(attempt.Email))
	own := fmt.Sprintf("%d:%s", attempt.AttemptedAt.UnixNano(), uuid.NewString())

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(attempt.AttemptedAt.UnixNano()),
		Member: own,
	})
	pipe.Expire(ctx, key, HourlyWindow+CooldownWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("reserving attempt in redis: %w", err)
	}

	members, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: strconv.FormatInt(attempt.AttemptedAt.Add(-HourlyWindow).UnixNano(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("reading attempt window: %w", err)
	}

	var history []models.MagicLinkAttempt
	for _, member := range members {
		if !precedes(member, own) {
			continue
		}
		nanos, ok := memberNanos(member)
		if !ok {
			continue
		}
		history = append(history, models.MagicLinkAttempt{
			Email:       attempt.Email,
			AttemptedAt: time.Unix(0, nanos),
			Success:     true,
		})
	}

	decision := CanSend(history, attempt.AttemptedAt)
	if !decision.Allowed {
		if err := s.client.ZRem(ctx, key, own).Err(); err != nil {
			return Decision{}, fmt.Errorf("releasing denied attempt: %w", err)
		}
	}

	attempt.Success = decision.Allowed
	if err := s.audit.RecordAttempt(ctx, attempt); err != nil {
		return Decision{}, err
	}
	return decision, nil
}

// memberNanos extracts the timestamp prefix of a window member.
func memberNanos(member string) (int64, bool) {
	prefix, _, found := strings.Cut(member, ":")
	if !found {
		return 0, false
	}
	n, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// precedes reports whether member a is ordered before b, by timestamp
// then by the member string. The ordering is total, so every in-flight
// reservation ranks the others the same way.
func precedes(a, b string) bool {
	an, aok := memberNanos(a)
	bn, bok := memberNanos(b)
	if aok && bok && an != bn {
		return an < bn
	}
	return a < b
}

// AttemptsSince reads the shared window. Entries older than the
// hourly window are trimmed on the way.
func (s *RedisStore) AttemptsSince(ctx context.Context, email models.Email, since time.Time) ([]models.MagicLinkAttempt, error) {
	key := attemptsKey(email)

	trimBelow := strconv.FormatInt(time.Now().Add(-HourlyWindow-CooldownWindow).UnixNano(), 10)
	if err := s.client.ZRemRangeByScore(ctx, key, "-inf", "("+trimBelow).Err(); err != nil {
		return nil, fmt.Errorf("trimming attempt window: %w", err)
	}

	members, err := s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(since.UnixNano(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("reading attempt window: %w", err)
	}

	attempts := make([]models.MagicLinkAttempt, 0, len(members))
	for _, member := range members {
		nanos, ok := memberNanos(member)
		if !ok {
			continue
		}
		attempts = append(attempts, models.MagicLinkAttempt{
			Email:       email.String(),
			AttemptedAt: time.Unix(0, nanos),
			Success:     true,
		})
	}
	return attempts, nil
}
