package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// FlagRepository is the process-external shared control flag store: the only
// mutable state the lock-screen widget process and the main process share.
// It is a mailbox, not a queue: a write replaces any unconsumed value for
// the same key, and Consume removes atomically so a flag is never processed
// twice across launches.
type FlagRepository struct {
	redis *redis.Client
}

func NewFlagRepository(redisClient *redis.Client) *FlagRepository {
	return &FlagRepository{
		redis: redisClient,
	}
}

func (fr *FlagRepository) key(userID, flag string) string {
	return fmt.Sprintf("aegis:flags:%s:%s", userID, flag)
}

// Set writes a flag value, replacing any unconsumed value. Writes are never
// silently lost; at-least-once delivery of intent is the contract.
func (fr *FlagRepository) Set(ctx context.Context, userID, flag, value string) error {
	err := fr.redis.Set(ctx, fr.key(userID, flag), value, 0).Err()
	if err != nil {
		logrus.WithError(err).WithField("flag", flag).Error("Failed to write control flag")
		return err
	}
	return nil
}

// SetTimestamp writes the current time as the flag value.
func (fr *FlagRepository) SetTimestamp(ctx context.Context, userID, flag string, t time.Time) error {
	return fr.Set(ctx, userID, flag, t.UTC().Format(time.RFC3339Nano))
}

// Consume atomically reads and clears a flag. The second return value is
// false when no unconsumed value exists.
func (fr *FlagRepository) Consume(ctx context.Context, userID, flag string) (string, bool, error) {
	value, err := fr.redis.GetDel(ctx, fr.key(userID, flag)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Peek reads a flag without consuming it. Used for display-only values such
// as the monitoring-active mirror.
func (fr *FlagRepository) Peek(ctx context.Context, userID, flag string) (string, bool, error) {
	value, err := fr.redis.Get(ctx, fr.key(userID, flag)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Clear removes a flag unconditionally.
func (fr *FlagRepository) Clear(ctx context.Context, userID, flag string) error {
	return fr.redis.Del(ctx, fr.key(userID, flag)).Err()
}
