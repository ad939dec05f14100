// Package redislock serialises callback attempts per entity across service
// instances with a Redis key per entity.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "fulfillment:lock:"

// release deletes the key only while it still carries our token, so a holder
// whose ttl ran out cannot free the lock of the next one.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements ports.EntityLocker with SET NX PX.
type Locker struct {
	rdb *redis.Client
}

// New wraps an open client. Close closes it.
func New(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// NewFromURL connects using a redis:// URL.
func NewFromURL(url string) (*Locker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(redis.NewClient(opt)), nil
}

// TryLock sets the key with a random token and ttl when it is free.
//
// Returns:
//   - unlock, true when the lock was taken
//   - nil, false, nil when another holder has it
//   - the Redis error when the server cannot be reached
//
// Example:
//
//	unlock, ok, err := locker.TryLock(ctx, "callback:"+subjectID, 2*time.Minute)
//	if err != nil || !ok {
//	    return err
//	}
//	defer unlock(context.WithoutCancel(ctx))
func (l *Locker) TryLock(
	ctx context.Context,
	key string,
	ttl time.Duration,
) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		if err := release.Run(ctx, l.rdb, []string{keyPrefix + key}, token).Err(); err != nil {
			return fmt.Errorf("unlock %s: %w", key, err)
		}
		return nil
	}
	return unlock, true, nil
}

// Ping checks the connection at startup.
func (l *Locker) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

func (l *Locker) Close() error {
	return l.rdb.Close()
}
