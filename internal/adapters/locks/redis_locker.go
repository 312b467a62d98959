package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/careslot/internal/domain/providers"
)

const (
	redisLockPrefix = "careslot:lock:"
	minRetryDelay   = 5 * time.Millisecond
	maxRetryDelay   = 50 * time.Millisecond
	releaseTimeout  = time.Second
)

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was re-acquired elsewhere is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements providers.SlotLocker with SET NX PX token locks.
// ttl bounds how long a crashed holder can block a key.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker creates a distributed slot locker
func NewRedisLocker(client redis.UniversalClient, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait}
}

var _ providers.SlotLocker = (*RedisLocker)(nil)

// Lock acquires every key or none of them
func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (providers.UnlockFunc, error) {
	keys = normalizeKeys(keys)
	token := uuid.New().String()
	deadline := time.Now().Add(l.wait)

	held := make([]string, 0, len(keys))
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := releaseScript.Run(releaseCtx, l.client, []string{redisLockPrefix + held[i]}, token).Err(); err != nil {
				log.Warn().Err(err).Str("key", held[i]).Msg("failed to release slot lock, it will expire")
			}
		}
	}

	for _, key := range keys {
		if err := l.acquire(ctx, key, token, deadline); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string, deadline time.Time) error {
	delay := minRetryDelay
	for {
		ok, err := l.client.SetNX(ctx, redisLockPrefix+key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return busy(key)
		}
		if delay > remaining {
			delay = remaining
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}
