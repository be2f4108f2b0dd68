package locks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockLua deletes a lock key only if its value matches the caller's unique
// token, so one holder cannot release another holder's lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisManager implements Manager with Redis SETNX plus a Lua-based
// conditional unlock. Use it when several service instances may run
// settlement against the same database.
type RedisManager struct {
	rdb      *redis.Client
	unlockSc *redis.Script
}

func NewRedisManager(addr string) *RedisManager {
	return &RedisManager{
		rdb:      redis.NewClient(&redis.Options{Addr: addr}),
		unlockSc: redis.NewScript(unlockLua),
	}
}

func lockKey(key string) string {
	return "lock:" + key
}

func (m *RedisManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := lockKey(key)

	ok, err := m.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		// Background context so unlock succeeds even if the caller's
		// context is already cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := m.unlockSc.Run(unlockCtx, m.rdb, []string{lk}, token).Err(); err != nil && err != redis.Nil {
			log.Printf("Warning: failed to release lock %s: %v", key, err)
		}
	}
	return release, nil
}
