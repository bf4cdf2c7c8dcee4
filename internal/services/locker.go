package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker provides a single-writer scope for check-then-act sections.
// Family creation and invitation dedup run under a per-owner lock so two
// concurrent first invites cannot each create a family.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

const (
	lockTTL       = 10 * time.Second
	lockRetryWait = 50 * time.Millisecond
	lockWaitMax   = 5 * time.Second
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired-and-reacquired lock is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX leases in redis.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, prefix: "lock:"}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token, err := NewInviteToken()
	if err != nil {
		return nil, err
	}
	fullKey := l.prefix + key

	deadline := time.Now().Add(lockWaitMax)
	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("acquiring lock %s: timed out", key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = releaseScript.Run(ctx, l.client, []string{fullKey}, token).Result()
	}
	return release, nil
}

// MemoryLocker implements Locker with in-process mutexes for development
// and tests.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
