package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/security"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// lockPollInterval is how often a waiting RedisLocker retries SET NX.
const lockPollInterval = 50 * time.Millisecond

// ErrLockTimeout is returned when a lock could not be taken before the context ended.
var ErrLockTimeout = errors.New("cache: lock wait timed out")

// releaseScript deletes the lock only while it still holds our token.
// KEYS[1] = lock key
// ARGV[1] = owner token
const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker serializes work on a key across requests.
type Locker interface {
	// Acquire blocks until the key is held or ctx ends. ttl bounds how long a crashed holder keeps it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// RedisLocker is a Locker shared by every process pointing at the same Redis.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker returns a Redis-backed locker.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, prefix: "unboxme:lock:"}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l == nil || l.client == nil {
		return nil, errors.New("cache: nil redis locker")
	}
	token, errToken := security.GenerateRandomString(32)
	if errToken != nil {
		return nil, errToken
	}
	lockKey := l.prefix + key

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		ok, errSet := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if errSet != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("cache: acquire %s: %w", key, errSet)
		}
		if ok {
			return func() { l.release(lockKey, token) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) release(lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if errEval := l.client.Eval(ctx, releaseScript, []string{lockKey}, token).Err(); errEval != nil {
		log.WithError(errEval).Warnf("cache: release lock %s failed", lockKey)
	}
}

// LocalLocker is an in-process Locker for single-instance deployments and tests.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	sem  chan struct{}
	refs int
}

// NewLocalLocker returns an empty in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

// Acquire implements Locker. ttl is ignored because holders cannot outlive the process.
func (l *LocalLocker) Acquire(ctx context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localLock{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, entry)
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.drop(key, entry)
		})
	}, nil
}

func (l *LocalLocker) drop(key string, entry *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}
