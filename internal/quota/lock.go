package quota

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"resume-roast/internal/shared/telemetry"
)

const (
	DefaultLockWait = 5 * time.Second
	defaultLockTTL  = 30 * time.Second
	lockPollEvery   = 100 * time.Millisecond
)

// ErrLockTimeout is returned when another submission holds the user's lock
// for longer than the wait budget.
var ErrLockTimeout = errors.New("submission in progress")

// Locker provides mutual exclusion per key.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryLocker is an in-process Locker.
type MemoryLocker struct {
	Wait time.Duration

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	if wait <= 0 {
		wait = DefaultLockWait
	}
	return &MemoryLocker{Wait: wait, slots: make(map[string]*slot)}
}

func (m *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	if m.slots == nil {
		m.slots = make(map[string]*slot)
	}
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	m.mu.Unlock()

	timer := time.NewTimer(m.Wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				m.drop(key, s)
			})
		}, nil
	case <-ctx.Done():
		m.drop(key, s)
		return nil, ctx.Err()
	case <-timer.C:
		m.drop(key, s)
		return nil, ErrLockTimeout
	}
}

func (m *MemoryLocker) drop(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const lockExtendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// RedisLocker holds locks as SETNX keys with a random token so only the
// holder can release them. While held, the lease is extended every TTL/3
// so a slow analysis never outlives its key.
type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	extend *redis.Script
	Wait   time.Duration
	TTL    time.Duration
}

func NewRedisLocker(client *redis.Client, wait time.Duration) *RedisLocker {
	if client == nil {
		return nil
	}
	if wait <= 0 {
		wait = DefaultLockWait
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		extend: redis.NewScript(lockExtendScript),
		Wait:   wait,
		TTL:    defaultLockTTL,
	}
}

// TryLock makes a single attempt at the lock.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.TTL).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	deadline := time.Now().Add(l.Wait)
	for {
		token, ok, err := l.TryLock(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			stop := make(chan struct{})
			done := make(chan struct{})
			go l.keepAlive(key, token, stop, done)
			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					<-done
					l.release(key, token)
				})
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollEvery):
		}
	}
}

// keepAlive extends the lease until stop is closed or the key is no longer
// ours.
func (l *RedisLocker) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	every := l.TTL / 3
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			n, err := l.extend.Run(ctx, l.client, []string{key}, token, l.TTL.Milliseconds()).Int64()
			cancel()
			if err != nil {
				telemetry.Warn("quota.lock_extend_failed", map[string]any{"key": key, "error": err.Error()})
				continue
			}
			if n == 0 {
				telemetry.Warn("quota.lock_lost", map[string]any{"key": key})
				return
			}
		}
	}
}

func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.script.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		telemetry.Warn("quota.lock_release_failed", map[string]any{"key": key, "error": err.Error()})
	}
}
