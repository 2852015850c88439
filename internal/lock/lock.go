// Package lock provides per-key single-writer locks.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

var ErrNotObtained = errors.New("lock not obtained")

// Release frees a held lock. It is safe to call once.
type Release func()

type Locker interface {
	Obtain(ctx context.Context, key string) (Release, error)
}

// Local serializes holders of the same key within one process.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

func (l *Local) Obtain(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()

	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}

	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, fmt.Errorf("%w: %s: %w", ErrNotObtained, key, ctx.Err())
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			<-e.ch
			l.unref(key, e)
		})
	}, nil
}

func (l *Local) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

const (
	redisTTL        = 30 * time.Second
	redisKeyPrefix  = "colmado:lock:"
	redisMinBackoff = 16 * time.Millisecond
	redisMaxBackoff = 512 * time.Millisecond
	redisMaxRetries = 20
)

// Redis holds locks across API replicas.
type Redis struct {
	client *redislock.Client
}

func NewRedis(client redislock.RedisClient) *Redis {
	return &Redis{client: redislock.New(client)}
}

func (r *Redis) Obtain(ctx context.Context, key string) (Release, error) {
	l, err := r.client.Obtain(ctx, redisKeyPrefix+key, redisTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.ExponentialBackoff(redisMinBackoff, redisMaxBackoff), redisMaxRetries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}

	if err != nil {
		return nil, fmt.Errorf("obtaining lock %s: %w", key, err)
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			err := l.Release(ctx)
			if errors.Is(err, redislock.ErrLockNotHeld) {
				slog.Warn("lock expired before release", "key", key, "ttl", redisTTL)
				return
			}

			if err != nil {
				slog.Warn("failed to release lock", "key", key, "error", err)
			}
		})
	}, nil
}
