// Package lock provides named exclusive locks for critical sections that
// must serialize across handlers, such as result publication per
// (call, career) pair. A redis-backed implementation covers multi-replica
// deployments; the local one serves single-process and test setups.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	dErrors "admissio/pkg/domain-errors"
)

// Locker acquires an exclusive named lock. The returned release function
// must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Local serializes within one process using per-key mutexes.
type Local struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*sync.Mutex)}
}

func (l *Local) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	mu, ok := l.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[key] = mu
	}
	l.mu.Unlock()
	mu.Lock()
	return mu.Unlock, nil
}

// Redis implements Locker with SET NX and a fenced delete, so a lock that
// outlived its TTL cannot be released by the stale holder.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

const acquirePollInterval = 50 * time.Millisecond

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lock backend unavailable")
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "lock acquisition timed out")
		case <-time.After(acquirePollInterval):
		}
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err()
	}
	return release, nil
}
