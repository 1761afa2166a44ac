package memory

import (
	"context"
	"sync"
	"time"

	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository"
)

// Locker is an in-process repository.Locker. Held keys expire after their
// ttl like the Redis implementation.
type Locker struct {
	mu    sync.Mutex
	held  map[string]lease
	nowFn func() time.Time
	seq   uint64
}

type lease struct {
	token     uint64
	expiresAt time.Time
}

var _ repository.Locker = (*Locker)(nil)

func NewLocker() *Locker {
	return &Locker{held: make(map[string]lease), nowFn: time.Now}
}

func (l *Locker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if cur, ok := l.held[key]; ok && now.Before(cur.expiresAt) {
		return nil, repository.ErrAlreadyLocked
	}

	l.seq++
	token := l.seq
	l.held[key] = lease{token: token, expiresAt: now.Add(ttl)}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if cur, ok := l.held[key]; ok && cur.token == token {
				delete(l.held, key)
			}
		})
		return nil
	}, nil
}
