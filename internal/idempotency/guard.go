// Package idempotency serialises action admissions per idempotency key so a
// retried or concurrent submission never produces a second ledger event.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"preflight/internal/model"
)

// Key scopes an idempotency token to a document and action type.
type Key struct {
	DocumentID     string
	Action         model.ActionType
	IdempotencyKey string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.DocumentID, k.Action, k.IdempotencyKey)
}

// Admission is the outcome of Admit.
type Admission struct {
	Event     *model.ActionEvent
	Duplicate bool
}

// LookupFunc returns the event already recorded under key, or nil.
type LookupFunc func(ctx context.Context, key Key) (*model.ActionEvent, error)

// CreateFunc runs the first-seen path for key. It may still report a
// duplicate, e.g. when the storage layer's unique constraint fires.
type CreateFunc func(ctx context.Context) (Admission, error)

var ErrEmptyKey = errors.New("idempotency key is required")

type keyLock struct {
	sem  chan struct{}
	refs int
}

// Guard hands out one lock per Key. Locks are reference counted and dropped
// once no caller holds or waits on them.
type Guard struct {
	mu    sync.Mutex
	locks map[Key]*keyLock
}

func NewGuard() *Guard {
	return &Guard{locks: make(map[Key]*keyLock)}
}

// Lock blocks until key is held by the caller or ctx is done.
func (g *Guard) Lock(ctx context.Context, key Key) (release func(), err error) {
	g.mu.Lock()
	l, ok := g.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		g.locks[key] = l
	}
	l.refs++
	g.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		g.unref(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			g.unref(key, l)
		})
	}, nil
}

func (g *Guard) unref(key Key, l *keyLock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(g.locks, key)
	}
}

// Admit runs lookup and, when nothing is recorded yet, create while holding
// the lock for key. Callers with the same key observe the same event.
func (g *Guard) Admit(ctx context.Context, key Key, lookup LookupFunc, create CreateFunc) (Admission, error) {
	if key.IdempotencyKey == "" {
		return Admission{}, ErrEmptyKey
	}
	release, err := g.Lock(ctx, key)
	if err != nil {
		return Admission{}, err
	}
	defer release()

	existing, err := lookup(ctx, key)
	if err != nil {
		return Admission{}, err
	}
	if existing != nil {
		return Admission{Event: existing, Duplicate: true}, nil
	}
	return create(ctx)
}

// held reports the number of keys with a live lock; used by tests.
func (g *Guard) held() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}
