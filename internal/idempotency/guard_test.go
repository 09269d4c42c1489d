package idempotency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/model"
)

// fakeLedger records one event per key without any locking of its own, so
// the guard is the only thing preventing double appends.
type fakeLedger struct {
	mu      sync.Mutex
	events  map[Key]*model.ActionEvent
	appends int32
	nextID  int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{events: make(map[Key]*model.ActionEvent)}
}

func (f *fakeLedger) lookup(ctx context.Context, key Key) (*model.ActionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[key], nil
}

func (f *fakeLedger) create(key Key) CreateFunc {
	return func(ctx context.Context) (Admission, error) {
		// widen the race window
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&f.appends, 1)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		ev := &model.ActionEvent{ActionID: f.nextID, DocumentID: key.DocumentID, ActionType: key.Action, IdempotencyKey: key.IdempotencyKey}
		f.events[key] = ev
		return Admission{Event: ev}, nil
	}
}

func TestGuard_AdmitSequentialRetry(t *testing.T) {
	g := NewGuard()
	ledger := newFakeLedger()
	key := Key{DocumentID: "D1", Action: model.ActionOverrideRed, IdempotencyKey: "k1"}
	ctx := context.Background()

	first, err := g.Admit(ctx, key, ledger.lookup, ledger.create(key))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := g.Admit(ctx, key, ledger.lookup, ledger.create(key))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Event.ActionID, second.Event.ActionID)
	assert.EqualValues(t, 1, ledger.appends)
	assert.Equal(t, 0, g.held())
}

func TestGuard_AdmitConcurrent(t *testing.T) {
	g := NewGuard()
	ledger := newFakeLedger()
	key := Key{DocumentID: "D1", Action: model.ActionEscalateOCR, IdempotencyKey: "retry-storm"}

	const callers = 32
	var wg sync.WaitGroup
	ids := make([]int64, callers)
	dups := int32(0)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			adm, err := g.Admit(context.Background(), key, ledger.lookup, ledger.create(key))
			if !assert.NoError(t, err) {
				return
			}
			ids[i] = adm.Event.ActionID
			if adm.Duplicate {
				atomic.AddInt32(&dups, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, ledger.appends)
	assert.EqualValues(t, callers-1, dups)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 0, g.held())
}

func TestGuard_DistinctKeysDoNotBlock(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	releaseA, err := g.Lock(ctx, Key{DocumentID: "D1", Action: model.ActionAcceptRisk, IdempotencyKey: "a"})
	require.NoError(t, err)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		release, err := g.Lock(ctx, Key{DocumentID: "D1", Action: model.ActionAcceptRisk, IdempotencyKey: "b"})
		if err == nil {
			release()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestGuard_LockHonoursContext(t *testing.T) {
	g := NewGuard()
	key := Key{DocumentID: "D1", Action: model.ActionAcceptRisk, IdempotencyKey: "k"}

	release, err := g.Lock(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Lock(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call is a no-op
	assert.Equal(t, 0, g.held())
}

func TestGuard_AdmitErrors(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	t.Run("empty key", func(t *testing.T) {
		_, err := g.Admit(ctx, Key{DocumentID: "D1", Action: model.ActionAcceptRisk}, nil, nil)
		assert.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("lookup failure", func(t *testing.T) {
		key := Key{DocumentID: "D1", Action: model.ActionAcceptRisk, IdempotencyKey: "k"}
		boom := errors.New("db down")
		_, err := g.Admit(ctx, key,
			func(context.Context, Key) (*model.ActionEvent, error) { return nil, boom },
			func(context.Context) (Admission, error) { t.Error("create must not run"); return Admission{}, nil },
		)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, g.held())
	})
}
