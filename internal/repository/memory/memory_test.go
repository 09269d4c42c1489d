package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/model"
	"preflight/internal/repository"
)

func newFixedStore(t *testing.T, at time.Time) (*Store, repository.Store) {
	t.Helper()
	s := New()
	s.now = func() time.Time { return at }
	return s, s.Repositories()
}

func TestEvents_AppendIsIdempotentPerTriple(t *testing.T) {
	_, repos := newFixedStore(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	ev := &model.ActionEvent{DocumentID: "D1", ActionType: model.ActionOverrideRed, ActorRole: model.RoleAdmin, IdempotencyKey: "k1"}

	first, inserted, err := repos.Events.Append(ctx, ev, repository.AnyLength)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(1), first.ActionID)
	assert.JSONEq(t, `{}`, string(first.Payload))

	again := *ev
	again.Payload = json.RawMessage(`{"reason":"second"}`)
	second, inserted, err := repos.Events.Append(ctx, &again, repository.AnyLength)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ActionID, second.ActionID)
	assert.JSONEq(t, `{}`, string(second.Payload))

	// Same key on a different action is a different triple.
	other := *ev
	other.ActionType = model.ActionAcceptRisk
	third, inserted, err := repos.Events.Append(ctx, &other, repository.AnyLength)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(2), third.ActionID)

	n, err := repos.Events.Count(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEvents_AppendExpectedLength(t *testing.T) {
	_, repos := newFixedStore(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, inserted, err := repos.Events.Append(ctx, &model.ActionEvent{DocumentID: "D1", ActionType: model.ActionEscalateOCR, IdempotencyKey: "a"}, 0)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Evaluated against the empty ledger, which no longer exists.
	got, inserted, err := repos.Events.Append(ctx, &model.ActionEvent{DocumentID: "D1", ActionType: model.ActionEscalateOCR, IdempotencyKey: "b"}, 0)
	assert.ErrorIs(t, err, repository.ErrStaleLedger)
	assert.False(t, inserted)
	assert.Nil(t, got)

	// A replay of a stored key wins over a stale length.
	replay, inserted, err := repos.Events.Append(ctx, &model.ActionEvent{DocumentID: "D1", ActionType: model.ActionEscalateOCR, IdempotencyKey: "a"}, 0)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ActionID, replay.ActionID)

	_, inserted, err = repos.Events.Append(ctx, &model.ActionEvent{DocumentID: "D1", ActionType: model.ActionReconstructionComplete, IdempotencyKey: "c"}, 1)
	require.NoError(t, err)
	assert.True(t, inserted)

	n, err := repos.Events.Count(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEvents_CreatedAtIsMonotonePerDocument(t *testing.T) {
	_, repos := newFixedStore(t, time.Now())
	ctx := context.Background()
	late := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	early := late.Add(-time.Hour)

	_, _, err := repos.Events.Append(ctx, &model.ActionEvent{DocumentID: "D1", ActionType: model.ActionEscalateOCR, IdempotencyKey: "a", CreatedAt: late}, repository.AnyLength)
	require.NoError(t, err)
	ev, _, err := repos.Events.Append(ctx, &model.ActionEvent{DocumentID: "D1", ActionType: model.ActionReconstructionComplete, IdempotencyKey: "b", CreatedAt: early}, repository.AnyLength)
	require.NoError(t, err)

	assert.Equal(t, late, ev.CreatedAt)

	hist, err := repos.Events.History(ctx, "D1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, model.ActionEscalateOCR, hist[0].ActionType)
	assert.Equal(t, model.ActionReconstructionComplete, hist[1].ActionType)

	latest, err := repos.Events.Latest(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, ev.ActionID, latest.ActionID)

	none, err := repos.Events.Latest(ctx, "D2")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestEvents_ConcurrentAppendSameKey(t *testing.T) {
	_, repos := newFixedStore(t, time.Now())
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserts := 0
	ids := map[int64]bool{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ev, ok, err := repos.Events.Append(ctx, &model.ActionEvent{DocumentID: "D1", ActionType: model.ActionAcceptRisk, IdempotencyKey: "same"}, repository.AnyLength)
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				inserts++
			}
			ids[ev.ActionID] = true
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserts)
	assert.Len(t, ids, 1)
}

func TestDocuments_UpsertKeepsCreatedAt(t *testing.T) {
	s, repos := newFixedStore(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := repos.Documents.Upsert(ctx, &model.Document{ID: "sha256:1", Title: "v1"})
	require.NoError(t, err)

	s.now = func() time.Time { return time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC) }
	second, err := repos.Documents.Upsert(ctx, &model.Document{ID: "sha256:1", Title: "v1 rescanned"})
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.LastIngestedAt.After(first.LastIngestedAt))
	assert.Equal(t, "v1 rescanned", second.Title)

	_, err = repos.Documents.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDocuments_List(t *testing.T) {
	s, repos := newFixedStore(t, time.Now())
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		_, err := repos.Documents.Upsert(ctx, &model.Document{ID: fmt.Sprintf("D%d", i)})
		require.NoError(t, err)
	}

	page, err := repos.Documents.List(ctx, repository.PageQuery{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "D2", page.Items[0].ID)

	tail, err := repos.Documents.List(ctx, repository.PageQuery{Limit: 2, Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, tail.Items)
}

func TestFindings_UpsertAndStatus(t *testing.T) {
	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, repos := newFixedStore(t, at)
	ctx := context.Background()

	require.NoError(t, repos.Findings.UpsertMany(ctx, "D1", []model.Finding{
		{Section: "opportunity_spine", Code: "OPP_CONTRACT_TYPE"},
	}))
	list, err := repos.Findings.ListByDocument(ctx, "D1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.FindingOpen, list[0].Status)

	updated, err := repos.Findings.UpdateStatus(ctx, list[0].ID, model.FindingResolved, at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.FindingResolved, updated.Status)

	// Re-ingesting the same finding does not reopen it.
	require.NoError(t, repos.Findings.UpsertMany(ctx, "D1", []model.Finding{
		{Section: "opportunity_spine", Code: "OPP_CONTRACT_TYPE"},
	}))
	list, err = repos.Findings.ListByDocument(ctx, "D1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.FindingResolved, list[0].Status)

	_, err = repos.Findings.UpdateStatus(ctx, "missing", model.FindingOpen, at)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSnapshot(t *testing.T) {
	_, repos := newFixedStore(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := repos.Snapshots.Snapshot(ctx, "D1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repos.Documents.Upsert(ctx, &model.Document{ID: "D1"})
	require.NoError(t, err)
	require.NoError(t, repos.Findings.UpsertMany(ctx, "D1", []model.Finding{{Section: "s", Code: "C"}}))
	_, _, err = repos.Events.Append(ctx, &model.ActionEvent{DocumentID: "D1", ActionType: model.ActionAcceptRisk, IdempotencyKey: "k", Payload: json.RawMessage(`{"a":1}`)}, repository.AnyLength)
	require.NoError(t, err)

	snap, err := repos.Snapshots.Snapshot(ctx, "D1")
	require.NoError(t, err)
	assert.Len(t, snap.Findings, 1)
	require.Len(t, snap.History, 1)

	// Mutating the returned payload does not leak into the store.
	snap.History[0].Payload[0] = '['
	again, err := repos.Snapshots.Snapshot(ctx, "D1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(again.History[0].Payload))
}

func TestBatches(t *testing.T) {
	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, repos := newFixedStore(t, at)
	ctx := context.Background()

	_, err := repos.Batches.Create(ctx, &model.Batch{ID: "B1", Name: "w", CreatedAt: at})
	require.NoError(t, err)
	_, err = repos.Batches.Create(ctx, &model.Batch{ID: "B1"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	require.NoError(t, repos.Batches.AddDocuments(ctx, "B1", []string{"D1", "D2", "D1"}))
	require.NoError(t, repos.Batches.AddDocuments(ctx, "B1", []string{"D2"}))

	_, _, err = repos.Events.Append(ctx, &model.ActionEvent{DocumentID: "D1", ActionType: model.ActionAcceptRisk, IdempotencyKey: "k"}, repository.AnyLength)
	require.NoError(t, err)

	require.NoError(t, repos.Findings.UpsertMany(ctx, "D2", []model.Finding{{Section: "s", Code: "C", FlaggedAt: at}}))
	require.NoError(t, repos.Findings.UpsertMany(ctx, "D9", []model.Finding{{Section: "s", Code: "C", FlaggedAt: at}}))
	outside, err := repos.Findings.ListByDocument(ctx, "D9")
	require.NoError(t, err)
	require.Len(t, outside, 1)
	_, err = repos.Findings.UpdateStatus(ctx, outside[0].ID, model.FindingResolved, at.Add(time.Hour))
	require.NoError(t, err)

	marks, err := repos.Batches.Watermarks(ctx, "B1")
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, 1, marks["D1"].EventCount)
	assert.Equal(t, at, marks["D1"].LastEventAt)
	assert.Zero(t, marks["D1"].FindingsUpdate)
	assert.Zero(t, marks["D2"].EventCount)
	// Updates to documents outside the batch do not move its watermarks.
	assert.Equal(t, at, marks["D2"].FindingsUpdate)
}

func TestRequests(t *testing.T) {
	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, repos := newFixedStore(t, at)
	ctx := context.Background()

	raw := json.RawMessage(`{"source":"viewer",  "gate_color":"RED"}`)
	_, err := repos.Requests.Create(ctx, &model.ReviewRequest{ID: "r1", DocumentID: "D1", Question: "q", PreflightContext: raw, CreatedAt: at})
	require.NoError(t, err)
	_, err = repos.Requests.Create(ctx, &model.ReviewRequest{ID: "r2", DocumentID: "D1", Question: "q2", CreatedAt: at})
	require.NoError(t, err)
	_, err = repos.Requests.Create(ctx, &model.ReviewRequest{ID: "r1"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	got, err := repos.Requests.FindByIDs(ctx, []string{"r2", "x", "r1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[0].ID)
	assert.Equal(t, string(raw), string(got[1].PreflightContext))
}
