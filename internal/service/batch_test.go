package service

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"preflight/internal/custody"
	"preflight/internal/gate"
	"preflight/internal/model"
	"preflight/internal/repository"
	"preflight/internal/repository/memory"
	repoMocks "preflight/internal/repository/mocks"
)

type countingSnapshots struct {
	repository.SnapshotReader
	n atomic.Int32
}

func (c *countingSnapshots) Snapshot(ctx context.Context, documentID string) (*repository.Snapshot, error) {
	c.n.Add(1)
	return c.SnapshotReader.Snapshot(ctx, documentID)
}

func TestBatchService_Health(t *testing.T) {
	ctx := context.Background()
	store := memory.New().Repositories()
	counted := store
	counter := &countingSnapshots{SnapshotReader: store.Snapshots}
	counted.Snapshots = counter

	authz := custody.NewAuthorizer(custody.DefaultPolicy())
	evaluator := gate.NewEvaluator(authz.LegalFor, "")
	batches := NewBatchService(counted, evaluator, nil, 2)
	svc := NewPreflightService(store, authz, evaluator, nil, Options{
		Invalidator: batches,
		AuditLog:    &bytes.Buffer{},
		Now:         tickingClock(),
	})

	for _, in := range []IngestInput{
		{DocumentID: "D1", Findings: []FindingInput{{Section: "opportunity_spine", Code: "OPP_CONTRACT_TYPE"}}},
		{DocumentID: "D2"},
		{DocumentID: "D3", Findings: []FindingInput{{Section: "obligation_spine", Code: "OCR_LOW_CONFIDENCE"}}},
	} {
		_, err := svc.Ingest(ctx, in)
		require.NoError(t, err)
	}

	b, err := batches.Create(ctx, "B1", "May worksheet")
	require.NoError(t, err)
	_, err = batches.Create(ctx, "B1", "again")
	assert.ErrorIs(t, err, ErrBatchExists)

	require.NoError(t, batches.AddDocuments(ctx, "B1", []string{"D1", "D2", "D3"}))
	assert.ErrorIs(t, batches.AddDocuments(ctx, "B1", []string{"D9"}), ErrDocumentNotFound)
	assert.ErrorIs(t, batches.AddDocuments(ctx, "B9", []string{"D1"}), ErrBatchNotFound)
	assert.ErrorIs(t, batches.AddDocuments(ctx, "B1", []string{" "}), ErrDocumentRequired)

	h, err := batches.Health(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, 3, h.TotalDocuments)
	assert.Equal(t, map[model.GateColor]int{model.GateRed: 2, model.GateYellow: 0, model.GateGreen: 1}, h.CountsByGateColor)
	assert.Zero(t, h.ActionEventsTotal)
	assert.False(t, h.LastUpdated.IsZero())
	assert.Equal(t, int32(3), counter.n.Load())

	t.Run("unchanged members come from cache", func(t *testing.T) {
		again, err := batches.Health(ctx, "B1")
		require.NoError(t, err)
		assert.Equal(t, h, again)
		assert.Equal(t, int32(3), counter.n.Load())
	})

	t.Run("dispatcher invalidates the acted-on member", func(t *testing.T) {
		res, err := svc.Submit(ctx, SubmitInput{DocumentID: "D1", Role: "admin", Action: "override_red", IdempotencyKey: "k1"})
		require.NoError(t, err)

		got, err := batches.Health(ctx, "B1")
		require.NoError(t, err)
		assert.Equal(t, 1, got.CountsByGateColor[model.GateRed])
		assert.Equal(t, 1, got.CountsByGateColor[model.GateYellow])
		assert.Equal(t, 1, got.ActionEventsTotal)
		assert.Equal(t, res.LatestEvent.CreatedAt, got.LastUpdated)
		assert.Equal(t, int32(4), counter.n.Load())
	})

	t.Run("writes behind the cache are caught by watermarks", func(t *testing.T) {
		_, _, err := store.Events.Append(ctx, &model.ActionEvent{
			DocumentID: "D3", ActionType: model.ActionEscalateOCR, ActorRole: model.RoleAnalyst,
			IdempotencyKey: "direct", CreatedAt: t0.Add(time.Hour),
		}, repository.AnyLength)
		require.NoError(t, err)

		got, err := batches.Health(ctx, "B1")
		require.NoError(t, err)
		assert.Equal(t, 0, got.CountsByGateColor[model.GateRed])
		assert.Equal(t, 2, got.CountsByGateColor[model.GateYellow])
		assert.Equal(t, 2, got.ActionEventsTotal)
		assert.Equal(t, t0.Add(time.Hour), got.LastUpdated)
		assert.Equal(t, int32(5), counter.n.Load())
	})

	t.Run("empty batch", func(t *testing.T) {
		empty, err := batches.Create(ctx, "", "empty")
		require.NoError(t, err)
		assert.NotEmpty(t, empty.ID)

		got, err := batches.Health(ctx, empty.ID)
		require.NoError(t, err)
		assert.Zero(t, got.TotalDocuments)
		assert.Equal(t, empty.CreatedAt, got.LastUpdated)
	})

	_, err = batches.Health(ctx, "missing")
	assert.ErrorIs(t, err, ErrBatchNotFound)
	assert.NotEqual(t, b.CreatedAt, time.Time{})
}

func TestBatchService_HealthPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	mBatches := new(repoMocks.MockBatchRepository)
	mSnaps := new(repoMocks.MockSnapshotReader)
	store := repository.Store{Batches: mBatches, Snapshots: mSnaps}
	svc := NewBatchService(store, gate.NewEvaluator(nil, ""), nil, 0)

	mBatches.On("FindByID", mock.Anything, "B1").Return(&model.Batch{ID: "B1"}, nil)
	mBatches.On("Watermarks", mock.Anything, "B1").Return(map[string]model.Watermark{"D1": {EventCount: 1}}, nil)
	mSnaps.On("Snapshot", mock.Anything, "D1").Return(nil, errors.New("connection refused"))

	h, err := svc.Health(ctx, "B1")

	assert.Nil(t, h)
	assert.True(t, IsKind(err, KindPersistence))
	mBatches.AssertExpectations(t)
	mSnaps.AssertExpectations(t)
}
