package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"preflight/internal/gate"
	"preflight/internal/metrics"
	"preflight/internal/model"
	"preflight/internal/repository"
)

// BatchService maintains batches and derives their health from member ledgers.
type BatchService interface {
	Create(ctx context.Context, id, name string) (*model.Batch, error)
	// AddDocuments adds existing documents to a batch; repeats are ignored.
	AddDocuments(ctx context.Context, batchID string, documentIDs []string) error
	// Health recomputes only members whose watermark moved since the last call.
	Health(ctx context.Context, batchID string) (*model.BatchHealth, error)
	Invalidate(documentID string)
}

type colorEntry struct {
	mark  model.Watermark
	color model.GateColor
}

func sameMark(a, b model.Watermark) bool {
	return a.EventCount == b.EventCount &&
		a.LastEventAt.Equal(b.LastEventAt) &&
		a.FindingsUpdate.Equal(b.FindingsUpdate)
}

// markOf derives the watermark a snapshot was evaluated at.
func markOf(snap *repository.Snapshot) model.Watermark {
	var w model.Watermark
	w.EventCount = len(snap.History)
	for _, ev := range snap.History {
		if ev.CreatedAt.After(w.LastEventAt) {
			w.LastEventAt = ev.CreatedAt
		}
	}
	for _, f := range snap.Findings {
		if f.UpdatedAt.After(w.FindingsUpdate) {
			w.FindingsUpdate = f.UpdatedAt
		}
	}
	return w
}

type batchService struct {
	store       repository.Store
	evaluator   *gate.Evaluator
	metrics     *metrics.Metrics
	concurrency int
	now         func() time.Time

	mu     sync.Mutex
	colors map[string]colorEntry
}

// NewBatchService builds the aggregator. concurrency bounds parallel
// recomputation of stale members.
func NewBatchService(store repository.Store, evaluator *gate.Evaluator, m *metrics.Metrics, concurrency int) BatchService {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &batchService{
		store:       store,
		evaluator:   evaluator,
		metrics:     m,
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
		colors:      make(map[string]colorEntry),
	}
}

func (s *batchService) Invalidate(documentID string) {
	s.mu.Lock()
	delete(s.colors, documentID)
	s.mu.Unlock()
}

func (s *batchService) cached(documentID string, mark model.Watermark) (model.GateColor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.colors[documentID]
	if !ok || !sameMark(e.mark, mark) {
		return "", false
	}
	return e.color, true
}

func (s *batchService) remember(documentID string, mark model.Watermark, color model.GateColor) {
	s.mu.Lock()
	s.colors[documentID] = colorEntry{mark: mark, color: color}
	s.mu.Unlock()
}

func (s *batchService) Create(ctx context.Context, id, name string) (_ *model.Batch, err error) {
	ctx, span := tracer.Start(ctx, "BatchService.Create")
	defer func() { endSpan(span, err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	b, err := s.store.Batches.Create(ctx, &model.Batch{ID: id, Name: strings.TrimSpace(name), CreatedAt: s.now()})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrBatchExists
		}
		return nil, persistence("create batch", err)
	}
	return b, nil
}

func (s *batchService) AddDocuments(ctx context.Context, batchID string, documentIDs []string) (err error) {
	ctx, span := tracer.Start(ctx, "BatchService.AddDocuments")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(batchID) == "" {
		return ErrBatchIDRequired
	}
	if _, err := s.store.Batches.FindByID(ctx, batchID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBatchNotFound
		}
		return persistence("read batch", err)
	}

	ids := make([]string, 0, len(documentIDs))
	for _, id := range documentIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return ErrDocumentRequired
		}
		if _, err := s.store.Documents.FindByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return withCause(ErrDocumentNotFound, fmt.Errorf("document %s", id))
			}
			return persistence("read document", err)
		}
		ids = append(ids, id)
	}
	if err := s.store.Batches.AddDocuments(ctx, batchID, ids); err != nil {
		return persistence("add batch documents", err)
	}
	return nil
}

func (s *batchService) Health(ctx context.Context, batchID string) (_ *model.BatchHealth, err error) {
	ctx, span := tracer.Start(ctx, "BatchService.Health")
	defer func() { endSpan(span, err) }()

	batch, err := s.store.Batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, persistence("read batch", err)
	}
	marks, err := s.store.Batches.Watermarks(ctx, batchID)
	if err != nil {
		return nil, persistence("read batch watermarks", err)
	}

	type member struct {
		mark  model.Watermark
		color model.GateColor
	}
	members := make(map[string]*member, len(marks))
	var stale []string
	for id, mark := range marks {
		m := &member{mark: mark}
		members[id] = m
		if color, ok := s.cached(id, mark); ok {
			m.color = color
			continue
		}
		stale = append(stale, id)
	}
	span.SetAttributes(attribute.Int("preflight.batch_members", len(marks)), attribute.Int("preflight.batch_stale", len(stale)))

	// Each goroutine owns exactly one member entry.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range stale {
		m := members[id]
		g.Go(func() error {
			snap, err := s.store.Snapshots.Snapshot(gctx, id)
			if err != nil {
				return fmt.Errorf("snapshot %s: %w", id, err)
			}
			eval := s.evaluator.Evaluate(id, snap.Findings, snap.History)
			s.metrics.ObserveGate(eval.GateColor)
			m.mark = markOf(snap)
			m.color = eval.GateColor
			s.remember(id, m.mark, m.color)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, persistence("evaluate batch members", err)
	}

	health := &model.BatchHealth{
		BatchID:           batchID,
		CountsByGateColor: make(map[model.GateColor]int, len(model.GateColors)),
		TotalDocuments:    len(members),
	}
	for _, c := range model.GateColors {
		health.CountsByGateColor[c] = 0
	}
	for _, m := range members {
		health.CountsByGateColor[m.color]++
		health.ActionEventsTotal += m.mark.EventCount
		if t := m.mark.Latest(); t.After(health.LastUpdated) {
			health.LastUpdated = t
		}
	}
	if health.LastUpdated.IsZero() {
		health.LastUpdated = batch.CreatedAt
	}
	return health, nil
}
