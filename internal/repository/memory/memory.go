// Package memory implements the repository interfaces in process memory. It
// backs local runs and tests; every read returns copies so callers never
// share state with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"preflight/internal/model"
	"preflight/internal/repository"
)

type eventKey struct {
	documentID string
	action     model.ActionType
	key        string
}

type findingKey struct {
	documentID string
	section    string
	code       string
}

// Store holds all tables behind one RWMutex, which makes Snapshot trivially
// consistent with Append.
type Store struct {
	mu sync.RWMutex

	documents map[string]model.Document
	findings  map[string]model.Finding
	findingBy map[findingKey]string
	byDoc     map[string][]string
	events    map[string][]model.ActionEvent
	eventBy   map[eventKey]model.ActionEvent
	nextID    int64
	batches   map[string]model.Batch
	members   map[string][]string
	requests  map[string]model.ReviewRequest

	now func() time.Time
}

func New() *Store {
	return &Store{
		documents: make(map[string]model.Document),
		findings:  make(map[string]model.Finding),
		findingBy: make(map[findingKey]string),
		byDoc:     make(map[string][]string),
		events:    make(map[string][]model.ActionEvent),
		eventBy:   make(map[eventKey]model.ActionEvent),
		batches:   make(map[string]model.Batch),
		members:   make(map[string][]string),
		requests:  make(map[string]model.ReviewRequest),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() repository.Store {
	return repository.Store{
		Documents: documents{s},
		Findings:  findings{s},
		Events:    events{s},
		Batches:   batches{s},
		Requests:  requests{s},
		Snapshots: s,
	}
}

func cloneEvent(ev model.ActionEvent) model.ActionEvent {
	if ev.Payload != nil {
		ev.Payload = append([]byte(nil), ev.Payload...)
	}
	return ev
}

type documents struct{ s *Store }

var _ repository.DocumentRepository = documents{}

func (r documents) Upsert(_ context.Context, doc *model.Document) (*model.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := doc.LastIngestedAt
	if now.IsZero() {
		now = r.s.now()
	}
	out, ok := r.s.documents[doc.ID]
	if !ok {
		out = model.Document{ID: doc.ID, CreatedAt: doc.CreatedAt}
		if out.CreatedAt.IsZero() {
			out.CreatedAt = now
		}
	}
	out.Title = doc.Title
	out.Source = doc.Source
	out.LastIngestedAt = now
	r.s.documents[doc.ID] = out
	return &out, nil
}

func (r documents) FindByID(_ context.Context, id string) (*model.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r documents) List(_ context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	r.s.mu.RLock()
	all := make([]model.Document, 0, len(r.s.documents))
	for _, d := range r.s.documents {
		all = append(all, d)
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	total := len(all)
	start := min(pq.Offset, total)
	end := total
	if pq.Limit > 0 {
		end = min(start+pq.Limit, total)
	}
	return &repository.PageResult[model.Document]{Items: all[start:end], Total: total}, nil
}

type findings struct{ s *Store }

var _ repository.FindingRepository = findings{}

func (r findings) UpsertMany(_ context.Context, documentID string, in []model.Finding) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, f := range in {
		k := findingKey{documentID, f.Section, f.Code}
		if _, ok := r.s.findingBy[k]; ok {
			continue
		}
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if f.Status == "" {
			f.Status = model.FindingOpen
		}
		if f.FlaggedAt.IsZero() {
			f.FlaggedAt = r.s.now()
		}
		f.DocumentID = documentID
		f.UpdatedAt = f.FlaggedAt
		r.s.findings[f.ID] = f
		r.s.findingBy[k] = f.ID
		r.s.byDoc[documentID] = append(r.s.byDoc[documentID], f.ID)
	}
	return nil
}

func (r findings) ListByDocument(_ context.Context, documentID string) ([]model.Finding, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.listFindings(documentID), nil
}

func (s *Store) listFindings(documentID string) []model.Finding {
	ids := s.byDoc[documentID]
	out := make([]model.Finding, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.findings[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FlaggedAt.Equal(out[j].FlaggedAt) {
			return out[i].FlaggedAt.Before(out[j].FlaggedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r findings) UpdateStatus(_ context.Context, id string, status model.FindingStatus, at time.Time) (*model.Finding, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.findings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	f.Status = status
	f.UpdatedAt = at
	r.s.findings[id] = f
	return &f, nil
}

type events struct{ s *Store }

var _ repository.EventRepository = events{}

func (r events) Append(_ context.Context, ev *model.ActionEvent, expected int) (*model.ActionEvent, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := eventKey{ev.DocumentID, ev.ActionType, ev.IdempotencyKey}
	if existing, ok := r.s.eventBy[k]; ok {
		out := cloneEvent(existing)
		return &out, false, nil
	}
	if expected != repository.AnyLength && len(r.s.events[ev.DocumentID]) != expected {
		return nil, false, repository.ErrStaleLedger
	}

	out := cloneEvent(*ev)
	if len(out.Payload) == 0 {
		out.Payload = []byte("{}")
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = r.s.now()
	}
	ledger := r.s.events[ev.DocumentID]
	if n := len(ledger); n > 0 && out.CreatedAt.Before(ledger[n-1].CreatedAt) {
		out.CreatedAt = ledger[n-1].CreatedAt
	}
	r.s.nextID++
	out.ActionID = r.s.nextID

	r.s.events[ev.DocumentID] = append(ledger, out)
	r.s.eventBy[k] = out
	ret := cloneEvent(out)
	return &ret, true, nil
}

func (r events) FindByKey(_ context.Context, documentID string, action model.ActionType, key string) (*model.ActionEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ev, ok := r.s.eventBy[eventKey{documentID, action, key}]
	if !ok {
		return nil, nil
	}
	out := cloneEvent(ev)
	return &out, nil
}

func (r events) History(_ context.Context, documentID string) ([]model.ActionEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.history(documentID), nil
}

// history relies on Append keeping each ledger in (created_at, action_id) order.
func (s *Store) history(documentID string) []model.ActionEvent {
	ledger := s.events[documentID]
	out := make([]model.ActionEvent, len(ledger))
	for i, ev := range ledger {
		out[i] = cloneEvent(ev)
	}
	return out
}

func (r events) Latest(_ context.Context, documentID string) (*model.ActionEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ledger := r.s.events[documentID]
	if len(ledger) == 0 {
		return nil, nil
	}
	out := cloneEvent(ledger[len(ledger)-1])
	return &out, nil
}

func (r events) Count(_ context.Context, documentID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.events[documentID]), nil
}

var _ repository.SnapshotReader = (*Store)(nil)

func (s *Store) Snapshot(_ context.Context, documentID string) (*repository.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.documents[documentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &repository.Snapshot{
		Document: d,
		Findings: s.listFindings(documentID),
		History:  s.history(documentID),
	}, nil
}

type batches struct{ s *Store }

var _ repository.BatchRepository = batches{}

func (r batches) Create(_ context.Context, b *model.Batch) (*model.Batch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.batches[b.ID]; ok {
		return nil, repository.ErrConflict
	}
	out := *b
	r.s.batches[b.ID] = out
	return &out, nil
}

func (r batches) FindByID(_ context.Context, id string) (*model.Batch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.batches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r batches) AddDocuments(_ context.Context, batchID string, documentIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing := r.s.members[batchID]
	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range documentIDs {
		if !seen[id] {
			seen[id] = true
			existing = append(existing, id)
		}
	}
	r.s.members[batchID] = existing
	return nil
}

func (r batches) Watermarks(_ context.Context, batchID string) (map[string]model.Watermark, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]model.Watermark, len(r.s.members[batchID]))
	for _, id := range r.s.members[batchID] {
		var w model.Watermark
		ledger := r.s.events[id]
		w.EventCount = len(ledger)
		if n := len(ledger); n > 0 {
			w.LastEventAt = ledger[n-1].CreatedAt
		}
		for _, fid := range r.s.byDoc[id] {
			if f := r.s.findings[fid]; f.UpdatedAt.After(w.FindingsUpdate) {
				w.FindingsUpdate = f.UpdatedAt
			}
		}
		out[id] = w
	}
	return out, nil
}

type requests struct{ s *Store }

var _ repository.RequestRepository = requests{}

func (r requests) Create(_ context.Context, rr *model.ReviewRequest) (*model.ReviewRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.requests[rr.ID]; ok {
		return nil, repository.ErrConflict
	}
	out := *rr
	if out.PreflightContext != nil {
		out.PreflightContext = append([]byte(nil), rr.PreflightContext...)
	}
	r.s.requests[rr.ID] = out
	return &out, nil
}

func (r requests) FindByIDs(_ context.Context, ids []string) ([]model.ReviewRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.ReviewRequest, 0, len(ids))
	for _, id := range ids {
		if rr, ok := r.s.requests[id]; ok {
			out = append(out, rr)
		}
	}
	return out, nil
}
