package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"preflight/internal/custody"
	"preflight/internal/gate"
	"preflight/internal/idempotency"
	"preflight/internal/metrics"
	"preflight/internal/model"
	"preflight/internal/repository"
	"preflight/internal/storage"
)

var tracer = otel.Tracer("preflight/internal/service")

// SubmitInput is an action submission as received from a client.
type SubmitInput struct {
	DocumentID     string
	Role           string
	Action         string
	IdempotencyKey string
	Payload        json.RawMessage
}

// FindingInput is an upstream finding supplied on ingestion.
type FindingInput struct {
	Section   string    `json:"section"`
	Code      string    `json:"code"`
	Status    string    `json:"status,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	FlaggedAt time.Time `json:"flagged_at,omitempty"`
}

// IngestInput registers a document by anchor fingerprint.
type IngestInput struct {
	DocumentID string
	Title      string
	Source     string
	Findings   []FindingInput
}

// IngestResult is the document after ingestion with its current evaluation.
type IngestResult struct {
	Document   model.Document   `json:"document"`
	Evaluation model.Evaluation `json:"evaluation"`
}

// HistoryResult is a document's ledger read from one snapshot.
type HistoryResult struct {
	DocumentID        string              `json:"document_id"`
	Events            []model.ActionEvent `json:"events"`
	ActionEventsCount int                 `json:"action_events_count"`
}

// RequestInput raises a review request on a document.
type RequestInput struct {
	DocumentID       string
	Role             string
	Question         string
	PreflightContext json.RawMessage
}

// ExportInput selects the requests to export.
type ExportInput struct {
	RequestIDs     []string
	IncludeContext bool
}

// PreflightService applies actions to the ledger and derives gate state.
type PreflightService interface {
	// Submit validates, authorizes and records an action exactly once per
	// (document, action, idempotency key). A repeat returns the original event.
	Submit(ctx context.Context, in SubmitInput) (*model.ActionResult, error)

	Evaluate(ctx context.Context, documentID string) (*model.Evaluation, error)
	History(ctx context.Context, documentID string) (*HistoryResult, error)

	// Ingest creates or refreshes a document and records new findings. The
	// ledger of a known fingerprint is never touched.
	Ingest(ctx context.Context, in IngestInput) (*IngestResult, error)
	UpdateFindingStatus(ctx context.Context, findingID, status string) (*model.Finding, error)

	CreateRequest(ctx context.Context, in RequestInput) (*model.ReviewRequest, error)
	Export(ctx context.Context, in ExportInput) (*model.ExportPayload, error)
	// OpenExport streams a previously uploaded export payload.
	OpenExport(ctx context.Context, exportID string) (io.ReadCloser, error)
}

// Invalidator drops cached derived state for a document.
type Invalidator interface {
	Invalidate(documentID string)
}

// Options tune a PreflightService. Zero values are usable.
type Options struct {
	DisabledActions []model.ActionType
	Invalidator     Invalidator
	Metrics         *metrics.Metrics
	AuditLog        io.Writer // JSON lines; stdout when nil
	Location        *time.Location
	ExportExpiry    time.Duration
	Now             func() time.Time
}

type preflightService struct {
	store     repository.Store
	authz     *custody.Authorizer
	evaluator *gate.Evaluator
	guard     *idempotency.Guard
	objects   storage.Storage
	disabled  map[model.ActionType]bool
	cache     Invalidator
	metrics   *metrics.Metrics
	audit     *auditLog
	expiry    time.Duration
	now       func() time.Time
}

// NewPreflightService wires the dispatcher. objects may be nil, in which
// case exports are returned inline only.
func NewPreflightService(store repository.Store, authz *custody.Authorizer, evaluator *gate.Evaluator, objects storage.Storage, opts Options) PreflightService {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	disabled := make(map[model.ActionType]bool, len(opts.DisabledActions))
	for _, a := range opts.DisabledActions {
		disabled[a] = true
	}
	expiry := opts.ExportExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &preflightService{
		store:     store,
		authz:     authz,
		evaluator: evaluator,
		guard:     idempotency.NewGuard(),
		objects:   objects,
		disabled:  disabled,
		cache:     opts.Invalidator,
		metrics:   opts.Metrics,
		audit:     newAuditLog(opts.AuditLog, opts.Location, now),
		expiry:    expiry,
		now:       now,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *preflightService) invalidate(documentID string) {
	if s.cache != nil {
		s.cache.Invalidate(documentID)
	}
}

type submission struct {
	documentID string
	role       model.CustodyRole
	action     model.ActionType
	key        string
	payload    json.RawMessage
}

func (s *preflightService) validate(in SubmitInput) (submission, error) {
	var sub submission
	sub.documentID = strings.TrimSpace(in.DocumentID)
	if sub.documentID == "" {
		return sub, ErrDocumentRequired
	}
	action, err := model.ParseActionType(in.Action)
	if err != nil || s.disabled[action] {
		return sub, ErrInvalidAction
	}
	sub.action = action
	role, err := model.ParseCustodyRole(in.Role)
	if err != nil {
		return sub, ErrInvalidRole
	}
	sub.role = role
	if len(in.Payload) > 0 && string(in.Payload) != "null" {
		var obj map[string]any
		if err := json.Unmarshal(in.Payload, &obj); err != nil {
			return sub, withCause(ErrInvalidPayload, err)
		}
		sub.payload = in.Payload
	}
	sub.key = strings.TrimSpace(in.IdempotencyKey)
	if sub.key == "" {
		sub.key = uuid.NewString()
	}
	return sub, nil
}

func denial(d custody.Decision) *Error {
	switch d.Reason {
	case custody.ReasonRoleInsufficient:
		return ErrRoleInsufficient
	case custody.ReasonIllegalState:
		return ErrIllegalState
	default:
		return ErrInvalidAction
	}
}

func (s *preflightService) Submit(ctx context.Context, in SubmitInput) (_ *model.ActionResult, err error) {
	ctx, span := tracer.Start(ctx, "PreflightService.Submit")
	defer func() { endSpan(span, err) }()

	sub, err := s.validate(in)
	if err != nil {
		action, perr := model.ParseActionType(in.Action)
		if perr != nil {
			action = ""
		}
		s.metrics.ObserveAction(action, metrics.OutcomeInvalid)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("preflight.document_id", sub.documentID),
		attribute.String("preflight.action", string(sub.action)),
		attribute.String("preflight.role", string(sub.role)),
	)

	// Role checks precede the key lookup so a replayed key never hands
	// another role's event to a caller that could not have submitted it.
	if d := s.authz.RolePermits(sub.role, sub.action); !d.Allowed {
		err = withCause(denial(d), errors.New(string(d.Reason)))
		s.recordFailure(sub, err)
		return nil, err
	}

	key := idempotency.Key{DocumentID: sub.documentID, Action: sub.action, IdempotencyKey: sub.key}
	lookup := func(ctx context.Context, k idempotency.Key) (*model.ActionEvent, error) {
		ev, err := s.store.Events.FindByKey(ctx, k.DocumentID, k.Action, k.IdempotencyKey)
		if err != nil {
			return nil, persistence("lookup idempotency key", err)
		}
		return ev, nil
	}
	create := func(ctx context.Context) (idempotency.Admission, error) {
		return s.admit(ctx, sub)
	}

	adm, err := s.guard.Admit(ctx, key, lookup, create)
	if err != nil {
		s.recordFailure(sub, err)
		var se *Error
		if !errors.As(err, &se) {
			err = persistence("admit action", err)
		}
		return nil, err
	}

	outcome := metrics.OutcomeAdmitted
	msg := "action_admitted"
	if adm.Duplicate {
		outcome = metrics.OutcomeDuplicate
		msg = "action_duplicate"
	} else {
		s.invalidate(sub.documentID)
	}
	s.metrics.ObserveAction(sub.action, outcome)
	s.audit.write("info", msg, map[string]any{
		"document_id":     sub.documentID,
		"action":          sub.action,
		"role":            sub.role,
		"idempotency_key": sub.key,
		"action_id":       adm.Event.ActionID,
	})
	span.SetAttributes(attribute.Bool("preflight.duplicate", adm.Duplicate), attribute.Int64("preflight.action_id", adm.Event.ActionID))

	// Once the event is committed the response must reflect it even if the
	// caller has gone away.
	snap, err := s.snapshot(context.WithoutCancel(ctx), sub.documentID)
	if err != nil {
		return nil, err
	}
	eval := s.evaluate(snap)
	latest := snap.History[len(snap.History)-1]
	return &model.ActionResult{
		SelectedAction:    eval.SelectedAction,
		LatestEvent:       &latest,
		Event:             adm.Event,
		ActionEventsCount: len(snap.History),
		GateColor:         eval.GateColor,
		Duplicate:         adm.Duplicate,
	}, nil
}

// maxAdmitAttempts bounds how often admit re-reads a ledger that other keys
// keep appending to.
const maxAdmitAttempts = 5

// admit runs under the idempotency lock. The guard only serialises one key,
// so the gate checks are bound to the ledger length they saw and repeated
// when another key appended first.
func (s *preflightService) admit(ctx context.Context, sub submission) (idempotency.Admission, error) {
	for attempt := 1; ; attempt++ {
		adm, err := s.tryAdmit(ctx, sub)
		if !errors.Is(err, repository.ErrStaleLedger) {
			return adm, err
		}
		if attempt == maxAdmitAttempts {
			return idempotency.Admission{}, withCause(ErrLedgerContended, err)
		}
	}
}

func (s *preflightService) tryAdmit(ctx context.Context, sub submission) (idempotency.Admission, error) {
	snap, err := s.snapshot(ctx, sub.documentID)
	if err != nil {
		return idempotency.Admission{}, err
	}
	eval := s.evaluate(snap)

	if d := s.authz.Authorize(sub.role, sub.action, eval.GateColor); !d.Allowed {
		return idempotency.Admission{}, withCause(denial(d), errors.New(string(d.Reason)))
	}

	// A second escalation while one is pending is a no-op that reports the
	// pending escalation.
	if sub.action == model.ActionEscalateOCR && eval.PendingEscalation {
		for i := len(snap.History) - 1; i >= 0; i-- {
			if snap.History[i].ActionType == model.ActionEscalateOCR {
				ev := snap.History[i]
				return idempotency.Admission{Event: &ev, Duplicate: true}, nil
			}
		}
	}

	stored, inserted, err := s.store.Events.Append(context.WithoutCancel(ctx), &model.ActionEvent{
		DocumentID:     sub.documentID,
		ActionType:     sub.action,
		ActorRole:      sub.role,
		IdempotencyKey: sub.key,
		Payload:        sub.payload,
		CreatedAt:      s.now(),
	}, len(snap.History))
	if errors.Is(err, repository.ErrStaleLedger) {
		return idempotency.Admission{}, err
	}
	if err != nil {
		return idempotency.Admission{}, persistence("append event", err)
	}
	return idempotency.Admission{Event: stored, Duplicate: !inserted}, nil
}

func (s *preflightService) recordFailure(sub submission, err error) {
	outcome := metrics.OutcomeFailed
	level := "error"
	msg := "action_failed"
	fields := map[string]any{
		"document_id":     sub.documentID,
		"action":          sub.action,
		"role":            sub.role,
		"idempotency_key": sub.key,
	}
	var se *Error
	if errors.As(err, &se) && se.Kind != KindPersistence {
		outcome = metrics.OutcomeDenied
		level = "warn"
		msg = "action_denied"
		fields["code"] = se.Code
	} else {
		fields["error"] = err.Error()
	}
	s.metrics.ObserveAction(sub.action, outcome)
	s.audit.write(level, msg, fields)
}

func (s *preflightService) snapshot(ctx context.Context, documentID string) (*repository.Snapshot, error) {
	snap, err := s.store.Snapshots.Snapshot(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, persistence("read document", err)
	}
	return snap, nil
}

func (s *preflightService) evaluate(snap *repository.Snapshot) model.Evaluation {
	eval := s.evaluator.Evaluate(snap.Document.ID, snap.Findings, snap.History)
	s.metrics.ObserveGate(eval.GateColor)
	return eval
}

func (s *preflightService) Evaluate(ctx context.Context, documentID string) (_ *model.Evaluation, err error) {
	ctx, span := tracer.Start(ctx, "PreflightService.Evaluate")
	defer func() { endSpan(span, err) }()

	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, ErrDocumentRequired
	}
	snap, err := s.snapshot(ctx, documentID)
	if err != nil {
		return nil, err
	}
	eval := s.evaluate(snap)
	return &eval, nil
}

func (s *preflightService) History(ctx context.Context, documentID string) (_ *HistoryResult, err error) {
	ctx, span := tracer.Start(ctx, "PreflightService.History")
	defer func() { endSpan(span, err) }()

	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, ErrDocumentRequired
	}
	snap, err := s.snapshot(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &HistoryResult{
		DocumentID:        documentID,
		Events:            snap.History,
		ActionEventsCount: len(snap.History),
	}, nil
}

func (s *preflightService) Ingest(ctx context.Context, in IngestInput) (_ *IngestResult, err error) {
	ctx, span := tracer.Start(ctx, "PreflightService.Ingest")
	defer func() { endSpan(span, err) }()

	id := strings.TrimSpace(in.DocumentID)
	if id == "" {
		return nil, ErrDocumentRequired
	}
	now := s.now()
	findings := make([]model.Finding, 0, len(in.Findings))
	for _, f := range in.Findings {
		if strings.TrimSpace(f.Section) == "" || strings.TrimSpace(f.Code) == "" {
			return nil, ErrInvalidFinding
		}
		status := model.FindingOpen
		if f.Status != "" {
			st, err := model.ParseFindingStatus(f.Status)
			if err != nil {
				return nil, withCause(ErrInvalidStatus, err)
			}
			status = st
		}
		flagged := f.FlaggedAt
		if flagged.IsZero() {
			flagged = now
		}
		findings = append(findings, model.Finding{
			ID:        uuid.NewString(),
			Section:   strings.TrimSpace(f.Section),
			Code:      strings.TrimSpace(f.Code),
			Status:    status,
			Detail:    f.Detail,
			FlaggedAt: flagged.UTC(),
		})
	}

	if _, err := s.store.Documents.Upsert(ctx, &model.Document{
		ID:             id,
		Title:          in.Title,
		Source:         in.Source,
		LastIngestedAt: now,
	}); err != nil {
		return nil, persistence("upsert document", err)
	}
	if err := s.store.Findings.UpsertMany(ctx, id, findings); err != nil {
		return nil, persistence("record findings", err)
	}
	s.invalidate(id)

	snap, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return &IngestResult{Document: snap.Document, Evaluation: s.evaluate(snap)}, nil
}

func (s *preflightService) UpdateFindingStatus(ctx context.Context, findingID, status string) (_ *model.Finding, err error) {
	ctx, span := tracer.Start(ctx, "PreflightService.UpdateFindingStatus")
	defer func() { endSpan(span, err) }()

	st, err := model.ParseFindingStatus(status)
	if err != nil {
		return nil, withCause(ErrInvalidStatus, err)
	}
	f, err := s.store.Findings.UpdateStatus(ctx, findingID, st, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFindingNotFound
		}
		return nil, persistence("update finding", err)
	}
	s.invalidate(f.DocumentID)
	return f, nil
}

func (s *preflightService) CreateRequest(ctx context.Context, in RequestInput) (_ *model.ReviewRequest, err error) {
	ctx, span := tracer.Start(ctx, "PreflightService.CreateRequest")
	defer func() { endSpan(span, err) }()

	documentID := strings.TrimSpace(in.DocumentID)
	if documentID == "" {
		return nil, ErrDocumentRequired
	}
	role, err := model.ParseCustodyRole(in.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}
	if strings.TrimSpace(in.Question) == "" {
		return nil, ErrInvalidQuestion
	}
	var pc json.RawMessage
	if len(in.PreflightContext) > 0 && string(in.PreflightContext) != "null" {
		if !json.Valid(in.PreflightContext) {
			return nil, ErrInvalidContext
		}
		pc = in.PreflightContext
	}
	if _, err := s.store.Documents.FindByID(ctx, documentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, persistence("read document", err)
	}

	rr, err := s.store.Requests.Create(ctx, &model.ReviewRequest{
		ID:               uuid.NewString(),
		DocumentID:       documentID,
		ActorRole:        role,
		Question:         in.Question,
		PreflightContext: pc,
		CreatedAt:        s.now(),
	})
	if err != nil {
		return nil, persistence("create request", err)
	}
	return rr, nil
}
