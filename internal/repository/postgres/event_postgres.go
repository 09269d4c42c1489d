package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"preflight/internal/model"
	"preflight/internal/repository"
)

// EventPostgres is the PostgreSQL action ledger.
//
// Appends for one document are serialised by a transaction-scoped advisory
// lock, which lets created_at be clamped to the previous event so that
// (created_at, action_id) order always equals append order. The expected
// ledger length is checked under the same lock, so a caller that evaluated
// the gate on an older ledger gets ErrStaleLedger instead of a write. The unique
// constraint on (document_id, action_type, idempotency_key) backs the
// in-process idempotency guard across processes.
type EventPostgres struct {
	db *sql.DB
}

func NewEventPostgres(db *sql.DB) *EventPostgres {
	return &EventPostgres{db: db}
}

var _ repository.EventRepository = (*EventPostgres)(nil)

const eventColumns = `action_id, document_id, action_type, actor_role, idempotency_key, payload, created_at`

func scanEvent(s scanner) (*model.ActionEvent, error) {
	var ev model.ActionEvent
	var payload []byte
	if err := s.Scan(&ev.ActionID, &ev.DocumentID, &ev.ActionType, &ev.ActorRole, &ev.IdempotencyKey, &payload, &ev.CreatedAt); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		ev.Payload = payload
	}
	return &ev, nil
}

// Append inserts ev or returns the event already stored under its idempotency triple.
func (r *EventPostgres) Append(ctx context.Context, ev *model.ActionEvent, expected int) (*model.ActionEvent, bool, error) {
	const qLock = `SELECT pg_advisory_xact_lock(hashtext($1))`
	const qCount = `SELECT COUNT(*) FROM action_events WHERE document_id = $1`
	const qInsert = `
		INSERT INTO action_events (document_id, action_type, actor_role, idempotency_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb,
		        GREATEST($6::timestamptz, COALESCE((SELECT MAX(created_at) FROM action_events WHERE document_id = $1), $6::timestamptz)))
		ON CONFLICT (document_id, action_type, idempotency_key) DO NOTHING
		RETURNING action_id, created_at
	`
	payload := "{}"
	if len(ev.Payload) > 0 {
		payload = string(ev.Payload)
	}
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, qLock, ev.DocumentID); err != nil {
		return nil, false, fmt.Errorf("lock document ledger: %w", err)
	}

	existing, err := findByKey(ctx, tx, ev.DocumentID, ev.ActionType, ev.IdempotencyKey)
	if err != nil {
		return nil, false, fmt.Errorf("find event: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}
	if expected != repository.AnyLength {
		var n int
		if err := tx.QueryRowContext(ctx, qCount, ev.DocumentID).Scan(&n); err != nil {
			return nil, false, fmt.Errorf("count events: %w", err)
		}
		if n != expected {
			return nil, false, repository.ErrStaleLedger
		}
	}

	out := *ev
	out.Payload = []byte(payload)
	err = tx.QueryRowContext(ctx, qInsert,
		ev.DocumentID,
		string(ev.ActionType),
		string(ev.ActorRole),
		ev.IdempotencyKey,
		payload,
		createdAt,
	).Scan(&out.ActionID, &out.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := findByKey(ctx, tx, ev.DocumentID, ev.ActionType, ev.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("append conflict on %s/%s/%s but no event found", ev.DocumentID, ev.ActionType, ev.IdempotencyKey)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit event: %w", err)
	}
	return &out, true, nil
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findByKey(ctx context.Context, q rowQueryer, documentID string, action model.ActionType, key string) (*model.ActionEvent, error) {
	const qFind = `
		SELECT ` + eventColumns + `
		FROM action_events
		WHERE document_id = $1 AND action_type = $2 AND idempotency_key = $3
	`
	ev, err := scanEvent(q.QueryRowContext(ctx, qFind, documentID, string(action), key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return ev, err
}

// FindByKey returns the event stored under the idempotency triple, or nil.
func (r *EventPostgres) FindByKey(ctx context.Context, documentID string, action model.ActionType, key string) (*model.ActionEvent, error) {
	return findByKey(ctx, r.db, documentID, action, key)
}

// History returns the ledger of a document oldest first.
func (r *EventPostgres) History(ctx context.Context, documentID string) ([]model.ActionEvent, error) {
	return listEvents(ctx, r.db, documentID)
}

func listEvents(ctx context.Context, q queryer, documentID string) ([]model.ActionEvent, error) {
	const qList = `
		SELECT ` + eventColumns + `
		FROM action_events
		WHERE document_id = $1
		ORDER BY created_at ASC, action_id ASC
	`
	rows, err := q.QueryContext(ctx, qList, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ActionEvent, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *ev)
	}
	return items, rows.Err()
}

// Latest returns the newest event of a document, or nil when it has none.
func (r *EventPostgres) Latest(ctx context.Context, documentID string) (*model.ActionEvent, error) {
	const q = `
		SELECT ` + eventColumns + `
		FROM action_events
		WHERE document_id = $1
		ORDER BY created_at DESC, action_id DESC
		LIMIT 1
	`
	ev, err := scanEvent(r.db.QueryRowContext(ctx, q, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return ev, err
}

// Count returns the number of events of a document.
func (r *EventPostgres) Count(ctx context.Context, documentID string) (int, error) {
	const q = `SELECT COUNT(*) FROM action_events WHERE document_id = $1`
	var n int
	if err := r.db.QueryRowContext(ctx, q, documentID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
