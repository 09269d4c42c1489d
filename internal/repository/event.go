package repository

import (
	"context"

	"preflight/internal/model"
)

// EventRepository is the append-only action ledger. Events are never
// updated or deleted.
type EventRepository interface {
	// Append records ev unless an event with the same (document, action,
	// idempotency key) exists. It returns the stored event and whether it was
	// inserted; on conflict the original event is returned with false.
	// CreatedAt is clamped so it never precedes the document's previous event.
	//
	// When expected is not AnyLength the insert only happens if the ledger
	// still holds exactly expected events, checked atomically with the write;
	// otherwise ErrStaleLedger is returned. The idempotency triple is checked
	// first, so a replay never fails the precondition.
	Append(ctx context.Context, ev *model.ActionEvent, expected int) (*model.ActionEvent, bool, error)

	// FindByKey returns the event recorded under the idempotency triple, or nil.
	FindByKey(ctx context.Context, documentID string, action model.ActionType, key string) (*model.ActionEvent, error)

	// History returns all events of a document oldest first.
	History(ctx context.Context, documentID string) ([]model.ActionEvent, error)

	// Latest returns the most recent event of a document, or nil.
	Latest(ctx context.Context, documentID string) (*model.ActionEvent, error)

	// Count returns the number of events of a document.
	Count(ctx context.Context, documentID string) (int, error)
}
