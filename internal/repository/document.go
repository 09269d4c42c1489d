package repository

import (
	"context"
	"time"

	"preflight/internal/model"
)

// DocumentRepository persists documents keyed by anchor fingerprint.
type DocumentRepository interface {
	// Upsert creates the document or, for a known fingerprint, refreshes its
	// ingestion metadata. It never touches the document's events.
	Upsert(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns ErrNotFound when the fingerprint is unknown.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns a page of documents ordered by creation, newest first.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)
}

// FindingRepository stores upstream findings. Only status is mutable.
type FindingRepository interface {
	// UpsertMany inserts findings not yet known for the document. A finding is
	// identified by (document, section, code); existing rows keep their status.
	UpsertMany(ctx context.Context, documentID string, findings []model.Finding) error

	// ListByDocument returns findings ordered by flag time then id.
	ListByDocument(ctx context.Context, documentID string) ([]model.Finding, error)

	// UpdateStatus sets a finding's status; ErrNotFound for unknown ids.
	UpdateStatus(ctx context.Context, id string, status model.FindingStatus, at time.Time) (*model.Finding, error)
}

// SnapshotReader reads a document with its findings and history at one point in time.
type SnapshotReader interface {
	// Snapshot returns ErrNotFound when the document does not exist.
	Snapshot(ctx context.Context, documentID string) (*Snapshot, error)
}
