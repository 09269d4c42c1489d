package repository

import (
	"context"

	"preflight/internal/model"
)

// BatchRepository stores batches and their membership. Health is never stored.
type BatchRepository interface {
	Create(ctx context.Context, b *model.Batch) (*model.Batch, error)

	// FindByID returns ErrNotFound when the batch does not exist.
	FindByID(ctx context.Context, id string) (*model.Batch, error)

	// AddDocuments adds members; documents already in the batch are ignored.
	AddDocuments(ctx context.Context, batchID string, documentIDs []string) error

	// Watermarks returns one entry per member document in a single read.
	Watermarks(ctx context.Context, batchID string) (map[string]model.Watermark, error)
}

// RequestRepository stores review requests (RFIs).
type RequestRepository interface {
	Create(ctx context.Context, r *model.ReviewRequest) (*model.ReviewRequest, error)

	// FindByIDs returns the requests found, in the order of ids. Unknown ids are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]model.ReviewRequest, error)
}
