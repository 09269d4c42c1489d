package postgres

import (
	"context"
	"database/sql"

	"preflight/internal/model"
	"preflight/internal/repository"
)

// RequestPostgres is a PostgreSQL implementation of repository.RequestRepository.
type RequestPostgres struct {
	db *sql.DB
}

func NewRequestPostgres(db *sql.DB) *RequestPostgres {
	return &RequestPostgres{db: db}
}

var _ repository.RequestRepository = (*RequestPostgres)(nil)

const requestColumns = `id, document_id, actor_role, question, preflight_context, created_at`

func scanRequest(s scanner) (*model.ReviewRequest, error) {
	var rr model.ReviewRequest
	var ctxJSON []byte
	if err := s.Scan(&rr.ID, &rr.DocumentID, &rr.ActorRole, &rr.Question, &ctxJSON, &rr.CreatedAt); err != nil {
		return nil, err
	}
	if len(ctxJSON) > 0 {
		rr.PreflightContext = ctxJSON
	}
	return &rr, nil
}

// Create stores a request. The context column is json, not jsonb, so it is
// kept byte for byte.
func (r *RequestPostgres) Create(ctx context.Context, rr *model.ReviewRequest) (*model.ReviewRequest, error) {
	const q = `
		INSERT INTO review_requests (id, document_id, actor_role, question, preflight_context, created_at)
		VALUES ($1, $2, $3, $4, $5::json, $6)
		RETURNING ` + requestColumns
	var ctxJSON any
	if len(rr.PreflightContext) > 0 {
		ctxJSON = string(rr.PreflightContext)
	}
	out, err := scanRequest(r.db.QueryRowContext(ctx, q, rr.ID, rr.DocumentID, string(rr.ActorRole), rr.Question, ctxJSON, rr.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return out, nil
}

// FindByIDs returns known requests in the order of ids.
func (r *RequestPostgres) FindByIDs(ctx context.Context, ids []string) ([]model.ReviewRequest, error) {
	if len(ids) == 0 {
		return []model.ReviewRequest{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT ` + requestColumns + ` FROM review_requests WHERE id::text IN (` + placeholders(1, len(ids)) + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]model.ReviewRequest, len(ids))
	for rows.Next() {
		rr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		byID[rr.ID] = *rr
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.ReviewRequest, 0, len(byID))
	for _, id := range ids {
		if rr, ok := byID[id]; ok {
			out = append(out, rr)
		}
	}
	return out, nil
}
