package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"preflight/internal/model"
	"preflight/internal/repository"
)

// FindingPostgres is a PostgreSQL implementation of repository.FindingRepository.
type FindingPostgres struct {
	db *sql.DB
}

func NewFindingPostgres(db *sql.DB) *FindingPostgres {
	return &FindingPostgres{db: db}
}

var _ repository.FindingRepository = (*FindingPostgres)(nil)

const findingColumns = `id, document_id, section, code, status, detail, flagged_at, updated_at`

func scanFinding(s scanner) (*model.Finding, error) {
	var f model.Finding
	if err := s.Scan(&f.ID, &f.DocumentID, &f.Section, &f.Code, &f.Status, &f.Detail, &f.FlaggedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// UpsertMany inserts unknown findings in one transaction; known ones keep their status.
func (r *FindingPostgres) UpsertMany(ctx context.Context, documentID string, findings []model.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	const q = `
		INSERT INTO findings (id, document_id, section, code, status, detail, flagged_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (document_id, section, code) DO NOTHING
	`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, f := range findings {
		id := f.ID
		if id == "" {
			id = uuid.NewString()
		}
		status := f.Status
		if status == "" {
			status = model.FindingOpen
		}
		flagged := f.FlaggedAt
		if flagged.IsZero() {
			flagged = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, q, id, documentID, f.Section, f.Code, string(status), f.Detail, flagged, flagged); err != nil {
			return fmt.Errorf("insert finding %s/%s: %w", f.Section, f.Code, err)
		}
	}
	return tx.Commit()
}

// ListByDocument returns the findings of a document ordered by flag time.
func (r *FindingPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.Finding, error) {
	return listFindings(ctx, r.db, documentID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listFindings(ctx context.Context, q queryer, documentID string) ([]model.Finding, error) {
	const qList = `
		SELECT ` + findingColumns + `
		FROM findings
		WHERE document_id = $1
		ORDER BY flagged_at ASC, id ASC
	`
	rows, err := q.QueryContext(ctx, qList, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Finding, 0)
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *f)
	}
	return items, rows.Err()
}

// UpdateStatus changes a finding's status and bumps updated_at.
func (r *FindingPostgres) UpdateStatus(ctx context.Context, id string, status model.FindingStatus, at time.Time) (*model.Finding, error) {
	const q = `
		UPDATE findings
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + findingColumns
	return scanFinding(r.db.QueryRowContext(ctx, q, id, string(status), at))
}
