package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"preflight/internal/repository"
)

// SnapshotPostgres reads a document, its findings and its history inside one
// read-only REPEATABLE READ transaction.
type SnapshotPostgres struct {
	db *sql.DB
}

func NewSnapshotPostgres(db *sql.DB) *SnapshotPostgres {
	return &SnapshotPostgres{db: db}
}

var _ repository.SnapshotReader = (*SnapshotPostgres)(nil)

func (r *SnapshotPostgres) Snapshot(ctx context.Context, documentID string) (*repository.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	const qDoc = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(tx.QueryRowContext(ctx, qDoc, documentID))
	if err != nil {
		return nil, err
	}
	findings, err := listFindings(ctx, tx, documentID)
	if err != nil {
		return nil, fmt.Errorf("snapshot findings: %w", err)
	}
	history, err := listEvents(ctx, tx, documentID)
	if err != nil {
		return nil, fmt.Errorf("snapshot history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("end snapshot: %w", err)
	}
	return &repository.Snapshot{Document: *doc, Findings: findings, History: history}, nil
}
