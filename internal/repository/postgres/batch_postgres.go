package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"preflight/internal/model"
	"preflight/internal/repository"
)

// BatchPostgres is a PostgreSQL implementation of repository.BatchRepository.
type BatchPostgres struct {
	db *sql.DB
}

func NewBatchPostgres(db *sql.DB) *BatchPostgres {
	return &BatchPostgres{db: db}
}

var _ repository.BatchRepository = (*BatchPostgres)(nil)

func (r *BatchPostgres) Create(ctx context.Context, b *model.Batch) (*model.Batch, error) {
	const q = `
		INSERT INTO batches (id, name, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, name, created_at
	`
	var out model.Batch
	if err := r.db.QueryRowContext(ctx, q, b.ID, b.Name, b.CreatedAt).Scan(&out.ID, &out.Name, &out.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return &out, nil
}

func (r *BatchPostgres) FindByID(ctx context.Context, id string) (*model.Batch, error) {
	const q = `SELECT id, name, created_at FROM batches WHERE id = $1`
	var out model.Batch
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&out.ID, &out.Name, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddDocuments inserts memberships in one statement.
func (r *BatchPostgres) AddDocuments(ctx context.Context, batchID string, documentIDs []string) error {
	if len(documentIDs) == 0 {
		return nil
	}
	args := make([]any, 0, len(documentIDs)+2)
	args = append(args, batchID, time.Now().UTC())
	values := ""
	for i, id := range documentIDs {
		if i > 0 {
			values += ", "
		}
		values += fmt.Sprintf("($1, $%d, $2)", i+3)
		args = append(args, id)
	}
	q := `INSERT INTO batch_documents (batch_id, document_id, added_at) VALUES ` + values +
		` ON CONFLICT (batch_id, document_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// Watermarks reads per-member ledger and finding watermarks. The lateral
// joins touch only member rows, so the cost follows batch size rather than
// ledger size.
func (r *BatchPostgres) Watermarks(ctx context.Context, batchID string) (map[string]model.Watermark, error) {
	const q = `
		SELECT bd.document_id, e.cnt, e.last_at, f.updated_at
		FROM batch_documents bd
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS cnt, MAX(created_at) AS last_at
			FROM action_events ae
			WHERE ae.document_id = bd.document_id
		) e ON true
		LEFT JOIN LATERAL (
			SELECT MAX(updated_at) AS updated_at
			FROM findings fi
			WHERE fi.document_id = bd.document_id
		) f ON true
		WHERE bd.batch_id = $1
	`
	rows, err := r.db.QueryContext(ctx, q, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]model.Watermark)
	for rows.Next() {
		var (
			id        string
			count     sql.NullInt64
			lastAt    sql.NullTime
			updatedAt sql.NullTime
		)
		if err := rows.Scan(&id, &count, &lastAt, &updatedAt); err != nil {
			return nil, err
		}
		out[id] = model.Watermark{
			EventCount:     int(count.Int64),
			LastEventAt:    lastAt.Time,
			FindingsUpdate: updatedAt.Time,
		}
	}
	return out, rows.Err()
}
