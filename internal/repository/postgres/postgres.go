// Package postgres implements the repository interfaces on PostgreSQL using
// database/sql with the pgx driver. Queries are parameterized; no gate or
// authorization logic lives here.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"preflight/internal/repository"
)

// NewStore wires every PostgreSQL repository onto db.
func NewStore(db *sql.DB) repository.Store {
	return repository.Store{
		Documents: NewDocumentPostgres(db),
		Findings:  NewFindingPostgres(db),
		Events:    NewEventPostgres(db),
		Batches:   NewBatchPostgres(db),
		Requests:  NewRequestPostgres(db),
		Snapshots: NewSnapshotPostgres(db),
	}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// placeholders returns "$start, $start+1, ..." for n parameters.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}
