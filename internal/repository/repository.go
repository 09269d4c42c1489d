// Package repository contains data access abstractions for the preflight
// ledger. Implementations live in subpackages (postgres, memory) and contain
// no gate or authorization logic.
package repository

import (
	"database/sql"
	"errors"

	"preflight/internal/model"
)

// ErrNotFound is returned by lookups of a single missing row. It is
// sql.ErrNoRows so callers can test either name with errors.Is.
var ErrNotFound = sql.ErrNoRows

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}

// Snapshot is a consistent read of everything gate evaluation needs for one
// document. No event appended concurrently is partially visible in it.
type Snapshot struct {
	Document model.Document
	Findings []model.Finding
	History  []model.ActionEvent
}

// Store groups the repositories a service needs.
type Store struct {
	Documents DocumentRepository
	Findings  FindingRepository
	Events    EventRepository
	Batches   BatchRepository
	Requests  RequestRepository
	Snapshots SnapshotReader
}

// ErrConflict is returned when creating a record whose id already exists.
var ErrConflict = errors.New("record already exists")

// ErrStaleLedger is returned by EventRepository.Append when the document's
// ledger no longer has the length the caller evaluated against.
var ErrStaleLedger = errors.New("ledger changed since it was read")

// AnyLength disables the ledger length precondition of Append.
const AnyLength = -1
