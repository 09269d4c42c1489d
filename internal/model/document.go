package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is identified by its anchor fingerprint. Re-ingesting the same
// content resolves to the same document and never resets its ledger.
type Document struct {
	ID             string    `json:"id"`
	Title          string    `json:"title,omitempty"`
	Source         string    `json:"source,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastIngestedAt time.Time `json:"last_ingested_at"`
}

// FindingStatus tracks a finding through upstream review.
type FindingStatus string

const (
	FindingOpen     FindingStatus = "open"
	FindingReview   FindingStatus = "review"
	FindingResolved FindingStatus = "resolved"
)

func ParseFindingStatus(s string) (FindingStatus, error) {
	switch st := FindingStatus(s); st {
	case FindingOpen, FindingReview, FindingResolved:
		return st, nil
	}
	return "", fmt.Errorf("unknown finding status %q", s)
}

// Finding is a quality flag raised upstream against a section of a document.
// The preflight core reads findings but only their status is ever updated.
type Finding struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	Section    string        `json:"section"`
	Code       string        `json:"code"`
	Status     FindingStatus `json:"status"`
	Detail     string        `json:"detail,omitempty"`
	FlaggedAt  time.Time     `json:"flagged_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Unresolved reports whether the finding still needs attention.
func (f Finding) Unresolved() bool {
	return f.Status == FindingOpen || f.Status == FindingReview
}

// ActionEvent is an immutable ledger entry. ActionID is the ledger sequence
// number and is strictly increasing in append order.
type ActionEvent struct {
	ActionID       int64           `json:"action_id"`
	DocumentID     string          `json:"document_id"`
	ActionType     ActionType      `json:"action_type"`
	ActorRole      CustodyRole     `json:"actor_role"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Batch groups documents, e.g. a worksheet. It owns no events.
type Batch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
