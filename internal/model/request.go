package model

import (
	"encoding/json"
	"time"
)

// ReviewRequest is a request for information raised on a document. The
// preflight context is stored verbatim as supplied by the caller.
type ReviewRequest struct {
	ID               string          `json:"id"`
	DocumentID       string          `json:"document_id"`
	ActorRole        CustodyRole     `json:"actor_role"`
	Question         string          `json:"question"`
	PreflightContext json.RawMessage `json:"preflight_context,omitempty" swaggertype:"object"`
	CreatedAt        time.Time       `json:"created_at"`
}

// PreflightContext is the context the core supplies when a request carries none.
type PreflightContext struct {
	Source    string    `json:"source"`
	GateColor GateColor `json:"gate_color"`
	Findings  []Finding `json:"findings"`
}

// ExportEntry is one request in an export payload.
type ExportEntry struct {
	RequestID        string          `json:"request_id"`
	DocumentID       string          `json:"document_id"`
	Question         string          `json:"question"`
	CreatedAt        time.Time       `json:"created_at"`
	PreflightContext json.RawMessage `json:"preflight_context,omitempty" swaggertype:"object"`
}

// ExportPayload is the serialized export of a set of requests.
// MissingRequestIDs lists requested ids that do not exist.
type ExportPayload struct {
	ExportID          string        `json:"export_id"`
	GeneratedAt       time.Time     `json:"generated_at"`
	Entries           []ExportEntry `json:"entries"`
	MissingRequestIDs []string      `json:"missing_request_ids,omitempty"`
	DownloadURL       string        `json:"download_url,omitempty"`
}
