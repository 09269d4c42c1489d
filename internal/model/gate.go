package model

import "time"

// Evaluation is the derived gate state of a single document.
type Evaluation struct {
	DocumentID        string      `json:"document_id"`
	GateColor         GateColor   `json:"gate_color"`
	SelectedAction    *ActionType `json:"selected_action"`
	FocusFinding      *Finding    `json:"focus_finding,omitempty"`
	OpenFindings      int         `json:"open_findings"`
	PendingEscalation bool        `json:"pending_escalation"`
}

// ActionResult is the contracted response of an action submission.
// LatestEvent is the newest event of the document; Event is the one
// recorded under the submitted idempotency key. They differ only when a
// duplicate arrives after later actions.
type ActionResult struct {
	SelectedAction    *ActionType  `json:"selected_action"`
	LatestEvent       *ActionEvent `json:"latest_event"`
	Event             *ActionEvent `json:"event"`
	ActionEventsCount int          `json:"action_events_count"`
	GateColor         GateColor    `json:"gate_color"`
	Duplicate         bool         `json:"duplicate"`
}

// BatchHealth is a recomputable view over the member documents of a batch.
type BatchHealth struct {
	BatchID           string            `json:"batch_id"`
	CountsByGateColor map[GateColor]int `json:"counts_by_gate_color"`
	TotalDocuments    int               `json:"total_documents"`
	ActionEventsTotal int               `json:"action_events_total"`
	LastUpdated       time.Time         `json:"last_updated"`
}

// Watermark summarises the ledger and finding state of one document so a
// cached gate color can be checked for staleness without reading history.
type Watermark struct {
	EventCount     int       `json:"event_count"`
	LastEventAt    time.Time `json:"last_event_at"`
	FindingsUpdate time.Time `json:"findings_updated_at"`
}

// Latest returns the newer of the event and finding timestamps.
func (w Watermark) Latest() time.Time {
	if w.FindingsUpdate.After(w.LastEventAt) {
		return w.FindingsUpdate
	}
	return w.LastEventAt
}
