// Package gate derives a document's gate color and recommended next action
// from its findings and ledger history. Evaluation is a pure function: the
// same inputs always produce the same Evaluation.
package gate

import (
	"sort"
	"strings"
	"time"

	"preflight/internal/model"
)

// DefaultOCRCodePrefix marks finding codes that describe OCR quality problems.
const DefaultOCRCodePrefix = "OCR_"

// LegalityFunc reports whether any role may apply action at color.
type LegalityFunc func(action model.ActionType, color model.GateColor) bool

// Evaluator holds the static inputs of gate evaluation.
type Evaluator struct {
	legal     LegalityFunc
	ocrPrefix string
}

// NewEvaluator builds an Evaluator. A nil legal func treats every action as legal.
func NewEvaluator(legal LegalityFunc, ocrPrefix string) *Evaluator {
	if legal == nil {
		legal = func(model.ActionType, model.GateColor) bool { return true }
	}
	if ocrPrefix == "" {
		ocrPrefix = DefaultOCRCodePrefix
	}
	return &Evaluator{legal: legal, ocrPrefix: ocrPrefix}
}

// ledgerState is the fold of a document's history.
type ledgerState struct {
	pendingEscalation bool
	covered           bool
	coveredAt         time.Time
	reconstructed     bool
	copyCurrent       bool
}

func fold(history []model.ActionEvent) ledgerState {
	events := make([]model.ActionEvent, len(history))
	copy(events, history)
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ActionID < events[j].ActionID
	})

	var st ledgerState
	for _, ev := range events {
		switch ev.ActionType {
		case model.ActionEscalateOCR:
			// A new quality escalation contradicts any earlier override or acceptance.
			st.pendingEscalation = true
			st.covered = false
			st.reconstructed = false
			st.copyCurrent = false
		case model.ActionReconstructionComplete:
			st.pendingEscalation = false
			st.reconstructed = true
			st.copyCurrent = false
		case model.ActionOverrideRed, model.ActionAcceptRisk:
			st.covered = true
			st.coveredAt = ev.CreatedAt
			st.reconstructed = false
			st.copyCurrent = false
		case model.ActionGenerateCopy:
			st.copyCurrent = true
		}
	}
	return st
}

func (st ledgerState) covers(f model.Finding) bool {
	return st.covered && !f.FlaggedAt.After(st.coveredAt)
}

// Evaluate computes the gate of documentID.
func (e *Evaluator) Evaluate(documentID string, findings []model.Finding, history []model.ActionEvent) model.Evaluation {
	st := fold(history)

	var uncovered, coveredOpen, inReview []model.Finding
	var ocr []model.Finding
	var unresolved []model.Finding
	for _, f := range findings {
		if !f.Unresolved() {
			continue
		}
		unresolved = append(unresolved, f)
		if strings.HasPrefix(f.Code, e.ocrPrefix) {
			ocr = append(ocr, f)
		}
		switch {
		case f.Status == model.FindingReview:
			inReview = append(inReview, f)
		case st.covers(f):
			coveredOpen = append(coveredOpen, f)
		default:
			uncovered = append(uncovered, f)
		}
	}

	color := model.GateGreen
	switch {
	case st.pendingEscalation:
		color = model.GateYellow
	case len(uncovered) > 0:
		color = model.GateRed
	case len(coveredOpen) > 0 || len(inReview) > 0:
		color = model.GateYellow
	}

	candidates := map[model.ActionType][]model.Finding{}
	if !st.pendingEscalation && len(ocr) > 0 {
		candidates[model.ActionEscalateOCR] = ocr
	}
	if color == model.GateRed {
		candidates[model.ActionOverrideRed] = uncovered
	}
	if len(uncovered) > 0 {
		candidates[model.ActionAcceptRisk] = uncovered
	}
	if color != model.GateRed && !st.pendingEscalation && !st.copyCurrent {
		candidates[model.ActionGenerateCopy] = unresolved
	}
	if st.pendingEscalation || (color == model.GateYellow && !st.reconstructed) {
		candidates[model.ActionReconstructionComplete] = unresolved
	}

	out := model.Evaluation{
		DocumentID:        documentID,
		GateColor:         color,
		OpenFindings:      len(uncovered) + len(coveredOpen),
		PendingEscalation: st.pendingEscalation,
	}
	for _, action := range model.ActionTypes {
		motivating, ok := candidates[action]
		if !ok || !e.legal(action, color) {
			continue
		}
		selected := action
		out.SelectedAction = &selected
		out.FocusFinding = mostRecent(motivating)
		break
	}
	return out
}

// mostRecent returns the latest flagged finding; ties go to the larger id.
func mostRecent(findings []model.Finding) *model.Finding {
	if len(findings) == 0 {
		return nil
	}
	best := findings[0]
	for _, f := range findings[1:] {
		if f.FlaggedAt.After(best.FlaggedAt) || (f.FlaggedAt.Equal(best.FlaggedAt) && f.ID > best.ID) {
			best = f
		}
	}
	return &best
}
