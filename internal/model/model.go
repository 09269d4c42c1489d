// Package model contains the preflight domain types shared by every layer.
// Types here carry JSON tags for the API but no persistence details.
package model

import (
	"fmt"
	"strings"
)

// ActionType is a reviewer action recorded in the ledger.
type ActionType string

const (
	ActionAcceptRisk             ActionType = "accept_risk"
	ActionGenerateCopy           ActionType = "generate_copy"
	ActionEscalateOCR            ActionType = "escalate_ocr"
	ActionOverrideRed            ActionType = "override_red"
	ActionReconstructionComplete ActionType = "reconstruction_complete"
)

// ActionTypes lists the closed action set in selection priority order.
var ActionTypes = []ActionType{
	ActionEscalateOCR,
	ActionOverrideRed,
	ActionAcceptRisk,
	ActionGenerateCopy,
	ActionReconstructionComplete,
}

// ParseActionType validates s against the closed action set.
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(strings.TrimSpace(s))
	for _, known := range ActionTypes {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// GateColor is the readiness signal of a document.
type GateColor string

const (
	GateRed    GateColor = "RED"
	GateYellow GateColor = "YELLOW"
	GateGreen  GateColor = "GREEN"
)

// GateColors lists every gate color, most severe first.
var GateColors = []GateColor{GateRed, GateYellow, GateGreen}

// ParseGateColor accepts a gate color in any letter case.
func ParseGateColor(s string) (GateColor, error) {
	c := GateColor(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range GateColors {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown gate color %q", s)
}

// CustodyRole is the role asserted by the actor making a request.
type CustodyRole string

const (
	RoleAnalyst   CustodyRole = "analyst"
	RoleVerifier  CustodyRole = "verifier"
	RoleAdmin     CustodyRole = "admin"
	RoleArchitect CustodyRole = "architect"
)

// CustodyRoles lists the known roles from least to most privileged.
var CustodyRoles = []CustodyRole{RoleAnalyst, RoleVerifier, RoleAdmin, RoleArchitect}

func ParseCustodyRole(s string) (CustodyRole, error) {
	r := CustodyRole(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range CustodyRoles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown custody role %q", s)
}
