// Package custody decides which custody roles may apply which actions in
// which gate states. The decision is a pure lookup over a declarative table.
package custody

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"preflight/internal/model"
)

// DenyReason tells callers why an action was refused.
type DenyReason string

const (
	ReasonNone             DenyReason = ""
	ReasonUnknownAction    DenyReason = "unknown_action"
	ReasonRoleInsufficient DenyReason = "role_insufficient"
	ReasonIllegalState     DenyReason = "illegal_state"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Rule permits Role to apply Action while the gate is one of Colors.
type Rule struct {
	Role   model.CustodyRole `yaml:"role"`
	Action model.ActionType  `yaml:"action"`
	Colors []model.GateColor `yaml:"colors"`
}

// Policy is the full rule table. Extend it by appending rows.
type Policy []Rule

// DefaultPolicy is used when no policy file is configured.
func DefaultPolicy() Policy {
	all := model.CustodyRoles
	elevated := []model.CustodyRole{model.RoleVerifier, model.RoleAdmin, model.RoleArchitect}
	admins := []model.CustodyRole{model.RoleAdmin, model.RoleArchitect}

	var p Policy
	p = p.grant(all, model.ActionEscalateOCR, model.GateRed, model.GateYellow)
	p = p.grant(all, model.ActionGenerateCopy, model.GateYellow, model.GateGreen)
	p = p.grant(elevated, model.ActionAcceptRisk, model.GateRed, model.GateYellow)
	p = p.grant(admins, model.ActionOverrideRed, model.GateRed)
	p = p.grant(elevated, model.ActionReconstructionComplete, model.GateRed, model.GateYellow)
	return p
}

func (p Policy) grant(roles []model.CustodyRole, action model.ActionType, colors ...model.GateColor) Policy {
	for _, r := range roles {
		p = append(p, Rule{Role: r, Action: action, Colors: colors})
	}
	return p
}

// Validate rejects rows naming unknown roles, actions or colors.
func (p Policy) Validate() error {
	for i, rule := range p {
		if _, err := model.ParseCustodyRole(string(rule.Role)); err != nil {
			return fmt.Errorf("policy row %d: %w", i, err)
		}
		if _, err := model.ParseActionType(string(rule.Action)); err != nil {
			return fmt.Errorf("policy row %d: %w", i, err)
		}
		if len(rule.Colors) == 0 {
			return fmt.Errorf("policy row %d: colors are required", i)
		}
		for _, c := range rule.Colors {
			if _, err := model.ParseGateColor(string(c)); err != nil {
				return fmt.Errorf("policy row %d: %w", i, err)
			}
		}
	}
	return nil
}

type policyFile struct {
	Rules Policy `yaml:"rules"`
}

// LoadPolicyFile reads a YAML rule table of the form:
//
//	rules:
//	  - role: admin
//	    action: override_red
//	    colors: [RED]
func LoadPolicyFile(path string) (Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(b)
}

// ParsePolicy decodes and validates a YAML rule table.
func ParsePolicy(b []byte) (Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("policy has no rules")
	}
	if err := f.Rules.Validate(); err != nil {
		return nil, err
	}
	return f.Rules, nil
}

type ruleKey struct {
	role   model.CustodyRole
	action model.ActionType
}

// Authorizer answers Authorize from an indexed Policy. It is immutable after
// construction and safe for concurrent use.
type Authorizer struct {
	rules   map[ruleKey]map[model.GateColor]bool
	actions map[model.ActionType]bool
}

// NewAuthorizer indexes p. Rows for the same (role, action) pair are merged.
func NewAuthorizer(p Policy) *Authorizer {
	a := &Authorizer{
		rules:   make(map[ruleKey]map[model.GateColor]bool),
		actions: make(map[model.ActionType]bool),
	}
	for _, rule := range p {
		k := ruleKey{role: rule.Role, action: rule.Action}
		colors, ok := a.rules[k]
		if !ok {
			colors = make(map[model.GateColor]bool)
			a.rules[k] = colors
		}
		for _, c := range rule.Colors {
			colors[c] = true
		}
		a.actions[rule.Action] = true
	}
	return a
}

// Authorize decides whether role may apply action while the gate is color.
func (a *Authorizer) Authorize(role model.CustodyRole, action model.ActionType, color model.GateColor) Decision {
	if !a.actions[action] {
		return Decision{Reason: ReasonUnknownAction}
	}
	colors, ok := a.rules[ruleKey{role: role, action: action}]
	if !ok {
		return Decision{Reason: ReasonRoleInsufficient}
	}
	if !colors[color] {
		return Decision{Reason: ReasonIllegalState}
	}
	return Decision{Allowed: true}
}

// RolePermits decides whether role may apply action at some gate color. It
// runs before any ledger read, so replaying another role's idempotency key
// is refused like a fresh submission.
func (a *Authorizer) RolePermits(role model.CustodyRole, action model.ActionType) Decision {
	if !a.actions[action] {
		return Decision{Reason: ReasonUnknownAction}
	}
	if len(a.rules[ruleKey{role: role, action: action}]) == 0 {
		return Decision{Reason: ReasonRoleInsufficient}
	}
	return Decision{Allowed: true}
}

// LegalFor reports whether any role may apply action while the gate is color.
func (a *Authorizer) LegalFor(action model.ActionType, color model.GateColor) bool {
	for k, colors := range a.rules {
		if k.action == action && colors[color] {
			return true
		}
	}
	return false
}
