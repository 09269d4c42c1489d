// Package metrics holds the preflight domain counters. HTTP metrics live in
// the middleware package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"preflight/internal/model"
)

// Action outcomes.
const (
	OutcomeAdmitted  = "admitted"
	OutcomeDuplicate = "duplicate"
	OutcomeDenied    = "denied"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	actions         *prometheus.CounterVec
	gateEvaluations *prometheus.CounterVec
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preflight_actions_total",
				Help: "Action submissions by action type and outcome.",
			},
			[]string{"action", "outcome"},
		),
		gateEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preflight_gate_evaluations_total",
				Help: "Gate evaluations by resulting color.",
			},
			[]string{"color"},
		),
	}
	for _, c := range []prometheus.Collector{m.actions, m.gateEvaluations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveAction(action model.ActionType, outcome string) {
	if m == nil {
		return
	}
	label := string(action)
	if label == "" {
		label = "unknown"
	}
	m.actions.WithLabelValues(label, outcome).Inc()
}

func (m *Metrics) ObserveGate(color model.GateColor) {
	if m == nil {
		return
	}
	m.gateEvaluations.WithLabelValues(string(color)).Inc()
}
