// Package metrics declares the prometheus collectors exported by the gate
// on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Decision labels used with GateDecisionsTotal.
const (
	DecisionForward   = "forward"
	DecisionBlock     = "block"
	DecisionChallenge = "challenge"
)

// Result labels used with TasksVerifiedTotal.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

var (
	// GateDecisionsTotal counts every decision the gate renders.
	GateDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cowcat_gate_decisions_total",
		Help: "Total number of gate decisions by outcome.",
	}, []string{"decision"})

	// TasksIssuedTotal counts every proof-of-work task handed out.
	TasksIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cowcat_tasks_issued_total",
		Help: "Total number of proof-of-work tasks issued.",
	})

	// TasksVerifiedTotal counts verify attempts by outcome.
	TasksVerifiedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cowcat_tasks_verified_total",
		Help: "Total number of proof-of-work verify attempts by result.",
	}, []string{"result"})

	// TaskStoreSize reports the current number of outstanding tasks.
	TaskStoreSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cowcat_task_store_size",
		Help: "Current number of outstanding, unconsumed proof-of-work tasks.",
	})
)

// MustRegister registers all collectors with reg. Call once at startup.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(GateDecisionsTotal, TasksIssuedTotal, TasksVerifiedTotal, TaskStoreSize)
}
