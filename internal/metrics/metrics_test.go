package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMustRegisterRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)

	// Vector collectors only report once a label combination exists.
	GateDecisionsTotal.WithLabelValues(DecisionForward)
	TasksVerifiedTotal.WithLabelValues(ResultAccepted)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 4)
}

func TestGateDecisionsTotalCountsByLabel(t *testing.T) {
	GateDecisionsTotal.Reset()
	GateDecisionsTotal.WithLabelValues(DecisionForward).Inc()
	GateDecisionsTotal.WithLabelValues(DecisionForward).Inc()
	GateDecisionsTotal.WithLabelValues(DecisionBlock).Inc()

	expected := `
		# HELP cowcat_gate_decisions_total Total number of gate decisions by outcome.
		# TYPE cowcat_gate_decisions_total counter
		cowcat_gate_decisions_total{decision="block"} 1
		cowcat_gate_decisions_total{decision="forward"} 2
	`
	require.NoError(t, testutil.CollectAndCompare(GateDecisionsTotal, strings.NewReader(expected)))
}

func TestTaskStoreSizeReportsGaugeValue(t *testing.T) {
	TaskStoreSize.Set(7)

	expected := `
		# HELP cowcat_task_store_size Current number of outstanding, unconsumed proof-of-work tasks.
		# TYPE cowcat_task_store_size gauge
		cowcat_task_store_size 7
	`
	require.NoError(t, testutil.CollectAndCompare(TaskStoreSize, strings.NewReader(expected)))
}
