package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterCollectors(reg) })

	LeaseAcquire.WithLabelValues("policy", "granted").Inc()
	SweepRuns.WithLabelValues("skipped").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["council_lease_acquire_total"])
	require.True(t, names["council_sweep_runs_total"])

	// a second registry can hold the same collectors
	require.NotPanics(t, func() { RegisterCollectors(prometheus.NewRegistry()) })
	require.GreaterOrEqual(t, testutil.ToFloat64(LeaseAcquire.WithLabelValues("policy", "granted")), 1.0)
}
