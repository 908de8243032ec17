package metrics

import (
	"net/netip"
	"testing"
	"time"

	"github.com/liamg/netradar/scan"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentProber(t *testing.T) {
	m := New(nil)

	reachable := scan.NewEndpoint(netip.MustParseAddr("192.168.1.1"), 80)
	prober := InstrumentProber(scan.ProberFunc(func(ep scan.Endpoint, _ time.Duration) bool {
		return ep == reachable
	}), m)

	assert.True(t, prober.Probe(reachable, time.Second))
	assert.False(t, prober.Probe(scan.NewEndpoint(reachable.Host, 81), time.Second))
	assert.False(t, prober.Probe(scan.NewEndpoint(reachable.Host, 82), time.Second))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.probes.WithLabelValues("reachable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.probes.WithLabelValues("unreachable")))
}

func TestSurveyLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SurveyStarted("host")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSurveys.WithLabelValues("host")))

	m.ObserveFinding("host")
	m.ObserveFinding("host")
	m.SurveyFinished("host", "completed", 2*time.Second)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeSurveys.WithLabelValues("host")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.findings.WithLabelValues("host")))

	count, err := testutil.GatherAndCount(reg, "netradar_survey_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
