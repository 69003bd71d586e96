package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestRegistryTracksJitterAndSessions(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRegistry(reg)
	require.NoError(t, err)

	r.SetJitterDepth("sess-1", 42)
	r.IncJitterUnderrun("sess-1")
	r.IncJitterUnderrun("sess-1")
	r.SetPTPOffset("clock-1", -1500)
	r.SetSessionActive(true)

	assert := require.New(t)
	assert.Equal(float64(42), gaugeValue(t, r.JitterDepth.WithLabelValues("sess-1")))
	assert.Equal(float64(-1500), gaugeValue(t, r.PTPOffsetNS.WithLabelValues("clock-1")))
	assert.Equal(float64(1), gaugeValue(t, r.ActiveSessions))

	var underrunMetric dto.Metric
	require.NoError(t, r.JitterUnderrun.WithLabelValues("sess-1").Write(&underrunMetric))
	assert.Equal(float64(2), underrunMetric.GetCounter().GetValue())

	r.SetSessionActive(false)
	assert.Equal(float64(0), gaugeValue(t, r.ActiveSessions))
}

func TestNewRegistryRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRegistry(reg)
	require.NoError(t, err)

	_, err = NewRegistry(reg)
	require.Error(t, err)
}
