// Package metrics exposes the receiver/sender's runtime counters as
// Prometheus metrics: jitter buffer depth and underrun counts, PTP
// clock offset, and active-session count.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds the metrics this module publishes, registered
// against a caller-supplied prometheus.Registerer (typically
// prometheus.DefaultRegisterer, or an isolated registry in tests).
type Registry struct {
	JitterDepth    *prometheus.GaugeVec
	JitterUnderrun *prometheus.CounterVec
	PTPOffsetNS    *prometheus.GaugeVec
	ActiveSessions prometheus.Gauge
}

// NewRegistry constructs and registers the metric collectors against reg.
func NewRegistry(reg prometheus.Registerer) (*Registry, error) {
	r := &Registry{
		JitterDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "raopx",
			Subsystem: "jitter",
			Name:      "buffer_depth_packets",
			Help:      "Current adaptive jitter buffer depth, in packets.",
		}, []string{"session_id"}),
		JitterUnderrun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raopx",
			Subsystem: "jitter",
			Name:      "underruns_total",
			Help:      "Number of jitter buffer underrun (packet-loss-concealment) events.",
		}, []string{"session_id"}),
		PTPOffsetNS: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "raopx",
			Subsystem: "ptp",
			Name:      "clock_offset_nanoseconds",
			Help:      "Median-filtered PTP slave clock offset from the master, in nanoseconds.",
		}, []string{"clock_identity"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raopx",
			Subsystem: "session",
			Name:      "active",
			Help:      "1 if a streaming session is currently active, 0 otherwise.",
		}),
	}

	collectors := []prometheus.Collector{r.JitterDepth, r.JitterUnderrun, r.PTPOffsetNS, r.ActiveSessions}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SetJitterDepth records the current buffer depth for a session.
func (r *Registry) SetJitterDepth(sessionID string, depthPackets int) {
	r.JitterDepth.WithLabelValues(sessionID).Set(float64(depthPackets))
}

// IncJitterUnderrun records one PLC/underrun event for a session.
func (r *Registry) IncJitterUnderrun(sessionID string) {
	r.JitterUnderrun.WithLabelValues(sessionID).Inc()
}

// SetPTPOffset records the current clock offset estimate for a PTP
// clock identity.
func (r *Registry) SetPTPOffset(clockIdentity string, offsetNS int64) {
	r.PTPOffsetNS.WithLabelValues(clockIdentity).Set(float64(offsetNS))
}

// SetSessionActive flips the active-session gauge.
func (r *Registry) SetSessionActive(active bool) {
	if active {
		r.ActiveSessions.Set(1)
	} else {
		r.ActiveSessions.Set(0)
	}
}
