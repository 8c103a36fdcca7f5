package metrics

import "github.com/prometheus/client_golang/prometheus"

// TrackerMetrics records live order tracking activity.
type TrackerMetrics struct {
	events     *prometheus.CounterVec
	reconnects *prometheus.CounterVec
	active     prometheus.Gauge
}

// NewTrackerMetrics registers the tracker metrics on the provided registerer.
func NewTrackerMetrics(reg prometheus.Registerer) *TrackerMetrics {
	if reg == nil {
		return &TrackerMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_status_events_total",
		Help: "Status events received by outcome (applied or ignored).",
	}, []string{"outcome"})
	reconnects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_feed_reconnects_total",
		Help: "Status feed reconnect attempts by source.",
	}, []string{"source"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_active_sessions",
		Help: "Sessions with a running order tracker.",
	})
	reg.MustRegister(events, reconnects, active)
	return &TrackerMetrics{
		events:     events,
		reconnects: reconnects,
		active:     active,
	}
}

// IncEvent counts a status event by outcome.
func (t *TrackerMetrics) IncEvent(outcome string) {
	if t == nil || t.events == nil {
		return
	}
	t.events.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncReconnect counts a feed reconnect attempt.
func (t *TrackerMetrics) IncReconnect(source string) {
	if t == nil || t.reconnects == nil {
		return
	}
	t.reconnects.WithLabelValues(normalizeLabel(source)).Inc()
}

// SetActive records the number of running trackers.
func (t *TrackerMetrics) SetActive(n int) {
	if t == nil || t.active == nil {
		return
	}
	t.active.Set(float64(n))
}
