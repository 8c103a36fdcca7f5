package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HousekeepingMetrics records retention job runs.
type HousekeepingMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHousekeepingMetrics registers the housekeeping metrics.
func NewHousekeepingMetrics(reg prometheus.Registerer) *HousekeepingMetrics {
	if reg == nil {
		return &HousekeepingMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "housekeeping_job_runs_total",
		Help: "Housekeeping job runs by outcome.",
	}, []string{"job", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "housekeeping_job_duration_seconds",
		Help:    "Housekeeping job run time.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	reg.MustRegister(runs, duration)
	return &HousekeepingMetrics{runs: runs, duration: duration}
}

// ObserveJob records one run of job.
func (h *HousekeepingMetrics) ObserveJob(job, outcome string, d time.Duration) {
	if h == nil || h.runs == nil {
		return
	}
	h.runs.WithLabelValues(normalizeLabel(job), normalizeLabel(outcome)).Inc()
	h.duration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
}
