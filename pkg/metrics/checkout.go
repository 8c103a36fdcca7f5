package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout flow activity.
type CheckoutMetrics struct {
	transitions *prometheus.CounterVec
	submissions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_transitions_total",
		Help: "Checkout state machine transitions by target state.",
	}, []string{"from", "to"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions_total",
		Help: "Order submissions by outcome and payment method.",
	}, []string{"outcome", "method"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_submission_duration_seconds",
		Help:    "Time spent creating the order and dispatching payment.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	reg.MustRegister(transitions, submissions, duration)
	return &CheckoutMetrics{
		transitions: transitions,
		submissions: submissions,
		duration:    duration,
	}
}

// IncTransition counts a state change.
func (c *CheckoutMetrics) IncTransition(from, to string) {
	if c == nil || c.transitions == nil {
		return
	}
	c.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncSubmission counts a submission outcome such as completed, submission_failed or payment_failed.
func (c *CheckoutMetrics) IncSubmission(outcome, method string) {
	if c == nil || c.submissions == nil {
		return
	}
	c.submissions.WithLabelValues(normalizeLabel(outcome), normalizeLabel(method)).Inc()
}

// ObserveSubmission records how long a submission took.
func (c *CheckoutMetrics) ObserveSubmission(method string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(method)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
