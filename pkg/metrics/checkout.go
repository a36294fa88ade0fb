package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks checkout commit outcomes and stock reservation
// contention.
type CheckoutMetrics struct {
	duration            *prometheus.HistogramVec
	commits             *prometheus.CounterVec
	reservationConflict prometheus.Counter
	reservationsSwept   prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout commits in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_commits_total",
		Help: "Checkout commit attempts by outcome.",
	}, []string{"outcome"})
	reservationConflict := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_reservation_conflicts_total",
		Help: "Stock reservations rejected because availability was insufficient.",
	})
	reservationsSwept := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_reservations_swept_total",
		Help: "Expired pending reservations released by the sweeper.",
	})
	reg.MustRegister(duration, commits, reservationConflict, reservationsSwept)
	return &CheckoutMetrics{
		duration:            duration,
		commits:             commits,
		reservationConflict: reservationConflict,
		reservationsSwept:   reservationsSwept,
	}
}

// ObserveCommit records one checkout attempt with its outcome label.
func (c *CheckoutMetrics) ObserveCommit(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
	c.commits.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncReservationConflict counts an insufficient-stock rejection.
func (c *CheckoutMetrics) IncReservationConflict() {
	if c == nil || c.reservationConflict == nil {
		return
	}
	c.reservationConflict.Inc()
}

// AddReservationsSwept counts reservations released by the expiry sweep.
func (c *CheckoutMetrics) AddReservationsSwept(n int) {
	if c == nil || c.reservationsSwept == nil || n <= 0 {
		return
	}
	c.reservationsSwept.Add(float64(n))
}
