package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TicketsIssued   prometheus.Counter
	CheckIns        *prometheus.CounterVec
	VerifyDuration  prometheus.Histogram
	BookingsCreated prometheus.Counter
	PublishFailures *prometheus.CounterVec
}

// New registers the service metrics with reg.  Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TicketsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Total number of ticket credentials issued",
		}),
		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_attempts_total",
			Help: "Check-in attempts by outcome (CHECKED_IN, rejection kind, or ERROR)",
		}, []string{"outcome"}),
		VerifyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkin_verify_duration_seconds",
			Help:    "Duration of ticket verification including the booking store round trips",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		BookingsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of bookings created",
		}),
		PublishFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_publish_failures_total",
			Help: "Messages that could not be published, by queue",
		}, []string{"queue"}),
	}
}

func (m *Metrics) TicketIssued() {
	m.TicketsIssued.Inc()
}

func (m *Metrics) CheckInOutcome(outcome string, elapsed time.Duration) {
	m.CheckIns.WithLabelValues(outcome).Inc()
	m.VerifyDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) BookingCreated() {
	m.BookingsCreated.Inc()
}

func (m *Metrics) PublishFailed(queue string) {
	m.PublishFailures.WithLabelValues(queue).Inc()
}
