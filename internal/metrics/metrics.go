package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "schoollend"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	reservationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_created_total",
			Help:      "Reservations submitted through the wizard by device category.",
		},
		[]string{"category"},
	)

	scans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scanner lookups by outcome.",
		},
		[]string{"outcome"},
	)

	overdueReservations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_reservations",
			Help:      "Active reservations whose end day has passed, as of the last check.",
		},
	)
)

// Scan outcomes.
const (
	ScanFound    = "found"
	ScanNotFound = "not_found"
	ScanTimeout  = "timeout"
	ScanCanceled = "canceled"
	ScanApproved = "approved"
	ScanRejected = "rejected"
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationsCreated, scans, overdueReservations)
	})
}

// IncHTTP increments the counter for a route template and status code.
func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}

func IncReservationCreated(category string) {
	reservationsCreated.WithLabelValues(category).Inc()
}

func IncScan(outcome string) {
	scans.WithLabelValues(outcome).Inc()
}

func SetOverdue(n int) {
	overdueReservations.Set(float64(n))
}
