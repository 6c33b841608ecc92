// Package metrics holds the Prometheus instruments of the back office.
// They register on the default registry and are served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess  = "success"
	ResultDegraded = "degraded"
	ResultRejected = "rejected"
	ResultError    = "error"
	ResultReplayed = "replayed"
)

var (
	// OrdersSubmitted counts submitOrder outcomes. "degraded" means the order
	// committed but the print job did not reach the queue.
	OrdersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_submitted_total",
			Help: "Total number of order submissions by result",
		},
		[]string{"result"},
	)

	// KOTEnqueue counts print-kot publish attempts by source (order, reprint,
	// sweeper).
	KOTEnqueue = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kot_enqueue_total",
			Help: "Total number of print-kot enqueue attempts",
		},
		[]string{"source", "result"},
	)

	KOTPrinted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kot_printed_total",
			Help: "Total number of print jobs handled by the printer worker",
		},
		[]string{"result"},
	)

	PaymentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_processed_total",
			Help: "Total number of payment attempts by result",
		},
		[]string{"result"},
	)

	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of booking attempts by result",
		},
		[]string{"result"},
	)

	InvoiceNumberRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invoice_number_retries_total",
			Help: "Invoice inserts retried after an invoice number collision",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state",
		},
		[]string{"name"},
	)
)
