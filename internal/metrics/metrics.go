package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BorrowingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "library",
		Name:      "borrowings_created_total",
		Help:      "Successfully created borrowings.",
	})
	BorrowingsReturned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "library",
		Name:      "borrowings_returned_total",
		Help:      "Successfully returned borrowings.",
	})
	FinesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "library",
		Name:      "fines_issued_total",
		Help:      "Fine records created by the overdue scan.",
	})
	FinesWaived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "library",
		Name:      "fines_waived_total",
		Help:      "Pending fines waived by an administrator.",
	})
	PaymentsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "library",
		Name:      "payments_confirmed_total",
		Help:      "Payments transitioned to PAID.",
	})
	PaymentsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "library",
		Name:      "payments_expired_total",
		Help:      "Stale pending payments expired by the cleanup sweep.",
	})
	GatewayErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "library",
		Name:      "gateway_errors_total",
		Help:      "Failed calls to the payment gateway.",
	})
)
