// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fines"

// Mirror operation results.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Settlement outcomes.
const (
	OutcomeSettled    = "settled"
	OutcomeNothingDue = "nothing_due"
	OutcomeFailed     = "failed"
)

// Settlements counts settlement attempts by outcome.
var Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "settlement",
	Name:      "attempts_total",
	Help:      "Settlement attempts by outcome.",
}, []string{"outcome"})

// AmountSettled sums the currency marked paid.
var AmountSettled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "settlement",
	Name:      "amount_total",
	Help:      "Total amount marked paid.",
})

// InfractionsRecorded counts created records by category code.
var InfractionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "infractions",
	Name:      "recorded_total",
	Help:      "Infractions recorded by category.",
}, []string{"code"})

// MirrorOperations counts mirror writes by operation and result.
var MirrorOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "mirror",
	Name:      "operations_total",
	Help:      "Mirror synchronization attempts by operation and result.",
}, []string{"op", "result"})

// NotificationsSent counts persisted notifications.
var NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "notify",
	Name:      "sent_total",
	Help:      "Notifications persisted.",
})
