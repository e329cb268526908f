package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Record outcome labels.
const (
	OutcomeCreated  = "created"
	OutcomeUpdated  = "updated"
	OutcomeFiltered = "filtered"
	OutcomeFailed   = "failed"
)

var (
	// CollectorRuns counts reconciliation passes by terminal status.
	CollectorRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "superodds_collector_runs_total",
		Help: "Reconciliation passes by status (ok|failed|skipped).",
	}, []string{"status"})

	// RecordOutcomes counts per-record ingestion outcomes.
	RecordOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "superodds_records_total",
		Help: "Ingested feed records by outcome.",
	}, []string{"outcome"})

	// Notifications counts outbound delivery results.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "superodds_notifications_total",
		Help: "Outbound notification attempts by result (sent|failed).",
	}, []string{"status"})
)
