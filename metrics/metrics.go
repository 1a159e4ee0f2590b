// Package metrics exposes Prometheus instrumentation for the rankup service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons recorded by the bulk import path.
const (
	SkipUnresolved     = "unresolved"
	SkipDuplicateInput = "duplicate_input"
	SkipAlreadyExists  = "already_exists"
	SkipFailed         = "failed"
)

var (
	// ParticipationsCreated counts successful single and bulk creations.
	ParticipationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rankup",
		Name:      "participations_created_total",
		Help:      "Number of participations created.",
	})

	// ParticipationsDeleted counts successful deletions.
	ParticipationsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rankup",
		Name:      "participations_deleted_total",
		Help:      "Number of participations deleted.",
	})

	// BulkRowsSkipped counts bulk import rows skipped, by reason.
	BulkRowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rankup",
		Name:      "bulk_rows_skipped_total",
		Help:      "Number of bulk import rows skipped, labeled by reason.",
	}, []string{"reason"})

	// ReconciliationRuns counts completed reconciliation passes.
	ReconciliationRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rankup",
		Name:      "reconciliation_runs_total",
		Help:      "Number of completed reconciliation passes.",
	})
)
