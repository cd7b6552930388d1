// Package metrics exposes Prometheus collectors for the client pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
)

var (
	stageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_stage_transitions_total",
			Help: "Total number of committed client stage transitions",
		},
		[]string{"from", "to"},
	)

	transitionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "client_stage_transition_conflicts_total",
			Help: "Total number of transition attempts that lost an optimistic concurrency race",
		},
	)

	transitionRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_stage_transition_rejections_total",
			Help: "Total number of transition requests rejected, by error type",
		},
		[]string{"reason"},
	)

	reportCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_report_cache_lookups_total",
			Help: "Conversion report cache lookups by result",
		},
		[]string{"result"},
	)
)

func RecordTransition(from, to enum.ClientStage) {
	stageTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func RecordConflict() {
	transitionConflicts.Inc()
}

func RecordRejection(reason string) {
	transitionRejections.WithLabelValues(reason).Inc()
}

func RecordCacheLookup(hit bool) {
	if hit {
		reportCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	reportCacheLookups.WithLabelValues("miss").Inc()
}
