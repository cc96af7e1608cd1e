package progress

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingestion_jobs_created_total",
		Help: "Number of ingestion jobs created.",
	})

	jobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_jobs_finished_total",
		Help: "Number of ingestion jobs finished, by outcome.",
	}, []string{"outcome"})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingestion_job_duration_seconds",
		Help:    "Wall time of finished ingestion jobs.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	stageTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_stage_transitions_total",
		Help: "Stage transitions by stage and resulting status.",
	}, []string{"stage", "status"})
)

func observeJobCreated() {
	jobsCreated.Inc()
}

func observeJobFinished(failed bool, d time.Duration) {
	outcome := "success"
	if failed {
		outcome = "error"
	}
	jobsFinished.WithLabelValues(outcome).Inc()
	jobDuration.Observe(d.Seconds())
}

func observeStageTransition(stageID string, status StageStatus) {
	stageTransitions.WithLabelValues(stageID, string(status)).Inc()
}
