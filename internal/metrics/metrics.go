package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Queue metrics
	TasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aristobites_tasks_processed_total",
			Help: "Total number of pipeline tasks consumed, by queue and outcome",
		},
		[]string{"queue", "status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aristobites_stage_duration_seconds",
			Help:    "Wall-clock duration of each pipeline stage",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"queue"},
	)

	// Episode metrics
	EpisodesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aristobites_episodes_created_total",
			Help: "Total number of episodes created, by origin (api or scheduler)",
		},
		[]string{"origin"},
	)

	// Research workflow metrics
	ResearchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aristobites_research_runs_total",
			Help: "Total number of research workflow runs, by outcome",
		},
		[]string{"status"},
	)
)
