package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	scansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sdmodeld",
			Subsystem: "registry",
			Name:      "scans_total",
			Help:      "Total number of model directory scans",
		},
	)

	scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sdmodeld",
			Subsystem: "registry",
			Name:      "scan_duration_seconds",
			Help:      "Duration of model directory scans in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	modelsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sdmodeld",
			Subsystem: "registry",
			Name:      "models",
			Help:      "Models found at the last scan",
		},
		[]string{"kind"},
	)

	triggersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sdmodeld",
			Subsystem: "embeddings",
			Name:      "triggers",
			Help:      "Entries in the embedding trigger table",
		},
	)

	promptsPrepared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sdmodeld",
			Subsystem: "prompt",
			Name:      "prepared_total",
			Help:      "Total number of prompts prepared for the backend",
		},
	)

	incompatibleEmbeddings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sdmodeld",
			Subsystem: "prompt",
			Name:      "incompatible_embeddings_total",
			Help:      "Embedding tokens that had no trigger for the current model",
		},
	)
)

func init() {
	prometheus.MustRegister(scansTotal, scanDuration, modelsGauge, triggersGauge, promptsPrepared, incompatibleEmbeddings)
}
