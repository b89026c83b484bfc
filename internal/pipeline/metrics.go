package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_pipeline_messages_total",
			Help: "Inbound messages by outcome.",
		},
		[]string{"status"},
	)
	processDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_pipeline_duration_seconds",
			Help:    "Time to process one accepted message end to end.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)
	collaboratorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_pipeline_collaborator_failures_total",
			Help: "Failed calls to external collaborators by name.",
		},
		[]string{"collaborator"},
	)
)

func init() {
	prometheus.MustRegister(messagesTotal, processDuration, collaboratorFailures)
}
