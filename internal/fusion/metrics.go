package fusion

import "github.com/prometheus/client_golang/prometheus"

var (
	verdictTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_fusion_verdicts_total",
			Help: "Fusion verdicts by intent and sentiment.",
		},
		[]string{"intent", "sentiment"},
	)
	degradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_fusion_degraded_total",
			Help: "Verdicts that fell back to keyword sentiment, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(verdictTotal, degradedTotal)
}
