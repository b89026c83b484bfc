package upsell

import "github.com/prometheus/client_golang/prometheus"

var (
	sourceUnavailable = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_upsell_source_unavailable_total",
			Help: "Upsell sources omitted from a ranking because they failed or timed out.",
		},
		[]string{"source"},
	)
	offersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_upsell_offered_total",
			Help: "Upsell candidates shown to customers by source and kind.",
		},
		[]string{"source", "kind"},
	)
	acceptedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_upsell_accepted_total",
			Help: "Offers the customer later added to the cart by source and kind.",
		},
		[]string{"source", "kind"},
	)
	acceptedValue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_upsell_accepted_value_total",
			Help: "Sum of the offered prices of accepted upsells.",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(sourceUnavailable, offersTotal, acceptedTotal, acceptedValue)
}
