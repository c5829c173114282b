package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initExpansionMetrics() {
	r.ExpansionRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainviz_expansion_requests_total",
			Help: "Expansion loads by key and status",
		},
		[]string{"key", "status"},
	)

	r.ExpansionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainviz_expansion_duration_seconds",
			Help:    "Time to fetch an expansion payload",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"key"},
	)

	r.ExpansionInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "chainviz_expansion_in_flight",
			Help: "Expansion loads not yet merged",
		},
	)

	r.ExpansionTableReloads = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "chainviz_expansion_table_reloads_total",
			Help: "Key table swaps applied",
		},
	)

	r.PresenterClients = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "chainviz_presenter_clients",
			Help: "Connected frame subscribers",
		},
	)

	r.PresenterFramesDropped = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "chainviz_presenter_frames_dropped_total",
			Help: "Frames skipped because a subscriber was behind",
		},
	)
}
