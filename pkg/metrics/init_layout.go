package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLayoutMetrics() {
	r.LayoutTicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "chainviz_layout_ticks_total",
			Help: "Simulation ticks executed",
		},
	)

	r.LayoutAlpha = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "chainviz_layout_alpha",
			Help: "Current simulation energy",
		},
	)

	r.LayoutActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "chainviz_layout_active",
			Help: "1 while the simulation is ticking, 0 once settled",
		},
	)

	r.LayoutReheatsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainviz_layout_reheats_total",
			Help: "Simulation restarts by cause",
		},
		[]string{"cause"},
	)

	r.LayoutTickDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chainviz_layout_tick_duration_seconds",
			Help:    "Time spent in one simulation tick",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)
}
