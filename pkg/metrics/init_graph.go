package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "chainviz_graph_nodes",
			Help: "Addresses in the graph store",
		},
	)

	r.GraphLinks = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "chainviz_graph_links",
			Help: "Links in the graph store, resolved or not",
		},
	)

	r.GraphUnresolvedLinks = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "chainviz_graph_unresolved_links",
			Help: "Links with at least one endpoint missing from the store",
		},
	)

	r.GraphPinnedNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "chainviz_graph_pinned_nodes",
			Help: "Nodes currently pinned by a drag",
		},
	)

	r.GraphMergesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainviz_graph_merges_total",
			Help: "Payload merges by outcome",
		},
		[]string{"result"},
	)

	r.GraphDuplicatesIgnored = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "chainviz_graph_duplicate_nodes_ignored_total",
			Help: "Incoming nodes dropped because the address already existed",
		},
	)
}
