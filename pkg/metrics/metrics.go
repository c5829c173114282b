package metrics

import (
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// GraphSnapshot is the subset of store statistics exported as gauges
type GraphSnapshot struct {
	Nodes      int
	Links      int
	Unresolved int
	Pinned     int
}

// UpdateGraph sets the graph gauges
func (r *Registry) UpdateGraph(s GraphSnapshot) {
	r.GraphNodes.Set(float64(s.Nodes))
	r.GraphLinks.Set(float64(s.Links))
	r.GraphUnresolvedLinks.Set(float64(s.Unresolved))
	r.GraphPinnedNodes.Set(float64(s.Pinned))
}

// RecordMerge counts one merge. result is "changed", "unchanged" or
// "unresolved".
func (r *Registry) RecordMerge(result string, duplicates int) {
	r.GraphMergesTotal.WithLabelValues(result).Inc()
	r.GraphDuplicatesIgnored.Add(float64(duplicates))
}

// RecordTick records one simulation tick
func (r *Registry) RecordTick(alpha float64, active bool, duration time.Duration) {
	r.LayoutTicksTotal.Inc()
	r.LayoutTickDuration.Observe(duration.Seconds())
	r.SetLayoutState(alpha, active)
}

// SetLayoutState sets the alpha and active gauges
func (r *Registry) SetLayoutState(alpha float64, active bool) {
	r.LayoutAlpha.Set(alpha)
	if active {
		r.LayoutActive.Set(1)
	} else {
		r.LayoutActive.Set(0)
	}
}

// RecordReheat counts a simulation restart. cause is "merge" or "drag".
func (r *Registry) RecordReheat(cause string) {
	r.LayoutReheatsTotal.WithLabelValues(cause).Inc()
}

// ExpansionStarted marks a load as in flight
func (r *Registry) ExpansionStarted() {
	r.ExpansionInFlight.Inc()
}

// RecordExpansion records a finished load. status is "success" or "error".
func (r *Registry) RecordExpansion(key, status string, duration time.Duration) {
	r.ExpansionInFlight.Dec()
	r.ExpansionRequestsTotal.WithLabelValues(key, status).Inc()
	r.ExpansionDuration.WithLabelValues(key).Observe(duration.Seconds())
}

// RecordTableReload counts a key table swap
func (r *Registry) RecordTableReload() {
	r.ExpansionTableReloads.Inc()
}

// TrackHTTPInFlight adjusts the in-flight request gauge by delta
func (r *Registry) TrackHTTPInFlight(delta float64) {
	r.HTTPRequestsInFlight.Add(delta)
}
