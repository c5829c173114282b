package session

import (
	"context"
	"errors"

	"github.com/dd0wney/cluso-chainviz/pkg/expansion"
	"github.com/dd0wney/cluso-chainviz/pkg/graph"
	"github.com/dd0wney/cluso-chainviz/pkg/logging"
	"github.com/dd0wney/cluso-chainviz/pkg/pubsub"
)

// expand starts a fetch for key. It runs on the loop and never blocks:
// the fetch happens on its own goroutine and the result comes back as an
// event.
func (s *Session) expand(key string) {
	s.metrics.ExpansionStarted()

	req, err := s.table.Request(key)
	if err != nil {
		s.finish(expansion.Result{Request: expansion.Request{Key: key}, Err: err})
		return
	}

	s.logger.Info("expansion started",
		logging.Key(req.Key),
		logging.Source(req.Source),
		logging.RequestID(req.ID),
	)

	ctx, cancel := context.WithTimeout(s.runCtx, s.fetchTimeout)
	s.fetches.Add(1)
	expansion.Go(ctx, s.loader, req, func(res expansion.Result) {
		defer s.fetches.Done()
		cancel()
		s.post(func() { s.finish(res) })
	})
}

// finish is the continuation of every expansion: merge and reheat on
// success, report once on failure. The store is untouched on failure.
func (s *Session) finish(res expansion.Result) {
	req := res.Request
	ev := ExpansionEvent{
		RequestID:  req.ID,
		Key:        req.Key,
		Source:     req.Source,
		DurationMS: res.Duration.Milliseconds(),
	}

	if res.Failed() {
		s.metrics.RecordExpansion(req.Key, "error", res.Duration)
		s.logger.Error("expansion failed",
			logging.Key(req.Key),
			logging.Source(req.Source),
			logging.RequestID(req.ID),
			logging.Error(res.Err),
		)
		ev.Status = StatusFailed
		ev.Error = res.Err.Error()
		s.bus.Publish(pubsub.TopicExpansion, ev)
		return
	}

	s.metrics.RecordExpansion(req.Key, "success", res.Duration)
	ev.Status = StatusMerged
	ev.Merge = s.merge(res.Payload, req)
	s.bus.Publish(pubsub.TopicExpansion, ev)
}

// merge folds p into the store, resyncs the simulation and reheats it.
// Every successful load reheats, even one that only repeats known nodes.
func (s *Session) merge(p *graph.Payload, req expansion.Request) graph.MergeResult {
	result, err := s.store.Merge(p)
	if err != nil && !errors.Is(err, graph.ErrUnresolvedEndpoint) {
		s.logger.Error("merge failed", logging.Key(req.Key), logging.Error(err))
		s.metrics.RecordMerge("error", 0)
		return result
	}
	for _, ue := range graph.UnresolvedEndpoints(err) {
		s.logger.Warn("unresolved link",
			logging.Key(req.Key),
			logging.Int("link", ue.LinkIndex),
			logging.String("from", ue.Source),
			logging.String("to", ue.Target),
			logging.String("missing", string(ue.Missing)),
		)
	}

	label := "unchanged"
	switch {
	case result.Unresolved > 0:
		label = "unresolved"
	case result.Changed():
		label = "changed"
	}
	s.metrics.RecordMerge(label, result.DuplicatesIgnored)

	s.sim.Sync(s.store)
	s.sim.Reheat()
	s.metrics.RecordReheat("merge")

	st := s.store.GetStatistics()
	s.metrics.UpdateGraph(graphSnapshot(st))
	s.logger.Info("expansion merged",
		logging.Key(req.Key),
		logging.RequestID(req.ID),
		logging.Int("nodes_added", result.NodesAdded),
		logging.Int("links_added", result.LinksAdded),
		logging.Int("duplicates", result.DuplicatesIgnored),
		logging.Int("nodes", st.NodeCount),
	)

	s.publishFrame()
	return result
}
