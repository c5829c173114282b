package session

import (
	"time"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
	"github.com/dd0wney/cluso-chainviz/pkg/logging"
	"github.com/dd0wney/cluso-chainviz/pkg/metrics"
	"github.com/dd0wney/cluso-chainviz/pkg/pubsub"
	"github.com/dd0wney/cluso-chainviz/pkg/render"
)

// tick advances the layout one step while it is active
func (s *Session) tick() {
	if !s.sim.Active() {
		return
	}

	start := time.Now()
	active := s.sim.Tick()
	s.metrics.RecordTick(s.sim.Alpha(), active, time.Since(start))

	if !active {
		s.logger.Debug("layout settled", logging.Ticks(s.sim.Ticks()), logging.Alpha(s.sim.Alpha()))
	}
	s.publishFrame()
}

// publishFrame derives a frame from the store and hands it to presenters
func (s *Session) publishFrame() {
	f := render.Derive(s.store, s.table)
	s.seq++
	f.Seq = s.seq
	f.Alpha = s.sim.Alpha()
	f.Settled = !s.sim.Active()

	s.latest.Store(&f)
	for _, p := range s.presenters {
		p.Render(f)
	}
	s.bus.Publish(pubsub.TopicFrames, f)
	s.metrics.PresenterClients.Set(float64(s.bus.GetSubscriberCount(pubsub.TopicFrames)))
}

func graphSnapshot(st graph.Statistics) metrics.GraphSnapshot {
	return metrics.GraphSnapshot{
		Nodes:      st.NodeCount,
		Links:      st.LinkCount,
		Unresolved: st.UnresolvedCount,
		Pinned:     st.PinnedCount,
	}
}
