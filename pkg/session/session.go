// Package session runs one visualization: a single goroutine owns the graph
// store and the layout simulation, and every mutation reaches them through
// that goroutine's event queue.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-chainviz/pkg/expansion"
	"github.com/dd0wney/cluso-chainviz/pkg/graph"
	"github.com/dd0wney/cluso-chainviz/pkg/interaction"
	"github.com/dd0wney/cluso-chainviz/pkg/logging"
	"github.com/dd0wney/cluso-chainviz/pkg/metrics"
	"github.com/dd0wney/cluso-chainviz/pkg/pubsub"
	"github.com/dd0wney/cluso-chainviz/pkg/render"
	"github.com/dd0wney/cluso-chainviz/pkg/visualization"
)

var (
	ErrAlreadyRunning = errors.New("session already running")
	ErrStopped        = errors.New("session stopped")
)

// Options configures a Session. Zero values pick defaults.
type Options struct {
	Layout       visualization.SimulationConfig
	TickInterval time.Duration
	FetchTimeout time.Duration
	Table        *expansion.Table
	Loader       expansion.Loader
	Logger       logging.Logger
	Metrics      *metrics.Registry
	Bus          *pubsub.PubSub
	// Presenters are called on the loop goroutine after every frame and
	// must return promptly.
	Presenters []render.Presenter
}

// Session owns a graph store, a simulation and an interaction controller
type Session struct {
	store  *graph.Store
	sim    *visualization.Simulation
	ctrl   *interaction.Controller
	table  *expansion.Table
	loader expansion.Loader

	// per pointer source: raw gestures in flight and addresses dragged
	gestures map[string]*interaction.GestureClassifier
	drags    map[string]map[string]struct{}

	logger     logging.Logger
	metrics    *metrics.Registry
	bus        *pubsub.PubSub
	presenters []render.Presenter

	tickInterval time.Duration
	fetchTimeout time.Duration

	events  chan func()
	done    chan struct{}
	running atomic.Bool
	runCtx  context.Context
	fetches sync.WaitGroup

	seq    uint64
	latest atomic.Pointer[render.Frame]
}

// New creates a session. Loader is required.
func New(opts Options) (*Session, error) {
	if opts.Loader == nil {
		return nil, errors.New("session needs a loader")
	}
	if opts.Table == nil {
		opts.Table = expansion.DefaultTable()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	if opts.Bus == nil {
		opts.Bus = pubsub.NewPubSub()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 16 * time.Millisecond
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}

	logger := opts.Logger.With(logging.Component("session"))
	sim := visualization.NewSimulation(opts.Layout)

	s := &Session{
		store:        graph.NewStore(),
		sim:          sim,
		table:        opts.Table,
		loader:       opts.Loader,
		logger:       logger,
		metrics:      opts.Metrics,
		bus:          opts.Bus,
		presenters:   opts.Presenters,
		tickInterval: opts.TickInterval,
		fetchTimeout: opts.FetchTimeout,
		events:       make(chan func(), 256),
		done:         make(chan struct{}),
		runCtx:       context.Background(),
		gestures:     make(map[string]*interaction.GestureClassifier),
		drags:        make(map[string]map[string]struct{}),
	}
	s.ctrl = interaction.NewController(sim, opts.Table, interaction.ExpanderFunc(s.expand),
		interaction.WithLogger(logger),
		interaction.WithDragAlphaTarget(sim.Config().DragAlphaTarget),
	)
	s.bus.OnDrop(func(topic string) {
		if topic == pubsub.TopicFrames {
			s.metrics.PresenterFramesDropped.Inc()
		}
	})

	s.publishFrame()
	return s, nil
}

// Bus returns the event bus frames and expansion events are published on
func (s *Session) Bus() *pubsub.PubSub {
	return s.bus
}

// Run processes events and ticks until ctx is done. It may be called once.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	s.runCtx = ctx
	defer func() {
		close(s.done)
		s.fetches.Wait()
	}()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	s.logger.Info("session started",
		logging.Duration("tick_interval", s.tickInterval),
		logging.Count(s.table.Len()),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session stopped", logging.Ticks(s.sim.Ticks()))
			return nil
		case fn := <-s.events:
			fn()
		case <-ticker.C:
			s.tick()
		}
	}
}

// post queues fn for the loop. It fails once the loop has exited.
func (s *Session) post(fn func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- fn:
		return true
	case <-s.done:
		return false
	}
}

// Inspect runs fn on the loop goroutine and waits for it. fn must not
// retain store or sim.
func (s *Session) Inspect(ctx context.Context, fn func(store *graph.Store, sim *visualization.Simulation)) error {
	finished := make(chan struct{})
	if !s.post(func() {
		fn(s.store, s.sim)
		close(finished)
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns store statistics read on the loop
func (s *Session) Stats(ctx context.Context) (graph.Statistics, error) {
	var st graph.Statistics
	err := s.Inspect(ctx, func(store *graph.Store, _ *visualization.Simulation) {
		st = store.GetStatistics()
	})
	return st, err
}

// Latest returns the most recently published frame
func (s *Session) Latest() render.Frame {
	if f := s.latest.Load(); f != nil {
		return *f
	}
	return render.Frame{}
}

// Seed requests the table's seed subgraph
func (s *Session) Seed() bool {
	return s.post(func() { s.expand(s.table.Seed()) })
}

// Expand requests the subgraph for key
func (s *Session) Expand(key string) bool {
	return s.post(func() { s.expand(key) })
}

// SwapTable replaces the expansion key table
func (s *Session) SwapTable(t *expansion.Table) bool {
	if t == nil {
		return false
	}
	return s.post(func() {
		s.table = t
		s.ctrl.SetKeys(t)
		s.metrics.RecordTableReload()
		s.logger.Info("key table swapped", logging.Count(t.Len()))
		s.publishFrame()
	})
}
