package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-chainviz/pkg/expansion"
	"github.com/dd0wney/cluso-chainviz/pkg/graph"
	"github.com/dd0wney/cluso-chainviz/pkg/pubsub"
	"github.com/dd0wney/cluso-chainviz/pkg/render"
	"github.com/dd0wney/cluso-chainviz/pkg/visualization"
)

const (
	addrSeed = "0x2be59e62d811a1a8a25a937c4812313cf8bbe428"
	addrTwo  = "0xf3ecf43e3882b19d91646a4852145f8d2317fba2"
)

var errUpstream = errors.New("upstream unavailable")

// fixtureLoader serves payloads by source; unknown sources fail
type fixtureLoader struct {
	mu       sync.Mutex
	payloads map[string]*graph.Payload
	calls    []string
}

func (f *fixtureLoader) Load(ctx context.Context, source string) (*graph.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, source)
	p, ok := f.payloads[source]
	if !ok {
		return nil, errUpstream
	}
	cp := *p
	return &cp, nil
}

func seedPayload() *graph.Payload {
	return &graph.Payload{
		Nodes: []graph.PayloadNode{
			{Address: addrSeed, AddressName: "Lido", Balance: 100, Type: "stakingpool"},
			{Address: addrTwo, Balance: 40, Type: "cex"},
			{Address: "0xC", Balance: 1},
		},
		Links: []graph.PayloadLink{
			{From: addrSeed, To: addrTwo, BalanceDelta: 12},
			{From: addrTwo, To: "0xC", BalanceDelta: 3},
		},
	}
}

func twoPayload() *graph.Payload {
	return &graph.Payload{
		Nodes: []graph.PayloadNode{
			{Address: addrTwo, Balance: 999},
			{Address: "0xD", Balance: 2},
		},
		Links: []graph.PayloadLink{{From: addrTwo, To: "0xD", BalanceDelta: 1}},
	}
}

func newTestSession(t *testing.T, payloads map[string]*graph.Payload) (*Session, *fixtureLoader) {
	t.Helper()
	loader := &fixtureLoader{payloads: payloads}
	s, err := New(Options{
		Loader:       loader,
		TickInterval: time.Millisecond,
		FetchTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(s.bus.Shutdown)
	return s, loader
}

func subscribe(t *testing.T, s *Session, topic string) *pubsub.Subscription {
	t.Helper()
	sub, err := s.Bus().Subscribe(context.Background(), topic, pubsub.WithBuffer(1000))
	require.NoError(t, err)
	return sub
}

func nextEvent(t *testing.T, sub *pubsub.Subscription) ExpansionEvent {
	t.Helper()
	select {
	case msg := <-sub.Channel():
		ev, ok := msg.(ExpansionEvent)
		require.True(t, ok, "unexpected message %T", msg)
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no expansion event")
	}
	return ExpansionEvent{}
}

func okResult(key string, p *graph.Payload) expansion.Result {
	return expansion.Result{Request: expansion.NewRequest(key, "JSON/"+key+".json"), Payload: p}
}

func TestNew_RequiresLoader(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestNew_PublishesEmptyFrame(t *testing.T) {
	s, _ := newTestSession(t, nil)
	f := s.Latest()
	assert.Equal(t, uint64(1), f.Seq)
	assert.Empty(t, f.Nodes)
}

func TestFinish_MergeReheatsSettledLayout(t *testing.T) {
	s, _ := newTestSession(t, nil)
	events := subscribe(t, s, pubsub.TopicExpansion)

	s.finish(okResult("one", seedPayload()))
	s.sim.Run(10000)
	require.Equal(t, visualization.Settled, s.sim.State())

	s.finish(okResult("two", twoPayload()))

	assert.Equal(t, 1.0, s.sim.Alpha())
	assert.Equal(t, visualization.Active, s.sim.State())
	assert.Equal(t, 4, s.store.Len())
	assert.Equal(t, 100.0, s.store.Node(addrSeed).Balance)
	assert.Equal(t, 40.0, s.store.Node(addrTwo).Balance, "first write wins")

	first, second := nextEvent(t, events), nextEvent(t, events)
	assert.Equal(t, StatusMerged, first.Status)
	assert.Equal(t, graph.MergeResult{NodesAdded: 1, DuplicatesIgnored: 1, LinksAdded: 1}, second.Merge)

	f := s.Latest()
	assert.Len(t, f.Nodes, 4)
	assert.Len(t, f.Links, 3)
	assert.False(t, f.Settled)
}

// Scenario D
func TestFinish_FailureLeavesStoreUnchanged(t *testing.T) {
	s, _ := newTestSession(t, nil)
	s.finish(okResult("one", seedPayload()))
	s.sim.Run(10000)

	events := subscribe(t, s, pubsub.TopicExpansion)
	before := s.store.GetStatistics()
	alpha := s.sim.Alpha()

	s.finish(expansion.Result{
		Request: expansion.NewRequest("two", "JSON/2.json"),
		Err:     &expansion.LoadError{Key: "two", Source: "JSON/2.json", Cause: errUpstream},
	})

	assert.Equal(t, before, s.store.GetStatistics())
	assert.Equal(t, alpha, s.sim.Alpha(), "no reheat on failure")

	ev := nextEvent(t, events)
	assert.True(t, ev.Failed())
	assert.Equal(t, "two", ev.Key)
	assert.Contains(t, ev.Error, "upstream unavailable")

	select {
	case msg := <-events.Channel():
		t.Fatalf("second event %v", msg)
	default:
	}
}

func TestFinish_DuplicateOnlyPayloadStillReheats(t *testing.T) {
	s, _ := newTestSession(t, nil)
	s.finish(okResult("one", seedPayload()))
	s.sim.Run(10000)
	require.Equal(t, visualization.Settled, s.sim.State())

	s.finish(okResult("again", &graph.Payload{Nodes: []graph.PayloadNode{{Address: addrSeed}}}))

	assert.Equal(t, visualization.Active, s.sim.State())
	assert.Equal(t, 1.0, s.sim.Alpha())
	assert.Equal(t, 3, s.store.Len())
}

func TestFinish_UnresolvedLinksStillMerge(t *testing.T) {
	s, _ := newTestSession(t, nil)
	events := subscribe(t, s, pubsub.TopicExpansion)

	s.finish(okResult("one", &graph.Payload{
		Nodes: []graph.PayloadNode{{Address: "0xA"}},
		Links: []graph.PayloadLink{{From: "0xA", To: "0xGHOST"}},
	}))

	ev := nextEvent(t, events)
	assert.Equal(t, StatusMerged, ev.Status)
	assert.Equal(t, 1, ev.Merge.Unresolved)
	assert.Equal(t, 1, s.Latest().Unresolved)

	// a tick with a dangling link must not panic
	s.tick()
}

func TestExpand_UnknownKeyFails(t *testing.T) {
	s, loader := newTestSession(t, nil)
	events := subscribe(t, s, pubsub.TopicExpansion)

	s.expand("nope")

	ev := nextEvent(t, events)
	assert.True(t, ev.Failed())
	assert.Contains(t, ev.Error, "unknown expansion key")
	assert.Empty(t, loader.calls)
}

func TestApplyGesture_ClickExpandsThroughLoop(t *testing.T) {
	s, loader := newTestSession(t, map[string]*graph.Payload{"JSON/2.json": twoPayload()})
	s.finish(okResult("one", seedPayload()))

	s.applyGesture(Gesture{Type: GestureClick, Address: addrTwo})

	// the fetch result arrives as a queued event
	select {
	case fn := <-s.events:
		fn()
	case <-time.After(5 * time.Second):
		t.Fatal("fetch result never posted")
	}
	s.fetches.Wait()

	assert.Equal(t, []string{"JSON/2.json"}, loader.calls)
	assert.Equal(t, 4, s.store.Len())
}

// Scenario B
func TestApplyGesture_ClickOnPlainNodeDoesNothing(t *testing.T) {
	s, loader := newTestSession(t, nil)
	s.finish(okResult("one", seedPayload()))
	before := s.store.GetStatistics()

	s.applyGesture(Gesture{Type: GestureClick, Address: "0xC"})
	s.applyGesture(Gesture{Type: GestureClick, Address: "0xNOT_IN_STORE"})

	assert.Empty(t, loader.calls)
	assert.Equal(t, before, s.store.GetStatistics())
	select {
	case <-s.events:
		t.Fatal("unexpected queued event")
	default:
	}
}

// Scenario C
func TestApplyGesture_DragReleasesAtPin(t *testing.T) {
	s, _ := newTestSession(t, nil)
	s.finish(okResult("one", seedPayload()))
	s.sim.Run(10000)

	s.applyGesture(Gesture{Type: GestureDragStart, Address: addrSeed})
	assert.Equal(t, visualization.Active, s.sim.State())
	s.applyGesture(Gesture{Type: GestureDrag, Address: addrSeed, X: 100, Y: 200})
	s.tick()
	s.tick()
	s.applyGesture(Gesture{Type: GestureDragEnd, Address: addrSeed})

	n := s.store.Node(addrSeed)
	assert.False(t, n.Pinned())
	assert.Equal(t, graph.Position{X: 100, Y: 200}, *n.Position)

	f := s.Latest()
	v, ok := f.Node(addrSeed)
	require.True(t, ok)
	assert.False(t, v.Pinned)
}

func TestApplyPointer_ClassifiesDragAndClick(t *testing.T) {
	s, loader := newTestSession(t, nil)
	s.finish(okResult("one", seedPayload()))
	s.sim.Run(10000)

	s.applyPointer(Pointer{Type: PointerDown, Address: "0xC", X: 0, Y: 0})
	s.applyPointer(Pointer{Type: PointerMove, X: 40, Y: 0})
	assert.True(t, s.store.Node("0xC").Pinned())
	s.applyPointer(Pointer{Type: PointerUp, X: 50, Y: 5})
	assert.Equal(t, graph.Position{X: 50, Y: 5}, *s.store.Node("0xC").Position)

	s.applyPointer(Pointer{Type: PointerDown, Address: addrTwo, X: 1, Y: 1})
	s.applyPointer(Pointer{Type: PointerUp, X: 2, Y: 1})
	s.fetches.Wait()
	assert.Equal(t, []string{"JSON/2.json"}, loader.calls, "press and release in place clicks")
}

func TestRun_SeedSettleAndFail(t *testing.T) {
	s, _ := newTestSession(t, map[string]*graph.Payload{"JSON/1.json": seedPayload()})
	events := subscribe(t, s, pubsub.TopicExpansion)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.True(t, s.Seed())
	ev := nextEvent(t, events)
	require.Equal(t, StatusMerged, ev.Status)
	assert.Equal(t, 3, ev.Merge.NodesAdded)
	assert.NotEmpty(t, ev.RequestID)

	assert.Eventually(t, func() bool { return s.Latest().Settled }, 10*time.Second, 5*time.Millisecond)

	before, err := s.Stats(ctx)
	require.NoError(t, err)

	// "two" has no fixture, so the loader fails
	require.True(t, s.Expand("two"))
	ev = nextEvent(t, events)
	assert.True(t, ev.Failed())

	after, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.True(t, s.Latest().Settled, "failure does not reheat")

	assert.ErrorIs(t, s.Run(ctx), ErrAlreadyRunning)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	_, err = s.Stats(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.False(t, s.Expand("one"))
}

func TestRun_PresentersAndFrames(t *testing.T) {
	var mu sync.Mutex
	var seqs []uint64
	loader := &fixtureLoader{payloads: map[string]*graph.Payload{"JSON/1.json": seedPayload()}}
	s, err := New(Options{
		Loader:       loader,
		TickInterval: time.Millisecond,
		Presenters: []render.Presenter{render.PresenterFunc(func(f render.Frame) {
			mu.Lock()
			seqs = append(seqs, f.Seq)
			mu.Unlock()
		})},
	})
	require.NoError(t, err)
	frames := subscribe(t, s, pubsub.TopicFrames)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	s.Seed()

	var last render.Frame
	deadline := time.After(10 * time.Second)
	for !last.Settled || len(last.Nodes) == 0 {
		select {
		case msg := <-frames.Channel():
			last = msg.(render.Frame)
		case <-deadline:
			t.Fatal("never saw a settled frame")
		}
	}
	assert.Len(t, last.Nodes, 3)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1])
	}
}

func TestSwapTable(t *testing.T) {
	s, loader := newTestSession(t, map[string]*graph.Payload{"other.json": twoPayload()})
	s.finish(okResult("one", seedPayload()))

	tbl, err := expansion.NewTable("", []expansion.Entry{{Key: "x", Source: "other.json", Address: "0xC"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.True(t, s.SwapTable(tbl))
	require.True(t, s.HandleGesture(Gesture{Type: GestureClick, Address: "0xC"}))

	assert.Eventually(t, func() bool {
		st, err := s.Stats(ctx)
		return err == nil && st.NodeCount == 4
	}, 5*time.Second, 5*time.Millisecond)

	f := s.Latest()
	v, ok := f.Node("0xC")
	require.True(t, ok)
	assert.True(t, v.Expandable)
	assert.Equal(t, []string{"other.json"}, loader.calls)
}

func TestApplyPointer_ClientsDoNotInterfere(t *testing.T) {
	s, loader := newTestSession(t, map[string]*graph.Payload{"JSON/2.json": twoPayload()})
	s.finish(okResult("one", seedPayload()))
	s.sim.Run(10000)

	s.applyPointer(Pointer{Type: PointerDown, Address: addrTwo, X: 1, Y: 1, Client: "a"})
	s.applyPointer(Pointer{Type: PointerDown, Address: "0xC", X: 0, Y: 0, Client: "b"})
	s.applyPointer(Pointer{Type: PointerMove, X: 300, Y: 300, Client: "b"})
	s.fetches.Wait()

	assert.Empty(t, loader.calls, "a press from another client must not release this one")
	assert.False(t, s.store.Node(addrTwo).Pinned())
	c := s.store.Node("0xC")
	require.True(t, c.Pinned())
	assert.Equal(t, graph.Position{X: 300, Y: 300}, *c.Pin)

	// a releases in place: a click on its own node
	s.applyPointer(Pointer{Type: PointerUp, X: 1, Y: 1, Client: "a"})
	s.fetches.Wait()
	assert.Equal(t, []string{"JSON/2.json"}, loader.calls)
	assert.True(t, s.store.Node("0xC").Pinned(), "b is still dragging")

	s.applyPointer(Pointer{Type: PointerUp, X: 310, Y: 290, Client: "b"})
	assert.False(t, c.Pinned())
	assert.Equal(t, graph.Position{X: 310, Y: 290}, *c.Position)
	assert.Empty(t, s.gestures)
}

func TestApplyPointer_StrayEventsWithoutPress(t *testing.T) {
	s, _ := newTestSession(t, nil)
	s.finish(okResult("one", seedPayload()))

	s.applyPointer(Pointer{Type: PointerMove, X: 5, Y: 5, Client: "late"})
	s.applyPointer(Pointer{Type: PointerUp, X: 5, Y: 5, Client: "late"})

	assert.Empty(t, s.gestures)
	for _, n := range s.store.Nodes() {
		assert.False(t, n.Pinned(), n.Address)
	}
}

func TestReleaseClient_EndsDragsAndGestures(t *testing.T) {
	s, _ := newTestSession(t, nil)
	s.finish(okResult("one", seedPayload()))
	s.sim.Run(10000)
	dragTarget := s.sim.Config().DragAlphaTarget

	s.applyGesture(Gesture{Type: GestureDragStart, Address: addrSeed, Client: "a"})
	s.applyGesture(Gesture{Type: GestureDrag, Address: addrSeed, X: 10, Y: 20, Client: "a"})
	s.applyPointer(Pointer{Type: PointerDown, Address: "0xC", Client: "a"})
	s.applyPointer(Pointer{Type: PointerMove, X: 40, Y: 0, Client: "a"})
	s.applyGesture(Gesture{Type: GestureDragStart, Address: addrTwo, Client: "b"})

	s.releaseClient("a")

	seed := s.store.Node(addrSeed)
	assert.False(t, seed.Pinned())
	assert.Equal(t, graph.Position{X: 10, Y: 20}, *seed.Position, "released at the last pin")
	assert.False(t, s.store.Node("0xC").Pinned())
	assert.True(t, s.store.Node(addrTwo).Pinned(), "other clients keep their drags")
	assert.Equal(t, dragTarget, s.sim.AlphaTarget())

	s.releaseClient("b")
	s.releaseClient("never-seen")

	assert.False(t, s.store.Node(addrTwo).Pinned())
	assert.Equal(t, 0.0, s.sim.AlphaTarget())
	assert.Empty(t, s.gestures)
	assert.Empty(t, s.drags)

	s.sim.Run(10000)
	assert.Equal(t, visualization.Settled, s.sim.State())
}
