package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
	"github.com/dd0wney/cluso-chainviz/pkg/visualization"
)

type keyMap map[string]string

func (m keyMap) KeyFor(address string) (string, bool) {
	k, ok := m[address]
	return k, ok
}

type recordingExpander struct {
	keys []string
}

func (r *recordingExpander) Expand(key string) { r.keys = append(r.keys, key) }

func setup(t *testing.T) (*graph.Store, *visualization.Simulation, *Controller, *recordingExpander) {
	t.Helper()

	store := graph.NewStore()
	_, err := store.Merge(&graph.Payload{
		Nodes: []graph.PayloadNode{{Address: "0xA", Balance: 10}, {Address: "0xB", Balance: 5}, {Address: "0xT"}},
		Links: []graph.PayloadLink{{From: "0xA", To: "0xB", BalanceDelta: 3}},
	})
	require.NoError(t, err)

	sim := visualization.NewSimulation(visualization.DefaultSimulationConfig())
	sim.Sync(store)

	exp := &recordingExpander{}
	ctrl := NewController(sim, keyMap{"0xT": "two"}, exp)
	return store, sim, ctrl, exp
}

func settle(sim *visualization.Simulation) {
	sim.Run(10000)
}

func TestController_ClickNonExpansionPoint(t *testing.T) {
	store, _, ctrl, exp := setup(t)
	before := store.GetStatistics()

	assert.False(t, ctrl.Click(store.Node("0xA")))
	assert.Empty(t, exp.keys)
	assert.Equal(t, before, store.GetStatistics())
}

func TestController_ClickExpansionPoint(t *testing.T) {
	store, _, ctrl, exp := setup(t)

	assert.True(t, ctrl.Click(store.Node("0xT")))
	assert.Equal(t, []string{"two"}, exp.keys)

	// the controller only requests; merging happens elsewhere
	assert.Equal(t, 3, store.Len())
}

func TestController_ClickNil(t *testing.T) {
	_, _, ctrl, exp := setup(t)
	assert.False(t, ctrl.Click(nil))
	assert.Empty(t, exp.keys)
}

func TestController_DragPinsAndReleases(t *testing.T) {
	store, sim, ctrl, _ := setup(t)
	a := store.Node("0xA")

	ctrl.DragStart(a)
	require.True(t, a.Pinned())
	x, y := a.XY()
	assert.Equal(t, graph.Position{X: x, Y: y}, *a.Pin)

	ctrl.DragMove(a, graph.Position{X: 100, Y: 200})
	for i := 0; i < 20; i++ {
		sim.Tick()
		ctrl.DragMove(a, graph.Position{X: 100, Y: 200})
	}
	ctrl.DragEnd(a)

	assert.False(t, a.Pinned())
	require.NotNil(t, a.Position)
	assert.Equal(t, graph.Position{X: 100, Y: 200}, *a.Position)

	sim.Tick()
	assert.NotEqual(t, graph.Position{X: 100, Y: 200}, *a.Position, "released node moves freely")
}

func TestController_DragMoveIsImmediate(t *testing.T) {
	store, _, ctrl, _ := setup(t)
	a := store.Node("0xA")

	ctrl.DragStart(a)
	ctrl.DragMove(a, graph.Position{X: -40, Y: 12.5})

	assert.Equal(t, graph.Position{X: -40, Y: 12.5}, *a.Pin)
	assert.Equal(t, graph.Position{X: -40, Y: 12.5}, *a.Position)
}

func TestController_DragReheatsSettledSimulation(t *testing.T) {
	store, sim, ctrl, _ := setup(t)
	settle(sim)
	require.Equal(t, visualization.Settled, sim.State())

	ctrl.DragStart(store.Node("0xA"))
	assert.Equal(t, visualization.Active, sim.State())
	assert.Equal(t, 0.3, sim.AlphaTarget())
	assert.True(t, ctrl.Dragging())

	ctrl.DragEnd(store.Node("0xA"))
	assert.Equal(t, 0.0, sim.AlphaTarget())
	assert.False(t, ctrl.Dragging())
}

func TestController_ConcurrentDragsKeepTarget(t *testing.T) {
	store, sim, ctrl, _ := setup(t)
	a, b := store.Node("0xA"), store.Node("0xB")

	ctrl.DragStart(a)
	ctrl.DragStart(b)
	ctrl.DragEnd(a)

	assert.Equal(t, 0.3, sim.AlphaTarget(), "one drag still in flight")
	assert.True(t, b.Pinned())

	ctrl.DragEnd(b)
	assert.Equal(t, 0.0, sim.AlphaTarget())
}

func TestController_DragEndWithoutStart(t *testing.T) {
	store, sim, ctrl, _ := setup(t)
	a := store.Node("0xA")
	before := *a.Position

	ctrl.DragEnd(a)

	assert.Equal(t, before, *a.Position)
	assert.Equal(t, 0.0, sim.AlphaTarget())
}

func TestController_SetKeys(t *testing.T) {
	store, _, ctrl, exp := setup(t)

	ctrl.SetKeys(keyMap{"0xA": "one"})
	assert.True(t, ctrl.Click(store.Node("0xA")))
	assert.False(t, ctrl.Click(store.Node("0xT")))
	assert.Equal(t, []string{"one"}, exp.keys)
}
