// Package interaction couples pointer gestures to the graph store and the
// layout simulation: dragging pins a node, clicking an expansion point
// requests a subgraph.
package interaction

import (
	"github.com/dd0wney/cluso-chainviz/pkg/graph"
	"github.com/dd0wney/cluso-chainviz/pkg/logging"
	"github.com/dd0wney/cluso-chainviz/pkg/visualization"
)

// Engine is the part of the layout simulation the controller drives
type Engine interface {
	SetAlphaTarget(target float64)
	State() visualization.State
}

// KeyLookup maps a clicked address to its expansion key
type KeyLookup interface {
	KeyFor(address string) (string, bool)
}

// Expander starts an asynchronous expansion for key. It must not block.
type Expander interface {
	Expand(key string)
}

// ExpanderFunc adapts a function to Expander
type ExpanderFunc func(key string)

// Expand calls f(key)
func (f ExpanderFunc) Expand(key string) { f(key) }

// Controller translates pre-classified drag and click gestures into store
// and simulation mutations. Like the store it is owned by one control loop.
type Controller struct {
	engine     Engine
	keys       KeyLookup
	expander   Expander
	dragTarget float64
	dragging   map[string]bool
	logger     logging.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller logger
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithDragAlphaTarget overrides the alpha target held while dragging
func WithDragAlphaTarget(t float64) Option {
	return func(c *Controller) { c.dragTarget = t }
}

// NewController creates a controller
func NewController(engine Engine, keys KeyLookup, expander Expander, opts ...Option) *Controller {
	c := &Controller{
		engine:     engine,
		keys:       keys,
		expander:   expander,
		dragTarget: visualization.DefaultSimulationConfig().DragAlphaTarget,
		dragging:   make(map[string]bool),
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetKeys swaps the expansion key lookup
func (c *Controller) SetKeys(keys KeyLookup) {
	c.keys = keys
}

// DragStart pins n at its current position. The first drag in flight
// raises the alpha target so a settled simulation becomes active; further
// concurrent drags leave the energy alone.
func (c *Controller) DragStart(n *graph.Node) {
	if n == nil {
		return
	}
	if len(c.dragging) == 0 {
		wasSettled := c.engine.State() == visualization.Settled
		c.engine.SetAlphaTarget(c.dragTarget)
		c.logger.Debug("drag started",
			logging.Address(n.Address),
			logging.Bool("reheated", wasSettled),
		)
	}
	c.dragging[n.Address] = true

	x, y := n.XY()
	c.pin(n, graph.Position{X: x, Y: y})
}

// DragMove makes the pin follow the pointer
func (c *Controller) DragMove(n *graph.Node, pointer graph.Position) {
	if n == nil {
		return
	}
	c.pin(n, pointer)
}

// DragEnd releases n. At the instant of release its position equals the
// last pin; afterwards it moves freely. Alpha keeps decaying naturally.
func (c *Controller) DragEnd(n *graph.Node) {
	if n == nil {
		return
	}
	if n.Pin != nil {
		p := *n.Pin
		n.Position = &p
	}
	n.Pin = nil

	delete(c.dragging, n.Address)
	if len(c.dragging) == 0 {
		c.engine.SetAlphaTarget(0)
	}
}

// Click requests an expansion when n is an expansion point and reports
// whether it did. Most nodes are not expansion points.
func (c *Controller) Click(n *graph.Node) bool {
	if n == nil || c.keys == nil {
		return false
	}
	key, ok := c.keys.KeyFor(n.Address)
	if !ok {
		return false
	}
	c.logger.Info("expansion requested", logging.Address(n.Address), logging.Key(key))
	c.expander.Expand(key)
	return true
}

// Dragging reports whether any drag is in flight
func (c *Controller) Dragging() bool {
	return len(c.dragging) > 0
}

func (c *Controller) pin(n *graph.Node, p graph.Position) {
	pin := p
	pos := p
	n.Pin = &pin
	n.Position = &pos
}
