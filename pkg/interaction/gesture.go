package interaction

import "github.com/dd0wney/cluso-chainviz/pkg/graph"

// ClickTolerance is how far, in layout units, the pointer may travel
// between press and release before the gesture counts as a drag.
const ClickTolerance = 3.0

// Gestures receives classified gestures. Controller implements it.
type Gestures interface {
	DragStart(n *graph.Node)
	DragMove(n *graph.Node, pointer graph.Position)
	DragEnd(n *graph.Node)
	Click(n *graph.Node) bool
}

// GestureClassifier turns raw press/move/release events for one pointer
// into either a drag or a click, never both.
type GestureClassifier struct {
	target    Gestures
	tolerance float64

	node     *graph.Node
	down     graph.Position
	dragging bool
}

// NewGestureClassifier creates a classifier feeding target
func NewGestureClassifier(target Gestures) *GestureClassifier {
	return &GestureClassifier{target: target, tolerance: ClickTolerance}
}

// Press starts a gesture on n. A press on empty space (nil) is ignored.
func (g *GestureClassifier) Press(n *graph.Node, p graph.Position) {
	if g.node != nil {
		g.Release(p)
	}
	g.node = n
	g.down = p
	g.dragging = false
}

// Move reports pointer motion. Past the tolerance the gesture becomes a
// drag and the node follows the pointer.
func (g *GestureClassifier) Move(p graph.Position) {
	if g.node == nil {
		return
	}
	if !g.dragging {
		dx, dy := p.X-g.down.X, p.Y-g.down.Y
		if dx*dx+dy*dy <= g.tolerance*g.tolerance {
			return
		}
		g.dragging = true
		g.target.DragStart(g.node)
	}
	g.target.DragMove(g.node, p)
}

// Release ends the gesture. It returns true when the gesture was a click
// that requested an expansion.
func (g *GestureClassifier) Release(p graph.Position) bool {
	n := g.node
	if n == nil {
		return false
	}
	g.node = nil

	if g.dragging {
		g.target.DragMove(n, p)
		g.target.DragEnd(n)
		g.dragging = false
		return false
	}
	return g.target.Click(n)
}

// Cancel abandons a gesture without clicking. An in-flight drag ends.
func (g *GestureClassifier) Cancel() {
	if g.node != nil && g.dragging {
		g.target.DragEnd(g.node)
	}
	g.node = nil
	g.dragging = false
}

// Active reports whether a gesture is in progress
func (g *GestureClassifier) Active() bool {
	return g.node != nil
}
