// Package render derives a presentation-neutral frame from the graph
// store. Presenters diff or redraw frames however they like; nothing in
// this package knows about a screen.
package render

import (
	"github.com/dd0wney/cluso-chainviz/pkg/graph"
)

// NodeRadius is the drawn radius of every node
const NodeRadius = 15.0

// Label is one line of text anchored below a node, DY pixels from centre
type Label struct {
	Text string  `json:"text"`
	DY   float64 `json:"dy"`
}

// NodeView is everything a presenter needs to draw one node
type NodeView struct {
	Address    string  `json:"address"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Radius     float64 `json:"r"`
	Color      string  `json:"color"`
	Pinned     bool    `json:"pinned,omitempty"`
	Expandable bool    `json:"expandable,omitempty"`
	Labels     []Label `json:"labels"`
}

// LinkView is a drawn link with its delta label at the midpoint
type LinkView struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	LabelX float64 `json:"label_x"`
	LabelY float64 `json:"label_y"`
	Label  string  `json:"label"`
}

// Frame is one snapshot of the graph. Seq, Alpha and Settled are filled
// in by whoever drives the simulation.
type Frame struct {
	Seq        uint64     `json:"seq"`
	Alpha      float64    `json:"alpha"`
	Settled    bool       `json:"settled"`
	Nodes      []NodeView `json:"nodes"`
	Links      []LinkView `json:"links"`
	Unresolved int        `json:"unresolved,omitempty"`
}

// Node returns the view for address
func (f *Frame) Node(address string) (NodeView, bool) {
	for _, n := range f.Nodes {
		if n.Address == address {
			return n, true
		}
	}
	return NodeView{}, false
}

// Graph is the read side of the store
type Graph interface {
	Nodes() []*graph.Node
	Links() []*graph.Link
}

// KeyLookup marks expansion points
type KeyLookup interface {
	KeyFor(address string) (string, bool)
}

// Presenter consumes frames. Render is called from the session loop and
// must not block on slow consumers.
type Presenter interface {
	Render(f Frame)
}

// PresenterFunc adapts a function to Presenter
type PresenterFunc func(f Frame)

// Render calls p(f)
func (p PresenterFunc) Render(f Frame) { p(f) }
