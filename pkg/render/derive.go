package render

import (
	"math"
	"strconv"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
)

// Label offsets below the node centre. A display name pushes the address
// and balance lines down.
const (
	nameDY           = 35
	addressDY        = 30
	addressDYNamed   = 48
	balanceDY        = 45
	balanceDYNamed   = 60
	truncateOver     = 12
	truncateHead     = 7
	truncateTail     = 5
	truncateEllipsis = "....."
)

var kindColors = map[string]string{
	"stakingpool":   "lightblue",
	"cex":           "blue",
	"token":         "orange",
	"service":       "orange",
	"dao":           "blue",
	"gambling":      "pink",
	"smartcontract": "orange",
}

// DefaultColor is used for nodes with no or an unknown kind
const DefaultColor = "grey"

// Derive builds a frame from the store's current state. Unresolved links
// are counted but not drawn. keys may be nil.
func Derive(g Graph, keys KeyLookup) Frame {
	nodes := g.Nodes()
	links := g.Links()

	f := Frame{
		Nodes: make([]NodeView, 0, len(nodes)),
		Links: make([]LinkView, 0, len(links)),
	}

	for _, n := range nodes {
		f.Nodes = append(f.Nodes, nodeView(n, keys))
	}

	for _, l := range links {
		if !l.Resolved || l.Source == nil || l.Target == nil {
			f.Unresolved++
			continue
		}
		x1, y1 := l.Source.XY()
		x2, y2 := l.Target.XY()
		f.Links = append(f.Links, LinkView{
			Source: l.SourceAddress,
			Target: l.TargetAddress,
			X1:     x1,
			Y1:     y1,
			X2:     x2,
			Y2:     y2,
			LabelX: (x1 + x2) / 2,
			LabelY: (y1 + y2) / 2,
			Label:  FormatDelta(l.BalanceDelta),
		})
	}
	return f
}

func nodeView(n *graph.Node, keys KeyLookup) NodeView {
	x, y := n.XY()
	v := NodeView{
		Address: n.Address,
		X:       x,
		Y:       y,
		Radius:  NodeRadius,
		Color:   ColorFor(n.Kind),
		Pinned:  n.Pinned(),
	}
	if keys != nil {
		_, v.Expandable = keys.KeyFor(n.Address)
	}

	if n.DisplayName != "" {
		v.Labels = []Label{
			{Text: n.DisplayName, DY: nameDY},
			{Text: TruncateAddress(n.Address), DY: addressDYNamed},
			{Text: FormatBalance(n.Balance), DY: balanceDYNamed},
		}
	} else {
		v.Labels = []Label{
			{Text: TruncateAddress(n.Address), DY: addressDY},
			{Text: FormatBalance(n.Balance), DY: balanceDY},
		}
	}
	return v
}

// TruncateAddress shortens addresses longer than 12 characters to
// head.....tail. Lengths count runes, so the result stays valid UTF-8.
func TruncateAddress(addr string) string {
	r := []rune(addr)
	if len(r) <= truncateOver {
		return addr
	}
	return string(r[:truncateHead]) + truncateEllipsis + string(r[len(r)-truncateTail:])
}

// ColorFor maps a node kind to a fill colour
func ColorFor(kind string) string {
	if c, ok := kindColors[kind]; ok {
		return c
	}
	return DefaultColor
}

// FormatBalance renders a balance with one decimal place
func FormatBalance(b float64) string {
	return strconv.FormatFloat(b, 'f', 1, 64)
}

// FormatDelta renders a balance delta rounded to an integer, halves
// rounding up.
func FormatDelta(d float64) string {
	r := math.Floor(d + 0.5)
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', 0, 64)
}
