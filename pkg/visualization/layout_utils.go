package visualization

import (
	"fmt"
	"math"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
)

// NewLayout returns the static layout registered under name
func NewLayout(name string, config *LayoutConfig) (Layout, error) {
	switch name {
	case "force", "":
		return NewForceDirectedLayout(config), nil
	case "circular":
		return NewCircularLayout(config), nil
	case "hierarchical":
		return NewHierarchicalLayout(config), nil
	default:
		return nil, fmt.Errorf("unknown layout %q", name)
	}
}

// Apply writes computed positions onto the nodes of g
func Apply(g Graph, positions map[string]Position) {
	for _, n := range g.Nodes() {
		if p, ok := positions[n.Address]; ok {
			n.Position = &Position{X: p.X, Y: p.Y}
		}
	}
}

// toPayload rebuilds the wire payload for g so it can be replayed into a
// private store
func toPayload(g Graph) *graph.Payload {
	p := &graph.Payload{
		Nodes: make([]graph.PayloadNode, 0, len(g.Nodes())),
		Links: make([]graph.PayloadLink, 0, len(g.Links())),
	}
	for _, n := range g.Nodes() {
		p.Nodes = append(p.Nodes, graph.PayloadNode{
			Address:     n.Address,
			AddressName: n.DisplayName,
			Balance:     n.Balance,
			Type:        n.Kind,
		})
	}
	for _, l := range g.Links() {
		p.Links = append(p.Links, graph.PayloadLink{
			From:         l.SourceAddress,
			To:           l.TargetAddress,
			BalanceDelta: l.BalanceDelta,
		})
	}
	return p
}

// normalizePositions scales positions to fit within bounds
func normalizePositions(positions map[string]Position, width, height, padding float64) map[string]Position {
	if len(positions) == 0 {
		return positions
	}

	// Find bounds
	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64

	for _, pos := range positions {
		minX = math.Min(minX, pos.X)
		maxX = math.Max(maxX, pos.X)
		minY = math.Min(minY, pos.Y)
		maxY = math.Max(maxY, pos.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY

	if rangeX < 0.01 {
		rangeX = 1
	}
	if rangeY < 0.01 {
		rangeY = 1
	}

	// Scale to fit bounds with padding
	targetWidth := width - 2*padding
	targetHeight := height - 2*padding

	normalized := make(map[string]Position, len(positions))
	for addr, pos := range positions {
		normalized[addr] = Position{
			X: padding + ((pos.X-minX)/rangeX)*targetWidth,
			Y: padding + ((pos.Y-minY)/rangeY)*targetHeight,
		}
	}

	return normalized
}
