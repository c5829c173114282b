package visualization

// HierarchicalLayout arranges nodes in levels following transfer direction
type HierarchicalLayout struct {
	config *LayoutConfig
}

// NewHierarchicalLayout creates a new hierarchical layout
func NewHierarchicalLayout(config *LayoutConfig) *HierarchicalLayout {
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &HierarchicalLayout{config: config}
}

// ComputeLayout arranges nodes hierarchically
func (hl *HierarchicalLayout) ComputeLayout(g Graph) (map[string]Position, error) {
	nodes := g.Nodes()
	positions := make(map[string]Position, len(nodes))

	if len(nodes) == 0 {
		return positions, nil
	}

	outgoing := make(map[string][]string)
	incoming := make(map[string]int)
	for _, l := range g.Links() {
		if !l.Resolved {
			continue
		}
		outgoing[l.SourceAddress] = append(outgoing[l.SourceAddress], l.TargetAddress)
		incoming[l.TargetAddress]++
	}

	// Roots are addresses that never receive a transfer
	roots := make([]string, 0)
	for _, n := range nodes {
		if incoming[n.Address] == 0 {
			roots = append(roots, n.Address)
		}
	}

	if len(roots) == 0 {
		// Every node is on a cycle, use first node
		roots = []string{nodes[0].Address}
	}

	// Build levels using BFS
	levels := make([][]string, 0)
	visited := make(map[string]bool)
	for _, r := range roots {
		visited[r] = true
	}
	currentLevel := roots

	for len(currentLevel) > 0 {
		levels = append(levels, currentLevel)
		nextLevel := make([]string, 0)

		for _, addr := range currentLevel {
			for _, to := range outgoing[addr] {
				if !visited[to] {
					nextLevel = append(nextLevel, to)
					visited[to] = true
				}
			}
		}

		currentLevel = nextLevel
	}

	// Add unvisited nodes to last level
	for _, n := range nodes {
		if !visited[n.Address] {
			levels[len(levels)-1] = append(levels[len(levels)-1], n.Address)
		}
	}

	// Position nodes
	levelHeight := (hl.config.Height - 2*hl.config.Padding) / float64(len(levels))

	for levelIdx, level := range levels {
		y := hl.config.Padding + float64(levelIdx)*levelHeight + levelHeight/2
		levelWidth := hl.config.Width - 2*hl.config.Padding
		spacing := levelWidth / float64(len(level)+1)

		for nodeIdx, addr := range level {
			x := hl.config.Padding + spacing*float64(nodeIdx+1)
			positions[addr] = Position{X: x, Y: y}
		}
	}

	return positions, nil
}
