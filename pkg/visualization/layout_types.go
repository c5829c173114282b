package visualization

import (
	"math"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
)

// Position represents a 2D coordinate
type Position = graph.Position

// Graph is the read view a layout needs; *graph.Store satisfies it
type Graph interface {
	Nodes() []*graph.Node
	Links() []*graph.Link
}

// LayoutConfig configures the static layouts
type LayoutConfig struct {
	Width      float64 // Canvas width
	Height     float64 // Canvas height
	Iterations int     // Maximum ticks for iterative algorithms
	Padding    float64 // Padding from edges
}

// Layout computes a one-shot placement of every node, keyed by address
type Layout interface {
	ComputeLayout(g Graph) (map[string]Position, error)
}

// State is the activity state of a live simulation
type State int

const (
	// Settled means alpha has decayed below the minimum and ticking may pause
	Settled State = iota
	// Active means the simulation is still moving
	Active
)

// String returns the string representation of a state
func (s State) String() string {
	switch s {
	case Settled:
		return "settled"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// SimulationConfig tunes the live force simulation
type SimulationConfig struct {
	// Viewport, the centering force pulls toward (Width/2, Height/2)
	Width  float64 `yaml:"width" validate:"gt=0"`
	Height float64 `yaml:"height" validate:"gt=0"`

	// Forces
	LinkDistance   float64 `yaml:"link_distance" validate:"gte=0"`   // default 150
	LinkStrength   float64 `yaml:"link_strength" validate:"gte=0"`   // 0 = 1/min(degree) per link
	ChargeStrength float64 `yaml:"charge_strength"`                  // default -300
	DistanceMin    float64 `yaml:"distance_min" validate:"gte=0"`    // default 1
	CenterStrength float64 `yaml:"center_strength" validate:"gte=0"` // default 1

	// Energy
	AlphaMin        float64 `yaml:"alpha_min" validate:"gte=0,lt=1"`          // default 0.001
	AlphaDecay      float64 `yaml:"alpha_decay" validate:"gte=0,lt=1"`        // default 1 - AlphaMin^(1/300)
	VelocityDecay   float64 `yaml:"velocity_decay" validate:"gte=0,lte=1"`    // default 0.4
	DragAlphaTarget float64 `yaml:"drag_alpha_target" validate:"gte=0,lte=1"` // default 0.3

	// Seed drives the jiggle applied to coincident nodes
	Seed uint64 `yaml:"seed"`
}

// DefaultSimulationConfig returns the stock simulation tuning
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Width:           960,
		Height:          600,
		LinkDistance:    150,
		ChargeStrength:  -300,
		DistanceMin:     1,
		CenterStrength:  1,
		AlphaMin:        0.001,
		AlphaDecay:      1 - math.Pow(0.001, 1.0/300),
		VelocityDecay:   0.4,
		DragAlphaTarget: 0.3,
		Seed:            1,
	}
}

// withDefaults fills zero fields from DefaultSimulationConfig
func (c SimulationConfig) withDefaults() SimulationConfig {
	d := DefaultSimulationConfig()
	if c.Width != 0 {
		d.Width = c.Width
	}
	if c.Height != 0 {
		d.Height = c.Height
	}
	if c.LinkDistance != 0 {
		d.LinkDistance = c.LinkDistance
	}
	d.LinkStrength = c.LinkStrength
	if c.ChargeStrength != 0 {
		d.ChargeStrength = c.ChargeStrength
	}
	if c.DistanceMin != 0 {
		d.DistanceMin = c.DistanceMin
	}
	if c.CenterStrength != 0 {
		d.CenterStrength = c.CenterStrength
	}
	if c.AlphaMin != 0 {
		d.AlphaMin = c.AlphaMin
		d.AlphaDecay = 1 - math.Pow(c.AlphaMin, 1.0/300)
	}
	if c.AlphaDecay != 0 {
		d.AlphaDecay = c.AlphaDecay
	}
	if c.VelocityDecay != 0 {
		d.VelocityDecay = c.VelocityDecay
	}
	if c.DragAlphaTarget != 0 {
		d.DragAlphaTarget = c.DragAlphaTarget
	}
	if c.Seed != 0 {
		d.Seed = c.Seed
	}
	return d
}
