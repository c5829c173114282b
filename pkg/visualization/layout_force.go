package visualization

import (
	"math"
	"math/rand/v2"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
)

const (
	initialRadius = 10
)

// initialAngle is the golden angle used for phyllotaxis seeding
var initialAngle = math.Pi * (3 - math.Sqrt(5))

// body carries the per-node velocity owned by the simulation
type body struct {
	vx, vy float64
}

// Simulation is a live force-directed layout over a growing graph.
//
// It combines a link spring, many-body repulsion and a centering force.
// A global alpha scales every force and decays toward alphaTarget each tick;
// once both fall below AlphaMin the simulation is Settled.
//
// Simulation is not safe for concurrent use; it is driven by the same
// control loop that owns the graph store.
type Simulation struct {
	cfg SimulationConfig

	nodes  []*graph.Node
	links  []*graph.Link
	bodies []body // aligned with nodes

	// Per-link resolved endpoint indices, strengths and bias
	linkEnds     [][2]int
	linkStrength []float64
	linkBias     []float64

	alpha       float64
	alphaTarget float64

	ticks uint64
	rng   *rand.Rand
}

// NewSimulation creates a simulation with alpha at its maximum
func NewSimulation(cfg SimulationConfig) *Simulation {
	cfg = cfg.withDefaults()
	return &Simulation{
		cfg:   cfg,
		alpha: 1,
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// Config returns the effective configuration
func (s *Simulation) Config() SimulationConfig {
	return s.cfg
}

// Sync adopts the current nodes and links of g.
// New nodes without a position are seeded on a phyllotaxis spiral around
// the viewport centre; existing velocities are kept. Sync does not reheat.
func (s *Simulation) Sync(g Graph) {
	s.nodes = g.Nodes()
	s.links = g.Links()

	for len(s.bodies) < len(s.nodes) {
		s.bodies = append(s.bodies, body{})
	}
	s.bodies = s.bodies[:len(s.nodes)]

	cx, cy := s.cfg.Width/2, s.cfg.Height/2
	for i, n := range s.nodes {
		if n.Pin != nil {
			p := *n.Pin
			n.Position = &p
			continue
		}
		if n.Position != nil {
			continue
		}
		radius := initialRadius * math.Sqrt(0.5+float64(i))
		angle := float64(i) * initialAngle
		n.Position = &Position{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		}
	}

	s.initLinks()
}

// initLinks recomputes endpoint indices, default strengths and bias
func (s *Simulation) initLinks() {
	index := make(map[*graph.Node]int, len(s.nodes))
	for i, n := range s.nodes {
		index[n] = i
	}

	count := make([]int, len(s.nodes))
	s.linkEnds = make([][2]int, len(s.links))
	for i, l := range s.links {
		s.linkEnds[i] = [2]int{-1, -1}
		if !l.Resolved {
			continue
		}
		si, sok := index[l.Source]
		ti, tok := index[l.Target]
		if !sok || !tok {
			continue
		}
		s.linkEnds[i] = [2]int{si, ti}
		count[si]++
		count[ti]++
	}

	s.linkStrength = make([]float64, len(s.links))
	s.linkBias = make([]float64, len(s.links))
	for i, ends := range s.linkEnds {
		si, ti := ends[0], ends[1]
		if si < 0 {
			continue
		}
		if s.cfg.LinkStrength > 0 {
			s.linkStrength[i] = s.cfg.LinkStrength
		} else {
			s.linkStrength[i] = 1 / float64(min(count[si], count[ti]))
		}
		s.linkBias[i] = float64(count[si]) / float64(count[si]+count[ti])
	}
}

// Tick advances the simulation by one step and reports whether it is
// still active afterwards.
func (s *Simulation) Tick() bool {
	s.alpha += (s.alphaTarget - s.alpha) * s.cfg.AlphaDecay

	s.applyLinkForce()
	s.applyManyBodyForce()
	s.applyCenterForce()

	keep := 1 - s.cfg.VelocityDecay
	for i, n := range s.nodes {
		b := &s.bodies[i]
		if n.Pin != nil {
			n.Position.X, n.Position.Y = n.Pin.X, n.Pin.Y
			b.vx, b.vy = 0, 0
			continue
		}
		b.vx *= keep
		b.vy *= keep
		n.Position.X += b.vx
		n.Position.Y += b.vy
	}

	s.ticks++
	return s.Active()
}

// Run ticks up to n times while the simulation is active and returns the
// number of ticks performed.
func (s *Simulation) Run(n int) int {
	done := 0
	for done < n && s.Active() {
		s.Tick()
		done++
	}
	return done
}

// Reheat resets alpha to its maximum. Alpha never decreases as a result.
// It reports whether the call moved the simulation out of Settled.
func (s *Simulation) Reheat() bool {
	wasSettled := !s.Active()
	s.alpha = 1
	return wasSettled
}

// SetAlphaTarget sets the value alpha decays toward. A target at or above
// AlphaMin keeps the simulation Active.
func (s *Simulation) SetAlphaTarget(target float64) {
	s.alphaTarget = target
}

// Alpha returns the current energy
func (s *Simulation) Alpha() float64 {
	return s.alpha
}

// AlphaTarget returns the value alpha decays toward
func (s *Simulation) AlphaTarget() float64 {
	return s.alphaTarget
}

// Active reports whether ticking should continue
func (s *Simulation) Active() bool {
	return s.alpha >= s.cfg.AlphaMin || s.alphaTarget >= s.cfg.AlphaMin
}

// State returns Active or Settled
func (s *Simulation) State() State {
	if s.Active() {
		return Active
	}
	return Settled
}

// Ticks returns the number of ticks run so far
func (s *Simulation) Ticks() uint64 {
	return s.ticks
}

// Velocity returns the velocity of the node at insertion index i
func (s *Simulation) Velocity(i int) (float64, float64) {
	if i < 0 || i >= len(s.bodies) {
		return 0, 0
	}
	return s.bodies[i].vx, s.bodies[i].vy
}

// Positions returns a snapshot of every placed node position
func (s *Simulation) Positions() map[string]Position {
	out := make(map[string]Position, len(s.nodes))
	for _, n := range s.nodes {
		if n.Position != nil {
			out[n.Address] = *n.Position
		}
	}
	return out
}

// ForceDirectedLayout computes a one-shot layout by running a private
// simulation over a copy of the graph until it settles.
type ForceDirectedLayout struct {
	config *LayoutConfig
	sim    SimulationConfig
}

// NewForceDirectedLayout creates a new force-directed layout
func NewForceDirectedLayout(config *LayoutConfig) *ForceDirectedLayout {
	if config.Iterations == 0 {
		config.Iterations = 300
	}
	if config.Padding == 0 {
		config.Padding = 50
	}
	sim := DefaultSimulationConfig()
	sim.Width = config.Width
	sim.Height = config.Height
	return &ForceDirectedLayout{config: config, sim: sim}
}

// ComputeLayout computes positions using the force simulation
func (fdl *ForceDirectedLayout) ComputeLayout(g Graph) (map[string]Position, error) {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return make(map[string]Position), nil
	}

	// Single node - center it
	if len(nodes) == 1 {
		return map[string]Position{
			nodes[0].Address: {
				X: fdl.config.Width / 2,
				Y: fdl.config.Height / 2,
			},
		}, nil
	}

	shadow := graph.NewStore()
	if _, err := shadow.Merge(toPayload(g)); err != nil && !graph.IsUnresolved(err) {
		return nil, err
	}

	sim := NewSimulation(fdl.sim)
	sim.Sync(shadow)
	sim.Run(fdl.config.Iterations)

	// Normalize positions to bounds
	return normalizePositions(sim.Positions(), fdl.config.Width, fdl.config.Height, fdl.config.Padding), nil
}
