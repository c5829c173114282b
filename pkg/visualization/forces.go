package visualization

import "math"

// applyLinkForce pulls each resolved link toward LinkDistance.
// It works on next-step positions (x + vx) and splits the correction
// between the endpoints by degree, which keeps the spring from diverging.
func (s *Simulation) applyLinkForce() {
	for i := range s.links {
		si, ti := s.linkEnds[i][0], s.linkEnds[i][1]
		if si < 0 || ti < 0 {
			continue
		}
		src, dst := s.nodes[si], s.nodes[ti]
		sb, tb := &s.bodies[si], &s.bodies[ti]

		sx, sy := src.XY()
		tx, ty := dst.XY()

		x := tx + tb.vx - sx - sb.vx
		if x == 0 {
			x = s.jiggle()
		}
		y := ty + tb.vy - sy - sb.vy
		if y == 0 {
			y = s.jiggle()
		}

		d := math.Sqrt(x*x + y*y)
		d = (d - s.cfg.LinkDistance) / d * s.alpha * s.linkStrength[i]
		x *= d
		y *= d

		b := s.linkBias[i]
		tb.vx -= x * b
		tb.vy -= y * b
		sb.vx += x * (1 - b)
		sb.vy += y * (1 - b)
	}
}

// applyManyBodyForce repels every node pair with strength/d².
// Direct summation; graphs here are small and grow interactively.
func (s *Simulation) applyManyBodyForce() {
	dmin2 := s.cfg.DistanceMin * s.cfg.DistanceMin
	for i, a := range s.nodes {
		ax, ay := a.XY()
		body := &s.bodies[i]
		for j, b := range s.nodes {
			if i == j {
				continue
			}
			bx, by := b.XY()
			x := bx - ax
			y := by - ay
			l := x*x + y*y
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			if l < dmin2 {
				l = math.Sqrt(dmin2 * l)
			}
			w := s.cfg.ChargeStrength * s.alpha / l
			body.vx += x * w
			body.vy += y * w
		}
	}
}

// applyCenterForce translates the whole node set so its mean sits on the
// viewport centre. It moves positions, not velocities.
func (s *Simulation) applyCenterForce() {
	n := len(s.nodes)
	if n == 0 {
		return
	}

	var sx, sy float64
	for _, node := range s.nodes {
		x, y := node.XY()
		sx += x
		sy += y
	}
	sx = (sx/float64(n) - s.cfg.Width/2) * s.cfg.CenterStrength
	sy = (sy/float64(n) - s.cfg.Height/2) * s.cfg.CenterStrength

	for _, node := range s.nodes {
		node.Position.X -= sx
		node.Position.Y -= sy
	}
}

// jiggle returns a tiny random offset used to separate coincident nodes
func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}
