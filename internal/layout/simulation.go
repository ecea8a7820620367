// Package layout implements the force-directed simulation that positions
// graph nodes. The model follows d3-force: an alpha "temperature" decays each
// step, forces adjust node velocities, and velocities are integrated with
// friction.
package layout

import (
	"math"

	"github.com/starford/thoughtmap/internal/graphview"
	"github.com/starford/thoughtmap/internal/metrics"
)

const (
	initialRadius = 10.0
	// DefaultAlphaMin is the temperature below which the simulation is at rest.
	DefaultAlphaMin = 0.001
	// DragAlphaTarget keeps the simulation warm while a node is dragged.
	DragAlphaTarget = 0.3
	defaultVelocity = 0.4
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Force contributes velocity changes on every step.
type Force interface {
	// Initialize is called whenever the node set changes.
	Initialize(nodes []*graphview.GraphNode, random func() float64)
	// Apply adds this force's contribution for the given alpha.
	Apply(alpha float64)
}

type namedForce struct {
	name  string
	force Force
}

// Simulation advances node positions one step at a time. It is not safe for
// concurrent use; Runner owns one from a single goroutine.
type Simulation struct {
	nodes  []*graphview.GraphNode
	forces []namedForce

	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64

	random func() float64
}

// New creates a simulation over nodes and places any node that has no
// position yet on a phyllotaxis spiral around the origin.
func New(nodes []*graphview.GraphNode) *Simulation {
	s := &Simulation{
		nodes:         nodes,
		alpha:         1,
		alphaMin:      DefaultAlphaMin,
		velocityDecay: 1 - defaultVelocity,
		random:        lcg(),
	}
	s.alphaDecay = 1 - math.Pow(s.alphaMin, 1.0/300)
	s.initializeNodes()
	return s
}

func (s *Simulation) initializeNodes() {
	for i, n := range s.nodes {
		n.Index = i
		if n.FX != nil {
			n.X = *n.FX
		}
		if n.FY != nil {
			n.Y = *n.FY
		}
		if !n.Placed {
			r := initialRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			n.X, n.Y = r*math.Cos(a), r*math.Sin(a)
			n.Placed = true
		}
	}
}

// Nodes returns the simulated nodes.
func (s *Simulation) Nodes() []*graphview.GraphNode {
	return s.nodes
}

// SetForce installs f under name, replacing any force with the same name.
// A nil f removes the force.
func (s *Simulation) SetForce(name string, f Force) *Simulation {
	for i, nf := range s.forces {
		if nf.name == name {
			if f == nil {
				s.forces = append(s.forces[:i], s.forces[i+1:]...)
			} else {
				f.Initialize(s.nodes, s.random)
				s.forces[i].force = f
			}
			return s
		}
	}
	if f != nil {
		f.Initialize(s.nodes, s.random)
		s.forces = append(s.forces, namedForce{name: name, force: f})
	}
	return s
}

// Force returns the force registered under name.
func (s *Simulation) Force(name string) (Force, bool) {
	for _, nf := range s.forces {
		if nf.name == name {
			return nf.force, true
		}
	}
	return nil, false
}

// Alpha returns the current temperature.
func (s *Simulation) Alpha() float64 { return s.alpha }

// SetAlpha sets the current temperature.
func (s *Simulation) SetAlpha(a float64) *Simulation {
	s.alpha = a
	return s
}

// AlphaTarget returns the temperature the simulation decays toward.
func (s *Simulation) AlphaTarget() float64 { return s.alphaTarget }

// SetAlphaTarget sets the temperature the simulation decays toward.
func (s *Simulation) SetAlphaTarget(t float64) *Simulation {
	s.alphaTarget = t
	return s
}

// SetAlphaMin changes the rest threshold and recomputes the decay so that a
// cold start still reaches rest in about 300 steps.
func (s *Simulation) SetAlphaMin(m float64) *Simulation {
	if m <= 0 || m >= 1 {
		return s
	}
	s.alphaMin = m
	s.alphaDecay = 1 - math.Pow(m, 1.0/300)
	return s
}

// SetVelocityDecay sets the per-step friction in [0, 1].
func (s *Simulation) SetVelocityDecay(d float64) *Simulation {
	if d >= 0 && d <= 1 {
		s.velocityDecay = 1 - d
	}
	return s
}

// Restart reheats the simulation to at least alpha 1 when it is cooler,
// used after a structural change.
func (s *Simulation) Restart() *Simulation {
	if s.alpha < 1 {
		s.alpha = 1
	}
	return s
}

// Done reports whether the simulation has cooled below alphaMin and is not
// being held warm by an alpha target.
func (s *Simulation) Done() bool {
	return s.alpha < s.alphaMin && s.alphaTarget < s.alphaMin
}

// Tick advances the simulation one step.
func (s *Simulation) Tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay

	for _, nf := range s.forces {
		nf.force.Apply(s.alpha)
	}

	for _, n := range s.nodes {
		if n.FX == nil {
			n.VX *= s.velocityDecay
			n.X += n.VX
		} else {
			n.X = *n.FX
			n.VX = 0
		}
		if n.FY == nil {
			n.VY *= s.velocityDecay
			n.Y += n.VY
		} else {
			n.Y = *n.FY
			n.VY = 0
		}
	}
	metrics.ObserveTick(s.alpha)
}

// Run executes up to max steps and stops early once the simulation is at
// rest. It returns the number of steps taken.
func (s *Simulation) Run(max int) int {
	steps := 0
	for steps < max && !s.Done() {
		s.Tick()
		steps++
	}
	return steps
}

// Find returns the node closest to (x, y) within radius, or nil. A radius
// of zero or less means no limit.
func (s *Simulation) Find(x, y, radius float64) *graphview.GraphNode {
	var closest *graphview.GraphNode
	best := math.Inf(1)
	if radius > 0 {
		best = radius * radius
	}
	for _, n := range s.nodes {
		dx, dy := x-n.X, y-n.Y
		d2 := dx*dx + dy*dy
		if d2 < best {
			closest, best = n, d2
		}
	}
	return closest
}

// lcg is the linear congruential generator d3 uses for deterministic jiggle.
func lcg() func() float64 {
	const (
		a = 1664525
		c = 1013904223
		m = 4294967296
	)
	var state uint64 = 1
	return func() float64 {
		state = (a*state + c) % m
		return float64(state) / m
	}
}

// jiggle returns a tiny random offset used to separate coincident nodes.
func jiggle(random func() float64) float64 {
	return (random() - 0.5) * 1e-6
}
