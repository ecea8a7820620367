package layout

import (
	"math"

	"github.com/starford/thoughtmap/internal/graphview"
)

// Default force parameters.
const (
	DefaultLinkDistance   = 150.0
	DefaultChargeStrength = -300.0
	distanceMin2          = 1.0
)

// LinkForce pulls linked nodes toward a rest distance. Links reference nodes
// by identity, so they stay attached while other forces move the nodes.
type LinkForce struct {
	links    []*graphview.GraphLink
	distance float64
	strength []float64
	bias     []float64
	random   func() float64
}

// NewLink creates a link force over links with the default distance.
func NewLink(links []*graphview.GraphLink) *LinkForce {
	return &LinkForce{links: links, distance: DefaultLinkDistance}
}

// Distance sets the rest length.
func (f *LinkForce) Distance(d float64) *LinkForce {
	f.distance = d
	return f
}

// Initialize implements Force. Strength is 1/min(degree) of the endpoints and
// bias shares the correction by degree, as in d3.forceLink.
func (f *LinkForce) Initialize(_ []*graphview.GraphNode, random func() float64) {
	f.random = random
	count := make(map[*graphview.GraphNode]int)
	for _, l := range f.links {
		if l.Source == l.Target {
			continue
		}
		count[l.Source]++
		count[l.Target]++
	}
	f.strength = make([]float64, len(f.links))
	f.bias = make([]float64, len(f.links))
	for i, l := range f.links {
		if l.Source == l.Target {
			continue
		}
		cs, ct := float64(count[l.Source]), float64(count[l.Target])
		f.bias[i] = cs / (cs + ct)
		f.strength[i] = 1 / math.Min(cs, ct)
	}
}

// Apply implements Force.
func (f *LinkForce) Apply(alpha float64) {
	for i, l := range f.links {
		src, dst := l.Source, l.Target
		if src == dst {
			continue
		}
		x := dst.X + dst.VX - src.X - src.VX
		if x == 0 {
			x = jiggle(f.random)
		}
		y := dst.Y + dst.VY - src.Y - src.VY
		if y == 0 {
			y = jiggle(f.random)
		}
		d := math.Sqrt(x*x + y*y)
		k := (d - f.distance) / d * alpha * f.strength[i]
		x, y = x*k, y*k
		b := f.bias[i]
		dst.VX -= x * b
		dst.VY -= y * b
		src.VX += x * (1 - b)
		src.VY += y * (1 - b)
	}
}

// ChargeForce makes every node repel (negative strength) or attract every
// other node. The pairwise sum is exact; graphs here stay small.
type ChargeForce struct {
	nodes    []*graphview.GraphNode
	strength float64
	random   func() float64
}

// NewCharge creates a many-body force with the default strength.
func NewCharge() *ChargeForce {
	return &ChargeForce{strength: DefaultChargeStrength}
}

// Strength sets the charge of every node.
func (f *ChargeForce) Strength(s float64) *ChargeForce {
	f.strength = s
	return f
}

// Initialize implements Force.
func (f *ChargeForce) Initialize(nodes []*graphview.GraphNode, random func() float64) {
	f.nodes = nodes
	f.random = random
}

// Apply implements Force.
func (f *ChargeForce) Apply(alpha float64) {
	for _, n := range f.nodes {
		for _, o := range f.nodes {
			if n == o {
				continue
			}
			x, y := o.X-n.X, o.Y-n.Y
			if x == 0 {
				x = jiggle(f.random)
			}
			if y == 0 {
				y = jiggle(f.random)
			}
			l := x*x + y*y
			if l < distanceMin2 {
				l = math.Sqrt(distanceMin2 * l)
			}
			w := f.strength * alpha / l
			n.VX += x * w
			n.VY += y * w
		}
	}
}

// CenterForce translates the whole system so its mean position moves toward
// a point. It does not change relative positions.
type CenterForce struct {
	nodes    []*graphview.GraphNode
	x, y     float64
	strength float64
}

// NewCenter creates a centering force toward (x, y).
func NewCenter(x, y float64) *CenterForce {
	return &CenterForce{x: x, y: y, strength: 1}
}

// Strength sets how much of the offset is corrected per step.
func (f *CenterForce) Strength(s float64) *CenterForce {
	f.strength = s
	return f
}

// SetCenter moves the target point.
func (f *CenterForce) SetCenter(x, y float64) {
	f.x, f.y = x, y
}

// Center returns the target point.
func (f *CenterForce) Center() (float64, float64) {
	return f.x, f.y
}

// Initialize implements Force.
func (f *CenterForce) Initialize(nodes []*graphview.GraphNode, _ func() float64) {
	f.nodes = nodes
}

// Apply implements Force.
func (f *CenterForce) Apply(float64) {
	if len(f.nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range f.nodes {
		sx += n.X
		sy += n.Y
	}
	n := float64(len(f.nodes))
	sx = (sx/n - f.x) * f.strength
	sy = (sy/n - f.y) * f.strength
	for _, node := range f.nodes {
		node.X -= sx
		node.Y -= sy
	}
}

// CollideForce keeps nodes at least the sum of their radii apart.
type CollideForce struct {
	nodes    []*graphview.GraphNode
	radius   func(*graphview.GraphNode) float64
	radii    []float64
	strength float64
	random   func() float64
}

// NewCollide creates a collision force using radius per node.
func NewCollide(radius func(*graphview.GraphNode) float64) *CollideForce {
	return &CollideForce{radius: radius, strength: 1}
}

// Strength sets the fraction of overlap resolved per step.
func (f *CollideForce) Strength(s float64) *CollideForce {
	f.strength = s
	return f
}

// Initialize implements Force.
func (f *CollideForce) Initialize(nodes []*graphview.GraphNode, random func() float64) {
	f.nodes = nodes
	f.random = random
	f.radii = make([]float64, len(nodes))
	for i, n := range nodes {
		f.radii[i] = f.radius(n)
	}
}

// Apply implements Force. Positions are anticipated with the current
// velocity, and the correction is shared in proportion to squared radii.
func (f *CollideForce) Apply(float64) {
	for i, n := range f.nodes {
		ri := f.radii[i]
		ri2 := ri * ri
		xi, yi := n.X+n.VX, n.Y+n.VY
		for j := i + 1; j < len(f.nodes); j++ {
			o := f.nodes[j]
			rj := f.radii[j]
			r := ri + rj
			x := xi - o.X - o.VX
			y := yi - o.Y - o.VY
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = jiggle(f.random)
				l += x * x
			}
			if y == 0 {
				y = jiggle(f.random)
				l += y * y
			}
			d := math.Sqrt(l)
			k := (r - d) / d * f.strength
			x, y = x*k, y*k
			rj2 := rj * rj
			share := rj2 / (ri2 + rj2)
			n.VX += x * share
			n.VY += y * share
			o.VX -= x * (1 - share)
			o.VY -= y * (1 - share)
		}
	}
}
