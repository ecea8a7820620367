// Package view hosts one visualization surface: a flattened forest, the
// layout runner that moves it, and the interaction handlers on top.
package view

import (
	"io"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/thoughtmap/internal/graphview"
	"github.com/starford/thoughtmap/internal/layout"
	"github.com/starford/thoughtmap/internal/metrics"
	"github.com/starford/thoughtmap/internal/render"
	"github.com/starford/thoughtmap/internal/thought"
)

// Canvas defaults.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Props are the inputs of a surface.
type Props struct {
	Roots    []*thought.Node
	Resolver thought.Resolver
	// MaxVisibleDepth bounds structural descent. Zero shows roots only; use
	// DefaultProps for the default of 5.
	MaxVisibleDepth   int
	HighlightedNodeID string
	Width             int
	Height            int
	// OnNodeClick receives the original thought of a clicked node.
	OnNodeClick func(*thought.Node)
	// OnNodeHover receives the hovered thought, or nil on hover-out.
	OnNodeHover func(*thought.Node)
}

// DefaultProps returns props for roots with the default depth and size.
func DefaultProps(roots ...*thought.Node) Props {
	return Props{
		Roots:           roots,
		MaxVisibleDepth: graphview.DefaultMaxDepth,
		Width:           DefaultWidth,
		Height:          DefaultHeight,
	}
}

func (p Props) normalized() Props {
	if p.Width <= 0 {
		p.Width = DefaultWidth
	}
	if p.Height <= 0 {
		p.Height = DefaultHeight
	}
	if p.MaxVisibleDepth < 0 {
		p.MaxVisibleDepth = graphview.DefaultMaxDepth
	}
	return p
}

// Option configures a Surface.
type Option func(*Surface)

// WithLogger sets the surface logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Surface) { s.logger = l }
}

// WithScale sets the depth-to-radius scale used for drawing and collision.
func WithScale(sc render.Scale) Option {
	return func(s *Surface) { s.scale = sc }
}

// WithLinkDistance sets the rest length of links.
func WithLinkDistance(d float64) Option {
	return func(s *Surface) { s.linkDistance = d }
}

// WithChargeStrength sets the many-body strength. Negative values repel.
func WithChargeStrength(v float64) Option {
	return func(s *Surface) { s.charge = v }
}

// WithFrameInterval sets the time between simulation steps.
func WithFrameInterval(d time.Duration) Option {
	return func(s *Surface) { s.interval = d }
}

// WithAlphaMin sets the temperature at which the layout comes to rest.
func WithAlphaMin(m float64) Option {
	return func(s *Surface) { s.alphaMin = m }
}

// Surface is a live, interactive layout of a forest.
//
// Layout state (positions, pins, alpha) belongs to the runner goroutine and is
// only touched through Runner.Do. mu guards props, the current graph and the
// runner handle. Frame listeners are called on the runner goroutine and must
// not call back into the Surface.
type Surface struct {
	logger       *slog.Logger
	scale        render.Scale
	linkDistance float64
	charge       float64
	interval     time.Duration
	alphaMin     float64

	mu        sync.Mutex
	props     Props
	transform render.Transform
	graph     *graphview.Graph
	sim       *layout.Simulation
	runner    *layout.Runner
	closed    bool

	// look is what tick frames are drawn with; replaced on every change.
	look atomic.Pointer[render.FrameOptions]

	subMu     sync.Mutex
	subs      map[int]func(render.Frame)
	nextSubID int
}

// New flattens p.Roots and starts laying them out.
func New(p Props, opts ...Option) *Surface {
	s := &Surface{
		logger:       slog.Default(),
		scale:        render.DefaultScale,
		linkDistance: layout.DefaultLinkDistance,
		charge:       layout.DefaultChargeStrength,
		interval:     layout.DefaultFrameInterval,
		alphaMin:     layout.DefaultAlphaMin,
		props:        p.normalized(),
		transform:    render.Identity,
		subs:         make(map[int]func(render.Frame)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLook()
	s.rebuild(nil)
	return s
}

// rebuild flattens the current props, carries positions over from prev by id
// and starts a fresh runner. The caller holds mu and has stopped any previous
// runner.
func (s *Surface) rebuild(prev *graphview.Graph) {
	p := s.props
	g := graphview.Flatten(p.Roots, p.MaxVisibleDepth, p.Resolver)
	if prev != nil {
		for _, n := range g.Nodes {
			if old, ok := prev.Node(n.ID); ok && old.Placed {
				n.X, n.Y, n.Placed = old.X, old.Y, true
			}
		}
	}

	sim := layout.New(g.Nodes).
		SetAlphaMin(s.alphaMin).
		SetForce("link", layout.NewLink(g.Links).Distance(s.linkDistance)).
		SetForce("charge", layout.NewCharge().Strength(s.charge)).
		SetForce("center", layout.NewCenter(float64(p.Width)/2, float64(p.Height)/2)).
		SetForce("collide", layout.NewCollide(s.scale.Node))

	s.graph = g
	s.sim = sim
	s.runner = layout.NewRunner(sim, s.interval, func(sim *layout.Simulation) {
		s.notify(g, sim)
	})

	st := g.Stats()
	s.logger.Debug("surface rebuilt",
		slog.Int("nodes", st.Nodes),
		slog.Int("links", st.Links),
		slog.Int("max_depth", p.MaxVisibleDepth))
}

func (s *Surface) publishLook() {
	s.look.Store(&render.FrameOptions{
		Width:     s.props.Width,
		Height:    s.props.Height,
		Highlight: s.props.HighlightedNodeID,
		Transform: s.transform,
		Scale:     s.scale,
	})
}

// notify runs on the runner goroutine after every step.
func (s *Surface) notify(g *graphview.Graph, sim *layout.Simulation) {
	s.subMu.Lock()
	if len(s.subs) == 0 {
		s.subMu.Unlock()
		return
	}
	fns := make([]func(render.Frame), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	opts := *s.look.Load()
	opts.Alpha = sim.Alpha()
	f := render.NewFrame(g, opts)
	for _, fn := range fns {
		fn(f)
	}
}

// Props returns the current props.
func (s *Surface) Props() Props {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props
}

// SetProps replaces the props. The forest is flattened again and the layout
// restarted only when roots, resolver or depth changed; highlight, size and
// callbacks are updated in place.
func (s *Surface) SetProps(p Props) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.setProps(p)
}

// UpdateProps edits a copy of the current props with fn and installs it
// without letting another update in between. fn must not call the Surface.
func (s *Surface) UpdateProps(fn func(*Props)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	p := s.props
	fn(&p)
	s.setProps(p)
}

// setProps installs p. The caller holds mu.
func (s *Surface) setProps(p Props) {
	p = p.normalized()
	old := s.props
	s.props = p
	s.publishLook()

	if !sameRoots(old.Roots, p.Roots) || !sameResolver(old.Resolver, p.Resolver) || old.MaxVisibleDepth != p.MaxVisibleDepth {
		s.restructure("props")
		return
	}
	if old.Width != p.Width || old.Height != p.Height {
		cx, cy := float64(p.Width)/2, float64(p.Height)/2
		s.runner.Do(func(sim *layout.Simulation) {
			if f, ok := sim.Force("center"); ok {
				if c, ok := f.(*layout.CenterForce); ok {
					c.SetCenter(cx, cy)
				}
			}
			sim.Restart()
		})
		metrics.ObserveRestart("resize")
	}
}

// Refresh flattens the forest again. Use it when thoughts were changed in
// place, which SetProps cannot detect.
func (s *Surface) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.restructure("refresh")
}

func (s *Surface) restructure(cause string) {
	s.runner.Stop()
	s.rebuild(s.graph)
	metrics.ObserveRestart(cause)
}

// Graph returns the current flattened graph. Node positions in it are owned
// by the layout; use Frame for a consistent snapshot.
func (s *Surface) Graph() *graphview.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// withSim runs fn against the simulation on the runner goroutine, or
// directly once the runner has stopped. The caller holds mu.
func (s *Surface) withSim(fn func(*layout.Simulation)) {
	if !s.runner.Do(fn) {
		fn(s.sim)
	}
}

// Click reports a click on node id to OnNodeClick. It returns true when the
// click hit a node and must not propagate further.
func (s *Surface) Click(id string) bool {
	s.mu.Lock()
	n, ok := s.graph.Node(id)
	cb := s.props.OnNodeClick
	s.mu.Unlock()
	if !ok {
		return false
	}
	if cb != nil {
		cb(n.Thought)
	}
	return true
}

// Hover reports the pointer entering node id.
func (s *Surface) Hover(id string) bool {
	s.mu.Lock()
	n, ok := s.graph.Node(id)
	cb := s.props.OnNodeHover
	s.mu.Unlock()
	if !ok {
		return false
	}
	if cb != nil {
		cb(n.Thought)
	}
	return true
}

// HoverOut reports the pointer leaving a node.
func (s *Surface) HoverOut() {
	s.mu.Lock()
	cb := s.props.OnNodeHover
	s.mu.Unlock()
	if cb != nil {
		cb(nil)
	}
}

// DragStart pins node id where it is and raises the alpha target so the rest
// of the graph eases after the drag. Alpha itself is left alone.
func (s *Surface) DragStart(id string) bool {
	return s.drag(id, func(sim *layout.Simulation, n *graphview.GraphNode) {
		sim.SetAlphaTarget(layout.DragAlphaTarget)
		n.Pin(n.X, n.Y)
		metrics.ObserveRestart("drag")
	})
}

// Drag moves the pinned node id to (x, y) in layout coordinates.
func (s *Surface) Drag(id string, x, y float64) bool {
	return s.drag(id, func(_ *layout.Simulation, n *graphview.GraphNode) {
		n.Pin(x, y)
	})
}

// DragEnd releases node id and lets the layout cool down.
func (s *Surface) DragEnd(id string) bool {
	return s.drag(id, func(sim *layout.Simulation, n *graphview.GraphNode) {
		sim.SetAlphaTarget(0)
		n.Unpin()
	})
}

func (s *Surface) drag(id string, fn func(*layout.Simulation, *graphview.GraphNode)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.graph.Node(id)
	if !ok || s.closed {
		return false
	}
	s.runner.Do(func(sim *layout.Simulation) { fn(sim, n) })
	return true
}

// Zoom sets the scale to k, clamped to [0.1, 4], keeping the screen point
// (cx, cy) fixed.
func (s *Surface) Zoom(k, cx, cy float64) render.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.transform
	next := render.Transform{X: t.X, Y: t.Y, K: k}.Clamp()
	lx, ly := t.Invert(cx, cy)
	next.X = cx - lx*next.K
	next.Y = cy - ly*next.K
	s.transform = next
	s.publishLook()
	return next
}

// Pan translates the canvas by (dx, dy) screen pixels.
func (s *Surface) Pan(dx, dy float64) render.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.X += dx
	s.transform.Y += dy
	s.publishLook()
	return s.transform
}

// Transform returns the current pan/zoom.
func (s *Surface) Transform() render.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform
}

// Settle runs up to maxTicks steps immediately, for headless rendering. It
// returns the number of steps taken.
func (s *Surface) Settle(maxTicks int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	s.withSim(func(sim *layout.Simulation) { n = sim.Run(maxTicks) })
	return n
}

// Reheat restarts the layout at full temperature.
func (s *Surface) Reheat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.runner.Reheat("reheat")
	}
}

// Frame returns a snapshot of the current layout.
func (s *Surface) Frame() render.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts := *s.look.Load()
	var f render.Frame
	s.withSim(func(sim *layout.Simulation) {
		opts.Alpha = sim.Alpha()
		f = render.NewFrame(s.graph, opts)
	})
	return f
}

// Render writes the current frame as SVG.
func (s *Surface) Render(w io.Writer) error {
	return render.SVG(w, s.Frame())
}

// Subscribe registers fn to receive a frame after every layout step. The
// returned function removes it.
func (s *Surface) Subscribe(fn func(render.Frame)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Close stops the layout. No frame is delivered after Close returns. Close is
// idempotent.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.runner.Stop()
}

func sameRoots(a, b []*thought.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameResolver(a, b thought.Resolver) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !va.Comparable() {
		return false
	}
	return a == b
}
