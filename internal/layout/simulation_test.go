package layout

import (
	"math"
	"testing"

	"github.com/starford/thoughtmap/internal/graphview"
	"github.com/starford/thoughtmap/internal/thought"
)

func pair(t *testing.T, linked bool) (*graphview.GraphNode, *graphview.GraphNode, []*graphview.GraphLink) {
	t.Helper()
	a := &graphview.GraphNode{ID: "a", Thought: thought.New("a", "", thought.TypeQuestion)}
	b := &graphview.GraphNode{ID: "b", Thought: thought.New("b", "", thought.TypeHypothesis)}
	var links []*graphview.GraphLink
	if linked {
		links = append(links, &graphview.GraphLink{Source: a, Target: b})
	}
	return a, b, links
}

func dist(a, b *graphview.GraphNode) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func TestNew_PlacesUnplacedNodes(t *testing.T) {
	a, b, _ := pair(t, false)
	b.X, b.Y, b.Placed = 500, 500, true

	New([]*graphview.GraphNode{a, b})
	if !a.Placed {
		t.Fatal("a should be placed")
	}
	want := initialRadius * math.Sqrt(0.5)
	if math.Abs(a.X-want) > 1e-9 || math.Abs(a.Y) > 1e-9 {
		t.Errorf("a = (%v, %v), want (%v, 0)", a.X, a.Y, want)
	}
	if b.X != 500 || b.Y != 500 {
		t.Errorf("placed node moved to (%v, %v)", b.X, b.Y)
	}
	if b.Index != 1 {
		t.Errorf("index = %d, want 1", b.Index)
	}
}

func TestTick_AlphaDecays(t *testing.T) {
	a, b, _ := pair(t, false)
	s := New([]*graphview.GraphNode{a, b})
	decay := 1 - math.Pow(DefaultAlphaMin, 1.0/300)
	s.Tick()
	if math.Abs(s.Alpha()-(1-decay)) > 1e-12 {
		t.Errorf("alpha = %v, want %v", s.Alpha(), 1-decay)
	}
}

func TestRun_ReachesRest(t *testing.T) {
	a, b, links := pair(t, true)
	s := New([]*graphview.GraphNode{a, b}).SetForce("link", NewLink(links))
	steps := s.Run(10000)
	if !s.Done() {
		t.Fatal("simulation should be at rest")
	}
	if steps < 290 || steps > 310 {
		t.Errorf("steps = %d, want about 300", steps)
	}
	if s.Run(10) != 0 {
		t.Error("a resting simulation should not step")
	}
}

func TestAlphaTarget_HoldsWarm(t *testing.T) {
	a, b, _ := pair(t, false)
	s := New([]*graphview.GraphNode{a, b}).SetAlphaTarget(DragAlphaTarget)
	s.Run(2000)
	if s.Done() {
		t.Fatal("simulation with an alpha target should not rest")
	}
	if math.Abs(s.Alpha()-DragAlphaTarget) > 0.01 {
		t.Errorf("alpha = %v, want near %v", s.Alpha(), DragAlphaTarget)
	}
	s.SetAlphaTarget(0)
	s.Run(5000)
	if !s.Done() {
		t.Error("simulation should cool once the target is cleared")
	}
}

func TestLinkForce_RestDistance(t *testing.T) {
	a, b, links := pair(t, true)
	s := New([]*graphview.GraphNode{a, b}).SetForce("link", NewLink(links))
	s.Run(1000)
	if d := dist(a, b); math.Abs(d-DefaultLinkDistance) > 5 {
		t.Errorf("distance = %v, want about %v", d, DefaultLinkDistance)
	}
}

func TestLinkForce_CustomDistance(t *testing.T) {
	a, b, links := pair(t, true)
	s := New([]*graphview.GraphNode{a, b}).SetForce("link", NewLink(links).Distance(60))
	s.Run(1000)
	if d := dist(a, b); math.Abs(d-60) > 3 {
		t.Errorf("distance = %v, want about 60", d)
	}
}

func TestLinkForce_SelfLoopIgnored(t *testing.T) {
	a, _, _ := pair(t, false)
	links := []*graphview.GraphLink{{Source: a, Target: a, IsAlias: true}}
	s := New([]*graphview.GraphNode{a}).SetForce("link", NewLink(links))
	x, y := a.X, a.Y
	s.Run(50)
	if a.X != x || a.Y != y {
		t.Errorf("self loop moved node from (%v,%v) to (%v,%v)", x, y, a.X, a.Y)
	}
}

func TestChargeForce_Repels(t *testing.T) {
	a, b, _ := pair(t, false)
	s := New([]*graphview.GraphNode{a, b}).SetForce("charge", NewCharge())
	before := dist(a, b)
	s.Run(50)
	if after := dist(a, b); after <= before {
		t.Errorf("distance %v -> %v, want growth", before, after)
	}
}

func TestCenterForce_MovesMean(t *testing.T) {
	a, b, _ := pair(t, false)
	s := New([]*graphview.GraphNode{a, b}).SetForce("center", NewCenter(400, 300))
	s.Tick()
	mx, my := (a.X+b.X)/2, (a.Y+b.Y)/2
	if math.Abs(mx-400) > 1e-9 || math.Abs(my-300) > 1e-9 {
		t.Errorf("mean = (%v, %v), want (400, 300)", mx, my)
	}
}

func TestCollideForce_SeparatesOverlap(t *testing.T) {
	a, b, _ := pair(t, false)
	a.X, a.Y, a.Placed = 0, 0, true
	b.X, b.Y, b.Placed = 1, 0, true
	radius := func(*graphview.GraphNode) float64 { return 10 }
	s := New([]*graphview.GraphNode{a, b}).SetForce("collide", NewCollide(radius))
	s.Run(300)
	if d := dist(a, b); d < 19 {
		t.Errorf("distance = %v, want at least the radius sum", d)
	}
}

func TestCollideForce_Coincident(t *testing.T) {
	a, b, _ := pair(t, false)
	a.Placed, b.Placed = true, true
	radius := func(*graphview.GraphNode) float64 { return 5 }
	s := New([]*graphview.GraphNode{a, b}).SetForce("collide", NewCollide(radius))
	s.Run(300)
	if d := dist(a, b); d == 0 || math.IsNaN(d) {
		t.Errorf("coincident nodes not separated: %v", d)
	}
}

func TestPinnedNodeFollowsPin(t *testing.T) {
	a, b, _ := pair(t, false)
	s := New([]*graphview.GraphNode{a, b}).SetForce("charge", NewCharge())
	a.Pin(42, -7)
	s.Run(20)
	if a.X != 42 || a.Y != -7 || a.VX != 0 || a.VY != 0 {
		t.Errorf("pinned node at (%v,%v) v=(%v,%v)", a.X, a.Y, a.VX, a.VY)
	}
	a.Unpin()
	s.Restart().Run(20)
	if a.X == 42 && a.Y == -7 {
		t.Error("unpinned node should move again")
	}
}

func TestSetForce_ReplaceAndRemove(t *testing.T) {
	a, b, _ := pair(t, false)
	s := New([]*graphview.GraphNode{a, b})
	c1 := NewCenter(0, 0)
	c2 := NewCenter(10, 10)
	s.SetForce("center", c1).SetForce("center", c2)
	got, ok := s.Force("center")
	if !ok || got != c2 {
		t.Fatal("force not replaced")
	}
	s.SetForce("center", nil)
	if _, ok := s.Force("center"); ok {
		t.Error("force not removed")
	}
}

func TestDeterministic(t *testing.T) {
	build := func() []*graphview.GraphNode {
		r := thought.New("r", "", thought.TypeQuestion).
			AddSubThought(thought.New("c1", "", thought.TypeHypothesis)).
			AddSubThought(thought.New("c2", "", thought.TypeHypothesis))
		g := graphview.Flatten([]*thought.Node{r}, 5, nil)
		s := New(g.Nodes).
			SetForce("link", NewLink(g.Links)).
			SetForce("charge", NewCharge()).
			SetForce("center", NewCenter(400, 300))
		s.Run(100)
		return g.Nodes
	}
	first, second := build(), build()
	for i := range first {
		if first[i].X != second[i].X || first[i].Y != second[i].Y {
			t.Fatalf("node %s differs: (%v,%v) vs (%v,%v)", first[i].ID, first[i].X, first[i].Y, second[i].X, second[i].Y)
		}
	}
}

func TestFind(t *testing.T) {
	a, b, _ := pair(t, false)
	a.X, a.Y, a.Placed = 0, 0, true
	b.X, b.Y, b.Placed = 100, 0, true
	s := New([]*graphview.GraphNode{a, b})
	if got := s.Find(90, 0, 20); got != b {
		t.Errorf("find = %v, want b", got)
	}
	if got := s.Find(50, 50, 10); got != nil {
		t.Errorf("find outside radius = %v", got.ID)
	}
	if got := s.Find(40, 0, 0); got != a {
		t.Errorf("unbounded find = %v, want a", got)
	}
}
