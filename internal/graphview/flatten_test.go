package graphview

import (
	"fmt"
	"sort"
	"testing"

	"github.com/starford/thoughtmap/internal/thought"
)

func linkSet(g *Graph) []string {
	out := make([]string, 0, len(g.Links))
	for _, l := range g.Links {
		out = append(out, fmt.Sprintf("%s->%s:%v", l.Source.ID, l.Target.ID, l.IsAlias))
	}
	sort.Strings(out)
	return out
}

func nodeIDs(g *Graph) []string {
	out := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestFlatten_SingleRoot(t *testing.T) {
	r := thought.New("r1", "root", thought.TypeQuestion)
	g := Flatten([]*thought.Node{r}, DefaultMaxDepth, nil)
	if len(g.Nodes) != 1 || len(g.Links) != 0 {
		t.Fatalf("got %d nodes %d links, want 1/0", len(g.Nodes), len(g.Links))
	}
	if g.Nodes[0].Thought != r {
		t.Error("graph node must wrap the original thought")
	}
	if g.Nodes[0].Reflexive {
		t.Error("node without alias marked reflexive")
	}
}

func TestFlatten_RootWithChild(t *testing.T) {
	r := thought.New("r1", "root", thought.TypeQuestion).
		AddSubThought(thought.New("c1", "child", thought.TypeHypothesis))
	g := Flatten([]*thought.Node{r}, DefaultMaxDepth, nil)
	if len(g.Nodes) != 2 || len(g.Links) != 1 {
		t.Fatalf("got %d nodes %d links, want 2/1", len(g.Nodes), len(g.Links))
	}
	l := g.Links[0]
	if l.Source.ID != "r1" || l.Target.ID != "c1" || l.IsAlias {
		t.Errorf("link = %s->%s alias=%v", l.Source.ID, l.Target.ID, l.IsAlias)
	}
}

func TestFlatten_SelfAlias(t *testing.T) {
	r := thought.New("r1", "root", thought.TypeRecursiveReference)
	r.AliasID = "r1"
	g := Flatten([]*thought.Node{r}, DefaultMaxDepth, nil)
	if len(g.Nodes) != 1 || len(g.Links) != 1 {
		t.Fatalf("got %d nodes %d links, want 1/1", len(g.Nodes), len(g.Links))
	}
	l := g.Links[0]
	if l.Source != l.Target || !l.IsAlias {
		t.Errorf("expected alias self-loop, got %s->%s alias=%v", l.Source.ID, l.Target.ID, l.IsAlias)
	}
	if !g.Nodes[0].Reflexive {
		t.Error("aliasing node should be reflexive")
	}
}

func TestFlatten_TwoRootsAliasNotDuplicated(t *testing.T) {
	a := thought.New("a", "A", thought.TypeQuestion)
	b := thought.New("b", "B", thought.TypeRecursiveReference)
	b.AliasID = "a"
	a.AliasID = "b"

	g := Flatten([]*thought.Node{a, b}, DefaultMaxDepth, nil)
	if len(g.Nodes) != 2 {
		t.Fatalf("nodes = %v", nodeIDs(g))
	}
	if len(g.Links) != 1 || !g.Links[0].IsAlias {
		t.Fatalf("links = %v, want one alias link", linkSet(g))
	}
}

func TestFlatten_AliasToAncestorTerminates(t *testing.T) {
	root := thought.New("root", "root", thought.TypeQuestion)
	mid := thought.New("mid", "mid", thought.TypeHypothesis)
	leaf := root.CreateSelfReference()
	leaf.AliasID = "root"
	mid.AddSubThought(leaf)
	root.AddSubThought(mid)
	mid.AliasID = "root"

	g := Flatten([]*thought.Node{root}, 10, nil)
	if len(g.Nodes) != 3 {
		t.Fatalf("nodes = %v", nodeIDs(g))
	}
	// mid->leaf structural, leaf->root alias, mid->root alias. The alias is
	// recorded while mid is still being visited, so root->mid joins the same
	// pair and is not added again.
	if len(g.Links) != 3 {
		t.Fatalf("links = %v", linkSet(g))
	}
	if !g.HasLink("root", "mid") || !g.HasLink("mid", leaf.ID) || !g.HasLink(leaf.ID, "root") {
		t.Errorf("links = %v", linkSet(g))
	}
}

func TestFlatten_ChildAliasingParentKeepsAliasLink(t *testing.T) {
	parent := thought.New("p", "Is the cache stale?", thought.TypeQuestion)
	ref := parent.CreateSelfReference()
	parent.AddSubThought(ref)

	g := Flatten([]*thought.Node{parent}, DefaultMaxDepth, nil)
	if len(g.Nodes) != 2 {
		t.Fatalf("nodes = %v", nodeIDs(g))
	}
	want := ref.ID + "->p:true"
	if got := linkSet(g); len(got) != 1 || got[0] != want {
		t.Errorf("links = %v, want [%s]", got, want)
	}
	if st := g.Stats(); st.AliasLinks != 1 || st.StructLinks != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestFlatten_DepthZeroRootsOnly(t *testing.T) {
	a := thought.New("a", "", thought.TypeQuestion).
		AddSubThought(thought.New("a1", "", thought.TypeHypothesis))
	b := thought.New("b", "", thought.TypeQuestion).
		AddSubThought(thought.New("b1", "", thought.TypeHypothesis))

	g := Flatten([]*thought.Node{a, b}, 0, nil)
	ids := nodeIDs(g)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("nodes = %v, want [a b]", ids)
	}
	if len(g.Links) != 0 {
		t.Errorf("links = %v, want none", linkSet(g))
	}
}

func TestFlatten_DepthTruncation(t *testing.T) {
	chain := thought.New("n0", "", thought.TypeQuestion)
	cur := chain
	for i := 1; i <= 8; i++ {
		next := thought.New(fmt.Sprintf("n%d", i), "", thought.TypeHypothesis)
		cur.AddSubThought(next)
		cur = next
	}
	g := Flatten([]*thought.Node{chain}, 3, nil)
	if len(g.Nodes) != 4 || len(g.Links) != 3 {
		t.Errorf("got %d nodes %d links, want 4/3", len(g.Nodes), len(g.Links))
	}
}

func TestFlatten_AliasCompleteness(t *testing.T) {
	hidden := thought.New("hidden", "not under any root", thought.TypeConclusion).
		AddSubThought(thought.New("hidden-child", "", thought.TypeEvaluation))
	a := thought.New("a", "", thought.TypeQuestion)
	a.AliasID = "hidden"
	a2 := thought.New("a2", "", thought.TypeQuestion)
	a2.AliasID = "hidden"

	reg := thought.Index(a, a2)
	reg.Register(hidden)

	g := Flatten([]*thought.Node{a, a2}, DefaultMaxDepth, reg)
	count := 0
	for _, n := range g.Nodes {
		if n.ID == "hidden" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("hidden appears %d times, want 1 (nodes %v)", count, nodeIDs(g))
	}
	if _, ok := g.Node("hidden-child"); !ok {
		t.Error("alias target subtree should be expanded from the aliasing depth")
	}
	if !g.HasLink("a", "hidden") || !g.HasLink("hidden", "a2") {
		t.Errorf("alias links missing: %v", linkSet(g))
	}
}

func TestFlatten_AliasTargetDepthBound(t *testing.T) {
	hidden := thought.New("hidden", "", thought.TypeConclusion).
		AddSubThought(thought.New("hidden-child", "", thought.TypeEvaluation))
	root := thought.New("root", "", thought.TypeQuestion)
	root.AliasID = "hidden"
	reg := thought.Index(root)
	reg.Register(hidden)

	g := Flatten([]*thought.Node{root}, 0, reg)
	if _, ok := g.Node("hidden"); !ok {
		t.Fatal("alias target visited at the aliasing depth should be present")
	}
	if _, ok := g.Node("hidden-child"); ok {
		t.Error("alias target children beyond max depth should be omitted")
	}
}

func TestFlatten_UnresolvableAliasDropped(t *testing.T) {
	r := thought.New("r", "", thought.TypeQuestion)
	r.AliasID = "nowhere"
	g := Flatten([]*thought.Node{r}, DefaultMaxDepth, nil)
	if len(g.Nodes) != 1 || len(g.Links) != 0 {
		t.Errorf("got %d nodes %d links, want 1/0", len(g.Nodes), len(g.Links))
	}
	if !g.Nodes[0].Reflexive {
		t.Error("reflexive follows the presence of an alias, resolved or not")
	}
}

func TestFlatten_SharedDescendantsDeduplicated(t *testing.T) {
	shared := thought.New("shared", "", thought.TypeEvaluation)
	a := thought.New("a", "", thought.TypeQuestion).AddSubThought(shared)
	b := thought.New("b", "", thought.TypeQuestion).AddSubThought(shared)

	g := Flatten([]*thought.Node{a, b}, DefaultMaxDepth, nil)
	if len(g.Nodes) != 3 {
		t.Fatalf("nodes = %v", nodeIDs(g))
	}
	if len(g.Links) != 2 {
		t.Fatalf("links = %v", linkSet(g))
	}
}

func TestFlatten_DuplicateIDsMerged(t *testing.T) {
	a := thought.New("same", "first", thought.TypeQuestion)
	b := thought.New("same", "second", thought.TypeQuestion)
	g := Flatten([]*thought.Node{a, b}, DefaultMaxDepth, nil)
	if len(g.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(g.Nodes))
	}
	if g.Nodes[0].Thought.Content != "first" {
		t.Error("first occurrence should win")
	}
}

func TestFlatten_NoDuplicateLinksForRepeatedChild(t *testing.T) {
	c := thought.New("c", "", thought.TypeHypothesis)
	c.AliasID = "p"
	p := thought.New("p", "", thought.TypeQuestion).AddSubThought(c).AddSubThought(c)
	g := Flatten([]*thought.Node{p}, DefaultMaxDepth, nil)
	if len(g.Links) != 1 {
		t.Errorf("links = %v, want exactly one", linkSet(g))
	}
}

func TestFlatten_DeterministicAndOrdered(t *testing.T) {
	build := func() []*thought.Node {
		r := thought.New("r", "", thought.TypeQuestion)
		h1 := thought.New("h1", "", thought.TypeHypothesis)
		h2 := thought.New("h2", "", thought.TypeHypothesis)
		h1.AddSubThought(thought.New("e1", "", thought.TypeEvaluation))
		r.AddSubThought(h1).AddSubThought(h2)
		h2.AliasID = "r"
		other := thought.New("o", "", thought.TypeConclusion)
		other.AliasID = "e1"
		return []*thought.Node{r, other}
	}
	first := Flatten(build(), DefaultMaxDepth, nil)
	second := Flatten(build(), DefaultMaxDepth, nil)

	want := []string{"r", "h1", "e1", "h2", "o"}
	got := nodeIDs(first)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if fmt.Sprint(linkSet(first)) != fmt.Sprint(linkSet(second)) {
		t.Errorf("link sets differ: %v vs %v", linkSet(first), linkSet(second))
	}
	for i, n := range first.Nodes {
		if n.Index != i {
			t.Errorf("node %s index = %d, want %d", n.ID, n.Index, i)
		}
	}
}

func TestFlatten_DoesNotMutateInput(t *testing.T) {
	r := thought.New("r", "", thought.TypeQuestion).AddSubThought(thought.New("c", "", thought.TypeHypothesis))
	r.AliasID = "c"
	Flatten([]*thought.Node{r}, DefaultMaxDepth, nil)
	if len(r.SubThoughts) != 1 || r.AliasID != "c" || r.Metadata.EvaluationStatus != thought.StatusPending {
		t.Error("input forest modified")
	}
}

func TestStats(t *testing.T) {
	r := thought.New("r", "", thought.TypeQuestion).AddSubThought(thought.New("c", "", thought.TypeHypothesis))
	o := thought.New("o", "", thought.TypeRecursiveReference)
	o.AliasID = "c"
	s := Flatten([]*thought.Node{r, o}, DefaultMaxDepth, nil).Stats()
	if s.Nodes != 3 || s.Links != 2 || s.AliasLinks != 1 || s.StructLinks != 1 || s.Reflexive != 1 {
		t.Errorf("stats = %+v", s)
	}
}
