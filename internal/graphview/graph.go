// Package graphview flattens a forest of thoughts into the node/link graph
// consumed by the force layout.
package graphview

import (
	"github.com/starford/thoughtmap/internal/thought"
)

// DefaultMaxDepth is the visible depth used when none is configured.
const DefaultMaxDepth = 5

// GraphNode wraps one thought with its layout state.
type GraphNode struct {
	ID        string
	Thought   *thought.Node
	Reflexive bool
	Index     int

	X, Y   float64
	VX, VY float64
	// Placed is set once the node has been given a position.
	Placed bool
	// FX and FY pin the node while non-nil.
	FX, FY *float64
}

// Pinned reports whether the node position is fixed.
func (n *GraphNode) Pinned() bool {
	return n.FX != nil || n.FY != nil
}

// Pin fixes the node at (x, y).
func (n *GraphNode) Pin(x, y float64) {
	n.FX, n.FY = &x, &y
}

// Unpin returns the node to simulation control.
func (n *GraphNode) Unpin() {
	n.FX, n.FY = nil, nil
}

// GraphLink joins two nodes. IsAlias marks alias edges as opposed to
// parent/child edges.
type GraphLink struct {
	Source  *GraphNode
	Target  *GraphNode
	IsAlias bool
}

// Graph is the flattened view of a forest.
type Graph struct {
	Nodes []*GraphNode
	Links []*GraphLink

	byID  map[string]*GraphNode
	pairs map[pairKey]struct{}
}

// Stats summarises a graph.
type Stats struct {
	Nodes       int `json:"nodes"`
	Links       int `json:"links"`
	AliasLinks  int `json:"alias_links"`
	Reflexive   int `json:"reflexive"`
	StructLinks int `json:"structural_links"`
}

type pairKey struct{ a, b string }

func newPairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

func newGraph() *Graph {
	return &Graph{
		Nodes: []*GraphNode{},
		Links: []*GraphLink{},
		byID:  make(map[string]*GraphNode),
		pairs: make(map[pairKey]struct{}),
	}
}

// Node returns the graph node for id.
func (g *Graph) Node(id string) (*GraphNode, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// HasLink reports whether a link joins a and b in either direction.
func (g *Graph) HasLink(a, b string) bool {
	_, ok := g.pairs[newPairKey(a, b)]
	return ok
}

// Stats counts nodes and links by kind.
func (g *Graph) Stats() Stats {
	s := Stats{Nodes: len(g.Nodes), Links: len(g.Links)}
	for _, l := range g.Links {
		if l.IsAlias {
			s.AliasLinks++
		} else {
			s.StructLinks++
		}
	}
	for _, n := range g.Nodes {
		if n.Reflexive {
			s.Reflexive++
		}
	}
	return s
}

func (g *Graph) addNode(t *thought.Node) *GraphNode {
	n := &GraphNode{
		ID:        t.ID,
		Thought:   t,
		Reflexive: t.HasAlias(),
		Index:     len(g.Nodes),
	}
	g.Nodes = append(g.Nodes, n)
	g.byID[t.ID] = n
	return n
}

// addLink records the first link seen for the unordered pair {src, dst}; later
// links for the pair are ignored whatever their kind. A child's alias is linked
// while the child is visited, before its parent links it, so a child aliasing
// its own parent yields a single alias link child -> parent.
func (g *Graph) addLink(src, dst *GraphNode, alias bool) {
	key := newPairKey(src.ID, dst.ID)
	if _, ok := g.pairs[key]; ok {
		return
	}
	g.pairs[key] = struct{}{}
	g.Links = append(g.Links, &GraphLink{Source: src, Target: dst, IsAlias: alias})
}
