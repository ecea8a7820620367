package graphview

import (
	"github.com/starford/thoughtmap/internal/metrics"
	"github.com/starford/thoughtmap/internal/thought"
)

// Flatten walks roots depth-first and returns one node per distinct id
// reachable within maxDepth and one link per distinct pair of ids.
//
// The id memo is filled before a node's children are visited, so aliases that
// point at an ancestor (or at the node itself) resolve to the node already in
// progress instead of recursing. Alias targets are looked up through r; when r
// is nil only nodes reachable from roots can be alias targets. Aliases that
// cannot be resolved are dropped. Input nodes are never modified.
func Flatten(roots []*thought.Node, maxDepth int, r thought.Resolver) *Graph {
	if r == nil {
		r = thought.Index(roots...)
	}
	f := &flattener{g: newGraph(), maxDepth: maxDepth, resolver: r}
	for _, root := range roots {
		f.visit(root, 0)
	}
	s := f.g.Stats()
	metrics.ObserveFlatten(s.Nodes, s.Links)
	return f.g
}

type flattener struct {
	g        *Graph
	maxDepth int
	resolver thought.Resolver
}

func (f *flattener) visit(t *thought.Node, depth int) *GraphNode {
	if t == nil || depth > f.maxDepth {
		return nil
	}
	if n, ok := f.g.byID[t.ID]; ok {
		return n
	}

	n := f.g.addNode(t)

	for _, child := range t.SubThoughts {
		if c := f.visit(child, depth+1); c != nil {
			f.g.addLink(n, c, false)
		}
	}

	if t.HasAlias() && !f.g.HasLink(t.ID, t.AliasID) {
		if target := f.resolveAlias(t.AliasID, depth); target != nil {
			f.g.addLink(n, target, true)
		}
	}
	return n
}

// resolveAlias returns the memoized node for id or visits the target at the
// aliasing node's depth.
func (f *flattener) resolveAlias(id string, depth int) *GraphNode {
	if n, ok := f.g.byID[id]; ok {
		return n
	}
	target, ok := f.resolver.Lookup(id)
	if !ok {
		return nil
	}
	return f.visit(target, depth)
}
