package thought

// Resolver looks nodes up by id. Aliases are resolved through it, never
// through a second ownership edge.
type Resolver interface {
	Lookup(id string) (*Node, bool)
}

// Registry maps ids to nodes. The first registration of an id wins.
type Registry struct {
	nodes map[string]*Node
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]*Node)}
}

// Index builds a registry from every node reachable through SubThoughts.
func Index(roots ...*Node) *Registry {
	r := NewRegistry()
	r.Register(roots...)
	return r
}

// Register adds nodes and their subtrees.
func (r *Registry) Register(nodes ...*Node) {
	Walk(nodes, func(n *Node, _ int) bool {
		if _, ok := r.nodes[n.ID]; !ok {
			r.nodes[n.ID] = n
		}
		return true
	})
}

// Lookup implements Resolver.
func (r *Registry) Lookup(id string) (*Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// Len returns the number of distinct ids.
func (r *Registry) Len() int {
	return len(r.nodes)
}

// Walk visits roots depth-first in pre-order, children in array order.
// level is 0 for roots. Returning false from fn skips the node's children.
// Nodes seen twice (shared subtrees) are visited once.
func Walk(roots []*Node, fn func(n *Node, level int) bool) {
	seen := make(map[*Node]struct{})
	var visit func(n *Node, level int)
	visit = func(n *Node, level int) {
		if n == nil {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		if !fn(n, level) {
			return
		}
		for _, c := range n.SubThoughts {
			visit(c, level+1)
		}
	}
	for _, r := range roots {
		visit(r, 0)
	}
}

// Find returns the node with id and its parent (nil for roots) by walking roots.
func Find(roots []*Node, id string) (node, parent *Node) {
	var search func(n, p *Node) bool
	search = func(n, p *Node) bool {
		if n.ID == id {
			node, parent = n, p
			return true
		}
		for _, c := range n.SubThoughts {
			if search(c, n) {
				return true
			}
		}
		return false
	}
	for _, r := range roots {
		if search(r, nil) {
			return node, parent
		}
	}
	return nil, nil
}
