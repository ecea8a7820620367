// Package thought defines the recursive reasoning model rendered by thoughtmap.
package thought

import (
	"time"

	"github.com/google/uuid"
)

// Type tags the role a thought plays in a reasoning trace.
type Type string

// Thought types.
const (
	TypeQuestion           Type = "question"
	TypeHypothesis         Type = "hypothesis"
	TypeEvaluation         Type = "evaluation"
	TypeConclusion         Type = "conclusion"
	TypeMetaReflection     Type = "meta-reflection"
	TypeRecursiveReference Type = "recursive-reference"
)

// Types lists every thought type in palette order.
var Types = []Type{
	TypeQuestion,
	TypeHypothesis,
	TypeEvaluation,
	TypeConclusion,
	TypeMetaReflection,
	TypeRecursiveReference,
}

// Valid reports whether t belongs to the closed type set.
func (t Type) Valid() bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

// Status is the evaluation state of a thought.
type Status string

// Evaluation statuses.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
	StatusMemoized   Status = "memoized"
)

// Statuses lists every evaluation status.
var Statuses = []Status{StatusPending, StatusInProgress, StatusComplete, StatusError, StatusMemoized}

// Valid reports whether s belongs to the closed status set.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Domain keys an isomorphic representation.
type Domain string

// Representation domains.
const (
	DomainComputational    Domain = "computational"
	DomainCognitive        Domain = "cognitive"
	DomainRepresentational Domain = "representational"
)

// Valid reports whether d belongs to the closed domain set.
func (d Domain) Valid() bool {
	switch d {
	case DomainComputational, DomainCognitive, DomainRepresentational:
		return true
	}
	return false
}

// Metadata carries lifecycle information for a thought.
type Metadata struct {
	CreatedAt        time.Time `json:"created_at"`
	EvaluationStatus Status    `json:"evaluation_status"`
	RecursionDepth   int       `json:"recursion_depth"`
	MemoizationKey   string    `json:"memoization_key,omitempty"`
}

// Node is a single thought. SubThoughts are owned children and must form a
// tree. AliasID is a non-owning reference to another node, resolved through a
// Resolver; it may point at an ancestor or at the node itself.
type Node struct {
	ID          string         `json:"id"`
	Content     string         `json:"content"`
	Type        Type           `json:"type"`
	SubThoughts []*Node        `json:"sub_thoughts"`
	AliasID     string         `json:"alias_id,omitempty"`
	Isomorphic  map[Domain]any `json:"isomorphic,omitempty"`
	Metadata    Metadata       `json:"metadata"`
}

// New creates a pending thought at recursion depth 0.
func New(id, content string, typ Type) *Node {
	return &Node{
		ID:          id,
		Content:     content,
		Type:        typ,
		SubThoughts: []*Node{},
		Metadata: Metadata{
			CreatedAt:        time.Now(),
			EvaluationStatus: StatusPending,
		},
	}
}

// AddSubThought appends child to the node's children.
func (n *Node) AddSubThought(child *Node) *Node {
	n.SubThoughts = append(n.SubThoughts, child)
	return n
}

// UpdateEvaluationStatus sets the evaluation status.
func (n *Node) UpdateEvaluationStatus(s Status) *Node {
	n.Metadata.EvaluationStatus = s
	return n
}

// CreateIsomorphicRepresentation stores an opaque value under domain.
func (n *Node) CreateIsomorphicRepresentation(d Domain, value any) *Node {
	if n.Isomorphic == nil {
		n.Isomorphic = make(map[Domain]any)
	}
	n.Isomorphic[d] = value
	return n
}

// Memoize records key and marks the node memoized.
func (n *Node) Memoize(key string) *Node {
	n.Metadata.MemoizationKey = key
	n.Metadata.EvaluationStatus = StatusMemoized
	return n
}

// HasAlias reports whether the node refers back to another node.
func (n *Node) HasAlias() bool {
	return n.AliasID != ""
}

// CreateSelfReference returns a new recursive-reference thought whose alias
// points back at n, one recursion level deeper. The caller decides where the
// new node lives (usually n.AddSubThought).
func (n *Node) CreateSelfReference() *Node {
	ref := New(uuid.NewString(), "Self-reference to: "+n.Content, TypeRecursiveReference)
	ref.AliasID = n.ID
	ref.Metadata.RecursionDepth = n.Metadata.RecursionDepth + 1
	return ref
}
