// Package codec reads and writes thought documents: YAML files holding a
// forest of thoughts with nested sub-thoughts and aliases by id.
package codec

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/thoughtmap/internal/apperr"
	"github.com/starford/thoughtmap/internal/thought"
)

// Ext is the file extension of thought documents.
const Ext = ".yaml"

// Document is one decoded file.
type Document struct {
	Title string
	Roots []*thought.Node
}

type documentYAML struct {
	Title    string        `yaml:"title,omitempty"`
	Thoughts []thoughtYAML `yaml:"thoughts"`
}

type thoughtYAML struct {
	ID             string         `yaml:"id"`
	Content        string         `yaml:"content"`
	Type           string         `yaml:"type"`
	Status         string         `yaml:"status,omitempty"`
	Depth          int            `yaml:"depth,omitempty"`
	MemoizationKey string         `yaml:"memoization_key,omitempty"`
	CreatedAt      *time.Time     `yaml:"created_at,omitempty"`
	Alias          string         `yaml:"alias,omitempty"`
	Isomorphic     map[string]any `yaml:"isomorphic,omitempty"`
	SubThoughts    []thoughtYAML  `yaml:"sub_thoughts,omitempty"`
}

// Decode parses a document. Ids must be present and unique within the
// document; types, statuses and isomorphic domains must belong to their
// closed sets. Errors wrap apperr.ErrInvalid.
func Decode(data []byte) (*Document, error) {
	var raw documentYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("codec: decode: %w: %v", apperr.ErrInvalid, err)
	}
	d := &decoder{seen: make(map[string]struct{})}
	doc := &Document{Title: raw.Title}
	for i := range raw.Thoughts {
		n, err := d.node(&raw.Thoughts[i])
		if err != nil {
			return nil, err
		}
		doc.Roots = append(doc.Roots, n)
	}
	if doc.Title == "" && len(doc.Roots) > 0 {
		doc.Title = doc.Roots[0].Content
	}
	return doc, nil
}

type decoder struct {
	seen map[string]struct{}
}

func (d *decoder) node(y *thoughtYAML) (*thought.Node, error) {
	id := strings.TrimSpace(y.ID)
	if id == "" {
		return nil, fmt.Errorf("codec: thought without id: %w", apperr.ErrInvalid)
	}
	if _, dup := d.seen[id]; dup {
		return nil, fmt.Errorf("codec: duplicate thought id %q: %w", id, apperr.ErrInvalid)
	}
	d.seen[id] = struct{}{}

	typ := thought.Type(y.Type)
	if !typ.Valid() {
		return nil, fmt.Errorf("codec: thought %q: unknown type %q: %w", id, y.Type, apperr.ErrInvalid)
	}
	n := thought.New(id, y.Content, typ)
	if y.Status != "" {
		s := thought.Status(y.Status)
		if !s.Valid() {
			return nil, fmt.Errorf("codec: thought %q: unknown status %q: %w", id, y.Status, apperr.ErrInvalid)
		}
		n.Metadata.EvaluationStatus = s
	}
	if y.Depth < 0 {
		return nil, fmt.Errorf("codec: thought %q: negative depth: %w", id, apperr.ErrInvalid)
	}
	n.Metadata.RecursionDepth = y.Depth
	n.Metadata.MemoizationKey = y.MemoizationKey
	if y.CreatedAt != nil {
		n.Metadata.CreatedAt = *y.CreatedAt
	}
	n.AliasID = strings.TrimSpace(y.Alias)
	for k, v := range y.Isomorphic {
		dom := thought.Domain(k)
		if !dom.Valid() {
			return nil, fmt.Errorf("codec: thought %q: unknown domain %q: %w", id, k, apperr.ErrInvalid)
		}
		n.CreateIsomorphicRepresentation(dom, v)
	}
	for i := range y.SubThoughts {
		child, err := d.node(&y.SubThoughts[i])
		if err != nil {
			return nil, err
		}
		n.AddSubThought(child)
	}
	return n, nil
}

// Encode writes doc as YAML with two-space indentation.
func Encode(doc *Document) ([]byte, error) {
	raw := documentYAML{Title: doc.Title, Thoughts: make([]thoughtYAML, 0, len(doc.Roots))}
	for _, r := range doc.Roots {
		raw.Thoughts = append(raw.Thoughts, encodeNode(r))
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&raw); err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeNode(n *thought.Node) thoughtYAML {
	y := thoughtYAML{
		ID:             n.ID,
		Content:        n.Content,
		Type:           string(n.Type),
		Depth:          n.Metadata.RecursionDepth,
		MemoizationKey: n.Metadata.MemoizationKey,
		Alias:          n.AliasID,
	}
	if s := n.Metadata.EvaluationStatus; s != "" && s != thought.StatusPending {
		y.Status = string(s)
	}
	if !n.Metadata.CreatedAt.IsZero() {
		t := n.Metadata.CreatedAt.UTC()
		y.CreatedAt = &t
	}
	if len(n.Isomorphic) > 0 {
		y.Isomorphic = make(map[string]any, len(n.Isomorphic))
		for k, v := range n.Isomorphic {
			y.Isomorphic[string(k)] = v
		}
	}
	for _, c := range n.SubThoughts {
		y.SubThoughts = append(y.SubThoughts, encodeNode(c))
	}
	return y
}

// Template is a minimal document used by document-format help.
const Template = `title: Example trace
thoughts:
  - id: q1
    content: Why does the cache miss?
    type: question
    sub_thoughts:
      - id: h1
        content: Keys are not normalized
        type: hypothesis
        status: in-progress
        sub_thoughts:
          - id: e1
            content: Compare raw and normalized keys
            type: evaluation
            status: complete
            depth: 1
            alias: q1
`
