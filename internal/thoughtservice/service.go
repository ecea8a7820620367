// Package thoughtservice coordinates the vault, the index and the in-memory
// forest that surfaces lay out.
package thoughtservice

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/thoughtmap/internal/apperr"
	"github.com/starford/thoughtmap/internal/checksum"
	"github.com/starford/thoughtmap/internal/codec"
	"github.com/starford/thoughtmap/internal/index"
	"github.com/starford/thoughtmap/internal/storage"
	"github.com/starford/thoughtmap/internal/thought"
)

// Change kinds passed to listeners.
const (
	ChangeCreated = index.EventCreated
	ChangeUpdated = index.EventUpdated
	ChangeDeleted = index.EventDeleted
)

// ChangeFunc is notified after the forest was reloaded because path changed.
type ChangeFunc func(kind, path string)

// ThoughtDetail is the full representation of one thought.
type ThoughtDetail struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	Type           thought.Type   `json:"type"`
	Status         thought.Status `json:"status"`
	Depth          int            `json:"depth"`
	MemoizationKey string         `json:"memoization_key,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	AliasID        string         `json:"alias_id,omitempty"`
	Isomorphic     map[string]any `json:"isomorphic,omitempty"`
	Path           string         `json:"path"`
	ParentID       string         `json:"parent_id,omitempty"`
	SubThoughts    []string       `json:"sub_thoughts"`
	AliasedBy      []string       `json:"aliased_by"`
}

// DocumentDetail is a document with its raw content.
type DocumentDetail struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Checksum  string    `json:"checksum"`
	Thoughts  int       `json:"thoughts"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Thoughts  int       `json:"thoughts"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates storage and index operations and keeps the loaded
// forest. Published thought nodes are never mutated: edits go through the
// document on disk and a reload, so surfaces can read nodes without locks.
type Service struct {
	store  storage.Provider
	db     *index.DB
	logger *slog.Logger

	writeMu sync.Mutex

	mu       sync.RWMutex
	roots    []*thought.Node
	registry *thought.Registry
	owner    map[string]string
	parent   map[string]string

	lmu       sync.Mutex
	listeners []ChangeFunc
}

// NewService creates a new thought service. Call Load before Forest.
func NewService(store storage.Provider, db *index.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		db:       db,
		logger:   logger,
		registry: thought.NewRegistry(),
		owner:    make(map[string]string),
		parent:   make(map[string]string),
	}
}

// OnChange registers fn to run after every reload caused by a change.
func (s *Service) OnChange(fn ChangeFunc) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) notify(kind, p string) {
	s.lmu.Lock()
	fns := append([]ChangeFunc(nil), s.listeners...)
	s.lmu.Unlock()
	for _, fn := range fns {
		fn(kind, p)
	}
}

// Load decodes every document in path order and rebuilds the forest. Roots
// keep document order; the registry spans the whole vault, so aliases
// resolve across documents. Documents that fail to decode are skipped.
func (s *Service) Load(_ context.Context) error {
	metas, err := s.store.List("")
	if err != nil {
		return fmt.Errorf("thoughtservice: load: %w", err)
	}
	var roots []*thought.Node
	owner := make(map[string]string)
	parent := make(map[string]string)
	for _, m := range metas {
		data, err := s.store.Read(m.Path)
		if err != nil {
			s.logger.Warn("load: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		doc, err := codec.Decode(data)
		if err != nil {
			s.logger.Warn("load: decode failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		thought.Walk(doc.Roots, func(n *thought.Node, _ int) bool {
			if _, dup := owner[n.ID]; !dup {
				owner[n.ID] = m.Path
			}
			for _, c := range n.SubThoughts {
				if _, seen := parent[c.ID]; !seen {
					parent[c.ID] = n.ID
				}
			}
			return true
		})
		roots = append(roots, doc.Roots...)
	}

	reg := thought.Index(roots...)

	s.mu.Lock()
	s.roots = roots
	s.registry = reg
	s.owner = owner
	s.parent = parent
	s.mu.Unlock()

	s.logger.Debug("forest loaded",
		slog.Int("documents", len(metas)),
		slog.Int("roots", len(roots)),
		slog.Int("thoughts", reg.Len()))
	return nil
}

// Forest returns the current roots and the vault-wide resolver. Each Load
// produces a new slice, so a changed forest compares unequal.
func (s *Service) Forest() ([]*thought.Node, thought.Resolver) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roots, s.registry
}

// HandleIndexEvent reloads the forest after a watcher-driven index change and
// notifies listeners.
func (s *Service) HandleIndexEvent(kind, p string) {
	if err := s.Load(context.Background()); err != nil {
		s.logger.Warn("reload failed", slog.String("path", p), slog.String("error", err.Error()))
		return
	}
	s.notify(kind, p)
}

// GetThought returns one thought with its place in the forest.
func (s *Service) GetThought(_ context.Context, id string) (*ThoughtDetail, error) {
	s.mu.RLock()
	n, ok := s.registry.Lookup(id)
	p := s.owner[id]
	parentID := s.parent[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("thoughtservice: thought %s: %w", id, apperr.ErrNotFound)
	}

	aliased, err := s.db.Aliases(id)
	if err != nil {
		return nil, err
	}
	d := &ThoughtDetail{
		ID:             n.ID,
		Content:        n.Content,
		Type:           n.Type,
		Status:         n.Metadata.EvaluationStatus,
		Depth:          n.Metadata.RecursionDepth,
		MemoizationKey: n.Metadata.MemoizationKey,
		CreatedAt:      n.Metadata.CreatedAt,
		AliasID:        n.AliasID,
		Path:           p,
		ParentID:       parentID,
		SubThoughts:    make([]string, 0, len(n.SubThoughts)),
		AliasedBy:      nonNilSlice(aliased),
	}
	for _, c := range n.SubThoughts {
		d.SubThoughts = append(d.SubThoughts, c.ID)
	}
	if len(n.Isomorphic) > 0 {
		d.Isomorphic = make(map[string]any, len(n.Isomorphic))
		for k, v := range n.Isomorphic {
			d.Isomorphic[string(k)] = v
		}
	}
	return d, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	return nonNilSlice(res), err
}

// ListDocuments returns a page of indexed documents.
func (s *Service) ListDocuments(_ context.Context, limit, offset int) ([]DocumentListItem, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocumentListItem, len(rows))
	for i, r := range rows {
		items[i] = DocumentListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Thoughts:  r.Thoughts,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// GetDocument reads and decodes one document.
func (s *Service) GetDocument(_ context.Context, p string) (*DocumentDetail, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	return buildDocumentDetail(p, data)
}

// CreateDocument validates, writes and indexes a new document.
func (s *Service) CreateDocument(ctx context.Context, p string, content []byte) (*DocumentDetail, error) {
	if err := ValidatePath(p); err != nil {
		return nil, err
	}
	if _, err := codec.Decode(content); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	if _, err := s.store.Read(p); err == nil {
		s.writeMu.Unlock()
		return nil, fmt.Errorf("thoughtservice: document %s: %w", p, apperr.ErrAlreadyExists)
	}
	err := s.persist(ctx, p, content)
	s.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	s.notify(ChangeCreated, p)
	return buildDocumentDetail(p, content)
}

// UpdateDocument replaces a document's content. A non-empty ifMatch must equal
// the checksum of the stored content.
func (s *Service) UpdateDocument(ctx context.Context, p string, content []byte, ifMatch string) (*DocumentDetail, error) {
	if _, err := codec.Decode(content); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	current, err := s.store.Read(p)
	if err != nil {
		s.writeMu.Unlock()
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(current) {
		s.writeMu.Unlock()
		return nil, fmt.Errorf("thoughtservice: document %s: %w", p, apperr.ErrConflict)
	}
	err = s.persist(ctx, p, content)
	s.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	s.notify(ChangeUpdated, p)
	return buildDocumentDetail(p, content)
}

// MoveDocument renames a document within the vault. Thought ids are global,
// so the forest is unchanged apart from the owning path.
func (s *Service) MoveDocument(ctx context.Context, from, to string) (*DocumentDetail, error) {
	if err := ValidatePath(to); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	data, err := s.store.Read(from)
	if err != nil {
		s.writeMu.Unlock()
		return nil, err
	}
	if _, err := s.store.Read(to); err == nil {
		s.writeMu.Unlock()
		return nil, fmt.Errorf("thoughtservice: document %s: %w", to, apperr.ErrAlreadyExists)
	}
	err = s.move(ctx, from, to, data)
	s.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	s.notify(ChangeDeleted, from)
	s.notify(ChangeCreated, to)
	return buildDocumentDetail(to, data)
}

// move relocates the file and its index rows. The caller holds writeMu.
func (s *Service) move(ctx context.Context, from, to string, data []byte) error {
	if err := s.store.Move(from, to); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(from); err != nil {
		return err
	}
	if err := index.IndexFile(s.db, to, data, time.Now().UTC()); err != nil {
		return err
	}
	return s.Load(ctx)
}

// DeleteDocument removes a document from storage and index.
func (s *Service) DeleteDocument(ctx context.Context, p string) error {
	s.writeMu.Lock()
	if err := s.store.Delete(p); err != nil {
		s.writeMu.Unlock()
		return err
	}
	if err := s.db.DeleteDocument(p); err != nil {
		s.writeMu.Unlock()
		return err
	}
	err := s.Load(ctx)
	s.writeMu.Unlock()
	if err != nil {
		return err
	}
	s.notify(ChangeDeleted, p)
	return nil
}

// UpdateStatus sets the evaluation status of thought id.
func (s *Service) UpdateStatus(ctx context.Context, id string, status thought.Status) (*ThoughtDetail, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("thoughtservice: status %q: %w", status, apperr.ErrInvalid)
	}
	if err := s.mutate(ctx, id, func(n *thought.Node) { n.UpdateEvaluationStatus(status) }); err != nil {
		return nil, err
	}
	return s.GetThought(ctx, id)
}

// Memoize records a memoization key on thought id and marks it memoized.
func (s *Service) Memoize(ctx context.Context, id, key string) (*ThoughtDetail, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("thoughtservice: empty memoization key: %w", apperr.ErrInvalid)
	}
	if err := s.mutate(ctx, id, func(n *thought.Node) { n.Memoize(key) }); err != nil {
		return nil, err
	}
	return s.GetThought(ctx, id)
}

// AddSelfReference appends a recursive-reference sub-thought aliasing id and
// returns it.
func (s *Service) AddSelfReference(ctx context.Context, id string) (*ThoughtDetail, error) {
	var refID string
	err := s.mutate(ctx, id, func(n *thought.Node) {
		ref := n.CreateSelfReference()
		n.AddSubThought(ref)
		refID = ref.ID
	})
	if err != nil {
		return nil, err
	}
	return s.GetThought(ctx, refID)
}

// mutate applies fn to a freshly decoded copy of the document that owns id,
// writes it back and reloads.
func (s *Service) mutate(ctx context.Context, id string, fn func(*thought.Node)) error {
	s.writeMu.Lock()

	s.mu.RLock()
	p, ok := s.owner[id]
	s.mu.RUnlock()
	if !ok {
		s.writeMu.Unlock()
		return fmt.Errorf("thoughtservice: thought %s: %w", id, apperr.ErrNotFound)
	}

	err := func() error {
		data, err := s.store.Read(p)
		if err != nil {
			return err
		}
		doc, err := codec.Decode(data)
		if err != nil {
			return err
		}
		n, _ := thought.Find(doc.Roots, id)
		if n == nil {
			return fmt.Errorf("thoughtservice: thought %s in %s: %w", id, p, apperr.ErrNotFound)
		}
		fn(n)
		out, err := codec.Encode(doc)
		if err != nil {
			return err
		}
		return s.persist(ctx, p, out)
	}()
	s.writeMu.Unlock()
	if err != nil {
		return err
	}

	s.notify(ChangeUpdated, p)
	return nil
}

// persist writes, indexes and reloads. The caller holds writeMu.
func (s *Service) persist(ctx context.Context, p string, content []byte) error {
	if err := s.store.Write(p, content); err != nil {
		return err
	}
	if err := index.IndexFile(s.db, p, content, time.Now().UTC()); err != nil {
		return err
	}
	return s.Load(ctx)
}

// ValidatePath checks that p names a thought document inside the vault.
func ValidatePath(p string) error {
	if p == "" || !strings.HasSuffix(p, codec.Ext) {
		return fmt.Errorf("thoughtservice: path %q must end in %s: %w", p, codec.Ext, apperr.ErrInvalid)
	}
	clean := path.Clean(p)
	if strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("thoughtservice: path %q escapes the vault: %w", p, apperr.ErrInvalid)
	}
	return nil
}

func buildDocumentDetail(p string, data []byte) (*DocumentDetail, error) {
	doc, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	count := 0
	thought.Walk(doc.Roots, func(*thought.Node, int) bool { count++; return true })
	return &DocumentDetail{
		Path:      p,
		Title:     doc.Title,
		Content:   string(data),
		Checksum:  checksum.Sum(data),
		Thoughts:  count,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
