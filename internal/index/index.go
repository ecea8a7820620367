package index

// ThoughtIndex defines the interface for thought indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ThoughtIndex interface {
	UpsertDocument(d DocumentRow, thoughts []ThoughtRow) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	ListDocuments(limit, offset int) ([]DocumentRow, int, error)
	GetThought(id string) (*ThoughtRow, error)
	Aliases(targetID string) ([]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies ThoughtIndex at compile time.
var _ ThoughtIndex = (*DB)(nil)
