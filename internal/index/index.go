package index

// ChecklistIndex defines the interface for checklist indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type ChecklistIndex interface {
	Upsert(row ChecklistRow, body string) error
	Delete(path string) error
	Get(path string) (*ChecklistRow, error)
	List(owner, category string, limit, offset int) ([]ChecklistRow, int, error)
	Search(owner, query string, limit int) ([]SearchResult, error)
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies ChecklistIndex at compile time.
var _ ChecklistIndex = (*DB)(nil)
