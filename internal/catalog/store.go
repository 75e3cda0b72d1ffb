package catalog

// Store is the persistence abstraction for category records.
// Implementations can be in-memory, file-based, or remote. The Repository
// uses Store for all reads and writes; callers of Repository do not need to
// know which Store is used.
type Store interface {
	GetCategory(id string) (*Category, bool)
	SetCategory(c *Category)
	DeleteCategory(id string)
	ListCategoryIDs() []string
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	categories map[string]*Category
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		categories: make(map[string]*Category),
	}
}

// GetCategory implements Store.GetCategory.
func (s *InMemoryStore) GetCategory(id string) (*Category, bool) {
	c, ok := s.categories[id]
	return c, ok
}

// SetCategory implements Store.SetCategory.
func (s *InMemoryStore) SetCategory(c *Category) {
	s.categories[c.ID] = c
}

// DeleteCategory implements Store.DeleteCategory.
func (s *InMemoryStore) DeleteCategory(id string) {
	delete(s.categories, id)
}

// ListCategoryIDs implements Store.ListCategoryIDs.
func (s *InMemoryStore) ListCategoryIDs() []string {
	ids := make([]string, 0, len(s.categories))
	for id := range s.categories {
		ids = append(ids, id)
	}
	return ids
}
