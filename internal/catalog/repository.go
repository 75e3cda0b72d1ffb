package catalog

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Repository defines the concurrency-safe contract for accessing and mutating
// category records.
type Repository interface {
	// Create registers a new category. Names are unique; creating a category
	// whose name already exists returns ErrCategoryExists.
	Create(name string) (*Category, error)

	// Get returns the category with the given id, or ErrCategoryNotFound.
	Get(id string) (*Category, error)

	// List returns all categories sorted by name.
	List() []*Category

	// Rename changes a category's name, enforcing uniqueness.
	Rename(id, name string) (*Category, error)

	// Delete removes the category record. Deleting an unknown id returns
	// ErrCategoryNotFound.
	Delete(id string) error
}

var (
	// ErrCategoryExists is returned when creating or renaming a category to a
	// name that is already taken.
	ErrCategoryExists = errors.New("category already exists")

	// ErrCategoryNotFound is returned when the requested category id is unknown.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrFolderExists is returned when creating a folder that already exists.
	ErrFolderExists = errors.New("folder already exists")

	// ErrFolderNotFound is returned when the requested folder does not exist.
	ErrFolderNotFound = errors.New("folder not found")
)

// InMemoryRepository is a concurrency-safe in-memory implementation of
// Repository. It uses a Store for persistence; by default that is an
// InMemoryStore.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given
// Store. Useful for testing or for plugging in a different persistence backend.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{store: store}
}

// Create implements Repository.Create.
func (r *InMemoryRepository) Create(name string) (*Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTakenLocked(name, "") {
		return nil, ErrCategoryExists
	}

	c := &Category{ID: uuid.NewString(), Name: name}
	r.store.SetCategory(c)
	return snapshot(c), nil
}

// Get implements Repository.Get. The returned category is a snapshot; callers
// never share the stored struct, so reads stay safe across later mutations.
func (r *InMemoryRepository) Get(id string) (*Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.store.GetCategory(id)
	if !ok {
		return nil, ErrCategoryNotFound
	}
	return snapshot(c), nil
}

// List implements Repository.List. The returned categories are snapshots.
func (r *InMemoryRepository) List() []*Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Category, 0)
	for _, id := range r.store.ListCategoryIDs() {
		if c, ok := r.store.GetCategory(id); ok {
			out = append(out, snapshot(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Rename implements Repository.Rename. It stores a fresh struct rather than
// mutating the existing record in place, so snapshots handed out earlier are
// never written to.
func (r *InMemoryRepository) Rename(id, name string) (*Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.store.GetCategory(id)
	if !ok {
		return nil, ErrCategoryNotFound
	}
	if c.Name != name && r.nameTakenLocked(name, id) {
		return nil, ErrCategoryExists
	}

	updated := &Category{ID: c.ID, Name: name}
	r.store.SetCategory(updated)
	return snapshot(updated), nil
}

// Delete implements Repository.Delete.
func (r *InMemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store.GetCategory(id); !ok {
		return ErrCategoryNotFound
	}
	r.store.DeleteCategory(id)
	return nil
}

// snapshot returns a copy of the stored category.
func snapshot(c *Category) *Category {
	cp := *c
	return &cp
}

// nameTakenLocked reports whether a category other than excludeID already
// uses name. Caller must hold r.mu.
func (r *InMemoryRepository) nameTakenLocked(name, excludeID string) bool {
	for _, id := range r.store.ListCategoryIDs() {
		if id == excludeID {
			continue
		}
		if c, ok := r.store.GetCategory(id); ok && c.Name == name {
			return true
		}
	}
	return false
}
