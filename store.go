package lineage

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Store is the persistence contract the graph engine runs on. The engine owns
// the graph invariants; a Store only reads and writes records.
//
// List and find results are ordered by ID ascending. IDs assigned by
// NewID sort in creation order.
type Store interface {
	// GetPerson returns the person with the given ID or an error matching
	// ErrNotFound.
	GetPerson(ctx context.Context, id string) (*Person, error)

	// ListPersons returns every person in scope. An empty scope lists all.
	ListPersons(ctx context.Context, scope string) ([]*Person, error)

	// CreatePerson stores p, assigning an ID if p.ID is empty, and returns
	// the stored copy.
	CreatePerson(ctx context.Context, p *Person) (*Person, error)

	// DeletePerson removes the person. It does not touch relationships.
	DeletePerson(ctx context.Context, id string) error

	// GetRelationship returns the relationship with the given ID or an error
	// matching ErrNotFound.
	GetRelationship(ctx context.Context, id string) (*Relationship, error)

	// FindRelationships returns the relationships matching filter.
	FindRelationships(ctx context.Context, filter RelationshipFilter) ([]*Relationship, error)

	// CreateRelationship stores r, assigning an ID if r.ID is empty.
	CreateRelationship(ctx context.Context, r *Relationship) (*Relationship, error)

	// DeleteRelationship removes a relationship.
	DeleteRelationship(ctx context.Context, id string) error

	// UpdateRelationship replaces the attributes of a relationship.
	UpdateRelationship(ctx context.Context, id string, attrs RelationshipAttrs) (*Relationship, error)

	// Close releases any resources held by the store.
	Close() error
}

// NewID returns a new time-ordered identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// StoreFactory creates a Store from configuration.
type StoreFactory func(cfg *StoreConfig) (Store, error)

var stores = make(map[string]StoreFactory)

// RegisterStore registers a store backend by name.
func RegisterStore(name string, factory StoreFactory) {
	stores[name] = factory
}

// NewStore creates the store selected by cfg.
func NewStore(cfg *StoreConfig) (Store, error) { //nolint:ireturn
	name := cfg.Backend()

	factory, ok := stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, name)
	}

	return factory(cfg)
}

// RegisteredStores returns the names of all registered backends, sorted.
func RegisteredStores() []string {
	names := make([]string, 0, len(stores))
	for name := range stores {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
