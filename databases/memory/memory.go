// Package memory provides an in-process lineage.Store.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/rlch/lineage"
)

//nolint:gochecknoinits // Store self-registration pattern
func init() {
	lineage.RegisterStore(lineage.StoreMemory, func(*lineage.StoreConfig) (lineage.Store, error) {
		return New(), nil
	})
}

// Store keeps people and relationships in maps. Every read and write copies,
// so callers never share memory with the store.
type Store struct {
	mu            sync.RWMutex
	persons       map[string]*lineage.Person
	relationships map[string]*lineage.Relationship
}

var _ lineage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		persons:       make(map[string]*lineage.Person),
		relationships: make(map[string]*lineage.Relationship),
	}
}

// GetPerson implements lineage.Store.
func (s *Store) GetPerson(_ context.Context, id string) (*lineage.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.persons[id]
	if !ok {
		return nil, lineage.PersonNotFound(id)
	}

	return p.Clone(), nil
}

// ListPersons implements lineage.Store.
func (s *Store) ListPersons(_ context.Context, scope string) ([]*lineage.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*lineage.Person, 0, len(s.persons))

	for _, p := range s.persons {
		if scope == "" || p.Scope == scope {
			out = append(out, p.Clone())
		}
	}

	slices.SortFunc(out, func(a, b *lineage.Person) int { return strings.Compare(a.ID, b.ID) })

	return out, nil
}

// CreatePerson implements lineage.Store.
func (s *Store) CreatePerson(_ context.Context, p *lineage.Person) (*lineage.Person, error) {
	p = p.Clone()
	if p.ID == "" {
		p.ID = lineage.NewID()
	}

	s.mu.Lock()
	s.persons[p.ID] = p
	s.mu.Unlock()

	return p.Clone(), nil
}

// DeletePerson implements lineage.Store.
func (s *Store) DeletePerson(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persons[id]; !ok {
		return lineage.PersonNotFound(id)
	}

	delete(s.persons, id)

	return nil
}

// GetRelationship implements lineage.Store.
func (s *Store) GetRelationship(_ context.Context, id string) (*lineage.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.relationships[id]
	if !ok {
		return nil, lineage.RelationshipNotFound(id)
	}

	return r.Clone(), nil
}

// FindRelationships implements lineage.Store.
func (s *Store) FindRelationships(_ context.Context, filter lineage.RelationshipFilter) ([]*lineage.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*lineage.Relationship

	for _, r := range s.relationships {
		if filter.Match(r) {
			out = append(out, r.Clone())
		}
	}

	slices.SortFunc(out, func(a, b *lineage.Relationship) int { return strings.Compare(a.ID, b.ID) })

	return out, nil
}

// CreateRelationship implements lineage.Store.
func (s *Store) CreateRelationship(_ context.Context, r *lineage.Relationship) (*lineage.Relationship, error) {
	r = r.Clone()
	if r.ID == "" {
		r.ID = lineage.NewID()
	}

	s.mu.Lock()
	s.relationships[r.ID] = r
	s.mu.Unlock()

	return r.Clone(), nil
}

// DeleteRelationship implements lineage.Store.
func (s *Store) DeleteRelationship(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.relationships[id]; !ok {
		return lineage.RelationshipNotFound(id)
	}

	delete(s.relationships, id)

	return nil
}

// UpdateRelationship implements lineage.Store.
func (s *Store) UpdateRelationship(
	_ context.Context,
	id string,
	attrs lineage.RelationshipAttrs,
) (*lineage.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.relationships[id]
	if !ok {
		return nil, lineage.RelationshipNotFound(id)
	}

	r.RelationshipAttrs = attrs.Clone()

	return r.Clone(), nil
}

// Close implements lineage.Store. It is a no-op.
func (s *Store) Close() error {
	return nil
}
