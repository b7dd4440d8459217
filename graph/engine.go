// Package graph keeps a person/relationship graph consistent under edits and
// computes bounded tree and chart views over it.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rlch/lineage"
	"go.uber.org/zap"
)

// Engine applies graph mutations through a Store. It owns the structural
// invariants: no parent-child cycles, no duplicate edges, endpoints in one
// scope, and at most the configured number of biological parents.
type Engine struct {
	store  lineage.Store
	opts   options
	locks  *keyedMutex
	logger *zap.Logger

	// lineageMu serializes parent-child check-then-insert. The cycle check
	// reads ancestors well beyond the two endpoints, so per-person locks
	// alone cannot stop two concurrent inserts from closing a cycle.
	lineageMu sync.Mutex
}

// NewEngine returns an Engine writing to store.
func NewEngine(store lineage.Store, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Engine{
		store:  store,
		opts:   o,
		locks:  newKeyedMutex(),
		logger: o.logger,
	}
}

// Store returns the underlying store.
func (e *Engine) Store() lineage.Store { //nolint:ireturn
	return e.store
}

// CreatePerson stores a new person. An empty given name becomes
// lineage.PlaceholderGivenName, so a person is never stored nameless.
func (e *Engine) CreatePerson(ctx context.Context, p *lineage.Person) (*lineage.Person, error) {
	p = p.Clone()
	p.Name.Given = strings.TrimSpace(p.Name.Given)
	p.Name.Family = strings.TrimSpace(p.Name.Family)

	if p.Name.Given == "" {
		p.Name.Given = lineage.PlaceholderGivenName
	}

	if p.Sex == "" {
		p.Sex = lineage.SexUnknown
	}

	if p.Scope == "" {
		p.Scope = lineage.DefaultScope
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	created, err := e.store.CreatePerson(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create person: %w", err)
	}

	e.logger.Debug("created person",
		zap.String("id", created.ID),
		zap.String("scope", created.Scope))

	return created, nil
}

// DeletePerson deletes a person and every relationship touching them.
func (e *Engine) DeletePerson(ctx context.Context, id string) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	if _, err := e.store.GetPerson(ctx, id); err != nil {
		return err
	}

	rels, err := e.store.FindRelationships(ctx, lineage.RelationshipFilter{Involving: id})
	if err != nil {
		return err
	}

	for _, r := range rels {
		err := e.store.DeleteRelationship(ctx, r.ID)
		if err != nil && !errors.Is(err, lineage.ErrNotFound) {
			return fmt.Errorf("delete relationship %s: %w", r.ID, err)
		}
	}

	if err := e.store.DeletePerson(ctx, id); err != nil {
		return err
	}

	e.logger.Debug("deleted person",
		zap.String("id", id),
		zap.Int("relationships", len(rels)))

	return nil
}

// CreateRelationship links person1 and person2. For parent-child edges
// person1 is the parent. Symmetric types are stored as one undirected edge.
//
// It fails with a *lineage.CycleError when the child is already an ancestor
// of the parent, with lineage.ErrDuplicateRelationship when an equivalent
// edge exists, and with lineage.ErrParentLimit when the child already has
// the maximum number of biological parents.
func (e *Engine) CreateRelationship(
	ctx context.Context,
	person1, person2 string,
	typ lineage.RelationshipType,
	attrs lineage.RelationshipAttrs,
) (*lineage.Relationship, error) {
	r := &lineage.Relationship{
		Type:              typ,
		Person1ID:         person1,
		Person2ID:         person2,
		RelationshipAttrs: attrs.Clone(),
	}

	if typ == lineage.RelationshipParentChild && r.ParentalRole == "" {
		r.ParentalRole = lineage.RoleBiological
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	if person1 == person2 {
		if typ == lineage.RelationshipParentChild {
			return nil, &lineage.CycleError{ParentID: person1, ChildID: person2}
		}

		return nil, fmt.Errorf("%w: %s with self", lineage.ErrInvalidRelationship, typ)
	}

	if typ == lineage.RelationshipParentChild {
		e.lineageMu.Lock()
		defer e.lineageMu.Unlock()
	}

	unlock := e.locks.Lock(person1, person2)
	defer unlock()

	p1, err := e.store.GetPerson(ctx, person1)
	if err != nil {
		return nil, err
	}

	p2, err := e.store.GetPerson(ctx, person2)
	if err != nil {
		return nil, err
	}

	if p1.Scope != p2.Scope {
		return nil, fmt.Errorf("%w: %s is in scope %q, %s is in scope %q",
			lineage.ErrInvalidRelationship, p1.ID, p1.Scope, p2.ID, p2.Scope)
	}

	r.Scope = p1.Scope

	if err := e.checkDuplicate(ctx, r, ""); err != nil {
		return nil, err
	}

	if typ == lineage.RelationshipParentChild {
		isAncestor, err := e.IsAncestor(ctx, person2, person1)
		if err != nil {
			return nil, err
		}

		if isAncestor {
			return nil, &lineage.CycleError{ParentID: person1, ChildID: person2}
		}

		if err := e.checkParentLimit(ctx, r, ""); err != nil {
			return nil, err
		}
	}

	created, err := e.store.CreateRelationship(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("create relationship: %w", err)
	}

	e.logger.Debug("created relationship",
		zap.String("id", created.ID),
		zap.String("type", string(created.Type)),
		zap.String("person1", created.Person1ID),
		zap.String("person2", created.Person2ID))

	return created, nil
}

// DeleteRelationship removes an edge. A symmetric edge is a single record,
// so both directions disappear together.
func (e *Engine) DeleteRelationship(ctx context.Context, id string) error {
	r, err := e.store.GetRelationship(ctx, id)
	if err != nil {
		return err
	}

	unlock := e.locks.Lock(r.Person1ID, r.Person2ID)
	defer unlock()

	if err := e.store.DeleteRelationship(ctx, id); err != nil {
		return err
	}

	e.logger.Debug("deleted relationship", zap.String("id", id))

	return nil
}

// UpdateRelationship replaces an edge's attributes. Endpoints and type never
// change; reshaping an edge means deleting and recreating it.
func (e *Engine) UpdateRelationship(
	ctx context.Context,
	id string,
	attrs lineage.RelationshipAttrs,
) (*lineage.Relationship, error) {
	current, err := e.store.GetRelationship(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.Type == lineage.RelationshipParentChild {
		e.lineageMu.Lock()
		defer e.lineageMu.Unlock()
	}

	unlock := e.locks.Lock(current.Person1ID, current.Person2ID)
	defer unlock()

	next := current.Clone()
	next.RelationshipAttrs = attrs.Clone()

	if next.Type == lineage.RelationshipParentChild && next.ParentalRole == "" {
		next.ParentalRole = lineage.RoleBiological
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}

	if next.Type == lineage.RelationshipParentChild && next.ParentalRole != current.ParentalRole {
		if err := e.checkDuplicate(ctx, next, id); err != nil {
			return nil, err
		}

		if err := e.checkParentLimit(ctx, next, id); err != nil {
			return nil, err
		}
	}

	updated, err := e.store.UpdateRelationship(ctx, id, next.RelationshipAttrs)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("updated relationship", zap.String("id", id))

	return updated, nil
}

// IsAncestor reports whether candidate is a proper ancestor of person. It
// walks parent edges upward and tolerates cycles already in the store.
func (e *Engine) IsAncestor(ctx context.Context, candidate, person string) (bool, error) {
	visited := map[string]bool{person: true}
	frontier := []string{person}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		id := frontier[0]
		frontier = frontier[1:]

		parents, err := e.store.FindRelationships(ctx, lineage.ParentsOf(id))
		if err != nil {
			return false, err
		}

		for _, r := range parents {
			if r.Person1ID == candidate {
				return true, nil
			}

			if !visited[r.Person1ID] {
				visited[r.Person1ID] = true
				frontier = append(frontier, r.Person1ID)
			}
		}
	}

	return false, nil
}

// checkDuplicate rejects r if an equivalent edge exists. Parent-child edges
// between the same pair are equivalent only when their roles match, so a
// parent may be recorded as both biological and adoptive. skipID excludes
// the edge being updated.
func (e *Engine) checkDuplicate(ctx context.Context, r *lineage.Relationship, skipID string) error {
	filter := lineage.RelationshipFilter{
		Type:      r.Type,
		Person1ID: r.Person1ID,
		Person2ID: r.Person2ID,
	}
	if r.Type.Symmetric() {
		filter = lineage.RelationshipFilter{Type: r.Type, Involving: r.Person1ID}
	}

	existing, err := e.store.FindRelationships(ctx, filter)
	if err != nil {
		return err
	}

	for _, x := range existing {
		if x.ID == skipID || x.Other(r.Person1ID) != r.Person2ID {
			continue
		}

		if r.Type == lineage.RelationshipParentChild && roleOf(x) != roleOf(r) {
			continue
		}

		return fmt.Errorf("%w: %s %s-%s exists as %s",
			lineage.ErrDuplicateRelationship, r.Type, r.Person1ID, r.Person2ID, x.ID)
	}

	return nil
}

// roleOf reads an unset parental role as biological.
func roleOf(r *lineage.Relationship) lineage.ParentalRole {
	if r.ParentalRole == "" {
		return lineage.RoleBiological
	}

	return r.ParentalRole
}

// checkParentLimit rejects r if its child already has the maximum number of
// biological parents. skipID excludes the edge being updated.
func (e *Engine) checkParentLimit(ctx context.Context, r *lineage.Relationship, skipID string) error {
	if e.opts.maxParents == 0 || r.ParentalRole != lineage.RoleBiological {
		return nil
	}

	parents, err := e.store.FindRelationships(ctx, lineage.ParentsOf(r.Person2ID))
	if err != nil {
		return err
	}

	n := 0

	for _, p := range parents {
		if p.ID != skipID && p.ParentalRole == lineage.RoleBiological {
			n++
		}
	}

	if n >= e.opts.maxParents {
		return fmt.Errorf("%w: %s already has %d biological parents",
			lineage.ErrParentLimit, r.Person2ID, n)
	}

	return nil
}
