package lineage

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .lineage.yaml is found.
	ErrConfigNotFound = errors.New("lineage: no .lineage.yaml found")

	// ErrUnknownStore is returned when an unregistered store backend is requested.
	ErrUnknownStore = errors.New("lineage: unknown store")

	// ErrNotFound is returned for an unknown person, relationship or scope.
	ErrNotFound = errors.New("lineage: not found")

	// ErrCyclicRelationship is returned when a parent-child edge would make a
	// person their own ancestor.
	ErrCyclicRelationship = errors.New("lineage: cyclic relationship")

	// ErrDuplicateRelationship is returned when an equivalent edge already exists.
	ErrDuplicateRelationship = errors.New("lineage: duplicate relationship")

	// ErrParentLimit is returned when a child already has the maximum number
	// of biological parents.
	ErrParentLimit = errors.New("lineage: parent limit reached")

	// ErrInvalidRelationship is returned for malformed relationships: self
	// edges, unknown types, attributes that do not apply to the type, or
	// endpoints in different scopes.
	ErrInvalidRelationship = errors.New("lineage: invalid relationship")

	// ErrInvalidPerson is returned when a person fails validation.
	ErrInvalidPerson = errors.New("lineage: invalid person")

	// ErrInvalidArgument is returned for out-of-range query arguments.
	ErrInvalidArgument = errors.New("lineage: invalid argument")
)

// CycleError describes a rejected parent-child edge.
type CycleError struct {
	ParentID string
	ChildID  string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s is already an ancestor of %s", ErrCyclicRelationship, e.ChildID, e.ParentID)
}

// Unwrap lets errors.Is match ErrCyclicRelationship.
func (e *CycleError) Unwrap() error {
	return ErrCyclicRelationship
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s %q", ErrNotFound, e.Kind, e.ID)
}

// Unwrap lets errors.Is match ErrNotFound.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// PersonNotFound returns a NotFoundError for a person.
func PersonNotFound(id string) error {
	return &NotFoundError{Kind: "person", ID: id}
}

// RelationshipNotFound returns a NotFoundError for a relationship.
func RelationshipNotFound(id string) error {
	return &NotFoundError{Kind: "relationship", ID: id}
}
