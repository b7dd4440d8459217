package lineage

// RelationshipType is the kind of edge between two people.
type RelationshipType string

// Relationship types.
const (
	RelationshipSpousal     RelationshipType = "spousal"
	RelationshipParentChild RelationshipType = "parent-child"
	RelationshipSibling     RelationshipType = "sibling"
)

// Symmetric reports whether the relationship reads the same from either
// endpoint. Symmetric relationships are stored as a single undirected edge.
func (t RelationshipType) Symmetric() bool {
	return t == RelationshipSpousal || t == RelationshipSibling
}

// ParentalRole qualifies a parent-child edge.
type ParentalRole string

// Parental roles.
const (
	RoleBiological ParentalRole = "biological"
	RoleAdoptive   ParentalRole = "adoptive"
	RoleStep       ParentalRole = "step"
	RoleFoster     ParentalRole = "foster"
	RoleGuardian   ParentalRole = "guardian"
)

// SpousalStatus is the state of a spousal relationship.
type SpousalStatus string

// Spousal statuses.
const (
	StatusMarried  SpousalStatus = "married"
	StatusDivorced SpousalStatus = "divorced"
	StatusOther    SpousalStatus = "other"
)

// RelationshipAttrs are the mutable attributes of a relationship. Endpoints
// and type are not attributes: changing them means deleting and recreating
// the edge.
type RelationshipAttrs struct {
	// ParentalRole applies to parent-child edges only.
	ParentalRole ParentalRole `json:"parentalRole,omitempty" validate:"omitempty,oneof=biological adoptive step foster guardian"`
	// Status applies to spousal edges only.
	Status    SpousalStatus `json:"status,omitempty" validate:"omitempty,oneof=married divorced other"`
	StartDate *Date         `json:"startDate,omitempty"`
	EndDate   *Date         `json:"endDate,omitempty"`
	Events    []Event       `json:"events,omitempty" validate:"dive"`
	Notes     string        `json:"notes,omitempty"`
}

// Relationship is an edge between two people. For parent-child edges
// Person1ID is the parent and Person2ID the child. For symmetric types the
// order is the order the edge was created in and carries no meaning.
type Relationship struct {
	ID        string           `json:"id"`
	Scope     string           `json:"scope"`
	Type      RelationshipType `json:"type" validate:"required,oneof=spousal parent-child sibling"`
	Person1ID string           `json:"person1Id" validate:"required"`
	Person2ID string           `json:"person2Id" validate:"required"`

	RelationshipAttrs
}

// Other returns the endpoint of r that is not id, or "" if id is not an
// endpoint.
func (r *Relationship) Other(id string) string {
	switch id {
	case r.Person1ID:
		return r.Person2ID
	case r.Person2ID:
		return r.Person1ID
	default:
		return ""
	}
}

// Involves reports whether id is one of r's endpoints.
func (r *Relationship) Involves(id string) bool {
	return r.Person1ID == id || r.Person2ID == id
}

// Clone returns a deep copy of r.
func (r *Relationship) Clone() *Relationship {
	if r == nil {
		return nil
	}

	c := *r
	c.RelationshipAttrs = r.RelationshipAttrs.Clone()

	return &c
}

// Clone returns a deep copy of a.
func (a RelationshipAttrs) Clone() RelationshipAttrs {
	c := a

	if a.StartDate != nil {
		d := *a.StartDate
		c.StartDate = &d
	}

	if a.EndDate != nil {
		d := *a.EndDate
		c.EndDate = &d
	}

	if a.Events != nil {
		c.Events = make([]Event, len(a.Events))
		for i := range a.Events {
			c.Events[i] = *a.Events[i].Clone()
		}
	}

	return c
}

// RelationshipFilter selects relationships. Empty fields do not constrain.
type RelationshipFilter struct {
	Scope string
	Type  RelationshipType
	// Person1ID matches the first endpoint exactly (the parent for
	// parent-child edges).
	Person1ID string
	// Person2ID matches the second endpoint exactly (the child for
	// parent-child edges).
	Person2ID string
	// Involving matches either endpoint.
	Involving string
}

// Match reports whether r satisfies the filter.
func (f RelationshipFilter) Match(r *Relationship) bool {
	if f.Scope != "" && r.Scope != f.Scope {
		return false
	}

	if f.Type != "" && r.Type != f.Type {
		return false
	}

	if f.Person1ID != "" && r.Person1ID != f.Person1ID {
		return false
	}

	if f.Person2ID != "" && r.Person2ID != f.Person2ID {
		return false
	}

	if f.Involving != "" && !r.Involves(f.Involving) {
		return false
	}

	return true
}

// ParentsOf selects the parent-child edges in which id is the child.
func ParentsOf(id string) RelationshipFilter {
	return RelationshipFilter{Type: RelationshipParentChild, Person2ID: id}
}

// ChildrenOf selects the parent-child edges in which id is the parent.
func ChildrenOf(id string) RelationshipFilter {
	return RelationshipFilter{Type: RelationshipParentChild, Person1ID: id}
}

// SpousesOf selects the spousal edges touching id.
func SpousesOf(id string) RelationshipFilter {
	return RelationshipFilter{Type: RelationshipSpousal, Involving: id}
}
