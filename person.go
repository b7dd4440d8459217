// Package lineage models a genealogical graph of people and the relationships
// between them, and defines the storage contract the graph engine runs on.
package lineage

// PlaceholderGivenName is stored when a person has no usable given name.
const PlaceholderGivenName = "Unknown"

// Sex is a person's recorded sex.
type Sex string

// Sex values.
const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

// Name holds the parts of a personal name.
type Name struct {
	Given    string `json:"given" validate:"required"`
	Family   string `json:"family,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

// Full returns the given and family names joined by a space.
func (n Name) Full() string {
	switch {
	case n.Family == "":
		return n.Given
	case n.Given == "":
		return n.Family
	default:
		return n.Given + " " + n.Family
	}
}

// Identifier is a typed external identifier such as an email address or a
// user reference number.
type Identifier struct {
	Type  string `json:"type" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// Identifier types understood by the GEDCOM codec.
const (
	IdentifierEmail = "email"
	IdentifierRefn  = "refn"
)

// EventType classifies an Event.
type EventType string

// Event types.
const (
	EventBirth    EventType = "birth"
	EventDeath    EventType = "death"
	EventMarriage EventType = "marriage"
	EventDivorce  EventType = "divorce"
	EventOther    EventType = "other"
)

// Event is a dated occurrence in a person's life or a relationship.
type Event struct {
	Type        EventType `json:"type" validate:"required,oneof=birth death marriage divorce other"`
	Date        *Date     `json:"date,omitempty"`
	Estimated   bool      `json:"estimated,omitempty"`
	Place       string    `json:"place,omitempty"`
	Cause       string    `json:"cause,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Person is an identity node in the graph.
type Person struct {
	ID          string       `json:"id"`
	Scope       string       `json:"scope"`
	Name        Name         `json:"name"`
	Sex         Sex          `json:"sex" validate:"oneof=male female unknown"`
	Birth       *Event       `json:"birth,omitempty"`
	Death       *Event       `json:"death,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Identifiers []Identifier `json:"identifiers,omitempty" validate:"dive"`
}

// Clone returns a deep copy of p.
func (p *Person) Clone() *Person {
	if p == nil {
		return nil
	}

	c := *p
	c.Birth = p.Birth.Clone()
	c.Death = p.Death.Clone()

	if p.Identifiers != nil {
		c.Identifiers = append([]Identifier(nil), p.Identifiers...)
	}

	return &c
}

// Clone returns a deep copy of e.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}

	c := *e
	if e.Date != nil {
		d := *e.Date
		c.Date = &d
	}

	return &c
}

// Living reports whether no death has been recorded for p.
func (p *Person) Living() bool {
	return p.Death == nil
}
