package lineage

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks p's field constraints.
func (p *Person) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPerson, err)
	}

	return nil
}

// Validate checks r's field constraints and that its attributes apply to its
// type.
func (r *Relationship) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, err)
	}

	if r.ParentalRole != "" && r.Type != RelationshipParentChild {
		return fmt.Errorf("%w: parental role on %s relationship", ErrInvalidRelationship, r.Type)
	}

	if r.Status != "" && r.Type != RelationshipSpousal {
		return fmt.Errorf("%w: status on %s relationship", ErrInvalidRelationship, r.Type)
	}

	return nil
}
