package exchange

import "errors"

// Sentinel errors.
var (
	// ErrUnknownPolicy is returned for a parental role policy that is not one
	// of lineage.KnownPolicies.
	ErrUnknownPolicy = errors.New("exchange: unknown role policy")

	// ErrInvalidFilter is returned when the export privacy filter does not
	// compile to a boolean expression.
	ErrInvalidFilter = errors.New("exchange: invalid exclude filter")
)
