package gedcom

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

// Sentinel errors.
var (
	// ErrMalformedLine marks a line that does not match LEVEL [POINTER] TAG [VALUE]
	// or does not fit the level structure.
	ErrMalformedLine = errors.New("gedcom: malformed line")

	// ErrUnresolvedPointer marks a cross reference to a record that does not exist.
	ErrUnresolvedPointer = errors.New("gedcom: unresolved pointer")

	// ErrDateParse marks a DATE value that could not be read.
	ErrDateParse = errors.New("gedcom: date parse failure")
)

// LineError is a skipped malformed line.
type LineError struct {
	Pos    lexer.Position
	Text   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%v: %d:%d: %s: %q", ErrMalformedLine, e.Pos.Line, e.Pos.Column, e.Reason, e.Text)
}

// Unwrap lets errors.Is match ErrMalformedLine.
func (e *LineError) Unwrap() error {
	return ErrMalformedLine
}
