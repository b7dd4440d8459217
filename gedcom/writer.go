package gedcom

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxValueLength is the longest value written on a single line. Longer values
// continue on CONC lines.
const MaxValueLength = 248

// Encode serializes records as GEDCOM text. Levels come from tree depth, so
// Record.Level is ignored.
func Encode(records []*Record) string {
	var b strings.Builder

	w := &writer{b: &b}
	for _, r := range records {
		w.writeRecord(r, 0)
	}

	return b.String()
}

// Write serializes records to out.
func Write(out io.Writer, records []*Record) error {
	_, err := io.WriteString(out, Encode(records))

	return err
}

type writer struct {
	b *strings.Builder
}

func (w *writer) writeRecord(r *Record, level int) {
	value := strings.ReplaceAll(r.Value, "\r\n", "\n")
	parts := strings.Split(value, "\n")

	w.writeValue(level, r.Pointer, r.Tag, parts[0], level+1)

	for _, cont := range parts[1:] {
		w.writeValue(level+1, "", TagCont, cont, level+1)
	}

	for _, c := range r.Children {
		w.writeRecord(c, level+1)
	}
}

// writeValue writes one logical line, splitting long values onto CONC lines
// at concLevel.
func (w *writer) writeValue(level int, pointer, tag, value string, concLevel int) {
	chunk, rest := splitValue(value)
	w.writeLine(level, pointer, tag, chunk)

	for rest != "" {
		chunk, rest = splitValue(rest)
		w.writeLine(concLevel, "", TagConc, chunk)
	}
}

func (w *writer) writeLine(level int, pointer, tag, value string) {
	w.b.WriteString(strconv.Itoa(level))

	if pointer != "" {
		w.b.WriteByte(' ')
		w.b.WriteString(pointer)
	}

	w.b.WriteByte(' ')
	w.b.WriteString(tag)

	if value != "" {
		w.b.WriteByte(' ')
		w.b.WriteString(value)
	}

	w.b.WriteByte('\n')
}

// splitValue cuts s into a first chunk of at most MaxValueLength bytes and the
// remainder. The cut lands on a rune boundary and never next to a space,
// since readers may trim whitespace at line ends.
func splitValue(s string) (string, string) {
	if len(s) <= MaxValueLength {
		return s, ""
	}

	cut := runeBoundary(s, MaxValueLength)

	for i := cut; i > 0; i = runeBoundary(s, i-1) {
		if s[i-1] != ' ' && s[i] != ' ' {
			return s[:i], s[i:]
		}
	}

	// Nothing but spaces to cut at.
	return s[:cut], s[cut:]
}

// runeBoundary returns the largest rune start in s at or below i.
func runeBoundary(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}

	return i
}
