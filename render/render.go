// Package render writes graph views and import summaries for the command
// line, as styled text trees or as JSON.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rlch/lineage"
	"github.com/rlch/lineage/exchange"
	"github.com/rlch/lineage/graph"
)

// Formatter renders command results.
type Formatter interface {
	Ancestors(tree *graph.AncestorNode) error
	Descendants(tree *graph.DescendantNode) error
	Chart(chart *graph.ChartNode) error
	Import(file string, result *exchange.ImportResult) error
}

// Formatter names accepted by NewFormatter.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewFormatter creates a formatter by name. Unknown names get text.
func NewFormatter(name string, w io.Writer) Formatter { //nolint:ireturn
	if name == FormatJSON {
		return NewJSONFormatter(w)
	}

	return NewTextFormatter(w)
}

// PersonLabel is the one-line description of p used in text output:
// name, life years and ID.
func PersonLabel(p *lineage.Person) string {
	var b strings.Builder

	b.WriteString(p.Name.Full())

	if p.Name.Nickname != "" {
		fmt.Fprintf(&b, " %q", p.Name.Nickname)
	}

	birth, death := eventYear(p.Birth), eventYear(p.Death)

	switch {
	case birth != "" || death != "":
		fmt.Fprintf(&b, " (%s-%s)", birth, death)
	case p.Death != nil:
		b.WriteString(" (deceased)")
	}

	fmt.Fprintf(&b, " [%s]", p.ID)

	return b.String()
}

func eventYear(e *lineage.Event) string {
	if e == nil || e.Date == nil {
		return ""
	}

	if e.Estimated {
		return fmt.Sprintf("c.%d", e.Date.Year)
	}

	return strconv.Itoa(e.Date.Year)
}

// roleNote annotates a non-biological parent-child edge.
func roleNote(r *lineage.Relationship) string {
	if r == nil || r.Type != lineage.RelationshipParentChild {
		return ""
	}

	if r.ParentalRole == "" || r.ParentalRole == lineage.RoleBiological {
		return ""
	}

	return " <" + string(r.ParentalRole) + ">"
}
