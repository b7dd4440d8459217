package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/mattn/go-isatty"
	"github.com/rlch/lineage/exchange"
	"github.com/rlch/lineage/graph"
)

// TextFormatter draws trees with box-drawing branches. Colors are applied
// only when writing to a terminal.
type TextFormatter struct {
	w      io.Writer
	styled bool

	name    lipgloss.Style
	spouse  lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
}

// NewTextFormatter creates a text formatter writing to w.
func NewTextFormatter(w io.Writer) *TextFormatter {
	styled := false
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		styled = true
	}

	return &TextFormatter{
		w:       w,
		styled:  styled,
		name:    lipgloss.NewStyle().Bold(true),
		spouse:  lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

func (f *TextFormatter) style(s lipgloss.Style, text string) string {
	if !f.styled {
		return text
	}

	return s.Render(text)
}

// Ancestors draws the ancestor tree with the person at the root.
func (f *TextFormatter) Ancestors(n *graph.AncestorNode) error {
	return f.print(f.ancestorTree(n))
}

func (f *TextFormatter) ancestorTree(n *graph.AncestorNode) any {
	children := make([]any, len(n.Parents))
	for i, p := range n.Parents {
		children[i] = f.ancestorTree(p)
	}

	return branch(f.style(f.name, PersonLabel(n.Person))+f.style(f.muted, roleNote(n.Relationship)), children)
}

// Descendants draws the descendant tree with the person at the root.
func (f *TextFormatter) Descendants(n *graph.DescendantNode) error {
	return f.print(f.descendantTree(n))
}

func (f *TextFormatter) descendantTree(n *graph.DescendantNode) any {
	children := make([]any, len(n.Children))
	for i, c := range n.Children {
		children[i] = f.descendantTree(c)
	}

	return branch(f.style(f.name, PersonLabel(n.Person))+f.style(f.muted, roleNote(n.Relationship)), children)
}

// Chart draws a family chart. Spouses follow the person's label; the root's
// parents are listed above the tree.
func (f *TextFormatter) Chart(n *graph.ChartNode) error {
	if len(n.Parents) > 0 {
		parents := make([]string, len(n.Parents))
		for i, p := range n.Parents {
			parents[i] = PersonLabel(p.Person) + roleNote(p.Relationship)
		}

		if _, err := fmt.Fprintln(f.w, f.style(f.muted, "parents: "+strings.Join(parents, ", "))); err != nil {
			return err
		}
	}

	return f.print(f.chartTree(n))
}

func (f *TextFormatter) chartTree(n *graph.ChartNode) any {
	label := f.style(f.name, PersonLabel(n.Person)) + f.style(f.muted, roleNote(n.Relationship))

	for _, s := range n.Spouses {
		note := ""
		if s.Relationship != nil && s.Relationship.Status != "" {
			note = " <" + string(s.Relationship.Status) + ">"
		}

		label += f.style(f.spouse, " = "+PersonLabel(s.Person)) + f.style(f.muted, note)
	}

	children := make([]any, len(n.Children))
	for i, c := range n.Children {
		children[i] = f.chartTree(c)
	}

	return branch(label, children)
}

// Import prints an import summary followed by its warnings.
func (f *TextFormatter) Import(file string, r *exchange.ImportResult) error {
	var b strings.Builder

	headline := fmt.Sprintf("%s: %d individuals, %d families, %d relationships",
		file, r.IndividualsImported, r.FamiliesProcessed, r.RelationshipsCreated)

	problems := r.RelationshipsRejected + r.UnresolvedPointers + r.MalformedLines + r.DateFailures + r.FamiliesSkipped
	if problems == 0 {
		b.WriteString(f.style(f.success, headline))
	} else {
		b.WriteString(f.style(f.warning, headline))
	}

	b.WriteByte('\n')

	if r.Source != "" {
		fmt.Fprintf(&b, "  source:     %s\n", r.Source)
	}

	if problems > 0 {
		fmt.Fprintf(&b, "  rejected:   %d\n", r.RelationshipsRejected)
		fmt.Fprintf(&b, "  unresolved: %d\n", r.UnresolvedPointers)
		fmt.Fprintf(&b, "  malformed:  %d\n", r.MalformedLines)
		fmt.Fprintf(&b, "  bad dates:  %d\n", r.DateFailures)
		fmt.Fprintf(&b, "  empty fams: %d\n", r.FamiliesSkipped)
	}

	for _, w := range r.Warnings {
		b.WriteString(f.style(f.muted, "  - "+w))
		b.WriteByte('\n')
	}

	_, err := io.WriteString(f.w, b.String())

	return err
}

// branch is a subtree when there are children and a plain leaf otherwise.
func branch(label string, children []any) any {
	if len(children) == 0 {
		return label
	}

	return tree.Root(label).Child(children...)
}

func (f *TextFormatter) print(node any) error {
	_, err := fmt.Fprintln(f.w, node)

	return err
}
