package render

import (
	"encoding/json"
	"io"

	"github.com/rlch/lineage/exchange"
	"github.com/rlch/lineage/graph"
)

// JSONFormatter writes each result as one indented JSON document.
type JSONFormatter struct {
	enc *json.Encoder
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return &JSONFormatter{enc: enc}
}

// Ancestors writes the ancestor tree.
func (j *JSONFormatter) Ancestors(n *graph.AncestorNode) error {
	return j.enc.Encode(n)
}

// Descendants writes the descendant tree.
func (j *JSONFormatter) Descendants(n *graph.DescendantNode) error {
	return j.enc.Encode(n)
}

// Chart writes the family chart.
func (j *JSONFormatter) Chart(n *graph.ChartNode) error {
	return j.enc.Encode(n)
}

type jsonImport struct {
	File string `json:"file"`
	*exchange.ImportResult
}

// Import writes the import result, tagged with the file it came from.
func (j *JSONFormatter) Import(file string, r *exchange.ImportResult) error {
	return j.enc.Encode(jsonImport{File: file, ImportResult: r})
}
