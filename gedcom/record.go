package gedcom

import "github.com/alecthomas/participle/v2/lexer"

// Record is one GEDCOM line together with its subordinate lines. CONT and
// CONC lines never appear as children: the parser folds them into Value.
type Record struct {
	Level    int
	Pointer  string // "@I1@", level 0 only
	Tag      string
	Value    string
	Children []*Record
	Pos      lexer.Position
}

// NewRecord returns a record with the given tag and value.
func NewRecord(tag, value string) *Record {
	return &Record{Tag: tag, Value: value}
}

// Add appends children to r and returns r.
func (r *Record) Add(children ...*Record) *Record {
	r.Children = append(r.Children, children...)

	return r
}

// AddValue appends a child with tag and value when value is non-empty.
func (r *Record) AddValue(tag, value string) *Record {
	if value != "" {
		r.Children = append(r.Children, NewRecord(tag, value))
	}

	return r
}

// First returns the first direct child with tag, or nil.
func (r *Record) First(tag string) *Record {
	if r == nil {
		return nil
	}

	for _, c := range r.Children {
		if c.Tag == tag {
			return c
		}
	}

	return nil
}

// All returns every direct child with tag.
func (r *Record) All(tag string) []*Record {
	if r == nil {
		return nil
	}

	var out []*Record

	for _, c := range r.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}

	return out
}

// ValueOf returns the value of the first direct child with tag, or "".
func (r *Record) ValueOf(tag string) string {
	if c := r.First(tag); c != nil {
		return c.Value
	}

	return ""
}

// IsPointer reports whether v has the form @X@.
func IsPointer(v string) bool {
	return len(v) > 2 && v[0] == '@' && v[len(v)-1] == '@'
}

// Document is a parsed GEDCOM file.
type Document struct {
	// Records are the level-0 records in file order.
	Records []*Record
	// Warnings are the malformed lines that were skipped.
	Warnings []*LineError

	index map[string]*Record
}

// Header returns the HEAD record, or nil.
func (d *Document) Header() *Record {
	for _, r := range d.Records {
		if r.Tag == TagHead {
			return r
		}
	}

	return nil
}

// Individuals returns the INDI records in file order.
func (d *Document) Individuals() []*Record { return d.byTag(TagIndi) }

// Families returns the FAM records in file order.
func (d *Document) Families() []*Record { return d.byTag(TagFam) }

// Notes returns the level-0 NOTE records in file order.
func (d *Document) Notes() []*Record { return d.byTag(TagNote) }

// Lookup returns the level-0 record carrying pointer, or nil.
func (d *Document) Lookup(pointer string) *Record {
	return d.index[pointer]
}

func (d *Document) byTag(tag string) []*Record {
	var out []*Record

	for _, r := range d.Records {
		if r.Tag == tag {
			out = append(out, r)
		}
	}

	return out
}
