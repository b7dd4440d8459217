package exchange

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/rlch/lineage"
	"github.com/rlch/lineage/gedcom"
	"go.uber.org/zap"
)

const (
	formLineageLinked = "LINEAGE-LINKED"
	charsetUTF8       = "UTF-8"
	submitterPointer  = "@SUBM1@"
)

// Exporter writes a scope of the graph as GEDCOM.
type Exporter struct {
	store  lineage.Store
	opts   options
	filter *filter
	logger *zap.Logger
}

// NewExporter returns an Exporter reading from store. It fails if the
// exclude expression does not compile.
func NewExporter(store lineage.Store, opts ...Option) (*Exporter, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	f, err := compileFilter(o.exclude)
	if err != nil {
		return nil, err
	}

	return &Exporter{store: store, opts: o, filter: f, logger: o.logger}, nil
}

// Export returns scope as GEDCOM text, of media type gedcom.MIMEType.
func (e *Exporter) Export(ctx context.Context, scope string) (string, error) {
	records, err := e.Records(ctx, scope)
	if err != nil {
		return "", err
	}

	return gedcom.Encode(records), nil
}

// ExportTo writes scope as GEDCOM text to w.
func (e *Exporter) ExportTo(ctx context.Context, w io.Writer, scope string) error {
	records, err := e.Records(ctx, scope)
	if err != nil {
		return err
	}

	return gedcom.Write(w, records)
}

// family is one FAM record to write. spousal is nil for a family made up
// only to carry parent-child links.
type family struct {
	pointer    string
	husb, wife string
	spousal    *lineage.Relationship
	children   []familyChild
}

type familyChild struct {
	id   string
	role lineage.ParentalRole
}

// Records builds the full record list for scope: header, submitter,
// individuals, families and trailer. Families are worked out first so that
// every individual can carry its FAMC and FAMS links.
func (e *Exporter) Records(ctx context.Context, scope string) ([]*gedcom.Record, error) {
	start := time.Now()
	defer e.opts.metrics.observe("export", start)

	if scope == "" {
		scope = lineage.DefaultScope
	}

	all, err := e.store.ListPersons(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}

	persons := make([]*lineage.Person, 0, len(all))
	byID := make(map[string]*lineage.Person, len(all))

	for _, p := range all {
		excluded, err := e.filter.excludes(p)
		if err != nil {
			return nil, err
		}

		if excluded {
			continue
		}

		persons = append(persons, p)
		byID[p.ID] = p
	}

	rels, err := e.store.FindRelationships(ctx, lineage.RelationshipFilter{Scope: scope})
	if err != nil {
		return nil, fmt.Errorf("find relationships: %w", err)
	}

	kept := rels[:0:0]

	for _, r := range rels {
		if byID[r.Person1ID] != nil && byID[r.Person2ID] != nil {
			kept = append(kept, r)
		}
	}

	pointers := make(map[string]string, len(persons))
	for i, p := range persons {
		pointers[p.ID] = fmt.Sprintf("@I%d@", i+1)
	}

	fams := e.families(persons, byID, kept)

	subm := gedcom.NewRecord(gedcom.TagSubm, "").AddValue(gedcom.TagName, e.opts.submitter)
	subm.Pointer = submitterPointer

	records := []*gedcom.Record{e.header(), subm}

	for _, p := range persons {
		records = append(records, individual(p, pointers[p.ID], fams))
	}

	for _, f := range fams {
		records = append(records, familyRecord(f, pointers))
	}

	records = append(records, gedcom.NewRecord(gedcom.TagTrlr, ""))

	e.opts.metrics.addRecords("export", "individual", len(persons))
	e.opts.metrics.addRecords("export", "family", len(fams))

	e.logger.Info("exported GEDCOM",
		zap.String("scope", scope),
		zap.Int("individuals", len(persons)),
		zap.Int("excluded", len(all)-len(persons)),
		zap.Int("families", len(fams)),
		zap.Int("relationships", len(kept)),
		zap.Duration("elapsed", time.Since(start)))

	return records, nil
}

func (e *Exporter) header() *gedcom.Record {
	sour := gedcom.NewRecord(gedcom.TagSour, e.opts.source).
		AddValue(gedcom.TagVers, ProductVersion).
		AddValue(gedcom.TagName, ProductName)

	gedc := gedcom.NewRecord(gedcom.TagGedc, "").
		AddValue(gedcom.TagVers, gedcom.Version).
		AddValue(gedcom.TagForm, formLineageLinked)

	return gedcom.NewRecord(gedcom.TagHead, "").
		Add(sour, gedc).
		AddValue(gedcom.TagChar, charsetUTF8).
		AddValue(gedcom.TagSubm, submitterPointer)
}

// families groups edges into FAM records. Every spousal edge is a family.
// Each child's parents are grouped by role; a group equal to a spousal pair
// joins that family, any other group shares a family made for that exact
// set of parents. Groups larger than a couple split into one family per
// parent. Sibling edges have no GEDCOM form and are dropped.
func (e *Exporter) families(
	persons []*lineage.Person,
	byID map[string]*lineage.Person,
	rels []*lineage.Relationship,
) []*family {
	var fams []*family

	byParents := make(map[string]*family)

	add := func(f *family, key string) *family {
		f.pointer = fmt.Sprintf("@F%d@", len(fams)+1)
		fams = append(fams, f)
		byParents[key] = f

		return f
	}

	parents := make(map[string][]*lineage.Relationship)
	siblings := 0

	for _, r := range rels {
		switch r.Type {
		case lineage.RelationshipSpousal:
			husb, wife := couple(byID[r.Person1ID], byID[r.Person2ID])
			key := parentKey(husb, wife)

			if _, ok := byParents[key]; ok {
				continue
			}

			add(&family{husb: husb, wife: wife, spousal: r}, key)
		case lineage.RelationshipParentChild:
			parents[r.Person2ID] = append(parents[r.Person2ID], r)
		case lineage.RelationshipSibling:
			siblings++
		}
	}

	if siblings > 0 {
		e.logger.Debug("sibling relationships are not exported", zap.Int("count", siblings))
	}

	for _, child := range persons {
		for _, group := range roleGroups(parents[child.ID]) {
			ids := make([]string, len(group.parents))
			for i, r := range group.parents {
				ids[i] = r.Person1ID
			}

			var sets [][]string
			if len(ids) <= 2 {
				sets = [][]string{ids}
			} else {
				for _, id := range ids {
					sets = append(sets, []string{id})
				}
			}

			for _, set := range sets {
				key := parentKey(set...)

				f, ok := byParents[key]
				if !ok {
					f = add(synthesized(set, byID), key)
				}

				f.children = append(f.children, familyChild{id: child.ID, role: group.role})
			}
		}
	}

	return fams
}

type roleGroup struct {
	role    lineage.ParentalRole
	parents []*lineage.Relationship
}

// roleGroups splits a child's parent edges by role, biological first and
// the rest in first-seen order.
func roleGroups(edges []*lineage.Relationship) []roleGroup {
	var groups []roleGroup

	for _, r := range edges {
		role := r.ParentalRole
		if role == "" {
			role = lineage.RoleBiological
		}

		i := slices.IndexFunc(groups, func(g roleGroup) bool { return g.role == role })
		if i < 0 {
			groups = append(groups, roleGroup{role: role})
			i = len(groups) - 1
		}

		groups[i].parents = append(groups[i].parents, r)
	}

	slices.SortStableFunc(groups, func(a, b roleGroup) int {
		switch {
		case a.role == b.role:
			return 0
		case a.role == lineage.RoleBiological:
			return -1
		case b.role == lineage.RoleBiological:
			return 1
		default:
			return 0
		}
	})

	return groups
}

func synthesized(set []string, byID map[string]*lineage.Person) *family {
	if len(set) == 2 {
		husb, wife := couple(byID[set[0]], byID[set[1]])

		return &family{husb: husb, wife: wife}
	}

	if byID[set[0]].Sex == lineage.SexFemale {
		return &family{wife: set[0]}
	}

	return &family{husb: set[0]}
}

// couple orders two people as HUSB and WIFE by sex, keeping the given order
// when sex does not decide it.
func couple(a, b *lineage.Person) (string, string) {
	if (a.Sex == lineage.SexFemale && b.Sex != lineage.SexFemale) ||
		(b.Sex == lineage.SexMale && a.Sex != lineage.SexMale) {
		return b.ID, a.ID
	}

	return a.ID, b.ID
}

func parentKey(ids ...string) string {
	ids = slices.Clone(ids)
	slices.Sort(ids)

	return strings.Join(slices.DeleteFunc(ids, func(s string) bool { return s == "" }), "|")
}

func individual(p *lineage.Person, pointer string, fams []*family) *gedcom.Record {
	rec := gedcom.NewRecord(gedcom.TagIndi, "")
	rec.Pointer = pointer

	name := p.Name.Given
	if p.Name.Family != "" {
		name += " /" + p.Name.Family + "/"
	}

	rec.Add(gedcom.NewRecord(gedcom.TagName, name).
		AddValue(gedcom.TagGivn, p.Name.Given).
		AddValue(gedcom.TagSurn, p.Name.Family).
		AddValue(gedcom.TagNick, p.Name.Nickname))

	rec.AddValue(gedcom.TagSex, sexCode(p.Sex))

	if p.Birth != nil {
		rec.Add(eventRecord(gedcom.TagBirt, p.Birth))
	}

	if p.Death != nil {
		rec.Add(eventRecord(gedcom.TagDeat, p.Death))
	}

	rec.AddValue(gedcom.TagNote, p.Notes)

	for _, id := range p.Identifiers {
		switch id.Type {
		case lineage.IdentifierEmail:
			rec.AddValue(gedcom.TagEmail, id.Value)
		case lineage.IdentifierRefn:
			rec.AddValue(gedcom.TagRefn, id.Value)
		default:
			rec.Add(gedcom.NewRecord(gedcom.TagRefn, id.Value).AddValue(gedcom.TagType, id.Type))
		}
	}

	for _, f := range fams {
		for _, c := range f.children {
			if c.id == p.ID {
				rec.Add(gedcom.NewRecord(gedcom.TagFamc, f.pointer).AddValue(gedcom.TagPedi, pedigreeValues[c.role]))
			}
		}
	}

	for _, f := range fams {
		if f.husb == p.ID || f.wife == p.ID {
			rec.AddValue(gedcom.TagFams, f.pointer)
		}
	}

	return rec
}

func familyRecord(f *family, pointers map[string]string) *gedcom.Record {
	rec := gedcom.NewRecord(gedcom.TagFam, "")
	rec.Pointer = f.pointer

	rec.AddValue(gedcom.TagHusb, pointers[f.husb])
	rec.AddValue(gedcom.TagWife, pointers[f.wife])

	if r := f.spousal; r != nil {
		var marr, div bool

		for i := range r.Events {
			ev := &r.Events[i]

			switch ev.Type {
			case lineage.EventMarriage:
				marr = true

				rec.Add(eventRecord(gedcom.TagMarr, ev))
			case lineage.EventDivorce:
				div = true

				rec.Add(eventRecord(gedcom.TagDiv, ev))
			}
		}

		if !marr && r.StartDate != nil {
			rec.Add(eventRecord(gedcom.TagMarr, &lineage.Event{Date: r.StartDate}))
		}

		if !div && r.Status == lineage.StatusDivorced {
			rec.Add(eventRecord(gedcom.TagDiv, &lineage.Event{Date: r.EndDate}))
		}
	}

	for _, c := range f.children {
		rec.AddValue(gedcom.TagChil, pointers[c.id])
	}

	return rec
}

// eventRecord writes an event. An event with no details is written as
// "Y", which marks that it happened.
func eventRecord(tag string, e *lineage.Event) *gedcom.Record {
	rec := gedcom.NewRecord(tag, "")

	if e.Date != nil {
		rec.AddValue(gedcom.TagDate, gedcom.FormatDate(e.Date, e.Estimated))
	}

	rec.AddValue(gedcom.TagPlac, e.Place)
	rec.AddValue(gedcom.TagCaus, e.Cause)
	rec.AddValue(gedcom.TagNote, e.Description)

	if len(rec.Children) == 0 {
		rec.Value = "Y"
	}

	return rec
}

func sexCode(s lineage.Sex) string {
	switch s {
	case lineage.SexMale:
		return "M"
	case lineage.SexFemale:
		return "F"
	default:
		return "U"
	}
}
