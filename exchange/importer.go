// Package exchange moves genealogy graphs in and out of GEDCOM. The
// importer links records through the graph engine so that every structural
// rule applies to imported data. The exporter rebuilds individual and family
// records from a store.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rlch/lineage"
	"github.com/rlch/lineage/gedcom"
	"github.com/rlch/lineage/graph"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ImportResult reports what an import did. Partial imports are normal: every
// skipped line, link or date is counted here rather than failing the call.
type ImportResult struct {
	Source                string   `json:"source,omitempty"`
	IndividualsImported   int      `json:"individualsImported"`
	FamiliesProcessed     int      `json:"familiesProcessed"`
	FamiliesSkipped       int      `json:"familiesSkipped"`
	RelationshipsCreated  int      `json:"relationshipsCreated"`
	RelationshipsRejected int      `json:"relationshipsRejected"`
	UnresolvedPointers    int      `json:"unresolvedPointers"`
	MalformedLines        int      `json:"malformedLines"`
	DateFailures          int      `json:"dateFailures"`
	Warnings              []string `json:"warnings"`
}

// Importer reads GEDCOM into the graph.
type Importer struct {
	engine *graph.Engine
	opts   options
	logger *zap.Logger
}

// NewImporter returns an Importer writing through engine.
func NewImporter(engine *graph.Engine, opts ...Option) (*Importer, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	return &Importer{engine: engine, opts: o, logger: o.logger}, nil
}

// Import parses data and adds its individuals and families to scope. The
// error is reserved for store failures and cancellation. Malformed lines,
// unresolved pointers, unreadable dates and rejected links are counted in
// the result.
func (im *Importer) Import(ctx context.Context, data []byte, scope string) (*ImportResult, error) {
	start := time.Now()
	defer im.opts.metrics.observe("import", start)

	if scope == "" {
		scope = lineage.DefaultScope
	}

	doc, err := gedcom.Parse(data, gedcom.WithLogger(im.logger))
	if err != nil {
		return nil, fmt.Errorf("parse gedcom: %w", err)
	}

	run := &importRun{
		im:    im,
		doc:   doc,
		scope: scope,
		ids:   make(map[string]string),
		res:   &ImportResult{Warnings: []string{}},
	}

	run.header()

	for _, w := range doc.Warnings {
		run.res.MalformedLines++
		run.res.Warnings = append(run.res.Warnings, w.Error())
	}

	if err := run.individuals(ctx); err != nil {
		return nil, err
	}

	if err := run.families(ctx); err != nil {
		return nil, err
	}

	res := run.res

	im.opts.metrics.addRecords("import", "individual", res.IndividualsImported)
	im.opts.metrics.addRecords("import", "family", res.FamiliesProcessed)
	im.opts.metrics.addRecords("import", "relationship", res.RelationshipsCreated)

	im.logger.Info("imported GEDCOM",
		zap.String("scope", scope),
		zap.Int("individuals", res.IndividualsImported),
		zap.Int("families", res.FamiliesProcessed),
		zap.Int("skipped", res.FamiliesSkipped),
		zap.Int("relationships", res.RelationshipsCreated),
		zap.Int("rejected", res.RelationshipsRejected),
		zap.Int("unresolved", res.UnresolvedPointers),
		zap.Int("malformed", res.MalformedLines),
		zap.Duration("elapsed", time.Since(start)))

	return res, nil
}

// importRun is the state of one Import call. ids maps GEDCOM pointers to
// person IDs; it is filled in the individuals pass and only read after.
type importRun struct {
	im    *Importer
	doc   *gedcom.Document
	scope string
	ids   map[string]string
	res   *ImportResult
}

// tally collects the counts of one unit of work so concurrent families
// never share a counter.
type tally struct {
	created    int
	rejected   int
	unresolved int
	dates      int
	skipped    bool
	warnings   []string
}

func (t *tally) warn(format string, args ...any) {
	t.warnings = append(t.warnings, fmt.Sprintf(format, args...))
}

func (r *ImportResult) add(t *tally) {
	r.RelationshipsCreated += t.created
	r.RelationshipsRejected += t.rejected
	r.UnresolvedPointers += t.unresolved
	r.DateFailures += t.dates
	r.Warnings = append(r.Warnings, t.warnings...)

	if t.skipped {
		r.FamiliesSkipped++
	} else {
		r.FamiliesProcessed++
	}
}

var knownCharsets = map[string]bool{"UTF-8": true, "UTF8": true, "ASCII": true}

func (r *importRun) header() {
	head := r.doc.Header()
	if head == nil {
		return
	}

	r.res.Source = head.ValueOf(gedcom.TagSour)

	if cs := strings.ToUpper(head.ValueOf(gedcom.TagChar)); cs != "" && !knownCharsets[cs] {
		r.res.Warnings = append(r.res.Warnings,
			fmt.Sprintf("character set %s is not supported; text was read as UTF-8", cs))
	}
}

func (r *importRun) individuals(ctx context.Context) error {
	var t tally

	for _, rec := range r.doc.Individuals() {
		if err := ctx.Err(); err != nil {
			return err
		}

		p := r.person(rec, &t)

		created, err := r.im.engine.CreatePerson(ctx, p)
		if err != nil {
			return fmt.Errorf("import %s: %w", label(rec), err)
		}

		if rec.Pointer != "" {
			r.ids[rec.Pointer] = created.ID
		}

		r.res.IndividualsImported++

		r.checkLinks(rec, gedcom.TagFamc, &t)
		r.checkLinks(rec, gedcom.TagFams, &t)
	}

	r.res.add(&t)

	return nil
}

// checkLinks counts FAMC or FAMS pointers naming no FAM record.
func (r *importRun) checkLinks(rec *gedcom.Record, tag string, t *tally) {
	for _, link := range rec.All(tag) {
		if target := r.doc.Lookup(link.Value); target == nil || target.Tag != gedcom.TagFam {
			r.unresolved(t, rec, tag, link.Value)
		}
	}
}

func (r *importRun) unresolved(t *tally, rec *gedcom.Record, tag, pointer string) {
	t.unresolved++
	t.warn("%s: %s %s: %v", label(rec), tag, pointer, gedcom.ErrUnresolvedPointer)
	r.im.opts.metrics.reject("unresolved")
}

func (r *importRun) person(rec *gedcom.Record, t *tally) *lineage.Person {
	p := &lineage.Person{Scope: r.scope, Sex: lineage.SexUnknown}

	if name := rec.First(gedcom.TagName); name != nil {
		p.Name = parseName(name)
	}

	switch strings.ToUpper(strings.TrimSpace(rec.ValueOf(gedcom.TagSex))) {
	case "M":
		p.Sex = lineage.SexMale
	case "F":
		p.Sex = lineage.SexFemale
	}

	if birt := rec.First(gedcom.TagBirt); birt != nil {
		p.Birth = r.event(rec, birt, lineage.EventBirth, t)
	}

	if deat := rec.First(gedcom.TagDeat); deat != nil {
		p.Death = r.event(rec, deat, lineage.EventDeath, t)
	}

	p.Notes = r.notes(rec, t)

	for _, refn := range rec.All(gedcom.TagRefn) {
		typ := strings.ToLower(refn.ValueOf(gedcom.TagType))
		if typ == "" {
			typ = lineage.IdentifierRefn
		}

		if refn.Value != "" {
			p.Identifiers = append(p.Identifiers, lineage.Identifier{Type: typ, Value: refn.Value})
		}
	}

	for _, email := range rec.All(gedcom.TagEmail) {
		if email.Value != "" {
			p.Identifiers = append(p.Identifiers, lineage.Identifier{Type: lineage.IdentifierEmail, Value: email.Value})
		}
	}

	return p
}

// parseName reads "Given /Family/" with GIVN, SURN and NICK overrides.
// Either part may be missing. Text after the closing slash is dropped.
func parseName(rec *gedcom.Record) lineage.Name {
	var n lineage.Name

	value := rec.Value
	if i := strings.IndexByte(value, '/'); i >= 0 {
		n.Given = value[:i]
		family := value[i+1:]

		if j := strings.IndexByte(family, '/'); j >= 0 {
			family = family[:j]
		}

		n.Family = family
	} else {
		n.Given = value
	}

	if v := rec.ValueOf(gedcom.TagGivn); v != "" {
		n.Given = v
	}

	if v := rec.ValueOf(gedcom.TagSurn); v != "" {
		n.Family = v
	}

	n.Given = strings.Join(strings.Fields(n.Given), " ")
	n.Family = strings.Join(strings.Fields(n.Family), " ")
	n.Nickname = strings.TrimSpace(rec.ValueOf(gedcom.TagNick))

	return n
}

func (r *importRun) event(owner, rec *gedcom.Record, typ lineage.EventType, t *tally) *lineage.Event {
	e := &lineage.Event{
		Type:        typ,
		Place:       rec.ValueOf(gedcom.TagPlac),
		Cause:       rec.ValueOf(gedcom.TagCaus),
		Description: r.notes(rec, t),
	}

	if raw := rec.ValueOf(gedcom.TagDate); raw != "" {
		date, estimated, err := gedcom.ParseDate(raw)
		e.Date = date
		e.Estimated = estimated

		if err != nil {
			t.dates++
			t.warn("%s: %s: %v", label(owner), rec.Tag, err)
		}
	}

	return e
}

// notes joins the NOTE children of rec. Pointer notes resolve to level-0
// NOTE records.
func (r *importRun) notes(rec *gedcom.Record, t *tally) string {
	var parts []string

	for _, note := range rec.All(gedcom.TagNote) {
		text := note.Value

		if gedcom.IsPointer(text) {
			target := r.doc.Lookup(text)
			if target == nil || target.Tag != gedcom.TagNote {
				r.unresolved(t, rec, gedcom.TagNote, text)

				continue
			}

			text = target.Value
		}

		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n")
}

// families links every FAM record. Families are independent, so they run
// concurrently up to the configured limit. Each fills its own tally and the
// tallies merge in file order.
func (r *importRun) families(ctx context.Context) error {
	fams := r.doc.Families()
	tallies := make([]tally, len(fams))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.im.opts.concurrency)

	for i, fam := range fams {
		g.Go(func() error {
			return r.family(ctx, fam, &tallies[i])
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i := range tallies {
		r.res.add(&tallies[i])
	}

	return nil
}

func (r *importRun) family(ctx context.Context, fam *gedcom.Record, t *tally) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	husb, husbOK := r.spouse(fam, gedcom.TagHusb, t)
	wife, wifeOK := r.spouse(fam, gedcom.TagWife, t)

	if husbOK && wifeOK {
		attrs := lineage.RelationshipAttrs{Status: lineage.StatusMarried}

		if marr := fam.First(gedcom.TagMarr); marr != nil {
			e := r.event(fam, marr, lineage.EventMarriage, t)
			attrs.StartDate = e.Date
			attrs.Events = append(attrs.Events, *e)
		}

		if div := fam.First(gedcom.TagDiv); div != nil {
			e := r.event(fam, div, lineage.EventDivorce, t)
			attrs.Status = lineage.StatusDivorced
			attrs.EndDate = e.Date
			attrs.Events = append(attrs.Events, *e)
		}

		if err := r.link(ctx, fam, husb, wife, lineage.RelationshipSpousal, attrs, t); err != nil {
			return err
		}
	}

	var parents []string

	for _, id := range []string{husb, wife} {
		if id != "" {
			parents = append(parents, id)
		}
	}

	for _, chil := range fam.All(gedcom.TagChil) {
		child, ok := r.ids[chil.Value]
		if !ok {
			r.unresolved(t, fam, gedcom.TagChil, chil.Value)

			continue
		}

		link := childLink{fam: fam, chil: chil, child: r.doc.Lookup(chil.Value), pointer: fam.Pointer}
		role := resolveRole(r.im.opts.policy, link)

		for _, parent := range parents {
			attrs := lineage.RelationshipAttrs{ParentalRole: role}
			if err := r.link(ctx, fam, parent, child, lineage.RelationshipParentChild, attrs, t); err != nil {
				return err
			}
		}
	}

	// A family with fewer than two linkable members has no edge to carry it
	// and would vanish from the graph unnoticed.
	if t.created == 0 && t.rejected == 0 {
		t.skipped = true
		t.warn("%s: family links fewer than two known individuals; skipped", label(fam))
		r.im.opts.metrics.reject("empty_family")
	}

	return nil
}

// spouse resolves the HUSB or WIFE pointer of fam. An absent tag is not an
// error; a pointer naming no individual is counted.
func (r *importRun) spouse(fam *gedcom.Record, tag string, t *tally) (string, bool) {
	ptr := fam.ValueOf(tag)
	if ptr == "" {
		return "", false
	}

	id, ok := r.ids[ptr]
	if !ok {
		r.unresolved(t, fam, tag, ptr)
	}

	return id, ok
}

// link creates one edge. Rule violations are counted and skipped; anything
// else stops the import.
func (r *importRun) link(
	ctx context.Context,
	fam *gedcom.Record,
	person1, person2 string,
	typ lineage.RelationshipType,
	attrs lineage.RelationshipAttrs,
	t *tally,
) error {
	_, err := r.im.engine.CreateRelationship(ctx, person1, person2, typ, attrs)
	if err == nil {
		t.created++

		return nil
	}

	reason, ok := rejection(err)
	if !ok {
		return fmt.Errorf("import %s: %w", label(fam), err)
	}

	t.rejected++
	t.warn("%s: %s link rejected: %v", label(fam), typ, err)
	r.im.opts.metrics.reject(reason)
	r.im.logger.Debug("rejected relationship",
		zap.String("family", fam.Pointer),
		zap.String("type", string(typ)),
		zap.String("reason", reason),
		zap.Error(err))

	return nil
}

// rejection classifies errors that reject a single edge.
func rejection(err error) (string, bool) {
	switch {
	case errors.Is(err, lineage.ErrCyclicRelationship):
		return "cycle", true
	case errors.Is(err, lineage.ErrDuplicateRelationship):
		return "duplicate", true
	case errors.Is(err, lineage.ErrParentLimit):
		return "parent_limit", true
	case errors.Is(err, lineage.ErrInvalidRelationship):
		return "invalid", true
	default:
		return "", false
	}
}

// label names a record for warnings: its pointer, or its tag and line.
func label(rec *gedcom.Record) string {
	if rec.Pointer != "" {
		return rec.Pointer
	}

	return fmt.Sprintf("%s at line %d", rec.Tag, rec.Pos.Line)
}
