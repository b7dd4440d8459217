package exchange_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rlch/lineage"
	"github.com/rlch/lineage/exchange"
	"github.com/rlch/lineage/gedcom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func (f *fixture) exporter(t *testing.T, opts ...exchange.Option) *exchange.Exporter {
	t.Helper()

	ex, err := exchange.NewExporter(f.store, append([]exchange.Option{exchange.WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, err)

	return ex
}

func (f *fixture) create(t *testing.T, p *lineage.Person) string {
	t.Helper()

	p.Scope = scope

	created, err := f.engine.CreatePerson(t.Context(), p)
	require.NoError(t, err)

	return created.ID
}

func (f *fixture) link(t *testing.T, p1, p2 string, typ lineage.RelationshipType, attrs lineage.RelationshipAttrs) {
	t.Helper()

	_, err := f.engine.CreateRelationship(t.Context(), p1, p2, typ, attrs)
	require.NoError(t, err)
}

// household builds a couple with a shared child and an adopted child of the
// mother only. Jane is created first so HUSB/WIFE ordering is by sex.
func household(t *testing.T, f *fixture) {
	t.Helper()

	jane := f.create(t, &lineage.Person{
		Name: lineage.Name{Given: "Jane", Family: "Doe"},
		Sex:  lineage.SexFemale,
		Birth: &lineage.Event{
			Type:  lineage.EventBirth,
			Date:  lineage.NewDate(1970, time.March, 5),
			Place: "Leeds",
		},
	})
	john := f.create(t, &lineage.Person{
		Name:  lineage.Name{Given: "John", Family: "Smith"},
		Sex:   lineage.SexMale,
		Death: &lineage.Event{Type: lineage.EventDeath},
	})
	kid := f.create(t, &lineage.Person{
		Name:  lineage.Name{Given: "Kid", Family: "Smith"},
		Notes: "line one\nline two",
	})
	ada := f.create(t, &lineage.Person{
		Name:        lineage.Name{Given: "Ada"},
		Sex:         lineage.SexFemale,
		Identifiers: []lineage.Identifier{{Type: lineage.IdentifierEmail, Value: "ada@example.com"}},
	})

	wedding := lineage.NewDate(2000, time.January, 1)
	f.link(t, jane, john, lineage.RelationshipSpousal, lineage.RelationshipAttrs{
		Status:    lineage.StatusMarried,
		StartDate: wedding,
		Events:    []lineage.Event{{Type: lineage.EventMarriage, Date: wedding, Place: "York"}},
	})
	f.link(t, jane, kid, lineage.RelationshipParentChild, lineage.RelationshipAttrs{})
	f.link(t, john, kid, lineage.RelationshipParentChild, lineage.RelationshipAttrs{})
	f.link(t, jane, ada, lineage.RelationshipParentChild, lineage.RelationshipAttrs{ParentalRole: lineage.RoleAdoptive})
}

func TestExport(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	household(t, f)

	got, err := f.exporter(t, exchange.WithSource("TESTS"), exchange.WithSubmitter("Tester")).Export(t.Context(), scope)
	require.NoError(t, err)

	want := strings.Join([]string{
		"0 HEAD",
		"1 SOUR TESTS",
		"2 VERS 1.0",
		"2 NAME Lineage",
		"1 GEDC",
		"2 VERS 5.5.1",
		"2 FORM LINEAGE-LINKED",
		"1 CHAR UTF-8",
		"1 SUBM @SUBM1@",
		"0 @SUBM1@ SUBM",
		"1 NAME Tester",
		"0 @I1@ INDI",
		"1 NAME Jane /Doe/",
		"2 GIVN Jane",
		"2 SURN Doe",
		"1 SEX F",
		"1 BIRT",
		"2 DATE 5 MAR 1970",
		"2 PLAC Leeds",
		"1 FAMS @F1@",
		"1 FAMS @F2@",
		"0 @I2@ INDI",
		"1 NAME John /Smith/",
		"2 GIVN John",
		"2 SURN Smith",
		"1 SEX M",
		"1 DEAT Y",
		"1 FAMS @F1@",
		"0 @I3@ INDI",
		"1 NAME Kid /Smith/",
		"2 GIVN Kid",
		"2 SURN Smith",
		"1 SEX U",
		"1 NOTE line one",
		"2 CONT line two",
		"1 FAMC @F1@",
		"0 @I4@ INDI",
		"1 NAME Ada",
		"2 GIVN Ada",
		"1 SEX F",
		"1 EMAIL ada@example.com",
		"1 FAMC @F2@",
		"2 PEDI adopted",
		"0 @F1@ FAM",
		"1 HUSB @I2@",
		"1 WIFE @I1@",
		"1 MARR",
		"2 DATE 1 JAN 2000",
		"2 PLAC York",
		"1 CHIL @I3@",
		"0 @F2@ FAM",
		"1 WIFE @I1@",
		"1 CHIL @I4@",
		"0 TRLR",
	}, "\n") + "\n"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("export mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	require.NoError(t, f.exporter(t, exchange.WithSource("TESTS"), exchange.WithSubmitter("Tester")).
		ExportTo(t.Context(), &buf, scope))
	assert.Equal(t, got, buf.String())
}

func TestExportEmptyScope(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	got, err := f.exporter(t).Export(t.Context(), "nobody")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "0 HEAD\n1 SOUR LINEAGE\n"))
	assert.True(t, strings.HasSuffix(got, "0 @SUBM1@ SUBM\n1 NAME Lineage user\n0 TRLR\n"))
}

func TestExportSingleParentsAndDivorce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.create(t, &lineage.Person{Name: lineage.Name{Given: "A"}})
	b := f.create(t, &lineage.Person{Name: lineage.Name{Given: "B"}})
	c := f.create(t, &lineage.Person{Name: lineage.Name{Given: "C"}})

	f.link(t, a, b, lineage.RelationshipSpousal, lineage.RelationshipAttrs{Status: lineage.StatusDivorced})
	f.link(t, a, c, lineage.RelationshipParentChild, lineage.RelationshipAttrs{})
	f.link(t, b, c, lineage.RelationshipSibling, lineage.RelationshipAttrs{})

	records, err := f.exporter(t).Records(t.Context(), scope)
	require.NoError(t, err)

	var fams []*gedcom.Record

	for _, r := range records {
		if r.Tag == gedcom.TagFam {
			fams = append(fams, r)
		}
	}

	require.Len(t, fams, 2)

	// Unknown sex on both sides keeps creation order.
	assert.Equal(t, "@I1@", fams[0].ValueOf(gedcom.TagHusb))
	assert.Equal(t, "@I2@", fams[0].ValueOf(gedcom.TagWife))
	assert.Equal(t, "Y", fams[0].ValueOf(gedcom.TagDiv))
	assert.Empty(t, fams[0].All(gedcom.TagChil))

	assert.Equal(t, "@I1@", fams[1].ValueOf(gedcom.TagHusb))
	assert.Empty(t, fams[1].ValueOf(gedcom.TagWife))
	assert.Equal(t, "@I3@", fams[1].ValueOf(gedcom.TagChil))
}

func TestExportExclude(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	household(t, f)

	ex := f.exporter(t, exchange.WithExclude(`Given == "John"`))

	records, err := ex.Records(t.Context(), scope)
	require.NoError(t, err)

	text := gedcom.Encode(records)
	assert.NotContains(t, text, "John")
	assert.NotContains(t, text, "@I4@ INDI", "only three people remain")

	// Without John, Kid's remaining parent gets a family of her own.
	doc, err := gedcom.Parse([]byte(text))
	require.NoError(t, err)
	require.Len(t, doc.Individuals(), 3)

	for _, fam := range doc.Families() {
		assert.Empty(t, fam.ValueOf(gedcom.TagHusb))
		assert.Equal(t, "@I1@", fam.ValueOf(gedcom.TagWife))
	}
}

func TestNewExporterRejectsBadFilter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	for _, expression := range []string{`Given ==`, `BirthYear + 1`, `Unknown > 3`} {
		_, err := exchange.NewExporter(f.store, exchange.WithExclude(expression))
		require.ErrorIs(t, err, exchange.ErrInvalidFilter, expression)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	src := newFixture(t)
	household(t, src)

	text, err := src.exporter(t).Export(t.Context(), scope)
	require.NoError(t, err)

	dst := newFixture(t)

	res, err := dst.importer(t).Import(t.Context(), []byte(text), scope)
	require.NoError(t, err)
	assert.Equal(t, 4, res.IndividualsImported)
	assert.Equal(t, 2, res.FamiliesProcessed)
	assert.Equal(t, 4, res.RelationshipsCreated)
	assert.Zero(t, res.RelationshipsRejected)
	assert.Zero(t, res.UnresolvedPointers)
	assert.Empty(t, res.Warnings)

	again, err := dst.exporter(t).Export(t.Context(), scope)
	require.NoError(t, err)

	if diff := cmp.Diff(text, again); diff != "" {
		t.Errorf("second export differs (-first +second):\n%s", diff)
	}

	want := src.persons(t, scope)
	got := dst.persons(t, scope)
	require.Len(t, got, len(want))

	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(lineage.Person{}, "ID")); diff != "" {
		t.Errorf("people differ after round trip (-want +got):\n%s", diff)
	}

	adopted := dst.find(t, lineage.ParentsOf(got[3].ID))
	require.Len(t, adopted, 1)
	assert.Equal(t, lineage.RoleAdoptive, adopted[0].ParentalRole)
}

// recordsTagged counts level-0 records with the given tag.
func recordsTagged(text, tag string) int {
	n := 0

	for line := range strings.SplitSeq(text, "\n") {
		if strings.HasPrefix(line, "0 @") && strings.HasSuffix(line, "@ "+tag) {
			n++
		}
	}

	return n
}

func TestRoundTripFromFile(t *testing.T) {
	t.Parallel()

	input := string(gedcomText(
		"0 HEAD",
		"1 SOUR OtherApp",
		"1 CHAR UTF-8",
		"0 @P1@ INDI",
		"1 NAME William /Turner/",
		"1 SEX M",
		"1 BIRT",
		"2 DATE 1 JAN 1900",
		"2 PLAC Bristol",
		"1 FAMS @FAM1@",
		"0 @P2@ INDI",
		"1 NAME Mary /Turner/",
		"1 SEX F",
		"1 FAMS @FAM1@",
		"1 FAMS @FAM2@",
		"0 @P3@ INDI",
		"1 NAME Tom /Turner/",
		"1 SEX M",
		"1 FAMC @FAM1@",
		"0 @P4@ INDI",
		"1 NAME Lucy /Turner/",
		"1 SEX F",
		"1 FAMC @FAM1@",
		"0 @P5@ INDI",
		"1 NAME Sam /Baker/",
		"1 SEX M",
		"1 FAMC @FAM2@",
		"2 PEDI adopted",
		"0 @P6@ INDI",
		"1 NAME Orphan /Nobody/",
		"1 FAMC @FAM3@",
		"0 @FAM1@ FAM",
		"1 HUSB @P1@",
		"1 WIFE @P2@",
		"1 MARR",
		"2 DATE 3 MAY 1925",
		"1 CHIL @P3@",
		"1 CHIL @P4@",
		"0 @FAM2@ FAM",
		"1 WIFE @P2@",
		"1 CHIL @P5@",
		"0 @FAM3@ FAM",
		"1 CHIL @P6@",
		"0 TRLR",
	))

	src := newFixture(t)

	res, err := src.importer(t).Import(t.Context(), []byte(input), scope)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FamiliesProcessed)
	assert.Equal(t, 1, res.FamiliesSkipped)
	assert.Equal(t, 6, res.RelationshipsCreated)
	assert.Equal(t, []string{"@FAM3@: family links fewer than two known individuals; skipped"}, res.Warnings)

	text, err := src.exporter(t).Export(t.Context(), scope)
	require.NoError(t, err)

	assert.Equal(t, recordsTagged(input, gedcom.TagIndi), recordsTagged(text, gedcom.TagIndi))
	assert.Equal(t, recordsTagged(input, gedcom.TagFam)-res.FamiliesSkipped, recordsTagged(text, gedcom.TagFam))
	assert.Contains(t, text, "1 BIRT\n2 DATE 1 JAN 1900\n2 PLAC Bristol\n")
	assert.Contains(t, text, "1 MARR\n2 DATE 3 MAY 1925\n")
	assert.Contains(t, text, "2 PEDI adopted\n")

	dst := newFixture(t)

	again, err := dst.importer(t).Import(t.Context(), []byte(text), scope)
	require.NoError(t, err)
	assert.Equal(t, res.FamiliesProcessed, again.FamiliesProcessed)
	assert.Zero(t, again.FamiliesSkipped)
	assert.Equal(t, res.RelationshipsCreated, again.RelationshipsCreated)
	assert.Empty(t, again.Warnings)

	if diff := cmp.Diff(src.persons(t, scope), dst.persons(t, scope), cmpopts.IgnoreFields(lineage.Person{}, "ID")); diff != "" {
		t.Errorf("people differ after round trip (-want +got):\n%s", diff)
	}
}

func TestRoundTripEstimatedDate(t *testing.T) {
	t.Parallel()

	src := newFixture(t)

	_, err := src.importer(t).Import(t.Context(), gedcomText(
		"0 @I1@ INDI",
		"1 NAME Old /Timer/",
		"1 BIRT",
		"2 DATE EST 1850",
	), scope)
	require.NoError(t, err)

	text, err := src.exporter(t).Export(t.Context(), scope)
	require.NoError(t, err)
	assert.Contains(t, text, "2 DATE ABT 1850\n")
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := exchange.NewMetrics(reg)

	f := newFixture(t)

	_, err := f.importer(t, exchange.WithMetrics(metrics)).Import(t.Context(), gedcomText(
		"0 @I1@ INDI",
		"1 NAME A",
		"0 @I2@ INDI",
		"1 NAME B",
		"0 @F1@ FAM",
		"1 HUSB @I1@",
		"1 CHIL @I2@",
		"1 CHIL @I2@",
		"1 CHIL @I9@",
	), scope)
	require.NoError(t, err)

	_, err = f.exporter(t, exchange.WithMetrics(metrics)).Export(t.Context(), scope)
	require.NoError(t, err)

	counts := map[string]float64{
		"import/individual":   2,
		"import/family":       1,
		"import/relationship": 1,
		"export/individual":   2,
		"export/family":       1,
	}
	for key, want := range counts {
		op, kind, _ := strings.Cut(key, "/")
		assert.InDelta(t, want, recordCount(t, reg, op, kind), 0, key)
	}

	problems, err := testutil.GatherAndCount(reg, "lineage_gedcom_rejected_total")
	require.NoError(t, err)
	assert.Equal(t, 2, problems, "duplicate and unresolved series")

	durations, err := testutil.GatherAndCount(reg, "lineage_gedcom_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, durations)

	assert.Nil(t, exchange.NewMetrics(nil))
}

// recordCount reads lineage_gedcom_records_total for one label pair.
func recordCount(t *testing.T, reg *prometheus.Registry, operation, kind string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "lineage_gedcom_records_total" {
			continue
		}

		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}

			if labels["operation"] == operation && labels["kind"] == kind {
				return m.GetCounter().GetValue()
			}
		}
	}

	return 0
}
