package graph_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rlch/lineage"
	"github.com/rlch/lineage/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shape is a name-only view of a tree, for comparisons.
type shape struct {
	Name    string
	Spouses []string
	Kids    []shape
}

func ancestorShape(n *graph.AncestorNode) shape {
	s := shape{Name: n.Person.Name.Given}
	for _, p := range n.Parents {
		s.Kids = append(s.Kids, ancestorShape(p))
	}

	return s
}

func descendantShape(n *graph.DescendantNode) shape {
	s := shape{Name: n.Person.Name.Given}
	for _, c := range n.Children {
		s.Kids = append(s.Kids, descendantShape(c))
	}

	return s
}

func chartShape(n *graph.ChartNode) shape {
	s := shape{Name: n.Person.Name.Given}
	for _, sp := range n.Spouses {
		s.Spouses = append(s.Spouses, sp.Person.Name.Given)
	}

	for _, c := range n.Children {
		s.Kids = append(s.Kids, chartShape(c))
	}

	return s
}

// family builds:
//
//	Gran ─┬─ Grandpa
//	      Mum ─┬─ Dad
//	      Kid   Kid2
//	      Baby
type family struct {
	gran, grandpa, mum, dad, kid, kid2, baby string
}

func newFamily(t *testing.T, f *fixture) family {
	t.Helper()

	fam := family{
		gran:    f.person(t, "Gran"),
		grandpa: f.person(t, "Grandpa"),
		mum:     f.person(t, "Mum"),
		dad:     f.person(t, "Dad"),
		kid:     f.person(t, "Kid"),
		kid2:    f.person(t, "Kid2"),
		baby:    f.person(t, "Baby"),
	}

	f.marry(t, fam.gran, fam.grandpa)
	f.parent(t, fam.gran, fam.mum)
	f.parent(t, fam.grandpa, fam.mum)
	f.marry(t, fam.mum, fam.dad)
	f.parent(t, fam.mum, fam.kid)
	f.parent(t, fam.dad, fam.kid)
	f.parent(t, fam.mum, fam.kid2)
	f.parent(t, fam.kid, fam.baby)

	return fam
}

func TestAncestors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	fam := newFamily(t, f)

	tests := []struct {
		name        string
		generations int
		want        shape
	}{
		{"root only", 0, shape{Name: "Baby"}},
		{"parents", 1, shape{Name: "Baby", Kids: []shape{{Name: "Kid"}}}},
		{"all", 10, shape{Name: "Baby", Kids: []shape{
			{Name: "Kid", Kids: []shape{
				{Name: "Mum", Kids: []shape{{Name: "Gran"}, {Name: "Grandpa"}}},
				{Name: "Dad"},
			}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree, err := f.trav.Ancestors(t.Context(), fam.baby, tt.generations)
			require.NoError(t, err)
			assert.Nil(t, tree.Relationship)

			if diff := cmp.Diff(tt.want, ancestorShape(tree)); diff != "" {
				t.Errorf("ancestors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDescendants(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	fam := newFamily(t, f)

	tree, err := f.trav.Descendants(t.Context(), fam.gran, 2)
	require.NoError(t, err)

	want := shape{Name: "Gran", Kids: []shape{
		{Name: "Mum", Kids: []shape{{Name: "Kid"}, {Name: "Kid2"}}},
	}}
	if diff := cmp.Diff(want, descendantShape(tree)); diff != "" {
		t.Errorf("descendants mismatch (-want +got):\n%s", diff)
	}

	mum := tree.Children[0]
	require.NotNil(t, mum.Relationship)
	assert.Equal(t, fam.gran, mum.Relationship.Person1ID)
	assert.Equal(t, fam.mum, mum.Relationship.Person2ID)
}

func TestTraversalEdgeCases(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	loner := f.person(t, "Loner")

	anc, err := f.trav.Ancestors(t.Context(), loner, 5)
	require.NoError(t, err)
	assert.NotNil(t, anc.Parents)
	assert.Empty(t, anc.Parents)

	data, err := json.Marshal(anc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"parents":[]`)

	desc, err := f.trav.Descendants(t.Context(), loner, 5)
	require.NoError(t, err)
	assert.NotNil(t, desc.Children)
	assert.Empty(t, desc.Children)

	_, err = f.trav.Ancestors(t.Context(), "missing", 3)
	require.ErrorIs(t, err, lineage.ErrNotFound)

	_, err = f.trav.Descendants(t.Context(), "missing", 3)
	require.ErrorIs(t, err, lineage.ErrNotFound)

	_, err = f.trav.FamilyChart(t.Context(), "missing", 3)
	require.ErrorIs(t, err, lineage.ErrNotFound)

	_, err = f.trav.Ancestors(t.Context(), loner, -1)
	require.ErrorIs(t, err, lineage.ErrInvalidArgument)

	_, err = f.trav.FamilyChart(t.Context(), loner, 0)
	require.ErrorIs(t, err, lineage.ErrInvalidArgument)
}

func TestMaxGenerationsClamp(t *testing.T) {
	t.Parallel()

	f := newFixture(t, graph.WithMaxGenerations(1))
	fam := newFamily(t, f)

	tree, err := f.trav.Ancestors(t.Context(), fam.baby, 100)
	require.NoError(t, err)

	want := shape{Name: "Baby", Kids: []shape{{Name: "Kid"}}}
	if diff := cmp.Diff(want, ancestorShape(tree)); diff != "" {
		t.Errorf("ancestors mismatch (-want +got):\n%s", diff)
	}
}

func TestFamilyChart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	fam := newFamily(t, f)

	chart, err := f.trav.FamilyChart(t.Context(), fam.mum, 3)
	require.NoError(t, err)

	want := shape{Name: "Mum", Spouses: []string{"Dad"}, Kids: []shape{
		{Name: "Kid", Kids: []shape{{Name: "Baby"}}},
		{Name: "Kid2"},
	}}
	if diff := cmp.Diff(want, chartShape(chart)); diff != "" {
		t.Errorf("chart mismatch (-want +got):\n%s", diff)
	}

	parents := make([]string, 0, len(chart.Parents))
	for _, p := range chart.Parents {
		parents = append(parents, p.Person.Name.Given)
	}

	assert.Equal(t, []string{"Gran", "Grandpa"}, parents)

	// Parents are listed at the root only.
	for _, c := range chart.Children {
		assert.Empty(t, c.Parents)
	}

	shallow, err := f.trav.FamilyChart(t.Context(), fam.mum, 1)
	require.NoError(t, err)
	assert.Empty(t, shallow.Children)
	assert.Len(t, shallow.Spouses, 1)
}

func TestFamilyChartRepeatsPersonAcrossBranches(t *testing.T) {
	t.Parallel()

	f := newFixture(t, graph.WithMaxBiologicalParents(0))
	root := f.person(t, "Root")
	left := f.person(t, "Left")
	right := f.person(t, "Right")
	shared := f.person(t, "Shared")

	f.parent(t, root, left)
	f.parent(t, root, right)
	f.parent(t, left, shared)
	f.parent(t, right, shared)

	chart, err := f.trav.FamilyChart(t.Context(), root, 5)
	require.NoError(t, err)

	want := shape{Name: "Root", Kids: []shape{
		{Name: "Left", Kids: []shape{{Name: "Shared"}}},
		{Name: "Right", Kids: []shape{{Name: "Shared"}}},
	}}
	if diff := cmp.Diff(want, chartShape(chart)); diff != "" {
		t.Errorf("chart mismatch (-want +got):\n%s", diff)
	}
}

func TestTraversalSurvivesInjectedCycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, graph.WithConcurrency(2))
	a := f.person(t, "A")
	b := f.person(t, "B")
	c := f.person(t, "C")

	// A -> B -> C -> A, written around the engine.
	f.inject(t, lineage.RelationshipParentChild, a, b)
	f.inject(t, lineage.RelationshipParentChild, b, c)
	f.inject(t, lineage.RelationshipParentChild, c, a)

	chart, err := f.trav.FamilyChart(t.Context(), a, 25)
	require.NoError(t, err)

	want := shape{Name: "A", Kids: []shape{{Name: "B", Kids: []shape{{Name: "C"}}}}}
	if diff := cmp.Diff(want, chartShape(chart)); diff != "" {
		t.Errorf("chart mismatch (-want +got):\n%s", diff)
	}

	anc, err := f.trav.Ancestors(t.Context(), a, 25)
	require.NoError(t, err)

	wantAnc := shape{Name: "A", Kids: []shape{{Name: "C", Kids: []shape{{Name: "B"}}}}}
	if diff := cmp.Diff(wantAnc, ancestorShape(anc)); diff != "" {
		t.Errorf("ancestors mismatch (-want +got):\n%s", diff)
	}

	desc, err := f.trav.Descendants(t.Context(), b, 25)
	require.NoError(t, err)

	wantDesc := shape{Name: "B", Kids: []shape{{Name: "C", Kids: []shape{{Name: "A"}}}}}
	if diff := cmp.Diff(wantDesc, descendantShape(desc)); diff != "" {
		t.Errorf("descendants mismatch (-want +got):\n%s", diff)
	}
}

func TestTraversalSkipsDanglingEdges(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	kid := f.person(t, "Kid")
	mum := f.person(t, "Mum")
	f.parent(t, mum, kid)
	f.inject(t, lineage.RelationshipParentChild, "ghost", kid)
	f.inject(t, lineage.RelationshipSpousal, kid, "ghost")

	anc, err := f.trav.Ancestors(t.Context(), kid, 3)
	require.NoError(t, err)

	want := shape{Name: "Kid", Kids: []shape{{Name: "Mum"}}}
	if diff := cmp.Diff(want, ancestorShape(anc)); diff != "" {
		t.Errorf("ancestors mismatch (-want +got):\n%s", diff)
	}

	chart, err := f.trav.FamilyChart(t.Context(), kid, 2)
	require.NoError(t, err)
	assert.Empty(t, chart.Spouses)
	require.Len(t, chart.Parents, 1)
	assert.Equal(t, mum, chart.Parents[0].Person.ID)
}
