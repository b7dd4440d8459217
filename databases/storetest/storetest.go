// Package storetest checks that a lineage.Store honours the store contract.
// Every backend's tests run it against a fresh store.
package storetest

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rlch/lineage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) lineage.Store

// Run runs the conformance suite.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("PersonRoundTrip", func(t *testing.T) { testPersonRoundTrip(t, newStore(t)) })
	t.Run("PersonNotFound", func(t *testing.T) { testPersonNotFound(t, newStore(t)) })
	t.Run("ListPersons", func(t *testing.T) { testListPersons(t, newStore(t)) })
	t.Run("RelationshipRoundTrip", func(t *testing.T) { testRelationshipRoundTrip(t, newStore(t)) })
	t.Run("FindRelationships", func(t *testing.T) { testFindRelationships(t, newStore(t)) })
	t.Run("UpdateRelationship", func(t *testing.T) { testUpdateRelationship(t, newStore(t)) })
	t.Run("DeleteRelationship", func(t *testing.T) { testDeleteRelationship(t, newStore(t)) })
}

func samplePerson(scope, given string) *lineage.Person {
	return &lineage.Person{
		Scope: scope,
		Name:  lineage.Name{Given: given, Family: "Smith", Nickname: "Jack"},
		Sex:   lineage.SexMale,
		Birth: &lineage.Event{
			Type:      lineage.EventBirth,
			Date:      lineage.NewDate(1900, time.January, 1),
			Estimated: true,
			Place:     "Boston",
		},
		Death: &lineage.Event{
			Type:  lineage.EventDeath,
			Date:  &lineage.Date{Year: 1970, Precision: lineage.PrecisionYear},
			Cause: "old age",
		},
		Notes:       "first line\nsecond line",
		Identifiers: []lineage.Identifier{{Type: lineage.IdentifierEmail, Value: "john@example.com"}},
	}
}

func mustPerson(t *testing.T, s lineage.Store, scope, given string) *lineage.Person {
	t.Helper()

	p, err := s.CreatePerson(t.Context(), samplePerson(scope, given))
	require.NoError(t, err)

	return p
}

func mustRelationship(t *testing.T, s lineage.Store, r *lineage.Relationship) *lineage.Relationship {
	t.Helper()

	created, err := s.CreateRelationship(t.Context(), r)
	require.NoError(t, err)

	return created
}

func personIDs(ps []*lineage.Person) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}

	return out
}

func relationshipIDs(rs []*lineage.Relationship) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}

	return out
}

func testPersonRoundTrip(t *testing.T, s lineage.Store) {
	ctx := t.Context()

	want := samplePerson("tree", "John")

	created, err := s.CreatePerson(ctx, want)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Empty(t, want.ID, "input must not be mutated")

	want.ID = created.ID
	if diff := cmp.Diff(want, created); diff != "" {
		t.Errorf("created person mismatch (-want +got):\n%s", diff)
	}

	got, err := s.GetPerson(ctx, created.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stored person mismatch (-want +got):\n%s", diff)
	}

	// A caller-supplied ID is kept.
	explicit := samplePerson("tree", "Jane")
	explicit.ID = "explicit-id"

	created, err = s.CreatePerson(ctx, explicit)
	require.NoError(t, err)
	assert.Equal(t, "explicit-id", created.ID)
}

func testPersonNotFound(t *testing.T, s lineage.Store) {
	ctx := t.Context()

	_, err := s.GetPerson(ctx, "missing")
	require.ErrorIs(t, err, lineage.ErrNotFound)

	require.ErrorIs(t, s.DeletePerson(ctx, "missing"), lineage.ErrNotFound)

	_, err = s.GetRelationship(ctx, "missing")
	require.ErrorIs(t, err, lineage.ErrNotFound)

	require.ErrorIs(t, s.DeleteRelationship(ctx, "missing"), lineage.ErrNotFound)

	_, err = s.UpdateRelationship(ctx, "missing", lineage.RelationshipAttrs{})
	require.ErrorIs(t, err, lineage.ErrNotFound)

	p := mustPerson(t, s, "tree", "Gone")
	require.NoError(t, s.DeletePerson(ctx, p.ID))

	_, err = s.GetPerson(ctx, p.ID)
	require.ErrorIs(t, err, lineage.ErrNotFound)
}

func testListPersons(t *testing.T, s lineage.Store) {
	ctx := t.Context()

	a := mustPerson(t, s, "one", "A")
	b := mustPerson(t, s, "two", "B")
	c := mustPerson(t, s, "one", "C")

	got, err := s.ListPersons(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, c.ID}, personIDs(got))

	all, err := s.ListPersons(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, personIDs(all))

	none, err := s.ListPersons(ctx, "three")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testRelationshipRoundTrip(t *testing.T, s lineage.Store) {
	ctx := t.Context()

	a := mustPerson(t, s, "tree", "A")
	b := mustPerson(t, s, "tree", "B")

	want := &lineage.Relationship{
		Scope:     "tree",
		Type:      lineage.RelationshipSpousal,
		Person1ID: a.ID,
		Person2ID: b.ID,
		RelationshipAttrs: lineage.RelationshipAttrs{
			Status:    lineage.StatusDivorced,
			StartDate: lineage.NewDate(1920, time.June, 1),
			Events: []lineage.Event{
				{Type: lineage.EventMarriage, Date: lineage.NewDate(1920, time.June, 1), Place: "Paris"},
				{Type: lineage.EventDivorce, Date: &lineage.Date{Year: 1930, Precision: lineage.PrecisionYear}, Estimated: true},
			},
			Notes: "second marriage",
		},
	}

	created := mustRelationship(t, s, want)
	require.NotEmpty(t, created.ID)

	want.ID = created.ID
	if diff := cmp.Diff(want, created); diff != "" {
		t.Errorf("created relationship mismatch (-want +got):\n%s", diff)
	}

	got, err := s.GetRelationship(ctx, created.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stored relationship mismatch (-want +got):\n%s", diff)
	}
}

func testFindRelationships(t *testing.T, s lineage.Store) {
	ctx := t.Context()

	mum := mustPerson(t, s, "tree", "Mum")
	dad := mustPerson(t, s, "tree", "Dad")
	kid := mustPerson(t, s, "tree", "Kid")
	other := mustPerson(t, s, "elsewhere", "Other")

	spouses := mustRelationship(t, s, &lineage.Relationship{
		Scope: "tree", Type: lineage.RelationshipSpousal, Person1ID: dad.ID, Person2ID: mum.ID,
	})
	mumKid := mustRelationship(t, s, &lineage.Relationship{
		Scope: "tree", Type: lineage.RelationshipParentChild, Person1ID: mum.ID, Person2ID: kid.ID,
		RelationshipAttrs: lineage.RelationshipAttrs{ParentalRole: lineage.RoleBiological},
	})
	dadKid := mustRelationship(t, s, &lineage.Relationship{
		Scope: "tree", Type: lineage.RelationshipParentChild, Person1ID: dad.ID, Person2ID: kid.ID,
		RelationshipAttrs: lineage.RelationshipAttrs{ParentalRole: lineage.RoleAdoptive},
	})
	elsewhere := mustRelationship(t, s, &lineage.Relationship{
		Scope: "elsewhere", Type: lineage.RelationshipSibling, Person1ID: other.ID, Person2ID: kid.ID,
	})

	tests := []struct {
		name   string
		filter lineage.RelationshipFilter
		want   []string
	}{
		{"everything", lineage.RelationshipFilter{}, []string{spouses.ID, mumKid.ID, dadKid.ID, elsewhere.ID}},
		{"scope", lineage.RelationshipFilter{Scope: "tree"}, []string{spouses.ID, mumKid.ID, dadKid.ID}},
		{"type", lineage.RelationshipFilter{Type: lineage.RelationshipParentChild}, []string{mumKid.ID, dadKid.ID}},
		{"parents of kid", lineage.ParentsOf(kid.ID), []string{mumKid.ID, dadKid.ID}},
		{"children of dad", lineage.ChildrenOf(dad.ID), []string{dadKid.ID}},
		{"spouses of mum", lineage.SpousesOf(mum.ID), []string{spouses.ID}},
		{"spouses of dad", lineage.SpousesOf(dad.ID), []string{spouses.ID}},
		{"involving kid", lineage.RelationshipFilter{Involving: kid.ID}, []string{mumKid.ID, dadKid.ID, elsewhere.ID}},
		{"involving kid in tree", lineage.RelationshipFilter{Scope: "tree", Involving: kid.ID}, []string{mumKid.ID, dadKid.ID}},
		{"exact pair", lineage.RelationshipFilter{Person1ID: mum.ID, Person2ID: kid.ID}, []string{mumKid.ID}},
		{"reversed pair", lineage.RelationshipFilter{Person1ID: kid.ID, Person2ID: mum.ID}, nil},
		{"no match", lineage.RelationshipFilter{Involving: "missing"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindRelationships(ctx, tt.filter)
			require.NoError(t, err)

			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}

			assert.Equal(t, tt.want, relationshipIDs(got))
		})
	}

	got, err := s.FindRelationships(ctx, lineage.ChildrenOf(dad.ID))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, lineage.RoleAdoptive, got[0].ParentalRole)
}

func testUpdateRelationship(t *testing.T, s lineage.Store) {
	ctx := t.Context()

	a := mustPerson(t, s, "tree", "A")
	b := mustPerson(t, s, "tree", "B")

	r := mustRelationship(t, s, &lineage.Relationship{
		Scope: "tree", Type: lineage.RelationshipSpousal, Person1ID: a.ID, Person2ID: b.ID,
		RelationshipAttrs: lineage.RelationshipAttrs{Status: lineage.StatusMarried, Notes: "old"},
	})

	attrs := lineage.RelationshipAttrs{
		Status:  lineage.StatusDivorced,
		EndDate: lineage.NewDate(1950, time.March, 3),
		Events:  []lineage.Event{{Type: lineage.EventDivorce, Date: lineage.NewDate(1950, time.March, 3)}},
	}

	updated, err := s.UpdateRelationship(ctx, r.ID, attrs)
	require.NoError(t, err)

	want := r.Clone()
	want.RelationshipAttrs = attrs

	if diff := cmp.Diff(want, updated); diff != "" {
		t.Errorf("updated relationship mismatch (-want +got):\n%s", diff)
	}

	got, err := s.GetRelationship(ctx, r.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stored relationship mismatch (-want +got):\n%s", diff)
	}
}

func testDeleteRelationship(t *testing.T, s lineage.Store) {
	ctx := t.Context()

	a := mustPerson(t, s, "tree", "A")
	b := mustPerson(t, s, "tree", "B")

	keep := mustRelationship(t, s, &lineage.Relationship{
		Scope: "tree", Type: lineage.RelationshipSibling, Person1ID: a.ID, Person2ID: b.ID,
	})
	drop := mustRelationship(t, s, &lineage.Relationship{
		Scope: "tree", Type: lineage.RelationshipSpousal, Person1ID: b.ID, Person2ID: a.ID,
	})

	require.NoError(t, s.DeleteRelationship(ctx, drop.ID))

	_, err := s.GetRelationship(ctx, drop.ID)
	require.ErrorIs(t, err, lineage.ErrNotFound)

	got, err := s.FindRelationships(ctx, lineage.RelationshipFilter{Involving: a.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, relationshipIDs(got))

	// Deleting a person leaves its edges alone; cascading is the engine's job.
	require.NoError(t, s.DeletePerson(ctx, b.ID))

	_, err = s.GetRelationship(ctx, keep.ID)
	require.NoError(t, err)
}
