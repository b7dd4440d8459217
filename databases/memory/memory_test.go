package memory_test

import (
	"testing"

	"github.com/rlch/lineage"
	"github.com/rlch/lineage/databases/memory"
	"github.com/rlch/lineage/databases/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(*testing.T) lineage.Store { return memory.New() })
}

func TestRegistered(t *testing.T) {
	t.Parallel()

	s, err := lineage.NewStore(&lineage.StoreConfig{Memory: &lineage.MemoryConfig{}})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)
	require.NoError(t, s.Close())
}

func TestStoreCopies(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	s := memory.New()

	p, err := s.CreatePerson(ctx, &lineage.Person{Name: lineage.Name{Given: "Ann"}, Sex: lineage.SexFemale})
	require.NoError(t, err)

	p.Name.Given = "Changed"

	got, err := s.GetPerson(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name.Given)
}
