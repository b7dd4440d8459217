package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rlch/lineage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const family = `0 HEAD
1 SOUR TESTER
1 CHAR UTF-8
0 @I1@ INDI
1 NAME John /Smith/
1 SEX M
0 @I2@ INDI
1 NAME Jane /Doe/
1 SEX F
0 @I3@ INDI
1 NAME Kid /Smith/
1 BIRT
2 DATE 12 MAR 2001
0 @F1@ FAM
1 HUSB @I1@
1 WIFE @I2@
1 MARR
2 DATE 2000
1 CHIL @I3@
0 TRLR
`

// workspace writes a config pointing at a fresh SQLite file and returns its
// path.
func workspace(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	config := filepath.Join(dir, ".lineage.yaml")
	db := filepath.Join(dir, "tree.db")

	require.NoError(t, os.WriteFile(config, []byte("store:\n  sqlite:\n    path: "+db+"\n"), 0o600))

	return dir, config
}

func run(t *testing.T, config string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard

	err := app.Run(t.Context(), append([]string{"lineage", "--config", config}, args...))

	return out.String(), err
}

func importFamily(t *testing.T, dir, config string) map[string]*lineage.Person {
	t.Helper()

	gedDir := filepath.Join(dir, "trees")
	require.NoError(t, os.MkdirAll(gedDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(gedDir, "smith.ged"), []byte(family), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(gedDir, "notes.txt"), []byte("not a tree"), 0o600))

	out, err := run(t, config, "import", "--scope", "smith", gedDir)
	require.NoError(t, err)
	assert.Contains(t, out, "smith.ged: 3 individuals, 1 families, 3 relationships")
	assert.Contains(t, out, "source:     TESTER")
	assert.NotContains(t, out, "notes.txt")

	out, err = run(t, config, "list", "--scope", "smith", "--json")
	require.NoError(t, err)

	var people []*lineage.Person
	require.NoError(t, json.Unmarshal([]byte(out), &people))
	require.Len(t, people, 3)

	byName := make(map[string]*lineage.Person, len(people))
	for _, p := range people {
		byName[p.Name.Given] = p
	}

	return byName
}

func TestImportAndViews(t *testing.T) {
	t.Parallel()

	dir, config := workspace(t)
	people := importFamily(t, dir, config)
	kid, john, jane := people["Kid"], people["John"], people["Jane"]

	t.Run("ancestors", func(t *testing.T) {
		out, err := run(t, config, "ancestors", kid.ID)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "Kid Smith (2001-) ["+kid.ID+"]", lines[0])
		assert.Contains(t, out, "John Smith ["+john.ID+"]")
		assert.Contains(t, out, "Jane Doe ["+jane.ID+"]")
	})

	t.Run("descendants as JSON", func(t *testing.T) {
		out, err := run(t, config, "descendants", "--json", john.ID)
		require.NoError(t, err)

		var tree struct {
			Children []struct {
				Person lineage.Person `json:"person"`
			} `json:"children"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &tree))
		require.Len(t, tree.Children, 1)
		assert.Equal(t, kid.ID, tree.Children[0].Person.ID)
	})

	t.Run("chart", func(t *testing.T) {
		out, err := run(t, config, "chart", "--generations", "2", john.ID)
		require.NoError(t, err)
		assert.Contains(t, out, "John Smith ["+john.ID+"] = Jane Doe ["+jane.ID+"] <married>")
		assert.Contains(t, out, "Kid Smith")
	})

	t.Run("list text", func(t *testing.T) {
		out, err := run(t, config, "list", "--scope", "smith")
		require.NoError(t, err)
		assert.Equal(t, 3, strings.Count(out, "\n"))
	})

	t.Run("other scope is empty", func(t *testing.T) {
		out, err := run(t, config, "list", "--scope", "jones")
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestExport(t *testing.T) {
	t.Parallel()

	dir, config := workspace(t)
	importFamily(t, dir, config)

	out, err := run(t, config, "export", "--scope", "smith")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "0 HEAD\n"))
	assert.True(t, strings.HasSuffix(out, "0 TRLR\n"))
	assert.Contains(t, out, "1 NAME Kid /Smith/\n")
	assert.Contains(t, out, "1 CHIL @I3@\n")

	path := filepath.Join(dir, "out.ged")
	_, err = run(t, config, "export", "--scope", "smith", "--out", path, "--exclude", `Given == "Kid"`)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Kid")
	assert.NotContains(t, string(data), "CHIL")
	assert.Contains(t, string(data), "1 HUSB @I1@\n")
}

func TestLinkAndRemove(t *testing.T) {
	t.Parallel()

	dir, config := workspace(t)
	people := importFamily(t, dir, config)
	kid, john := people["Kid"], people["John"]

	_, err := run(t, config, "link", kid.ID, john.ID)
	require.ErrorIs(t, err, lineage.ErrCyclicRelationship)

	_, err = run(t, config, "link", "--type", "spousal", john.ID, john.ID)
	require.ErrorIs(t, err, lineage.ErrInvalidRelationship)

	out, err := run(t, config, "link", "--json", "--type", "sibling", kid.ID, people["Jane"].ID)
	require.NoError(t, err)

	var sibling lineage.Relationship
	require.NoError(t, json.Unmarshal([]byte(out), &sibling))
	assert.Equal(t, lineage.RelationshipSibling, sibling.Type)

	_, err = run(t, config, "unlink", sibling.ID)
	require.NoError(t, err)

	_, err = run(t, config, "unlink", sibling.ID)
	require.ErrorIs(t, err, lineage.ErrNotFound)

	_, err = run(t, config, "remove-person", kid.ID)
	require.NoError(t, err)

	out, err = run(t, config, "descendants", john.ID)
	require.NoError(t, err)
	assert.NotContains(t, out, "Kid")

	_, err = run(t, config, "ancestors", kid.ID)
	require.ErrorIs(t, err, lineage.ErrNotFound)
}

func TestCommandErrors(t *testing.T) {
	t.Parallel()

	dir, config := workspace(t)

	_, err := run(t, config, "import", t.TempDir())
	require.ErrorIs(t, err, ErrNoGedcomFiles)

	_, err = run(t, config, "import", filepath.Join(dir, "missing.ged"))
	require.ErrorIs(t, err, os.ErrNotExist)

	for _, args := range [][]string{{"ancestors"}, {"chart"}, {"link", "one"}, {"unlink"}, {"remove-person"}} {
		_, err = run(t, config, args...)
		require.ErrorIs(t, err, ErrMissingArgument, args)
	}

	_, err = run(t, filepath.Join(dir, "nope.yaml"), "list")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollectGedcomFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	write := func(rel string) string {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("0 HEAD\n0 TRLR\n"), 0o600))

		return path
	}

	top := write("b.ged")
	nested := write(filepath.Join("branch", "deep", "a.ged"))
	upper := write(filepath.Join("branch", "OLD.GED"))
	write("notes.txt")
	write(filepath.Join("scratch", "draft.ged"))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("scratch/\n"), 0o600))

	explicit := write("readme.txt")

	found, err := walkGedcom(root)
	require.NoError(t, err)
	assert.Equal(t, []string{top, upper, nested}, found)

	files, err := collectGedcomFiles([]string{explicit, root})
	require.NoError(t, err)
	assert.Equal(t, append([]string{explicit}, found...), files)

	for range 20 {
		again, err := walkGedcom(root)
		require.NoError(t, err)
		require.Equal(t, found, again)
	}
}

func TestBuildLogger(t *testing.T) {
	t.Parallel()

	logger, err := buildLogger("warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(1))

	logger, err = buildLogger("warn", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = buildLogger("loud", false)
	require.Error(t, err)
}
