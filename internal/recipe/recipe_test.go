package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

func writeRecipe(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "recipe.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeRecipe(t, `
name = "zlib"
version = "1.3"
release = "2"

[[sources]]
url = "https://example.invalid/zlib-1.3.tar.gz"
hash = "deadbeef"

[phases.build]
command = "make -j$JOBS"
`)

	r, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "zlib", r.Name)
	require.Equal(t, "1.3", r.Version)
	require.Equal(t, "2", r.Release)
	require.Len(t, r.Sources, 1)
	require.NotEmpty(t, r.Sources[0].URL)
	require.Equal(t, "make -j$JOBS", r.Phases.Build.Command)
	require.True(t, r.Phases.Prepare.IsZero(), "prepare phase should be zero (unset)")
	require.Equal(t, "zlib-1.3-2", r.FullName())
}

func TestLoadMissingNameIsRecipeError(t *testing.T) {
	path := writeRecipe(t, `
version = "1.0"

[[sources]]
url = "https://example.invalid/x.tar.gz"
`)

	_, err := Load(path)
	require.Error(t, err)
	var merr *mbuilderr.Error
	require.True(t, errors.As(err, &merr), "expected *mbuilderr.Error, got %T", err)
	require.Equal(t, mbuilderr.Recipe, merr.Kind)
	require.Equal(t, "name", merr.Field)
}

func TestLoadMissingSourcesIsRecipeError(t *testing.T) {
	path := writeRecipe(t, `
name = "zlib"
version = "1.3"
`)

	_, err := Load(path)
	require.Error(t, err)
	var merr *mbuilderr.Error
	require.True(t, errors.As(err, &merr))
	require.Equal(t, "sources", merr.Field)
}

func TestFullNameDefaultsRelease(t *testing.T) {
	r := &Recipe{Name: "foo", Version: "2.0"}
	require.Equal(t, "foo-2.0-1", r.FullName())
}
