package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	base := t.TempDir()
	t.Setenv(EnvBase, base)
	for _, e := range []string{EnvRoot, EnvPrefix, EnvJobs, EnvPkgComp, EnvToolchain, EnvStrip, EnvDownloadRetries} {
		t.Setenv(e, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, base, cfg.Base)
	require.Equal(t, filepath.Join(base, "sources"), cfg.Sources)
	require.Equal(t, DefaultRoot, cfg.Root)
	require.Equal(t, DefaultPrefix, cfg.Prefix)
	require.Equal(t, DefaultPkgComp, cfg.PkgComp)
	require.Equal(t, DefaultRetries, cfg.DownloadRetries)
	require.True(t, cfg.Strip, "Strip default should be true")
}

func TestLoadJobsClamped(t *testing.T) {
	base := t.TempDir()
	t.Setenv(EnvBase, base)
	t.Setenv(EnvJobs, "9999")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, maxJobs, cfg.Jobs)
}

func TestLoadJobsInvalidFallsBackToDefault(t *testing.T) {
	base := t.TempDir()
	t.Setenv(EnvBase, base)
	t.Setenv(EnvJobs, "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.GreaterOrEqual(t, cfg.Jobs, minJobs)
	require.LessOrEqual(t, cfg.Jobs, maxJobs)
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	t.Setenv(EnvBase, base)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.Sources, cfg.Build, cfg.Stage, cfg.Packages, cfg.Logs, cfg.State, cfg.Recipes, cfg.Hooks} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir(), "expected directory %s to exist", dir)
	}

	// Idempotent: calling twice must not error.
	require.NoError(t, cfg.EnsureDirectories())
}

func TestBuildDir(t *testing.T) {
	base := t.TempDir()
	t.Setenv(EnvBase, base)
	cfg, err := Load()
	require.NoError(t, err)

	got := cfg.BuildDir("zlib", "1.3")
	want := filepath.Join(cfg.Build, "zlib-1.3")
	require.Equal(t, want, got)
}
