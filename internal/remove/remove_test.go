package remove

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fcanata061/mbuild/internal/archive"
	"github.com/fcanata061/mbuild/internal/mbuilderr"
	"github.com/fcanata061/mbuild/internal/registry"
)

func setup(t *testing.T) (*Remover, string, *registry.Registry) {
	t.Helper()
	root := t.TempDir()
	regDir := t.TempDir()
	hooksDir := t.TempDir()
	reg := registry.New(filepath.Join(regDir, "pkgs"), filepath.Join(regDir, "installed.index"))

	binPath := filepath.Join(root, "usr", "bin", "hello")
	require.NoError(t, os.MkdirAll(filepath.Dir(binPath), 0o755))
	require.NoError(t, os.WriteFile(binPath, []byte("binary"), 0o755))

	meta := archive.Meta{Name: "hello", Version: "1.0", Release: "1", Arch: "amd64"}
	manifest := &archive.Manifest{Entries: []string{"./usr/bin/hello"}}
	require.NoError(t, reg.Save(registry.Record{Meta: meta, Manifest: manifest}, ""))

	return New(root, hooksDir, reg, nil), root, reg
}

func TestRemoveUnlinksAndDeregisters(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix permissions assumed")
	}
	r, root, reg := setup(t)

	require.NoError(t, r.Remove("hello"))

	_, err := os.Stat(filepath.Join(root, "usr", "bin", "hello"))
	require.True(t, os.IsNotExist(err), "expected payload file removed, stat err = %v", err)

	_, err = reg.Lookup("hello")
	require.Error(t, err, "expected registry entry removed")
}

func TestRemoveMissingPackageIsNotInstalledError(t *testing.T) {
	r, _, _ := setup(t)

	err := r.Remove("does-not-exist")
	require.Error(t, err)
	var merr *mbuilderr.Error
	require.True(t, errors.As(err, &merr))
	require.Equal(t, mbuilderr.NotInstalled, merr.Kind)
}

func TestRemoveRunsPostRemoveHooks(t *testing.T) {
	r, root, _ := setup(t)
	outPath := filepath.Join(root, "hook-output")

	script := "#!/bin/sh\necho \"$1 $2\" > " + outPath + "\n"
	hookPath := filepath.Join(r.HooksDir, "hello")
	require.NoError(t, os.WriteFile(hookPath, []byte(script), 0o755))

	require.NoError(t, r.Remove("hello"))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err, "expected hook output file")
	require.Equal(t, "hello "+root+"\n", string(data))
}
