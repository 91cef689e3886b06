package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fcanata061/mbuild/internal/archive"
	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "pkgs"), filepath.Join(dir, "installed.index"))
}

func TestSaveAndLookupRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	meta := archive.Meta{Name: "hello", Version: "1.0", Release: "1", Arch: "amd64", Prefix: "/usr"}
	manifest := &archive.Manifest{Entries: []string{"./usr/bin/hello"}}

	require.NoError(t, r.Save(Record{Meta: meta, Manifest: manifest}, ""))

	rec, err := r.Lookup("hello")
	require.NoError(t, err)
	require.Equal(t, meta, rec.Meta)
	require.Equal(t, []string{"./usr/bin/hello"}, rec.Manifest.Entries)
}

func TestLookupMissingIsNotInstalledError(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Lookup("nope")
	require.Error(t, err)
	var merr *mbuilderr.Error
	require.True(t, errors.As(err, &merr))
	require.Equal(t, mbuilderr.NotInstalled, merr.Kind)
}

func TestSaveAppendsIndex(t *testing.T) {
	r := newTestRegistry(t)
	meta := archive.Meta{Name: "hello", Version: "1.0", Release: "1", Arch: "amd64"}
	manifest := &archive.Manifest{}

	require.NoError(t, r.Save(Record{Meta: meta, Manifest: manifest}, ""))

	data, err := os.ReadFile(r.IndexPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello-1.0-1")
}

func TestDeleteRemovesRecord(t *testing.T) {
	r := newTestRegistry(t)
	meta := archive.Meta{Name: "hello", Version: "1.0", Release: "1"}
	require.NoError(t, r.Save(Record{Meta: meta, Manifest: &archive.Manifest{}}, ""))

	require.NoError(t, r.Delete("hello"))
	_, err := r.Lookup("hello")
	require.Error(t, err, "expected lookup to fail after delete")
}

func TestSaveWithPostRemoveHook(t *testing.T) {
	r := newTestRegistry(t)
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "post-remove.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\necho bye\n"), 0o755))

	meta := archive.Meta{Name: "hello", Version: "1.0", Release: "1"}
	require.NoError(t, r.Save(Record{Meta: meta, Manifest: &archive.Manifest{}}, scriptPath))

	rec, err := r.Lookup("hello")
	require.NoError(t, err)
	require.True(t, rec.HasPostRemove)
}
