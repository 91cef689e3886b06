// Package registry is the on-disk database of installed packages: a
// directory-per-package store under <state>/pkgs/<name>/ plus an
// append-only install log.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fcanata061/mbuild/internal/archive"
	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

// Registry is the installed-package store rooted at pkgsDir, with its
// install log at indexPath.
type Registry struct {
	PkgsDir   string
	IndexPath string
}

// New returns a Registry rooted at the given paths.
func New(pkgsDir, indexPath string) *Registry {
	return &Registry{PkgsDir: pkgsDir, IndexPath: indexPath}
}

// Record is one installed package's on-disk record.
type Record struct {
	Meta          archive.Meta
	Manifest      *archive.Manifest
	HasPostRemove bool
}

func (r *Registry) dir(name string) string {
	return filepath.Join(r.PkgsDir, name)
}

// Save writes rec's meta, manifest, and optional post-remove hook to
// <pkgsDir>/<name>/, using temp-file-then-rename for each file so a crash
// mid-write never leaves a half-written meta or manifest in place.
func (r *Registry) Save(rec Record, postRemoveSrc string) error {
	dir := r.dir(rec.Meta.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return mbuilderr.Wrap(mbuilderr.Io, "create registry directory", err).WithField(dir)
	}

	if err := atomicWrite(filepath.Join(dir, "meta"), []byte(rec.Meta.Encode()), 0o644); err != nil {
		return mbuilderr.Wrap(mbuilderr.Io, "write registry meta", err).WithField(rec.Meta.Name)
	}
	if err := atomicWrite(filepath.Join(dir, "manifest"), []byte(rec.Manifest.Lines()), 0o644); err != nil {
		return mbuilderr.Wrap(mbuilderr.Io, "write registry manifest", err).WithField(rec.Meta.Name)
	}

	if postRemoveSrc != "" {
		data, err := os.ReadFile(postRemoveSrc)
		if err != nil {
			return mbuilderr.Wrap(mbuilderr.Io, "read post-remove hook", err).WithField(postRemoveSrc)
		}
		if err := atomicWrite(filepath.Join(dir, "post-remove"), data, 0o755); err != nil {
			return mbuilderr.Wrap(mbuilderr.Io, "write registry post-remove hook", err).WithField(rec.Meta.Name)
		}
	}

	return r.appendIndex(rec.Meta.FullName())
}

// Lookup returns the registry record for name, or a NotInstalledError if
// no such package is registered.
func (r *Registry) Lookup(name string) (*Record, error) {
	dir := r.dir(name)
	metaData, err := os.ReadFile(filepath.Join(dir, "meta"))
	if err != nil {
		return nil, mbuilderr.Newf(mbuilderr.NotInstalled, "package %q is not installed", name).WithField(name)
	}
	manifestData, err := os.ReadFile(filepath.Join(dir, "manifest"))
	if err != nil {
		return nil, mbuilderr.Wrap(mbuilderr.Io, "read registry manifest", err).WithField(name)
	}

	rec := &Record{
		Meta:     archive.ParseMeta(metaData),
		Manifest: archive.ParseManifest(manifestData),
	}
	if _, err := os.Stat(filepath.Join(dir, "post-remove")); err == nil {
		rec.HasPostRemove = true
	}
	return rec, nil
}

// PostRemovePath returns the path to name's installed post-remove hook, if
// any.
func (r *Registry) PostRemovePath(name string) string {
	return filepath.Join(r.dir(name), "post-remove")
}

// Delete removes name's registry directory entirely.
func (r *Registry) Delete(name string) error {
	if err := os.RemoveAll(r.dir(name)); err != nil {
		return mbuilderr.Wrap(mbuilderr.Io, "delete registry directory", err).WithField(name)
	}
	return nil
}

// List enumerates every installed package name.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.PkgsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, mbuilderr.Wrap(mbuilderr.Io, "list registry", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// appendIndex appends a "<iso-timestamp> <fullname>" line to the
// append-only install log. Best-effort: callers treat a failure here as
// non-fatal to the install itself, per the error-handling design's
// "best-effort writes" list.
func (r *Registry) appendIndex(fullName string) error {
	if err := os.MkdirAll(filepath.Dir(r.IndexPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(r.IndexPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s %s\n", time.Now().UTC().Format(time.RFC3339), fullName)
	return err
}

func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
