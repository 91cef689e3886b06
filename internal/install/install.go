// Package install installs a .ppkg package archive into a target root and
// registers it, per the seven-step installer design.
package install

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/fcanata061/mbuild/internal/archive"
	"github.com/fcanata061/mbuild/internal/log"
	"github.com/fcanata061/mbuild/internal/mbuilderr"
	"github.com/fcanata061/mbuild/internal/registry"
)

// Installer installs packages into root, recording them in reg.
type Installer struct {
	Root   string
	Reg    *registry.Registry
	Logger log.Logger
}

// New returns an Installer.
func New(root string, reg *registry.Registry, logger log.Logger) *Installer {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Installer{Root: root, Reg: reg, Logger: logger}
}

// Install runs the seven install steps against archivePath.
func (in *Installer) Install(archivePath string) error {
	tmpDir, err := os.MkdirTemp("", "mbuild-install-*")
	if err != nil {
		return mbuilderr.Wrap(mbuilderr.Io, "create temp directory", err)
	}
	defer os.RemoveAll(tmpDir)

	// Step 1: extract the archive into a private temp directory.
	if err := archive.Unpack(archivePath, tmpDir); err != nil {
		return err
	}

	// Step 2: read CONTROL/meta.
	metaData, err := os.ReadFile(filepath.Join(tmpDir, "CONTROL", "meta"))
	if err != nil {
		return mbuilderr.Wrap(mbuilderr.Pack, "read CONTROL/meta", err).WithField(archivePath)
	}
	meta := archive.ParseMeta(metaData)

	manifestData, err := os.ReadFile(filepath.Join(tmpDir, "CONTROL", "manifest"))
	if err != nil {
		return mbuilderr.Wrap(mbuilderr.Pack, "read CONTROL/manifest", err).WithField(archivePath)
	}
	manifest := archive.ParseManifest(manifestData)

	// Step 3: stream every top-level entry except CONTROL into the target root.
	if err := copyPayload(tmpDir, in.Root); err != nil {
		return mbuilderr.Wrap(mbuilderr.Io, "install payload to target root", err).WithField(meta.Name)
	}

	// Step 4: register meta, manifest, and optional post-remove hook.
	postRemoveSrc := filepath.Join(tmpDir, "CONTROL", "post-remove")
	if _, err := os.Stat(postRemoveSrc); err != nil {
		postRemoveSrc = ""
	}
	rec := registry.Record{Meta: meta, Manifest: manifest, HasPostRemove: postRemoveSrc != ""}
	// Step 5 (installed.index append) happens inside Save, which returns
	// its error; like any Save error it is logged here as a warning and
	// does not fail the install.
	if err := in.Reg.Save(rec, postRemoveSrc); err != nil {
		in.Logger.Warn("failed to update registry", "package", meta.Name, "error", err)
	}

	// Step 6: best-effort ldconfig.
	if ldconfig, err := exec.LookPath("ldconfig"); err == nil {
		cmd := exec.Command(ldconfig)
		if out, err := cmd.CombinedOutput(); err != nil {
			in.Logger.Warn("ldconfig failed", "output", string(out), "error", err)
		}
	}

	// Step 7: temp directory cleanup happens via the deferred RemoveAll.
	in.Logger.Info("installed package", "package", meta.FullName())
	return nil
}

// copyPayload copies every entry of tmpDir except "CONTROL" into root,
// preserving file modes and symlinks.
func copyPayload(tmpDir, root string) error {
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == "CONTROL" {
			continue
		}
		if err := copyTree(filepath.Join(tmpDir, e.Name()), filepath.Join(root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		os.Remove(dst)
		return os.Symlink(target, dst)
	}

	if info.IsDir() {
		if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
			return err
		}
		children, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := copyTree(filepath.Join(src, c.Name()), filepath.Join(dst, c.Name())); err != nil {
				return err
			}
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return err
	}
	modTime := info.ModTime()
	os.Chtimes(dst, modTime, modTime)
	return nil
}
