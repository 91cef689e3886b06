// Package remove uninstalls a registered package from a target root,
// running its post-remove hooks and pruning its registry entry.
package remove

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fcanata061/mbuild/internal/log"
	"github.com/fcanata061/mbuild/internal/registry"
)

// Remover removes packages from root, consulting and updating reg.
type Remover struct {
	Root     string
	HooksDir string // <hooks>/post-remove, for the global hook
	Reg      *registry.Registry
	Logger   log.Logger
}

// New returns a Remover.
func New(root, hooksDir string, reg *registry.Registry, logger log.Logger) *Remover {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Remover{Root: root, HooksDir: hooksDir, Reg: reg, Logger: logger}
}

// Remove runs the seven remove steps for name. Returns a NotInstalledError
// (propagated from the registry lookup) if name is not registered.
func (r *Remover) Remove(name string) error {
	rec, err := r.Reg.Lookup(name)
	if err != nil {
		return err
	}

	// Step 2: unlink manifest entries in reverse order; swallow failures.
	dirSet := map[string]bool{}
	for _, entry := range rec.Manifest.Reversed() {
		relPath := strings.TrimPrefix(entry, "./")
		target := filepath.Join(r.Root, relPath)
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			r.Logger.Warn("failed to unlink payload entry", "path", target, "error", err)
		}
		for dir := filepath.Dir(relPath); dir != "." && dir != "/"; dir = filepath.Dir(dir) {
			dirSet[dir] = true
		}
	}

	// Step 3: rmdir directory prefixes, reverse-sorted, non-empty kept silently.
	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, d := range dirs {
		os.Remove(filepath.Join(r.Root, d)) // no-op if non-empty or missing
	}

	// Step 4: global post-remove hook.
	runHookIfExecutable(filepath.Join(r.HooksDir, name), name, r.Root, r.Logger)

	// Step 5: package post-remove hook.
	if rec.HasPostRemove {
		runHookIfExecutable(r.Reg.PostRemovePath(name), name, r.Root, r.Logger)
	}

	// Step 6: delete registry directory.
	if err := r.Reg.Delete(name); err != nil {
		r.Logger.Warn("failed to delete registry entry", "package", name, "error", err)
	}

	// Step 7: best-effort ldconfig.
	if ldconfig, err := exec.LookPath("ldconfig"); err == nil {
		if out, err := exec.Command(ldconfig).CombinedOutput(); err != nil {
			r.Logger.Warn("ldconfig failed", "output", string(out), "error", err)
		}
	}

	r.Logger.Info("removed package", "package", name)
	return nil
}

func runHookIfExecutable(path, name, root string, logger log.Logger) {
	info, err := os.Stat(path)
	if err != nil || info.Mode()&0o111 == 0 {
		return
	}
	cmd := exec.Command(path, name, root)
	if out, err := cmd.CombinedOutput(); err != nil {
		logger.Warn("post-remove hook failed", "path", path, "output", string(out), "error", err)
	}
}
