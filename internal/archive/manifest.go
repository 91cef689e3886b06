package archive

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

// Manifest is the ordered list of payload paths (relative to the stage
// root) a package installs, in the order they must be created on install
// and unlinked in reverse on remove.
type Manifest struct {
	Entries []string
}

// BuildManifest walks stageDir depth-first, pre-order, sorting each
// directory's children lexicographically before recursing — so the
// manifest is reproducible across platforms rather than an accident of
// os.ReadDir order. Only regular files and symlinks are listed, each as a
// "./"-prefixed path; directories are not manifest entries themselves.
func BuildManifest(stageDir string) (*Manifest, error) {
	m := &Manifest{}
	if err := walk(stageDir, "", m); err != nil {
		return nil, mbuilderr.Wrap(mbuilderr.Pack, "build manifest", err).WithField(stageDir)
	}
	return m, nil
}

func walk(dir, relPrefix string, m *Manifest) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		rel := e.Name()
		if relPrefix != "" {
			rel = relPrefix + "/" + e.Name()
		}
		if e.IsDir() {
			if err := walk(filepath.Join(dir, e.Name()), rel, m); err != nil {
				return err
			}
			continue
		}
		m.Entries = append(m.Entries, "./"+rel)
	}
	return nil
}

// Lines renders the manifest as one relative path per line.
func (m *Manifest) Lines() string {
	return strings.Join(m.Entries, "\n") + "\n"
}

// ParseManifest parses a manifest file's contents back into a Manifest.
func ParseManifest(data []byte) *Manifest {
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	m := &Manifest{}
	for _, l := range lines {
		if l != "" {
			m.Entries = append(m.Entries, l)
		}
	}
	return m
}

// Reversed returns the manifest entries in reverse order, the order the
// remover unlinks payload entries in.
func (m *Manifest) Reversed() []string {
	out := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		out[len(m.Entries)-1-i] = e
	}
	return out
}
