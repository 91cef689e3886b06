package archive

import (
	"fmt"
	"strings"
)

// Meta is CONTROL/meta: newline-delimited key=value pairs. The five
// required keys are name, version, release, arch, prefix; description and
// homepage are optional extras carried through from the recipe.
type Meta struct {
	Name        string
	Version     string
	Release     string
	Arch        string
	Prefix      string
	Description string
	Homepage    string
}

// Encode renders Meta as CONTROL/meta's newline-delimited key=value text.
func (m Meta) Encode() string {
	var b strings.Builder
	fmt.Fprintf(&b, "name=%s\n", m.Name)
	fmt.Fprintf(&b, "version=%s\n", m.Version)
	fmt.Fprintf(&b, "release=%s\n", m.Release)
	fmt.Fprintf(&b, "arch=%s\n", m.Arch)
	fmt.Fprintf(&b, "prefix=%s\n", m.Prefix)
	if m.Description != "" {
		fmt.Fprintf(&b, "description=%s\n", m.Description)
	}
	if m.Homepage != "" {
		fmt.Fprintf(&b, "homepage=%s\n", m.Homepage)
	}
	return b.String()
}

// ParseMeta parses CONTROL/meta's key=value text back into a Meta.
func ParseMeta(data []byte) Meta {
	var m Meta
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := kv[0], kv[1]
		switch key {
		case "name":
			m.Name = val
		case "version":
			m.Version = val
		case "release":
			m.Release = val
		case "arch":
			m.Arch = val
		case "prefix":
			m.Prefix = val
		case "description":
			m.Description = val
		case "homepage":
			m.Homepage = val
		}
	}
	return m
}

// FullName returns "<name>-<version>-<release>", the canonical identifier
// used for package archive filenames and installed.index entries.
func (m Meta) FullName() string {
	return fmt.Sprintf("%s-%s-%s", m.Name, m.Version, m.Release)
}

// ArchiveFilename returns "<fullname>.<arch>.ppkg" — the package archive
// name is always .ppkg regardless of the compression codec used inside it.
func (m Meta) ArchiveFilename() string {
	return fmt.Sprintf("%s.%s.ppkg", m.FullName(), m.Arch)
}
