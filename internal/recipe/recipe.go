// Package recipe loads and validates the TOML recipe files that drive a
// build: what to fetch, which patches to apply, and what each phase runs.
package recipe

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

// Source describes one primary download.
type Source struct {
	URL  string `toml:"url"`
	Hash string `toml:"hash"` // sha256 hex digest; empty means unverified
}

// Resource is an additional named download staged before prepare runs.
type Resource struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
	Hash string `toml:"hash"`
	Dest string `toml:"dest"` // subdirectory under the build tree
}

// Phase holds one phase's action: either an inline shell command or a
// path to a script shipped alongside the recipe. At most one should be set;
// Command takes precedence if both are given.
type Phase struct {
	Command string `toml:"command"`
	Script  string `toml:"script"`
}

// IsZero reports whether the phase has neither a command nor a script,
// meaning it should bind to its default_* behavior.
func (p Phase) IsZero() bool {
	return p.Command == "" && p.Script == ""
}

// Phases holds the four phase slots a recipe may override.
type Phases struct {
	Prepare Phase `toml:"prepare"`
	Build   Phase `toml:"build"`
	Check   Phase `toml:"check"`
	Package Phase `toml:"package"`
}

// Recipe is the parsed form of a recipe TOML file.
type Recipe struct {
	Name        string            `toml:"name"`
	Version     string            `toml:"version"`
	Release     string            `toml:"release"`
	Arch        string            `toml:"arch"`
	Description string            `toml:"description"`
	Homepage    string            `toml:"homepage"`
	Sources     []Source          `toml:"sources"`
	Patches     []string          `toml:"patches"`
	Resources   []Resource        `toml:"resources"`
	Env         map[string]string `toml:"env"`
	Phases      Phases            `toml:"phases"`
	PostRemove  string            `toml:"post_remove"` // script path, run by the installed package's own hook on remove

	// Path is the filesystem location the recipe was loaded from, set by
	// Load and not present in the TOML itself. Used to resolve
	// recipe-relative script and patch paths.
	Path string `toml:"-"`
}

// Load reads and parses the recipe at path, then validates it.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mbuilderr.Wrap(mbuilderr.Recipe, "read recipe file", err).WithField(path)
	}

	var r Recipe
	if _, err := toml.Decode(string(data), &r); err != nil {
		return nil, mbuilderr.Wrap(mbuilderr.Recipe, "parse recipe TOML", err).WithField(path)
	}
	r.Path = path

	if err := Validate(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks that a recipe carries the minimum fields a build needs:
// name, version, and at least one source. It returns a *mbuilderr.Error
// naming the first missing field, without touching the filesystem.
func Validate(r *Recipe) error {
	if r.Name == "" {
		return mbuilderr.RecipeField("name", "recipe must set name")
	}
	if r.Version == "" {
		return mbuilderr.RecipeField("version", "recipe must set version")
	}
	if len(r.Sources) == 0 {
		return mbuilderr.RecipeField("sources", "recipe must list at least one source")
	}
	for i, s := range r.Sources {
		if s.URL == "" {
			return mbuilderr.RecipeField("sources", fmt.Sprintf("source %d missing url", i))
		}
	}
	for i, res := range r.Resources {
		if res.URL == "" {
			return mbuilderr.RecipeField("resources", fmt.Sprintf("resource %d missing url", i))
		}
	}
	return nil
}

// FullName returns the canonical "<name>-<version>-<release>" identifier
// used for package archive names and installed.index entries. Release
// defaults to "1" when unset.
func (r *Recipe) FullName() string {
	release := r.Release
	if release == "" {
		release = "1"
	}
	return fmt.Sprintf("%s-%s-%s", r.Name, r.Version, release)
}
