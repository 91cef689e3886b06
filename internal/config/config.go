// Package config resolves the single base directory that determines every
// derived path the engine uses (sources, build, stage, packages, logs,
// state, recipes, hooks), plus the toolchain profile and every
// environment-driven tunable from spec §6's configuration table.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fcanata061/mbuild/internal/platform"
)

// Environment variable names recognized by mbuild, per spec §6.
const (
	EnvBase             = "MBUILD_BASE"
	EnvRoot             = "MBUILD_ROOT"
	EnvPrefix           = "MBUILD_PREFIX"
	EnvJobs             = "MBUILD_JOBS"
	EnvPkgComp          = "MBUILD_PKG_COMP"
	EnvToolchain        = "MBUILD_TOOLCHAIN"
	EnvStrip            = "MBUILD_STRIP"
	EnvDownloadRetries  = "MBUILD_DOWNLOAD_RETRIES"
)

// Defaults, per spec §6.
const (
	DefaultRoot      = "/"
	DefaultPrefix    = "/usr"
	DefaultPkgComp   = "zst"
	DefaultToolchain = "system"
	DefaultRetries   = 3

	minJobs     = 1
	maxJobs     = 64
	minRetries  = 1
	maxRetries  = 10
)

// Config holds every derived path and tunable for one invocation.
type Config struct {
	Base     string // root of all storage
	Sources  string // <base>/sources
	Build    string // <base>/build
	Stage    string // <base>/stage
	Packages string // <base>/packages
	Logs     string // <base>/logs
	State    string // <base>/state
	Recipes  string // <base>/recipes
	Hooks    string // <base>/hooks

	Root             string // target root for install/remove
	Prefix           string // installation prefix
	Jobs             int    // make -j parallelism
	PkgComp          string // package archive compression
	Toolchain        string // toolchain profile name
	Strip            bool   // enable ELF strip
	DownloadRetries  int    // max fetch attempts
}

// Load resolves a Config from the process environment, applying the
// defaults and range clamps spec §6 documents. It never touches the
// filesystem; call EnsureDirectories separately (the "init" command, or
// lazily before first use).
func Load() (*Config, error) {
	base := os.Getenv(EnvBase)
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve base directory: %w", err)
		}
		base = filepath.Join(wd, "mbuild")
	}

	cfg := &Config{
		Base:     base,
		Sources:  filepath.Join(base, "sources"),
		Build:    filepath.Join(base, "build"),
		Stage:    filepath.Join(base, "stage"),
		Packages: filepath.Join(base, "packages"),
		Logs:     filepath.Join(base, "logs"),
		State:    filepath.Join(base, "state"),
		Recipes:  filepath.Join(base, "recipes"),
		Hooks:    filepath.Join(base, "hooks"),

		Root:            getString(EnvRoot, DefaultRoot),
		Prefix:          getString(EnvPrefix, DefaultPrefix),
		Jobs:            getIntClamped(EnvJobs, platform.DefaultJobs(), minJobs, maxJobs),
		PkgComp:         getString(EnvPkgComp, DefaultPkgComp),
		Toolchain:       getString(EnvToolchain, DefaultToolchain),
		Strip:           getBool(EnvStrip, true),
		DownloadRetries: getIntClamped(EnvDownloadRetries, DefaultRetries, minRetries, maxRetries),
	}

	return cfg, nil
}

// EnsureDirectories creates every derived directory, idempotently.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Base, c.Sources, c.Build, c.Stage, c.Packages,
		c.Logs, c.State, c.Recipes, c.Hooks,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// PkgsDir returns the registry's per-package directory root,
// <state>/pkgs.
func (c *Config) PkgsDir() string {
	return filepath.Join(c.State, "pkgs")
}

// InstalledIndexPath returns the path to the append-only install log.
func (c *Config) InstalledIndexPath() string {
	return filepath.Join(c.State, "installed.index")
}

// HooksPostRemoveDir returns the directory for global post-remove hooks.
func (c *Config) HooksPostRemoveDir() string {
	return filepath.Join(c.Hooks, "post-remove")
}

// BuildDir returns the build tree for one recipe.
func (c *Config) BuildDir(name, version string) string {
	return filepath.Join(c.Build, fmt.Sprintf("%s-%s", name, version))
}

// Toolchain holds the compiler/archiver defaults for one toolchain profile.
type Toolchain struct {
	CC     string
	CXX    string
	AR     string
	RANLIB string
}

var toolchainProfiles = map[string]Toolchain{
	"system": {CC: "cc", CXX: "c++", AR: "ar", RANLIB: "ranlib"},
	"llvm":   {CC: "clang", CXX: "clang++", AR: "llvm-ar", RANLIB: "llvm-ranlib"},
	"musl":   {CC: "musl-gcc", CXX: "musl-g++", AR: "ar", RANLIB: "ranlib"},
}

// ToolchainDefaults returns the CC/CXX/AR/RANLIB defaults for c.Toolchain,
// falling back to the "system" profile for an unrecognized name.
func (c *Config) ToolchainDefaults() Toolchain {
	if t, ok := toolchainProfiles[c.Toolchain]; ok {
		return t
	}
	fmt.Fprintf(os.Stderr, "warning: unknown toolchain profile %q, using system\n", c.Toolchain)
	return toolchainProfiles["system"]
}

func getString(env, def string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func getBool(env string, def bool) bool {
	v := os.Getenv(env)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		fmt.Fprintf(os.Stderr, "warning: invalid %s value %q, using default %v\n", env, v, def)
		return def
	}
}

func getIntClamped(env string, def, lo, hi int) int {
	v := os.Getenv(env)
	if v == "" {
		return clamp(def, lo, hi)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid %s value %q, using default %d\n", env, v, def)
		return clamp(def, lo, hi)
	}
	if n < lo {
		fmt.Fprintf(os.Stderr, "warning: %s too low (%d), using minimum %d\n", env, n, lo)
		return lo
	}
	if n > hi {
		fmt.Fprintf(os.Stderr, "warning: %s too high (%d), using maximum %d\n", env, n, hi)
		return hi
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
