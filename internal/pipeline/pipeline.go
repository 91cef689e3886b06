// Package pipeline orchestrates a full build run: recipe load through
// fetch, extract, patch, phase execution, stripping, and packaging, plus
// the install and remove entry points layered on top of it.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fcanata061/mbuild/internal/archive"
	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/extract"
	"github.com/fcanata061/mbuild/internal/fetch"
	"github.com/fcanata061/mbuild/internal/install"
	"github.com/fcanata061/mbuild/internal/log"
	"github.com/fcanata061/mbuild/internal/mbuilderr"
	"github.com/fcanata061/mbuild/internal/patch"
	"github.com/fcanata061/mbuild/internal/phase"
	"github.com/fcanata061/mbuild/internal/platform"
	"github.com/fcanata061/mbuild/internal/recipe"
	"github.com/fcanata061/mbuild/internal/registry"
	"github.com/fcanata061/mbuild/internal/remove"
	"github.com/fcanata061/mbuild/internal/strip"
)

// Engine ties every component together, driven by one resolved Config.
type Engine struct {
	Cfg    *config.Config
	Logger log.Logger
	Reg    *registry.Registry
}

// New returns an Engine for cfg.
func New(cfg *config.Config, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Engine{
		Cfg:    cfg,
		Logger: logger,
		Reg:    registry.New(cfg.PkgsDir(), cfg.InstalledIndexPath()),
	}
}

// RunResult is what a successful Run produces.
type RunResult struct {
	ArchivePath string
	Meta        archive.Meta
}

// Run drives B (recipe load, already done by the caller) through H
// (packaging) for one recipe: fetch, extract, patch, the four phases,
// stripping, and packaging.
func (e *Engine) Run(ctx context.Context, r *recipe.Recipe) (*RunResult, error) {
	if err := e.Cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	// Resolve the package compression before any build work, so an
	// unrecognized pkg_comp value is reported up front.
	comp := archive.ParseCompression(e.Cfg.PkgComp)

	buildDir := e.Cfg.BuildDir(r.Name, r.Version)
	stageDir := filepath.Join(e.Cfg.Stage, r.FullName())

	// The build and stage trees are destroyed and recreated at the start
	// of each run so a prior partial/failed attempt never leaks stale
	// files into the current one's manifest.
	if err := os.RemoveAll(buildDir); err != nil {
		return nil, mbuilderr.Wrap(mbuilderr.Io, "clear build directory", err).WithField(buildDir)
	}
	if err := os.RemoveAll(stageDir); err != nil {
		return nil, mbuilderr.Wrap(mbuilderr.Io, "clear stage directory", err).WithField(stageDir)
	}

	fetcher := fetch.New(e.Cfg.DownloadRetries, e.Logger)

	// Fetch and extract every primary source; all of them are expanded
	// into the build area. The first source's resolved directory is the
	// one phases run from.
	var srcDir string
	for i, src := range r.Sources {
		dest := filepath.Join(e.Cfg.Sources, filepath.Base(src.URL))
		if err := fetcher.Fetch(ctx, src.URL, dest, src.Hash); err != nil {
			return nil, err
		}
		extractedDir, err := extract.Extract(dest, buildDir, r.Name, r.Version)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			srcDir = extractedDir
		}
	}
	// Fetch supplementary resources.
	for _, res := range r.Resources {
		destDir := buildDir
		if res.Dest != "" {
			destDir = filepath.Join(buildDir, res.Dest)
		}
		dest := filepath.Join(e.Cfg.Sources, filepath.Base(res.URL))
		if err := fetcher.Fetch(ctx, res.URL, dest, res.Hash); err != nil {
			return nil, err
		}
		if _, err := extract.Extract(dest, destDir, res.Name, r.Version); err != nil {
			e.Logger.Warn("resource extraction failed, leaving archive as-is", "resource", res.Name, "error", err)
		}
	}

	patchPaths := make([]string, len(r.Patches))
	for i, p := range r.Patches {
		if filepath.IsAbs(p) {
			patchPaths[i] = p
		} else {
			patchPaths[i] = filepath.Join(filepath.Dir(r.Path), p)
		}
	}
	if err := patch.Apply(ctx, srcDir, patchPaths, e.Logger); err != nil {
		return nil, err
	}

	env := phase.NewEnvironment(e.Cfg, e.Cfg.Jobs, stageDir, r.Env)
	runner := phase.NewRunner(e.Cfg.Logs, runID(), e.Logger)

	phases := []struct {
		name   phase.Name
		recipe recipe.Phase
	}{
		{phase.Prepare, r.Phases.Prepare},
		{phase.Build, r.Phases.Build},
		{phase.Check, r.Phases.Check},
		{phase.Package, r.Phases.Package},
	}
	for _, p := range phases {
		action := resolveAction(p.name, p.recipe, filepath.Dir(r.Path))
		if err := runner.Run(ctx, r.Name, p.name, action, srcDir, env); err != nil {
			return nil, err
		}
	}

	if e.Cfg.Strip {
		if err := strip.Tree(stageDir, e.Logger); err != nil {
			e.Logger.Warn("post-stage stripping failed", "error", err)
		}
	}

	return e.packageStage(stageDir, r, comp)
}

// Pack re-packages the stage tree for r without re-running the fetch,
// extract, patch, or phase steps, for the "pack" CLI command.
func (e *Engine) Pack(r *recipe.Recipe) (*RunResult, error) {
	if err := e.Cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	comp := archive.ParseCompression(e.Cfg.PkgComp)
	stageDir := filepath.Join(e.Cfg.Stage, r.FullName())
	return e.packageStage(stageDir, r, comp)
}

func (e *Engine) packageStage(stageDir string, r *recipe.Recipe, comp archive.Compression) (*RunResult, error) {
	meta := archive.Meta{
		Name:        r.Name,
		Version:     r.Version,
		Release:     defaultRelease(r.Release),
		Arch:        firstNonEmpty(r.Arch, platform.HostTag()),
		Prefix:      e.Cfg.Prefix,
		Description: r.Description,
		Homepage:    r.Homepage,
	}

	var postRemove string
	if r.PostRemove != "" {
		postRemove = r.PostRemove
		if !filepath.IsAbs(postRemove) {
			postRemove = filepath.Join(filepath.Dir(r.Path), postRemove)
		}
	}

	archivePath, err := archive.Pack(archive.PackInput{
		StageDir:         stageDir,
		Meta:             meta,
		Comp:             comp,
		PostRemoveScript: postRemove,
		PackagesDir:      e.Cfg.Packages,
	})
	if err != nil {
		return nil, err
	}
	return &RunResult{ArchivePath: archivePath, Meta: meta}, nil
}

// Install drives a built archive's output into the installer (I), and the
// registry (K).
func (e *Engine) Install(archivePath string) error {
	if err := e.Cfg.EnsureDirectories(); err != nil {
		return err
	}
	installer := install.New(e.Cfg.Root, e.Reg, e.Logger)
	return installer.Install(archivePath)
}

// Remove drives the registry (K) into the remover (J).
func (e *Engine) Remove(name string) error {
	remover := remove.New(e.Cfg.Root, e.Cfg.HooksPostRemoveDir(), e.Reg, e.Logger)
	return remover.Remove(name)
}

func resolveAction(name phase.Name, p recipe.Phase, recipeDir string) phase.Action {
	switch {
	case p.Command != "":
		return phase.CommandAction{Command: p.Command}
	case p.Script != "":
		scriptPath := p.Script
		if !filepath.IsAbs(scriptPath) {
			scriptPath = filepath.Join(recipeDir, scriptPath)
		}
		return phase.ScriptAction{ScriptPath: scriptPath}
	default:
		return phase.DefaultAction{Phase: name}
	}
}

func defaultRelease(release string) string {
	if release == "" {
		return "1"
	}
	return release
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func runID() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}
