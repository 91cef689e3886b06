// Package phase runs the four build phases — prepare, build, check,
// package — as either a recipe-supplied command/script or a built-in
// default action, against an explicit environment contract.
package phase

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/log"
	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

// Name identifies one of the four build phases. It is a closed set, not an
// arbitrary string dispatched through a map.
type Name string

const (
	Prepare Name = "prepare"
	Build   Name = "build"
	Check   Name = "check"
	Package Name = "package"
)

// Soft reports whether a phase's failure is tolerated (logged, pipeline
// continues) rather than aborting the run.
func (n Name) Soft() bool {
	return n == Prepare || n == Check
}

// Environment is the explicit env var contract passed to every phase's
// subprocess. It is built once per run and threaded through explicitly,
// never read back out of process-global state.
type Environment struct {
	CC      string
	CXX     string
	AR      string
	RANLIB  string
	CFLAGS  string
	LDFLAGS string
	JOBS    int
	PREFIX  string
	DESTDIR string
	Extra   map[string]string // recipe.Env, applied last
}

// NewEnvironment builds the environment contract for one run, applying the
// toolchain profile defaults first, then any user-set CC/CXX/AR/RANLIB
// (which always win), then the recipe's own Env overrides last.
func NewEnvironment(cfg *config.Config, jobs int, destdir string, recipeEnv map[string]string) Environment {
	tc := cfg.ToolchainDefaults()
	env := Environment{
		CC:      firstNonEmpty(os.Getenv("CC"), tc.CC),
		CXX:     firstNonEmpty(os.Getenv("CXX"), tc.CXX),
		AR:      firstNonEmpty(os.Getenv("AR"), tc.AR),
		RANLIB:  firstNonEmpty(os.Getenv("RANLIB"), tc.RANLIB),
		CFLAGS:  os.Getenv("CFLAGS"),
		LDFLAGS: os.Getenv("LDFLAGS"),
		JOBS:    jobs,
		PREFIX:  cfg.Prefix,
		DESTDIR: destdir,
		Extra:   recipeEnv,
	}
	return env
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Vars renders the environment contract as "KEY=value" pairs suitable for
// exec.Cmd.Env, layered on top of the inherited process environment.
func (e Environment) Vars() []string {
	vars := os.Environ()
	vars = append(vars,
		"CC="+e.CC,
		"CXX="+e.CXX,
		"AR="+e.AR,
		"RANLIB="+e.RANLIB,
		"CFLAGS="+e.CFLAGS,
		"LDFLAGS="+e.LDFLAGS,
		"JOBS="+fmt.Sprintf("%d", e.JOBS),
		"PREFIX="+e.PREFIX,
		"DESTDIR="+e.DESTDIR,
	)
	for k, v := range e.Extra {
		vars = append(vars, k+"="+v)
	}
	return vars
}

// Action is one phase's executable behavior: either a recipe-supplied
// command/script, or a built-in default_* action.
type Action interface {
	Run(ctx context.Context, srcDir string, env Environment) ([]byte, error)
}

// CommandAction runs an inline shell command via "sh -c".
type CommandAction struct {
	Command string
}

func (a CommandAction) Run(ctx context.Context, srcDir string, env Environment) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", a.Command)
	cmd.Dir = srcDir
	cmd.Env = env.Vars()
	return cmd.CombinedOutput()
}

// ScriptAction runs an executable script shipped alongside the recipe.
type ScriptAction struct {
	ScriptPath string
}

func (a ScriptAction) Run(ctx context.Context, srcDir string, env Environment) ([]byte, error) {
	cmd := exec.CommandContext(ctx, a.ScriptPath)
	cmd.Dir = srcDir
	cmd.Env = env.Vars()
	return cmd.CombinedOutput()
}

// DefaultAction implements the default_prepare / default_build /
// default_check / default_package behavior for a phase with no recipe
// override.
type DefaultAction struct {
	Phase Name
}

func (a DefaultAction) Run(ctx context.Context, srcDir string, env Environment) ([]byte, error) {
	var command string
	switch a.Phase {
	case Prepare:
		command = ":"
	case Build:
		command = "set -e; if test -x ./configure; then ./configure --prefix=$PREFIX; fi; make -j$JOBS"
	case Check:
		command = "make -k check"
	case Package:
		command = "make install DESTDIR=$DESTDIR"
	default:
		return nil, fmt.Errorf("no default action for phase %q", a.Phase)
	}
	return CommandAction{Command: command}.Run(ctx, srcDir, env)
}

// Runner executes phases, capturing combined output to a per-run log file
// and applying soft/hard failure semantics.
type Runner struct {
	LogsDir string
	RunID   string // e.g. unix timestamp, shared across all phases of one run
	Logger  log.Logger
}

// NewRunner creates a Runner whose log file name embeds the recipe name and
// the given runID.
func NewRunner(logsDir, runID string, logger log.Logger) *Runner {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Runner{LogsDir: logsDir, RunID: runID, Logger: logger}
}

// Run executes action for the named phase against srcDir, appending its
// combined output to "<logsDir>/<recipeName>-run-<runID>.log". A soft
// phase's non-zero exit is logged and nil is returned; a hard phase's
// non-zero exit is returned as a *mbuilderr.Error of kind Phase.
func (r *Runner) Run(ctx context.Context, recipeName string, name Name, action Action, srcDir string, env Environment) error {
	if action == nil {
		return nil
	}

	output, err := action.Run(ctx, srcDir, env)

	if logErr := r.appendLog(recipeName, name, output); logErr != nil {
		r.Logger.Warn("failed to persist phase log", "phase", name, "error", logErr)
	}

	if err == nil {
		r.Logger.Info("phase completed", "phase", name)
		return nil
	}

	if name.Soft() {
		r.Logger.Warn("soft phase failed, continuing", "phase", name, "error", err)
		return nil
	}
	return mbuilderr.PhaseFailed(string(name), err)
}

func (r *Runner) appendLog(recipeName string, name Name, output []byte) error {
	if r.LogsDir == "" {
		return nil
	}
	if err := os.MkdirAll(r.LogsDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(r.LogsDir, fmt.Sprintf("%s-run-%s.log", recipeName, r.RunID))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "=== phase %s (%s) ===\n", name, time.Now().UTC().Format(time.RFC3339))
	buf.Write(output)
	buf.WriteByte('\n')
	_, err = f.Write(buf.Bytes())
	return err
}
