package phase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

func TestRunSoftPhaseToleratesFailure(t *testing.T) {
	r := NewRunner(t.TempDir(), "1", nil)
	action := CommandAction{Command: "exit 1"}

	err := r.Run(context.Background(), "demo", Prepare, action, t.TempDir(), Environment{})
	require.NoError(t, err, "soft phase failure should not propagate")
}

func TestRunHardPhasePropagatesFailure(t *testing.T) {
	r := NewRunner(t.TempDir(), "1", nil)
	action := CommandAction{Command: "exit 1"}

	err := r.Run(context.Background(), "demo", Build, action, t.TempDir(), Environment{})
	require.Error(t, err, "hard phase failure should propagate")
	var merr *mbuilderr.Error
	require.True(t, errors.As(err, &merr))
	require.Equal(t, mbuilderr.Phase, merr.Kind)
}

func TestRunAppendsLogFile(t *testing.T) {
	logsDir := t.TempDir()
	r := NewRunner(logsDir, "42", nil)
	action := CommandAction{Command: "echo hello"}

	require.NoError(t, r.Run(context.Background(), "demo", Build, action, t.TempDir(), Environment{}))

	logPath := filepath.Join(logsDir, "demo-run-42.log")
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.NotEmpty(t, data, "expected non-empty log")
}

func TestDefaultActionPrepareIsNoop(t *testing.T) {
	a := DefaultAction{Phase: Prepare}
	out, err := a.Run(context.Background(), t.TempDir(), Environment{})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestDefaultActionBuildRunsConfigureThenMake(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}

	srcDir := t.TempDir()
	marker := filepath.Join(srcDir, "marker")

	configureScript := "#!/bin/sh\necho \"configure $PREFIX\" >> " + marker + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "configure"), []byte(configureScript), 0o755))

	fakeBin := t.TempDir()
	makeScript := "#!/bin/sh\necho \"make $*\" >> " + marker + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(fakeBin, "make"), []byte(makeScript), 0o755))
	t.Setenv("PATH", fakeBin+":"+os.Getenv("PATH"))

	a := DefaultAction{Phase: Build}
	_, err := a.Run(context.Background(), srcDir, Environment{PREFIX: "/usr", JOBS: 2})
	require.NoError(t, err)

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	require.Equal(t, "configure /usr\nmake -j2\n", string(data))
}

func TestDefaultActionBuildAbortsOnConfigureFailure(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}

	srcDir := t.TempDir()
	marker := filepath.Join(srcDir, "marker")

	configureScript := "#!/bin/sh\nexit 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "configure"), []byte(configureScript), 0o755))

	fakeBin := t.TempDir()
	makeScript := "#!/bin/sh\necho ran >> " + marker + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(fakeBin, "make"), []byte(makeScript), 0o755))
	t.Setenv("PATH", fakeBin+":"+os.Getenv("PATH"))

	a := DefaultAction{Phase: Build}
	_, err := a.Run(context.Background(), srcDir, Environment{PREFIX: "/usr", JOBS: 2})
	require.Error(t, err, "configure failure should abort before make runs")

	_, statErr := os.Stat(marker)
	require.True(t, os.IsNotExist(statErr), "make should never have run")
}

func TestEnvironmentVarsIncludesContract(t *testing.T) {
	env := Environment{CC: "clang", JOBS: 4, PREFIX: "/usr", DESTDIR: "/tmp/stage"}
	vars := env.Vars()

	require.Contains(t, vars, "CC=clang")
	require.Contains(t, vars, "JOBS=4")
}
