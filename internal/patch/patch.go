// Package patch applies unified diffs to an extracted source tree.
package patch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/fcanata061/mbuild/internal/log"
	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

// Apply applies each patch file in patchPaths against srcDir in order,
// using "patch -p1 --batch". A patch file that does not exist is skipped
// with a warning, not an error.
func Apply(ctx context.Context, srcDir string, patchPaths []string, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNoop()
	}

	var patchBin string
	for _, p := range patchPaths {
		if _, err := os.Stat(p); err != nil {
			logger.Warn("patch file missing, skipping", "path", p)
			continue
		}
		if patchBin == "" {
			bin, err := exec.LookPath("patch")
			if err != nil {
				return mbuilderr.Wrap(mbuilderr.Patch, "patch command not found", err)
			}
			patchBin = bin
		}

		f, err := os.Open(p)
		if err != nil {
			return mbuilderr.Wrap(mbuilderr.Patch, "open patch file", err).WithField(p)
		}

		cmd := exec.CommandContext(ctx, patchBin, "-p1", "--batch")
		cmd.Dir = srcDir
		cmd.Stdin = f
		output, runErr := cmd.CombinedOutput()
		f.Close()

		if runErr != nil {
			return mbuilderr.Newf(mbuilderr.Patch, "patch %s failed: %v\noutput: %s", filepath.Base(p), runErr, output).WithField(p)
		}
		logger.Info("applied patch", "path", p)
	}
	return nil
}
