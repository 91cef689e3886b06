// Package strip removes debug symbols from ELF binaries in a stage tree
// before it is packaged, reducing installed size.
package strip

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fcanata061/mbuild/internal/log"
)

// Tree walks stageDir and strips every file that looks like an ELF
// executable or shared object: owner-executable bit set, and "file(1)"
// (if available) reports "ELF" plus "executable" or "shared object".
// Per-file failures are logged and ignored, not propagated.
func Tree(stageDir string, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNoop()
	}

	stripBin, err := exec.LookPath("strip")
	if err != nil {
		logger.Warn("strip binary not found, skipping post-stage stripping")
		return nil
	}
	fileBin, _ := exec.LookPath("file") // best-effort probe; absence degrades to "strip everything executable"

	return filepath.WalkDir(stageDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Mode()&0o100 == 0 {
			return nil
		}
		if fileBin != "" && !looksLikeELF(fileBin, path) {
			return nil
		}

		cmd := exec.Command(stripBin, "--strip-unneeded", path)
		if out, err := cmd.CombinedOutput(); err != nil {
			logger.Warn("strip failed, leaving file as-is", "path", path, "output", string(out))
		}
		return nil
	})
}

func looksLikeELF(fileBin, path string) bool {
	cmd := exec.Command(fileBin, path)
	out, err := cmd.Output()
	if err != nil {
		return false
	}
	s := string(out)
	return strings.Contains(s, "ELF") && (strings.Contains(s, "executable") || strings.Contains(s, "shared object"))
}
