package patch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplySkipsMissingPatch(t *testing.T) {
	if _, err := exec.LookPath("patch"); err != nil {
		t.Skip("patch binary not available")
	}

	dir := t.TempDir()
	err := Apply(context.Background(), dir, []string{filepath.Join(dir, "does-not-exist.patch")}, nil)
	require.NoError(t, err, "Apply should skip missing patch file")
}

func TestApplyAppliesUnifiedDiff(t *testing.T) {
	if _, err := exec.LookPath("patch"); err != nil {
		t.Skip("patch binary not available")
	}

	dir := t.TempDir()
	target := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(target, []byte("line one\nline two\n"), 0o644))

	diff := "--- a/file.txt\n+++ b/file.txt\n@@ -1,2 +1,2 @@\n line one\n-line two\n+line two patched\n"
	patchFile := filepath.Join(dir, "fix.patch")
	require.NoError(t, os.WriteFile(patchFile, []byte(diff), 0o644))

	require.NoError(t, Apply(context.Background(), dir, []string{patchFile}, nil))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "line one\nline two patched\n", string(got))
}
