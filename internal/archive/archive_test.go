package archive

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildManifestSortedDepthFirst(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "usr", "bin", "zzz"), "z")
	mustWrite(t, filepath.Join(dir, "usr", "bin", "aaa"), "a")
	mustWrite(t, filepath.Join(dir, "usr", "lib", "libx.so"), "l")
	mustWrite(t, filepath.Join(dir, "README"), "r")

	m, err := BuildManifest(dir)
	require.NoError(t, err)

	want := []string{
		"./README",
		"./usr/bin/aaa",
		"./usr/bin/zzz",
		"./usr/lib/libx.so",
	}
	require.Equal(t, want, m.Entries)
}

func TestMetaEncodeParseRoundTrip(t *testing.T) {
	m := Meta{Name: "hello", Version: "1.0", Release: "1", Arch: "amd64", Prefix: "/usr"}
	parsed := ParseMeta([]byte(m.Encode()))
	require.Equal(t, m, parsed)
}

func TestParseCompressionUnknownDegradesToNone(t *testing.T) {
	require.Equal(t, CompNone, ParseCompression("lz4"))
}

func TestPackProducesArchiveWithControlFiles(t *testing.T) {
	stageDir := t.TempDir()
	mustWrite(t, filepath.Join(stageDir, "usr", "bin", "hello"), "#!/bin/sh\necho hi\n")

	packagesDir := t.TempDir()
	meta := Meta{Name: "hello", Version: "1.0", Release: "1", Arch: "amd64", Prefix: "/usr"}

	archivePath, err := Pack(PackInput{
		StageDir:    stageDir,
		Meta:        meta,
		Comp:        CompGzip,
		PackagesDir: packagesDir,
	})
	require.NoError(t, err)
	require.Equal(t, "hello-1.0-1.amd64.ppkg", filepath.Base(archivePath))

	f, err := os.Open(archivePath)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		names = append(names, hdr.Name)
	}
	require.Contains(t, names, "CONTROL/meta")
	require.Contains(t, names, "CONTROL/manifest")
	require.Contains(t, names, "./usr/bin/hello")
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
