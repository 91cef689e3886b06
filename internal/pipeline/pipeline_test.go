package pipeline

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/recipe"
)

func buildSourceTarGz(t *testing.T) []byte {
	t.Helper()
	tmp := filepath.Join(t.TempDir(), "src.tar.gz")
	f, err := os.Create(tmp)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	files := map[string]string{
		"hello-1.0/Makefile": "install:\n\tmkdir -p $(DESTDIR)/usr/bin\n\tcp hello $(DESTDIR)/usr/bin/hello\n",
		"hello-1.0/hello":    "#!/bin/sh\necho hi\n",
	}
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o755, Size: int64(len(content))}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	buf, err := os.ReadFile(tmp)
	require.NoError(t, err)
	return buf
}

func TestRunProducesCanonicalPackage(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}

	body := buildSourceTarGz(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	base := t.TempDir()
	t.Setenv(config.EnvBase, base)
	t.Setenv(config.EnvJobs, "1")
	t.Setenv(config.EnvDownloadRetries, "1")
	cfg, err := config.Load()
	require.NoError(t, err)

	r := &recipe.Recipe{
		Name:    "hello",
		Version: "1.0",
		Release: "1",
		Sources: []recipe.Source{{URL: srv.URL + "/hello-1.0.tar.gz"}},
		Phases: recipe.Phases{
			Build:   recipe.Phase{Command: "true"},
			Package: recipe.Phase{Command: "make install DESTDIR=$DESTDIR"},
		},
	}

	e := New(cfg, nil)
	result, err := e.Run(context.Background(), r)
	require.NoError(t, err)

	require.NotEmpty(t, filepath.Base(result.ArchivePath))
	require.Equal(t, "hello", result.Meta.Name)
	require.Equal(t, "1.0", result.Meta.Version)
	require.Equal(t, "1", result.Meta.Release)

	_, err = os.Stat(result.ArchivePath)
	require.NoError(t, err, "expected archive file to exist")
}
