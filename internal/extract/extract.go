// Package extract unpacks a fetched source archive into the build tree and
// resolves the canonical source directory the subsequent phases operate in.
package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

// Extract dispatches on archivePath's suffix and unpacks its contents into
// destDir, then resolves and returns the canonical source directory: first
// "<destDir>/<name>-<version>", falling back to the first "<name>*" child of
// destDir.
func Extract(archivePath, destDir, name, version string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", mbuilderr.Wrap(mbuilderr.Io, "create build directory", err).WithField(destDir)
	}

	if err := dispatch(archivePath, destDir); err != nil {
		return "", mbuilderr.Wrap(mbuilderr.Extract, "extract archive", err).WithField(archivePath)
	}

	return resolveSourceDir(destDir, name, version)
}

func dispatch(archivePath, destDir string) error {
	lower := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return extractTarGz(archivePath, destDir)
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return extractTarBz2(archivePath, destDir)
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return extractTarXz(archivePath, destDir)
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return extractTarZst(archivePath, destDir)
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(archivePath, destDir)
	case strings.HasSuffix(lower, ".tar"):
		return extractTar(archivePath, destDir)
	default:
		return fmt.Errorf("unrecognized archive suffix: %s", archivePath)
	}
}

func extractTarGz(path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()
	return extractTarReader(tar.NewReader(gz), dest)
}

func extractTarBz2(path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return extractTarReader(tar.NewReader(bzip2.NewReader(f)), dest)
}

func extractTarXz(path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	xr, err := xz.NewReader(f)
	if err != nil {
		return err
	}
	return extractTarReader(tar.NewReader(xr), dest)
}

func extractTarZst(path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()
	return extractTarReader(tar.NewReader(zr), dest)
}

func extractTar(path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return extractTarReader(tar.NewReader(f), dest)
}

func extractTarReader(tr *tar.Reader, destDir string) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		cleanName := strings.TrimPrefix(header.Name, "./")
		target := filepath.Join(destDir, cleanName)
		if !isWithinDir(target, destDir) {
			return fmt.Errorf("archive entry escapes destination: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent directory: %w", err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode&0o777))
			if err != nil {
				return fmt.Errorf("create file: %w", err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("write file: %w", err)
			}
			out.Close()
		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return fmt.Errorf("absolute symlink target not allowed: %s -> %s", header.Name, header.Linkname)
			}
			resolved := filepath.Join(filepath.Dir(target), header.Linkname)
			if !isWithinDir(resolved, destDir) {
				return fmt.Errorf("symlink escapes destination: %s -> %s", header.Name, header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent directory: %w", err)
			}
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink: %w", err)
			}
		}
	}
	return nil
}

func extractZip(path, destDir string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, zf := range r.File {
		target := filepath.Join(destDir, zf.Name)
		if !isWithinDir(target, destDir) {
			return fmt.Errorf("archive entry escapes destination: %s", zf.Name)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := zf.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, zf.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return err
		}
		out.Close()
		rc.Close()
	}
	return nil
}

func isWithinDir(target, base string) bool {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	return absTarget == absBase || strings.HasPrefix(absTarget, absBase+string(os.PathSeparator))
}

// resolveSourceDir finds the canonical extracted source directory: first
// "<destDir>/<name>-<version>", else the first "<name>*" child of destDir.
func resolveSourceDir(destDir, name, version string) (string, error) {
	canonical := filepath.Join(destDir, fmt.Sprintf("%s-%s", name, version))
	if info, err := os.Stat(canonical); err == nil && info.IsDir() {
		return canonical, nil
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", mbuilderr.Wrap(mbuilderr.Extract, "read build directory", err).WithField(destDir)
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), name) {
			return filepath.Join(destDir, e.Name()), nil
		}
	}
	return "", mbuilderr.Newf(mbuilderr.Extract, "no source directory found under %s after extraction", destDir).WithField(name)
}
