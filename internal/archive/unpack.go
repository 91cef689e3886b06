package archive

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

// Unpack extracts archivePath (a .ppkg archive, any supported compression,
// detected from content) into destDir, preserving file modes and symlinks.
func Unpack(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return mbuilderr.Wrap(mbuilderr.Io, "open package archive", err).WithField(archivePath)
	}
	defer f.Close()

	header := make([]byte, 6)
	n, _ := io.ReadFull(f, header)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return mbuilderr.Wrap(mbuilderr.Io, "seek package archive", err)
	}

	var r io.Reader = f
	switch Sniff(header[:n]) {
	case CompGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return mbuilderr.Wrap(mbuilderr.Extract, "open gzip stream", err)
		}
		defer gz.Close()
		r = gz
	case CompBzip2:
		r = bzip2.NewReader(f)
	case CompXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return mbuilderr.Wrap(mbuilderr.Extract, "open xz stream", err)
		}
		r = xr
	case CompZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return mbuilderr.Wrap(mbuilderr.Extract, "open zstd stream", err)
		}
		defer zr.Close()
		r = zr
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return mbuilderr.Wrap(mbuilderr.Io, "create extraction directory", err).WithField(destDir)
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return mbuilderr.Wrap(mbuilderr.Extract, "read package tar header", err)
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		target := filepath.Join(destDir, name)
		if !isWithinDir(target, destDir) {
			return mbuilderr.Newf(mbuilderr.Extract, "archive entry escapes destination: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeSymlink:
			os.MkdirAll(filepath.Dir(target), 0o755)
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(hdr.Mode&0o777))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
			os.Chtimes(target, hdr.ModTime, hdr.ModTime)
		}
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
