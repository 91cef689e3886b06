// Package archive assembles a .ppkg package archive from a stage tree:
// CONTROL/meta, CONTROL/manifest, an optional CONTROL/post-remove hook,
// and the payload, as one compressed tar.
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

// PackInput describes one package archive to assemble. PostRemoveScript,
// if non-empty, is copied into CONTROL/post-remove with executable
// permission; Pack fails if no file exists at that path.
type PackInput struct {
	StageDir         string
	Meta             Meta
	Comp             Compression
	PostRemoveScript string // optional source path on disk
	PackagesDir      string // destination directory for the finished .ppkg
}

// Pack assembles the package archive described by in and returns its path.
func Pack(in PackInput) (string, error) {
	manifest, err := BuildManifest(in.StageDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(in.PackagesDir, 0o755); err != nil {
		return "", mbuilderr.Wrap(mbuilderr.Io, "create packages directory", err).WithField(in.PackagesDir)
	}
	archivePath := filepath.Join(in.PackagesDir, in.Meta.ArchiveFilename())

	if in.Comp == CompBzip2 {
		return archivePath, packViaExternalBzip2(in, manifest, archivePath)
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return "", mbuilderr.Wrap(mbuilderr.Pack, "create archive file", err).WithField(archivePath)
	}
	defer out.Close()

	var w io.WriteCloser
	switch in.Comp {
	case CompGzip:
		w = gzip.NewWriter(out)
	case CompXz:
		xw, err := xz.NewWriter(out)
		if err != nil {
			return "", mbuilderr.Wrap(mbuilderr.Pack, "create xz writer", err)
		}
		w = xw
	case CompZstd:
		zw, err := zstd.NewWriter(out)
		if err != nil {
			return "", mbuilderr.Wrap(mbuilderr.Pack, "create zstd writer", err)
		}
		w = zw
	default:
		w = nopCloser{out}
	}

	if err := writeTar(w, in, manifest); err != nil {
		return "", mbuilderr.Wrap(mbuilderr.Pack, "write archive payload", err).WithField(archivePath)
	}
	if err := w.Close(); err != nil {
		return "", mbuilderr.Wrap(mbuilderr.Pack, "finalize compressed stream", err)
	}
	return archivePath, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// packViaExternalBzip2 writes an uncompressed tar to a temp file, then
// shells out to the bzip2(1) binary to compress it. No maintained pure-Go
// bzip2 encoder exists in the ecosystem (compress/bzip2 is decode-only), so
// this is treated like the other external subprocess collaborators
// (tar, patch, strip, ldconfig).
func packViaExternalBzip2(in PackInput, manifest *Manifest, archivePath string) error {
	bzip2Bin, err := exec.LookPath("bzip2")
	if err != nil {
		return mbuilderr.Wrap(mbuilderr.Pack, "bzip2 binary not found", err)
	}

	tmpTar, err := os.CreateTemp(filepath.Dir(archivePath), "mbuild-pkg-*.tar")
	if err != nil {
		return mbuilderr.Wrap(mbuilderr.Pack, "create temp tar", err)
	}
	tmpPath := tmpTar.Name()
	defer os.Remove(tmpPath)

	if err := writeTar(tmpTar, in, manifest); err != nil {
		tmpTar.Close()
		return mbuilderr.Wrap(mbuilderr.Pack, "write archive payload", err)
	}
	if err := tmpTar.Close(); err != nil {
		return mbuilderr.Wrap(mbuilderr.Pack, "close temp tar", err)
	}

	cmd := exec.Command(bzip2Bin, "-z", "-k", "-c", tmpPath)
	out, err := os.Create(archivePath)
	if err != nil {
		return mbuilderr.Wrap(mbuilderr.Pack, "create archive file", err).WithField(archivePath)
	}
	defer out.Close()
	var errOut bytes.Buffer
	cmd.Stdout = out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil && errOut.Len() > 0 {
		return mbuilderr.Newf(mbuilderr.Pack, "bzip2 failed: %v\noutput: %s", err, errOut.String())
	} else if err != nil {
		return mbuilderr.Wrap(mbuilderr.Pack, "run bzip2", err)
	}
	return nil
}

func writeTar(w io.Writer, in PackInput, manifest *Manifest) error {
	tw := tar.NewWriter(w)
	defer tw.Close()

	if err := writeBytes(tw, "CONTROL/meta", []byte(in.Meta.Encode())); err != nil {
		return err
	}
	if err := writeBytes(tw, "CONTROL/manifest", []byte(manifest.Lines())); err != nil {
		return err
	}
	if in.PostRemoveScript != "" {
		data, err := os.ReadFile(in.PostRemoveScript)
		if err != nil {
			return fmt.Errorf("read post-remove script: %w", err)
		}
		hdr := &tar.Header{Name: "CONTROL/post-remove", Mode: 0o755, Size: int64(len(data))}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(data); err != nil {
			return err
		}
	}

	for _, entry := range manifest.Entries {
		relPath := entry[len("./"):]
		fullPath := filepath.Join(in.StageDir, relPath)
		if err := writePayloadEntry(tw, fullPath, entry); err != nil {
			return fmt.Errorf("write payload entry %s: %w", entry, err)
		}
	}
	return nil
}

func writeBytes(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(data))}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

func writePayloadEntry(tw *tar.Writer, fullPath, archiveName string) error {
	info, err := os.Lstat(fullPath)
	if err != nil {
		return err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(fullPath)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, target)
		if err != nil {
			return err
		}
		hdr.Name = archiveName
		return tw.WriteHeader(hdr)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = archiveName
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}
