package archive

import (
	"fmt"
	"os"
)

// Compression is a closed enum of supported package archive codecs,
// resolved once at configuration time rather than re-interpreted whenever
// a package happens to be written.
type Compression int

const (
	CompNone Compression = iota
	CompGzip
	CompBzip2
	CompXz
	CompZstd
)

// ParseCompression maps the pkg_comp configuration string to a
// Compression value. An unrecognized value degrades to CompNone with a
// warning, at config-resolution time rather than at archive-write time.
func ParseCompression(s string) Compression {
	switch s {
	case "none", "":
		return CompNone
	case "gzip", "gz":
		return CompGzip
	case "bzip2", "bz2":
		return CompBzip2
	case "xz":
		return CompXz
	case "zstd", "zst":
		return CompZstd
	default:
		fmt.Fprintf(os.Stderr, "warning: unrecognized pkg_comp %q, disabling compression\n", s)
		return CompNone
	}
}

// Suffix returns the conventional tar file extension for this compression,
// e.g. ".tar.zst". Package archive names do not use it; they always end in
// ".ppkg".
func (c Compression) Suffix() string {
	switch c {
	case CompGzip:
		return ".tar.gz"
	case CompBzip2:
		return ".tar.bz2"
	case CompXz:
		return ".tar.xz"
	case CompZstd:
		return ".tar.zst"
	default:
		return ".tar"
	}
}

// Sniff identifies a stream's compression from its leading magic bytes.
// Package archive filenames are always ".ppkg" regardless of the codec
// used inside, so the installer must detect the codec from content, not
// from the filename.
func Sniff(header []byte) Compression {
	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		return CompGzip
	case len(header) >= 3 && header[0] == 'B' && header[1] == 'Z' && header[2] == 'h':
		return CompBzip2
	case len(header) >= 6 && header[0] == 0xfd && header[1] == '7' && header[2] == 'z' && header[3] == 'X' && header[4] == 'Z' && header[5] == 0x00:
		return CompXz
	case len(header) >= 4 && header[0] == 0x28 && header[1] == 0xb5 && header[2] == 0x2f && header[3] == 0xfd:
		return CompZstd
	default:
		return CompNone
	}
}
