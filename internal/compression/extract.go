// Package compression walks the regular files of palette archives in memory.
package compression

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ulikunitz/xz"
)

// DefaultMaxEntrySize limits how many bytes a single archive member may
// decompress to.
const DefaultMaxEntrySize = 64 << 20

// ErrUnsupportedFormat is returned for names without a known archive extension.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// Format is an archive container and compression pair.
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatTarGz
	FormatTarXz
	FormatTarBz2
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTarGz:
		return "tar.gz"
	case FormatTarXz:
		return "tar.xz"
	case FormatTarBz2:
		return "tar.bz2"
	default:
		return "unknown"
	}
}

// WalkFunc is called for each regular file. name is cleaned and relative.
// The reader is only valid for the duration of the call.
type WalkFunc func(name string, r io.Reader) error

// SkipAll stops a walk early without reporting an error.
var SkipAll = errors.New("skip remaining archive entries")

// DetectFormat returns the archive format implied by a filename or URL path.
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return FormatTarXz
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz"), strings.HasSuffix(lower, ".tbz2"):
		return FormatTarBz2
	case strings.HasSuffix(lower, ".zip"), strings.HasSuffix(lower, ".jar"):
		return FormatZip
	}
	return FormatUnknown
}

// IsArchive reports whether name has a supported archive extension.
func IsArchive(name string) bool {
	return DetectFormat(name) != FormatUnknown
}

// Options configures Walk.
type Options struct {
	// MaxEntrySize caps the decompressed size of each member.
	// If zero, DefaultMaxEntrySize is used.
	MaxEntrySize int64
}

// Walk calls fn for every regular file in the archive held in data. The
// format is detected from name. Members with unsafe paths are rejected.
func Walk(data []byte, name string, fn WalkFunc) error {
	return WalkWithOptions(data, name, Options{}, fn)
}

// WalkWithOptions is Walk with explicit limits.
func WalkWithOptions(data []byte, name string, opts Options, fn WalkFunc) error {
	limit := opts.MaxEntrySize
	if limit == 0 {
		limit = DefaultMaxEntrySize
	}

	var err error
	switch format := DetectFormat(name); format {
	case FormatZip:
		err = walkZip(data, limit, fn)
	case FormatTarGz:
		gzr, gerr := gzip.NewReader(bytes.NewReader(data))
		if gerr != nil {
			return fmt.Errorf("failed to create gzip reader: %w", gerr)
		}
		defer gzr.Close()
		err = walkTar(gzr, limit, fn)
	case FormatTarXz:
		xzr, xerr := xz.NewReader(bytes.NewReader(data))
		if xerr != nil {
			return fmt.Errorf("failed to create xz reader: %w", xerr)
		}
		err = walkTar(xzr, limit, fn)
	case FormatTarBz2:
		err = walkTar(bzip2.NewReader(bytes.NewReader(data)), limit, fn)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	if errors.Is(err, SkipAll) {
		return nil
	}
	return err
}
