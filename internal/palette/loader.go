// Package palette loads texture palettes from directories, archives and
// remote URLs into cluster samples.
package palette

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdimage "image"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/swatchpath/internal/cluster"
	"github.com/jmylchreest/swatchpath/internal/colour"
	"github.com/jmylchreest/swatchpath/internal/compression"
	"github.com/jmylchreest/swatchpath/internal/image"
	"github.com/jmylchreest/swatchpath/internal/security"
	httputil "github.com/jmylchreest/swatchpath/internal/util/http"
	"github.com/jmylchreest/swatchpath/internal/util/palettecache"
)

// DefaultMinTextureSize is the smallest width and height a texture may have.
const DefaultMinTextureSize = 16

// DefaultMaxArchiveSize bounds local archive files read into memory.
const DefaultMaxArchiveSize = 1 << 30

// ErrNoTextures is returned when a source yields no usable textures.
var ErrNoTextures = errors.New("no usable textures in palette")

// Option configures a Loader.
type Option func(*Loader)

// WithMinTextureSize skips textures narrower or shorter than n pixels.
func WithMinTextureSize(n int) Option {
	return func(l *Loader) { l.minSize = n }
}

// WithExclude drops items matching any of the '*' patterns.
func WithExclude(patterns ...string) Option {
	return func(l *Loader) { l.patterns = append(l.patterns, patterns...) }
}

// WithAllowTransparent keeps textures that have transparent pixels.
func WithAllowTransparent(allow bool) Option {
	return func(l *Loader) { l.allowTransparent = allow }
}

// WithCacheDir sets where remote archives are cached.
func WithCacheDir(dir string) Option {
	return func(l *Loader) { l.cache.CacheDir = dir }
}

// WithRefresh forces remote archives to be downloaded again.
func WithRefresh(refresh bool) Option {
	return func(l *Loader) { l.cache.AllowOverwrite = refresh }
}

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader decodes textures into samples.
type Loader struct {
	minSize          int
	allowTransparent bool
	patterns         []string
	exclude          *Matcher
	cache            palettecache.CacheOptions
	logger           hclog.Logger
}

// NewLoader creates a Loader with the default sprite filter.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		minSize: DefaultMinTextureSize,
		logger:  hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.exclude = NewMatcher(l.patterns...)
	return l
}

// LoaderFor returns a cluster.Loader reading source on every call.
func (l *Loader) LoaderFor(source string) cluster.Loader {
	return func(ctx context.Context) ([]cluster.Sample, error) {
		return l.Load(ctx, source)
	}
}

// IsRemote reports whether source is an http(s) URL.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "https://") || strings.HasPrefix(source, "http://")
}

// Load reads a directory, an archive file, or an archive URL. Samples are
// ordered by source path so identical inputs produce identical palettes.
func (l *Loader) Load(ctx context.Context, source string) ([]cluster.Sample, error) {
	var (
		c   collector
		err error
	)
	c.loader = l

	switch {
	case IsRemote(source):
		err = l.loadURL(ctx, source, &c)
	default:
		info, statErr := os.Stat(source)
		if statErr != nil {
			return nil, fmt.Errorf("failed to access palette: %w", statErr)
		}
		if info.IsDir() {
			err = l.loadDir(ctx, source, &c)
		} else {
			err = l.loadArchiveFile(ctx, source, &c)
		}
	}
	if err != nil {
		return nil, err
	}

	samples := c.result()
	l.logger.Info("palette loaded", "source", source, "samples", len(samples),
		"skipped", c.skipped, "excluded", c.excluded)
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTextures, source)
	}
	return samples, nil
}

func (l *Loader) loadDir(ctx context.Context, root string, c *collector) error {
	files, err := image.ScanDirectoryForImages(root)
	if err != nil {
		return fmt.Errorf("failed to scan palette: %w", err)
	}
	slices.SortFunc(files, func(a, b string) int {
		return strings.Compare(filepath.ToSlash(a), filepath.ToSlash(b))
	})
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, file)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", file, err)
		}
		f, err := os.Open(file) // #nosec G304 - Texture inside the user-selected palette
		if err != nil {
			l.logger.Debug("skipping unreadable texture", "path", file, "error", err)
			c.skipped++
			continue
		}
		c.add(filepath.ToSlash(rel), file, f)
		f.Close()
	}
	return nil
}

func (l *Loader) loadArchiveFile(ctx context.Context, path string, c *collector) error {
	if !compression.IsArchive(path) {
		return fmt.Errorf("%w: %s", compression.ErrUnsupportedFormat, path)
	}
	f, err := os.Open(path) // #nosec G304 - User-selected palette archive
	if err != nil {
		return fmt.Errorf("failed to open palette archive: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(security.NewLimitedReader(f, DefaultMaxArchiveSize))
	if err != nil {
		return fmt.Errorf("failed to read palette archive: %w", err)
	}
	l.logger.Debug("reading archive", "path", path, "size", humanize.Bytes(uint64(len(data))))
	return l.walkArchive(ctx, data, path, c)
}

// walkArchive adds image members in lexical order, so the first of two
// members naming the same item face is the same as for a directory.
func (l *Loader) walkArchive(ctx context.Context, data []byte, name string, c *collector) error {
	type member struct {
		name string
		data []byte
	}
	var members []member
	err := compression.Walk(data, name, func(path string, r io.Reader) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !image.IsImageFile(path) {
			return nil
		}
		body, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		members = append(members, member{path, body})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read palette archive: %w", err)
	}

	slices.SortStableFunc(members, func(a, b member) int {
		return strings.Compare(a.name, b.name)
	})
	for _, m := range members {
		c.add(m.name, name+"!"+m.name, bytes.NewReader(m.data))
	}
	return nil
}

func (l *Loader) loadURL(ctx context.Context, url string, c *collector) error {
	if !compression.IsArchive(url) {
		return fmt.Errorf("%w: %s", compression.ErrUnsupportedFormat, url)
	}
	path, err := palettecache.DownloadAndCache(ctx, url, l.cache)
	if err != nil {
		return err
	}
	l.logger.Debug("using cached archive", "url", url, "path", path)
	return l.loadArchiveFile(ctx, path, c)
}

// collector accumulates samples, keeping the first texture for each item face.
type collector struct {
	loader   *Loader
	samples  []cluster.Sample
	seen     map[string]struct{}
	skipped  int
	excluded int
}

func (c *collector) add(rel, source string, r io.Reader) {
	l := c.loader
	item, facing := ParseName(rel)
	if l.exclude.Match(item) {
		c.excluded++
		return
	}
	key := string(item) + "\x00" + string(facing)
	if _, dup := c.seen[key]; dup {
		l.logger.Debug("duplicate texture", "item", item, "facing", facing, "source", source)
		return
	}

	img, err := image.Decode(r)
	if err != nil {
		l.logger.Debug("skipping undecodable texture", "source", source, "error", err)
		c.skipped++
		return
	}
	b := img.Bounds()
	if b.Dx() < l.minSize || b.Dy() < l.minSize {
		l.logger.Trace("skipping small texture", "source", source, "width", b.Dx(), "height", b.Dy())
		c.skipped++
		return
	}
	if !l.allowTransparent && !opaque(img) {
		l.logger.Trace("skipping transparent texture", "source", source)
		c.skipped++
		return
	}

	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	c.seen[key] = struct{}{}
	c.samples = append(c.samples, cluster.Sample{
		Item:   item,
		Facing: facing,
		Source: source,
		Pixels: colour.FromImage(img),
	})
}

func (c *collector) result() []cluster.Sample {
	slices.SortStableFunc(c.samples, func(a, b cluster.Sample) int {
		return strings.Compare(a.Source, b.Source)
	})
	return c.samples
}

func opaque(img stdimage.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}
