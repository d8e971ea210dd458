package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jmylchreest/swatchpath/internal/cluster"
	"github.com/jmylchreest/swatchpath/internal/colour"
	"github.com/jmylchreest/swatchpath/internal/gradient"
	"github.com/jmylchreest/swatchpath/internal/palette"
	"github.com/jmylchreest/swatchpath/internal/statscache"
	"github.com/jmylchreest/swatchpath/internal/util"
)

// paletteFlags are shared by every command that loads a palette.
type paletteFlags struct {
	exclude          []string
	estimator        string
	cache            string
	noCache          bool
	minSize          int
	allowTransparent bool
	refresh          bool
}

func (f *paletteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.exclude, "exclude", "x", nil, "exclude items matching a '*' pattern (repeatable)")
	cmd.Flags().StringVar(&f.estimator, "estimator", "median", "robust colour estimator (median, kmeans, dominantcolor)")
	cmd.Flags().StringVar(&f.cache, "cache", "", "stats cache database (default: $XDG_CACHE_HOME/swatchpath/stats.db)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "do not read or write the stats cache")
	cmd.Flags().IntVar(&f.minSize, "min-size", palette.DefaultMinTextureSize, "skip textures smaller than this many pixels per side")
	cmd.Flags().BoolVar(&f.allowTransparent, "allow-transparent", false, "keep textures with transparent pixels")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "download remote palettes again")
}

// paletteSession is a loaded palette plus the resources backing it.
type paletteSession struct {
	source   string
	session  *cluster.Session
	textures *textureStore
	config   gradient.Config
	logger   hclog.Logger
	stats    *statscache.Cache
}

// openPalette resolves configuration and prepares a lazily loaded session.
func openPalette(cmd *cobra.Command, source string, f *paletteFlags, logger hclog.Logger) (*paletteSession, error) {
	fc, err := loadFileConfig(globalConfig)
	if err != nil {
		return nil, err
	}

	thresholds, err := fc.thresholds()
	if err != nil {
		return nil, err
	}
	gcfg, err := fc.gradientConfig()
	if err != nil {
		return nil, err
	}

	estimator, err := fc.estimator()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("estimator") {
		if estimator, err = colour.ParseEstimator(f.estimator); err != nil {
			return nil, err
		}
	}

	minSize := f.minSize
	if !cmd.Flags().Changed("min-size") && fc.MinTextureSize > 0 {
		minSize = fc.MinTextureSize
	}

	loaderOpts := []palette.Option{
		palette.WithLogger(logger),
		palette.WithMinTextureSize(minSize),
		palette.WithExclude(fc.Exclude...),
		palette.WithExclude(f.exclude...),
		palette.WithAllowTransparent(f.allowTransparent || fc.AllowTransparent),
		palette.WithRefresh(f.refresh),
	}
	if fc.CacheDir != "" {
		loaderOpts = append(loaderOpts, palette.WithCacheDir(fc.CacheDir))
	}
	loader := palette.NewLoader(loaderOpts...)

	ps := &paletteSession{
		source:   source,
		textures: &textureStore{},
		config:   gcfg,
		logger:   logger,
	}

	clusterOpts := []cluster.Option{
		cluster.WithThresholds(thresholds),
		cluster.WithEstimator(estimator),
		cluster.WithLogger(logger),
	}
	if !f.noCache {
		if stats := openStatsCache(f.cache, fc.StatsCache, logger); stats != nil {
			ps.stats = stats
			clusterOpts = append(clusterOpts, cluster.WithStatsCache(stats))
		}
	}

	ps.session = cluster.NewSession(ps.textures.wrap(loader.LoaderFor(source)), clusterOpts...)
	return ps, nil
}

// openStatsCache opens the first configured path. Failures disable caching.
func openStatsCache(flagPath, filePath string, logger hclog.Logger) *statscache.Cache {
	path := flagPath
	if path == "" {
		path = filePath
	}
	if path == "" {
		p, err := statscache.DefaultPath()
		if err != nil {
			logger.Warn("stats cache disabled", "error", err)
			return nil
		}
		path = p
	}
	c, err := statscache.Open(path, logger)
	if err != nil {
		logger.Warn("stats cache disabled", "path", path, "error", err)
		return nil
	}
	return c
}

// Close releases the stats cache.
func (ps *paletteSession) Close() error {
	if ps.stats != nil {
		return ps.stats.Close()
	}
	return nil
}

// resolve finds the entry for an item id or, for a hex colour, the entry
// nearest to it in the variant's feature space.
func (ps *paletteSession) resolve(ctx context.Context, endpoint string, v cluster.Variant) (*cluster.Entry, error) {
	p, err := ps.session.Palette(ctx)
	if err != nil {
		return nil, err
	}
	if e, ok := p.EntryFor(cluster.Item(endpoint)); ok {
		return e, nil
	}
	if !util.LooksLikeHex(endpoint) {
		return nil, fmt.Errorf("%w: %s", gradient.ErrUnknownItem, endpoint)
	}

	c, err := colorful.Hex("#" + util.StripHash(endpoint))
	if err != nil {
		return nil, fmt.Errorf("invalid colour %q: %w", endpoint, err)
	}
	idx, err := ps.session.Index(ctx, v)
	if err != nil {
		return nil, err
	}
	nearest := idx.Nearest(r3.Vec{X: c.R, Y: c.G, Z: c.B}, 1)
	if len(nearest) == 0 {
		return nil, fmt.Errorf("no %s entries near %s", v, endpoint)
	}
	ps.logger.Debug("resolved colour", "colour", endpoint, "entry", nearest[0])
	return nearest[0], nil
}

// engine builds a gradient engine between two endpoint specs. A palette
// reload during the build is retried once.
func (ps *paletteSession) engine(ctx context.Context, from, to string, v cluster.Variant) (*gradient.Engine, error) {
	var err error
	for range 2 {
		var src, dst *cluster.Entry
		if src, err = ps.resolve(ctx, from, v); err != nil {
			return nil, err
		}
		if dst, err = ps.resolve(ctx, to, v); err != nil {
			return nil, err
		}
		var e *gradient.Engine
		e, err = gradient.BuildFromSessionEntries(ctx, ps.session, src, dst, v,
			gradient.WithConfig(ps.config), gradient.WithLogger(ps.logger))
		if !errors.Is(err, gradient.ErrPaletteChanged) {
			return e, err
		}
	}
	return nil, err
}

// textureStore remembers the pixels of the last loaded samples by source.
type textureStore struct {
	mu       sync.Mutex
	bySource map[string]*colour.PixelBuffer
}

func (t *textureStore) wrap(load cluster.Loader) cluster.Loader {
	return func(ctx context.Context) ([]cluster.Sample, error) {
		samples, err := load(ctx)
		if err != nil {
			return nil, err
		}
		bySource := make(map[string]*colour.PixelBuffer, len(samples))
		for _, s := range samples {
			bySource[s.Source] = s.Pixels
		}
		t.mu.Lock()
		t.bySource = bySource
		t.mu.Unlock()
		return samples, nil
	}
}

// lookup returns the texture of the sample whose statistics the entry kept.
func (t *textureStore) lookup(e *cluster.Entry) *colour.PixelBuffer {
	sources := e.Sources()
	if len(sources) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bySource[sources[0]]
}

// parseVariant wraps cluster.ParseVariant with a flag-friendly error.
func parseVariant(s string) (cluster.Variant, error) {
	v, err := cluster.ParseVariant(s)
	if err != nil {
		return v, fmt.Errorf("invalid variant: %w", err)
	}
	return v, nil
}
