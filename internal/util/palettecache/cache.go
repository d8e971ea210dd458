// Package palettecache downloads remote palette archives into a local cache.
package palettecache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/jmylchreest/swatchpath/internal/security"
	httputil "github.com/jmylchreest/swatchpath/internal/util/http"
)

// knownExtensions are kept on cached filenames so archives can be detected by name.
var knownExtensions = []string{".tar.gz", ".tar.xz", ".tar.bz2", ".tgz", ".txz", ".tbz2", ".zip"}

// CacheOptions configures download caching behavior.
type CacheOptions struct {
	// CacheDir is the directory where archives will be cached.
	// If empty, DefaultCacheDir is used.
	CacheDir string

	// Filename is the filename to use for the cached archive.
	// If empty, uses a hash of the URL plus its archive extension.
	Filename string

	// AllowOverwrite forces a fresh download even if a cached copy exists.
	AllowOverwrite bool

	// AllowInsecure skips the HTTPS and public host checks. Tests only.
	AllowInsecure bool

	// Fetch overrides the HTTP fetch options.
	Fetch httputil.FetchOptions
}

// DefaultCacheDir returns the default cache directory path under XDG_CACHE_HOME.
func DefaultCacheDir() (string, error) {
	marker, err := xdg.CacheFile(filepath.Join("swatchpath", "palettes", ".keep"))
	if err != nil {
		return "", fmt.Errorf("failed to determine cache directory: %w", err)
	}
	return filepath.Dir(marker), nil
}

// ArchiveExt returns the archive extension of name, or "".
func ArchiveExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range knownExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// generateFilename creates a deterministic filename from a URL.
func generateFilename(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	name := fmt.Sprintf("%x", hash[:16])

	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := ArchiveExt(path.Base(p))
	if ext == "" {
		ext = ".zip"
	}
	return name + ext
}

// DownloadAndCache downloads a remote archive and saves it to the cache directory.
// Returns the local file path where the archive was saved.
func DownloadAndCache(ctx context.Context, rawURL string, opts CacheOptions) (string, error) {
	if !opts.AllowInsecure {
		if err := security.ValidateHTTPURL(rawURL); err != nil {
			return "", err
		}
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		defaultDir, err := DefaultCacheDir()
		if err != nil {
			return "", err
		}
		cacheDir = defaultDir
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil { // #nosec G301 - Cache directory needs standard permissions
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	filename := opts.Filename
	if filename == "" {
		filename = generateFilename(rawURL)
	}
	cachedPath := filepath.Join(cacheDir, filename)

	if !opts.AllowOverwrite {
		if _, err := os.Stat(cachedPath); err == nil {
			return cachedPath, nil
		}
	}

	data, err := httputil.Fetch(ctx, rawURL, opts.Fetch)
	if err != nil {
		return "", fmt.Errorf("failed to download palette: %w", err)
	}

	// Write then rename so a partial download never looks cached.
	tmp := cachedPath + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { // #nosec G306 - Cache files need standard read permissions
		return "", fmt.Errorf("failed to write cached palette: %w", err)
	}
	if err := os.Rename(tmp, cachedPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write cached palette: %w", err)
	}

	return cachedPath, nil
}
