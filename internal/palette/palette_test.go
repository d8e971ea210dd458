package palette

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/swatchpath/internal/cluster"
	"github.com/jmylchreest/swatchpath/internal/colour"
)

func encodePNG(t *testing.T, size int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

// testPalette lays out a small palette directory and returns its root.
func testPalette(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "blocks", "stone.png"), encodePNG(t, 16, red))
	writeFile(t, filepath.Join(root, "blocks", "oak_log_top.png"), encodePNG(t, 16, green))
	writeFile(t, filepath.Join(root, "blocks", "oak_log_side.png"), encodePNG(t, 16, blue))
	writeFile(t, filepath.Join(root, "blocks", "torch.png"), encodePNG(t, 8, red))
	writeFile(t, filepath.Join(root, "blocks", "glass.png"), encodePNG(t, 16, color.NRGBA{R: 10, A: 100}))
	writeFile(t, filepath.Join(root, "items", "apple.png"), encodePNG(t, 16, red))
	writeFile(t, filepath.Join(root, "readme.txt"), []byte("not a texture"))
	return root
}

func TestParseName(t *testing.T) {
	tests := []struct {
		rel    string
		item   cluster.Item
		facing cluster.Facing
	}{
		{"stone.png", "stone", ""},
		{"blocks/oak_log_top.png", "blocks/oak_log", "top"},
		{"blocks\\furnace_FRONT.png", "blocks/furnace", "front"},
		{"blocks/red_sandstone.png", "blocks/red_sandstone", ""},
		{"blocks/_top.png", "blocks/_top", ""},
		{"./a/../b/grass_side.webp", "b/grass", "side"},
		{"no_ext", "no_ext", ""},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			item, facing := ParseName(tt.rel)
			assert.Equal(t, tt.item, item)
			assert.Equal(t, tt.facing, facing)
		})
	}
}

func TestMatcher(t *testing.T) {
	m := NewMatcher("blocks/*_ore", "items/*", " ", "stone")
	assert.Equal(t, 3, m.Len())

	assert.True(t, m.Match("blocks/iron_ore"))
	assert.True(t, m.Match("items/apple"))
	assert.True(t, m.Match("items/sub/dir"))
	assert.True(t, m.Match("stone"))
	assert.False(t, m.Match("blocks/stone"))
	assert.False(t, m.Match("blocks/iron_ore_block"))
	assert.False(t, (*Matcher)(nil).Match("x"))

	assert.True(t, NewMatcher("a.b").Match("a.b"))
	assert.False(t, NewMatcher("a.b").Match("axb"))
}

func samplesByKey(samples []cluster.Sample) map[string]cluster.Sample {
	out := make(map[string]cluster.Sample, len(samples))
	for _, s := range samples {
		out[string(s.Item)+"/"+string(s.Facing)] = s
	}
	return out
}

func TestLoadDirectory(t *testing.T) {
	root := testPalette(t)

	samples, err := NewLoader().Load(context.Background(), root)
	require.NoError(t, err)

	got := samplesByKey(samples)
	assert.Len(t, got, 4)
	assert.Contains(t, got, "blocks/stone/")
	assert.Contains(t, got, "blocks/oak_log/top")
	assert.Contains(t, got, "blocks/oak_log/side")
	assert.Contains(t, got, "items/apple/")
	assert.NotContains(t, got, "blocks/torch/", "small sprites are skipped")
	assert.NotContains(t, got, "blocks/glass/", "transparent textures are skipped")

	stone := got["blocks/stone/"]
	assert.Equal(t, 16, stone.Pixels.Width)
	assert.Equal(t, colour.RGB{R: 255}, stone.Pixels.At(3, 3))

	for i := 1; i < len(samples); i++ {
		assert.LessOrEqual(t, samples[i-1].Source, samples[i].Source)
	}
}

func TestLoadOptions(t *testing.T) {
	root := testPalette(t)

	samples, err := NewLoader(
		WithExclude("items/*"),
		WithMinTextureSize(4),
		WithAllowTransparent(true),
	).Load(context.Background(), root)
	require.NoError(t, err)

	got := samplesByKey(samples)
	assert.Contains(t, got, "blocks/torch/")
	assert.Contains(t, got, "blocks/glass/")
	assert.NotContains(t, got, "items/apple/")
}

func TestLoadNoTextures(t *testing.T) {
	root := testPalette(t)
	_, err := NewLoader(WithExclude("*")).Load(context.Background(), root)
	assert.ErrorIs(t, err, ErrNoTextures)

	_, err = NewLoader().Load(context.Background(), filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestLoadArchive(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"pack/stone.png":      encodePNG(t, 16, red),
		"pack/grass_top.png":  encodePNG(t, 16, green),
		"pack/grass_side.png": encodePNG(t, 16, blue),
		"pack/pack.mcmeta":    []byte("{}"),
		"pack/broken_up.png":  []byte("not a png"),
	})
	path := filepath.Join(t.TempDir(), "pack.zip")
	writeFile(t, path, data)

	samples, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	got := samplesByKey(samples)
	assert.Len(t, got, 3)
	assert.Contains(t, got, "pack/grass/top")
	assert.Equal(t, path+"!pack/stone.png", got["pack/stone/"].Source)

	plain := filepath.Join(t.TempDir(), "pack.rar")
	writeFile(t, plain, data)
	_, err = NewLoader().Load(context.Background(), plain)
	assert.Error(t, err)
}

func TestLoadArchiveDuplicateFaceLexicalOrder(t *testing.T) {
	// Members are written out of lexical order.
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range []struct {
		name string
		c    color.NRGBA
	}{
		{"pack/grass_top.png", green},
		{"pack/grass_TOP.png", red},
	} {
		w, err := zw.Create(m.name)
		require.NoError(t, err)
		_, err = w.Write(encodePNG(t, 16, m.c))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "pack.zip")
	writeFile(t, path, buf.Bytes())

	samples, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, path+"!pack/grass_TOP.png", samples[0].Source)
	assert.Equal(t, colour.RGB{R: 255}, samples[0].Pixels.At(0, 0))
}

func TestLoadURL(t *testing.T) {
	data := buildZip(t, map[string][]byte{"stone.png": encodePNG(t, 16, red)})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	l := NewLoader(WithCacheDir(t.TempDir()))
	l.cache.AllowInsecure = true
	load := l.LoaderFor(srv.URL + "/pack.zip")

	for range 2 {
		samples, err := load(context.Background())
		require.NoError(t, err)
		require.Len(t, samples, 1)
		assert.Equal(t, cluster.Item("stone"), samples[0].Item)
	}
	assert.Equal(t, int32(1), hits.Load(), "second load is served from the cache")

	_, err := NewLoader().Load(context.Background(), "http://127.0.0.1/pack.zip")
	assert.Error(t, err, "plain http and private hosts are rejected")
}

func TestWatcher(t *testing.T) {
	root := testPalette(t)

	var calls atomic.Int32
	w, err := NewWatcher(root, func() { calls.Add(1) }, WithDebounce(150*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, filepath.Join(root, "blocks", "dirt.png"), encodePNG(t, 16, red))
	writeFile(t, filepath.Join(root, "blocks", "sand.png"), encodePNG(t, 16, green))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "a burst of writes triggers one reload")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
