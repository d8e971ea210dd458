package compression

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/jmylchreest/swatchpath/internal/security"
)

type member struct {
	name string
	body string
}

var members = []member{
	{"blocks/stone.png", "stone"},
	{"blocks/dirt.png", "dirt"},
	{"readme.txt", "hello"},
}

func buildZip(t *testing.T, files []member) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("blocks/")
	require.NoError(t, err)
	for _, m := range files {
		w, err := zw.Create(m.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(m.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeTar(t *testing.T, w io.Writer, files []member) {
	t.Helper()
	tw := tar.NewWriter(w)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "blocks/", Typeflag: tar.TypeDir, Mode: 0o755}))
	for _, m := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: m.name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(m.body))}))
		_, err := tw.Write([]byte(m.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
}

func buildTarGz(t *testing.T, files []member) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	writeTar(t, gw, files)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func buildTarXz(t *testing.T, files []member) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	writeTar(t, xw, files)
	require.NoError(t, xw.Close())
	return buf.Bytes()
}

func collect(t *testing.T, data []byte, name string) map[string]string {
	t.Helper()
	got := map[string]string{}
	err := Walk(data, name, func(n string, r io.Reader) error {
		b, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		got[n] = string(b)
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestWalkFormats(t *testing.T) {
	want := map[string]string{}
	for _, m := range members {
		want[m.name] = m.body
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"pack.zip", buildZip(t, members)},
		{"pack.tar.gz", buildTarGz(t, members)},
		{"pack.tgz", buildTarGz(t, members)},
		{"pack.tar.xz", buildTarXz(t, members)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, want, collect(t, tt.data, tt.name))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"a.zip":                   FormatZip,
		"A.ZIP":                   FormatZip,
		"pack.jar":                FormatZip,
		"a.tar.gz":                FormatTarGz,
		"a.tgz":                   FormatTarGz,
		"a.tar.xz":                FormatTarXz,
		"a.tar.bz2":               FormatTarBz2,
		"a.tbz2":                  FormatTarBz2,
		"https://x.io/a.zip?dl=1": FormatZip,
		"a.png":                   FormatUnknown,
		"directory":               FormatUnknown,
	}
	for name, want := range tests {
		assert.Equal(t, want, DetectFormat(name), name)
	}
	assert.True(t, IsArchive("a.tar.xz"))
	assert.False(t, IsArchive("a.png"))
}

func TestWalkUnsupported(t *testing.T) {
	err := Walk([]byte("x"), "pack.rar", func(string, io.Reader) error { return nil })
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWalkRejectsTraversal(t *testing.T) {
	data := buildZip(t, []member{{"../evil.png", "x"}})
	err := Walk(data, "pack.zip", func(string, io.Reader) error { return nil })
	assert.Error(t, err)

	data = buildTarGz(t, []member{{"/etc/evil.png", "x"}})
	err = Walk(data, "pack.tar.gz", func(string, io.Reader) error { return nil })
	assert.Error(t, err)
}

func TestWalkSizeLimit(t *testing.T) {
	data := buildTarGz(t, []member{{"big.png", string(bytes.Repeat([]byte("x"), 100))}})
	err := WalkWithOptions(data, "pack.tar.gz", Options{MaxEntrySize: 10}, func(_ string, r io.Reader) error {
		_, err := io.ReadAll(r)
		return err
	})
	assert.True(t, errors.Is(err, security.ErrSizeLimit), "got %v", err)
}

func TestWalkSkipAll(t *testing.T) {
	seen := 0
	err := Walk(buildZip(t, members), "pack.zip", func(string, io.Reader) error {
		seen++
		return SkipAll
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}
