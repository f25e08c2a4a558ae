package assets_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"strings"
	"testing"

	"nrcms/internal/assets"
	"nrcms/internal/gendirs"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEncodeInlineSmallImage(t *testing.T) {
	dirs := gendirs.NewMemory()
	require.NoError(t, gendirs.WriteFile(dirs.Fs(), dirs.InSource("dot.png"), solidPNG(t, 40, 20)))
	svc := assets.New(dirs.Fs(), 0)

	size := 10
	url, n, err := svc.EncodeInline(dirs.InSource("dot.png"), &size)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)
	assert.Equal(t, len(url), n)
	assert.LessOrEqual(t, n, 1000)
}

func TestEncodeInlineDefaultSize(t *testing.T) {
	dirs := gendirs.NewMemory()
	require.NoError(t, gendirs.WriteFile(dirs.Fs(), dirs.InSource("noise.png"), noisyPNG(t, 50, 50)))
	svc := assets.New(dirs.Fs(), 0)

	url, n, err := svc.EncodeInline(dirs.InSource("noise.png"), nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
	assert.Greater(t, n, 1000)
}

func TestEncodeInlineMissingFile(t *testing.T) {
	dirs := gendirs.NewMemory()
	svc := assets.New(dirs.Fs(), 0)

	_, _, err := svc.EncodeInline(dirs.InSource("missing.png"), nil)
	require.Error(t, err)

	var assetErr *assets.Error
	require.True(t, errors.As(err, &assetErr))
	assert.Equal(t, "open", assetErr.Op)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEncodeInlineNotAnImage(t *testing.T) {
	dirs := gendirs.NewMemory()
	require.NoError(t, gendirs.WriteFile(dirs.Fs(), dirs.InSource("notes.png"), []byte("plain text")))
	svc := assets.New(dirs.Fs(), 0)

	_, _, err := svc.EncodeInline(dirs.InSource("notes.png"), nil)
	var assetErr *assets.Error
	require.True(t, errors.As(err, &assetErr))
	assert.Equal(t, "decode", assetErr.Op)
}

func TestEncodeInlineRefusesHugeTargets(t *testing.T) {
	dirs := gendirs.NewMemory()
	fs := dirs.Fs()
	require.NoError(t, gendirs.WriteFile(fs, dirs.InSource("small.png"), solidPNG(t, 20, 20)))
	require.NoError(t, gendirs.WriteFile(fs, dirs.InSource("tall.png"), solidPNG(t, 1, 100)))
	svc := assets.New(fs, 0)

	for _, tc := range []struct {
		name string
		size int
	}{
		{"small.png", 2000000000},
		{"small.png", assets.MaxSize + 1},
		{"tall.png", assets.MaxSize},
	} {
		size := tc.size
		_, _, err := svc.EncodeInline(dirs.InSource(tc.name), &size)
		require.Error(t, err, "%s at %d", tc.name, tc.size)

		var assetErr *assets.Error
		require.True(t, errors.As(err, &assetErr))
		assert.Equal(t, "resize", assetErr.Op)
		assert.True(t, errors.Is(err, assets.ErrTooLarge))
	}

	size := assets.MaxSize
	_, _, err := svc.EncodeInline(dirs.InSource("small.png"), &size)
	assert.NoError(t, err)
}

func TestCopyResizedRefusesHugeTargets(t *testing.T) {
	dirs := gendirs.NewMemory()
	fs := dirs.Fs()
	require.NoError(t, gendirs.WriteFile(fs, dirs.InSource("small.png"), solidPNG(t, 20, 20)))
	svc := assets.New(fs, 0)

	err := svc.CopyResized(dirs.InSource("small.png"), dirs.InGen("small.png"), 2000000000)
	assert.True(t, errors.Is(err, assets.ErrTooLarge))
	exists, err := afero.Exists(fs, dirs.InGen("small.png"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCopyResizedKeepsAspectRatio(t *testing.T) {
	dirs := gendirs.NewMemory()
	fs := dirs.Fs()
	require.NoError(t, gendirs.WriteFile(fs, dirs.InSource("img/wide.png"), solidPNG(t, 100, 50)))
	svc := assets.New(fs, 0)

	require.NoError(t, svc.CopyResized(dirs.InSource("img/wide.png"), dirs.InGen("img/wide.png"), 40))

	data, err := afero.ReadFile(fs, dirs.InGen("img/wide.png"))
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 20, cfg.Height)
}

func TestCopyResizedJPEG(t *testing.T) {
	dirs := gendirs.NewMemory()
	fs := dirs.Fs()
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	require.NoError(t, gendirs.WriteFile(fs, dirs.InSource("a.jpg"), buf.Bytes()))
	svc := assets.New(fs, 0)

	require.NoError(t, svc.CopyResized(dirs.InSource("a.jpg"), dirs.InGen("a.jpg"), 15))

	data, err := afero.ReadFile(fs, dirs.InGen("a.jpg"))
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestCopy(t *testing.T) {
	dirs := gendirs.NewMemory()
	fs := dirs.Fs()
	raw := solidPNG(t, 5, 5)
	require.NoError(t, gendirs.WriteFile(fs, dirs.InSource("a.png"), raw))
	svc := assets.New(fs, 0)

	require.NoError(t, svc.Copy(dirs.InSource("a.png"), dirs.InGen("nested/a.png")))
	data, err := afero.ReadFile(fs, dirs.InGen("nested/a.png"))
	require.NoError(t, err)
	assert.Equal(t, raw, data)

	assert.Error(t, svc.Copy(dirs.InSource("missing.png"), dirs.InGen("missing.png")))
}
