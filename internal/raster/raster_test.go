package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 255})
	img.SetNRGBA(2, 1, color.NRGBA{0, 0, 255, 128})
	return img
}

func TestLoadPNG(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lookup.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, testImage()))
	require.NoError(t, f.Close())

	bm, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "png", bm.Format)
	assert.Equal(t, path, bm.Path)
	assert.Equal(t, 3, bm.Width())
	assert.Equal(t, 2, bm.Height())
	assert.Equal(t, color.NRGBA{0, 0, 255, 128}, bm.Image.NRGBAAt(2, 1))
}

func TestDecodeBMP(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(1, 1, color.RGBA{10, 20, 30, 255})
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, src))

	bm, err := Decode(&buf, false)
	require.NoError(t, err)
	assert.Equal(t, "bmp", bm.Format)
	assert.Equal(t, color.NRGBA{10, 20, 30, 255}, bm.Image.NRGBAAt(1, 1))
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "failed to decode image")
}

func TestToNRGBARebasesOrigin(t *testing.T) {
	t.Parallel()

	sub := testImage().SubImage(image.Rect(1, 0, 3, 2))
	out := ToNRGBA(sub)
	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, out.NRGBAAt(0, 0))
}

func TestSupersample(t *testing.T) {
	t.Parallel()

	img := testImage()
	assert.Same(t, img, Supersample(img, 1))

	big := Supersample(img, 3)
	assert.Equal(t, image.Rect(0, 0, 9, 6), big.Bounds())
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			assert.Equal(t, img.NRGBAAt(0, 0), big.NRGBAAt(x, y))
			assert.Equal(t, img.NRGBAAt(2, 1), big.NRGBAAt(6+x, 3+y))
		}
	}
}
