package cleanup

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provmap/internal/segment"
)

func square(r image.Rectangle) *segment.Mask {
	m := segment.NewMask(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Set(x, y, true)
		}
	}
	return m
}

func TestDenoiseFillsPinhole(t *testing.T) {
	m := square(image.Rect(10, 10, 20, 20))
	m.Set(15, 15, false)

	out, err := Denoise(m, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, out.At(15, 15))
	assert.True(t, out.At(11, 11))
	// The 3x3 ellipse is a cross, so opening rounds off the four corners.
	assert.Equal(t, 96, out.Area())
}

func TestDenoiseRemovesSpeck(t *testing.T) {
	m := segment.NewMask(image.Rect(0, 0, 4, 4))
	m.Set(1, 1, true)

	out, err := Denoise(m, DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, out.Area())
}

func TestDenoiseClaimable(t *testing.T) {
	m := square(image.Rect(10, 10, 20, 20))
	m.Set(15, 15, false)

	opts := DefaultOptions()
	opts.Claimable = func(x, y int) bool { return false }
	out, err := Denoise(m, opts)
	require.NoError(t, err)
	assert.False(t, out.At(15, 15))
}

func TestDenoiseDisabled(t *testing.T) {
	m := square(image.Rect(0, 0, 2, 2))
	out, err := Denoise(m, Options{})
	require.NoError(t, err)
	assert.Same(t, m, out)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.Error(t, Options{KernelSize: 4, Iterations: 1}.Validate())
	assert.Error(t, Options{Iterations: -1}.Validate())
}
