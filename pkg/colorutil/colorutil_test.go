package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRGBA(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ff8000", color.NRGBA{255, 128, 0, 255}},
		{"FF8000", color.NRGBA{255, 128, 0, 255}},
		{"#ff800080", color.NRGBA{255, 128, 0, 128}},
		{"255,128,0", color.NRGBA{255, 128, 0, 255}},
		{"255, 128, 0, 10", color.NRGBA{255, 128, 0, 10}},
		{"1;2;3", color.NRGBA{1, 2, 3, 255}},
		{"  4 5 6 7 ", color.NRGBA{4, 5, 6, 7}},
	}
	for _, tt := range tests {
		got, err := ParseRGBA(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseRGBAErrors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "#ff80", "256,0,0", "1,2", "1,2,3,4,5", "red", "#gg0000"} {
		_, err := ParseRGBA(in)
		assert.Error(t, err, "%q should not parse", in)
	}
}

func TestHex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0a0b0c", Hex(color.NRGBA{10, 11, 12, 255}))
	assert.Equal(t, "0a0b0c80", Hex(color.NRGBA{10, 11, 12, 128}))
	assert.Equal(t, "#0a0b0c", CSS(color.NRGBA{10, 11, 12, 0}))
	assert.InDelta(t, 1, Opacity(color.NRGBA{A: 255}), 1e-9)
	assert.InDelta(t, 0.502, Opacity(color.NRGBA{A: 128}), 1e-3)
	assert.Zero(t, Opacity(Transparent))
}

func TestDistanceMetrics(t *testing.T) {
	t.Parallel()

	a := color.NRGBA{100, 100, 100, 255}
	b := color.NRGBA{103, 96, 100, 255}

	assert.InDelta(t, 4, Distance(a, b, MetricMax), 1e-9)
	assert.InDelta(t, 5, Distance(a, b, MetricEuclidean), 1e-9)
	assert.Greater(t, Distance(a, b, MetricLab), 0.0)
	assert.Zero(t, Distance(a, a, MetricLab))

	assert.True(t, Within(a, b, 4, MetricMax))
	assert.False(t, Within(a, b, 3, MetricMax))
	assert.True(t, Within(a, a, 0, MetricEuclidean))

	// Alpha differences count under every metric.
	translucent := color.NRGBA{100, 100, 100, 0}
	for _, m := range []Metric{MetricMax, MetricEuclidean, MetricLab} {
		assert.GreaterOrEqual(t, Distance(a, translucent, m), 255.0, string(m))
	}
}

func TestParseMetric(t *testing.T) {
	t.Parallel()

	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricMax, m)

	m, err = ParseMetric(" LAB ")
	require.NoError(t, err)
	assert.Equal(t, MetricLab, m)

	_, err = ParseMetric("hsv")
	assert.Error(t, err)
}
