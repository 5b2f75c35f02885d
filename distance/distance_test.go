package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float32
	}{
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "identical unit", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "mixed", a: []float32{1, 2, 3}, b: []float32{4, 5, 6}, want: 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Dot(tt.a, tt.b), 1e-6)
		})
	}
}

func TestSquaredL2(t *testing.T) {
	assert.InDelta(t, float32(0), SquaredL2([]float32{1, 2}, []float32{1, 2}), 1e-6)
	assert.InDelta(t, float32(2), SquaredL2([]float32{1, 0}, []float32{0, 1}), 1e-6)
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	ok := NormalizeL2InPlace(v)
	require.True(t, ok)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, math.Sqrt(float64(Dot(v, v))), 1e-6)

	// Zero vector cannot be normalized.
	ok = NormalizeL2InPlace([]float32{0, 0, 0})
	assert.False(t, ok)

	// Copy variant leaves the source untouched.
	src := []float32{0, 5}
	dst, ok := NormalizeL2Copy(src)
	require.True(t, ok)
	assert.Equal(t, []float32{0, 5}, src)
	assert.InDelta(t, 1.0, dst[1], 1e-6)

	_, ok = NormalizeL2Copy(nil)
	assert.False(t, ok)
}

func TestProvider(t *testing.T) {
	fn, err := Provider(MetricCosine)
	require.NoError(t, err)
	assert.InDelta(t, float32(1), fn([]float32{1, 0}, []float32{1, 0}), 1e-6)

	_, err = Provider(Metric(42))
	assert.Error(t, err)
}
