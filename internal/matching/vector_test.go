package matching

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDotTruncatesToShorterVector(t *testing.T) {
	assert.Equal(t, 1.0*4+2.0*5, Dot([]float64{1, 2, 3}, []float64{4, 5}))
	assert.Equal(t, 0.0, Dot(nil, []float64{1, 2}))
}

func TestNorm(t *testing.T) {
	assert.Equal(t, 5.0, Norm([]float64{3, 4}))
	assert.Equal(t, 0.0, Norm(nil))
}

func TestCosineIdentity(t *testing.T) {
	v := []float64{0.3, -1.2, 4.5}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-12)
}

func TestCosineZeroVectorIsZero(t *testing.T) {
	v := []float64{1, 2, 3}
	zero := []float64{0, 0, 0}

	assert.Equal(t, 0.0, Cosine(v, zero))
	assert.Equal(t, 0.0, Cosine(zero, v))
	assert.Equal(t, 0.0, Cosine(nil, v))
}

func TestCosineOrthogonalAndOpposite(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 0}, []float64{-1, 0}), 1e-12)
}

func TestValidVector(t *testing.T) {
	tests := []struct {
		name string
		v    []float64
		dim  int
		want bool
	}{
		{"valid with matching dim", []float64{1, 2, 3}, 3, true},
		{"valid with unconstrained dim", []float64{1, 2}, 0, true},
		{"empty", nil, 3, false},
		{"wrong dim", []float64{1, 2}, 3, false},
		{"all zero", []float64{0, 0, 0}, 3, false},
		{"NaN component", []float64{1, math.NaN(), 3}, 3, false},
		{"Inf component", []float64{1, math.Inf(1), 3}, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidVector(tt.v, tt.dim))
		})
	}
}
