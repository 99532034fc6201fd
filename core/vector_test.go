package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "scaled copy", a: []float32{1, 2, 3}, b: []float32{2, 4, 6}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero norm left", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "zero norm right", a: []float32{1, 1}, b: []float32{0, 0}, want: 0},
		{name: "length mismatch", a: []float32{1, 1}, b: []float32{1, 1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
		{name: "45 degrees", a: []float32{1, 0}, b: []float32{1, 1}, want: float32(1 / math.Sqrt(2))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{0.3, -0.2, 0.9, 0.1}
	b := []float32{-0.5, 0.4, 0.2, 0.8}
	assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
}

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name     string
		input    []float32
		expected []float32
	}{
		{name: "unit vector remains unchanged", input: []float32{1, 0, 0}, expected: []float32{1, 0, 0}},
		{name: "scale non-unit vector", input: []float32{3, 4}, expected: []float32{0.6, 0.8}},
		{name: "negative values", input: []float32{-1, 1}, expected: []float32{-1 / float32(math.Sqrt(2)), 1 / float32(math.Sqrt(2))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeVector(tt.input)
			require.Len(t, result, len(tt.expected))
			for i := range result {
				assert.InDelta(t, tt.expected[i], result[i], 1e-6, "element %d", i)
			}
		})
	}
}

func TestNormalizeVector_ZeroVector(t *testing.T) {
	input := []float32{0, 0, 0}
	result := NormalizeVector(input)
	assert.Equal(t, []float32{0, 0, 0}, result)

	input[0] = 5
	assert.Equal(t, float32(0), result[0], "result must not alias input")
}

func TestNormalizeVector_Empty(t *testing.T) {
	assert.Empty(t, NormalizeVector(nil))
}
