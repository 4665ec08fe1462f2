package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpZeroPadded(t *testing.T) {
	vals := []float32{1, 2, 3, 4}
	assert.Equal(t, float32(0), Interp(vals, -5))
	assert.Equal(t, float32(0), Interp(vals, 10))
}

func TestInterpExactSamples(t *testing.T) {
	vals := []float32{1, 2, 3, 4}
	for i, v := range vals {
		assert.InDelta(t, float64(v), float64(Interp(vals, float64(i))), 1e-5)
	}
}

func TestInterpLinExactSamples(t *testing.T) {
	vals := []float32{1, 2, 3, 4}
	for i, v := range vals {
		assert.InDelta(t, float64(v), float64(InterpLin(vals, float64(i))), 1e-5)
	}
	assert.InDelta(t, 1.5, float64(InterpLin(vals, 0.5)), 1e-5)
}

func trivialRunningMin(src []float32, filterlen int) []float32 {
	dst := make([]float32, len(src)-filterlen+1)
	for i := range dst {
		acc := src[i]
		for j := 1; j < filterlen; j++ {
			acc = minFloat32(acc, src[i+j])
		}
		dst[i] = acc
	}
	return dst
}

func trivialRunningMax(src []float32, filterlen int) []float32 {
	dst := make([]float32, len(src)-filterlen+1)
	for i := range dst {
		acc := src[i]
		for j := 1; j < filterlen; j++ {
			acc = maxFloat32(acc, src[i+j])
		}
		dst[i] = acc
	}
	return dst
}

func TestRunningMinMatchesTrivial(t *testing.T) {
	src := make([]float32, 37)
	for i := range src {
		src[i] = float32(math.Sin(float64(i) * 0.7))
	}
	for _, filterlen := range []int{1, 3, 4, 5, 7, 11} {
		got := RunningMin(src, filterlen)
		want := trivialRunningMin(src, filterlen)
		require.Equal(t, len(want), len(got))
		for i := range want {
			assert.InDelta(t, want[i], got[i], 1e-6, "filterlen=%d i=%d", filterlen, i)
		}
	}
}

func TestRunningMaxMatchesTrivial(t *testing.T) {
	src := make([]float32, 41)
	for i := range src {
		src[i] = float32(math.Cos(float64(i) * 0.3))
	}
	for _, filterlen := range []int{1, 3, 4, 5, 9} {
		got := RunningMax(src, filterlen)
		want := trivialRunningMax(src, filterlen)
		require.Equal(t, len(want), len(got))
		for i := range want {
			assert.InDelta(t, want[i], got[i], 1e-6, "filterlen=%d i=%d", filterlen, i)
		}
	}
}

func TestHannLowpassConstantInputPreserved(t *testing.T) {
	src := make([]float32, 50)
	for i := range src {
		src[i] = 2.5
	}
	out := HannLowpass(src, 9)
	for i, v := range out {
		assert.InDelta(t, 2.5, float64(v), 1e-3, "i=%d", i)
	}
}

func TestHannLowpassOutputLength(t *testing.T) {
	src := make([]float32, 100)
	out := HannLowpass(src, 15)
	assert.Equal(t, 100-15+1, len(out))
}

func TestHannLowpassAttenuatesHighFrequency(t *testing.T) {
	n := 400
	src := make([]float32, n)
	for i := range src {
		src[i] = float32(math.Cos(float64(i) * math.Pi)) // Nyquist-rate alternation
	}
	out := HannLowpass(src, 31)
	var maxAbs float32
	for _, v := range out {
		if v < 0 {
			v = -v
		}
		if v > maxAbs {
			maxAbs = v
		}
	}
	assert.Less(t, float64(maxAbs), 0.2)
}
