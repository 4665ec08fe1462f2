package filter

import (
	"math"
	"testing"

	"github.com/erik-persson/oric-toolbox/internal/sound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalancerRemovesDCOffset(t *testing.T) {
	n := 2000
	src := make([]float32, n)
	for i := range src {
		src[i] = 3.0 + float32(math.Sin(float64(i)*0.3))
	}
	s := sound.NewMemFrom(src, 8000)
	defer s.Release()

	b := NewBalancer(s, 9, 33)
	out := make([]float32, 500)
	require.True(t, b.Read(1000, out))

	var mean float64
	for _, v := range out {
		mean += float64(v)
	}
	mean /= float64(len(out))
	assert.InDelta(t, 0, mean, 0.3)
}

func TestBalancerAmplitudeEnvelopeNonNegative(t *testing.T) {
	n := 2000
	src := make([]float32, n)
	for i := range src {
		src[i] = float32(math.Sin(float64(i) * 0.3))
	}
	s := sound.NewMemFrom(src, 8000)
	defer s.Release()

	b := NewBalancer(s, 9, 33)
	out := make([]float32, 500)
	amp := make([]float32, 500)
	require.True(t, b.ReadWithAmplitude(1000, out, amp))

	for _, v := range amp {
		assert.GreaterOrEqual(t, v, float32(0))
	}
}
