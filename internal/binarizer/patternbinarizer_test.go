package binarizer

import (
	"math"
	"testing"

	"github.com/erik-persson/oric-toolbox/internal/sound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squareWave builds a synthetic "slow format" bitstream-like square
// wave at a fixed physical bit period, alternating level every
// tClk samples, to exercise the Viterbi binarizer without needing a
// full modulated waveform.
func squareWave(n int, tClk float64, amp float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		phase := math.Mod(float64(i)/tClk, 2)
		if phase < 1 {
			out[i] = amp
		} else {
			out[i] = -amp
		}
	}
	return out
}

func TestPatternBinarizerFindsEventsOnSquareWave(t *testing.T) {
	tClk := 40.0
	src := squareWave(8000, tClk, 1.0)
	s := sound.NewMemFrom(src, 8000)
	defer s.Release()

	b := NewPatternBinarizer(s, tClk)
	xs, vals, dbg := b.Read(2000, 2000, -1, tClk, 6)

	require.NotEmpty(t, xs)
	assert.Len(t, dbg, 2000)
	assert.True(t, vals[0], "first event must be a rising edge")

	for i := 1; i < len(xs); i++ {
		assert.Greater(t, xs[i], xs[i-1], "events must be strictly increasing")
	}
}

func TestPatternBinarizerHonorsGivenRiseEdge(t *testing.T) {
	tClk := 40.0
	src := squareWave(8000, tClk, 1.0)
	s := sound.NewMemFrom(src, 8000)
	defer s.Release()

	b := NewPatternBinarizer(s, tClk)
	xs, _, _ := b.Read(2000, 2000, 5, tClk, 6)

	require.NotEmpty(t, xs)
	assert.Equal(t, 5, xs[0])
}
