package binarizer

import (
	"testing"

	"github.com/erik-persson/oric-toolbox/internal/sound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridBinarizerFindsEventsOnSquareWave(t *testing.T) {
	tClk := 40.0
	src := squareWave(8000, tClk, 1.0)
	s := sound.NewMemFrom(src, 8000)
	defer s.Release()

	b := NewGridBinarizer(s, tClk)
	xs, vals, dbg := b.Read(2000, 2000, -1, tClk, 6)

	require.NotEmpty(t, xs)
	assert.Len(t, dbg, 2000)
	assert.True(t, vals[0])
}

func TestSuperBinarizerFindsEventsOnSquareWave(t *testing.T) {
	tClk := 40.0
	src := squareWave(8000, tClk, 1.0)
	s := sound.NewMemFrom(src, 8000)
	defer s.Release()

	b := NewSuperBinarizer(s, tClk)
	xs, vals, dbg := b.Read(2000, 2000, -1, tClk, 6)

	require.NotEmpty(t, xs)
	assert.Len(t, dbg, 2000)
	assert.True(t, vals[0])
}
