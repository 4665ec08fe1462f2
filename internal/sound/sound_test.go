package sound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemSoundReadExact(t *testing.T) {
	s := NewMemFrom([]float32{1, 2, 3, 4, 5}, 8000)
	buf := make([]float32, 5)
	require.True(t, s.Read(0, buf))
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, buf)
}

func TestMemSoundZeroPadsOutOfRange(t *testing.T) {
	s := NewMemFrom([]float32{1, 2, 3}, 8000)
	buf := make([]float32, 7)
	require.True(t, s.Read(-2, buf))
	assert.Equal(t, []float32{0, 0, 1, 2, 3, 0, 0}, buf)
}

func TestGetBufferMaterializesPrivateCopy(t *testing.T) {
	original := NewMemFrom([]float32{1, 2, 3}, 8000)
	defer original.Release()

	clone := original.Retain()
	defer clone.Release()

	buf, err := clone.GetBuffer()
	require.NoError(t, err)
	buf[0] = 99

	readBack := make([]float32, 3)
	require.True(t, original.Read(0, readBack))
	assert.Equal(t, []float32{1, 2, 3}, readBack, "mutating the clone's buffer must not affect the original")
}

func TestGetBufferOnExclusiveMemSoundReturnsSameBuffer(t *testing.T) {
	s := NewMemFrom([]float32{1, 2, 3}, 8000)
	defer s.Release()

	buf1, err := s.GetBuffer()
	require.NoError(t, err)
	buf2, err := s.GetBuffer()
	require.NoError(t, err)

	assert.Same(t, &buf1[0], &buf2[0])
}

func TestClipTruncatesToRequestedWindow(t *testing.T) {
	src := NewMemFrom([]float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 10)
	defer src.Release()

	clip := NewClip(src, 0.3, 0.4)
	defer clip.Release()

	assert.Equal(t, int64(4), clip.Length())
	buf := make([]float32, 4)
	require.True(t, clip.Read(0, buf))
	assert.Equal(t, []float32{3, 4, 5, 6}, buf)
}

func TestMixBlendsProportionally(t *testing.T) {
	a := NewMemFrom([]float32{0, 0, 0, 0}, 100)
	b := NewMemFrom([]float32{1, 1, 1, 1}, 100)
	defer a.Release()
	defer b.Release()

	mix := NewMix(a, b, 0.25)
	defer mix.Release()

	buf := make([]float32, 4)
	require.True(t, mix.Read(0, buf))
	for _, v := range buf {
		assert.InDelta(t, 0.25, float64(v), 1e-6)
	}
}

func TestDownsampleHalvesRateAndLength(t *testing.T) {
	n := 200
	src := make([]float32, n)
	for i := range src {
		src[i] = float32(i % 7)
	}
	s := NewMemFrom(src, 2000)
	defer s.Release()

	down := NewDownsample(s, 2)
	defer down.Release()

	assert.Equal(t, 1000, down.SampleRate())
	assert.Equal(t, int64(100), down.Length())
}

func TestNullSoundIsNotOk(t *testing.T) {
	var s Sound
	assert.False(t, s.IsOk())
	assert.Equal(t, int64(0), s.Length())
	assert.Equal(t, 0, s.SampleRate())
}
