package testgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncoderProducesNonEmptyWaveform(t *testing.T) {
	e := New(true)
	e.EncodeByte(0x16)
	samples := e.Samples()
	assert.NotEmpty(t, samples)
}

func TestEncoderStaysWithinAmplitudeBounds(t *testing.T) {
	e := New(false)
	e.EncodeBytes([]byte{0x16, 0x16, 0x16, 0x24})
	for _, s := range e.Samples() {
		assert.LessOrEqual(t, s, float32(0.6))
		assert.GreaterOrEqual(t, s, float32(-0.6))
	}
}

func TestEncoderSoundReportsEncodeRate(t *testing.T) {
	e := New(true)
	e.EncodeByte(0x00)
	snd := e.Sound()
	defer snd.Release()
	assert.Equal(t, EncodeRate, snd.SampleRate())
	assert.Greater(t, snd.Length(), int64(0))
}

func TestSilencePadsWithZero(t *testing.T) {
	e := New(true)
	e.Silence(100)
	samples := e.Samples()
	if assert.GreaterOrEqual(t, len(samples), 100) {
		for _, s := range samples[:100] {
			assert.Equal(t, float32(0), s)
		}
	}
}
