package decoder

import (
	"testing"

	"github.com/erik-persson/oric-toolbox/internal/sound"
	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
	"github.com/stretchr/testify/assert"
)

func TestWpifZeroOnConstantSignal(t *testing.T) {
	x := make([]float32, 64)
	for i := range x {
		x[i] = 3
	}
	out := wpif(x, 4)
	for i := 8; i < len(out)-8; i++ {
		assert.InDelta(t, 0, out[i], 1e-5)
	}
}

func TestNpifZeroOnLinearRamp(t *testing.T) {
	x := make([]float32, 64)
	for i := range x {
		x[i] = float32(i)
	}
	out := npif(x, 4)
	for i := 8; i < len(out)-8; i++ {
		assert.InDelta(t, 0, out[i], 1e-3)
	}
}

func TestXenonDecoderTerminatesOnSilence(t *testing.T) {
	src := sound.NewMem(9600, 48000)
	opts := tapefmt.DefaultOptions()
	opts.Filename = "silence.wav"
	d := NewXenonDecoder(src, opts)

	count := 0
	for {
		_, ok := d.DecodeByte()
		if !ok {
			break
		}
		count++
		if count > 200000 {
			t.Fatal("XenonDecoder did not terminate over a short silent tape")
		}
	}
}

func TestPadBeforeInsertsExpectedPaddingCount(t *testing.T) {
	d := &XenonDecoder{nominalByteLen: 1.0, lastEnd: 0}
	next := tapefmt.DecodedByte{Time: 5.4, Byte: 0x42}
	out := d.padBefore(next)
	// gap = 5.4, ceil(5.4/1)-1 = 5 padding bytes, then the real byte.
	if assert.Len(t, out, 6) {
		for _, p := range out[:5] {
			assert.Equal(t, byte(0xff), p.Byte)
			assert.True(t, p.SyncError)
		}
		assert.Equal(t, next, out[5])
	}
}
