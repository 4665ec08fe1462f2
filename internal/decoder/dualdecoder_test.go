package decoder

import (
	"testing"

	"github.com/erik-persson/oric-toolbox/internal/sound"
	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
	"github.com/stretchr/testify/assert"
)

// syncedCode builds the 13-bit code (start=0, 8 data bits LSB first,
// parity, stop=1,1,1) for a given data byte.
func syncedCode(data byte) uint16 {
	var z uint16
	for k := 0; k < 8; k++ {
		if (data>>uint(k))&1 != 0 {
			z |= 1 << uint(1+k)
		}
	}
	if 1-tapefmt.Parity8(data) != 0 {
		z |= 1 << 9
	}
	z |= 1<<10 | 1<<11 | 1<<12
	return z
}

// buildSlowTrace renders z as a raw edge-count trace: a "1" bit packs
// many sign changes into its width (classifies via slowByteAt's
// edge-count threshold), a "0" bit holds a single half-cycle.
func buildSlowTrace(z uint16, width int) []float32 {
	buf := make([]float32, slowBitsPerByte*width)
	for b := 0; b < slowBitsPerByte; b++ {
		bit := (z>>uint(b))&1 != 0
		for i := 0; i < width; i++ {
			x := b*width + i
			switch {
			case bit && i%2 == 0:
				buf[x] = 1
			case bit:
				buf[x] = -1
			case i < width/2:
				buf[x] = 1
			default:
				buf[x] = -1
			}
		}
	}
	return buf
}

func TestSlowByteAtRecoversSyncCode(t *testing.T) {
	data := byte(0x16)
	z := syncedCode(data)
	buf := buildSlowTrace(z, 16)

	got, ok := slowByteAt(buf, 0, 16)
	if assert.True(t, ok) {
		assert.Equal(t, data, tapefmt.GetDataBits(got))
		assert.True(t, tapefmt.IsSyncOK(got))
		assert.True(t, tapefmt.IsParityOK(got))
	}
}

func TestSlowBitViterbiFindsOnsetAtZero(t *testing.T) {
	data := byte(0x3c)
	z := syncedCode(data)
	buf := buildSlowTrace(z, 16)
	buf = append(buf, buildSlowTrace(z, 16)...)

	onsets := slowBitViterbi(buf, 0, 16, 2)
	if assert.NotEmpty(t, onsets) {
		assert.Equal(t, 0, onsets[0])
	}
}

// buildFastBits renders z as the fast format's bin_vals sequence: each
// bit is a "10" one-symbol, with an extra low unit ("100") for a
// zero-symbol, the encoding internal/testgen's Encoder.encodeBit
// describes.
func buildFastBits(z uint16) []bool {
	var bits []bool
	for b := 0; b < slowBitsPerByte; b++ {
		bits = append(bits, true, false)
		if (z>>uint(b))&1 == 0 {
			bits = append(bits, false)
		}
	}
	return bits
}

func TestFramFastBitsOrigReadsKnownByte(t *testing.T) {
	data := byte(0x05)
	z := syncedCode(data)
	out := framFastBitsOrig(buildFastBits(z), 4, 0, 4800)
	if assert.Len(t, out, 1) {
		assert.Equal(t, data, out[0].Byte)
		assert.False(t, out[0].Slow)
		assert.False(t, out[0].SyncError)
		assert.False(t, out[0].ParityError)
	}
}

func TestFramFastBitsPlenReadsKnownByte(t *testing.T) {
	data := byte(0x5a)
	z := syncedCode(data)
	out := framFastBitsPlen(buildFastBits(z), 4, 0, 4800)
	if assert.Len(t, out, 1) {
		assert.Equal(t, data, out[0].Byte)
		assert.False(t, out[0].SyncError)
		assert.False(t, out[0].ParityError)
	}
}

func TestFramFastBitsBarrelReadsKnownByte(t *testing.T) {
	data := byte(0xa3)
	z := syncedCode(data)
	out := framFastBitsBarrel(buildFastBits(z), 4, 0, 4800)
	if assert.Len(t, out, 1) {
		assert.Equal(t, data, out[0].Byte)
		assert.False(t, out[0].SyncError)
		assert.False(t, out[0].ParityError)
	}
}

func TestFastFramerForSelectsByOption(t *testing.T) {
	data := byte(0x11)
	z := syncedCode(data)
	bits := buildFastBits(z)

	for _, fdec := range []tapefmt.Fdec{tapefmt.FdecOrig, tapefmt.FdecPlen, tapefmt.FdecBarrel} {
		framer := fastFramerFor(fdec)
		out := framer(bits, 4, 0, 4800)
		if assert.Len(t, out, 1, "fdec=%v", fdec) {
			assert.Equal(t, data, out[0].Byte, "fdec=%v", fdec)
		}
	}
}

func TestDualDecoderTerminatesOnSilence(t *testing.T) {
	src := sound.NewMem(9600, 48000)
	opts := tapefmt.DefaultOptions()
	opts.Filename = "silence.wav"
	d := NewDualDecoder(src, opts)

	count := 0
	for {
		_, ok := d.DecodeByte()
		if !ok {
			break
		}
		count++
		if count > 200000 {
			t.Fatal("DualDecoder did not terminate over a short silent tape")
		}
	}
}
