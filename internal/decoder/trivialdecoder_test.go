package decoder

import (
	"bytes"
	"testing"

	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
	"github.com/stretchr/testify/assert"
)

func TestTrivialDecoderReadsBytesInOrder(t *testing.T) {
	opts := tapefmt.DefaultOptions()
	opts.Filename = "archive.tap"
	opts.Slow = true
	d := NewTrivialDecoder(bytes.NewReader([]byte{0x16, 0x24, 0x00}), opts)

	var got []byte
	for {
		b, ok := d.DecodeByte()
		if !ok {
			break
		}
		assert.True(t, b.Slow)
		assert.False(t, b.SyncError)
		assert.False(t, b.ParityError)
		got = append(got, b.Byte)
	}
	assert.Equal(t, []byte{0x16, 0x24, 0x00}, got)
}

func TestTrivialDecoderTimeAdvancesByNominalDt(t *testing.T) {
	opts := tapefmt.DefaultOptions()
	opts.Filename = "archive.tap"
	opts.Slow = true
	opts.FRefHz = 4800
	d := NewTrivialDecoder(bytes.NewReader([]byte{0x00, 0x00}), opts)

	b0, _ := d.DecodeByte()
	b1, _ := d.DecodeByte()
	assert.InDelta(t, 0.0, b0.Time, 1e-9)
	assert.InDelta(t, 209.0/4800.0, b1.Time, 1e-9)
}

func TestTrivialDecoderHonorsStartEndWindow(t *testing.T) {
	opts := tapefmt.DefaultOptions()
	opts.Filename = "archive.tap"
	opts.Slow = true
	opts.FRefHz = 4800
	opts.Start = 209.0 / 4800.0
	opts.End = 2 * 209.0 / 4800.0
	d := NewTrivialDecoder(bytes.NewReader([]byte{0xaa, 0xbb, 0xcc, 0xdd}), opts)

	b, ok := d.DecodeByte()
	if assert.True(t, ok) {
		assert.Equal(t, byte(0xbb), b.Byte)
	}
	_, ok = d.DecodeByte()
	assert.False(t, ok)
}
