package parser

import (
	"testing"

	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byteSeq(bytes []byte, slow bool) []tapefmt.DecodedByte {
	out := make([]tapefmt.DecodedByte, len(bytes))
	for i, b := range bytes {
		out[i] = tapefmt.DecodedByte{Time: float64(i) * (209.0 / 4800.0), Slow: slow, Byte: b}
	}
	return out
}

func TestParserExtractsBasicFile(t *testing.T) {
	var raw []byte
	raw = append(raw, 0x16, 0x16, 0x16, 0x24) // sync
	// header: datatype0, datatype1, filetype(BASIC), autorun, endaddr(hi,lo), startaddr(hi,lo), unused
	raw = append(raw, 0x00, 0x00, 0x00, 0x00, 0x06, 0x03, 0x06, 0x00, 0x00)
	raw = append(raw, []byte("HELLO")...)
	raw = append(raw, 0x00) // name terminator
	payload := []byte{1, 2, 3, 4}
	raw = append(raw, payload...)

	p := New(nil)
	var got []tapefmt.TapeFile
	p.OnFile = func(f tapefmt.TapeFile) { got = append(got, f) }

	for _, b := range byteSeq(raw, true) {
		p.PutByte(b)
	}
	p.Flush()

	require.Len(t, got, 1)
	f := got[0]
	assert.Equal(t, "HELLO", f.Name)
	assert.True(t, f.Basic)
	assert.Equal(t, uint16(0x0600), f.StartAddr)
	assert.Equal(t, uint16(0x0603), f.EndAddr)
	assert.Equal(t, 4, f.Len)
	assert.Equal(t, payload, f.Payload)
	assert.Equal(t, 0, f.SyncErrors)
	assert.Equal(t, 0, f.ParityErrors)
}

func TestParserIsIdleBetweenFiles(t *testing.T) {
	p := New(nil)
	assert.True(t, p.IsIdle())
	p.PutByte(tapefmt.DecodedByte{Byte: 0x16})
	assert.False(t, p.IsIdle())
}

func TestParserTruncatesOnFlushMidPayload(t *testing.T) {
	var raw []byte
	raw = append(raw, 0x16, 0x16, 0x16, 0x24)
	raw = append(raw, 0x00, 0x00, 0x00, 0x00, 0x06, 0x03, 0x06, 0x00, 0x00)
	raw = append(raw, []byte("X")...)
	raw = append(raw, 0x00)
	raw = append(raw, 1, 2) // only 2 of 4 expected payload bytes

	p := New(nil)
	var got []tapefmt.TapeFile
	p.OnFile = func(f tapefmt.TapeFile) { got = append(got, f) }

	for _, b := range byteSeq(raw, true) {
		p.PutByte(b)
	}
	p.Flush()

	require.Len(t, got, 1)
	f := got[0]
	assert.Equal(t, []byte{1, 2, 0xcd, 0xcd}, f.Payload)
	assert.Equal(t, 2, f.SyncErrors)
	assert.Equal(t, 2, f.ParityErrors)
}
