// Package testgen synthesizes tape waveforms for round-trip tests. It
// ports the bit-level encoding of the original TapeEncoder (ramp-based
// amplitude transitions, slow/fast cycle patterns, 13-bit byte framing)
// as test-only support code; it is not exposed through cmd/taperescue
// and nothing in the decoding pipeline depends on it.
package testgen

import "math"

// EncodeRate is the sample rate, in Hz, of the waveform Encoder
// produces. It matches the rate the original encoder assumed, which
// keeps the ramp and cycle constants below exact integers.
const EncodeRate = 44100

const (
	rampLen  = 441
	rampStep = 48
)

// Encoder synthesizes a tape waveform one byte at a time. The zero
// value is not usable; construct with New.
type Encoder struct {
	slow bool

	ramp [rampLen]float32

	rampPhase int
	lastY     float32
	lastBit   bool

	samples []float32
}

// New constructs an Encoder for the slow or fast physical format. Call
// EncodeByte for each byte to lay down, then Samples to retrieve the
// synthesized waveform.
func New(slow bool) *Encoder {
	e := &Encoder{slow: slow}
	k := math.Pi / rampLen
	for i := range e.ramp {
		e.ramp[i] = float32(.5 - .5*math.Cos(k*float64(i)))
	}
	return e
}

// rampTo glides the output amplitude from its current level to y along
// the raised-cosine template, emitting one sample per rampStep of
// phase advance, and resumes any phase left over from the previous
// glide (so back-to-back calls keep a steady cycle rate regardless of
// target amplitude).
func (e *Encoder) rampTo(y float32) {
	y0 := e.lastY
	dy := y - y0
	for e.rampPhase < rampLen {
		e.samples = append(e.samples, y0+e.ramp[e.rampPhase]*dy)
		e.rampPhase += rampStep
	}
	e.rampPhase -= rampLen
	e.lastY = y
}

// emitBit ramps to the amplitude a physical half-cycle of polarity val
// glides to, and records val as the new polarity.
func (e *Encoder) emitBit(val bool) {
	if val {
		e.rampTo(0.6)
	} else {
		e.rampTo(-0.6)
	}
	e.lastBit = val
}

// encodeBit lays down one logical data/framing bit as a run of
// physical half-cycles: 16 alternating half-cycles at one of two rates
// for the slow format (spec.md §3's "00110011..." vs "01010101..."
// patterns), or 2-3 half-cycles for the fast format.
func (e *Encoder) encodeBit(val bool) {
	polarity := e.lastBit
	if e.slow {
		for i := 0; i < 16; i++ {
			var y bool
			if val {
				y = i&1 == 0
			} else {
				y = i&2 == 0
			}
			e.emitBit(y != polarity)
		}
		return
	}

	e.emitBit(!polarity)
	e.emitBit(polarity)
	if !val {
		e.emitBit(polarity)
	}
}

// EncodeByte lays down one 13-bit physical frame: a start bit (0), 8
// data bits LSB-first, an odd parity bit, and 3 stop bits (1), matching
// the framing tapefmt.GetDataBits/IsSyncOK/IsParityOK expect.
func (e *Encoder) EncodeByte(b byte) {
	e.encodeBit(false)

	parity := true
	for i := 0; i < 8; i++ {
		bit := (b>>uint(i))&1 != 0
		e.encodeBit(bit)
		parity = parity != bit
	}
	e.encodeBit(parity)

	e.encodeBit(true)
	e.encodeBit(true)
	e.encodeBit(true)
}

// EncodeBytes lays down a run of bytes via EncodeByte.
func (e *Encoder) EncodeBytes(bs []byte) {
	for _, b := range bs {
		e.EncodeByte(b)
	}
}

// Silence appends n samples of silence, e.g. leading tape slack before
// the first sync byte.
func (e *Encoder) Silence(n int) {
	for i := 0; i < n; i++ {
		e.samples = append(e.samples, 0)
	}
}

// Samples returns the waveform synthesized so far, ramped back down to
// zero amplitude so the tail doesn't end mid-cycle.
func (e *Encoder) Samples() []float32 {
	e.rampTo(0)
	return e.samples
}
