// Package decoder implements the byte-level decoders that sit above
// the binarizers/demodulators: DemodDecoder (slow format only, via
// demodulation and a start/stop-bit Viterbi), DualDecoder (fast and
// slow, via a physical-bit binarizer plus bit-to-byte framing),
// XenonDecoder (fast only, via WPIF/NPIF peak detection and a
// byte-track Viterbi), and TrivialDecoder (pass-through from an
// already-decoded .tap archive).
package decoder

import "github.com/erik-persson/oric-toolbox/internal/tapefmt"

// ByteDecoder is the common interface of every backend TapeDecoder can
// select among.
type ByteDecoder interface {
	// DecodeByte produces the next byte, in monotonically
	// non-decreasing Time order. Returns false at end of tape.
	DecodeByte() (tapefmt.DecodedByte, bool)
}

// clockTracker maintains the running estimate of the physical bit
// period and its search half-width, evolving by exponential decay:
// roughly 15/16 retained per byte and 0.75/0.25 per window. A run of
// healthy (no sync or parity error) bytes pulls tClk toward the
// observed inter-byte sample count divided by the byte's nominal
// cycle count, and dtClk toward dtMin; any imperfect byte widens the
// search window back toward dtMax.
type clockTracker struct {
	tRef  float64 // nominal physical bit period in samples
	tClk  float64 // center of current search window
	dtMin float64
	dtMax float64
	dtClk float64 // current search window half width
}

func newClockTracker(tRef, dtMin, dtMax float64) *clockTracker {
	return &clockTracker{tRef: tRef, tClk: tRef, dtMin: dtMin, dtMax: dtMax, dtClk: dtMax}
}

// observeByte updates the tracker from one decoded byte: interval is
// the sample count since the previous byte's onset, cycles its
// nominal physical-bit length (209 for slow, 32 for fast), and healthy
// reports whether the byte had neither a sync nor a parity error.
func (c *clockTracker) observeByte(interval float64, cycles int, healthy bool) {
	const byteDecay = 15.0 / 16.0
	observedClk := interval / float64(cycles)
	c.tClk = byteDecay*c.tClk + (1-byteDecay)*observedClk
	if healthy {
		c.dtClk = byteDecay*c.dtClk + (1-byteDecay)*c.dtMin
	} else {
		c.dtClk = byteDecay*c.dtClk + (1-byteDecay)*c.dtMax
	}
}

// observeWindow applies the coarser per-window decay (0.75 retained,
// 0.25 pulled toward the nominal values), used when a window produced
// no bytes to calibrate from.
func (c *clockTracker) observeWindow() {
	const windowDecay = 0.75
	c.tClk = windowDecay*c.tClk + (1-windowDecay)*c.tRef
	c.dtClk = windowDecay*c.dtClk + (1-windowDecay)*c.dtMax
}

// window returns the current (tClk, dtClk) search parameters.
func (c *clockTracker) window() (tClk, dtClk float64) {
	return c.tClk, c.dtClk
}

// slidingWindow drives the common window/hop/boundary bookkeeping
// shared by every sliding-window decoder: a window of length
// windowLen samples, advanced by hopSize each step, with the
// rightmost confident event of window n passed to window n+1 as its
// given-rise-edge boundary condition.
type slidingWindow struct {
	windowLen int
	hopSize   int
	offset    int64 // sample offset of the current window's start

	// boundaryX is the sample offset (relative to the current
	// window's start, once advance has rebased it) of the rightmost
	// confident event carried forward, or -1 if none.
	boundaryX int
}

func newSlidingWindow(windowLen int) *slidingWindow {
	return &slidingWindow{windowLen: windowLen, hopSize: windowLen / 2, boundaryX: -1}
}

// advance moves the window forward by hopSize, translating the
// boundary offset into the new window's frame of reference.
func (w *slidingWindow) advance() {
	w.offset += int64(w.hopSize)
	if w.boundaryX >= 0 {
		w.boundaryX -= w.hopSize
		if w.boundaryX < 0 {
			w.boundaryX = -1
		}
	}
}
