// Package binarizer extracts physical bit events from a conditioned
// waveform. Three interchangeable implementations share one contract:
// given a region of interest and an expected clock period, return the
// rising/falling/sustaining edges found there, plus a debug trace of
// the signal actually compared against.
package binarizer

// Binarizer is the shared interface of PatternBinarizer, GridBinarizer
// and SuperBinarizer.
type Binarizer interface {
	SampleRate() int
	Length() int64

	// Read returns the physical bit events found in
	// [coreStart, coreStart+coreLen), plus a debug trace of length
	// coreLen. evtXs are offsets relative to coreStart; the first
	// event is always a rising edge. evtVals[i] is the level the
	// signal transitions to (or sustains) at evtXs[i].
	//
	// givenRiseEdge, when >= 0, forces a rising edge at that exact
	// sample offset into the core, for continuity across window hops.
	// t_clk is the expected clock period in samples, dt_clk its
	// half-range search window.
	Read(coreStart, coreLen, givenRiseEdge int, tClk, dtClk float64) (evtXs []int, evtVals []bool, dbgBuf []float32)
}

// marginSamples returns the left/right margin read around a core
// region, ≈0.05s at the binarizer's sample rate (24·rate/441).
func marginSamples(sampleRate int) int {
	return 24 * sampleRate / 441
}
