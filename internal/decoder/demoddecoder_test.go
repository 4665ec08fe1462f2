package decoder

import (
	"testing"

	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
	"github.com/stretchr/testify/assert"
)

// silentSource is a zero-signal Source, used to check that DemodDecoder
// terminates cleanly (no infinite loop, no panic) over a short tape.
type silentSource struct {
	rate   int
	length int64
}

func (s silentSource) SampleRate() int { return s.rate }
func (s silentSource) Length() int64   { return s.length }
func (s silentSource) Read(where int64, buf []float32) bool {
	for i := range buf {
		buf[i] = 0
	}
	return true
}

func TestDemodDecoderSampleRateMatchesHalfFRef(t *testing.T) {
	src := silentSource{rate: 48000, length: 48000}
	d := NewDemodDecoder(src, tapefmt.DefaultOptions())
	assert.Equal(t, 2400, d.SampleRate())
}

func TestDemodDecoderTerminatesOnSilence(t *testing.T) {
	src := silentSource{rate: 48000, length: 48000}
	opts := tapefmt.DefaultOptions()
	opts.Filename = "silence.wav"
	d := NewDemodDecoder(src, opts)

	count := 0
	for {
		_, ok := d.DecodeByte()
		if !ok {
			break
		}
		count++
		if count > 100000 {
			t.Fatal("DemodDecoder did not terminate over a short silent tape")
		}
	}
}

func TestSelectBandPassesThroughSingleBand(t *testing.T) {
	buf0 := []float32{1, 2, 3}
	buf1 := []float32{4, 5, 6}
	assert.Equal(t, buf0, selectBand(buf0, buf1, tapefmt.BandLow))
	assert.Equal(t, buf1, selectBand(buf0, buf1, tapefmt.BandHigh))
}

func TestSelectBandDualWeightsLowerVarianceBandMore(t *testing.T) {
	quiet := make([]float32, 64) // zero variance: should dominate the blend
	noisy := make([]float32, 64)
	for i := range noisy {
		if i%2 == 0 {
			noisy[i] = 10
		} else {
			noisy[i] = -10
		}
	}
	for i := range quiet {
		quiet[i] = 1
	}

	out := selectBand(quiet, noisy, tapefmt.BandDual)
	for _, v := range out {
		assert.InDelta(t, 1.0, v, 0.5, "low-variance band should dominate the dual blend")
	}
}

func TestDecodeBitsRecoversKnownSyncCode(t *testing.T) {
	const tClk = 10.0
	n := int(13 * tClk)
	buf0 := make([]float32, n)
	// Sync byte bit pattern: bit0=0 (start), bits10,11=1 (stop), rest
	// high so parity/data bits read as ones; only sync bits are
	// checked by IsSyncOK.
	for k := 0; k < 13; k++ {
		v := float32(1)
		if k == 0 {
			v = -1
		}
		start := int(float64(k) * tClk)
		end := int(float64(k+1) * tClk)
		for i := start; i < end && i < n; i++ {
			buf0[i] = v
		}
	}

	z := decodeBits(buf0, buf0, 0, tClk, tapefmt.BandLow)
	assert.True(t, tapefmt.IsSyncOK(z))
}

func TestDecodeBitsDualPrefersCleanerBand(t *testing.T) {
	const tClk = 10.0
	n := int(13 * tClk)

	// bufClean reads a clean sync code in [0,1]. bufNoisy misreads the
	// start bit as high (data/parity low, stop high), which
	// byteBandNoise scores as high-noise: an even mix of the two bands
	// would leave the start bit at the midpoint and break sync, so the
	// sync check only holds if the clean band dominates the mix.
	bufClean := make([]float32, n)
	bufNoisy := make([]float32, n)
	for k := 0; k < 13; k++ {
		clean := float32(1)
		if k == 0 {
			clean = -1
		}
		noisy := float32(1) // start misread high, stop bits clean
		if k >= 1 && k <= 9 {
			noisy = 0
		}
		start := int(float64(k) * tClk)
		end := int(float64(k+1) * tClk)
		for i := start; i < end && i < n; i++ {
			bufClean[i] = clean
			bufNoisy[i] = noisy
		}
	}

	z := decodeBits(bufClean, bufNoisy, 0, tClk, tapefmt.BandDual)
	assert.True(t, tapefmt.IsSyncOK(z), "the cleaner band should dominate the dual mix for ambiguous data bits")
}

func TestByteBandNoiseZeroForCleanSyncCode(t *testing.T) {
	var n [physicalBitsPerByte]float32
	n[0] = 0 // start: clean zero
	for k := 1; k <= 9; k++ {
		n[k] = 1 // data/parity: clean extreme, either side
	}
	for k := 10; k <= 12; k++ {
		n[k] = 1 // stop: clean one
	}
	assert.InDelta(t, 0, byteBandNoise(n), 1e-9)
}
