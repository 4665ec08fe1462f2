package decoder

import (
	"math"

	"github.com/erik-persson/oric-toolbox/internal/demod"
	"github.com/erik-persson/oric-toolbox/internal/sound"
	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
	"gonum.org/v1/gonum/stat"
)

// physicalBitsPerByte is the total physical bit count of one slow-
// format byte: 1 start + 8 data + 1 parity + 3 stop = 13 (matching the
// 13-bit code tapefmt.IsSyncOK/IsParityOK/GetDataBits expect), spread
// over a nominal 209 cycles at f_ref.
const physicalBitsPerByte = 13
const nominalCyclesPerByte = 209

// refCyclesPerBit is the reference-cycle width of one physical bit in
// the slow format: 16 ref cycles per bit, matching the A/E phase
// widths demodViterbi searches (1 bit and 3 bits respectively).
const refCyclesPerBit = 16

// DemodDecoder is the slow-format-only decoder: it demodulates both
// the low (1200 Hz) and high (2400 Hz) carrier bands, locates byte
// onsets with a start/stop-bit Viterbi, then samples each byte's 13
// physical bit positions from the (possibly band-mixed) envelope.
type DemodDecoder struct {
	demod0, demod1 *demod.Demodulator // low band, high band
	band           tapefmt.Band

	startPos, endPos int64

	clock *clockTracker
	win   *slidingWindow

	queue         []tapefmt.DecodedByte
	queueIdx      int
	boundaryOnset int // carried to the next window, -1 if none
	lastByteOnset int64
	done          bool

	dump *sound.DumpWriter
}

// NewDemodDecoder constructs a DemodDecoder over src.
func NewDemodDecoder(src demod.Source, options tapefmt.DecoderOptions) *DemodDecoder {
	d0 := demod.New(src, options.FRefHz, false)
	d1 := demod.New(src, options.FRefHz, true)

	ssRate := d0.SampleRate()
	fullLen := d0.Length()

	startPos := int64(0)
	if options.Start >= 0 {
		startPos = int64(math.Floor(0.5 + options.Start*float64(ssRate)))
	}
	endPos := fullLen
	if options.End >= 0 {
		endPos = int64(math.Floor(0.5 + options.End*float64(ssRate)))
	}
	if endPos > fullLen {
		endPos = fullLen
	}
	if endPos < startPos+1 {
		endPos = startPos + 1
	}

	tRef := float64(ssRate) / float64(options.FRefHz)
	clock := newClockTracker(tRef, 0.07*tRef, 0.25*tRef)

	windowLen := (int(math.Floor(0.5+10*nominalCyclesPerByte*tRef)) / 4) * 4
	win := newSlidingWindow(windowLen)
	win.offset = startPos

	var dump *sound.DumpWriter
	if options.Dump {
		dump = sound.NewDumpWriter("dump-demod.wav", ssRate)
	}

	return &DemodDecoder{
		demod0:        d0,
		demod1:        d1,
		band:          options.Band,
		startPos:      startPos,
		endPos:        endPos,
		clock:         clock,
		win:           win,
		boundaryOnset: -1,
		lastByteOnset: -1,
		dump:          dump,
	}
}

func (d *DemodDecoder) SampleRate() int { return d.demod0.SampleRate() }

// Close flushes the diagnostic dump waveform to disk, when the decoder
// was constructed with options.Dump set. Safe to call even when no
// dump is pending.
func (d *DemodDecoder) Close() error {
	if d.dump == nil {
		return nil
	}
	err := d.dump.Close()
	d.dump = nil
	return err
}

// DecodeByte returns the next decoded byte, draining the internal
// window queue before advancing to decode another window.
func (d *DemodDecoder) DecodeByte() (tapefmt.DecodedByte, bool) {
	for d.queueIdx >= len(d.queue) {
		if d.done {
			return tapefmt.DecodedByte{}, false
		}
		d.decodeWindow()
	}
	b := d.queue[d.queueIdx]
	d.queueIdx++
	return b, true
}

func (d *DemodDecoder) decodeWindow() {
	if d.win.offset >= d.endPos {
		d.done = true
		return
	}

	buf0 := make([]float32, d.win.windowLen)
	buf1 := make([]float32, d.win.windowLen)
	d.demod0.Read(int(d.win.offset), buf0)
	d.demod1.Read(int(d.win.offset), buf1)

	sel := selectBand(buf0, buf1, d.band)

	tClk, dtClk := d.clock.window()
	onsets := demodViterbi(sel, d.boundaryOnset, tClk, dtClk)

	if d.dump != nil {
		d.writeDump(sel, onsets)
	}

	d.queue = d.queue[:0]
	d.queueIdx = 0

	healthySinceLast := true
	lastOnsetInWindow := -1
	lastGlobalOnset := d.lastByteOnset

	for _, x := range onsets {
		if x >= d.win.hopSize {
			// Beyond the core emission region: carry forward as the
			// next window's boundary instead of emitting now.
			break
		}
		lastOnsetInWindow = x

		z := decodeBits(buf0, buf1, x, refCyclesPerBit*tClk, d.band)
		syncErr := !tapefmt.IsSyncOK(z)
		parityErr := !tapefmt.IsParityOK(z)

		globalOnset := d.win.offset + int64(x)
		timeSeconds := float64(globalOnset) / float64(d.demod0.SampleRate())

		if lastGlobalOnset >= 0 {
			d.clock.observeByte(float64(globalOnset-lastGlobalOnset), nominalCyclesPerByte, !syncErr && !parityErr)
		}
		lastGlobalOnset = globalOnset
		healthySinceLast = !syncErr && !parityErr

		d.queue = append(d.queue, tapefmt.DecodedByte{
			Time:        timeSeconds,
			Slow:        true,
			Byte:        tapefmt.GetDataBits(z),
			ParityError: parityErr,
			SyncError:   syncErr,
		})
	}
	d.lastByteOnset = lastGlobalOnset
	if !healthySinceLast {
		d.clock.observeWindow()
	}

	// Find the rightmost onset in the whole window to carry forward.
	d.boundaryOnset = -1
	for _, x := range onsets {
		if x >= d.win.hopSize {
			d.boundaryOnset = x - d.win.hopSize
		}
	}
	if lastOnsetInWindow < 0 && len(onsets) == 0 {
		d.clock.observeWindow()
	}

	d.win.advance()
}

// writeDump appends the core emission region of the selected band's
// envelope to the dump waveform, with a unit spike marking each byte
// onset, matching the original's dump-demod.wav convention.
func (d *DemodDecoder) writeDump(sel []float32, onsets []int) {
	hop := d.win.hopSize
	if hop > len(sel) {
		hop = len(sel)
	}
	out := make([]float32, hop)
	copy(out, sel[:hop])
	for _, x := range onsets {
		if x >= 0 && x < hop {
			out[x] = 1
		}
	}
	d.dump.Write(out)
}

// selectBand combines the low/high demodulated envelopes per the
// configured band for the purpose of the onset-search Viterbi only:
// Low or High use that band alone, Dual blends them weighted inversely
// to each band's whole-window variance (a noisier band contributes
// less to where byte onsets are found). The per-byte bit-level mixing
// used once an onset is known is a separate, finer-grained computation
// in decodeBits, weighted by noise measured over each individual
// byte's expected bit classes rather than the whole window.
func selectBand(buf0, buf1 []float32, band tapefmt.Band) []float32 {
	switch band {
	case tapefmt.BandLow:
		return buf0
	case tapefmt.BandHigh:
		return buf1
	default:
		v0 := varianceOf(buf0)
		v1 := varianceOf(buf1)
		w0, w1 := inverseWeights(v0, v1)
		out := make([]float32, len(buf0))
		for i := range out {
			out[i] = float32(w0)*buf0[i] + float32(w1)*buf1[i]
		}
		return out
	}
}

func varianceOf(buf []float32) float64 {
	xs := make([]float64, len(buf))
	for i, v := range buf {
		xs[i] = float64(v)
	}
	return stat.Variance(xs, nil)
}

func inverseWeights(v0, v1 float64) (w0, w1 float64) {
	const eps = 1e-6
	i0 := 1 / (v0 + eps)
	i1 := 1 / (v1 + eps)
	sum := i0 + i1
	return i0 / sum, i1 / sum
}

// decodeBits samples the 13 physical bit positions of the byte whose
// start bit onsets at x, normalizing each band to [0,1] over the byte
// before thresholding. bitPeriod is the per-bit sample width (16
// reference cycles). For band=Dual, each band is weighted inversely to
// its own noise over this specific byte (byteBandNoise), not the
// whole-window variance selectBand uses for onset search: a band that
// happens to read cleanly for this byte counts more even if it was the
// noisier band overall.
func decodeBits(buf0, buf1 []float32, x int, bitPeriod float64, band tapefmt.Band) uint16 {
	lo0, hi0 := rangeOver(buf0, x, bitPeriod)
	lo1, hi1 := rangeOver(buf1, x, bitPeriod)

	var n0, n1 [physicalBitsPerByte]float32
	for k := 0; k < physicalBitsPerByte; k++ {
		pos := float64(x) + (float64(k)+0.5)*bitPeriod
		n0[k] = normalize(sampleLinear(buf0, pos), lo0, hi0)
		n1[k] = normalize(sampleLinear(buf1, pos), lo1, hi1)
	}

	var z uint16
	switch band {
	case tapefmt.BandLow:
		for k := 0; k < physicalBitsPerByte; k++ {
			if n0[k] >= 0.5 {
				z |= 1 << uint(k)
			}
		}
	case tapefmt.BandHigh:
		for k := 0; k < physicalBitsPerByte; k++ {
			if n1[k] >= 0.5 {
				z |= 1 << uint(k)
			}
		}
	default:
		v0 := byteBandNoise(n0)
		v1 := byteBandNoise(n1)
		k0, k1 := inverseWeights(v0, v1)
		for k := 0; k < physicalBitsPerByte; k++ {
			mix := k0*float64(n0[k]) + k1*float64(n1[k])
			if mix >= 0.5 {
				z |= 1 << uint(k)
			}
		}
	}
	return z
}

// byteBandNoise scores one band's normalized samples against this
// byte's expected bit classes: bit 0 (start) is expected to read as a
// clean zero, bits 10-12 (stop) as a clean one, and bits 1-9
// (data+parity) can legitimately land at either extreme, so only their
// distance to the nearer extreme counts against the band. Squaring and
// summing these distances over all 13 bits gives the per-byte noise
// figure decodeBits weights the two bands by.
func byteBandNoise(n [physicalBitsPerByte]float32) float64 {
	e := sq(float64(n[0]))
	for k := 1; k <= 9; k++ {
		d := math.Min(float64(n[k]), 1-float64(n[k]))
		e += sq(d)
	}
	for k := 10; k <= 12; k++ {
		e += sq(1 - float64(n[k]))
	}
	return e
}

func sq(v float64) float64 { return v * v }

func rangeOver(buf []float32, x int, bitPeriod float64) (lo, hi float32) {
	start := x
	end := int(float64(x) + physicalBitsPerByte*bitPeriod)
	if start < 0 {
		start = 0
	}
	if end > len(buf) {
		end = len(buf)
	}
	if start >= end {
		return 0, 1
	}
	lo, hi = buf[start], buf[start]
	for _, v := range buf[start:end] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func normalize(v, lo, hi float32) float32 {
	if hi-lo < 1e-9 {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}

func sampleLinear(buf []float32, x float64) float32 {
	i0 := int(math.Floor(x))
	if i0 < 0 || i0+1 >= len(buf) {
		if i0 >= 0 && i0 < len(buf) {
			return buf[i0]
		}
		return 0
	}
	f := float32(x - float64(i0))
	return buf[i0]*(1-f) + buf[i0+1]*f
}
