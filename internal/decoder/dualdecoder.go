package decoder

import (
	"math"

	"github.com/erik-persson/oric-toolbox/internal/binarizer"
	"github.com/erik-persson/oric-toolbox/internal/sound"
	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
)

// slowBitsPerByte is the 13-symbol frame shared by both tape formats:
// 1 start + 8 data + 1 parity + 3 stop.
const slowBitsPerByte = 13

func newBinarizer(binner tapefmt.Binner, src sound.Sound, tRef float64) binarizer.Binarizer {
	switch binner {
	case tapefmt.BinnerGrid:
		return binarizer.NewGridBinarizer(src, tRef)
	case tapefmt.BinnerSuper:
		return binarizer.NewSuperBinarizer(src, tRef)
	default:
		return binarizer.NewPatternBinarizer(src, tRef)
	}
}

// edgePenalty discourages a phase boundary from landing away from an
// actual zero crossing of the raw binarizer trace, mirroring the
// "extra penalty for the current bit not starting on an edge" rule.
const edgePenalty = 2.0

// slowBitViterbi partitions one byte's worth of raw signal into 13
// equal-width elastic phases (one per symbol bit), favoring phase
// boundaries that land on a sign change of buf. This locates byte
// onsets (phase-0 starts); the bit value of each phase is read off
// separately by counting edges inside its final span.
func slowBitViterbi(buf []float32, givenOnset int, tClk, dtClk float64) []int {
	tMin := int(math.Floor(0.5 + tClk - dtClk))
	tMax := int(math.Floor(0.5 + tClk + dtClk))
	if tMin < 1 {
		tMin = 1
	}
	if tMax < tMin+1 {
		tMax = tMin + 1
	}

	ns := slowBitsPerByte * tMax
	sPhase := make([]int, slowBitsPerByte)
	for k := range sPhase {
		sPhase[k] = k * tMax
	}

	scores := make([]float32, ns)
	if givenOnset == 0 {
		for s := range scores {
			if s != sPhase[0] {
				scores[s] = -1e20
			}
		}
	}

	length := len(buf)
	pred := make([][slowBitsPerByte]int32, length)

	for i := 1; i < length; i++ {
		next := make([]float32, ns)
		for s := ns - 1; s >= 1; s-- {
			next[s] = scores[s-1]
		}

		edge := buf[i]*buf[i-1] < 0

		for k := 0; k < slowBitsPerByte; k++ {
			prevPhase := (k - 1 + slowBitsPerByte) % slowBitsPerByte
			p := sPhase[prevPhase] + tMax - 1
			c := scores[p]
			for s := sPhase[prevPhase] + tMin - 1; s < sPhase[prevPhase]+tMax-1; s++ {
				if scores[s] > c {
					c = scores[s]
					p = s
				}
			}
			pred[i][k] = int32(p)
			if !edge {
				c -= edgePenalty
			}
			next[sPhase[k]] = c
		}

		if givenOnset == i {
			for s := range next {
				if s != sPhase[0] {
					next[s] = -1e20
				}
			}
		}

		scores = next
	}

	s := 0
	best := scores[0]
	for s1 := 1; s1 < ns; s1++ {
		if scores[s1] > best {
			best = scores[s1]
			s = s1
		}
	}

	var xs []int
	for i := length - 2; i >= 0; i-- {
		phase := -1
		for k, base := range sPhase {
			if s >= base && s < base+tMax {
				phase = k
				break
			}
		}
		if phase >= 0 && s == sPhase[phase] {
			s = int(pred[i+1][phase])
		} else {
			s--
		}
		if s == sPhase[0] {
			xs = append(xs, i)
		}
	}

	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
	return xs
}

// slowByteAt reads one 13-bit code starting at onset x in buf, with
// bit b spanning [x+b*tClk, x+(b+1)*tClk): the count of sign changes
// in that span classifies the bit, matching the spec's edge-count
// threshold (scaled to tClk instead of a literal 16 samples).
func slowByteAt(buf []float32, x int, tClk float64) (z uint16, ok bool) {
	width := int(math.Round(tClk))
	if width < 1 {
		width = 1
	}
	threshold := 0.6875 * float64(width) // 11/16, as in the spec
	for b := 0; b < slowBitsPerByte; b++ {
		start := x + b*width
		end := start + width
		if start < 0 || end > len(buf) {
			return 0, false
		}
		edges := 0
		for i := start + 1; i < end; i++ {
			if buf[i]*buf[i-1] < 0 {
				edges++
			}
		}
		if float64(edges) >= threshold {
			z |= 1 << uint(b)
		}
	}
	return z, true
}

type byteFramer func(bits []bool, bitPeriod float64, xBase int, sampleRate int) []tapefmt.DecodedByte

// rawFramer frames bytes directly from the raw (pre-binarization)
// reconstructed trace buf, the domain slowBitViterbi/slowByteAt need
// since they classify bits from edge counts rather than from an
// already-binarized bit sequence.
type rawFramer func(buf []float32, bitPeriod, dtClk float64, givenOnset int, xBase int, sampleRate int) []tapefmt.DecodedByte

// bitFormatDecoder runs one binarizer/clock/window pipeline over a
// fixed nominal bit period, expanding the binarizer's run-length
// events into a bit sequence and handing it to a byteFramer, or, when
// rawFramer is set, handing the raw reconstructed trace straight to it
// instead.
type bitFormatDecoder struct {
	bin       binarizer.Binarizer
	clock     *clockTracker
	win       *slidingWindow
	bitPeriod float64
	framer    byteFramer
	rawFramer rawFramer
	endPos    int64
	done      bool

	queue    []tapefmt.DecodedByte
	queueIdx int

	dump *sound.DumpWriter
}

func newBitFormatDecoder(src sound.Sound, options tapefmt.DecoderOptions, refCyclesPerBit float64, framer byteFramer) *bitFormatDecoder {
	return newBitFormatDecoderDump(src, options, refCyclesPerBit, framer, "")
}

func newBitFormatDecoderDump(src sound.Sound, options tapefmt.DecoderOptions, refCyclesPerBit float64, framer byteFramer, dumpTag string) *bitFormatDecoder {
	d := newBitFormatDecoderBase(src, options, refCyclesPerBit, dumpTag)
	d.framer = framer
	return d
}

// newRawBitFormatDecoderDump is the raw-trace counterpart of
// newBitFormatDecoderDump, used by the slow channel's edge-count
// Viterbi (slowBitViterbi/slowByteAt).
func newRawBitFormatDecoderDump(src sound.Sound, options tapefmt.DecoderOptions, refCyclesPerBit float64, framer rawFramer, dumpTag string) *bitFormatDecoder {
	d := newBitFormatDecoderBase(src, options, refCyclesPerBit, dumpTag)
	d.rawFramer = framer
	return d
}

func newBitFormatDecoderBase(src sound.Sound, options tapefmt.DecoderOptions, refCyclesPerBit float64, dumpTag string) *bitFormatDecoder {
	tRef := float64(src.SampleRate()) / float64(options.FRefHz) * refCyclesPerBit
	bin := newBinarizer(options.Binner, src, tRef)
	sampleRate := bin.SampleRate()

	startPos := int64(0)
	if options.Start >= 0 {
		startPos = int64(math.Floor(0.5 + options.Start*float64(sampleRate)))
	}
	endPos := bin.Length()
	if options.End >= 0 {
		if e := int64(math.Floor(0.5 + options.End*float64(sampleRate))); e < endPos {
			endPos = e
		}
	}
	if endPos < startPos+1 {
		endPos = startPos + 1
	}

	clock := newClockTracker(tRef, 0.07*tRef, 0.25*tRef)
	windowLen := (int(math.Floor(0.5+20*tRef)) / 4) * 4
	if windowLen < 64 {
		windowLen = 64
	}
	win := newSlidingWindow(windowLen)
	win.offset = startPos

	var dump *sound.DumpWriter
	if options.Dump && dumpTag != "" {
		dump = sound.NewDumpWriter("dump-dual-"+dumpTag+".wav", sampleRate)
	}

	return &bitFormatDecoder{bin: bin, clock: clock, win: win, bitPeriod: tRef, endPos: endPos, dump: dump}
}

// Close flushes the diagnostic dump waveform to disk, when the decoder
// was constructed with options.Dump set. Safe to call even when no
// dump is pending.
func (d *bitFormatDecoder) Close() error {
	if d.dump == nil {
		return nil
	}
	err := d.dump.Close()
	d.dump = nil
	return err
}

// decodeWindow reads one window's worth of raw/binarized signal and
// frames it into bytes via framer.
func (d *bitFormatDecoder) decodeWindow() []tapefmt.DecodedByte {
	if d.win.offset >= d.endPos {
		d.done = true
		return nil
	}

	_, dtClk := d.clock.window()
	evtXs, evtVals, dbgBuf := d.bin.Read(int(d.win.offset), d.win.windowLen, d.win.boundaryX, d.bitPeriod, dtClk)

	var out []tapefmt.DecodedByte
	if d.rawFramer != nil {
		given := d.win.boundaryX
		if given < 0 || given >= d.win.hopSize {
			given = 0
		}
		trace := dbgBuf[:d.win.hopSize]
		out = d.rawFramer(trace, d.bitPeriod, dtClk, given, 0, d.bin.SampleRate())
	} else {
		var bits []bool
		for i := 0; i+1 < len(evtXs); i++ {
			if evtXs[i] >= d.win.hopSize {
				break
			}
			run := int(math.Round(float64(evtXs[i+1]-evtXs[i]) / d.bitPeriod))
			if run < 1 {
				run = 1
			}
			for j := 0; j < run; j++ {
				bits = append(bits, evtVals[i])
			}
		}
		out = d.framer(bits, d.bitPeriod, 0, d.bin.SampleRate())
	}

	if d.dump != nil {
		d.dump.Write(dbgBuf[:d.win.hopSize])
	}
	for i := range out {
		out[i].Time += float64(d.win.offset) / float64(d.bin.SampleRate())
	}

	if len(evtXs) > 1 {
		d.clock.observeByte(d.bitPeriod, 1, true)
	} else {
		d.clock.observeWindow()
	}

	d.win.boundaryX = -1
	for _, x := range evtXs {
		if x >= d.win.hopSize {
			d.win.boundaryX = x
		}
	}
	d.win.advance()
	return out
}

// framSlowBitsViterbi is the slow channel's rawFramer: it runs
// slowBitViterbi over the raw reconstructed trace to locate byte
// onsets, then reads each byte's 13-bit code with slowByteAt.
func framSlowBitsViterbi(buf []float32, bitPeriod, dtClk float64, givenOnset int, xBase int, sampleRate int) []tapefmt.DecodedByte {
	onsets := slowBitViterbi(buf, givenOnset, bitPeriod, dtClk)
	var out []tapefmt.DecodedByte
	for _, x := range onsets {
		z, ok := slowByteAt(buf, x, bitPeriod)
		if !ok {
			continue
		}
		out = append(out, tapefmt.DecodedByte{
			Time:        float64(xBase+x) / float64(sampleRate),
			Slow:        true,
			Byte:        tapefmt.GetDataBits(z),
			SyncError:   !tapefmt.IsSyncOK(z),
			ParityError: !tapefmt.IsParityOK(z),
		})
	}
	return out
}

// peekableFormat buffers at most one lookahead byte from a
// bitFormatDecoder, letting DualDecoder compare onset times across
// formats before committing to either.
type peekableFormat struct {
	bfd       *bitFormatDecoder
	queue     []tapefmt.DecodedByte
	idx       int
	lookahead *tapefmt.DecodedByte
}

func newPeekableFormat(bfd *bitFormatDecoder) *peekableFormat {
	return &peekableFormat{bfd: bfd}
}

func (p *peekableFormat) peek() (tapefmt.DecodedByte, bool) {
	if p.lookahead != nil {
		return *p.lookahead, true
	}
	for p.idx >= len(p.queue) {
		if p.bfd.done {
			return tapefmt.DecodedByte{}, false
		}
		p.queue = p.bfd.decodeWindow()
		p.idx = 0
	}
	b := p.queue[p.idx]
	p.lookahead = &b
	return b, true
}

func (p *peekableFormat) consume() {
	p.lookahead = nil
	p.idx++
}

// DualDecoder decodes both the slow and fast tape formats from
// independent physical-bit binarizer pipelines (selected per
// DecoderOptions.Binner), merging the two candidate byte streams by
// onset time. Slow format uses a 16-reference-cycle bit period, fast
// format a shorter one (spec §6.2's 2-3 sample pulses scaled to the
// binarizer's sample-domain clock).
const (
	slowRefCyclesPerBit = 16
	fastRefCyclesPerBit = 5
)

type DualDecoder struct {
	slow *peekableFormat
	fast *peekableFormat
}

// NewDualDecoder constructs a DualDecoder over src.
func NewDualDecoder(src sound.Sound, options tapefmt.DecoderOptions) *DualDecoder {
	d := &DualDecoder{}
	if !options.Fast {
		d.slow = newPeekableFormat(newRawBitFormatDecoderDump(src, options, slowRefCyclesPerBit, framSlowBitsViterbi, "slow"))
	}
	if !options.Slow {
		d.fast = newPeekableFormat(newBitFormatDecoderDump(src, options, fastRefCyclesPerBit, fastFramerFor(options.Fdec), "fast"))
	}
	return d
}

// Close flushes any diagnostic dump waveforms to disk, when the
// decoder was constructed with options.Dump set.
func (d *DualDecoder) Close() error {
	var err error
	if d.slow != nil {
		if cerr := d.slow.bfd.Close(); cerr != nil {
			err = cerr
		}
	}
	if d.fast != nil {
		if cerr := d.fast.bfd.Close(); cerr != nil {
			err = cerr
		}
	}
	return err
}

// DecodeByte returns the next decoded byte, chosen from whichever of
// the slow/fast sub-decoders has the earlier pending onset.
func (d *DualDecoder) DecodeByte() (tapefmt.DecodedByte, bool) {
	var slowB, fastB tapefmt.DecodedByte
	var slowOK, fastOK bool
	if d.slow != nil {
		slowB, slowOK = d.slow.peek()
	}
	if d.fast != nil {
		fastB, fastOK = d.fast.peek()
	}
	switch {
	case slowOK && (!fastOK || slowB.Time <= fastB.Time):
		d.slow.consume()
		return slowB, true
	case fastOK:
		d.fast.consume()
		return fastB, true
	default:
		return tapefmt.DecodedByte{}, false
	}
}
