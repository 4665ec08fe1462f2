package decoder

import (
	"math"

	"github.com/erik-persson/oric-toolbox/internal/dsp"
	"github.com/erik-persson/oric-toolbox/internal/sound"
	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
)

// xenonFastRefCyclesPerBit mirrors the fast-format bit period used
// elsewhere in this package (see dualdecoder.go); XenonDecoder only
// ever decodes the fast format.
const xenonFastRefCyclesPerBit = fastRefCyclesPerBit

// wpif computes the wide-peak indicator function: a four-tap
// difference centered 1.5/0.5 cycles either side of each sample, which
// sharpens the short-pulse/long-pulse distinction the fast format's
// pulse-width encoding relies on (spec.md §4.5.3).
func wpif(x []float32, t float64) []float32 {
	out := make([]float32, len(x))
	for i := range out {
		a := dsp.InterpLin(x, float64(i)-1.5*t)
		b := dsp.InterpLin(x, float64(i)-0.5*t)
		c := dsp.InterpLin(x, float64(i)+0.5*t)
		d := dsp.InterpLin(x, float64(i)+1.5*t)
		out[i] = -a + b + c - d
	}
	return out
}

// npif computes the narrow-peak indicator function: a discrete second
// derivative at one cycle's spacing, used to locate start-bit edges.
func npif(x []float32, t float64) []float32 {
	out := make([]float32, len(x))
	for i := range out {
		a := dsp.InterpLin(x, float64(i)-t)
		b := dsp.InterpLin(x, float64(i))
		c := dsp.InterpLin(x, float64(i)+t)
		out[i] = -a + 2*b - c
	}
	return out
}

// xenonCondition runs the two-reference-period Hann low-pass and
// returns both the WPIF and NPIF traces described in spec.md §4.5.3:
// WPIF sharpens the short-pulse/long-pulse distinction the wide-peak
// reader and the height-based start-bit classifier key off, NPIF's
// discrete second derivative exposes the sync tail's narrow pulses the
// width-based start-bit classifier and the underside/area reader key
// off.
func xenonCondition(raw []float32, t float64) (wpifTr, npifTr []float32) {
	filterLen := int(math.Round(2*t)) | 1
	if filterLen < 3 {
		filterLen = 3
	}
	lp := dsp.HannLowpass(raw, filterLen)
	return wpif(lp, t), npif(lp, t)
}

// XenonDecoder decodes the fast tape format from a peak-detection
// pipeline (WPIF/NPIF conditioning over the raw waveform) rather than
// demodulation: a start-bit detector locates byte-onset candidates, a
// byte-track Viterbi picks the real chain of bytes among them, and a
// wide-peak or underside/area reader (per DecoderOptions.Cue) reads
// each byte's bits. It additionally tracks gaps between consecutive
// bytes to emit 0x1fff padding bytes (spec.md §8): a byte with
// SyncError set and Byte == 0xff, one per missing nominal byte length
// in the gap minus one.
type XenonDecoder struct {
	nominalByteLen float64
	lastEnd        float64 // end time (seconds) of the last byte emitted, -1 if none yet

	bytes   []tapefmt.DecodedByte
	byteIdx int

	pending []tapefmt.DecodedByte
	pendIdx int

	dump *sound.DumpWriter
}

// NewXenonDecoder constructs a XenonDecoder over src.
func NewXenonDecoder(src sound.Sound, options tapefmt.DecoderOptions) *XenonDecoder {
	t := float64(src.SampleRate()) / float64(options.FRefHz)
	clk := t * xenonFastRefCyclesPerBit

	raw := make([]float32, src.Length())
	src.Read(0, raw)
	wpifTr, npifTr := xenonCondition(raw, clk)

	conf := xenonStartConfidence(wpifTr, npifTr, clk)
	cands := xenonCandidates(conf, clk)
	reads := xenonByteTrack(cands, conf, wpifTr, npifTr, clk, options.Cue)

	bytes := make([]tapefmt.DecodedByte, len(reads))
	for i, r := range reads {
		bytes[i] = tapefmt.DecodedByte{
			Time:        float64(r.x) / float64(src.SampleRate()),
			Slow:        false,
			Byte:        tapefmt.GetDataBits(r.z),
			SyncError:   !tapefmt.IsSyncOK(r.z),
			ParityError: !tapefmt.IsParityOK(r.z),
		}
	}

	nominalByteLen := slowBitsPerByte * clk / float64(src.SampleRate())

	var dump *sound.DumpWriter
	if options.Dump {
		dump = sound.NewDumpWriter("dump-xenon.wav", src.SampleRate())
		dump.Write(wpifTr)
	}

	return &XenonDecoder{
		nominalByteLen: nominalByteLen,
		lastEnd:        -1,
		bytes:          bytes,
		dump:           dump,
	}
}

// Close flushes the diagnostic dump waveform to disk, when the decoder
// was constructed with options.Dump set. Safe to call even when no
// dump is pending.
func (d *XenonDecoder) Close() error {
	if d.dump == nil {
		return nil
	}
	err := d.dump.Close()
	d.dump = nil
	return err
}

// DecodeByte returns the next decoded byte, interleaving 0x1fff
// padding bytes ahead of any real byte that follows an unexplained
// gap in the tape.
func (d *XenonDecoder) DecodeByte() (tapefmt.DecodedByte, bool) {
	for d.pendIdx >= len(d.pending) {
		if d.byteIdx >= len(d.bytes) {
			return tapefmt.DecodedByte{}, false
		}
		next := d.bytes[d.byteIdx]
		d.byteIdx++
		d.pending = d.padBefore(next)
		d.pendIdx = 0
	}
	b := d.pending[d.pendIdx]
	d.pendIdx++
	d.lastEnd = b.Time + d.nominalByteLen
	return b, true
}

// padBefore returns the padding bytes (if any) a gap before next
// implies, followed by next itself.
func (d *XenonDecoder) padBefore(next tapefmt.DecodedByte) []tapefmt.DecodedByte {
	if d.lastEnd < 0 || d.nominalByteLen <= 0 {
		return []tapefmt.DecodedByte{next}
	}
	gap := next.Time - d.lastEnd
	if gap <= d.nominalByteLen*0.5 {
		return []tapefmt.DecodedByte{next}
	}
	n := int(math.Ceil(gap/d.nominalByteLen)) - 1
	if n <= 0 {
		return []tapefmt.DecodedByte{next}
	}
	out := make([]tapefmt.DecodedByte, 0, n+1)
	for i := 0; i < n; i++ {
		out = append(out, tapefmt.DecodedByte{
			Time:      d.lastEnd + float64(i)*d.nominalByteLen,
			Slow:      false,
			Byte:      0xff,
			SyncError: true,
		})
	}
	out = append(out, next)
	return out
}
