package decoder

import (
	"math"

	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
)

// fastFramerFor selects one of the three interchangeable fast-format
// bit-to-byte decoders by DecoderOptions.Fdec: orig favors exact
// sync-byte matches, plen scores byte alignment by correlating pulse
// lengths against a fixed template, and barrel walks a small
// state machine over pulse slots that tolerates one extra stop-bit
// pulse between bytes.
func fastFramerFor(fdec tapefmt.Fdec) byteFramer {
	switch fdec {
	case tapefmt.FdecPlen:
		return framFastBitsPlen
	case tapefmt.FdecBarrel:
		return framFastBitsBarrel
	default:
		return framFastBitsOrig
	}
}

// fastPulse is one high-run/low-run pair of the fast format's
// pulse-length encoding: a "1" symbol is a short pulse (total length 2
// reference units), a "0" symbol a long one (total length 3, or 4 for
// an overlong zero straddling a sync gap).
type fastPulse struct {
	start int // index into bits of the pulse's rising edge
	total int // total run length (high run + low run), in bits[] units
}

// fastPulses walks bits (one bool per fast-format reference unit,
// already binarized) into the sequence of high-run/low-run pulses the
// three fast decoders all key off.
func fastPulses(bits []bool) []fastPulse {
	var out []fastPulse
	n := len(bits)
	i := 0
	for i < n && !bits[i] {
		i++
	}
	for i < n {
		start := i
		hi := i
		for hi < n && bits[hi] {
			hi++
		}
		lo := hi
		for lo < n && !bits[lo] {
			lo++
		}
		if hi == start {
			break
		}
		out = append(out, fastPulse{start: start, total: lo - start})
		i = lo
	}
	return out
}

// pulseIsOne classifies a pulse's total run length against the two
// nominal symbol widths (2 units for a one-bit, 3 for a zero-bit),
// rounding to the nearer candidate.
func pulseIsOne(total int) bool {
	return math.Abs(float64(total)-2) <= math.Abs(float64(total)-3)
}

func pulsesToByte(ps []fastPulse) uint16 {
	var z uint16
	for k, p := range ps {
		if pulseIsOne(p.total) {
			z |= 1 << uint(k)
		}
	}
	return z
}

func pulseByteTime(ps []fastPulse, bitPeriod float64, xBase, sampleRate int) float64 {
	return float64(xBase) + float64(ps[0].start)*bitPeriod/float64(sampleRate)
}

// framFastBitsOrig decodes by scanning pulses left to right, grouping
// every run of slowBitsPerByte consecutive pulses into a byte, then
// nudging the start of the scan forward by one pulse at a time
// whenever the resulting code fails both the sync and parity checks:
// a stand-in for the original's 28-state Viterbi's sync-boosted
// shift-register comparison, which rewards an exact sync/parity match
// over any other phase alignment.
func framFastBitsOrig(bits []bool, bitPeriod float64, xBase, sampleRate int) []tapefmt.DecodedByte {
	pulses := fastPulses(bits)
	var out []tapefmt.DecodedByte
	i := 0
	for i+slowBitsPerByte <= len(pulses) {
		group := pulses[i : i+slowBitsPerByte]
		z := pulsesToByte(group)
		if !tapefmt.IsSyncOK(z) && !tapefmt.IsParityOK(z) && i+1+slowBitsPerByte <= len(pulses) {
			// Try the next phase before committing: a genuine byte
			// almost always satisfies one of the two checks.
			alt := pulsesToByte(pulses[i+1 : i+1+slowBitsPerByte])
			if tapefmt.IsSyncOK(alt) || tapefmt.IsParityOK(alt) {
				i++
				group = pulses[i : i+slowBitsPerByte]
				z = alt
			}
		}
		out = append(out, tapefmt.DecodedByte{
			Time:        pulseByteTime(group, bitPeriod, xBase, sampleRate),
			Slow:        false,
			Byte:        tapefmt.GetDataBits(z),
			SyncError:   !tapefmt.IsSyncOK(z),
			ParityError: !tapefmt.IsParityOK(z),
		})
		i += slowBitsPerByte
	}
	return out
}

// fastPlenWeights is the correlation template scoring a candidate
// pulse-length sequence against the expected start(long-capable)/
// data-parity(either)/stop(short) shape, used by framFastBitsPlen.
// A negative weight expects a long pulse, a positive one a short pulse.
var fastPlenWeights = func() [slowBitsPerByte]float64 {
	var w [slowBitsPerByte]float64
	w[0] = -2 // start bit: expect a zero-symbol (long pulse)
	for k := 1; k <= 9; k++ {
		w[k] = 0 // data+parity: either symbol is valid
	}
	w[10], w[11], w[12] = 2, 2, 2 // stop bits: expect one-symbols (short pulses)
	return w
}()

// framFastBitsPlen scores every candidate 13-pulse window by how well
// its pulse lengths correlate against the expected start/data/stop
// shape (fastPlenWeights) plus a bonus for landing on a sync/parity-
// valid code, then greedily emits the best-scoring non-overlapping
// windows left to right. This mirrors the original pulse-length
// correlation decoder's global-optimization flavor, in contrast to
// framFastBitsOrig's local phase nudge.
func framFastBitsPlen(bits []bool, bitPeriod float64, xBase, sampleRate int) []tapefmt.DecodedByte {
	pulses := fastPulses(bits)
	var out []tapefmt.DecodedByte
	i := 0
	for i+slowBitsPerByte <= len(pulses) {
		bestOffset, bestScore := 0, math.Inf(-1)
		maxOffset := 2
		if i+maxOffset+slowBitsPerByte > len(pulses) {
			maxOffset = len(pulses) - slowBitsPerByte - i
		}
		for offset := 0; offset <= maxOffset; offset++ {
			group := pulses[i+offset : i+offset+slowBitsPerByte]
			score := 0.0
			for k, p := range group {
				switch w := fastPlenWeights[k]; {
				case w < 0:
					score -= math.Abs(float64(p.total) - 3)
				case w > 0:
					score -= math.Abs(float64(p.total) - 2)
				default:
					score -= math.Min(math.Abs(float64(p.total)-2), math.Abs(float64(p.total)-3))
				}
			}
			z := pulsesToByte(group)
			if tapefmt.IsSyncOK(z) {
				score += 8
			}
			if tapefmt.IsParityOK(z) {
				score += 4
			}
			if score > bestScore {
				bestScore = score
				bestOffset = offset
			}
		}
		i += bestOffset
		group := pulses[i : i+slowBitsPerByte]
		z := pulsesToByte(group)
		out = append(out, tapefmt.DecodedByte{
			Time:        pulseByteTime(group, bitPeriod, xBase, sampleRate),
			Slow:        false,
			Byte:        tapefmt.GetDataBits(z),
			SyncError:   !tapefmt.IsSyncOK(z),
			ParityError: !tapefmt.IsParityOK(z),
		})
		i += slowBitsPerByte
	}
	return out
}

// framFastBitsBarrel decodes by walking pulses in fixed-size groups
// like framFastBitsOrig, but additionally tolerates a genuine "extra
// stop bit": if the pulse immediately following a completed byte is
// itself a clean one-symbol with no plausible start-bit partner (i.e.
// including it would immediately desync the next byte), it is
// consumed and discarded before resuming the scan, mirroring the
// barrel-shifter decoder's special-cased extra-stop-bit transition.
func framFastBitsBarrel(bits []bool, bitPeriod float64, xBase, sampleRate int) []tapefmt.DecodedByte {
	pulses := fastPulses(bits)
	var out []tapefmt.DecodedByte
	i := 0
	for i+slowBitsPerByte <= len(pulses) {
		group := pulses[i : i+slowBitsPerByte]
		z := pulsesToByte(group)
		out = append(out, tapefmt.DecodedByte{
			Time:        pulseByteTime(group, bitPeriod, xBase, sampleRate),
			Slow:        false,
			Byte:        tapefmt.GetDataBits(z),
			SyncError:   !tapefmt.IsSyncOK(z),
			ParityError: !tapefmt.IsParityOK(z),
		})
		i += slowBitsPerByte

		if i < len(pulses) && pulseIsOne(pulses[i].total) {
			if i+slowBitsPerByte > len(pulses) || !pulseIsOne(pulses[i+slowBitsPerByte-1].total) {
				i++
			}
		}
	}
	return out
}
