package decoder

import (
	"math"

	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
)

// greyzone maps val linearly onto [0,1] between falseBar and trueBar,
// clamping outside that range: the fuzzy confidence primitive the
// start-bit classifiers below use instead of a hard threshold.
func greyzone(falseBar, trueBar, val float64) float64 {
	if trueBar == falseBar {
		return 0
	}
	c := (val - falseBar) / (trueBar - falseBar)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// xenonGlobalThreshold is the whole-trace reference WPIF magnitude the
// height classifier scales its grey zone from.
func xenonGlobalThreshold(wpifTr []float32) float64 {
	if len(wpifTr) == 0 {
		return 0
	}
	var sum float64
	for _, v := range wpifTr {
		sum += math.Abs(float64(v))
	}
	return 2 * sum / float64(len(wpifTr))
}

// xenonHeightConfidence classifies index i of wpifTr as a start-bit
// candidate by how far its peak height sits above the trace's global
// threshold, and how isolated it is from other same-polarity peaks
// within the preceding seven clocks: a genuine start bit is the first
// strong peak in the run, not one buried among several.
func xenonHeightConfidence(wpifTr []float32, i int, clk, threshold float64) float64 {
	v := float64(wpifTr[i])
	av := math.Abs(v)
	conf := greyzone(0.7*threshold, 1.3*threshold, av)
	if conf <= 0 {
		return 0
	}
	pol := 1.0
	if v < 0 {
		pol = -1
	}
	for k := 1; k <= 7; k++ {
		j := i - int(math.Round(float64(k)*clk))
		if j < 0 {
			break
		}
		if pol*float64(wpifTr[j]) > threshold {
			return 0
		}
	}
	return conf
}

// xenonWidthConfidence classifies index i of npifTr as a start-bit
// candidate by looking for the sync tail's narrow-narrow-narrow-wide
// pulse-width signature immediately before it.
func xenonWidthConfidence(npifTr []float32, i int, clk float64) float64 {
	want := [...]bool{true, true, true, false}
	matched := 0.0
	for k, expectOne := range want {
		j := i - int(math.Round(float64(len(want)-k)*clk))
		if j < 0 || j >= len(npifTr) {
			continue
		}
		isOne := npifTr[j] > 0
		if isOne == expectOne {
			matched++
		}
	}
	return matched / float64(len(want))
}

// xenonStartConfidence scores every sample of the conditioned traces
// as a start-bit candidate, combining the height-based and width-based
// classifiers (spec's "start-bit detector combining height and width
// classifiers") by taking their maximum: either one firing strongly is
// enough.
func xenonStartConfidence(wpifTr, npifTr []float32, clk float64) []float64 {
	n := len(wpifTr)
	conf := make([]float64, n)
	threshold := xenonGlobalThreshold(wpifTr)
	for i := 0; i < n; i++ {
		h := xenonHeightConfidence(wpifTr, i, clk, threshold)
		w := xenonWidthConfidence(npifTr, i, clk)
		if w > h {
			conf[i] = w
		} else {
			conf[i] = h
		}
	}
	return conf
}

// xenonCandidates picks local maxima of conf above a minimum
// confidence, spaced at least one clock apart, as byte-onset
// candidates for the byte-track Viterbi.
func xenonCandidates(conf []float64, clk float64) []int {
	minGap := int(math.Round(clk))
	if minGap < 1 {
		minGap = 1
	}
	var xs []int
	last := -minGap - 1
	for i, c := range conf {
		if c < 0.5 {
			continue
		}
		if len(xs) > 0 && i-last < minGap {
			if c > conf[xs[len(xs)-1]] {
				xs[len(xs)-1] = i
				last = i
			}
			continue
		}
		xs = append(xs, i)
		last = i
	}
	return xs
}

// readByteWide reads 13 bits forward from x by tracking WPIF
// zero-symbol peaks: each bit spans [2,4] clocks, and the peak nearest
// the expected 3-clock zero-symbol spacing within that span (if any)
// marks a zero bit, adapting its local threshold toward the last
// confirmed peak height so a run of quiet bits doesn't starve the
// search.
func readByteWide(wpifTr []float32, x int, clk float64) (z uint16, nextX int, conf float64, ok bool) {
	globalThr := xenonGlobalThreshold(wpifTr)
	pos := x
	lastHeight := globalThr
	total := 0.0
	for b := 0; b < slowBitsPerByte; b++ {
		lo := pos + int(math.Round(2*clk))
		hi := pos + int(math.Round(4*clk))
		if lo < 0 || hi >= len(wpifTr) {
			return 0, 0, 0, false
		}
		localThresh := 0.7*lastHeight + 0.2*globalThr

		bestJ, bestV := -1, 0.0
		for j := lo; j <= hi; j++ {
			v := math.Abs(float64(wpifTr[j]))
			if v >= localThresh && v > bestV {
				bestV, bestJ = v, j
			}
		}

		isOne := true
		step := int(math.Round(2 * clk))
		if bestJ >= 0 {
			d2 := math.Abs(float64(bestJ-pos) - 2*clk)
			d3 := math.Abs(float64(bestJ-pos) - 3*clk)
			isOne = d2 <= d3
			step = bestJ - pos
			lastHeight = bestV
		}
		if isOne {
			z |= 1 << uint(b)
		}
		total += greyzone(0.5, 1.5, bestV/math.Max(localThresh, 1e-9))
		pos += step
	}
	return z, pos, total / slowBitsPerByte, true
}

// readByteArea reads 13 bits forward from x by integrating the area of
// NPIF's negative (underside) excursion around each expected symbol
// center: a zero-symbol's longer pulse sweeps noticeably more area
// than a one-symbol's, so thresholding area (adapted toward the last
// confirmed zero-symbol's area, same as readByteWide's height
// adaptation) classifies the bit without depending on absolute peak
// height, useful where tape stretch makes height alone unreliable.
func readByteArea(npifTr []float32, x int, clk float64) (z uint16, nextX int, conf float64, ok bool) {
	globalRef := areaGlobalRef(npifTr, clk)
	pos := x
	lastArea := globalRef
	total := 0.0
	for b := 0; b < slowBitsPerByte; b++ {
		lo := pos + int(math.Round(2*clk))
		hi := pos + int(math.Round(4*clk))
		if lo < 0 || hi >= len(npifTr) {
			return 0, 0, 0, false
		}
		center := pos + int(math.Round(3*clk))
		if center >= len(npifTr) {
			center = hi
		}
		area := areaAround(npifTr, center, int(math.Round(clk)))
		localThresh := 0.7*lastArea + 0.3*globalRef

		isOne := area < localThresh
		total += greyzone(0.5*localThresh, 1.5*localThresh, area)
		if isOne {
			z |= 1 << uint(b)
			pos += int(math.Round(2 * clk))
		} else {
			lastArea = area
			pos = center
		}
	}
	return z, pos, total / slowBitsPerByte, true
}

func areaAround(buf []float32, center, half int) float64 {
	lo, hi := center-half, center+half
	if lo < 0 {
		lo = 0
	}
	if hi >= len(buf) {
		hi = len(buf) - 1
	}
	sum := 0.0
	for i := lo; i <= hi; i++ {
		if buf[i] < 0 {
			sum += float64(-buf[i])
		}
	}
	return sum
}

// areaGlobalRef is the whole-trace average dip area readByteArea uses
// as a floor for its adaptive threshold, so a run of consecutive
// one-symbols (no dip at all) doesn't let the threshold decay to zero.
func areaGlobalRef(buf []float32, clk float64) float64 {
	step := int(math.Round(clk))
	if step < 1 {
		step = 1
	}
	var sum float64
	n := 0
	for i := 0; i+step < len(buf); i += step {
		sum += areaAround(buf, i, step)
		n++
	}
	if n == 0 || sum == 0 {
		return 1
	}
	return sum / float64(n)
}

// xenonStability scores a candidate byte by decode confidence plus a
// bonus for satisfying its own frame invariants, the heuristic
// CueAuto uses to pick between the wide-peak and underside readers.
func xenonStability(z uint16, conf float64) float64 {
	s := conf
	if tapefmt.IsSyncOK(z) {
		s++
	}
	if tapefmt.IsParityOK(z) {
		s++
	}
	return s
}

// xenonReadByte reads one byte at x using the reader(s) selected by
// cue: CueWide/CueArea commit to a single reader, CueAuto runs both
// and keeps whichever scores higher by xenonStability.
func xenonReadByte(cue tapefmt.Cue, wpifTr, npifTr []float32, x int, clk float64) (z uint16, nextX int, conf float64, ok bool) {
	switch cue {
	case tapefmt.CueWide:
		return readByteWide(wpifTr, x, clk)
	case tapefmt.CueArea:
		return readByteArea(npifTr, x, clk)
	default:
		zw, nw, cw, okw := readByteWide(wpifTr, x, clk)
		za, na, ca, oka := readByteArea(npifTr, x, clk)
		switch {
		case okw && (!oka || xenonStability(zw, cw) >= xenonStability(za, ca)):
			return zw, nw, cw, okw
		case oka:
			return za, na, ca, oka
		default:
			return 0, 0, 0, false
		}
	}
}

// xenonByte is one candidate byte read at a start-bit candidate.
type xenonByte struct {
	x, nextX int
	z        uint16
	conf     float64
	ok       bool
}

// xenonByteTrack runs a two-state (take/skip) Viterbi over the
// start-bit candidates, picking the subsequence of "take" decisions
// that maximizes total read confidence while rewarding a candidate
// whose predecessor's reader landed close to its own start: the
// byte-track selection the spec calls for, distinguishing a real chain
// of consecutive bytes from an isolated false start-bit trigger.
func xenonByteTrack(cands []int, conf []float64, wpifTr, npifTr []float32, clk float64, cue tapefmt.Cue) []xenonByte {
	n := len(cands)
	if n == 0 {
		return nil
	}
	reads := make([]xenonByte, n)
	for i, x := range cands {
		z, nextX, c, ok := xenonReadByte(cue, wpifTr, npifTr, x, clk)
		reads[i] = xenonByte{x: x, nextX: nextX, z: z, conf: c + conf[x], ok: ok}
	}

	const skipCost = 1.0
	const chainBonus = 1.5

	cost := make([][2]float64, n)
	pred := make([][2]int, n)
	for i := 0; i < n; i++ {
		takeCost := math.Inf(1)
		if reads[i].ok {
			takeCost = skipCost - reads[i].conf
		}
		if i == 0 {
			cost[i][0], pred[i][0] = takeCost, -1
			cost[i][1], pred[i][1] = skipCost, -1
			continue
		}
		fromTake, fromSkip := cost[i-1][0], cost[i-1][1]

		bonus := 0.0
		if reads[i-1].ok && fromTake <= fromSkip && intAbs(reads[i].x-reads[i-1].nextX) <= int(math.Round(clk)) {
			bonus = chainBonus
		}
		if fromTake <= fromSkip {
			cost[i][0], pred[i][0] = fromTake+takeCost-bonus, 0
		} else {
			cost[i][0], pred[i][0] = fromSkip+takeCost-bonus, 1
		}
		if fromTake <= fromSkip {
			cost[i][1], pred[i][1] = fromTake+skipCost, 0
		} else {
			cost[i][1], pred[i][1] = fromSkip+skipCost, 1
		}
	}

	state := 0
	if cost[n-1][1] < cost[n-1][0] {
		state = 1
	}
	take := make([]bool, n)
	for i := n - 1; i >= 0; i-- {
		take[i] = state == 0
		state = pred[i][state]
	}

	var out []xenonByte
	for i, t := range take {
		if t && reads[i].ok {
			out = append(out, reads[i])
		}
	}
	return out
}

func intAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
