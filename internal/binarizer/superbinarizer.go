package binarizer

import (
	"math"

	"github.com/erik-persson/oric-toolbox/internal/filter"
	"github.com/erik-persson/oric-toolbox/internal/sound"
)

// superScale is the number of sub-sample stride states per input
// sample used by the fractional-stride grid walk.
const superScale = 4

// SuperBinarizer is a refined Grid variant: it bandpasses the input
// (a narrow low-pass minus a wide one), forms a magnitude signal,
// re-balances it against a moving-average envelope, then walks a
// fractional-stride grid over up to 256 stride states spanning
// [t_clk_min, t_clk_max] at superScale sub-samples per input sample.
// The walk is greedy: from each grid point it takes the stride whose
// next point scores best and does not revisit earlier choices, so it
// is not a full Viterbi search over stride sequences. Bit values are
// sampled from the bandpass signal at the chosen grid points.
type SuperBinarizer struct {
	longFilter  *filter.LowpassFilter
	shortFilter *filter.LowpassFilter
}

// NewSuperBinarizer wraps src with long/short low-pass filters tuned
// to the nominal physical bit period t_ref.
func NewSuperBinarizer(src sound.Sound, tRef float64) *SuperBinarizer {
	longLen := int(math.Floor(12.0*tRef)) | 1
	shortLen := int(math.Floor(2.0*tRef)) | 1
	return &SuperBinarizer{
		longFilter:  filter.NewLowpassFilter(src, longLen),
		shortFilter: filter.NewLowpassFilter(src, shortLen),
	}
}

func (b *SuperBinarizer) SampleRate() int { return b.shortFilter.SampleRate() }
func (b *SuperBinarizer) Length() int64   { return b.longFilter.Length() }

func (b *SuperBinarizer) Read(coreStart, coreLen, givenRiseEdge int, tClk, dtClk float64) ([]int, []bool, []float32) {
	sampleRate := b.SampleRate()
	margin := marginSamples(sampleRate)
	bufsize := margin + coreLen + margin

	longBuf := make([]float32, bufsize)
	shortBuf := make([]float32, bufsize)
	b.longFilter.Read(int64(coreStart-margin), longBuf)
	b.shortFilter.Read(int64(coreStart-margin), shortBuf)

	bandBuf := make([]float32, bufsize)
	for i := range bandBuf {
		bandBuf[i] = shortBuf[i] - longBuf[i]
	}

	// Secondary balance: magnitude of the bandpass signal, low-passed
	// to recover a local amplitude envelope, divided out so the grid
	// score is amplitude-normalized.
	magBuf := make([]float32, bufsize)
	for i, v := range bandBuf {
		magBuf[i] = float32(math.Abs(float64(v)))
	}
	envelope := hannSmooth(magBuf, int(math.Floor(6.0*tClk))|1)

	edf := make([]float32, bufsize)
	for i := range edf {
		if envelope[i] > 1e-9 {
			edf[i] = float32(math.Abs(float64(bandBuf[i]))) / envelope[i]
		}
	}

	// Fractional-stride grid walk: states are candidate hop lengths
	// expressed in 1/superScale-sample units, spanning
	// [t_clk_min, t_clk_max] and capped at 256 states.
	tClkMin := int(math.Floor(0.5 + tClk - dtClk))
	tClkMax := int(math.Floor(0.5 + tClk + dtClk))
	strideLo := tClkMin * superScale
	strideHi := tClkMax * superScale
	if strideHi-strideLo > 255 {
		strideHi = strideLo + 255
	}

	start := margin * superScale
	if givenRiseEdge >= 0 {
		start = (margin + givenRiseEdge) * superScale
	}
	limit := (bufsize - margin) * superScale

	best := map[int]float32{start: sampleSuperEdf(edf, start)}
	from := map[int]int{}

	positions := []int{start}
	for pos := start; pos < limit; {
		nextPos := pos + strideLo
		if nextPos >= limit {
			break
		}
		bestScore := float32(math.Inf(-1))
		bestStride := strideLo
		for stride := strideLo; stride <= strideHi; stride++ {
			cand := pos + stride
			if cand >= limit {
				break
			}
			score := best[pos] + sampleSuperEdf(edf, cand)
			if score > bestScore {
				bestScore = score
				bestStride = stride
			}
		}
		cand := pos + bestStride
		if _, ok := best[cand]; !ok || bestScore > best[cand] {
			best[cand] = bestScore
			from[cand] = pos
			positions = append(positions, cand)
		}
		pos = cand
	}

	var gridSub []int
	for p := positions[len(positions)-1]; ; {
		gridSub = append(gridSub, p)
		prev, ok := from[p]
		if !ok {
			break
		}
		p = prev
	}
	for i, j := 0, len(gridSub)-1; i < j; i, j = i+1, j-1 {
		gridSub[i], gridSub[j] = gridSub[j], gridSub[i]
	}

	dbgBuf := make([]float32, coreLen)
	evtXs := make([]int, 0, len(gridSub))
	evtVals := make([]bool, 0, len(gridSub))
	for idx, p := range gridSub {
		x := p / superScale
		if d := x - margin; d >= 0 && d < coreLen {
			dbgBuf[d] = bandBuf[x]
		}
		level := bandBuf[x] >= 0
		if idx == 0 {
			evtXs = append(evtXs, x-margin)
			evtVals = append(evtVals, true)
			continue
		}
		prevLevel := evtVals[len(evtVals)-1]
		if level != prevLevel {
			evtXs = append(evtXs, x-margin)
			evtVals = append(evtVals, level)
		}
	}

	return evtXs, evtVals, dbgBuf
}

// sampleSuperEdf reads the edge detection function at a fractional
// (superScale-subdivided) position via linear interpolation.
func sampleSuperEdf(edf []float32, subPos int) float32 {
	x := float64(subPos) / float64(superScale)
	return sampleAtLin(edf, x)
}

// hannSmooth applies a plain moving average as a cheap stand-in for a
// full Hann low-pass when only a scalar envelope (not a signed
// waveform) is being smoothed; odd length, zero-padded.
func hannSmooth(src []float32, length int) []float32 {
	if length < 1 {
		length = 1
	}
	half := length / 2
	out := make([]float32, len(src))
	for i := range src {
		var sum float32
		var n int
		for k := -half; k <= half; k++ {
			j := i + k
			if j >= 0 && j < len(src) {
				sum += src[j]
				n++
			}
		}
		if n > 0 {
			out[i] = sum / float32(n)
		}
	}
	return out
}
