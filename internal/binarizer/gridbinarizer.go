package binarizer

import (
	"math"

	"github.com/erik-persson/oric-toolbox/internal/filter"
	"github.com/erik-persson/oric-toolbox/internal/sound"
)

// GridBinarizer finds physical bit boundaries by scoring an edge
// detection function against candidate grid-point spacings with a
// 1-D dynamic program, then samples bit levels from the low-passed
// signal at the chosen grid points.
type GridBinarizer struct {
	lowpass *filter.LowpassFilter
}

// NewGridBinarizer wraps src with a low-pass filter tuned to the
// nominal physical bit period t_ref.
func NewGridBinarizer(src sound.Sound, tRef float64) *GridBinarizer {
	lpFilterLen := int(math.Floor(2.0*tRef)) | 1
	return &GridBinarizer{lowpass: filter.NewLowpassFilter(src, lpFilterLen)}
}

func (g *GridBinarizer) SampleRate() int { return g.lowpass.SampleRate() }
func (g *GridBinarizer) Length() int64   { return g.lowpass.Length() }

// edgeDetectionFunction scores each sample for how plausible it is as
// a grid point: linear combination of four samples spaced at ±½t_clk
// and ±t_clk, enhanced by subtracting half the immediate neighbors and
// periodically averaging with the expected clock spacing so spurious
// local peaks away from the grid period are suppressed.
func edgeDetectionFunction(lp []float32, tClk float64, margin int) []float32 {
	half := tClk / 2
	edf := make([]float32, len(lp))
	for i := margin; i < len(lp)-margin; i++ {
		far := sampleAtLin(lp, float64(i)-tClk) + sampleAtLin(lp, float64(i)+tClk)
		near := sampleAtLin(lp, float64(i)-half) + sampleAtLin(lp, float64(i)+half)
		edf[i] = float32(math.Abs(float64(near)) - 0.5*math.Abs(float64(far)))
	}
	// Periodic averaging with the expected clock: blend each point
	// with its neighbors one clock period away, reinforcing grid-
	// aligned peaks and damping jitter.
	smoothed := make([]float32, len(edf))
	copy(smoothed, edf)
	for i := margin; i < len(edf)-margin; i++ {
		prev := sampleAtLin(edf, float64(i)-tClk)
		next := sampleAtLin(edf, float64(i)+tClk)
		smoothed[i] = 0.5*edf[i] + 0.25*(prev+next)
	}
	return smoothed
}

func sampleAtLin(buf []float32, x float64) float32 {
	i0 := int(math.Floor(x))
	if i0 < 0 || i0+1 >= len(buf) {
		return 0
	}
	f := float32(x - float64(i0))
	return buf[i0]*(1-f) + buf[i0+1]*f
}

func (g *GridBinarizer) Read(coreStart, coreLen, givenRiseEdge int, tClk, dtClk float64) ([]int, []bool, []float32) {
	sampleRate := g.SampleRate()
	margin := marginSamples(sampleRate)
	bufsize := margin + coreLen + margin

	lp := make([]float32, bufsize)
	g.lowpass.Read(int64(coreStart-margin), lp)

	tClkMin := int(math.Floor(0.5 + tClk - dtClk))
	tClkMax := int(math.Floor(0.5 + tClk + dtClk))

	edf := edgeDetectionFunction(lp, tClk, margin)

	// 1-D dynamic program: best[i] = best cumulative score of a grid
	// point sequence ending at i, reachable by a hop in
	// [tClkMin, tClkMax] from some predecessor.
	best := make([]float32, bufsize)
	from := make([]int32, bufsize)
	for i := range best {
		best[i] = float32(math.Inf(-1))
		from[i] = -1
	}

	start := margin
	if givenRiseEdge >= 0 {
		start = margin + givenRiseEdge
	}
	best[start] = edf[start]

	for i := start + 1; i < bufsize-margin; i++ {
		lo := i - tClkMax
		hi := i - tClkMin
		if lo < start {
			lo = start
		}
		if hi < lo {
			continue
		}
		bestPrev := float32(math.Inf(-1))
		bestJ := -1
		for j := lo; j <= hi; j++ {
			if best[j] > bestPrev {
				bestPrev = best[j]
				bestJ = j
			}
		}
		if bestJ >= 0 {
			best[i] = bestPrev + edf[i]
			from[i] = int32(bestJ)
		}
	}

	// Pick the best-scoring terminal grid point and backtrace.
	end := start
	endScore := best[start]
	for i := start + 1; i < bufsize-margin; i++ {
		if from[i] >= 0 && best[i] > endScore {
			endScore = best[i]
			end = i
		}
	}

	var grid []int
	for i := end; i >= start; {
		grid = append(grid, i)
		if from[i] < 0 {
			break
		}
		i = int(from[i])
	}
	// grid is in reverse (descending) order; flip to ascending.
	for i, j := 0, len(grid)-1; i < j; i, j = i+1, j-1 {
		grid[i], grid[j] = grid[j], grid[i]
	}

	dbgBuf := make([]float32, coreLen)
	for _, x := range grid {
		if d := x - margin; d >= 0 && d < coreLen {
			dbgBuf[d] = edf[x]
		}
	}

	evtXs := make([]int, 0, len(grid))
	evtVals := make([]bool, 0, len(grid))
	var prevLevel bool
	for idx, x := range grid {
		// Sample level by comparing against the average of the two
		// adjacent grid bins.
		level := lp[x] >= binAverage(lp, grid, idx)
		if idx == 0 {
			prevLevel = level
			evtXs = append(evtXs, x-margin)
			evtVals = append(evtVals, true) // first event is always a rising edge
			continue
		}
		if level != prevLevel {
			evtXs = append(evtXs, x-margin)
			evtVals = append(evtVals, level)
			prevLevel = level
		}
	}

	return evtXs, evtVals, dbgBuf
}

func binAverage(lp []float32, grid []int, idx int) float32 {
	lo := grid[idx]
	hi := grid[idx]
	if idx > 0 {
		lo = grid[idx-1]
	}
	if idx+1 < len(grid) {
		hi = grid[idx+1]
	}
	span := hi - lo
	if span <= 0 {
		return lp[grid[idx]]
	}
	var sum float32
	for x := lo; x < hi; x++ {
		sum += lp[x]
	}
	return sum / float32(span)
}
