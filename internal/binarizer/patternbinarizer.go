package binarizer

import (
	"math"

	"github.com/erik-persson/oric-toolbox/internal/filter"
	"github.com/erik-persson/oric-toolbox/internal/sound"
)

// PatternBinarizer matches the balanced signal against a four-phase
// Viterbi state machine: Rise, High, Fall, Low. Each phase has
// t_clk_max slots; its last dt_clk slots double as elasticity states
// allowing early transition to the next phase. The transition pattern
// is a half-cosine ramp scaled by the local amplitude envelope; the
// plateaus are the envelope itself (sign-flipped for Low).
//
// Works for both fast and slow formats: only the caller's choice of
// t_ref (and hence the balancer's filter lengths) differs.
type PatternBinarizer struct {
	balancer *filter.Balancer
}

// NewPatternBinarizer wraps src with a balancer tuned to the nominal
// physical bit period t_ref (in samples).
func NewPatternBinarizer(src sound.Sound, tRef float64) *PatternBinarizer {
	mmFilterLen := int(math.Floor(4.5*tRef)) | 1
	lpFilterLen := int(math.Floor(12.0*tRef)) | 1
	return &PatternBinarizer{balancer: filter.NewBalancer(src, mmFilterLen, lpFilterLen)}
}

func (p *PatternBinarizer) SampleRate() int { return p.balancer.SampleRate() }
func (p *PatternBinarizer) Length() int64   { return p.balancer.Length() }

func (p *PatternBinarizer) Read(coreStart, coreLen, givenRiseEdge int, tClk, dtClk float64) ([]int, []bool, []float32) {
	sampleRate := p.SampleRate()
	leftMargin := marginSamples(sampleRate)
	rightMargin := leftMargin
	if givenRiseEdge >= 0 {
		leftMargin = 0
	}

	bufsize := leftMargin + coreLen + rightMargin
	buf := make([]float32, bufsize)
	abuf := make([]float32, bufsize)
	windowOffs := coreStart - leftMargin
	p.balancer.ReadWithAmplitude(int64(windowOffs), buf, abuf)

	if givenRiseEdge >= 0 {
		givenRiseEdge += leftMargin
	}

	dbgBuf := make([]float32, coreLen)

	tClkMin := int(math.Floor(0.5 + tClk - dtClk))
	tClkMax := int(math.Floor(0.5 + tClk + dtClk))

	ns := 4 * tClkMax
	sR := 0
	sH := 1 * tClkMax
	sF := 2 * tClkMax
	sL := 3 * tClkMax

	tSlope := tClkMin
	if tClkMin&1 != 0 {
		tSlope++
	}
	sTrigR := sR + tSlope/2 - 1
	sTrigH := sH + tSlope/2 - 1
	sTrigF := sF + tSlope/2 - 1
	sTrigL := sL + tSlope/2 - 1

	pattern := make([]float32, ns)
	k := math.Pi / float64(tSlope)
	for i := 0; i < tSlope; i++ {
		pattern[i] = float32(-math.Cos(k * float64(i+1)))
	}
	for i := tSlope; i < 2*tClkMax; i++ {
		pattern[i] = 1.0
	}
	for i := 0; i < 2*tClkMax; i++ {
		pattern[2*tClkMax+i] = -pattern[i]
	}

	costs := make([]float32, ns)
	for s := 0; s < ns; s++ {
		costs[s] = float32(math.Abs(float64(buf[0] - pattern[s]*abuf[0])))
	}
	if givenRiseEdge == 0 {
		for s := 0; s < ns; s++ {
			if s == sTrigR {
				costs[s] = 0
			} else {
				costs[s] = 1e20
			}
		}
	}

	// pred[i][0..3] holds the best predecessor state entering R/H/F/L
	// at step i.
	pred := make([][4]int16, bufsize)

	for i := 1; i < bufsize; i++ {
		next := make([]float32, ns)

		p := sR + tClkMax - 1
		c := costs[p]
		for s := sR + tClkMin - 1; s < sR+tClkMax-1; s++ {
			if costs[s] < c {
				c = costs[s]
				p = s
			}
		}
		pred[i][1] = int16(p)
		cH := c

		for s := sH + tClkMin - 1; s < sH+tClkMax; s++ {
			if costs[s] < c {
				c = costs[s]
				p = s
			}
		}
		pred[i][2] = int16(p)
		cF := c

		p = sF + tClkMax - 1
		c = costs[p]
		for s := sF + tClkMin - 1; s < sF+tClkMax-1; s++ {
			if costs[s] < c {
				c = costs[s]
				p = s
			}
		}
		pred[i][3] = int16(p)
		cL := c

		for s := sL + tClkMin - 1; s < sL+tClkMax; s++ {
			if costs[s] < c {
				c = costs[s]
				p = s
			}
		}
		pred[i][0] = int16(p)
		cR := c

		// Trivial predecessor for every non-phase-initial state: shift
		// down by one, i.e. state s inherits last step's cost of s-1.
		for s := ns - 1; s >= 1; s-- {
			next[s] = costs[s-1]
		}
		next[sR] = cR
		next[sH] = cH
		next[sF] = cF
		next[sL] = cL

		amp, sig := abuf[i], buf[i]
		for s := 0; s < tSlope; s++ {
			pv := pattern[s] * amp
			next[s] += float32(math.Abs(float64(sig - pv)))
			next[2*tClkMax+s] += float32(math.Abs(float64(sig + pv)))
		}
		dh := float32(math.Abs(float64(sig - amp)))
		dl := float32(math.Abs(float64(sig + amp)))
		for s := tSlope; s < 2*tClkMax; s++ {
			next[s] += dh
			next[2*tClkMax+s] += dl
		}

		if givenRiseEdge == i {
			for s := 0; s < ns; s++ {
				if s == sTrigR {
					next[s] = 0
				} else {
					next[s] = 1e20
				}
			}
		}

		costs = next
	}

	// Find best end state.
	s := 0
	c := costs[0]
	for s1 := 1; s1 < ns; s1++ {
		if costs[s1] < c {
			c = costs[s1]
			s = s1
		}
	}

	if x := bufsize - 1 - leftMargin; x >= 0 && x < coreLen {
		dbgBuf[x] = buf[bufsize-1]
	}

	evtXs := make([]int, 0, bufsize/tClkMin+4)
	evtVals := make([]bool, 0, cap(evtXs))
	lastRise := -1

	for i := bufsize - 2; i >= 0 && i >= givenRiseEdge; i-- {
		switch s {
		case sR:
			s = int(pred[i+1][0])
		case sH:
			s = int(pred[i+1][1])
		case sF:
			s = int(pred[i+1][2])
		case sL:
			s = int(pred[i+1][3])
		default:
			s--
		}

		if x := i - leftMargin; x >= 0 && x < coreLen {
			dbgBuf[x] = pattern[s] * abuf[i]
		}

		if s == sTrigR || s == sTrigH || s == sTrigF || s == sTrigL {
			if s == sTrigR {
				lastRise = len(evtXs)
			}
			evtVals = append(evtVals, s == sTrigR || s == sTrigH)
			evtXs = append(evtXs, i)
		}
	}

	evtXs = evtXs[:lastRise+1]
	evtVals = evtVals[:lastRise+1]

	for i, j := 0, len(evtXs)-1; i < j; i, j = i+1, j-1 {
		evtXs[i], evtXs[j] = evtXs[j], evtXs[i]
		evtVals[i], evtVals[j] = evtVals[j], evtVals[i]
	}
	for i := range evtXs {
		evtXs[i] -= leftMargin
	}

	return evtXs, evtVals, dbgBuf
}
