package decoder

import "math"

// kD weights the data-phase score against the start/stop phases so the
// optimizer doesn't squeeze in as many syncs as the signal can bear.
const kD = 0.6

// demodViterbi finds byte onsets (start-bit locations) in a
// demodulated signal buf by maximizing a 3-phase score over A (start,
// 16 physical bits), D (data+parity, 144) and E (stop, 49), for a
// total nominal 209 physical bits per byte. The start phase rewards
// negative signal, the stop phase positive signal, and the data phase
// rewards magnitude (so it doesn't care about polarity, only that a
// modulated carrier is actually present).
//
// givenOnset, when >= 0, forces a byte onset at that exact sample.
func demodViterbi(buf []float32, givenOnset int, tClk, dtClk float64) []int {
	tClkMin := tClk - dtClk
	tClkMax := tClk + dtClk

	tAMin := int(math.Floor(0.5 + 16*tClkMin))
	tAMax := int(math.Floor(0.5 + 16*tClkMax))
	tEMin := int(math.Floor(0.5 + 49*tClkMin))
	tEMax := int(math.Floor(0.5 + 49*tClkMax))
	tDMin := int(math.Floor(0.5 + 209*tClkMin - float64(tAMin) - float64(tEMin)))
	tDMax := int(math.Floor(0.5 + 209*tClkMax - float64(tAMax) - float64(tEMax)))

	ns := tAMax + tDMax + tEMax
	sA, sD, sE := 0, tAMax, tAMax+tDMax

	scores := make([]float32, ns)
	y0 := buf[0]
	for s := 0; s < ns; s += 2 {
		switch {
		case s < sD:
			scores[s] = -y0
		case s < sE:
			scores[s] = float32(kD) * float32(math.Abs(float64(y0)))
		default:
			scores[s] = y0
		}
	}
	if givenOnset == 0 {
		for s := 1; s < ns; s++ {
			scores[s] = -1e20
		}
	}

	length := len(buf)
	pred := make([][3]int32, length)

	for i := 1; i < length; i++ {
		predA := sE + tEMax - 1
		predD := sA + tAMax - 1
		predE := sD + tDMax - 1

		scoreA := scores[predA]
		scoreD := scores[predD]
		scoreE := scores[predE]

		for s := sE + tEMin - 1; s < sE+tEMax-1; s++ {
			if scores[s] > scoreA {
				scoreA = scores[s]
				predA = s
			}
		}
		for s := sA + tAMin - 1; s < sA+tAMax-1; s++ {
			if scores[s] > scoreD {
				scoreD = scores[s]
				predD = s
			}
		}
		for s := sD + tDMin - 1; s < sD+tDMax-1; s++ {
			if scores[s] > scoreE {
				scoreE = scores[s]
				predE = s
			}
		}

		pred[i][0] = int32(predA)
		pred[i][1] = int32(predD)
		pred[i][2] = int32(predE)

		next := make([]float32, ns)
		for s := ns - 1; s >= 1; s-- {
			next[s] = scores[s-1]
		}
		next[sA] = scoreA
		next[sD] = scoreD
		next[sE] = scoreE

		y := buf[i]
		for s := sA; s < sD; s++ {
			next[s] -= y
		}
		for s := sD; s < sE; s++ {
			next[s] += float32(kD) * float32(math.Abs(float64(y)))
		}
		for s := sE; s < ns; s++ {
			next[s] += y
		}

		if givenOnset == i {
			for s := 1; s < ns; s++ {
				next[s] = -1e20
			}
		}

		scores = next
	}

	s := 0
	score := scores[0]
	for s1 := 1; s1 < ns; s1++ {
		if scores[s1] > score {
			score = scores[s1]
			s = s1
		}
	}

	var xs []int
	for i := length - 2; i >= 0; i-- {
		switch s {
		case sA:
			s = int(pred[i+1][0])
		case sD:
			s = int(pred[i+1][1])
		case sE:
			s = int(pred[i+1][2])
		default:
			s--
		}
		if s == sA {
			xs = append(xs, i)
		}
	}

	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
	return xs
}
