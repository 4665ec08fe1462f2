// Package demod implements the slow-format demodulator: it multiplies
// the conditioned waveform by in-phase/quadrature carriers, low-passes
// and takes the magnitude, downsamples to a fixed subsample rate, then
// re-balances the result with an asymmetric min/max blend so the '1'
// symbol always reads positive.
package demod

import (
	"math"

	"github.com/erik-persson/oric-toolbox/internal/dsp"
)

// Demodulator produces the demodulated envelope for one band (low =
// 1200 Hz carrier for the '0' pattern, high = 2400 Hz carrier for the
// '1' pattern) of the slow tape format.
type Demodulator struct {
	src Source

	ssRate      int
	ssLen       int64
	useHighBand bool
	tCarrier    int
	tLowpass    int

	ckern, skern []float32

	mmFilterLen int
	thFilterLen int
}

// Source is the minimal read contract Demodulator needs; sound.Sound
// satisfies it.
type Source interface {
	SampleRate() int
	Length() int64
	Read(where int64, buf []float32) bool
}

// New constructs a Demodulator over src at the given reference physical
// symbol rate (nominally 4800 Hz). useHighBand selects the 2400 Hz
// carrier (the '1' pattern band) instead of the 1200 Hz carrier.
func New(src Source, fRefHz int, useHighBand bool) *Demodulator {
	carrierHz := fRefHz / 4
	if useHighBand {
		carrierHz = fRefHz / 2
	}

	srcRate := src.SampleRate()
	ssRate := fRefHz / 2

	d := &Demodulator{
		src:         src,
		ssRate:      ssRate,
		ssLen:       int64(math.Floor(0.5 + float64(src.Length())*float64(ssRate)/float64(srcRate))),
		useHighBand: useHighBand,
		tCarrier:    (srcRate + carrierHz/2) / carrierHz,
		tLowpass:    (16*srcRate/fRefHz) | 1,
		mmFilterLen: (256*ssRate/fRefHz) | 1,
	}
	d.thFilterLen = (3 * d.mmFilterLen) | 1

	d.ckern = make([]float32, d.tCarrier)
	d.skern = make([]float32, d.tCarrier)
	k := 2 * math.Pi / float64(d.tCarrier)
	for i := 0; i < d.tCarrier; i++ {
		phi := k * float64(i)
		d.ckern[i] = float32(math.Cos(phi))
		d.skern[i] = float32(math.Sin(phi))
	}

	return d
}

// SampleRate returns the subsampled output rate (nominally 2400 Hz).
func (d *Demodulator) SampleRate() int { return d.ssRate }

// Length returns the subsampled output length.
func (d *Demodulator) Length() int64 { return d.ssLen }

// readDemodFullres computes the carrier-multiplied, low-passed
// magnitude signal at source-sample resolution.
func (d *Demodulator) readDemodFullres(where int, buf []float32) bool {
	margin := d.tLowpass / 2
	ibufLen := len(buf) + 2*margin

	cbuf := make([]float32, ibufLen)
	if !d.src.Read(int64(where-margin), cbuf) {
		return false
	}
	sbuf := make([]float32, ibufLen)

	for i := 0; i < ibufLen; i++ {
		j := i % d.tCarrier
		sbuf[i] = cbuf[i] * d.skern[j]
		cbuf[i] *= d.ckern[j]
	}

	obuf0 := dsp.HannLowpass(cbuf, d.tLowpass)
	obuf1 := dsp.HannLowpass(sbuf, d.tLowpass)

	for i := range buf {
		buf[i] = float32(math.Sqrt(float64(obuf0[i])*float64(obuf0[i]) + float64(obuf1[i])*float64(obuf1[i])))
	}
	return true
}

// readDemod subsamples the full-resolution demodulated signal down to
// ssRate via cubic interpolation.
func (d *Demodulator) readDemod(where int, buf []float32) bool {
	srcRate := d.src.SampleRate()
	kSub := float64(srcRate) / float64(d.ssRate)

	const interpMargin = 3
	t0 := int(math.Floor(kSub*float64(where))) - interpMargin
	t1 := int(math.Ceil(kSub*float64(where+len(buf)-1))) + interpMargin
	dsinLen := t1 + 1 - t0

	dsinBuf := make([]float32, dsinLen)
	ok := d.readDemodFullres(t0, dsinBuf)

	for i := range buf {
		buf[i] = dsp.Interp(dsinBuf, kSub*float64(where+i)-float64(t0))
	}
	return ok
}

// Read fills buf with the balanced, polarity-normalized demodulated
// envelope at subsample offset "where". '1' always reads positive.
func (d *Demodulator) Read(where int, buf []float32) bool {
	mmMargin := d.mmFilterLen / 2
	thMargin := d.thFilterLen / 2
	mmLen := len(buf) + 2*thMargin
	iLen := mmLen + 2*mmMargin

	ibuf := make([]float32, iLen)
	ok := d.readDemod(where-mmMargin-thMargin, ibuf)

	minBuf := dsp.RunningMin(ibuf, d.mmFilterLen)
	maxBuf := dsp.RunningMax(ibuf, d.mmFilterLen)

	// Blend 65% min / 35% max: handles signal-strength dips better than
	// a straight 50/50 average.
	threshold := make([]float32, mmLen)
	for i := range threshold {
		threshold[i] = 0.65*minBuf[i] + 0.35*maxBuf[i]
	}

	lp := dsp.HannLowpass(threshold, d.thFilterLen)

	if d.useHighBand {
		for i := range buf {
			buf[i] = ibuf[mmMargin+thMargin+i] - lp[i]
		}
	} else {
		for i := range buf {
			buf[i] = lp[i] - ibuf[mmMargin+thMargin+i]
		}
	}
	return ok
}
