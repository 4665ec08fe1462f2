package filter

import (
	"github.com/erik-persson/oric-toolbox/internal/dsp"
	"github.com/erik-persson/oric-toolbox/internal/sound"
)

// Balancer is a nonlinear high-pass filter: it tracks a local threshold
// as the low-passed average of the running min and max, and subtracts
// that threshold from the (delayed) input. Optionally it also produces
// an amplitude envelope from the running min/max spread. Both filter
// lengths must be odd.
type Balancer struct {
	src         sound.Sound
	mmFilterLen int
	lpFilterLen int
}

// NewBalancer wraps src. mmFilterLen controls the running min/max
// window, lpFilterLen the threshold (and amplitude) low-pass window.
func NewBalancer(src sound.Sound, mmFilterLen, lpFilterLen int) *Balancer {
	if mmFilterLen&1 == 0 || lpFilterLen&1 == 0 {
		panic("filter: Balancer filter lengths must be odd")
	}
	return &Balancer{src: src, mmFilterLen: mmFilterLen, lpFilterLen: lpFilterLen}
}

func (b *Balancer) SampleRate() int { return b.src.SampleRate() }
func (b *Balancer) Length() int64   { return b.src.Length() }

// Read fills buf with the balanced signal at [where, where+len(buf)).
// Returns false if the underlying source read failed.
func (b *Balancer) Read(where int64, buf []float32) bool {
	return b.read(where, buf, nil)
}

// ReadWithAmplitude is the same as Read but additionally fills abuf
// with the non-negative amplitude envelope. len(abuf) must equal
// len(buf).
func (b *Balancer) ReadWithAmplitude(where int64, buf, abuf []float32) bool {
	if len(abuf) != len(buf) {
		panic("filter: abuf and buf must be the same length")
	}
	return b.read(where, buf, abuf)
}

func (b *Balancer) read(where int64, buf []float32, abuf []float32) bool {
	length := len(buf)
	mmMargin := b.mmFilterLen >> 1
	lpMargin := b.lpFilterLen >> 1

	mmLen := length + 2*lpMargin
	iLen := mmLen + 2*mmMargin

	ibuf := make([]float32, iLen)
	ok := b.src.Read(where-int64(mmMargin)-int64(lpMargin), ibuf)

	minBuf := dsp.RunningMin(ibuf, b.mmFilterLen)
	maxBuf := dsp.RunningMax(ibuf, b.mmFilterLen)

	thresholdIn := make([]float32, mmLen)
	spreadIn := make([]float32, mmLen)
	for i := 0; i < mmLen; i++ {
		thresholdIn[i] = 0.5 * (minBuf[i] + maxBuf[i])
		spreadIn[i] = 0.5 * (maxBuf[i] - minBuf[i])
	}

	threshold := dsp.HannLowpass(thresholdIn, b.lpFilterLen)
	copy(buf, threshold)

	for i := 0; i < length; i++ {
		buf[i] = ibuf[mmMargin+lpMargin+i] - buf[i]
	}

	if abuf != nil {
		amplitude := dsp.HannLowpass(spreadIn, b.lpFilterLen)
		copy(abuf, amplitude)
	}

	return ok
}
