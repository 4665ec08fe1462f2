package filter

import (
	"github.com/erik-persson/oric-toolbox/internal/dsp"
	"github.com/erik-persson/oric-toolbox/internal/sound"
)

// LowpassFilter is a thin Sound-like wrapper applying a Hann low-pass
// filter over a source signal, used by GridBinarizer and
// SuperBinarizer where Balancer's threshold-removal behavior is not
// wanted, only the smoothing.
type LowpassFilter struct {
	src       sound.Sound
	filterLen int
}

// NewLowpassFilter wraps src with an odd-length Hann low-pass filter.
func NewLowpassFilter(src sound.Sound, filterLen int) *LowpassFilter {
	if filterLen&1 == 0 {
		panic("filter: LowpassFilter filterLen must be odd")
	}
	return &LowpassFilter{src: src, filterLen: filterLen}
}

func (l *LowpassFilter) SampleRate() int { return l.src.SampleRate() }
func (l *LowpassFilter) Length() int64   { return l.src.Length() }

// Read fills buf with the low-passed signal at [where, where+len(buf)).
func (l *LowpassFilter) Read(where int64, buf []float32) bool {
	margin := l.filterLen / 2
	ibuf := make([]float32, len(buf)+2*margin)
	ok := l.src.Read(where-int64(margin), ibuf)
	copy(buf, dsp.HannLowpass(ibuf, l.filterLen))
	return ok
}
