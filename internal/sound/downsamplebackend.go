package sound

import "github.com/erik-persson/oric-toolbox/internal/dsp"

// DownsampleBackend decimates a source Sound by an integer factor,
// implementing Sound.Downsample from the original. The original's
// Downsampler helper class was not part of the retrieved reference
// material; this reimplements its contract (low-pass then decimate,
// with a fixed margin of extra samples read on each side to feed the
// filter) using the same Hann low-pass primitive the rest of this
// module's signal chain uses.
type DownsampleBackend struct {
	source     Sound
	downFactor int
	filterLen  int
	rate       int
	length     int64
}

// NewDownsample returns source decimated by downFactor (>1).
func NewDownsample(source Sound, downFactor int) Sound {
	if downFactor <= 1 {
		panic("sound: downFactor must be greater than 1")
	}

	filterLen := 4*downFactor + 1 // odd, proportional to the decimation factor

	return New(&DownsampleBackend{
		source:     source.Retain(),
		downFactor: downFactor,
		filterLen:  filterLen,
		rate:       source.SampleRate() / downFactor,
		length:     source.Length() / int64(downFactor),
	})
}

func (d *DownsampleBackend) SampleRate() int { return d.rate }
func (d *DownsampleBackend) Length() int64   { return d.length }

// extraSamples is the number of extra high-rate samples needed on each
// side of the requested range to seed the low-pass filter.
func (d *DownsampleBackend) extraSamples() int {
	return d.filterLen / 2
}

func (d *DownsampleBackend) Read(where int64, buf []float32) bool {
	extra := d.extraSamples()
	samples := len(buf)
	highLen := d.downFactor*samples + 2*extra

	highBuf := make([]float32, highLen)
	if !d.source.Read(int64(d.downFactor)*where-int64(extra), highBuf) {
		return false
	}

	filtered := dsp.HannLowpass(highBuf, d.filterLen)
	for i := 0; i < samples; i++ {
		buf[i] = filtered[i*d.downFactor]
	}
	return true
}

func (d *DownsampleBackend) Close() error {
	d.source.Release()
	return nil
}
