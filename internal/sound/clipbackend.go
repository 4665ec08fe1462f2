package sound

import "math"

// ClipBackend cuts a time-bounded window out of a source Sound,
// implementing Sound.Clip from the original.
type ClipBackend struct {
	source Sound
	offset int64
	length int64
	rate   int
}

// NewClip returns a Sound covering [skipSeconds, skipSeconds+maxSeconds)
// of source. Retains a reference to source for its own lifetime.
func NewClip(source Sound, skipSeconds, maxSeconds float64) Sound {
	rate := source.SampleRate()
	offset := int64(math.Floor(0.5 + skipSeconds*float64(rate)))

	length := source.Length() - offset
	if maxSeconds >= 0 {
		maxlen := int64(math.Floor(0.5 + maxSeconds*float64(rate)))
		if length > maxlen {
			length = maxlen
		}
	}
	if length < 0 {
		length = 0
	}

	return New(&ClipBackend{
		source: source.Retain(),
		offset: offset,
		length: length,
		rate:   rate,
	})
}

func (c *ClipBackend) SampleRate() int { return c.rate }
func (c *ClipBackend) Length() int64   { return c.length }

func (c *ClipBackend) Read(where int64, buf []float32) bool {
	return c.source.Read(c.offset+where, buf)
}

func (c *ClipBackend) Close() error {
	c.source.Release()
	return nil
}
