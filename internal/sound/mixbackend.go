package sound

// MixBackend blends two equal-rate, equal-length Sounds, implementing
// Sound.Mix from the original. proportion 0 selects only sound0, 1
// selects only sound1.
type MixBackend struct {
	sound0, sound1 Sound
	k              float32
}

// NewMix returns a Sound blending sound0 and sound1. Panics if the two
// sounds differ in sample rate or length, as the original asserts.
func NewMix(sound0, sound1 Sound, proportion float64) Sound {
	if proportion < 0 || proportion > 1 {
		panic("sound: proportion must be in [0,1]")
	}
	if sound0.SampleRate() != sound1.SampleRate() {
		panic("sound: mixed sounds must share a sample rate")
	}
	if sound0.Length() != sound1.Length() {
		panic("sound: mixed sounds must share a length")
	}

	return New(&MixBackend{
		sound0: sound0.Retain(),
		sound1: sound1.Retain(),
		k:      float32(proportion),
	})
}

func (m *MixBackend) SampleRate() int { return m.sound0.SampleRate() }
func (m *MixBackend) Length() int64   { return m.sound0.Length() }

func (m *MixBackend) Read(where int64, buf []float32) bool {
	if !m.sound0.Read(where, buf) {
		return false
	}
	tmp := make([]float32, len(buf))
	if !m.sound1.Read(where, tmp) {
		return false
	}
	for i := range buf {
		buf[i] += m.k * (tmp[i] - buf[i])
	}
	return true
}

func (m *MixBackend) Close() error {
	m.sound0.Release()
	m.sound1.Release()
	return nil
}
