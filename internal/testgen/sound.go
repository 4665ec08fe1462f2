package testgen

import "github.com/erik-persson/oric-toolbox/internal/sound"

// Sound wraps the waveform synthesized so far as an in-memory Sound at
// EncodeRate, ready to feed directly into any decoder backend.
func (e *Encoder) Sound() sound.Sound {
	return sound.NewMemFrom(e.Samples(), EncodeRate)
}
