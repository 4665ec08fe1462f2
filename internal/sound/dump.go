package sound

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DumpWriter accumulates samples for one of the decoders' debug dump
// waveforms (dump-demod.wav / dump-dual-slow.wav / dump-dual-fast.wav /
// dump-xenon.wav) and flushes them to a 16-bit mono WAV file on Close,
// mirroring the original's Sound::WriteWAV invoked from each decoder's
// destructor.
type DumpWriter struct {
	path       string
	sampleRate int
	samples    []float32
}

// NewDumpWriter creates a dump writer for the given output path and
// sample rate.
func NewDumpWriter(path string, sampleRate int) *DumpWriter {
	return &DumpWriter{path: path, sampleRate: sampleRate}
}

// Write appends samples (in the decoder's native [-1,1] float range,
// debug marker spikes included) to the dump buffer.
func (d *DumpWriter) Write(samples []float32) {
	d.samples = append(d.samples, samples...)
}

// Close flushes the accumulated samples to disk as a 16-bit mono WAV
// file.
func (d *DumpWriter) Close() error {
	f, err := os.Create(d.path)
	if err != nil {
		return fmt.Errorf("sound: creating dump file %s: %w", d.path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, d.sampleRate, 16, 1, 1)

	ints := make([]int, len(d.samples))
	for i, v := range d.samples {
		ints[i] = int(floatToShort(v))
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{SampleRate: d.sampleRate, NumChannels: 1},
		Data:   ints,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("sound: writing dump file %s: %w", d.path, err)
	}
	return enc.Close()
}
