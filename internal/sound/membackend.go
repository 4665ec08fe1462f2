package sound

// MemBackend stores waveform data entirely in primary memory. It is the
// target of copy-on-write materialization in Sound.GetBuffer.
type MemBackend struct {
	buf        []float32
	sampleRate int
}

// NewMemBackend allocates a zero-filled buffer of the given length.
func NewMemBackend(length int64, sampleRate int) *MemBackend {
	if sampleRate <= 0 {
		panic("sound: sample rate must be positive")
	}
	return &MemBackend{
		buf:        make([]float32, length),
		sampleRate: sampleRate,
	}
}

// NewMemBackendFrom copies src into a new backend.
func NewMemBackendFrom(src []float32, sampleRate int) *MemBackend {
	if sampleRate <= 0 {
		panic("sound: sample rate must be positive")
	}
	buf := make([]float32, len(src))
	copy(buf, src)
	return &MemBackend{buf: buf, sampleRate: sampleRate}
}

// NewMem wraps a zero-filled MemBackend of the given length in a Sound.
func NewMem(length int64, sampleRate int) Sound {
	return New(NewMemBackend(length, sampleRate))
}

// NewMemFrom wraps a copy of src in a Sound backed by memory.
func NewMemFrom(src []float32, sampleRate int) Sound {
	return New(NewMemBackendFrom(src, sampleRate))
}

func (m *MemBackend) SampleRate() int { return m.sampleRate }
func (m *MemBackend) Length() int64   { return int64(len(m.buf)) }

func (m *MemBackend) Read(where int64, buf []float32) bool {
	copy(buf, m.buf[where:where+int64(len(buf))])
	return true
}
