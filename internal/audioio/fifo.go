// Package audioio implements the boundary-layer buffering spec.md §5
// requires of a live playback/recording front-end: a single-producer,
// single-consumer ring buffer whose read/write counts are atomic, so
// an audio callback thread (which must never allocate, block or take
// a lock) can exchange samples with an ordinary goroutine.
//
// Nothing in the core decoding pipeline (internal/decoder,
// internal/parser) uses this package; live device I/O itself is out
// of scope per spec.md §1. FIFO exists as the one piece of that
// boundary's contract spec.md specifies precisely enough to implement
// without a real device binding.
package audioio

import "sync/atomic"

// FIFO is a fixed-capacity single-producer/single-consumer ring
// buffer of float32 samples. One goroutine may call Write, one
// (possibly different) goroutine may call Read, concurrently and
// without additional locking; calling either method from more than
// one goroutine at a time is not supported.
type FIFO struct {
	buf []float32

	// writeCount and readCount are the total number of samples ever
	// written/read, not masked into buf's range; the wrap-around index
	// is writeCount (or readCount) mod len(buf). Monotonic counters
	// avoid the ambiguity a masked head/tail pair has between "empty"
	// and "full" at equal indices.
	writeCount atomic.Uint64
	readCount  atomic.Uint64
}

// NewFIFO allocates a FIFO able to hold capacity samples. capacity
// must be a positive power of two for the modulo-by-mask indexing used
// internally to be branch-free; a non-power-of-two is rounded up.
func NewFIFO(capacity int) *FIFO {
	if capacity <= 0 {
		panic("audioio: capacity must be positive")
	}
	return &FIFO{buf: make([]float32, nextPowerOfTwo(capacity))}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Capacity returns the number of samples the FIFO can hold.
func (f *FIFO) Capacity() int { return len(f.buf) }

// Available returns the number of samples currently queued for
// reading. Safe to call from either the producer or the consumer
// goroutine; the result may be stale by the time it's acted on if
// called from the other side.
func (f *FIFO) Available() int {
	return int(f.writeCount.Load() - f.readCount.Load())
}

// Free returns the number of samples that can currently be written
// without overrunning the consumer.
func (f *FIFO) Free() int {
	return len(f.buf) - f.Available()
}

// Write copies as many leading samples of src as fit into the
// remaining free space, returning the count actually written. Called
// only from the producer goroutine (e.g. the audio capture callback).
func (f *FIFO) Write(src []float32) int {
	n := len(src)
	if free := f.Free(); n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	mask := len(f.buf) - 1
	w := int(f.writeCount.Load()) & mask
	first := len(f.buf) - w
	if first > n {
		first = n
	}
	copy(f.buf[w:w+first], src[:first])
	if rest := n - first; rest > 0 {
		copy(f.buf[0:rest], src[first:n])
	}

	// The write must be visible before the count advances, so a
	// concurrent reader never observes new slots for a count it
	// hasn't been granted yet.
	f.writeCount.Add(uint64(n))
	return n
}

// Read copies as many leading queued samples as fit into dst,
// returning the count actually read. Called only from the consumer
// goroutine (e.g. the audio playback callback).
func (f *FIFO) Read(dst []float32) int {
	n := len(dst)
	if avail := f.Available(); n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}

	mask := len(f.buf) - 1
	r := int(f.readCount.Load()) & mask
	first := len(f.buf) - r
	if first > n {
		first = n
	}
	copy(dst[:first], f.buf[r:r+first])
	if rest := n - first; rest > 0 {
		copy(dst[first:n], f.buf[0:rest])
	}

	f.readCount.Add(uint64(n))
	return n
}

// Reset drops all queued samples. Only safe to call when neither the
// producer nor the consumer is concurrently active.
func (f *FIFO) Reset() {
	f.writeCount.Store(0)
	f.readCount.Store(0)
}
