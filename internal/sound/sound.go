// Package sound implements the waveform representation ("Sound" in
// spec.md §3): a reference-counted, copy-on-write, lazily-pulled
// sequence of mono float32 samples. Backends compose: a FileSound wraps
// a decoded audio file, and ClipSound/DownsampleSound/MixSound wrap
// other Sounds to form derived views without copying data eagerly.
package sound

import (
	"errors"
	"sync/atomic"
)

// ErrBackendRequired is returned by operations that need a usable
// backend when the Sound is the zero value.
var ErrBackendRequired = errors.New("sound: no backend")

// Backend is the minimal waveform contract every Sound implementation
// must provide: the reading contract from spec.md §6.1.
type Backend interface {
	// SampleRate returns the sample rate in Hz.
	SampleRate() int

	// Length returns the number of samples that carry data; reads
	// outside [0, Length()) must be zero-padded by the caller, not the
	// Backend.
	Length() int64

	// Read fills buf with samples starting at offset "where". The
	// caller guarantees 0 <= where && where+len(buf) <= Length().
	// Returns false only on I/O error.
	Read(where int64, buf []float32) bool
}

// closer is implemented by backends that hold resources (open files,
// cache blocks) that must be released once the last reference drops,
// mirroring the original's SoundBackend destructors.
type closer interface {
	Close() error
}

// shared is the reference-counted cell a Sound points to, equivalent to
// the original's SoundBackend base class' atomic ref count.
type shared struct {
	refs    int32
	backend Backend
}

// Sound is a reference-counted handle to a Backend. The zero value is a
// "null sound" as in the original (IsOk reports false).
type Sound struct {
	s *shared
}

// New wraps a Backend in a freshly-refcounted Sound.
func New(b Backend) Sound {
	return Sound{s: &shared{refs: 1, backend: b}}
}

// IsOk reports whether the Sound has a usable backend.
func (s Sound) IsOk() bool {
	return s.s != nil
}

// SampleRate returns the sample rate in Hz, or 0 for a null Sound.
func (s Sound) SampleRate() int {
	if s.s == nil {
		return 0
	}
	return s.s.backend.SampleRate()
}

// Length returns the sample count, or 0 for a null Sound.
func (s Sound) Length() int64 {
	if s.s == nil {
		return 0
	}
	return s.s.backend.Length()
}

// Duration returns the duration in seconds, or 0 for a null Sound.
func (s Sound) Duration() float64 {
	if s.s == nil {
		return 0
	}
	return float64(s.Length()) / float64(s.SampleRate())
}

// Read fills buf with samples starting at "where", zero-padding any
// part of the request that falls outside [0, Length()).
func (s Sound) Read(where int64, buf []float32) bool {
	if s.s == nil {
		return false
	}
	return readPadded(s.s.backend, s.Length(), where, buf)
}

// readPadded applies the universal zero-padding contract (spec.md §6.1)
// in front of any Backend, so individual backends only implement the
// interior read.
func readPadded(b Backend, length, where int64, buf []float32) bool {
	n := int64(len(buf))
	i := int64(0)

	// Left padding
	for i < n && where+i < 0 {
		buf[i] = 0
		i++
	}

	// Right padding, trimmed from the tail first so the interior call
	// below only ever sees in-range offsets.
	tail := n
	for tail > i && where+tail-1 >= length {
		tail--
		buf[tail] = 0
	}

	if tail <= i {
		return true
	}

	return b.Read(where+i, buf[i:tail])
}

// Retain returns a new Sound handle sharing the same backend, bumping
// the atomic reference count, mirroring the original's copy
// constructor.
func (s Sound) Retain() Sound {
	if s.s == nil {
		return s
	}
	atomic.AddInt32(&s.s.refs, 1)
	return Sound{s: s.s}
}

// Release decrements the reference count and, when it reaches zero,
// closes the backend if it holds releasable resources. Call once per
// Retain (and once for the Sound returned by New or a constructor).
func (s Sound) Release() {
	if s.s == nil {
		return
	}
	if atomic.AddInt32(&s.s.refs, -1) == 0 {
		if c, ok := s.s.backend.(closer); ok {
			c.Close()
		}
	}
}

// refCount reports the current reference count; exported only within
// the package for the copy-on-write check in GetBuffer.
func (s Sound) refCount() int32 {
	if s.s == nil {
		return 0
	}
	return atomic.LoadInt32(&s.s.refs)
}

// GetBuffer returns a writable buffer for the sound's data. If the
// backend is not already an exclusively-owned MemSound, a private
// in-memory copy is materialized first (copy-on-write), so mutating the
// returned slice never affects any other Sound sharing the original
// backend.
func (s *Sound) GetBuffer() ([]float32, error) {
	if s.s == nil {
		return nil, ErrBackendRequired
	}

	if ms, ok := s.s.backend.(*MemBackend); ok && s.refCount() == 1 {
		return ms.buf, nil
	}

	length := s.Length()
	ms := NewMemBackend(length, s.SampleRate())
	if !s.Read(0, ms.buf) {
		return nil, errors.New("sound: read failed while materializing buffer")
	}

	old := *s
	s.s = &shared{refs: 1, backend: ms}
	old.Release()
	return ms.buf, nil
}
