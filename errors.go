package orictoolbox

import "errors"

// Sentinel errors returned by the root package, wrapped with
// fmt.Errorf("%w: ...") at the call site that detects the specific
// problem, mirroring the teacher's ErrInvalidSampleRate/ErrInvalidChannels
// pattern.
var (
	// ErrNoInput names the case of a TapeDecoder with no readable
	// input. No function in this package returns it.
	ErrNoInput = errors.New("orictoolbox: no input available")

	// ErrUnrecognizedFormat is returned by NewTapeDecoderFromFile when
	// the input file extension does not match a supported waveform or
	// archive format.
	ErrUnrecognizedFormat = errors.New("orictoolbox: unrecognized input format")

	// ErrClosed names the case of a TapeDecoder whose underlying input
	// has already been released. No function in this package returns
	// it.
	ErrClosed = errors.New("orictoolbox: decoder already closed")
)
