package sound

const (
	// shortScale converts between the float32 [-1,1] sample range and
	// 16-bit signed PCM, matching the teacher's go-audio/wav conventions
	// and the original FileBackend/MemBackend short<->float conversion.
	shortScale = 32768.0

	shortMax = 32767
	shortMin = -32768

	// streamChunkSize mirrors FileBackend::Read's sbufsize in the
	// original. Nothing in this package reads it: FileBackend decodes
	// the whole stream into memory at once.
	streamChunkSize = 2048

	// blockSeconds mirrors the original FileBackend's one-second cache
	// block. Nothing in this package reads it: FileBackend keeps no
	// block cache.
	blockSeconds = 1
)
