package orictoolbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/erik-persson/oric-toolbox/internal/decoder"
	"github.com/erik-persson/oric-toolbox/internal/sound"
	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
)

// NewTapeDecoderFromFile opens options.Filename and constructs the
// TapeDecoder appropriate to its format (spec.md §4.6): a .tap archive
// is read byte-for-byte through TrivialDecoder, while a recognized
// waveform (.wav, .mp3, .ogg) is decoded through the signal-processing
// pipeline selected by options. logger may be nil to silence verbose
// parser tracing.
func NewTapeDecoderFromFile(options tapefmt.DecoderOptions, logger *log.Logger) (*TapeDecoder, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}

	switch ext := strings.ToLower(filepath.Ext(options.Filename)); ext {
	case ".tap":
		f, err := os.Open(options.Filename)
		if err != nil {
			return nil, fmt.Errorf("orictoolbox: opening %s: %w", options.Filename, err)
		}
		archive := decoder.NewTrivialDecoder(f, options)
		td, err := NewTrivialTapeDecoder(archive, options, logger)
		if err != nil {
			f.Close()
			return nil, err
		}
		td.closer = func() { f.Close() }
		return td, nil

	case ".wav":
		src, err := sound.NewWAVFile(options.Filename)
		return newTapeDecoderFromWaveform(src, err, options, logger)
	case ".mp3":
		src, err := sound.NewMP3File(options.Filename)
		return newTapeDecoderFromWaveform(src, err, options, logger)
	case ".ogg":
		src, err := sound.NewOggFile(options.Filename)
		return newTapeDecoderFromWaveform(src, err, options, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedFormat, ext)
	}
}

func newTapeDecoderFromWaveform(src sound.Sound, err error, options tapefmt.DecoderOptions, logger *log.Logger) (*TapeDecoder, error) {
	if err != nil {
		return nil, fmt.Errorf("orictoolbox: opening %s: %w", options.Filename, err)
	}
	return NewTapeDecoder(src, options, logger)
}
