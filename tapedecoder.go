package orictoolbox

import (
	"github.com/charmbracelet/log"

	"github.com/erik-persson/oric-toolbox/internal/decoder"
	"github.com/erik-persson/oric-toolbox/internal/parser"
	"github.com/erik-persson/oric-toolbox/internal/sound"
	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
)

// TapeDecoder is the decoder front-end (spec.md §4.6): it selects one
// or two byte-decoder backends at construction time, merges their
// output chronologically when two run in parallel, tracks an
// auto-detected slow/fast mode, gates noisy bytes away from the
// parser while it is idle, and routes the surviving bytes into a
// TapeParser.
type TapeDecoder struct {
	backends []*peekedBackend
	parser   *parser.Parser

	haveMode bool
	slowMode bool

	closer func()
}

// peekedBackend buffers at most one lookahead byte from a backend, so
// TapeDecoder can compare pending onset times across backends before
// committing to either (the "peek-and-merge" of spec.md §4.6).
type peekedBackend struct {
	dec       decoder.ByteDecoder
	lookahead *tapefmt.DecodedByte
}

func newPeekedBackend(dec decoder.ByteDecoder) *peekedBackend {
	return &peekedBackend{dec: dec}
}

func (p *peekedBackend) peek() (tapefmt.DecodedByte, bool) {
	if p.lookahead != nil {
		return *p.lookahead, true
	}
	b, ok := p.dec.DecodeByte()
	if !ok {
		return tapefmt.DecodedByte{}, false
	}
	p.lookahead = &b
	return b, true
}

func (p *peekedBackend) consume() {
	p.lookahead = nil
}

// NewTapeDecoder constructs a TapeDecoder that selects its backend(s)
// from src and options, per spec.md §4.6: the combined DualDecoder
// when options.Dual is set, otherwise XenonDecoder (fast) and
// DemodDecoder (slow) run in parallel, each skipped when the opposing
// format is force-selected. logger may be nil to silence verbose
// parser tracing.
func NewTapeDecoder(src sound.Sound, options tapefmt.DecoderOptions, logger *log.Logger) (*TapeDecoder, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}

	var backs []decoder.ByteDecoder
	switch {
	case options.Dual:
		backs = []decoder.ByteDecoder{decoder.NewDualDecoder(src, options)}
	default:
		if !options.Slow {
			backs = append(backs, decoder.NewXenonDecoder(src, options))
		}
		if !options.Fast {
			backs = append(backs, decoder.NewDemodDecoder(src, options))
		}
	}

	return newTapeDecoder(backs, options, logger, func() { src.Release() }), nil
}

// NewTrivialTapeDecoder constructs a TapeDecoder over an
// already-decoded .tap archive byte stream, bypassing all signal
// processing (spec.md §4.6's "input is not a recognized waveform"
// case).
func NewTrivialTapeDecoder(archive decoder.ByteDecoder, options tapefmt.DecoderOptions, logger *log.Logger) (*TapeDecoder, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return newTapeDecoder([]decoder.ByteDecoder{archive}, options, logger, nil), nil
}

func newTapeDecoder(backs []decoder.ByteDecoder, options tapefmt.DecoderOptions, logger *log.Logger, closer func()) *TapeDecoder {
	td := &TapeDecoder{parser: parser.New(logger), closer: closer}
	for _, b := range backs {
		td.backends = append(td.backends, newPeekedBackend(b))
	}
	return td
}

// nextByte returns the earliest pending byte across every backend,
// the "returns whichever has the earlier time" rule of spec.md §4.6.
func (t *TapeDecoder) nextByte() (tapefmt.DecodedByte, bool) {
	best := -1
	var bestByte tapefmt.DecodedByte
	for i, b := range t.backends {
		cand, ok := b.peek()
		if !ok {
			continue
		}
		if best < 0 || cand.Time < bestByte.Time {
			best = i
			bestByte = cand
		}
	}
	if best < 0 {
		return tapefmt.DecodedByte{}, false
	}
	t.backends[best].consume()
	return bestByte, true
}

// feed applies auto-mode-switch and error gating (spec.md §4.6) before
// handing b to the parser.
func (t *TapeDecoder) feed(b tapefmt.DecodedByte) {
	idle := t.parser.IsIdle()

	if b.Byte == 0x16 && !b.SyncError && !b.ParityError && idle {
		t.slowMode = b.Slow
		t.haveMode = true
	}

	if idle && (b.SyncError || b.ParityError) {
		// Outside a file, a noisy byte is more likely mis-detected
		// noise than tape content; dropping it avoids phantom files.
		return
	}

	t.parser.PutByte(b)
}

// SelectedMode reports the format (slow vs fast) TapeDecoder last
// auto-detected via an error-free 0x16 sync byte seen while idle, and
// whether any such byte has been seen yet.
func (t *TapeDecoder) SelectedMode() (slow bool, ok bool) {
	return t.slowMode, t.haveMode
}

// Run drains the decoder to end of tape and returns every file found,
// including any final truncated file.
func (t *TapeDecoder) Run() []tapefmt.TapeFile {
	for {
		b, ok := t.nextByte()
		if !ok {
			break
		}
		t.feed(b)
	}
	t.parser.Flush()
	return t.parser.Files
}

// ReadFile drains the decoder only until the next file completes (or
// is truncated at end of tape), returning it. Subsequent calls
// continue from where the previous one left off. This is the
// drain-until-first-file pattern the original's taperescue tool uses
// (spec.md §8 scenario 5).
func (t *TapeDecoder) ReadFile() (tapefmt.TapeFile, bool) {
	for {
		before := len(t.parser.Files)
		b, ok := t.nextByte()
		if !ok {
			t.parser.Flush()
			if len(t.parser.Files) > before {
				return t.parser.Files[before], true
			}
			return tapefmt.TapeFile{}, false
		}
		t.feed(b)
		if len(t.parser.Files) > before {
			return t.parser.Files[before], true
		}
	}
}

// closeable is implemented by any backend that buffers a diagnostic
// dump waveform and needs to flush it to disk.
type closeable interface {
	Close() error
}

// Close flushes any backend's pending diagnostic dump (spec.md §6.5)
// and releases the Sound backing this decoder's input, when one was
// constructed with NewTapeDecoder. Safe to call more than once.
func (t *TapeDecoder) Close() error {
	var err error
	for _, b := range t.backends {
		if c, ok := b.dec.(closeable); ok {
			if cerr := c.Close(); cerr != nil {
				err = cerr
			}
		}
	}
	if t.closer != nil {
		t.closer()
		t.closer = nil
	}
	return err
}
