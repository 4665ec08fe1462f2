package sound

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// streamReader abstracts the three supported capture formats (spec.md's
// domain-stack: WAV via go-audio/wav, MP3 via go-mp3, Ogg/Vorbis via
// oggvorbis) behind the single interleaved-16-bit-PCM shape FileBackend
// needs.
type streamReader interface {
	sampleRate() int
	channels() int
	// readAll returns every interleaved 16-bit sample in the stream.
	readAll() ([]int16, error)
}

// FileBackend is a file-backed Backend. It decodes the underlying
// stream once on first access (mirroring the original's fallback path
// for formats without random-access seek support: "read all the blocks
// from the beginning"), caching the mono, float-scaled result behind a
// double-checked mutex exactly as FileBackend::GetBlock does for its
// per-second blocks.
type FileBackend struct {
	reader   streamReader
	rate     int
	channels int
	length   int64

	mu     sync.Mutex
	filled bool
	mono   []float32 // cached decode result, nil until filled
}

// NewWAVFile opens path as a WAV capture.
func NewWAVFile(path string) (Sound, error) {
	return newFileSound(path, func(f *os.File) (streamReader, error) {
		return newWAVReader(f)
	})
}

// NewMP3File opens path as an MP3 capture.
func NewMP3File(path string) (Sound, error) {
	return newFileSound(path, func(f *os.File) (streamReader, error) {
		return newMP3Reader(f)
	})
}

// NewOggFile opens path as an Ogg/Vorbis capture.
func NewOggFile(path string) (Sound, error) {
	return newFileSound(path, func(f *os.File) (streamReader, error) {
		return newOggReader(f)
	})
}

func newFileSound(path string, open func(*os.File) (streamReader, error)) (Sound, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sound{}, fmt.Errorf("sound: opening %s: %w", path, err)
	}
	r, err := open(f)
	if err != nil {
		f.Close()
		return Sound{}, fmt.Errorf("sound: decoding %s: %w", path, err)
	}
	f.Close()

	fb := &FileBackend{
		reader:   r,
		rate:     r.sampleRate(),
		channels: r.channels(),
	}
	return New(fb), nil
}

func (f *FileBackend) SampleRate() int { return f.rate }

func (f *FileBackend) Length() int64 {
	if err := f.fill(); err != nil {
		return 0
	}
	return int64(len(f.mono))
}

func (f *FileBackend) Read(where int64, buf []float32) bool {
	if err := f.fill(); err != nil {
		return false
	}
	copy(buf, f.mono[where:where+int64(len(buf))])
	return true
}

// fill performs the one-time decode, guarded by a double-checked lock:
// a fast unlocked check avoids the mutex on every call once filled,
// mirroring FileBackend::GetBlock's fast-path atomic check.
func (f *FileBackend) fill() error {
	if f.filled {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.filled {
		return nil
	}

	samples, err := f.reader.readAll()
	if err != nil {
		return err
	}

	mono := averageChannels(samples, f.channels)
	out := make([]float32, len(mono))
	for i, v := range mono {
		out[i] = float32(v) / shortScale
	}

	f.mono = out
	f.filled = true
	return nil
}

// averageChannels combines interleaved multi-channel samples into mono
// by averaging, mirroring the original's average_channels.
func averageChannels(interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		return interleaved
	}
	n := len(interleaved) / channels
	mono := make([]int16, n)
	for i := 0; i < n; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += int(interleaved[i*channels+c])
		}
		mono[i] = int16(sum / channels)
	}
	return mono
}

//---------------------------------------------------------------------
// WAV

type wavReader struct {
	dec *wav.Decoder
}

func newWAVReader(f *os.File) (streamReader, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("sound: not a valid WAV file")
	}
	format := dec.Format()
	return &wavReader{dec: dec}, validateFormat(format)
}

func validateFormat(format *audio.Format) error {
	if format == nil || format.SampleRate <= 0 || format.NumChannels <= 0 {
		return fmt.Errorf("sound: invalid WAV format")
	}
	return nil
}

func (w *wavReader) sampleRate() int { return w.dec.Format().SampleRate }
func (w *wavReader) channels() int   { return w.dec.Format().NumChannels }

func (w *wavReader) readAll() ([]int16, error) {
	buf, err := w.dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("sound: reading WAV PCM: %w", err)
	}
	out := make([]int16, len(buf.Data))
	bitDepth := int(w.dec.BitDepth)
	shift := bitDepth - 16
	for i, v := range buf.Data {
		if shift > 0 {
			v >>= shift
		} else if shift < 0 {
			v <<= -shift
		}
		out[i] = int16(v)
	}
	return out, nil
}

//---------------------------------------------------------------------
// MP3

type mp3Reader struct {
	dec *mp3.Decoder
}

func newMP3Reader(f *os.File) (streamReader, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("sound: opening MP3: %w", err)
	}
	return &mp3Reader{dec: dec}, nil
}

func (m *mp3Reader) sampleRate() int { return m.dec.SampleRate() }
func (m *mp3Reader) channels() int   { return 2 } // go-mp3 always decodes to stereo

func (m *mp3Reader) readAll() ([]int16, error) {
	raw, err := io.ReadAll(m.dec)
	if err != nil {
		return nil, fmt.Errorf("sound: reading MP3 PCM: %w", err)
	}
	// go-mp3 emits signed 16-bit little-endian interleaved stereo.
	out := make([]int16, len(raw)/2)
	for i := range out {
		out[i] = int16(raw[2*i]) | int16(raw[2*i+1])<<8
	}
	return out, nil
}

//---------------------------------------------------------------------
// Ogg/Vorbis

type oggReader struct {
	dec      *oggvorbis.Reader
	rate     int
	chanCnt  int
}

func newOggReader(f *os.File) (streamReader, error) {
	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("sound: opening Ogg/Vorbis: %w", err)
	}
	return &oggReader{
		dec:     dec,
		rate:    dec.SampleRate(),
		chanCnt: dec.Channels(),
	}, nil
}

func (o *oggReader) sampleRate() int { return o.rate }
func (o *oggReader) channels() int   { return o.chanCnt }

func (o *oggReader) readAll() ([]int16, error) {
	var out []int16
	buf := make([]float32, 4096)
	for {
		n, err := o.dec.Read(buf)
		for i := 0; i < n; i++ {
			out = append(out, floatToShort(buf[i]))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sound: reading Ogg/Vorbis PCM: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

func floatToShort(v float32) int16 {
	scaled := float64(v) * shortScale
	if scaled > shortMax {
		return shortMax
	}
	if scaled < shortMin {
		return shortMin
	}
	return int16(scaled)
}
