package decoder

import (
	"bufio"
	"io"

	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
)

// TrivialDecoder extracts the byte stream straight out of a .tap
// archive: no signal processing, since the bytes are already decoded.
// Each byte's Time advances by a nominal dt (209/f_ref slow, 32/f_ref
// fast) regardless of the archive's own timing, matching
// TrivialDecoder.cpp.
type TrivialDecoder struct {
	r       *bufio.Reader
	options tapefmt.DecoderOptions
	dt      float64
	time    float64
	ended   bool
}

// NewTrivialDecoder constructs a TrivialDecoder reading raw bytes from
// r under options.
func NewTrivialDecoder(r io.Reader, options tapefmt.DecoderOptions) *TrivialDecoder {
	dt := 32.0 / float64(options.FRefHz)
	if options.Slow {
		dt = 209.0 / float64(options.FRefHz)
	}
	return &TrivialDecoder{r: bufio.NewReader(r), options: options, dt: dt}
}

// DecodeByte returns the next byte in the archive, skipping any bytes
// before options.Start and stopping at options.End.
func (d *TrivialDecoder) DecodeByte() (tapefmt.DecodedByte, bool) {
	if d.ended {
		return tapefmt.DecodedByte{}, false
	}
	for {
		c, err := d.r.ReadByte()
		if err != nil {
			d.ended = true
			return tapefmt.DecodedByte{}, false
		}

		time := d.time
		d.time += d.dt

		if d.options.Start != -1 && time < d.options.Start {
			continue
		}
		if d.options.End != -1 && time >= d.options.End {
			d.ended = true
			return tapefmt.DecodedByte{}, false
		}

		return tapefmt.DecodedByte{
			Time: time,
			Slow: d.options.Slow,
			Byte: c,
		}, true
	}
}
