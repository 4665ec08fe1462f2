package tapefmt

import "fmt"

// Binner selects the physical-bit extractor used by the dual decoder.
type Binner int

const (
	BinnerPattern Binner = iota
	BinnerGrid
	BinnerSuper
)

func (b Binner) String() string {
	switch b {
	case BinnerPattern:
		return "pattern"
	case BinnerGrid:
		return "grid"
	case BinnerSuper:
		return "super"
	default:
		return fmt.Sprintf("Binner(%d)", int(b))
	}
}

// Band selects which carrier band(s) the demodulation decoder uses.
type Band int

const (
	BandLow Band = iota
	BandHigh
	BandDual
)

func (b Band) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandHigh:
		return "high"
	case BandDual:
		return "dual"
	default:
		return fmt.Sprintf("Band(%d)", int(b))
	}
}

// Cue selects how the Xenon decoder recognizes fast-format bits.
type Cue int

const (
	CueArea Cue = iota
	CueWide
	CueAuto
)

func (c Cue) String() string {
	switch c {
	case CueArea:
		return "area"
	case CueWide:
		return "wide"
	case CueAuto:
		return "auto"
	default:
		return fmt.Sprintf("Cue(%d)", int(c))
	}
}

// Fdec selects the bit-to-byte decoder used for the fast format inside
// the dual decoder.
type Fdec int

const (
	FdecOrig Fdec = iota
	FdecPlen
	FdecBarrel
)

func (f Fdec) String() string {
	switch f {
	case FdecOrig:
		return "orig"
	case FdecPlen:
		return "plen"
	case FdecBarrel:
		return "barrel"
	default:
		return fmt.Sprintf("Fdec(%d)", int(f))
	}
}

// DecoderOptions configures TapeDecoder and the backends it selects
// among.
type DecoderOptions struct {
	Filename string  // input file name
	Start    float64 // start time in seconds, -1 if unspecified
	End      float64 // end time in seconds, -1 if unspecified
	Verbose  bool
	Fast     bool // decode only fast format when set
	Slow     bool // decode only slow format when set
	Dual     bool // use the two-stage dual decoder (fast+slow) when set
	Dump     bool // write dump-demod.wav, dump-xenon.wav and/or dump-dual-{slow,fast}.wav
	Binner   Binner
	Band     Band
	Cue      Cue
	Fdec     Fdec
	FRefHz   int // nominal physical bit frequency in Hz
}

// DefaultOptions returns the options the original tool defaults to.
func DefaultOptions() DecoderOptions {
	return DecoderOptions{
		Start:  -1,
		End:    -1,
		Binner: BinnerPattern,
		Band:   BandDual,
		Cue:    CueAuto,
		Fdec:   FdecOrig,
		FRefHz: 4800,
	}
}

// Validate checks internal option consistency, returning a wrapped
// sentinel error describing the first problem found.
func (o DecoderOptions) Validate() error {
	if o.Filename == "" {
		return fmt.Errorf("%w: no input filename set", ErrInvalidOptions)
	}
	if o.Fast && o.Slow && !o.Dual {
		return fmt.Errorf("%w: fast and slow both forced without dual mode", ErrInvalidOptions)
	}
	if o.FRefHz <= 0 {
		return fmt.Errorf("%w: f_ref must be positive, got %d", ErrInvalidOptions, o.FRefHz)
	}
	if o.Start != -1 && o.End != -1 && o.Start >= o.End {
		return fmt.Errorf("%w: start (%v) must be before end (%v)", ErrInvalidOptions, o.Start, o.End)
	}
	return nil
}
