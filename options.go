package orictoolbox

import "github.com/erik-persson/oric-toolbox/internal/tapefmt"

// DecoderOptions configures NewTapeDecoderFromFile/NewTapeDecoder and
// the backends they select among. Defined in internal/tapefmt so the
// decoder/parser/binarizer packages can share it without importing
// this root package; aliased here as the public surface (spec.md §3).
type DecoderOptions = tapefmt.DecoderOptions

// DecodedByte is one byte recovered from the tape (spec.md §3).
type DecodedByte = tapefmt.DecodedByte

// TapeFile is one file extracted from the tape stream (spec.md §3, §6.3).
type TapeFile = tapefmt.TapeFile

// Binner, Band, Cue and Fdec select among the algorithm variants
// spec.md §3/§4 name for the physical-bit extractor, demodulation
// band, Xenon start-cue heuristic and fast bit-to-byte decoder.
type (
	Binner = tapefmt.Binner
	Band   = tapefmt.Band
	Cue    = tapefmt.Cue
	Fdec   = tapefmt.Fdec
)

const (
	BinnerPattern = tapefmt.BinnerPattern
	BinnerGrid    = tapefmt.BinnerGrid
	BinnerSuper   = tapefmt.BinnerSuper

	BandLow  = tapefmt.BandLow
	BandHigh = tapefmt.BandHigh
	BandDual = tapefmt.BandDual

	CueArea = tapefmt.CueArea
	CueWide = tapefmt.CueWide
	CueAuto = tapefmt.CueAuto

	FdecOrig   = tapefmt.FdecOrig
	FdecPlen   = tapefmt.FdecPlen
	FdecBarrel = tapefmt.FdecBarrel
)

// DefaultOptions returns the options the original tool defaults to:
// f_ref = 4800 Hz, pattern binarizer, dual demodulation band, auto
// Xenon cue selection, orig fast bit decoder.
func DefaultOptions() DecoderOptions {
	return tapefmt.DefaultOptions()
}

// Parity8, IsSyncOK, IsParityOK and GetDataBits implement the 13-bit
// physical code invariants of spec.md §8.
var (
	Parity8     = tapefmt.Parity8
	IsSyncOK    = tapefmt.IsSyncOK
	IsParityOK  = tapefmt.IsParityOK
	GetDataBits = tapefmt.GetDataBits
)

// NewTapeFileFromHeader derives the length/basic/autorun fields of a
// TapeFile from a 9-byte Oric tape header (spec.md §6.3).
func NewTapeFileFromHeader(header [9]byte, slow bool) TapeFile {
	return tapefmt.NewTapeFileFromHeader(header, slow)
}
