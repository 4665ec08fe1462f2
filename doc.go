// Package orictoolbox recovers Oric-1/Atmos cassette tape files from
// recorded audio. A tape carries bytes as one of two physical
// encodings ("slow" and "fast"), each byte framed as a start bit,
// 8 data bits, a parity bit and 3 stop bits; TapeDecoder locates that
// bit stream in a waveform (or reads it straight out of a .tap
// archive), and TapeParser assembles the resulting byte stream into
// named files.
//
// # Quick Start
//
// For a one-shot decode of a WAV/MP3/OGG recording or a .tap archive:
//
//	options := orictoolbox.DefaultOptions()
//	options.Filename = "side-a.wav"
//	dec, err := orictoolbox.NewTapeDecoderFromFile(options, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dec.Close()
//	files := dec.Run()
//	for _, f := range files {
//	    fmt.Printf("%-16s %5d bytes\n", f.Name, f.Len)
//	}
//
// # Backend Selection
//
// NewTapeDecoderFromFile picks the decoding backend construct-time,
// following the input's file extension and DecoderOptions: a .tap
// extension is read byte-for-byte as an already-decoded archive
// (TrivialDecoder); a recognized waveform extension (.wav, .mp3, .ogg)
// is decoded either by the combined slow+fast DualDecoder (when
// Options.Dual is set) or by running XenonDecoder (fast) and
// DemodDecoder (slow) in parallel and merging their outputs by onset
// time.
//
// # Attribution
//
// This package's decoding algorithms (byte-onset Viterbi search,
// physical-bit binarization, WPIF/NPIF peak detection) are a
// reimplementation of the decoding pipeline built for the Oric Tape
// Rescue project.
package orictoolbox
