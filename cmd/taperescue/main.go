// Command taperescue recovers Oric cassette tape files from a WAV,
// MP3 or OGG recording (or reads them straight out of a .tap archive)
// and writes each recovered file's payload next to the recording.
//
// Usage:
//
//	taperescue side-a.wav
//	taperescue --dual --fdec=plen side-b.wav
//	taperescue --slow --verbose --out ./recovered game.wav
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/erik-persson/oric-toolbox"
	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	binner := pflag.String("binner", "pattern", "physical-bit extractor for the dual decoder: pattern, grid or super")
	band := pflag.String("band", "dual", "demodulation carrier band: low, high or dual")
	cue := pflag.String("cue", "auto", "fast-format bit recognition cue: area, wide or auto")
	fdec := pflag.String("fdec", "orig", "fast-format bit-to-byte decoder: orig, plen or barrel")
	fast := pflag.Bool("fast", false, "decode only the fast physical format")
	slow := pflag.Bool("slow", false, "decode only the slow physical format")
	dual := pflag.Bool("dual", false, "use the combined slow+fast dual decoder")
	dump := pflag.Bool("dump", false, "write dump-*.wav diagnostic waveforms into the current directory")
	start := pflag.Float64("start", -1, "start decoding at this offset in seconds")
	end := pflag.Float64("end", -1, "stop decoding at this offset in seconds")
	fref := pflag.Int("fref", 4800, "nominal physical bit frequency in Hz")
	outDir := pflag.StringP("out", "o", "", "directory to write recovered files into (default: alongside input)")
	verbose := pflag.BoolP("verbose", "v", false, "trace parser and decoder progress")
	help := pflag.Bool("help", false, "display this help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] recording.wav\n\nOptions:\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help || pflag.NArg() != 1 {
		pflag.Usage()
		if *help {
			return nil
		}
		return fmt.Errorf("exactly one input file required, got %d", pflag.NArg())
	}

	options := orictoolbox.DefaultOptions()
	options.Filename = pflag.Arg(0)
	options.Start = *start
	options.End = *end
	options.Fast = *fast
	options.Slow = *slow
	options.Dual = *dual
	options.Dump = *dump
	options.Verbose = *verbose
	options.FRefHz = *fref

	var err error
	if options.Binner, err = parseBinner(*binner); err != nil {
		return err
	}
	if options.Band, err = parseBand(*band); err != nil {
		return err
	}
	if options.Cue, err = parseCue(*cue); err != nil {
		return err
	}
	if options.Fdec, err = parseFdec(*fdec); err != nil {
		return err
	}

	var logger *log.Logger
	if options.Verbose {
		logger = log.New(os.Stderr)
	}

	dec, err := orictoolbox.NewTapeDecoderFromFile(options, logger)
	if err != nil {
		return fmt.Errorf("taperescue: %w", err)
	}
	defer dec.Close()

	dir := *outDir
	if dir == "" {
		dir = filepath.Dir(options.Filename)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("taperescue: %w", err)
		}
	}

	files := dec.Run()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "taperescue: no files found")
		return nil
	}

	for _, f := range files {
		fmt.Printf("%-16s %5d bytes  start=$%04x  sync_err=%d  parity_err=%d\n",
			f.Name, f.Len, f.StartAddr, f.SyncErrors, f.ParityErrors)
		if err := writeFile(dir, f); err != nil {
			return fmt.Errorf("taperescue: %w", err)
		}
	}
	return nil
}

func writeFile(dir string, f tapefmt.TapeFile) error {
	name := f.Name
	if name == "" {
		name = "unnamed"
	}
	path := filepath.Join(dir, name)
	return os.WriteFile(path, f.Payload, 0o644)
}

func parseBinner(s string) (tapefmt.Binner, error) {
	switch s {
	case "pattern":
		return tapefmt.BinnerPattern, nil
	case "grid":
		return tapefmt.BinnerGrid, nil
	case "super":
		return tapefmt.BinnerSuper, nil
	default:
		return 0, fmt.Errorf("unknown --binner %q", s)
	}
}

func parseBand(s string) (tapefmt.Band, error) {
	switch s {
	case "low":
		return tapefmt.BandLow, nil
	case "high":
		return tapefmt.BandHigh, nil
	case "dual":
		return tapefmt.BandDual, nil
	default:
		return 0, fmt.Errorf("unknown --band %q", s)
	}
}

func parseCue(s string) (tapefmt.Cue, error) {
	switch s {
	case "area":
		return tapefmt.CueArea, nil
	case "wide":
		return tapefmt.CueWide, nil
	case "auto":
		return tapefmt.CueAuto, nil
	default:
		return 0, fmt.Errorf("unknown --cue %q", s)
	}
}

func parseFdec(s string) (tapefmt.Fdec, error) {
	switch s {
	case "orig":
		return tapefmt.FdecOrig, nil
	case "plen":
		return tapefmt.FdecPlen, nil
	case "barrel":
		return tapefmt.FdecBarrel, nil
	default:
		return 0, fmt.Errorf("unknown --fdec %q", s)
	}
}
