// Package parser assembles the decoded byte stream from internal/decoder
// into tape files: it tracks the sync/header/name scouting state
// machine, then a parallel payload-collection pass, and reports each
// completed (or truncated) file to a caller-supplied callback.
package parser

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
)

type sectionType int

const (
	sectionSync sectionType = iota
	sectionHeader
	sectionName
)

// printBatch buffers up to 16 bytes for one hexdump-style verbose log
// line, mirroring the original's PrintByte/PrintFlush batching.
type printBatch struct {
	bytes   []tapefmt.DecodedByte
	payload bool
	section sectionType
	addr    uint16
}

// Parser is the tape byte-stream-to-file state machine. It is not
// safe for concurrent use.
type Parser struct {
	log *log.Logger

	// OnFile, when set, is called for each file completed (normally or
	// by truncation). If unset, completed files are only appended to
	// Files.
	OnFile func(tapefmt.TapeFile)
	Files  []tapefmt.TapeFile

	sectionType   sectionType
	sectionOffs   int
	slow          bool
	consecNon16   int
	consecBadByte int

	scoutFile tapefmt.TapeFile
	scoutName []byte

	payloadActive bool
	payloadOffs   int
	payloadFile   tapefmt.TapeFile

	lastTime float64

	print printBatch
}

// New creates a Parser. logger may be nil to disable verbose tracing.
func New(logger *log.Logger) *Parser {
	p := &Parser{log: logger}
	p.reset()
	return p
}

func (p *Parser) reset() {
	p.sectionType = sectionSync
	p.sectionOffs = 0
	p.slow = false
	p.consecNon16 = 100
	p.consecBadByte = 100
	p.payloadActive = false
	p.payloadOffs = 0
	p.scoutFile = tapefmt.TapeFile{}
	p.scoutName = nil
	p.payloadFile = tapefmt.TapeFile{}
}

// IsIdle reports whether the parser is between files, with no payload
// in progress and no partial sync/header/name in progress.
func (p *Parser) IsIdle() bool {
	return p.sectionType == sectionSync && !p.payloadActive && p.sectionOffs == 0
}

func (p *Parser) verbosef(t float64, format string, args ...any) {
	if p.log == nil {
		return
	}
	p.log.Info(fmt.Sprintf(format, args...), "t", formatTime(t))
}

func formatTime(t float64) string {
	cent := int(t * 100)
	if cent < 0 {
		cent = 0
	}
	secs := cent / 100
	cent %= 100
	mins := secs / 60
	secs %= 60
	return fmt.Sprintf("%02d:%02d.%02d", mins, secs, cent)
}

// printFlush emits the accumulated hex-dump line, if any.
func (p *Parser) printFlush() {
	if len(p.print.bytes) == 0 || p.log == nil {
		p.print.bytes = p.print.bytes[:0]
		return
	}
	label := "Sync "
	if p.print.payload {
		label = fmt.Sprintf("%04x ", p.print.addr)
	} else if p.print.section == sectionHeader {
		label = "Hdr  "
	} else if p.print.section == sectionName {
		label = "Name "
	}

	hex := ""
	text := ""
	for _, b := range p.print.bytes {
		flag := byte(' ')
		if b.SyncError {
			flag = '!'
		} else if b.ParityError {
			flag = '?'
		}
		hex += fmt.Sprintf("%02x%c", b.Byte, flag)
		if b.Byte >= 0x20 && b.Byte < 0x7f {
			text += string(b.Byte)
		} else {
			text += "."
		}
	}
	p.verbosef(p.print.bytes[0].Time, "%s %s |%s|", label, hex, text)
	p.print.bytes = p.print.bytes[:0]
}

// printByte records a byte for the verbose hex dump, batching up to
// 16 per line and flushing on section change or 16-byte alignment
// inside a payload.
func (p *Parser) printByte(b tapefmt.DecodedByte) {
	if len(p.print.bytes) > 0 && (p.print.payload != p.payloadActive || p.print.section != p.sectionType) {
		p.printFlush()
	}
	p.print.payload = p.payloadActive
	p.print.section = p.sectionType
	if len(p.print.bytes) == 0 {
		p.print.addr = p.payloadFile.StartAddr + uint16(p.payloadOffs)
	}
	p.print.bytes = append(p.print.bytes, b)
	if len(p.print.bytes) == 16 || (p.print.payload && (int(p.print.addr)&15)+len(p.print.bytes) == 16) {
		p.printFlush()
	}
}

// PutByte feeds one decoded byte into the state machine.
func (p *Parser) PutByte(b tapefmt.DecodedByte) {
	if p.slow != b.Slow {
		if !p.IsIdle() {
			p.Flush()
		}
		p.slow = b.Slow
	}

	if p.log != nil {
		p.printByte(b)
	} else {
		p.printFlush()
	}

	tByte := 32.0 / 4800.0
	if b.Slow {
		tByte = 209.0 / 4800.0
	}
	p.scoutFile.EndTime = b.Time + 1.5*tByte
	p.payloadFile.EndTime = p.scoutFile.EndTime

	if p.payloadActive {
		p.payloadFile.Payload[p.payloadOffs] = b.Byte
		p.payloadOffs++

		if b.SyncError {
			p.payloadFile.SyncErrors++
		} else if b.ParityError {
			p.payloadFile.ParityErrors++
		}

		if p.payloadOffs == p.payloadFile.Len {
			p.printFlush()
			p.verbosef(p.payloadFile.EndTime, "File finished, %d sync errors, %d parity errors",
				p.payloadFile.SyncErrors, p.payloadFile.ParityErrors)
			p.emit(p.payloadFile)
			p.payloadActive = false
		}
	}

	if b.Byte != 0x16 {
		p.consecNon16++
	} else {
		p.consecNon16 = 0
	}
	if b.SyncError || b.ParityError {
		p.consecBadByte++
	} else {
		p.consecBadByte = 0
	}

	switch p.sectionType {
	case sectionSync:
		p.putByteSync(b)
	case sectionHeader:
		p.putByteHeader(b)
	case sectionName:
		p.putByteName(b)
	}

	p.lastTime = b.Time
}

func (p *Parser) putByteSync(b tapefmt.DecodedByte) {
	if p.sectionOffs == 0 {
		p.scoutFile.StartTime = b.Time
	}
	switch {
	case b.Byte == 0x16:
		p.sectionOffs++
	case b.Byte == 0x24 && p.sectionOffs >= 3:
		p.printFlush()
		p.verbosef(b.Time, "Found sync, %d leading bytes", p.sectionOffs)
		p.sectionType = sectionHeader
		p.sectionOffs = 0
		p.scoutFile.SyncErrors = 0
		p.scoutFile.ParityErrors = 0
	case p.sectionOffs >= 3 && !p.payloadActive && (p.consecNon16 < 8 || p.consecBadByte < 4):
		// Tolerate stray bytes before 0x24, unless a file overlap
		// demands strict sync.
		p.sectionOffs++
	default:
		p.sectionOffs = 0
	}
}

func (p *Parser) putByteHeader(b tapefmt.DecodedByte) {
	p.scoutFile.Header[p.sectionOffs] = b.Byte
	p.sectionOffs++
	if b.SyncError {
		p.scoutFile.SyncErrors++
	} else if b.ParityError {
		p.scoutFile.ParityErrors++
	}

	if p.sectionOffs != len(p.scoutFile.Header) {
		return
	}

	fileType := p.scoutFile.Header[2]
	if fileType == 0x00 || fileType == 0x80 {
		p.sectionType = sectionName
		p.sectionOffs = 0
		p.scoutName = p.scoutName[:0]
		return
	}

	p.printFlush()
	if p.log != nil {
		p.verbosef(b.Time, "Unsupported header, ignoring file")
	} else {
		log.Warnf("corrupted or unsupported header, ignoring file at %s", formatTime(p.scoutFile.StartTime))
	}
	p.sectionType = sectionSync
	p.sectionOffs = 0
}

func (p *Parser) putByteName(b tapefmt.DecodedByte) {
	// Name capacity is 16 characters plus one guard byte, matching the
	// original's over-length name buffer.
	const capacity = 16 + 1

	p.scoutName = append(p.scoutName, b.Byte)
	p.sectionOffs++
	if b.SyncError {
		p.scoutFile.SyncErrors++
	} else if b.ParityError {
		p.scoutFile.ParityErrors++
	}

	if b.Byte != 0 {
		if p.sectionOffs == capacity {
			p.printFlush()
			if p.log != nil {
				p.verbosef(b.Time, "Too long file name, ignoring file")
			} else {
				log.Warnf("file name too long, ignoring file at %s", formatTime(p.scoutFile.StartTime))
			}
			p.sectionType = sectionSync
			p.sectionOffs = 0
		}
		return
	}

	file := tapefmt.NewTapeFileFromHeader(p.scoutFile.Header, b.Slow)
	file.Name = string(p.scoutName[:len(p.scoutName)-1])
	file.StartTime = p.scoutFile.StartTime
	file.EndTime = p.scoutFile.EndTime
	file.SyncErrors = p.scoutFile.SyncErrors
	file.ParityErrors = p.scoutFile.ParityErrors
	file.Payload = make([]byte, file.Len)

	// Interrupt any payload already in progress; the new file takes
	// priority.
	p.flushPayload()

	p.printFlush()
	p.verbosef(b.Time, "Found %s", file.Name)

	p.payloadActive = true
	p.payloadOffs = 0
	p.payloadFile = file
	p.sectionType = sectionSync
	p.sectionOffs = 0
}

// flushPayload truncates and emits the file currently in payload
// collection, padding any missing bytes with 0xcd and counting them
// as both sync and parity errors.
func (p *Parser) flushPayload() {
	if !p.payloadActive {
		return
	}
	missing := p.payloadFile.Len - p.payloadOffs
	if missing > 0 {
		log.Warnf("file truncated with %d missing bytes", missing)
	}
	for ; missing > 0; missing-- {
		p.payloadFile.Payload[p.payloadOffs] = 0xcd
		p.payloadOffs++
		p.payloadFile.SyncErrors++
		p.payloadFile.ParityErrors++
	}
	p.verbosef(p.payloadFile.EndTime, "File truncated, %d sync errors, %d parity errors",
		p.payloadFile.SyncErrors, p.payloadFile.ParityErrors)
	p.emit(p.payloadFile)
	p.payloadActive = false
}

func (p *Parser) emit(f tapefmt.TapeFile) {
	p.Files = append(p.Files, f)
	if p.OnFile != nil {
		p.OnFile(f)
	}
}

// Flush finishes parsing: truncates any in-progress payload and
// resets state, for use at end of tape.
func (p *Parser) Flush() {
	p.printFlush()
	p.flushPayload()
	p.reset()
}
