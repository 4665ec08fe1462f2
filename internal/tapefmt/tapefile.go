package tapefmt

// TapeFile is one file extracted from the tape stream by the parser.
type TapeFile struct {
	Header [9]byte

	// Decoded from the header.
	StartAddr uint16
	EndAddr   uint16
	Len       int
	Basic     bool
	Autorun   bool
	Slow      bool // not actually stored in the header

	Name string

	Payload []byte

	SyncErrors   int
	ParityErrors int
	StartTime    float64 // onset of first byte, seconds
	EndTime      float64 // time past end byte, seconds
}

// NewTapeFileFromHeader derives the length/basic/autorun fields from a
// 9-byte Oric tape header: byte 2 is the file type (0x00 = BASIC,
// 0x80 = DATA, 0x40 = ARRAY), byte 3 is nonzero when autorun is
// requested, bytes 4-5 are the end address and bytes 6-7 the start
// address, both high byte first. Only BASIC (0x00) and DATA (0x80)
// types reach here; ARRAY and anything else is rejected by the parser
// before a TapeFile is ever built.
func NewTapeFileFromHeader(header [9]byte, slow bool) TapeFile {
	fileType := header[2]
	endAddr := uint16(header[4])<<8 | uint16(header[5])
	startAddr := uint16(header[6])<<8 | uint16(header[7])
	length := (int(endAddr) - int(startAddr)) & 0xffff
	length++
	return TapeFile{
		Header:    header,
		StartAddr: startAddr,
		EndAddr:   endAddr,
		Len:       length,
		Basic:     fileType == 0x00,
		Autorun:   header[3] != 0,
		Slow:      slow,
	}
}
