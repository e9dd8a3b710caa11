package packet

// Flags holds the bit fields of the 16-bit header flag word.
// Bit numbers below count from 1 at the most significant bit.
type Flags struct {
	Response            bool  // QR, bit 1
	Opcode              uint8 // bits 2-5
	AuthoritativeAnswer bool  // AA, bit 6
	Truncated           bool  // TC, bit 7
	RecursionDesired    bool  // RD, bit 8
	RecursionAvailable  bool  // RA, bit 9
	Reserved            bool  // Z, bit 10
	AuthenticatedData   bool  // AD, bit 11
	CheckingDisabled    bool  // CD, bit 12
	ResponseCode        uint8 // bits 13-16
}

const (
	flagQR = 1 << 15
	flagAA = 1 << 10
	flagTC = 1 << 9
	flagRD = 1 << 8
	flagRA = 1 << 7
	flagZ  = 1 << 6
	flagAD = 1 << 5
	flagCD = 1 << 4

	opcodeShift = 11
	opcodeMask  = 0xF
	rcodeMask   = 0xF
)

func unpackFlags(v uint16) Flags {
	return Flags{
		Response:            v&flagQR != 0,
		Opcode:              uint8(v>>opcodeShift) & opcodeMask,
		AuthoritativeAnswer: v&flagAA != 0,
		Truncated:           v&flagTC != 0,
		RecursionDesired:    v&flagRD != 0,
		RecursionAvailable:  v&flagRA != 0,
		Reserved:            v&flagZ != 0,
		AuthenticatedData:   v&flagAD != 0,
		CheckingDisabled:    v&flagCD != 0,
		ResponseCode:        uint8(v) & rcodeMask,
	}
}

// Pack returns the flag word.
func (f Flags) Pack() uint16 {
	var v uint16
	setBit := func(on bool, bit uint16) {
		if on {
			v |= bit
		}
	}
	setBit(f.Response, flagQR)
	v |= uint16(f.Opcode&opcodeMask) << opcodeShift
	setBit(f.AuthoritativeAnswer, flagAA)
	setBit(f.Truncated, flagTC)
	setBit(f.RecursionDesired, flagRD)
	setBit(f.RecursionAvailable, flagRA)
	setBit(f.Reserved, flagZ)
	setBit(f.AuthenticatedData, flagAD)
	setBit(f.CheckingDisabled, flagCD)
	v |= uint16(f.ResponseCode & rcodeMask)
	return v
}
