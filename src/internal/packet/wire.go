package packet

import (
	"encoding/binary"
	"net/netip"
	"strconv"
	"strings"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
)

var (
	errUnexpectedEnd = errors.NewPacketError("unexpected end of message", nil)
	errPointerLoop   = errors.NewPacketError("too many compression pointers", nil)
	errBadLabel      = errors.NewPacketError("invalid label type", nil)
	errBadRData      = errors.NewPacketError("malformed rdata", nil)
)

// readName decodes the name starting at off and returns the offset of the
// first byte after it in the original record.
func readName(buf []byte, off int) (string, int, error) {
	var labels []string
	next := -1
	hops := 0

	for {
		if off >= len(buf) {
			return "", 0, errUnexpectedEnd
		}
		length := int(buf[off])

		switch length & 0xC0 {
		case 0x00:
			if length == 0 {
				if next < 0 {
					next = off + 1
				}
				return strings.Join(labels, "."), next, nil
			}
			end := off + 1 + length
			if end > len(buf) {
				return "", 0, errUnexpectedEnd
			}
			labels = append(labels, string(buf[off+1:end]))
			off = end
		case 0xC0:
			if off+2 > len(buf) {
				return "", 0, errUnexpectedEnd
			}
			if next < 0 {
				next = off + 2
			}
			hops++
			if hops > maxPointerHops {
				return "", 0, errPointerLoop
			}
			off = int(binary.BigEndian.Uint16(buf[off:off+2]) & 0x3FFF)
		default:
			return "", 0, errBadLabel
		}
	}
}

func readQuestion(buf []byte, off int) (Question, int, error) {
	name, off, err := readName(buf, off)
	if err != nil {
		return Question{}, 0, err
	}
	if off+4 > len(buf) {
		return Question{}, 0, errUnexpectedEnd
	}
	return Question{
		Name:  name,
		Type:  binary.BigEndian.Uint16(buf[off : off+2]),
		Class: binary.BigEndian.Uint16(buf[off+2 : off+4]),
	}, off + 4, nil
}

func readRecord(buf []byte, off int) (ResourceRecord, int, error) {
	name, off, err := readName(buf, off)
	if err != nil {
		return ResourceRecord{}, 0, err
	}
	if off+10 > len(buf) {
		return ResourceRecord{}, 0, errUnexpectedEnd
	}

	rr := ResourceRecord{
		Name:     name,
		Type:     binary.BigEndian.Uint16(buf[off : off+2]),
		Class:    binary.BigEndian.Uint16(buf[off+2 : off+4]),
		TTL:      binary.BigEndian.Uint32(buf[off+4 : off+8]),
		RDLength: binary.BigEndian.Uint16(buf[off+8 : off+10]),
	}
	start := off + 10
	end := start + int(rr.RDLength)
	if end > len(buf) {
		return ResourceRecord{}, 0, errUnexpectedEnd
	}
	rr.RData = append([]byte{}, buf[start:end]...)

	if err := rr.decodeRData(buf, start); err != nil {
		return ResourceRecord{}, 0, err
	}
	return rr, end, nil
}

// decodeRData fills the typed fields. Names inside rdata may point anywhere in
// the message, so they are resolved against buf and RData is rewritten with
// the expanded form.
func (rr *ResourceRecord) decodeRData(buf []byte, start int) error {
	switch rr.Type {
	case TypeA:
		if len(rr.RData) == 4 {
			rr.Address = joinOctets(rr.RData)
		}
	case TypeAAAA:
		if len(rr.RData) == 16 {
			rr.Address = joinOctets(rr.RData)
		}
	case TypeCNAME, TypeNS, TypePTR:
		if len(rr.RData) == 0 {
			return errBadRData
		}
		target, _, err := readName(buf, start)
		if err != nil {
			return err
		}
		if rr.Type == TypeCNAME {
			rr.CanonicalName = target
		} else {
			rr.NameServer = target
		}
		rr.setRData(appendName(nil, target))
	case TypeMX:
		if len(rr.RData) < 3 {
			return errBadRData
		}
		exchange, _, err := readName(buf, start+2)
		if err != nil {
			return err
		}
		rr.Priority = binary.BigEndian.Uint16(rr.RData[0:2])
		rr.MailExchange = exchange
		rr.setRData(appendName(binary.BigEndian.AppendUint16(nil, rr.Priority), exchange))
	}
	return nil
}

func (rr *ResourceRecord) setRData(b []byte) {
	rr.RData = b
	rr.RDLength = uint16(len(b))
}

// joinOctets renders rdata bytes as dot-separated decimal octets. AAAA
// addresses use the same form rather than IPv6 notation.
func joinOctets(b []byte) string {
	parts := make([]string, len(b))
	for i, octet := range b {
		parts[i] = strconv.Itoa(int(octet))
	}
	return strings.Join(parts, ".")
}

// SetAddress points the record at addr. The record type follows the address
// family and the other decoded fields are cleared.
func (rr *ResourceRecord) SetAddress(addr netip.Addr) {
	addr = addr.Unmap()
	if addr.Is4() {
		a := addr.As4()
		rr.Type = TypeA
		rr.setRData(a[:])
	} else {
		a := addr.As16()
		rr.Type = TypeAAAA
		rr.setRData(a[:])
	}
	rr.Address = joinOctets(rr.RData)
	rr.CanonicalName = ""
	rr.Priority = 0
	rr.MailExchange = ""
	rr.NameServer = ""
}

// Bytes encodes the packet. Section counts are taken from the slice lengths
// and names are written without compression.
func (p *Packet) Bytes() []byte {
	out := make([]byte, 0, 512)
	out = binary.BigEndian.AppendUint16(out, p.ID)
	out = binary.BigEndian.AppendUint16(out, p.Flags.Pack())
	out = binary.BigEndian.AppendUint16(out, uint16(len(p.Questions)))
	out = binary.BigEndian.AppendUint16(out, uint16(len(p.Answers)))
	out = binary.BigEndian.AppendUint16(out, uint16(len(p.Authority)))
	out = binary.BigEndian.AppendUint16(out, uint16(len(p.Additional)))

	for _, q := range p.Questions {
		out = appendName(out, q.Name)
		out = binary.BigEndian.AppendUint16(out, q.Type)
		out = binary.BigEndian.AppendUint16(out, q.Class)
	}
	for _, section := range [][]ResourceRecord{p.Answers, p.Authority, p.Additional} {
		for _, rr := range section {
			out = appendRecord(out, rr)
		}
	}
	return out
}

func appendRecord(out []byte, rr ResourceRecord) []byte {
	out = appendName(out, rr.Name)
	out = binary.BigEndian.AppendUint16(out, rr.Type)
	out = binary.BigEndian.AppendUint16(out, rr.Class)
	out = binary.BigEndian.AppendUint32(out, rr.TTL)
	out = binary.BigEndian.AppendUint16(out, uint16(len(rr.RData)))
	return append(out, rr.RData...)
}

// appendName writes name as a sequence of length-prefixed labels. Labels
// longer than 63 bytes are cut and empty labels are skipped.
func appendName(out []byte, name string) []byte {
	name = strings.TrimSuffix(name, ".")
	if name != "" {
		for _, label := range strings.Split(name, ".") {
			if label == "" {
				continue
			}
			if len(label) > maxLabelLength {
				label = label[:maxLabelLength]
			}
			out = append(out, byte(len(label)))
			out = append(out, label...)
		}
	}
	return append(out, 0)
}
