package packet

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
)

const (
	// HeaderSize is the length of the fixed DNS header.
	HeaderSize = 12

	maxLabelLength = 63
	maxPointerHops = 32 // Bound on compression pointer chains
)

// Record types with decoded rdata.
const (
	TypeA     uint16 = 1
	TypeNS    uint16 = 2
	TypeCNAME uint16 = 5
	TypePTR   uint16 = 12
	TypeMX    uint16 = 15
	TypeAAAA  uint16 = 28

	ClassINET uint16 = 1
)

var typeNames = map[uint16]string{
	TypeA:     "A",
	TypeNS:    "NS",
	TypeCNAME: "CNAME",
	TypePTR:   "PTR",
	TypeMX:    "MX",
	TypeAAAA:  "AAAA",
}

// TypeString returns the mnemonic for a record type, or TYPE<n> when unknown.
func TypeString(t uint16) string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "TYPE" + strconv.Itoa(int(t))
}

var logger = log.New("PACKET")

// Header is the fixed part of a DNS message.
// The counts reflect what the message declared on the wire.
type Header struct {
	ID              uint16
	Flags           Flags
	QuestionCount   uint16
	AnswerCount     uint16
	AuthorityCount  uint16
	AdditionalCount uint16
}

// Question is an entry of the question section.
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// ResourceRecord is an entry of the answer, authority or additional section.
type ResourceRecord struct {
	Name     string
	Type     uint16
	Class    uint16
	TTL      uint32
	RDLength uint16
	RData    []byte

	// Decoded rdata, set depending on Type.
	Address       string // A, AAAA
	CanonicalName string // CNAME
	Priority      uint16 // MX
	MailExchange  string // MX
	NameServer    string // NS, PTR
}

// Packet is a parsed DNS message.
type Packet struct {
	Header
	Questions  []Question
	Answers    []ResourceRecord
	Authority  []ResourceRecord
	Additional []ResourceRecord

	raw []byte
}

// Parse decodes a DNS message. It fails only when b is shorter than the
// header. A message truncated inside a section yields a packet holding the
// records decoded so far and a logged warning.
func Parse(b []byte) (*Packet, error) {
	if len(b) < HeaderSize {
		return nil, errors.ErrPacketTooShort
	}

	buf := make([]byte, len(b))
	copy(buf, b)

	p := &Packet{raw: buf}
	p.ID = binary.BigEndian.Uint16(buf[0:2])
	p.Flags = unpackFlags(binary.BigEndian.Uint16(buf[2:4]))
	p.QuestionCount = binary.BigEndian.Uint16(buf[4:6])
	p.AnswerCount = binary.BigEndian.Uint16(buf[6:8])
	p.AuthorityCount = binary.BigEndian.Uint16(buf[8:10])
	p.AdditionalCount = binary.BigEndian.Uint16(buf[10:12])

	off := HeaderSize
	for i := 0; i < int(p.QuestionCount); i++ {
		q, next, err := readQuestion(buf, off)
		if err != nil {
			p.warnTruncated("question", i, p.QuestionCount, err)
			return p, nil
		}
		p.Questions = append(p.Questions, q)
		off = next
	}

	sections := []struct {
		name  string
		count uint16
		dst   *[]ResourceRecord
	}{
		{"answer", p.AnswerCount, &p.Answers},
		{"authority", p.AuthorityCount, &p.Authority},
		{"additional", p.AdditionalCount, &p.Additional},
	}
	for _, s := range sections {
		for i := 0; i < int(s.count); i++ {
			rr, next, err := readRecord(buf, off)
			if err != nil {
				p.warnTruncated(s.name, i, s.count, err)
				return p, nil
			}
			*s.dst = append(*s.dst, rr)
			off = next
		}
	}

	return p, nil
}

func (p *Packet) warnTruncated(section string, parsed int, declared uint16, err error) {
	logger.Warnf("[%04x] Truncated %s section: parsed %d of %d records: %v", p.ID, section, parsed, declared, err)
}

// Raw returns a copy of the bytes the packet was parsed from.
// It is nil for packets that were not produced by Parse.
func (p *Packet) Raw() []byte {
	if p.raw == nil {
		return nil
	}
	out := make([]byte, len(p.raw))
	copy(out, p.raw)
	return out
}

// IsReply reports whether the QR bit is set.
func (p *Packet) IsReply() bool {
	return p.Flags.Response
}

// HasQuestions reports whether at least one question was decoded.
func (p *Packet) HasQuestions() bool {
	return len(p.Questions) > 0
}

// HasAnswers reports whether at least one answer was decoded.
func (p *Packet) HasAnswers() bool {
	return len(p.Answers) > 0
}

// QuestionNames returns the names of all questions in order.
func (p *Packet) QuestionNames() []string {
	names := make([]string, 0, len(p.Questions))
	for _, q := range p.Questions {
		names = append(names, q.Name)
	}
	return names
}

// MinAnswerTTL returns the smallest answer TTL and false when there are no answers.
func (p *Packet) MinAnswerTTL() (uint32, bool) {
	if len(p.Answers) == 0 {
		return 0, false
	}
	minTTL := p.Answers[0].TTL
	for _, rr := range p.Answers[1:] {
		if rr.TTL < minTTL {
			minTTL = rr.TTL
		}
	}
	return minTTL, true
}

// Clone returns a deep copy of the packet.
func (p *Packet) Clone() *Packet {
	c := &Packet{
		Header:     p.Header,
		Questions:  append([]Question(nil), p.Questions...),
		Answers:    cloneRecords(p.Answers),
		Authority:  cloneRecords(p.Authority),
		Additional: cloneRecords(p.Additional),
	}
	if p.raw != nil {
		c.raw = append([]byte(nil), p.raw...)
	}
	return c
}

func cloneRecords(rrs []ResourceRecord) []ResourceRecord {
	if rrs == nil {
		return nil
	}
	out := make([]ResourceRecord, len(rrs))
	for i, rr := range rrs {
		out[i] = rr.Clone()
	}
	return out
}

// Clone returns a copy of the record that shares no memory with rr.
func (rr ResourceRecord) Clone() ResourceRecord {
	if rr.RData != nil {
		rr.RData = append([]byte(nil), rr.RData...)
	}
	return rr
}

// WithAuthenticatedData returns a copy of the packet with the AD flag set to v.
func (p *Packet) WithAuthenticatedData(v bool) *Packet {
	c := p.Clone()
	c.Flags.AuthenticatedData = v
	return c
}

// WithID returns a copy of the packet carrying the given transaction id.
func (p *Packet) WithID(id uint16) *Packet {
	c := p.Clone()
	c.ID = id
	return c
}

// ID returns the transaction id of a raw message, or false if b is shorter
// than the id field.
func ID(b []byte) (uint16, bool) {
	if len(b) < 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(b[0:2]), true
}

// PatchID returns a copy of b with the transaction id replaced.
func PatchID(b []byte, id uint16) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	if len(out) >= 2 {
		binary.BigEndian.PutUint16(out[0:2], id)
	}
	return out
}

// NormalizeName lowercases a domain name and strips its trailing dot.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}
