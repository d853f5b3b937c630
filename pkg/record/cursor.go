package record

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/rimdb/rim/pkg/domain"
)

// cursor is a minimal forward-seekable byte reader/writer used internally
// by the codec. It intentionally does not wrap bytes.Reader/bytes.Buffer
// since decode needs to rewind to a remembered offset (spec §4.1 step 6),
// which bytes.Reader does not expose without a Seek roundtrip.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) readBytes(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, fmt.Errorf("record: short buffer")
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) skip(n int) error {
	if n < 0 || c.pos+n > len(c.buf) {
		return fmt.Errorf("record: short buffer")
	}
	c.pos += n
	return nil
}

func (c *cursor) readUint32() (uint32, error) {
	b, err := c.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) readInt32() (int32, error) {
	v, err := c.readUint32()
	return int32(v), err
}

func (c *cursor) writeBytes(b []byte) {
	c.buf = append(c.buf, b...)
}

func (c *cursor) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	c.writeBytes(b[:])
}

func (c *cursor) writeInt32(v int32) {
	c.writeUint32(uint32(v))
}

func float64frombits(b uint64) float64 { return math.Float64frombits(b) }
func float64bits(f float64) uint64     { return math.Float64bits(f) }

// decodePackedNumeric reverses encodePackedNumeric: each byte holds two
// packed decimal digits (high nibble first), with the sign carried in the
// low nibble of the final byte (0xC = positive, 0xD = negative), mirroring
// the original's packed-decimal NUMERIC representation.
func decodePackedNumeric(raw []byte, d *domain.Domain) string {
	var sb strings.Builder
	negative := false
	digits := make([]byte, 0, len(raw)*2)
	for i, b := range raw {
		hi := b >> 4
		lo := b & 0x0F
		digits = append(digits, hi)
		if i == len(raw)-1 {
			if lo == 0xD {
				negative = true
			}
		} else {
			digits = append(digits, lo)
		}
	}
	if negative {
		sb.WriteByte('-')
	}
	scale := int(d.Scale)
	intDigits := len(digits) - scale
	if intDigits <= 0 {
		sb.WriteByte('0')
	}
	for i, dg := range digits {
		if i == intDigits && scale > 0 {
			sb.WriteByte('.')
		}
		sb.WriteByte('0' + dg)
	}
	return sb.String()
}

// encodePackedNumeric packs the digits of s (an ASCII decimal string, with
// an optional leading '-' and a '.' at the domain's scale position) into
// raw so that decodePackedNumeric reverses it exactly: every byte but the
// last holds two packed digits, and the last byte holds the final digit in
// its high nibble with the sign in its low nibble. That means raw holds
// 2*len(raw)-1 digits total, never an even count — padding digits to an
// even length (as opposed to 2*len(raw)-1) leaves no room for the sign
// nibble and shifts every digit after it.
func encodePackedNumeric(raw []byte, s string) {
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.Replace(s, ".", "", 1)
	digits := make([]byte, 0, len(s))
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		digits = append(digits, byte(r-'0'))
	}
	if len(raw) == 0 {
		return
	}
	want := 2*len(raw) - 1
	if len(digits) < want {
		pad := make([]byte, want-len(digits))
		digits = append(pad, digits...)
	} else if len(digits) > want {
		digits = digits[len(digits)-want:]
	}
	for j := 0; j < len(raw)-1; j++ {
		raw[j] = digits[2*j]<<4 | digits[2*j+1]
	}
	sign := byte(0xC)
	if negative {
		sign = 0xD
	}
	raw[len(raw)-1] = digits[want-1]<<4 | sign
}
