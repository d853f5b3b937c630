// Package wire implements the Net Buffer & Wire Codec (spec §4.5): a
// growable write buffer with big-endian primitives, message framing,
// and the ERROR_RESPONSE layout shared by every CAS reply.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/rimdb/rim/pkg/caserr"
)

// growIncrement is the buffer's growth step (spec §4.5: "Growth is in
// 64 KiB increments").
const growIncrement = 64 * 1024

// NetBuffer is a growable write buffer with put_* primitives matching
// the original cas_net_buf (spec §4.5). Unlike bytes.Buffer, growth is
// quantized to 64 KiB so repeated small writes amortize the same way
// the original's realloc policy does.
type NetBuffer struct {
	data []byte
}

// NewNetBuffer returns an empty NetBuffer.
func NewNetBuffer() *NetBuffer {
	return &NetBuffer{data: make([]byte, 0, growIncrement)}
}

// Bytes returns the buffer's contents so far.
func (b *NetBuffer) Bytes() []byte { return b.data }

// Len reports the number of bytes written so far.
func (b *NetBuffer) Len() int { return len(b.data) }

func (b *NetBuffer) ensure(n int) {
	if cap(b.data)-len(b.data) >= n {
		return
	}
	need := len(b.data) + n
	newCap := cap(b.data)
	if newCap == 0 {
		newCap = growIncrement
	}
	for newCap < need {
		newCap += growIncrement
	}
	grown := make([]byte, len(b.data), newCap)
	copy(grown, b.data)
	b.data = grown
}

// PutByte appends a single byte.
func (b *NetBuffer) PutByte(v byte) {
	b.ensure(1)
	b.data = append(b.data, v)
}

// PutShort appends a big-endian int16.
func (b *NetBuffer) PutShort(v int16) {
	b.ensure(2)
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(v))
	b.data = append(b.data, tmp[:]...)
}

// PutInt appends a big-endian int32.
func (b *NetBuffer) PutInt(v int32) {
	b.ensure(4)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	b.data = append(b.data, tmp[:]...)
}

// PutBigint appends a big-endian int64 (spec §4.5: "Bigint is 8 bytes").
func (b *NetBuffer) PutBigint(v int64) {
	b.ensure(8)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	b.data = append(b.data, tmp[:]...)
}

// PutDouble appends an IEEE-754 double in platform-independent
// (big-endian) byte order (spec §4.5).
func (b *NetBuffer) PutDouble(v float64) {
	b.ensure(8)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	b.data = append(b.data, tmp[:]...)
}

// PutStr appends a length-prefixed byte string: a 4-byte big-endian
// length followed by len bytes.
func (b *NetBuffer) PutStr(data []byte) {
	b.PutInt(int32(len(data)))
	b.ensure(len(data))
	b.data = append(b.data, data...)
}

// PutNull appends the sentinel length used to mark a NULL argument: a
// length of -1 with no following bytes.
func (b *NetBuffer) PutNull() {
	b.PutInt(-1)
}

// PutZeros appends n zero bytes, used for the reserved padding in
// fixed-size header fields.
func (b *NetBuffer) PutZeros(n int) {
	b.ensure(n)
	for i := 0; i < n; i++ {
		b.data = append(b.data, 0)
	}
}

// Cursor is the companion reader with matched get_* primitives.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor wraps data for sequential big-endian reads.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Remaining reports how many bytes are left to read.
func (c *Cursor) Remaining() int { return len(c.data) - c.pos }

func (c *Cursor) need(n int) error {
	if n < 0 || c.pos+n > len(c.data) {
		return caserr.Corrupted(fmt.Sprintf("short wire buffer: need %d, have %d", n, c.Remaining()))
	}
	return nil
}

// GetByte reads a single byte.
func (c *Cursor) GetByte() (byte, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.data[c.pos]
	c.pos++
	return v, nil
}

// GetShort reads a big-endian int16.
func (c *Cursor) GetShort() (int16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := int16(binary.BigEndian.Uint16(c.data[c.pos:]))
	c.pos += 2
	return v, nil
}

// GetInt reads a big-endian int32.
func (c *Cursor) GetInt() (int32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.BigEndian.Uint32(c.data[c.pos:]))
	c.pos += 4
	return v, nil
}

// GetBigint reads a big-endian int64.
func (c *Cursor) GetBigint() (int64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := int64(binary.BigEndian.Uint64(c.data[c.pos:]))
	c.pos += 8
	return v, nil
}

// GetDouble reads an IEEE-754 double in big-endian byte order.
func (c *Cursor) GetDouble() (float64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := math.Float64frombits(binary.BigEndian.Uint64(c.data[c.pos:]))
	c.pos += 8
	return v, nil
}

// Skip advances past n bytes of reserved padding without returning them.
func (c *Cursor) Skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// GetStr reads a length-prefixed argument. A length of -1 (PutNull's
// sentinel) yields (nil, true, nil).
func (c *Cursor) GetStr() (data []byte, isNull bool, err error) {
	n, err := c.GetInt()
	if err != nil {
		return nil, false, err
	}
	if n < 0 {
		return nil, true, nil
	}
	if err := c.need(int(n)); err != nil {
		return nil, false, err
	}
	v := c.data[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return v, false, nil
}
