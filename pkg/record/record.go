// Package record implements the Record Codec (spec §4.1): decoding and
// encoding the packed on-disk image of a class (or any catalog-mirrored)
// heap record into a flat slice of OrValue, in storage order (fixed
// attributes first, then variable attributes).
//
// The codec is parameterised over a Repr interface rather than the
// concrete catalog.ClassRepr type, so this package has no dependency on
// pkg/catalog — catalog depends on record, not the other way around.
package record

import (
	"encoding/binary"
	"fmt"

	"github.com/rimdb/rim/pkg/caserr"
	"github.com/rimdb/rim/pkg/domain"
	"github.com/rimdb/rim/pkg/oid"
	"github.com/rimdb/rim/pkg/value"
)

// BigVarOffsetSize is the on-disk width of every offset-table entry
// (spec §3: "Offset size is 4 bytes (BIG_VAR_OFFSET_SIZE) throughout").
const BigVarOffsetSize = 4

// AttrLayout is the minimal per-attribute information the codec needs:
// its domain (for disk size / decode shape) and whether it lives in the
// fixed or variable region.
type AttrLayout struct {
	Domain  *domain.Domain
	IsFixed bool
}

// Repr is the subset of catalog.ClassRepr the codec depends on.
type Repr interface {
	FixedLength() int
	NFixed() int
	NVariable() int
	BoundBitFlag() bool
	ReprID() int32
	// FixedAttrs returns fixed attribute layouts in storage order.
	FixedAttrs() []AttrLayout
	// VarAttrs returns variable attribute layouts in storage order.
	VarAttrs() []AttrLayout
}

func boundBitsLen(nFixed int) int {
	return (nFixed + 7) / 8
}

// DecodeToValues parses a packed record into OrValues in storage order:
// all fixed-region values first, then all variable-region values (spec
// §4.1 algorithm). It returns the record's shard group id alongside the
// values, since the catalog mirror needs it to verify GLOBAL_GROUPID
// (spec §4.4 step 5).
func DecodeToValues(buf []byte, repr Repr) ([]value.OrValue, int32, error) {
	r := &cursor{buf: buf}

	header, err := r.readUint32()
	if err != nil {
		return nil, 0, caserr.Corrupted("truncated header")
	}
	offsetSize := int((header >> 1) & 0x7F)
	boundBitFlag := header&1 != 0
	reprID := int32(header >> 8)
	if offsetSize != BigVarOffsetSize {
		return nil, 0, caserr.Corrupted(fmt.Sprintf("unsupported offset size %d", offsetSize))
	}
	if reprID != repr.ReprID() {
		return nil, 0, caserr.UnknownRepr(reprID)
	}
	// A record with no fixed attributes never carries a bound-bit vector
	// even if the repr's general policy would set one (spec §3 invariant:
	// "bound-bit flag set iff n_fixed > 0").
	if boundBitFlag != (repr.BoundBitFlag() && repr.NFixed() > 0) {
		return nil, 0, caserr.Corrupted("bound-bit flag does not match representation")
	}

	groupID, err := r.readInt32()
	if err != nil {
		return nil, 0, caserr.Corrupted("truncated group id")
	}

	nVar := repr.NVariable()
	offsets := make([]int32, nVar+1)
	for i := range offsets {
		v, err := r.readInt32()
		if err != nil {
			return nil, 0, caserr.Corrupted("truncated offset table")
		}
		offsets[i] = v
	}

	fixedStart := r.pos
	fixedLen := repr.FixedLength()
	if err := r.skip(fixedLen); err != nil {
		return nil, 0, caserr.Corrupted("truncated fixed region")
	}

	var boundBits []byte
	if boundBitFlag {
		nb := boundBitsLen(repr.NFixed())
		bb, err := r.readBytes(nb)
		if err != nil {
			return nil, 0, caserr.Corrupted("truncated bound-bit vector")
		}
		boundBits = bb
	}

	// Re-enter the fixed region now that the bound bits (if any) are known.
	fr := &cursor{buf: buf, pos: fixedStart}
	fixedAttrs := repr.FixedAttrs()
	values := make([]value.OrValue, 0, len(fixedAttrs)+len(repr.VarAttrs()))
	for i, attr := range fixedAttrs {
		size := attr.Domain.Type.DiskSize(attr.Domain.Precision)
		if size < 0 {
			return nil, 0, caserr.Corrupted(fmt.Sprintf("fixed attribute %d has variable domain %s", i, attr.Domain.Type))
		}
		bound := boundBits == nil || bitSet(boundBits, i)
		if !bound {
			if err := fr.skip(size); err != nil {
				return nil, 0, caserr.Corrupted("truncated fixed value")
			}
			values = append(values, value.Null())
			continue
		}
		raw, err := fr.readBytes(size)
		if err != nil {
			return nil, 0, caserr.Corrupted("truncated fixed value")
		}
		v, err := decodeFixedScalar(raw, attr.Domain)
		if err != nil {
			return nil, 0, err
		}
		values = append(values, v)
	}
	if fr.pos != fixedStart+fixedLen {
		return nil, 0, caserr.Corrupted("fixed region length mismatch")
	}

	varAttrs := repr.VarAttrs()
	if len(varAttrs) != nVar {
		return nil, 0, caserr.Corrupted("variable attribute count mismatch")
	}
	varRegionStart := r.pos
	if boundBitFlag {
		// Bound bits sit between the fixed region and the variable region
		// on disk (spec §4.1 decode steps 4-5); the cursor has already
		// consumed them via readBytes above, so varRegionStart is correct.
	}
	for i, attr := range varAttrs {
		lo, hi := offsets[i], offsets[i+1]
		if hi < lo {
			return nil, 0, caserr.Corrupted("decreasing variable offset")
		}
		start := varRegionStart + int(lo)
		end := varRegionStart + int(hi)
		if end > len(buf) || start > len(buf) {
			return nil, 0, caserr.Corrupted("variable offset out of range")
		}
		raw := buf[start:end]
		if len(raw) == 0 {
			values = append(values, value.Null())
			continue
		}
		v, err := decodeVarScalar(raw, attr.Domain)
		if err != nil {
			return nil, 0, err
		}
		values = append(values, v)
	}

	return values, groupID, nil
}

// EncodeFromValues inverts DecodeToValues: it serialises values (in the
// same storage order DecodeToValues returns) into a fresh packed record.
// encode(decode(r)) must reproduce r byte-for-byte (spec §8 "codec
// round-trip").
func EncodeFromValues(values []value.OrValue, repr Repr, groupID int32) ([]byte, error) {
	fixedAttrs := repr.FixedAttrs()
	varAttrs := repr.VarAttrs()
	if len(values) != len(fixedAttrs)+len(varAttrs) {
		return nil, caserr.Corrupted("value count does not match representation")
	}
	fixedValues := values[:len(fixedAttrs)]
	varValues := values[len(fixedAttrs):]

	boundBitFlag := repr.BoundBitFlag() && repr.NFixed() > 0

	fixedBuf := make([]byte, 0, repr.FixedLength())
	boundBits := make([]byte, boundBitsLen(repr.NFixed()))
	for i, attr := range fixedAttrs {
		size := attr.Domain.Type.DiskSize(attr.Domain.Precision)
		if size < 0 {
			return nil, caserr.Corrupted(fmt.Sprintf("fixed attribute %d has variable domain %s", i, attr.Domain.Type))
		}
		v := fixedValues[i]
		if v.IsNull {
			fixedBuf = append(fixedBuf, make([]byte, size)...)
			continue
		}
		setBit(boundBits, i)
		raw, err := encodeFixedScalar(v, attr.Domain, size)
		if err != nil {
			return nil, err
		}
		fixedBuf = append(fixedBuf, raw...)
	}
	if len(fixedBuf) != repr.FixedLength() {
		return nil, caserr.Corrupted("encoded fixed region length mismatch")
	}

	varBuf := make([]byte, 0, 64)
	offsets := make([]int32, len(varAttrs)+1)
	offsets[0] = 0
	for i, attr := range varAttrs {
		v := varValues[i]
		var raw []byte
		if !v.IsNull {
			enc, err := encodeVarScalar(v, attr.Domain)
			if err != nil {
				return nil, err
			}
			raw = enc
		}
		varBuf = append(varBuf, raw...)
		offsets[i+1] = int32(len(varBuf))
	}

	w := &cursor{buf: make([]byte, 0, 8+4*(len(varAttrs)+1)+len(fixedBuf)+len(boundBits)+len(varBuf))}
	header := uint32(repr.ReprID())<<8 | uint32(BigVarOffsetSize)<<1
	if boundBitFlag {
		header |= 1
	}
	w.writeUint32(header)
	w.writeInt32(groupID)
	for _, off := range offsets {
		w.writeInt32(off)
	}
	w.writeBytes(fixedBuf)
	if boundBitFlag {
		w.writeBytes(boundBits)
	}
	w.writeBytes(varBuf)

	return w.buf, nil
}

func bitSet(bits []byte, i int) bool {
	return bits[i/8]&(1<<uint(i%8)) != 0
}

func setBit(bits []byte, i int) {
	bits[i/8] |= 1 << uint(i%8)
}

// decodeFixedScalar decodes a fixed-size, non-NULL value from raw.
func decodeFixedScalar(raw []byte, d *domain.Domain) (value.OrValue, error) {
	switch d.Type {
	case domain.TypeInteger:
		return value.Scalar(int32(binary.BigEndian.Uint32(raw))), nil
	case domain.TypeBigint:
		return value.Scalar(int64(binary.BigEndian.Uint64(raw))), nil
	case domain.TypeDouble:
		bits := binary.BigEndian.Uint64(raw)
		return value.Scalar(float64frombits(bits)), nil
	case domain.TypeOID:
		return value.Scalar(oid.OID{
			VolumeID: int32(binary.BigEndian.Uint32(raw[0:4])),
			PageID:   int32(binary.BigEndian.Uint32(raw[4:8])),
			SlotID:   int16(binary.BigEndian.Uint16(raw[8:10])),
		}), nil
	case domain.TypeDate:
		return value.Scalar(int32(binary.BigEndian.Uint32(raw))), nil
	case domain.TypeTime:
		return value.Scalar(int32(binary.BigEndian.Uint32(raw))), nil
	case domain.TypeDatetime:
		return value.Scalar(int64(binary.BigEndian.Uint64(raw))), nil
	case domain.TypeNumeric:
		return value.Scalar(decodePackedNumeric(raw, d)), nil
	default:
		return value.OrValue{}, caserr.Corrupted(fmt.Sprintf("unexpected fixed domain %s", d.Type))
	}
}

func encodeFixedScalar(v value.OrValue, d *domain.Domain, size int) ([]byte, error) {
	raw := make([]byte, size)
	switch d.Type {
	case domain.TypeInteger:
		n, err := v.Int32()
		if err != nil {
			return nil, err
		}
		binary.BigEndian.PutUint32(raw, uint32(n))
	case domain.TypeBigint, domain.TypeDatetime:
		n, err := v.Int64()
		if err != nil {
			return nil, err
		}
		binary.BigEndian.PutUint64(raw, uint64(n))
	case domain.TypeDouble:
		f, ok := v.Scalar.(float64)
		if !ok {
			return nil, caserr.CannotCoerce(fmt.Sprintf("%T", v.Scalar), "DOUBLE")
		}
		binary.BigEndian.PutUint64(raw, float64bits(f))
	case domain.TypeOID:
		o, err := v.OID()
		if err != nil {
			return nil, err
		}
		binary.BigEndian.PutUint32(raw[0:4], uint32(o.VolumeID))
		binary.BigEndian.PutUint32(raw[4:8], uint32(o.PageID))
		binary.BigEndian.PutUint16(raw[8:10], uint16(o.SlotID))
	case domain.TypeDate, domain.TypeTime:
		n, err := v.Int32()
		if err != nil {
			return nil, err
		}
		binary.BigEndian.PutUint32(raw, uint32(n))
	case domain.TypeNumeric:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		encodePackedNumeric(raw, s)
	default:
		return nil, caserr.Corrupted(fmt.Sprintf("unexpected fixed domain %s", d.Type))
	}
	return raw, nil
}

// decodeVarScalar decodes a non-NULL variable-region value. SET-typed
// values expand into a nested subset (spec §4.1 step 8).
func decodeVarScalar(raw []byte, d *domain.Domain) (value.OrValue, error) {
	switch d.Type {
	case domain.TypeVarchar:
		v := value.Scalar(string(raw))
		v.Collation = d.Collation
		return v, nil
	case domain.TypeSet:
		return decodeSet(raw, d.SetDomain)
	default:
		// Opaque/unknown variable payloads are carried through verbatim so
		// a round trip still reproduces the original bytes.
		return value.Scalar(append([]byte(nil), raw...)), nil
	}
}

func encodeVarScalar(v value.OrValue, d *domain.Domain) ([]byte, error) {
	switch d.Type {
	case domain.TypeVarchar:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	case domain.TypeSet:
		return encodeSet(v, d.SetDomain)
	default:
		b, ok := v.Scalar.([]byte)
		if !ok {
			return nil, caserr.CannotCoerce(fmt.Sprintf("%T", v.Scalar), d.Type.String())
		}
		return b, nil
	}
}

// decodeSet decodes a length-prefixed, recursively-framed element list:
// [count:uint32]{[len:int32 (-1 for NULL)][bytes]}*count. Elements share
// elementDomain; sub-sets nest arbitrarily deep.
func decodeSet(raw []byte, elementDomain *domain.Domain) (value.OrValue, error) {
	c := &cursor{buf: raw}
	count, err := c.readUint32()
	if err != nil {
		return value.OrValue{}, caserr.Corrupted("truncated set count")
	}
	elems := make([]value.OrValue, 0, count)
	for i := uint32(0); i < count; i++ {
		l, err := c.readInt32()
		if err != nil {
			return value.OrValue{}, caserr.Corrupted("truncated set element length")
		}
		if l < 0 {
			elems = append(elems, value.Null())
			continue
		}
		raw, err := c.readBytes(int(l))
		if err != nil {
			return value.OrValue{}, caserr.Corrupted("truncated set element")
		}
		if elementDomain.Type.DiskSize(elementDomain.Precision) >= 0 {
			v, err := decodeFixedScalar(raw, elementDomain)
			if err != nil {
				return value.OrValue{}, err
			}
			elems = append(elems, v)
		} else {
			v, err := decodeVarScalar(raw, elementDomain)
			if err != nil {
				return value.OrValue{}, err
			}
			elems = append(elems, v)
		}
	}
	return value.Subset(elems...), nil
}

func encodeSet(v value.OrValue, elementDomain *domain.Domain) ([]byte, error) {
	if !v.IsSubset() {
		return nil, caserr.Corrupted("SET value is not a subset")
	}
	w := &cursor{buf: make([]byte, 0, 4)}
	w.writeUint32(uint32(len(v.Elements)))
	for _, elem := range v.Elements {
		if elem.IsNull {
			w.writeInt32(-1)
			continue
		}
		var raw []byte
		var err error
		if size := elementDomain.Type.DiskSize(elementDomain.Precision); size >= 0 {
			raw, err = encodeFixedScalar(elem, elementDomain, size)
		} else {
			raw, err = encodeVarScalar(elem, elementDomain)
		}
		if err != nil {
			return nil, err
		}
		w.writeInt32(int32(len(raw)))
		w.writeBytes(raw)
	}
	return w.buf, nil
}
