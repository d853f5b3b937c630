// Package value implements the OrValue tagged union used to shuttle decoded
// record contents between the record codec, the domain resolver, and the
// catalog mirror (spec §9, "Discriminated variants instead of inheritance").
package value

import (
	"fmt"

	"github.com/rimdb/rim/pkg/oid"
)

// Kind discriminates an OrValue: either a leaf scalar or a nested subset.
type Kind int

const (
	// KindScalar holds a single typed value (int, string, oid, ...).
	KindScalar Kind = iota
	// KindSubset holds an ordered collection of element OrValues, used for
	// variable-length set attributes and for catalog cascades (attributes,
	// constraints, domains nested under a class row).
	KindSubset
)

// IDKind discriminates the identifier carried alongside a subset element:
// either the OID of the owning catalog row, or a plain attribute id.
type IDKind int

const (
	IDNone IDKind = iota
	IDClassOID
	IDAttrID
)

// ElementID is the parallel id union from spec §9:
// `{ class_oid(Oid) | attr_id(i32) }`.
type ElementID struct {
	Kind    IDKind
	ClassID oid.OID
	AttrID  int32
}

// OrValue is the discriminated union decoded from (or destined for) a
// packed record. A scalar OrValue wraps a single Go value of the type
// implied by its Domain; a subset OrValue wraps an ordered slice of child
// OrValues, each optionally tagged with an ElementID used by the catalog
// mirror to drive its class_of back-pointer cascade (spec §4.4).
type OrValue struct {
	Kind Kind

	// IsNull marks a scalar value as SQL NULL. Ignored for subsets (an
	// empty subset is a zero-length collection, not NULL).
	IsNull bool

	// Scalar holds the decoded Go value when Kind == KindScalar.
	// Concrete types: nil, bool, int32, int64, float64, string, []byte,
	// oid.OID, time values encoded by the caller as int64/string per domain.
	Scalar any

	// Elements holds the ordered children when Kind == KindSubset.
	Elements []OrValue

	// ID tags this value (typically a subset element) with the identifier
	// the catalog mirror uses to resolve back-pointers during cascades.
	ID ElementID

	// Collation is the source collation of a char-typed scalar, set by the
	// record codec when decoding a VARCHAR value. Empty means "unset" and
	// never triggers a collation-mismatch error during coercion.
	Collation string
}

// Null returns the NULL scalar OrValue.
func Null() OrValue {
	return OrValue{Kind: KindScalar, IsNull: true}
}

// Scalar wraps v as a non-NULL scalar OrValue.
func Scalar(v any) OrValue {
	return OrValue{Kind: KindScalar, Scalar: v}
}

// Subset wraps elements as a subset OrValue.
func Subset(elements ...OrValue) OrValue {
	return OrValue{Kind: KindSubset, Elements: elements}
}

// IsSubset reports whether v is a subset, replacing the C macro IS_SUBSET
// referenced in spec §9 with a plain type switch.
func (v OrValue) IsSubset() bool { return v.Kind == KindSubset }

// WithClassOID tags v with the OID of the catalog row that owns it.
func (v OrValue) WithClassOID(id oid.OID) OrValue {
	v.ID = ElementID{Kind: IDClassOID, ClassID: id}
	return v
}

// WithAttrID tags v with an attribute id.
func (v OrValue) WithAttrID(id int32) OrValue {
	v.ID = ElementID{Kind: IDAttrID, AttrID: id}
	return v
}

// Int32 returns the scalar as an int32, coercing from int64 if needed.
func (v OrValue) Int32() (int32, error) {
	switch x := v.Scalar.(type) {
	case int32:
		return x, nil
	case int64:
		return int32(x), nil
	default:
		return 0, fmt.Errorf("value: not an int32 scalar: %T", v.Scalar)
	}
}

// Int64 returns the scalar as an int64, coercing from int32 if needed.
func (v OrValue) Int64() (int64, error) {
	switch x := v.Scalar.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("value: not an int64 scalar: %T", v.Scalar)
	}
}

// String returns the scalar as a string.
func (v OrValue) String() (string, error) {
	s, ok := v.Scalar.(string)
	if !ok {
		return "", fmt.Errorf("value: not a string scalar: %T", v.Scalar)
	}
	return s, nil
}

// OID returns the scalar as an oid.OID.
func (v OrValue) OID() (oid.OID, error) {
	o, ok := v.Scalar.(oid.OID)
	if !ok {
		return oid.Null, fmt.Errorf("value: not an oid scalar: %T", v.Scalar)
	}
	return o, nil
}
