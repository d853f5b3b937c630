// Package catalog implements the Class Representation Builder (spec
// §4.3): turning a packed db_class/db_attribute catalog record into the
// structured ClassRepr/AttrInfo/ConstraintInfo trees the rest of the CRE
// operates on, and back.
package catalog

import (
	"github.com/rimdb/rim/pkg/caserr"
	"github.com/rimdb/rim/pkg/domain"
	"github.com/rimdb/rim/pkg/oid"
	"github.com/rimdb/rim/pkg/record"
	"github.com/rimdb/rim/pkg/value"
)

// NullReprID and NullAttrID mirror the original's sentinel identifiers.
const (
	NullReprID int32 = -1
	NullAttrID int32 = -1
)

// AttrFlag is a bitset of per-attribute flags (spec §4.3: "flags
// (nullable, shard-key)").
type AttrFlag uint8

const (
	AttrFlagNullable AttrFlag = 1 << iota
	AttrFlagShardKey
)

// Location pinpoints where an attribute's value lives in a packed
// record: a byte offset for fixed attributes, or an index into the
// offset table for variable ones (spec §3 disk_attribute.location).
type Location struct {
	IsFixed bool
	Offset  int // byte offset, fixed attributes only
	Index   int // variable-table index, variable attributes only
}

// AttrInfo is one attribute of a class representation (spec §4.3: "id,
// type, def_order, flags, location, defaults, domain").
type AttrInfo struct {
	ID       int32
	Name     string // resolved by a second pass, see ResolveAttrNames
	DefOrder int32
	Flags    AttrFlag
	Location Location
	Position int32 // storage position, fixed attributes only
	Domain   *domain.Domain

	// DefaultOriginal and DefaultCurrent are each a domain-tagged value
	// (spec §4.3: "defaults (original + current, each prefixed by a
	// domain tag)"). Either may be the NULL OrValue.
	DefaultOriginal value.OrValue
	DefaultCurrent  value.OrValue

	// BTIDs lists the index trees that reference this attribute,
	// populated by GetConstraints (spec §4.3 "attach btids back to each
	// referenced attribute").
	BTIDs []oid.BTID
}

func (a AttrInfo) Nullable() bool  { return a.Flags&AttrFlagNullable != 0 }
func (a AttrInfo) ShardKey() bool  { return a.Flags&AttrFlagShardKey != 0 }

// ConstraintInfo is one class-level constraint (spec §4.3
// get_constraints): a btree id, the ordered attribute ids that make up
// its key with per-column direction, and a status.
type ConstraintInfo struct {
	BTID    oid.BTID
	Columns []ConstraintColumn
	Status  int32
}

// ConstraintColumn is one column of a constraint's key, attribute id
// plus sort direction.
type ConstraintColumn struct {
	AttrID int32
	Desc   bool
}

// ClassRepr is a built class representation (spec §4.3). It implements
// record.Repr so the record codec can decode/encode rows shaped by it.
type ClassRepr struct {
	ID           int32
	ClassOID     oid.OID
	Fixed        []AttrInfo
	Variable     []AttrInfo
	FixedLen     int
	Constraints  []ConstraintInfo
	boundBitFlag bool
}

// record.Repr implementation.

func (c *ClassRepr) ReprID() int32      { return c.ID }
func (c *ClassRepr) NFixed() int        { return len(c.Fixed) }
func (c *ClassRepr) NVariable() int     { return len(c.Variable) }
func (c *ClassRepr) FixedLength() int   { return c.FixedLen }
func (c *ClassRepr) BoundBitFlag() bool { return c.boundBitFlag }

func (c *ClassRepr) FixedAttrs() []record.AttrLayout {
	out := make([]record.AttrLayout, len(c.Fixed))
	for i, a := range c.Fixed {
		out[i] = record.AttrLayout{Domain: a.Domain, IsFixed: true}
	}
	return out
}

func (c *ClassRepr) VarAttrs() []record.AttrLayout {
	out := make([]record.AttrLayout, len(c.Variable))
	for i, a := range c.Variable {
		out[i] = record.AttrLayout{Domain: a.Domain, IsFixed: false}
	}
	return out
}

// AllAttrs returns fixed then variable attributes, matching the storage
// order record.DecodeToValues/EncodeFromValues use (spec §4.3 "Ordering:
// ... all other consumers see attribute order = storage order").
func (c *ClassRepr) AllAttrs() []AttrInfo {
	out := make([]AttrInfo, 0, len(c.Fixed)+len(c.Variable))
	out = append(out, c.Fixed...)
	out = append(out, c.Variable...)
	return out
}

// attrByID finds an attribute by id across both regions, or nil.
func (c *ClassRepr) attrByID(id int32) *AttrInfo {
	for i := range c.Fixed {
		if c.Fixed[i].ID == id {
			return &c.Fixed[i]
		}
	}
	for i := range c.Variable {
		if c.Variable[i].ID == id {
			return &c.Variable[i]
		}
	}
	return nil
}

// rawRepr is the packed-record shape of a single history-set entry: the
// caller supplies enough attribute metadata (as already-decoded OrValue
// subsets) for GetClassRepr to build a ClassRepr without re-entering the
// codec — the db_class row itself has already been decoded into OrValue
// form by the time this package runs (spec §4.4's Expansion happens at
// the OrValue level; §4.3 operates one level down, on that same tree).
type rawRepr struct {
	id            int32
	fixedLength   int32
	nFixed        int32
	nVariable     int32
	attributes    value.OrValue // subset of per-attribute OrValue rows
	constraints   value.OrValue // subset, class-level only (current repr)
	historyReprs  value.OrValue // subset of historical rawRepr-shaped rows
}

// GetClassRepr builds a ClassRepr from a decoded db_class OrValue tree
// (spec §4.3 get_class_repr). repID == NullReprID selects the current
// representation; any other value selects a historical, reduced
// (attributes-only) representation.
func GetClassRepr(classRow value.OrValue, repID int32) (*ClassRepr, error) {
	if classRow.Kind != value.KindSubset {
		return nil, caserr.Corrupted("class row is not a subset")
	}

	current, err := readRawRepr(classRow)
	if err != nil {
		return nil, err
	}

	if repID == NullReprID {
		return buildCurrentRepr(current)
	}

	history, err := findHistoryRepr(classRow, repID)
	if err != nil {
		return nil, err
	}
	return buildHistoricalRepr(history)
}

// field indices into the fixed layout of a db_class-shaped subset row.
// Kept as named constants rather than magic numbers since the builder
// below indexes into classRow.Elements directly.
const (
	fieldRepID = iota
	fieldFixedLength
	fieldNFixed
	fieldNVariable
	fieldAttributes
	fieldConstraints
	fieldHistory
	fieldCount
)

func readRawRepr(classRow value.OrValue) (rawRepr, error) {
	if len(classRow.Elements) < fieldCount {
		return rawRepr{}, caserr.Corrupted("class row missing fields")
	}
	e := classRow.Elements
	repID, err := e[fieldRepID].Int32()
	if err != nil {
		return rawRepr{}, caserr.Corrupted("repid field")
	}
	fixedLength, err := e[fieldFixedLength].Int32()
	if err != nil {
		return rawRepr{}, caserr.Corrupted("fixed_length field")
	}
	nFixed, err := e[fieldNFixed].Int32()
	if err != nil {
		return rawRepr{}, caserr.Corrupted("n_fixed field")
	}
	nVariable, err := e[fieldNVariable].Int32()
	if err != nil {
		return rawRepr{}, caserr.Corrupted("n_variable field")
	}
	return rawRepr{
		id:           repID,
		fixedLength:  fixedLength,
		nFixed:       nFixed,
		nVariable:    nVariable,
		attributes:   e[fieldAttributes],
		constraints:  e[fieldConstraints],
		historyReprs: e[fieldHistory],
	}, nil
}

func findHistoryRepr(classRow value.OrValue, repID int32) (rawRepr, error) {
	raw, err := readRawRepr(classRow)
	if err != nil {
		return rawRepr{}, err
	}
	if !raw.historyReprs.IsSubset() {
		return rawRepr{}, caserr.UnknownRepr(repID)
	}
	for _, histRow := range raw.historyReprs.Elements {
		hr, err := readRawRepr(histRow)
		if err != nil {
			continue
		}
		if hr.id == repID {
			return hr, nil
		}
	}
	return rawRepr{}, caserr.UnknownRepr(repID)
}

func buildCurrentRepr(raw rawRepr) (*ClassRepr, error) {
	attrs, err := decodeAttributes(raw.attributes)
	if err != nil {
		return nil, err
	}

	repr := &ClassRepr{ID: raw.id, FixedLen: int(raw.fixedLength)}
	for _, a := range attrs {
		if a.Location.IsFixed {
			repr.Fixed = append(repr.Fixed, a)
		} else {
			repr.Variable = append(repr.Variable, a)
		}
	}
	repr.boundBitFlag = len(repr.Fixed) > 0
	if int32(len(repr.Fixed)) != raw.nFixed || int32(len(repr.Variable)) != raw.nVariable {
		return nil, caserr.Corrupted("attribute count does not match header")
	}

	constraints, err := GetConstraints(raw.constraints)
	if err != nil {
		return nil, err
	}
	repr.Constraints = constraints
	attachConstraintBTIDs(repr, constraints)

	if err := ResolveAttrNames(repr, raw.attributes); err != nil {
		return nil, err
	}
	return repr, nil
}

// buildHistoricalRepr builds the reduced, attributes-only representation
// described for non-current repr ids (spec §4.3: "build a reduced
// representation (attributes only)").
func buildHistoricalRepr(raw rawRepr) (*ClassRepr, error) {
	attrs, err := decodeAttributes(raw.attributes)
	if err != nil {
		return nil, err
	}
	repr := &ClassRepr{ID: raw.id, FixedLen: int(raw.fixedLength)}
	for _, a := range attrs {
		if a.Location.IsFixed {
			repr.Fixed = append(repr.Fixed, a)
		} else {
			repr.Variable = append(repr.Variable, a)
		}
	}
	repr.boundBitFlag = len(repr.Fixed) > 0
	return repr, nil
}

// attribute field indices within a per-attribute subset element.
const (
	attrFieldID = iota
	attrFieldType
	attrFieldDefOrder
	attrFieldFlags
	attrFieldIsFixed
	attrFieldOffsetOrIndex
	attrFieldPosition
	attrFieldDefaultOriginal
	attrFieldDefaultCurrent
	attrFieldDomain
	attrFieldCount
)

func decodeAttributes(attrs value.OrValue) ([]AttrInfo, error) {
	if !attrs.IsSubset() {
		return nil, caserr.Corrupted("attributes field is not a subset")
	}
	out := make([]AttrInfo, 0, len(attrs.Elements))
	for _, row := range attrs.Elements {
		a, err := decodeOneAttribute(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func decodeOneAttribute(row value.OrValue) (AttrInfo, error) {
	if len(row.Elements) < attrFieldCount {
		return AttrInfo{}, caserr.Corrupted("attribute row missing fields")
	}
	e := row.Elements
	id, err := e[attrFieldID].Int32()
	if err != nil {
		return AttrInfo{}, caserr.Corrupted("attribute id")
	}
	defOrder, err := e[attrFieldDefOrder].Int32()
	if err != nil {
		return AttrInfo{}, caserr.Corrupted("attribute def_order")
	}
	flagsRaw, err := e[attrFieldFlags].Int32()
	if err != nil {
		return AttrInfo{}, caserr.Corrupted("attribute flags")
	}
	isFixedRaw, err := e[attrFieldIsFixed].Int32()
	if err != nil {
		return AttrInfo{}, caserr.Corrupted("attribute is_fixed")
	}
	offsetOrIndex, err := e[attrFieldOffsetOrIndex].Int32()
	if err != nil {
		return AttrInfo{}, caserr.Corrupted("attribute location")
	}
	position, err := e[attrFieldPosition].Int32()
	if err != nil {
		return AttrInfo{}, caserr.Corrupted("attribute position")
	}
	d, err := decodeDomainTag(e[attrFieldDomain])
	if err != nil {
		return AttrInfo{}, err
	}

	loc := Location{IsFixed: isFixedRaw != 0}
	if loc.IsFixed {
		loc.Offset = int(offsetOrIndex)
	} else {
		loc.Index = int(offsetOrIndex)
	}

	return AttrInfo{
		ID:              id,
		DefOrder:        defOrder,
		Flags:           AttrFlag(flagsRaw),
		Location:        loc,
		Position:        position,
		Domain:          d,
		DefaultOriginal: e[attrFieldDefaultOriginal],
		DefaultCurrent:  e[attrFieldDefaultCurrent],
	}, nil
}

// decodeDomainTag reconstructs a *domain.Domain from the domain-tagged
// scalar an attribute row carries. The tag is itself an OrValue subset
// of {type, precision, scale, collation, extra?}, where the optional
// fifth element is the element-domain tag of a SET or the class OID of
// an OID domain.
func decodeDomainTag(tag value.OrValue) (*domain.Domain, error) {
	if tag.IsNull || !tag.IsSubset() || len(tag.Elements) < 4 {
		return nil, caserr.Corrupted("domain tag")
	}
	typeRaw, err := tag.Elements[0].Int32()
	if err != nil {
		return nil, caserr.Corrupted("domain type")
	}
	precision, err := tag.Elements[1].Int32()
	if err != nil {
		return nil, caserr.Corrupted("domain precision")
	}
	scale, err := tag.Elements[2].Int32()
	if err != nil {
		return nil, caserr.Corrupted("domain scale")
	}
	collation, _ := tag.Elements[3].String()

	d := &domain.Domain{Type: domain.Type(typeRaw), Precision: precision, Scale: scale, Collation: collation}
	if domain.Type(typeRaw) == domain.TypeSet && len(tag.Elements) > 4 {
		elem, err := decodeDomainTag(tag.Elements[4])
		if err != nil {
			return nil, err
		}
		d.SetDomain = elem
	}
	if domain.Type(typeRaw) == domain.TypeOID && len(tag.Elements) > 4 {
		o, err := tag.Elements[4].OID()
		if err == nil {
			d.ClassOID = &o
		}
	}
	return domain.Intern(d), nil
}

// ResolveAttrNames resolves attribute ids to names by a second pass over
// the same attribute subset, because constraints (and, transiently, the
// builder above) carry ids while callers want names (spec §4.3: "the
// builder resolves attribute ids to attribute names by a second pass").
func ResolveAttrNames(repr *ClassRepr, attrs value.OrValue) error {
	if !attrs.IsSubset() {
		return caserr.Corrupted("attributes field is not a subset")
	}
	names := make(map[int32]string, len(attrs.Elements))
	for _, row := range attrs.Elements {
		if len(row.Elements) <= attrFieldCount {
			continue // name field, if present, sits past attrFieldCount
		}
		id, err := row.Elements[attrFieldID].Int32()
		if err != nil {
			continue
		}
		name, err := row.Elements[attrFieldCount].String()
		if err != nil {
			continue
		}
		names[id] = name
	}
	for i := range repr.Fixed {
		repr.Fixed[i].Name = names[repr.Fixed[i].ID]
	}
	for i := range repr.Variable {
		repr.Variable[i].Name = names[repr.Variable[i].ID]
	}
	return nil
}
