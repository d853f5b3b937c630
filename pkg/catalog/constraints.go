package catalog

import (
	"github.com/rimdb/rim/pkg/caserr"
	"github.com/rimdb/rim/pkg/oid"
	"github.com/rimdb/rim/pkg/value"
)

// btidRingSize matches the original's small preallocated ring before it
// spills to heap allocation (spec §4.3: "btid_pack[8]").
const btidRingSize = 8

// btidRing accumulates BTIDs for a single attribute's back-reference
// list, favoring the fixed-size array for the common case of few
// indexes per column and only allocating once the ring fills.
type btidRing struct {
	array    [btidRingSize]oid.BTID
	n        int
	overflow []oid.BTID
}

func (r *btidRing) append(b oid.BTID) {
	if r.n < btidRingSize {
		r.array[r.n] = b
		r.n++
		return
	}
	r.overflow = append(r.overflow, b)
}

func (r *btidRing) slice() []oid.BTID {
	out := make([]oid.BTID, 0, r.n+len(r.overflow))
	out = append(out, r.array[:r.n]...)
	out = append(out, r.overflow...)
	return out
}

// constraint row field indices.
const (
	constraintFieldVFID = iota
	constraintFieldRootPage
	constraintFieldColumns
	constraintFieldStatus
	constraintFieldCount
)

// column field indices within a constraint's columns subset.
const (
	columnFieldAttrID = iota
	columnFieldDesc
)

// GetConstraints decodes the class-level constraint subset (spec §4.3
// get_constraints): for each constraint it reads the btid, the ordered
// attribute-id/direction list, and the status.
func GetConstraints(constraints value.OrValue) ([]ConstraintInfo, error) {
	if constraints.IsNull {
		return nil, nil
	}
	if !constraints.IsSubset() {
		return nil, caserr.Corrupted("constraints field is not a subset")
	}

	out := make([]ConstraintInfo, 0, len(constraints.Elements))
	for _, row := range constraints.Elements {
		ci, err := decodeConstraint(row)
		if err != nil {
			return nil, err
		}
		out = append(out, ci)
	}
	return out, nil
}

func decodeConstraint(row value.OrValue) (ConstraintInfo, error) {
	if len(row.Elements) < constraintFieldCount {
		return ConstraintInfo{}, caserr.Corrupted("constraint row missing fields")
	}
	e := row.Elements
	vfid, err := e[constraintFieldVFID].Int32()
	if err != nil {
		return ConstraintInfo{}, caserr.Corrupted("constraint vfid")
	}
	rootPage, err := e[constraintFieldRootPage].Int32()
	if err != nil {
		return ConstraintInfo{}, caserr.Corrupted("constraint root page")
	}
	status, err := e[constraintFieldStatus].Int32()
	if err != nil {
		return ConstraintInfo{}, caserr.Corrupted("constraint status")
	}
	columns, err := decodeConstraintColumns(e[constraintFieldColumns])
	if err != nil {
		return ConstraintInfo{}, err
	}

	return ConstraintInfo{
		BTID:    oid.BTID{VFID: vfid, RootPage: rootPage},
		Columns: columns,
		Status:  status,
	}, nil
}

func decodeConstraintColumns(columns value.OrValue) ([]ConstraintColumn, error) {
	if !columns.IsSubset() {
		return nil, caserr.Corrupted("constraint columns field is not a subset")
	}
	out := make([]ConstraintColumn, 0, len(columns.Elements))
	for _, col := range columns.Elements {
		if len(col.Elements) <= columnFieldDesc {
			return nil, caserr.Corrupted("constraint column missing fields")
		}
		attrID, err := col.Elements[columnFieldAttrID].Int32()
		if err != nil {
			return nil, caserr.Corrupted("constraint column attr id")
		}
		descRaw, err := col.Elements[columnFieldDesc].Int32()
		if err != nil {
			return nil, caserr.Corrupted("constraint column direction")
		}
		out = append(out, ConstraintColumn{AttrID: attrID, Desc: descRaw != 0})
	}
	return out, nil
}

// attachConstraintBTIDs attaches each constraint's btid back onto every
// attribute it references (spec §4.3: "attach btids back to each
// referenced attribute"), using btidRing to accumulate per-attribute
// lists. Attribute ids that no longer exist (dropped columns) are
// silently skipped, matching the original's tolerance for stale
// constraint metadata after a column drop.
func attachConstraintBTIDs(repr *ClassRepr, constraints []ConstraintInfo) {
	rings := make(map[int32]*btidRing)
	for _, c := range constraints {
		for _, col := range c.Columns {
			if repr.attrByID(col.AttrID) == nil {
				continue
			}
			r, ok := rings[col.AttrID]
			if !ok {
				r = &btidRing{}
				rings[col.AttrID] = r
			}
			r.append(c.BTID)
		}
	}
	for id, r := range rings {
		if a := repr.attrByID(id); a != nil {
			a.BTIDs = r.slice()
		}
	}
}
