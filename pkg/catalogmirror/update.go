package catalogmirror

import (
	"context"
	"reflect"

	"github.com/rimdb/rim/pkg/caserr"
	"github.com/rimdb/rim/pkg/oid"
	"github.com/rimdb/rim/pkg/record"
	"github.com/rimdb/rim/pkg/value"
)

// UpdateClass implements spec §4.4 update: compare each attribute of
// newRoot against the stored row for name, mark the row dirty on any
// scalar difference or subset element change, and on a dirty row
// re-encode and drive the heap's update path (with the old record, for
// index maintenance) plus recurse into children.
func (m *Mirror) UpdateClass(ctx context.Context, name string, classOID oid.OID, newRoot value.OrValue, schema *TableSchema) error {
	if !newRoot.IsSubset() {
		return caserr.Corrupted("class record is not a subset")
	}
	target, err := m.resolveRowOID(ctx, name, classOID)
	if err != nil {
		return err
	}
	_, err = m.updateRow(ctx, target, newRoot.Elements, schema)
	return err
}

// updateRow diffs newValues against the stored row at target, updating
// in place (and recursing into children) only where something changed.
// It returns whether anything in this row or its descendants changed.
func (m *Mirror) updateRow(ctx context.Context, target oid.OID, newValues []value.OrValue, schema *TableSchema) (bool, error) {
	oldRaw, err := m.Heap.Fetch(ctx, target)
	if err != nil {
		return false, err
	}
	oldValues, _, err := record.DecodeToValues(oldRaw, schema.Repr)
	if err != nil {
		return false, err
	}

	dirty := false
	merged := append([]value.OrValue(nil), newValues...)

	childByAttr := make(map[int]*TableSchema, len(schema.Children))
	for _, c := range schema.Children {
		childByAttr[c.AttrIndex] = c.Table
	}

	for i := range merged {
		if i >= len(oldValues) {
			dirty = true
			continue
		}
		if childTable, isChild := childByAttr[i]; isChild {
			changed, err := m.updateSubset(ctx, oldValues[i], merged[i], childTable)
			if err != nil {
				return false, err
			}
			if changed {
				dirty = true
			}
			continue
		}
		if !scalarEqual(oldValues[i], merged[i]) {
			dirty = true
		}
	}

	if !dirty {
		return false, nil
	}

	newRaw, err := record.EncodeFromValues(merged, schema.Repr, oid.GlobalGroupID)
	if err != nil {
		return false, err
	}
	if err := m.Heap.Update(ctx, target, oldRaw, newRaw); err != nil {
		return false, err
	}
	return true, nil
}

// updateSubset pairs old and new subset elements by position (spec
// §4.4: "pair them by position; update common prefixes, insert the
// extra suffix of the new side, delete the extra suffix of the old
// side"). It reports whether anything changed.
func (m *Mirror) updateSubset(ctx context.Context, oldSubset, newSubset value.OrValue, childTable *TableSchema) (bool, error) {
	if !oldSubset.IsSubset() || !newSubset.IsSubset() {
		return !scalarEqual(oldSubset, newSubset), nil
	}

	changed := false
	common := min(len(oldSubset.Elements), len(newSubset.Elements))

	for i := 0; i < common; i++ {
		oldOID, err := oldSubset.Elements[i].OID()
		if err != nil {
			continue
		}
		elemChanged, err := m.updateRowFromValue(ctx, oldOID, newSubset.Elements[i], childTable)
		if err != nil {
			return false, err
		}
		if elemChanged {
			changed = true
		}
	}

	for i := common; i < len(newSubset.Elements); i++ {
		var rootOID oid.OID
		if _, err := m.insertRow(ctx, newSubset.Elements[i], childTable, &rootOID, true); err != nil {
			return false, err
		}
		changed = true
	}

	for i := common; i < len(oldSubset.Elements); i++ {
		oldOID, err := oldSubset.Elements[i].OID()
		if err != nil {
			continue
		}
		if err := m.deleteRow(ctx, oldOID, childTable); err != nil {
			return false, err
		}
		changed = true
	}

	return changed, nil
}

func (m *Mirror) updateRowFromValue(ctx context.Context, target oid.OID, newRow value.OrValue, schema *TableSchema) (bool, error) {
	if !newRow.IsSubset() {
		return false, caserr.Corrupted("nested row is not a subset")
	}
	return m.updateRow(ctx, target, newRow.Elements, schema)
}

func scalarEqual(a, b value.OrValue) bool {
	if a.IsNull != b.IsNull {
		return false
	}
	if a.IsNull {
		return true
	}
	if ao, aok := a.Scalar.(oid.OID); aok {
		if bo, bok := b.Scalar.(oid.OID); bok {
			return ao.Equal(bo)
		}
		return false
	}
	return reflect.DeepEqual(a.Scalar, b.Scalar)
}
