// Package catalogmirror implements the Catalog Table Mirror (spec
// §4.4): rewriting the system tables when the class catalog changes, by
// expanding a class record into an OrValue tree and cascading inserts,
// updates, and deletes through it.
package catalogmirror

import (
	"context"

	"github.com/rimdb/rim/pkg/caserr"
	"github.com/rimdb/rim/pkg/catalogmirror/oidcache"
	"github.com/rimdb/rim/pkg/domain"
	"github.com/rimdb/rim/pkg/oid"
	"github.com/rimdb/rim/pkg/record"
	"github.com/rimdb/rim/pkg/value"
)

// Mirror drives the system-table rewrite described in spec §4.4.
type Mirror struct {
	Heap  HeapStore
	Index IndexStore
	Cache oidcache.Cache

	// ClassNameIndex is the secondary index used to resolve a class
	// name to its db_class row's OID on a cache miss (spec §4.4:
	// "populated lazily on first lookup (by secondary index on class
	// name)").
	ClassNameIndex func(ctx context.Context, name string) (oid.OID, error)
}

// InsertClass expands root (an OrValue tree rooted at db_class, per
// spec §4.4 Expansion) and inserts it, cascading into every nested
// subset. It returns the OID of the root db_class row.
func (m *Mirror) InsertClass(ctx context.Context, root value.OrValue, schema *TableSchema) (oid.OID, error) {
	if !root.IsSubset() {
		return oid.Null, caserr.Corrupted("class record is not a subset")
	}
	var rootOID oid.OID
	got, err := m.insertRow(ctx, root, schema, &rootOID, true)
	if err != nil {
		return oid.Null, err
	}
	m.Cache.Put(got, got)
	return got, nil
}

// insertRow implements steps 1-6 of spec §4.4 for one row (and,
// recursively, its children). isRoot marks the very first call of a
// cascade, whose allocated address becomes rootOID for every
// descendant's back-pointer and self-reference rewrite.
func (m *Mirror) insertRow(ctx context.Context, row value.OrValue, schema *TableSchema, rootOID *oid.OID, isRoot bool) (oid.OID, error) {
	target, err := m.Heap.Reserve(ctx, schema.HFID)
	if err != nil {
		return oid.Null, err
	}
	if isRoot {
		*rootOID = target
	}

	values := append([]value.OrValue(nil), row.Elements...)
	if schema.BackPointerAttr >= 0 && schema.BackPointerAttr < len(values) {
		values[schema.BackPointerAttr] = value.Scalar(*rootOID)
	}
	resolveSelfReferences(values, schema.AttrDomains, *rootOID)

	// The child-row subsets nested in values aren't yet OID references
	// (their rows haven't been inserted), so they can't be encoded as
	// the attribute's real SET-of-oid domain. Stash them and encode an
	// empty placeholder for the first pass; the real content is filled
	// in and re-encoded once the children have addresses (step 6).
	childRows := make(map[int]value.OrValue, len(schema.Children))
	for _, child := range schema.Children {
		if child.AttrIndex >= len(values) {
			continue
		}
		childRows[child.AttrIndex] = values[child.AttrIndex]
		values[child.AttrIndex] = value.Subset()
	}

	raw, err := record.EncodeFromValues(values, schema.Repr, oid.GlobalGroupID)
	if err != nil {
		return oid.Null, err
	}
	if err := m.Heap.Insert(ctx, target, raw); err != nil {
		return oid.Null, err
	}

	if err := m.updateIndexes(ctx, schema, values, target, false); err != nil {
		return oid.Null, err
	}

	childrenChanged := false
	for _, child := range schema.Children {
		subset, ok := childRows[child.AttrIndex]
		if !ok || !subset.IsSubset() {
			continue
		}
		childOIDs := make([]value.OrValue, 0, len(subset.Elements))
		for _, elem := range subset.Elements {
			childOID, err := m.insertRow(ctx, elem, child.Table, rootOID, false)
			if err != nil {
				return oid.Null, err
			}
			childOIDs = append(childOIDs, value.Scalar(childOID))
		}
		// Step 6: stamp the resulting child OIDs into a sequence value
		// attached to the parent attribute.
		values[child.AttrIndex] = value.Subset(childOIDs...)
		childrenChanged = true
	}

	if childrenChanged {
		newRaw, err := record.EncodeFromValues(values, schema.Repr, oid.GlobalGroupID)
		if err != nil {
			return oid.Null, err
		}
		if err := m.Heap.Update(ctx, target, raw, newRaw); err != nil {
			return oid.Null, err
		}
	}

	return target, nil
}

// resolveSelfReferences implements spec §4.4 step 3: a default value
// that already equals the freshly allocated root OID is replaced by
// NULL (it would otherwise be a dangling forward-reference written
// before the OID existed); a value still carrying the "variable"
// placeholder domain is rewritten to carry the real root OID, since it
// was built before the address was known.
func resolveSelfReferences(values []value.OrValue, domains []*domain.Domain, rootOID oid.OID) {
	for i := range values {
		if i >= len(domains) || domains[i] == nil {
			continue
		}
		if domains[i].Type == domain.TypeVariable {
			values[i] = value.Scalar(rootOID)
			continue
		}
		if values[i].IsNull || values[i].Kind != value.KindScalar {
			continue
		}
		if o, ok := values[i].Scalar.(oid.OID); ok && o.Equal(rootOID) {
			values[i] = value.Null()
		}
	}
}

func (m *Mirror) updateIndexes(ctx context.Context, schema *TableSchema, values []value.OrValue, target oid.OID, deleting bool) error {
	for _, idx := range schema.Indexes {
		key := buildIndexKey(values, idx.KeyAttrs)
		var err error
		if deleting {
			err = m.Index.Delete(ctx, idx.BTID, key, target)
		} else {
			err = m.Index.Insert(ctx, idx.BTID, key, target)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func buildIndexKey(values []value.OrValue, attrs []int) value.OrValue {
	if len(attrs) == 1 {
		if attrs[0] < len(values) {
			return values[attrs[0]]
		}
		return value.Null()
	}
	parts := make([]value.OrValue, 0, len(attrs))
	for _, a := range attrs {
		if a < len(values) {
			parts = append(parts, values[a])
		} else {
			parts = append(parts, value.Null())
		}
	}
	return value.Subset(parts...)
}

// DeleteClass implements spec §4.4 deletion: read the root record,
// decode, recurse into every subset deleting child rows first, then
// remove the root and its index entries.
func (m *Mirror) DeleteClass(ctx context.Context, name string, classOID oid.OID, schema *TableSchema) error {
	rowOID, err := m.resolveRowOID(ctx, name, classOID)
	if err != nil {
		return err
	}
	if err := m.deleteRow(ctx, rowOID, schema); err != nil {
		return err
	}
	m.Cache.Invalidate(classOID)
	return nil
}

func (m *Mirror) deleteRow(ctx context.Context, target oid.OID, schema *TableSchema) error {
	raw, err := m.Heap.Fetch(ctx, target)
	if err != nil {
		return err
	}
	values, _, err := record.DecodeToValues(raw, schema.Repr)
	if err != nil {
		return err
	}

	for _, child := range schema.Children {
		if child.AttrIndex >= len(values) {
			continue
		}
		subset := values[child.AttrIndex]
		if !subset.IsSubset() {
			continue
		}
		for _, elem := range subset.Elements {
			childOID, err := elem.OID()
			if err != nil {
				continue
			}
			if err := m.deleteRow(ctx, childOID, child.Table); err != nil {
				return err
			}
		}
	}

	if err := m.updateIndexes(ctx, schema, values, target, true); err != nil {
		return err
	}
	return m.Heap.Delete(ctx, target)
}

// resolveRowOID resolves a class name to its db_class row OID, checking
// the cache first and falling back to the secondary name index on a
// miss (spec §4.4: "populated lazily on first lookup").
func (m *Mirror) resolveRowOID(ctx context.Context, name string, classOID oid.OID) (oid.OID, error) {
	if row, ok := m.Cache.Get(classOID); ok {
		return row, nil
	}
	if m.ClassNameIndex == nil {
		return oid.Null, caserr.Corrupted("no class name index configured")
	}
	row, err := m.ClassNameIndex(ctx, name)
	if err != nil {
		return oid.Null, err
	}
	m.Cache.Put(classOID, row)
	return row, nil
}
