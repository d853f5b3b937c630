package catalogmirror

import (
	"github.com/rimdb/rim/pkg/domain"
	"github.com/rimdb/rim/pkg/oid"
	"github.com/rimdb/rim/pkg/record"
)

// TableSchema describes one system table's shape to the mirror: its
// storage representation, where its heap lives, which attribute (if
// any) carries the class_of back-pointer, which attributes are nested
// subsets of another table's rows, and which attributes are indexed.
//
// The system catalog's own tables (db_class, db_attribute, db_domain,
// db_query_spec, db_index, db_index_key) have a fixed shape known at
// compile time, unlike user classes (which is why this is static
// configuration handed to the mirror rather than something decoded at
// runtime via pkg/catalog).
type TableSchema struct {
	Name string
	Repr record.Repr
	HFID oid.HFID

	// AttrDomains gives the domain of every attribute in storage order,
	// aligned with Repr.FixedAttrs()+Repr.VarAttrs() and with the
	// []value.OrValue passed to Insert/Update/Delete.
	AttrDomains []*domain.Domain

	// BackPointerAttr is the storage-order index of the class_of
	// attribute that every row must carry back to its cascade root, or
	// -1 if this table has none (spec §4.4 step 2).
	BackPointerAttr int

	// Children lists, for each attribute holding a nested subset, the
	// child table's schema (spec §4.4 "Expansion ... nested OrValue
	// subsets for attributes, query-specs, constraints, and
	// (recursively) domains").
	Children []ChildSchema

	// Indexes lists the B-tree indexes maintained on this table, each
	// keyed by one or more attribute positions.
	Indexes []IndexSchema
}

// ChildSchema binds one attribute position to the TableSchema of the
// rows nested beneath it.
type ChildSchema struct {
	AttrIndex int
	Table     *TableSchema
}

// IndexSchema is one B-tree maintained on a table, keyed by the
// attribute values at KeyAttrs (storage-order indices).
type IndexSchema struct {
	BTID     oid.BTID
	KeyAttrs []int
}
