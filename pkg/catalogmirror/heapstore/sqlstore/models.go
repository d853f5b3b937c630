// Package sqlstore implements the catalog mirror's HeapStore and
// IndexStore contracts (spec §6 "External Interfaces") over a real
// relational backend via GORM, and wires the dispatcher's Engine seam
// to the same backend's own SQL engine (the real query parser/planner
// is out of scope; sqlstore hands the text straight to the backing
// RDBMS rather than building one).
package sqlstore

import "time"

// HeapRecord is the generic heap-file table backing HeapStore: one row
// per (volume, page, slot), keyed by the owning heap file (spec §4.4's
// "storage is given by contract" - the concrete shape here is the
// adapter's choice, not spec-mandated).
type HeapRecord struct {
	VolumeID int32 `gorm:"primaryKey;column:volume_id"`
	PageID   int32 `gorm:"primaryKey;column:page_id"`
	SlotID   int16 `gorm:"primaryKey;column:slot_id"`

	HFileVFID  int32 `gorm:"index;column:hfile_vfid"`
	HFileHpgID int32 `gorm:"column:hfile_hpgid"`

	Raw       []byte    `gorm:"column:raw"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (HeapRecord) TableName() string { return "heap_records" }

// HeapFileCursor tracks the next free slot for a heap file so Reserve
// can hand out addresses without a page/slot allocator (spec leaves
// page/slot layout to the storage engine; this is the adapter's minimal
// stand-in).
type HeapFileCursor struct {
	HFileVFID  int32 `gorm:"primaryKey;column:hfile_vfid"`
	HFileHpgID int32 `gorm:"column:hfile_hpgid"`
	NextPage   int32 `gorm:"column:next_page"`
	NextSlot   int16 `gorm:"column:next_slot"`
}

func (HeapFileCursor) TableName() string { return "heap_file_cursors" }

// slotsPerPage mirrors a fixed heap-page fan-out; an arbitrary but
// stable choice since real page sizing is storage-engine internal.
const slotsPerPage = 64

// IndexEntry is the generic B-tree entry table backing IndexStore.
type IndexEntry struct {
	ID int64 `gorm:"primaryKey;autoIncrement;column:id"`

	BTIDVFID     int32 `gorm:"index:idx_btid_key;column:btid_vfid"`
	BTIDRootPage int32 `gorm:"index:idx_btid_key;column:btid_rootpage"`
	KeyBytes     []byte `gorm:"index:idx_btid_key;column:key_bytes"`

	TargetVolumeID int32 `gorm:"column:target_volume_id"`
	TargetPageID   int32 `gorm:"column:target_page_id"`
	TargetSlotID   int16 `gorm:"column:target_slot_id"`
}

func (IndexEntry) TableName() string { return "index_entries" }

// DBClass is the decoded view of a db_class catalog row, surfaced to
// SchemaInfo/GetQueryPlan style introspection without forcing a caller
// to decode the OrValue record (spec §4.4's db_class "root" table).
type DBClass struct {
	OID       string `gorm:"primaryKey;column:oid"`
	Name      string `gorm:"uniqueIndex;column:name"`
	OwnerName string `gorm:"column:owner_name"`
	ClassType int32  `gorm:"column:class_type"`
}

func (DBClass) TableName() string { return "db_class" }

// DBAttribute is the decoded view of a db_attribute catalog row.
type DBAttribute struct {
	OID          string `gorm:"primaryKey;column:oid"`
	ClassOID     string `gorm:"index;column:class_oid"`
	Name         string `gorm:"column:name"`
	AttrOrder    int32  `gorm:"column:attr_order"`
	DomainOID    string `gorm:"column:domain_oid"`
	FixedLength  int32  `gorm:"column:fixed_length"`
	IsPrimaryKey bool   `gorm:"column:is_primary_key"`
}

func (DBAttribute) TableName() string { return "db_attribute" }

// DBDomain is the decoded view of a db_domain catalog row.
type DBDomain struct {
	OID       string `gorm:"primaryKey;column:oid"`
	DataType  int32  `gorm:"column:data_type"`
	Precision int32  `gorm:"column:precision"`
	Scale     int32  `gorm:"column:scale"`
	ClassOID  string `gorm:"column:class_oid"`
}

func (DBDomain) TableName() string { return "db_domain" }

// DBQuerySpec is the decoded view of a db_query_spec catalog row (view
// definitions).
type DBQuerySpec struct {
	OID      string `gorm:"primaryKey;column:oid"`
	ClassOID string `gorm:"index;column:class_oid"`
	Specification string `gorm:"column:specification"`
}

func (DBQuerySpec) TableName() string { return "db_query_spec" }

// DBIndex is the decoded view of a db_index catalog row.
type DBIndex struct {
	OID      string `gorm:"primaryKey;column:oid"`
	ClassOID string `gorm:"index;column:class_oid"`
	Name     string `gorm:"column:name"`
	IsUnique bool   `gorm:"column:is_unique"`
	BTIDVFID     int32 `gorm:"column:btid_vfid"`
	BTIDRootPage int32 `gorm:"column:btid_rootpage"`
}

func (DBIndex) TableName() string { return "db_index" }

// DBIndexKey is the decoded view of a db_index_key catalog row (one per
// key column of an index, ordered by KeyOrder).
type DBIndexKey struct {
	OID        string `gorm:"primaryKey;column:oid"`
	IndexOID   string `gorm:"index;column:index_oid"`
	AttributeOID string `gorm:"column:attribute_oid"`
	KeyOrder   int32  `gorm:"column:key_order"`
	AscDesc    bool   `gorm:"column:asc_desc"`
}

func (DBIndexKey) TableName() string { return "db_index_key" }

// AllModels lists every table sqlstore owns, for AutoMigrate/dev setup.
// Production deployments use the golang-migrate migrations in
// migrations/ instead (see migrate.go).
var AllModels = []any{
	&HeapRecord{},
	&HeapFileCursor{},
	&IndexEntry{},
	&DBClass{},
	&DBAttribute{},
	&DBDomain{},
	&DBQuerySpec{},
	&DBIndex{},
	&DBIndexKey{},
}
