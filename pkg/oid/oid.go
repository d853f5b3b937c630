// Package oid defines the physical object identifiers shared by the
// catalog and heap interfaces: OID, BTID, and HFID.
package oid

import "fmt"

// GlobalGroupID is the shard group id carried by every catalog-mirrored
// row. Catalog tables are never sharded.
const GlobalGroupID int32 = 0

// OID is a physical object identifier: (volume, page, slot) plus the
// shard group the containing record belongs to.
type OID struct {
	VolumeID int32
	PageID   int32
	SlotID   int16
	GroupID  int32
}

// Null is the canonical "no object" OID.
var Null = OID{VolumeID: -1, PageID: -1, SlotID: -1}

// IsNull reports whether oid is the null OID.
func (o OID) IsNull() bool {
	return o.VolumeID < 0 && o.PageID < 0 && o.SlotID < 0
}

func (o OID) String() string {
	return fmt.Sprintf("%d|%d|%d", o.VolumeID, o.PageID, o.SlotID)
}

// Equal reports whether two OIDs refer to the same slot, ignoring GroupID
// (GroupID is routing metadata, not part of object identity).
func (o OID) Equal(other OID) bool {
	return o.VolumeID == other.VolumeID && o.PageID == other.PageID && o.SlotID == other.SlotID
}

// BTID is a B+Tree identifier.
type BTID struct {
	VFID     int32
	RootPage int32
}

// IsNull reports whether the BTID is unset.
func (b BTID) IsNull() bool {
	return b.VFID == 0 && b.RootPage == 0
}

func (b BTID) String() string {
	return fmt.Sprintf("%d|%d", b.VFID, b.RootPage)
}

// HFID is a heap-file identifier.
type HFID struct {
	VFID     int32
	HpgID    int32
}

func (h HFID) String() string {
	return fmt.Sprintf("%d|%d", h.VFID, h.HpgID)
}
