package sqlstore

import (
	"context"
	"fmt"

	"github.com/rimdb/rim/pkg/caserr"
	"github.com/rimdb/rim/pkg/oid"
	"github.com/rimdb/rim/pkg/value"
)

// encodeKey flattens an OrValue index key into a comparable byte string.
// Composite keys are joined with a NUL separator; this only needs to be
// stable and comparable, not a wire format (spec leaves index internals
// out of scope).
func encodeKey(key value.OrValue) []byte {
	if !key.IsSubset() {
		if key.IsNull {
			return nil
		}
		return []byte(fmt.Sprintf("%v", key.Scalar))
	}
	out := make([]byte, 0, 32)
	for i, elem := range key.Elements {
		if i > 0 {
			out = append(out, 0)
		}
		out = append(out, encodeKey(elem)...)
	}
	return out
}

// Insert adds one index entry (catalogmirror.IndexStore).
func (s *Store) Insert(ctx context.Context, btid oid.BTID, key value.OrValue, target oid.OID) error {
	entry := IndexEntry{
		BTIDVFID:       btid.VFID,
		BTIDRootPage:   btid.RootPage,
		KeyBytes:       encodeKey(key),
		TargetVolumeID: target.VolumeID,
		TargetPageID:   target.PageID,
		TargetSlotID:   target.SlotID,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return caserr.New(caserr.CodeInternal, "insert index entry on btid %s: %v", btid, err)
	}
	return nil
}

// Delete removes the index entry pointing at target (catalogmirror.IndexStore).
func (s *Store) Delete(ctx context.Context, btid oid.BTID, key value.OrValue, target oid.OID) error {
	res := s.db.WithContext(ctx).
		Where("btid_vfid = ? AND btid_rootpage = ? AND key_bytes = ? AND target_volume_id = ? AND target_page_id = ? AND target_slot_id = ?",
			btid.VFID, btid.RootPage, encodeKey(key), target.VolumeID, target.PageID, target.SlotID).
		Delete(&IndexEntry{})
	if res.Error != nil {
		return caserr.New(caserr.CodeInternal, "delete index entry on btid %s: %v", btid, res.Error)
	}
	return nil
}
