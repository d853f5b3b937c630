package sqlstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rimdb/rim/pkg/caserr"
	"github.com/rimdb/rim/pkg/oid"
)

// Reserve allocates the next free slot in hfid, growing into a new page
// every slotsPerPage slots (catalogmirror.HeapStore).
func (s *Store) Reserve(ctx context.Context, hfid oid.HFID) (oid.OID, error) {
	var target oid.OID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur HeapFileCursor
		err := tx.Where("hfile_vfid = ?", hfid.VFID).First(&cur).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			cur = HeapFileCursor{HFileVFID: hfid.VFID, HFileHpgID: hfid.HpgID, NextPage: 1, NextSlot: 0}
		case err != nil:
			return err
		}

		target = oid.OID{VolumeID: hfid.VFID, PageID: cur.NextPage, SlotID: cur.SlotID(), GroupID: oid.GlobalGroupID}

		cur.NextSlot++
		if int(cur.NextSlot) >= slotsPerPage {
			cur.NextSlot = 0
			cur.NextPage++
		}
		return tx.Save(&cur).Error
	})
	if err != nil {
		return oid.Null, caserr.New(caserr.CodeInternal, "reserve heap slot: %v", err)
	}
	return target, nil
}

// SlotID exposes the cursor's pre-increment slot as an oid.OID.SlotID
// value (helper kept small since it's only used by Reserve above).
func (c HeapFileCursor) SlotID() int16 { return c.NextSlot }

// Insert writes raw at target (catalogmirror.HeapStore).
func (s *Store) Insert(ctx context.Context, target oid.OID, raw []byte) error {
	rec := HeapRecord{
		VolumeID: target.VolumeID,
		PageID:   target.PageID,
		SlotID:   target.SlotID,
		Raw:      raw,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return caserr.New(caserr.CodeInternal, "insert heap record %s: %v", target, err)
	}
	return nil
}

// Update replaces the record at target (catalogmirror.HeapStore).
// oldRaw is accepted to satisfy the interface but unused: this adapter
// has no secondary structures keyed on the prior raw bytes.
func (s *Store) Update(ctx context.Context, target oid.OID, oldRaw, newRaw []byte) error {
	res := s.db.WithContext(ctx).Model(&HeapRecord{}).
		Where("volume_id = ? AND page_id = ? AND slot_id = ?", target.VolumeID, target.PageID, target.SlotID).
		Update("raw", newRaw)
	if res.Error != nil {
		return caserr.New(caserr.CodeInternal, "update heap record %s: %v", target, res.Error)
	}
	if res.RowsAffected == 0 {
		return caserr.New(caserr.CodeInternal, "heap record %s not found", target)
	}
	return nil
}

// Delete removes the record at target (catalogmirror.HeapStore).
func (s *Store) Delete(ctx context.Context, target oid.OID) error {
	res := s.db.WithContext(ctx).
		Where("volume_id = ? AND page_id = ? AND slot_id = ?", target.VolumeID, target.PageID, target.SlotID).
		Delete(&HeapRecord{})
	if res.Error != nil {
		return caserr.New(caserr.CodeInternal, "delete heap record %s: %v", target, res.Error)
	}
	return nil
}

// Fetch reads the current record at target (catalogmirror.HeapStore).
func (s *Store) Fetch(ctx context.Context, target oid.OID) ([]byte, error) {
	var rec HeapRecord
	err := s.db.WithContext(ctx).
		Where("volume_id = ? AND page_id = ? AND slot_id = ?", target.VolumeID, target.PageID, target.SlotID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, caserr.New(caserr.CodeInternal, "heap record %s not found", target)
	}
	if err != nil {
		return nil, caserr.New(caserr.CodeInternal, "fetch heap record %s: %v", target, err)
	}
	return rec.Raw, nil
}
