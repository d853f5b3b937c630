package catalogmirror

import (
	"context"

	"github.com/rimdb/rim/pkg/oid"
	"github.com/rimdb/rim/pkg/value"
)

// HeapStore is the external heap-file interface the mirror drives (spec
// §6: storage is given "by contract" — this package owns none of the
// actual page/slot management). Reserve and Insert are split in two so
// the mirror can learn a row's address before encoding values that
// self-reference it (spec §4.4 step 1).
type HeapStore interface {
	// Reserve allocates a heap address in hfid without writing data yet.
	Reserve(ctx context.Context, hfid oid.HFID) (oid.OID, error)
	// Insert writes raw at the previously reserved target.
	Insert(ctx context.Context, target oid.OID, raw []byte) error
	// Update replaces the record at target; oldRaw is passed through so
	// implementations can maintain indexes keyed on the prior value.
	Update(ctx context.Context, target oid.OID, oldRaw, newRaw []byte) error
	// Delete removes the record at target.
	Delete(ctx context.Context, target oid.OID) error
	// Fetch reads the current record at target.
	Fetch(ctx context.Context, target oid.OID) ([]byte, error)
}

// IndexStore is the external B-tree interface the mirror drives to keep
// indexes in sync with catalog rows (spec §4.4 step 5: "update all
// relevant indexes").
type IndexStore interface {
	Insert(ctx context.Context, btid oid.BTID, key value.OrValue, target oid.OID) error
	Delete(ctx context.Context, btid oid.BTID, key value.OrValue, target oid.OID) error
}
