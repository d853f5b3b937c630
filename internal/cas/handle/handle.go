// Package handle implements the CAS statement and cursor cache (spec
// §4.8): a dense, chunk-grown table mapping server handle ids to
// prepared-statement/cursor state, including holdable-cursor survival
// across commit.
package handle

import (
	"github.com/rimdb/rim/pkg/caserr"
)

// chunkSize is the growth increment for the handle table (spec §4.8
// "grown in 256-slot chunks").
const chunkSize = 256

// ColumnInfo describes one column of a prepared statement's result set,
// surfaced back to the client in the prepare reply.
type ColumnInfo struct {
	Name     string
	TypeCode int32
	Nullable bool
}

// QueryResult holds the live cursor state for a result-producing
// statement. It is freed on cursor close (spec §4.8 "q_result.result is
// freed on cursor close").
type QueryResult struct {
	Columns  []ColumnInfo
	Rows     [][]any
	Position int
	EOF      bool
	// Scrollable marks a cursor as re-positionable; non-scrollable
	// cursors auto-commit at end-of-cursor when the connection is in
	// autocommit mode (spec §4.7 fetch).
	Scrollable bool
}

// StmtType enumerates the kind of a prepared statement.
type StmtType int32

const (
	StmtTypeUnknown StmtType = iota
	StmtTypeSelect
	StmtTypeInsert
	StmtTypeUpdate
	StmtTypeDelete
	StmtTypeDDL
	StmtTypeCall
)

// Handle is the server-side state behind a single prepared statement or
// cursor, addressed by the client via its id.
type Handle struct {
	ID   int32
	inUse bool

	StmtType   StmtType
	NumMarkers int
	Columns    []ColumnInfo
	ShardInfo  string

	// SQL is the text passed to Engine.Prepare, retained so a later
	// Engine.Execute on this handle can run it without the dispatcher
	// needing to thread statement text through separately.
	SQL string

	Result *QueryResult

	// IsHoldable marks a cursor that survives commit (spec §4.8,
	// CCI_PREPARE_HOLDABLE in spec §4.7).
	IsHoldable bool
	// IsFromCurrentTx tracks whether the handle was created in the
	// still-open transaction; cleared when a holdable handle survives a
	// commit (spec §4.8 free_all semantics).
	IsFromCurrentTx bool
}

// Table is the handle cache for one CAS connection. It is not safe for
// concurrent use: the CAS dispatch loop serialises all access (spec §5
// "CAS is a single-threaded cooperative loop").
type Table struct {
	slots    []Handle
	free     []int32
	maxSlots int
	holdable int
}

// NewTable builds an empty handle table. maxSlots bounds the table size;
// New fails with MaxPreparedStmts once every slot up to maxSlots is in
// use. maxSlots <= 0 means unbounded.
func NewTable(maxSlots int) *Table {
	return &Table{maxSlots: maxSlots}
}

// grow appends one more chunk of free slots.
func (t *Table) grow() {
	base := int32(len(t.slots))
	t.slots = append(t.slots, make([]Handle, chunkSize)...)
	for i := int32(len(t.slots)) - 1; i >= base; i-- {
		t.slots[i].ID = i
		t.free = append(t.free, i)
	}
}

// New allocates a handle, growing the table in 256-slot chunks as
// needed, and returns it.
func (t *Table) New() (*Handle, error) {
	if t.maxSlots > 0 && len(t.slots)-len(t.free) >= t.maxSlots {
		return nil, caserr.New(caserr.CodeMaxPreparedStmts, "maximum prepared statements (%d) exceeded", t.maxSlots)
	}
	if len(t.free) == 0 {
		t.grow()
	}
	idx := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	h := &t.slots[idx]
	*h = Handle{ID: idx, inUse: true, IsFromCurrentTx: true}
	return h, nil
}

// Find returns the handle for id, or an error if it is unused or out of
// range (spec §4.8 "find is O(1)").
func (t *Table) Find(id int32) (*Handle, error) {
	if id < 0 || int(id) >= len(t.slots) || !t.slots[id].inUse {
		return nil, caserr.New(caserr.CodeSrvHandle, "invalid statement handle %d", id)
	}
	return &t.slots[id], nil
}

// Free releases a single handle. If it was holdable, the holdable
// counter is decremented (spec §4.8 "the holdable counter is
// decremented if the handle was holdable").
func (t *Table) Free(id int32) error {
	h, err := t.Find(id)
	if err != nil {
		return err
	}
	if h.IsHoldable {
		t.holdable--
	}
	h.inUse = false
	h.Result = nil
	t.free = append(t.free, id)
	return nil
}

// FreeAll walks the table at transaction end. If freeHoldable is false,
// holdable handles survive and have their IsFromCurrentTx flag cleared;
// any non-holdable handle is freed. If freeHoldable is true every handle
// is freed and the holdable counter is reset to zero (spec §4.8
// free_all(free_holdable)).
func (t *Table) FreeAll(freeHoldable bool) {
	for i := range t.slots {
		h := &t.slots[i]
		if !h.inUse {
			continue
		}
		if h.IsHoldable && !freeHoldable {
			h.IsFromCurrentTx = false
			continue
		}
		if h.IsHoldable {
			t.holdable--
		}
		h.inUse = false
		h.Result = nil
		t.free = append(t.free, h.ID)
	}
}

// HoldableCount returns the number of currently holdable handles.
func (t *Table) HoldableCount() int {
	return t.holdable
}

// MarkHoldable registers h as holdable, bumping the table's holdable
// counter.
func (t *Table) MarkHoldable(h *Handle) {
	if h.IsHoldable {
		return
	}
	h.IsHoldable = true
	t.holdable++
}
