package catalogmirror

import (
	"context"
	"sync"
	"testing"

	"github.com/rimdb/rim/pkg/catalogmirror/oidcache"
	"github.com/rimdb/rim/pkg/domain"
	"github.com/rimdb/rim/pkg/oid"
	"github.com/rimdb/rim/pkg/record"
	"github.com/rimdb/rim/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepr is a minimal record.Repr for mirror tests.
type fakeRepr struct {
	reprID   int32
	fixed    []record.AttrLayout
	variable []record.AttrLayout
}

func (r *fakeRepr) ReprID() int32                  { return r.reprID }
func (r *fakeRepr) NFixed() int                     { return len(r.fixed) }
func (r *fakeRepr) NVariable() int                  { return len(r.variable) }
func (r *fakeRepr) BoundBitFlag() bool              { return len(r.fixed) > 0 }
func (r *fakeRepr) FixedAttrs() []record.AttrLayout { return r.fixed }
func (r *fakeRepr) VarAttrs() []record.AttrLayout   { return r.variable }
func (r *fakeRepr) FixedLength() int {
	n := 0
	for _, a := range r.fixed {
		n += a.Domain.Type.DiskSize(a.Domain.Precision)
	}
	return n
}

// fakeHeap is an in-memory HeapStore: each Reserve hands out the next
// slot id in a fixed volume/page, good enough to exercise the mirror's
// two-phase insert and recursive cascades.
type fakeHeap struct {
	mu   sync.Mutex
	next int16
	rows map[oid.OID][]byte
}

func newFakeHeap() *fakeHeap { return &fakeHeap{rows: make(map[oid.OID][]byte)} }

func (h *fakeHeap) Reserve(ctx context.Context, hfid oid.HFID) (oid.OID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	return oid.OID{VolumeID: hfid.VFID, PageID: hfid.HpgID, SlotID: h.next}, nil
}

func (h *fakeHeap) Insert(ctx context.Context, target oid.OID, raw []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rows[target] = raw
	return nil
}

func (h *fakeHeap) Update(ctx context.Context, target oid.OID, oldRaw, newRaw []byte) error {
	return h.Insert(ctx, target, newRaw)
}

func (h *fakeHeap) Delete(ctx context.Context, target oid.OID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rows, target)
	return nil
}

func (h *fakeHeap) Fetch(ctx context.Context, target oid.OID) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rows[target], nil
}

type fakeIndex struct {
	mu      sync.Mutex
	entries map[oid.OID]bool
}

func newFakeIndex() *fakeIndex { return &fakeIndex{entries: make(map[oid.OID]bool)} }

func (x *fakeIndex) Insert(ctx context.Context, btid oid.BTID, key value.OrValue, target oid.OID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[target] = true
	return nil
}

func (x *fakeIndex) Delete(ctx context.Context, btid oid.BTID, key value.OrValue, target oid.OID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, target)
	return nil
}

func childSchema() *TableSchema {
	return &TableSchema{
		Name: "db_attribute",
		Repr: &fakeRepr{
			reprID: 1,
			fixed: []record.AttrLayout{
				{Domain: domain.ResolveDefault(domain.TypeInteger), IsFixed: true},
			},
		},
		HFID:            oid.HFID{VFID: 2, HpgID: 1},
		AttrDomains:     []*domain.Domain{domain.ResolveDefault(domain.TypeInteger)},
		BackPointerAttr: -1,
	}
}

func rootSchema(child *TableSchema) *TableSchema {
	return &TableSchema{
		Name: "db_class",
		Repr: &fakeRepr{
			reprID: 1,
			fixed: []record.AttrLayout{
				{Domain: domain.ResolveDefault(domain.TypeInteger), IsFixed: true},
			},
			variable: []record.AttrLayout{
				{Domain: domain.NewSet(domain.ResolveDefault(domain.TypeOID)), IsFixed: false},
			},
		},
		HFID:            oid.HFID{VFID: 1, HpgID: 1},
		AttrDomains:     []*domain.Domain{domain.ResolveDefault(domain.TypeInteger), domain.NewSet(domain.ResolveDefault(domain.TypeOID))},
		BackPointerAttr: -1,
		Children:        []ChildSchema{{AttrIndex: 1, Table: child}},
		Indexes:         []IndexSchema{{BTID: oid.BTID{VFID: 9, RootPage: 1}, KeyAttrs: []int{0}}},
	}
}

func newMirror() (*Mirror, *fakeHeap) {
	heap := newFakeHeap()
	return &Mirror{Heap: heap, Index: newFakeIndex(), Cache: oidcache.New()}, heap
}

func TestInsertClassCascadesIntoChildren(t *testing.T) {
	m, _ := newMirror()
	child := childSchema()
	schema := rootSchema(child)

	root := value.Subset(
		value.Scalar(int32(42)),
		value.Subset(
			value.Subset(value.Scalar(int32(1))),
			value.Subset(value.Scalar(int32(2))),
		),
	)

	rootOID, err := m.InsertClass(context.Background(), root, schema)
	require.NoError(t, err)
	assert.False(t, rootOID.IsNull())

	cached, ok := m.Cache.Get(rootOID)
	require.True(t, ok)
	assert.Equal(t, rootOID, cached)
}

func TestDeleteClassRemovesCascade(t *testing.T) {
	m, heap := newMirror()
	child := childSchema()
	schema := rootSchema(child)

	root := value.Subset(
		value.Scalar(int32(42)),
		value.Subset(value.Subset(value.Scalar(int32(1)))),
	)
	rootOID, err := m.InsertClass(context.Background(), root, schema)
	require.NoError(t, err)

	m.ClassNameIndex = func(ctx context.Context, name string) (oid.OID, error) {
		return rootOID, nil
	}
	m.Cache.Invalidate(rootOID)

	require.NoError(t, m.DeleteClass(context.Background(), "widget", rootOID, schema))
	_, ok := m.Cache.Get(rootOID)
	assert.False(t, ok)
	raw, _ := heap.Fetch(context.Background(), rootOID)
	assert.Nil(t, raw)
}

func TestUpdateClassMarksRowDirtyOnScalarChange(t *testing.T) {
	m, _ := newMirror()
	child := childSchema()
	schema := rootSchema(child)

	root := value.Subset(value.Scalar(int32(1)), value.Subset())
	rootOID, err := m.InsertClass(context.Background(), root, schema)
	require.NoError(t, err)

	updated := value.Subset(value.Scalar(int32(2)), value.Subset())
	err = m.UpdateClass(context.Background(), "widget", rootOID, updated, schema)
	require.NoError(t, err)

	raw, err := m.Heap.Fetch(context.Background(), rootOID)
	require.NoError(t, err)
	values, _, err := record.DecodeToValues(raw, schema.Repr)
	require.NoError(t, err)
	n, err := values[0].Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(2), n)
}
