package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrowsInChunksAndFindsHandle(t *testing.T) {
	tbl := NewTable(0)
	h, err := tbl.New()
	require.NoError(t, err)
	assert.Equal(t, int32(0), h.ID)
	assert.True(t, h.IsFromCurrentTx)

	got, err := tbl.Find(h.ID)
	require.NoError(t, err)
	assert.Same(t, h, got)
}

func TestFindRejectsUnusedOrOutOfRangeHandle(t *testing.T) {
	tbl := NewTable(0)
	_, err := tbl.Find(0)
	assert.Error(t, err)

	_, err = tbl.Find(9999)
	assert.Error(t, err)
}

func TestNewFailsAboveMaxSlots(t *testing.T) {
	tbl := NewTable(2)
	_, err := tbl.New()
	require.NoError(t, err)
	_, err = tbl.New()
	require.NoError(t, err)

	_, err = tbl.New()
	require.Error(t, err)
}

func TestFreeReleasesSlotAndDecrementsHoldable(t *testing.T) {
	tbl := NewTable(0)
	h, err := tbl.New()
	require.NoError(t, err)
	tbl.MarkHoldable(h)
	assert.Equal(t, 1, tbl.HoldableCount())

	require.NoError(t, tbl.Free(h.ID))
	assert.Equal(t, 0, tbl.HoldableCount())

	_, err = tbl.Find(h.ID)
	assert.Error(t, err)
}

func TestFreeAllPreservesHoldableUnlessForced(t *testing.T) {
	tbl := NewTable(0)
	held, err := tbl.New()
	require.NoError(t, err)
	tbl.MarkHoldable(held)

	plain, err := tbl.New()
	require.NoError(t, err)

	tbl.FreeAll(false)

	got, err := tbl.Find(held.ID)
	require.NoError(t, err)
	assert.False(t, got.IsFromCurrentTx)

	_, err = tbl.Find(plain.ID)
	assert.Error(t, err)

	tbl.FreeAll(true)
	_, err = tbl.Find(held.ID)
	assert.Error(t, err)
	assert.Equal(t, 0, tbl.HoldableCount())
}

func TestReusedSlotAfterFreeGetsFreshState(t *testing.T) {
	tbl := NewTable(0)
	h1, err := tbl.New()
	require.NoError(t, err)
	tbl.MarkHoldable(h1)
	require.NoError(t, tbl.Free(h1.ID))

	h2, err := tbl.New()
	require.NoError(t, err)
	assert.Equal(t, h1.ID, h2.ID)
	assert.False(t, h2.IsHoldable)
}
