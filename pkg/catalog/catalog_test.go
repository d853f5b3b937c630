package catalog

import (
	"testing"

	"github.com/rimdb/rim/pkg/domain"
	"github.com/rimdb/rim/pkg/oid"
	"github.com/rimdb/rim/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intDomainTag() value.OrValue {
	return value.Subset(
		value.Scalar(int32(domain.TypeInteger)),
		value.Scalar(int32(0)),
		value.Scalar(int32(0)),
		value.Scalar(""),
	)
}

func attrRow(id, defOrder int32, isFixed bool, loc int32, name string) value.OrValue {
	return value.Subset(
		value.Scalar(id),
		value.Scalar(int32(domain.TypeInteger)),
		value.Scalar(defOrder),
		value.Scalar(int32(0)),
		value.Scalar(boolToInt32(isFixed)),
		value.Scalar(loc),
		value.Scalar(int32(0)),
		value.Null(),
		value.Null(),
		intDomainTag(),
		value.Scalar(name),
	)
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func classRow(repID int32, nFixed int32, fixedLength int32, attrs, constraints value.OrValue) value.OrValue {
	return value.Subset(
		value.Scalar(repID),
		value.Scalar(fixedLength),
		value.Scalar(nFixed),
		value.Scalar(int32(0)),
		attrs,
		constraints,
		value.Subset(),
	)
}

func TestGetClassReprCurrent(t *testing.T) {
	attrs := value.Subset(
		attrRow(1, 0, true, 0, "a"),
		attrRow(2, 1, true, 4, "b"),
	)
	row := classRow(0, 2, 8, attrs, value.Subset())

	repr, err := GetClassRepr(row, NullReprID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), repr.ID)
	assert.Len(t, repr.Fixed, 2)
	assert.Equal(t, "a", repr.Fixed[0].Name)
	assert.Equal(t, "b", repr.Fixed[1].Name)
}

func TestGetClassReprUnknownHistoryRepr(t *testing.T) {
	row := classRow(0, 0, 0, value.Subset(), value.Subset())
	_, err := GetClassRepr(row, 7)
	require.Error(t, err)
}

func TestGetConstraintsAttachesBTIDs(t *testing.T) {
	attrs := value.Subset(attrRow(1, 0, true, 0, "a"))
	constraintRow := value.Subset(
		value.Scalar(int32(100)),
		value.Scalar(int32(200)),
		value.Subset(value.Subset(value.Scalar(int32(1)), value.Scalar(int32(0)))),
		value.Scalar(int32(0)),
	)
	row := classRow(0, 1, 4, attrs, value.Subset(constraintRow))

	repr, err := GetClassRepr(row, NullReprID)
	require.NoError(t, err)
	require.Len(t, repr.Constraints, 1)
	assert.Equal(t, oid.BTID{VFID: 100, RootPage: 200}, repr.Constraints[0].BTID)

	a := repr.attrByID(1)
	require.NotNil(t, a)
	require.Len(t, a.BTIDs, 1)
	assert.Equal(t, int32(100), a.BTIDs[0].VFID)
}

func TestGetConstraintsSkipsDroppedAttribute(t *testing.T) {
	attrs := value.Subset(attrRow(1, 0, true, 0, "a"))
	constraintRow := value.Subset(
		value.Scalar(int32(100)),
		value.Scalar(int32(200)),
		value.Subset(value.Subset(value.Scalar(int32(99)), value.Scalar(int32(0)))),
		value.Scalar(int32(0)),
	)
	row := classRow(0, 1, 4, attrs, value.Subset(constraintRow))

	repr, err := GetClassRepr(row, NullReprID)
	require.NoError(t, err)
	// Constraint referencing a dropped attribute id still decodes; it
	// simply never attaches to any attribute.
	assert.Len(t, repr.Constraints, 1)
	assert.Nil(t, repr.attrByID(1).BTIDs)
}

func TestBtidRingSpillsToOverflow(t *testing.T) {
	r := &btidRing{}
	for i := 0; i < btidRingSize+3; i++ {
		r.append(oid.BTID{VFID: int32(i)})
	}
	s := r.slice()
	require.Len(t, s, btidRingSize+3)
	assert.Equal(t, int32(0), s[0].VFID)
	assert.Equal(t, int32(btidRingSize+2), s[btidRingSize+2].VFID)
}
