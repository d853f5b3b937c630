package domain

import (
	"testing"

	"github.com/rimdb/rim/pkg/caserr"
	"github.com/rimdb/rim/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternReturnsCanonicalPointer(t *testing.T) {
	d1 := New(TypeVarchar, 32, 0, "utf8_bin")
	d2 := New(TypeVarchar, 32, 0, "utf8_bin")
	assert.Same(t, d1, d2)

	d3 := New(TypeVarchar, 64, 0, "utf8_bin")
	assert.NotSame(t, d1, d3)
}

func TestInternSetDomainInternsElement(t *testing.T) {
	elem := &Domain{Type: TypeInteger}
	set := Intern(&Domain{Type: TypeSet, SetDomain: elem})

	assert.Same(t, ResolveDefault(TypeInteger), set.SetDomain)
}

func TestResolveDefaultIsPrecisionless(t *testing.T) {
	d := ResolveDefault(TypeInteger)
	assert.Equal(t, int32(0), d.Precision)
	assert.Equal(t, TypeInteger, d.Type)
}

func TestCoerceToIdxKeyCharRejectsNonChar(t *testing.T) {
	d := New(TypeVarchar, 10, 0, "utf8_bin")
	_, err := CoerceToIdxKey(value.Scalar(int32(5)), d)
	require.Error(t, err)
	var ce *caserr.CasError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int32(caserr.CodeCannotCoerce), ce.Code)
}

func TestCoerceToIdxKeyCollationMismatch(t *testing.T) {
	d := New(TypeVarchar, 10, 0, "utf8_bin")
	src := value.Scalar("hello")
	src.Collation = "euckr_bin"

	_, err := CoerceToIdxKey(src, d)
	require.Error(t, err)
	var ce *caserr.CasError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int32(caserr.CodeIncompatColl), ce.Code)
}

func TestCoerceToIdxKeyNumericFromInt(t *testing.T) {
	d := New(TypeNumeric, 10, 2, "")
	out, err := CoerceToIdxKey(value.Scalar(int32(42)), d)
	require.NoError(t, err)
	s, err := out.String()
	require.NoError(t, err)
	assert.Equal(t, "42", s)
}

func TestCoerceToIdxKeyNullPassesThrough(t *testing.T) {
	d := New(TypeVarchar, 10, 0, "utf8_bin")
	out, err := CoerceToIdxKey(value.Null(), d)
	require.NoError(t, err)
	assert.True(t, out.IsNull)
}

func TestDiskSize(t *testing.T) {
	assert.Equal(t, 4, TypeInteger.DiskSize(0))
	assert.Equal(t, 8, TypeBigint.DiskSize(0))
	assert.Equal(t, -1, TypeVarchar.DiskSize(0))
}
