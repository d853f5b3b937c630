package domain

import (
	"fmt"
	"strconv"

	"github.com/rimdb/rim/pkg/caserr"
	"github.com/rimdb/rim/pkg/value"
)

// CoerceToIdxKey converts v to the form accepted by the index layer for
// domain d (spec §4.2): NUMERIC is reparsed from its textual/packed form,
// date/time/numeric values go through a coerce-strict conversion, and char
// typed attributes unify on a single collation.
//
// Char-typed attributes reject non-char values outright. Numeric coercion
// is only allowed from another numeric type or from a date/time type
// (matching the original's coerce-strict semantics, which treats a
// date/time value as its underlying numeric encoding). Any other
// combination fails with CannotCoerce.
func CoerceToIdxKey(v value.OrValue, d *Domain) (value.OrValue, error) {
	if v.IsNull {
		return v, nil
	}

	switch {
	case d.Type.IsCharType():
		return coerceToChar(v, d)
	case d.Type == TypeNumeric:
		return coerceToNumeric(v, d)
	case d.Type.IsNumericType() || d.Type.IsDateTimeType():
		return coerceToScalarNumeric(v, d)
	default:
		return v, nil
	}
}

func coerceToChar(v value.OrValue, d *Domain) (value.OrValue, error) {
	s, ok := v.Scalar.(string)
	if !ok {
		return value.OrValue{}, caserr.CannotCoerce(fmt.Sprintf("%T", v.Scalar), d.Type.String())
	}
	// Collation unification: a source string tagged with a different,
	// non-empty collation than the target domain cannot be silently
	// reconciled (spec §4.2: "On collation mismatch, fails with
	// IncompatibleCollations").
	if v.Collation != "" && d.Collation != "" && v.Collation != d.Collation {
		return value.OrValue{}, caserr.IncompatibleCollations(v.Collation, d.Collation)
	}
	out := value.Scalar(s)
	out.Collation = d.Collation
	return out, nil
}

func coerceToNumeric(v value.OrValue, d *Domain) (value.OrValue, error) {
	switch x := v.Scalar.(type) {
	case string:
		if _, err := strconv.ParseFloat(x, 64); err != nil {
			return value.OrValue{}, caserr.CannotCoerce("string", "NUMERIC")
		}
		return value.Scalar(x), nil
	case int32:
		return value.Scalar(strconv.FormatInt(int64(x), 10)), nil
	case int64:
		return value.Scalar(strconv.FormatInt(x, 10)), nil
	case float64:
		return value.Scalar(strconv.FormatFloat(x, 'f', int(d.Scale), 64)), nil
	default:
		return value.OrValue{}, caserr.CannotCoerce(fmt.Sprintf("%T", v.Scalar), "NUMERIC")
	}
}

// coerceToScalarNumeric implements the coerce-strict rule: numeric <->
// numeric always succeeds; numeric <-> date/time succeeds because the
// original represents date/time values as an integer encoding under the
// hood; anything else is rejected.
func coerceToScalarNumeric(v value.OrValue, d *Domain) (value.OrValue, error) {
	switch x := v.Scalar.(type) {
	case int32, int64, float64:
		return v, nil
	case string:
		if d.Type.IsDateTimeType() {
			// Date/time textual forms pass through unparsed; the storage
			// layer (out of scope, spec §1) owns the actual calendar math.
			return v, nil
		}
		if _, err := strconv.ParseFloat(x, 64); err != nil {
			return value.OrValue{}, caserr.CannotCoerce("string", d.Type.String())
		}
		return v, nil
	default:
		return value.OrValue{}, caserr.CannotCoerce(fmt.Sprintf("%T", x), d.Type.String())
	}
}
