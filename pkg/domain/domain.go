// Package domain implements the Domain Resolver (spec §4.2): materialising
// type domains, interning them to canonical instances, and coercing values
// into the form the index layer accepts.
package domain

import (
	"fmt"
	"sync"

	"github.com/rimdb/rim/pkg/oid"
)

// Type is a domain's base type tag (spec §3, "Domain").
type Type int

const (
	TypeNull Type = iota
	TypeInteger
	TypeBigint
	TypeDouble
	TypeNumeric
	TypeVarchar
	TypeDate
	TypeTime
	TypeDatetime
	TypeOID
	TypeSet
	// TypeVariable is the placeholder domain recognised during decode of a
	// self-referential class default (spec §3 "Self-reference handling";
	// §4.4 step 3).
	TypeVariable
)

func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeBigint:
		return "BIGINT"
	case TypeDouble:
		return "DOUBLE"
	case TypeNumeric:
		return "NUMERIC"
	case TypeVarchar:
		return "VARCHAR"
	case TypeDate:
		return "DATE"
	case TypeTime:
		return "TIME"
	case TypeDatetime:
		return "DATETIME"
	case TypeOID:
		return "OID"
	case TypeSet:
		return "SET"
	case TypeVariable:
		return "VARIABLE"
	default:
		return "NULL"
	}
}

// IsCharType reports whether t is a collated character type.
func (t Type) IsCharType() bool { return t == TypeVarchar }

// IsNumericType reports whether t is usable as the source of a numeric
// coerce-strict conversion (spec §4.2: "numeric coerce is allowed from
// numeric or date/time types").
func (t Type) IsNumericType() bool {
	switch t {
	case TypeInteger, TypeBigint, TypeDouble, TypeNumeric:
		return true
	default:
		return false
	}
}

// IsDateTimeType reports whether t is a date/time type.
func (t Type) IsDateTimeType() bool {
	switch t {
	case TypeDate, TypeTime, TypeDatetime:
		return true
	default:
		return false
	}
}

// DiskSize returns the fixed on-disk size in bytes of a value of this
// domain, or -1 if the type is variable-length (spec §3, fixed region).
func (t Type) DiskSize(precision int32) int {
	switch t {
	case TypeInteger:
		return 4
	case TypeBigint:
		return 8
	case TypeDouble:
		return 8
	case TypeOID:
		return 10 // volume(4) + page(4) + slot(2); the group id is not stored
	case TypeDate:
		return 4
	case TypeTime:
		return 4
	case TypeDatetime:
		return 8
	case TypeNumeric:
		// Packed-decimal numeric: one byte per two digits, rounded up, plus sign.
		return (int(precision) + 2) / 2
	default:
		return -1
	}
}

// Domain is the (type, precision, scale, collation, class_oid?, setdomain?)
// tuple from spec §3. Domains are interned: build one with New, then call
// Intern to obtain the canonical cached pointer.
type Domain struct {
	Type       Type
	Precision  int32
	Scale      int32
	Collation  string
	ClassOID   *oid.OID
	SetDomain  *Domain
}

// key returns the canonical string this domain interns under.
func (d *Domain) key() string {
	cls := ""
	if d.ClassOID != nil {
		cls = d.ClassOID.String()
	}
	set := ""
	if d.SetDomain != nil {
		set = d.SetDomain.key()
	}
	return fmt.Sprintf("%d|%d|%d|%s|%s|%s", d.Type, d.Precision, d.Scale, d.Collation, cls, set)
}

var cache sync.Map // string -> *Domain

// Intern returns the canonical pointer for a domain tree structurally
// equal to d. The first caller to build a given shape wins; every
// subsequent caller gets back the same pointer (spec §4.2: "the resolver
// interns the constructed domain tree").
func Intern(d *Domain) *Domain {
	if d == nil {
		return nil
	}
	if d.SetDomain != nil {
		d.SetDomain = Intern(d.SetDomain)
	}
	k := d.key()
	if existing, ok := cache.Load(k); ok {
		return existing.(*Domain)
	}
	actual, _ := cache.LoadOrStore(k, d)
	return actual.(*Domain)
}

// ResolveDefault yields the canonical "precision-less" domain for t (spec
// §4.2, resolve_default).
func ResolveDefault(t Type) *Domain {
	return Intern(&Domain{Type: t})
}

// New builds a domain and interns it in one step.
func New(t Type, precision, scale int32, collation string) *Domain {
	return Intern(&Domain{Type: t, Precision: precision, Scale: scale, Collation: collation})
}

// NewSet builds a SET domain over element and interns it.
func NewSet(element *Domain) *Domain {
	return Intern(&Domain{Type: TypeSet, SetDomain: element})
}

// Placeholder returns the "variable" placeholder domain used for a
// not-yet-resolved self-referential class default (spec §3, §4.4 step 3).
func Placeholder() *Domain {
	return ResolveDefault(TypeVariable)
}

// CacheSize reports the number of distinct interned domains, for metrics
// and tests.
func CacheSize() int {
	n := 0
	cache.Range(func(_, _ any) bool { n++; return true })
	return n
}
