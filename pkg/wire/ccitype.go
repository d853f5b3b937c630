package wire

// CCIType tags a value's wire representation in a typed argument or
// column-info payload (spec §6 "CCI_TYPE_* typed payloads").
type CCIType byte

const (
	CCITypeNull CCIType = iota
	CCITypeChar
	CCITypeVarchar
	CCITypeBigint
	CCITypeInteger
	CCITypeDouble
	CCITypeDate
	CCITypeTime
	CCITypeTimestamp
	CCITypeSet
	CCITypeOID
)
