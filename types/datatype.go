// Package types implements the engine's value and schema model: the ten
// SQL data types, inference from native values and strings, the type
// promotion lattice, comparability rules, and schema merging.
package types

// DataType is a SQL data type supported by the engine.
type DataType int

const (
	TypeNull DataType = iota
	TypeInteger
	TypeFloat
	TypeDecimal
	TypeString
	TypeJSON
	TypeBoolean
	TypeDate
	TypeTime
	TypeDatetime
)

// String returns the SQL-ish name of the type.
func (t DataType) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeDecimal:
		return "DECIMAL"
	case TypeString:
		return "STRING"
	case TypeJSON:
		return "JSON"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeTime:
		return "TIME"
	case TypeDatetime:
		return "DATETIME"
	default:
		return "UNKNOWN"
	}
}

// IsNumeric reports whether the type participates in numeric promotion.
func (t DataType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat || t == TypeDecimal
}

// IsTemporal reports whether the type is a date, time, or datetime.
func (t DataType) IsTemporal() bool {
	return t == TypeDate || t == TypeTime || t == TypeDatetime
}

// Promote resolves the common type for two types per the promotion
// lattice: integer < float < decimal, date/time < datetime, null unifies
// with anything, json only unifies with json, and any other mix falls
// back to string.
func Promote(a, b DataType) DataType {
	if a == TypeNull {
		return b
	}
	if b == TypeNull {
		return a
	}
	if a == b {
		return a
	}

	if a.IsNumeric() && b.IsNumeric() {
		if a == TypeDecimal || b == TypeDecimal {
			return TypeDecimal
		}
		return TypeFloat
	}

	if a.IsTemporal() && b.IsTemporal() {
		// Any two distinct temporal types join at datetime.
		return TypeDatetime
	}

	return TypeString
}

// IsComparable reports whether values of the two types may appear on the
// two sides of a comparison. Identical types compare, numeric types
// compare through promotion, a date or a time compares with a datetime
// through promotion to datetime (a date and a time do not compare), and
// null compares with anything (yielding null).
func IsComparable(a, b DataType) bool {
	if a == TypeNull || b == TypeNull {
		return true
	}
	if a == b {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	if a.IsTemporal() && b.IsTemporal() {
		return a == TypeDatetime || b == TypeDatetime
	}
	return false
}
