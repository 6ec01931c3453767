package types

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Row maps column names to values. The canonical Go representation per
// type is: int64, float64, decimal.Decimal, string, JSON, bool, Date,
// TimeOfDay, time.Time, and nil for null. Column order is carried by the
// Schema, not by the map.
type Row map[string]any

// Date is a calendar date without a time component.
type Date time.Time

// String formats the date as ISO YYYY-MM-DD.
func (d Date) String() string {
	return time.Time(d).Format("2006-01-02")
}

// Datetime widens the date to a datetime at midnight UTC.
func (d Date) Datetime() time.Time {
	return time.Time(d)
}

// TimeOfDay is a wall-clock time without a date component.
type TimeOfDay time.Time

// String formats the time as HH:MM:SS.
func (t TimeOfDay) String() string {
	return time.Time(t).Format("15:04:05")
}

// Datetime widens the time onto the zero date.
func (t TimeOfDay) Datetime() time.Time {
	return time.Time(t)
}

// JSON holds a raw JSON document as text. Nested objects and arrays read
// from sources are carried in this form.
type JSON string

// InferType returns the precise DataType of a native value. Booleans are
// checked before integers so true/false never coerce to numbers.
func InferType(v any) DataType {
	switch v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case float32, float64:
		return TypeFloat
	case decimal.Decimal:
		return TypeDecimal
	case Date:
		return TypeDate
	case TimeOfDay:
		return TypeTime
	case time.Time:
		return TypeDatetime
	case JSON:
		return TypeJSON
	case string:
		return TypeString
	default:
		return TypeString
	}
}

// InferCommonType folds the types of the samples through the promotion
// lattice, ignoring nulls. An empty or all-null sample set infers null.
func InferCommonType(samples []any) DataType {
	common := TypeNull
	for _, v := range samples {
		if v == nil {
			continue
		}
		common = Promote(common, InferType(v))
	}
	return common
}

// Canonical normalizes a value to its canonical Go representation, so
// that int widths collapse to int64 and float32 to float64.
func Canonical(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}

// CanonicalString renders a value in its canonical string form, the form
// that InferTypeFromString maps back to the value's type.
func CanonicalString(v any) string {
	switch val := Canonical(v).(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case decimal.Decimal:
		return val.String()
	case Date:
		return val.String()
	case TimeOfDay:
		return val.String()
	case time.Time:
		return val.Format("2006-01-02T15:04:05Z07:00")
	case JSON:
		return string(val)
	case string:
		return val
	default:
		return ""
	}
}
