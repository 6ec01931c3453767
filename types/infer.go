package types

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var nullTokens = map[string]bool{
	"":     true,
	"null": true,
	"none": true,
	"n/a":  true,
	"-":    true,
}

// IsNullToken reports whether a raw cell value denotes null. The check is
// case-insensitive.
func IsNullToken(s string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(s))]
}

var datetimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseString interprets a raw string and returns the parsed value with
// its inferred type. Attempt order: null token, boolean, integer,
// float/decimal, date, time, datetime, JSON, string fallback. Decimal is
// chosen over float when the string has a decimal point and at least five
// significant digits, or carries a trailing "m" marker.
func ParseString(s string) (any, DataType) {
	trimmed := strings.TrimSpace(s)

	if IsNullToken(trimmed) {
		return nil, TypeNull
	}

	switch strings.ToLower(trimmed) {
	case "true":
		return true, TypeBoolean
	case "false":
		return false, TypeBoolean
	}

	if v, ok := parseInteger(trimmed); ok {
		return v, TypeInteger
	}

	if v, t, ok := parseFloatOrDecimal(trimmed); ok {
		return v, t
	}

	if v, ok := parseDate(trimmed); ok {
		return v, TypeDate
	}

	if v, ok := parseTimeOfDay(trimmed); ok {
		return v, TypeTime
	}

	if v, ok := parseDatetime(trimmed); ok {
		return v, TypeDatetime
	}

	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid([]byte(trimmed)) {
		return JSON(trimmed), TypeJSON
	}

	return s, TypeString
}

// InferTypeFromString returns only the inferred type of a raw string.
func InferTypeFromString(s string) DataType {
	_, t := ParseString(s)
	return t
}

func parseInteger(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	var v int64
	neg := false
	i := 0
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		i = 1
		if len(s) == 1 {
			return 0, false
		}
	}
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		next := v*10 + int64(c-'0')
		if next < v {
			return 0, false
		}
		v = next
	}
	if neg {
		v = -v
	}
	return v, true
}

func parseFloatOrDecimal(s string) (any, DataType, bool) {
	marker := false
	body := s
	if strings.HasSuffix(body, "m") || strings.HasSuffix(body, "M") {
		marker = true
		body = body[:len(body)-1]
	}

	dec, err := decimal.NewFromString(body)
	if err != nil {
		return nil, TypeNull, false
	}

	if marker {
		return dec, TypeDecimal, true
	}
	if strings.ContainsRune(body, '.') && significantDigits(body) >= 5 {
		return dec, TypeDecimal, true
	}

	f, _ := dec.Float64()
	return f, TypeFloat, true
}

// significantDigits counts digits excluding sign, separators, exponent,
// and leading zeros.
func significantDigits(s string) int {
	n := 0
	leading := true
	for _, c := range s {
		if c == 'e' || c == 'E' {
			break
		}
		if c < '0' || c > '9' {
			continue
		}
		if c == '0' && leading {
			continue
		}
		leading = false
		n++
	}
	return n
}

func parseDate(s string) (Date, bool) {
	for _, layout := range []string{"2006-01-02", "01/02/2006"} {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return Date(t), true
		}
	}
	return Date{}, false
}

func parseTimeOfDay(s string) (TimeOfDay, bool) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t), true
		}
	}
	return TimeOfDay{}, false
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CoerceString parses a raw string against a target column type. It
// returns the coerced value and whether the coercion succeeded. Null
// tokens coerce to nil for every target type.
func CoerceString(s string, target DataType) (any, bool) {
	if IsNullToken(s) {
		return nil, true
	}

	switch target {
	case TypeString:
		return s, true
	case TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return nil, false
	case TypeInteger:
		v, ok := parseInteger(strings.TrimSpace(s))
		return v, ok
	case TypeFloat:
		v, t, ok := parseFloatOrDecimal(strings.TrimSpace(s))
		if !ok {
			return nil, false
		}
		if t == TypeDecimal {
			f, _ := v.(decimal.Decimal).Float64()
			return f, true
		}
		return v, true
	case TypeDecimal:
		dec, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(s), "m"), "M"))
		if err != nil {
			return nil, false
		}
		return dec, true
	case TypeDate:
		v, ok := parseDate(strings.TrimSpace(s))
		return v, ok
	case TypeTime:
		v, ok := parseTimeOfDay(strings.TrimSpace(s))
		return v, ok
	case TypeDatetime:
		v, ok := parseDatetime(strings.TrimSpace(s))
		return v, ok
	case TypeJSON:
		trimmed := strings.TrimSpace(s)
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid([]byte(trimmed)) {
			return JSON(trimmed), true
		}
		return nil, false
	case TypeNull:
		return nil, true
	default:
		return s, true
	}
}
