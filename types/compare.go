package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CompareOp is a comparison operator usable in simple predicates.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// String returns the SQL spelling of the operator.
func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// Negate returns the operator matching the complement of op.
func (op CompareOp) Negate() CompareOp {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGe
	case OpLe:
		return OpGt
	case OpGt:
		return OpLe
	case OpGe:
		return OpLt
	default:
		return op
	}
}

// ErrNotComparable reports a comparison between incompatible types.
type ErrNotComparable struct {
	Left  DataType
	Right DataType
}

func (e *ErrNotComparable) Error() string {
	return fmt.Sprintf("cannot compare %s with %s", e.Left, e.Right)
}

// Order compares two non-null values and returns -1, 0, or +1. Values
// must be comparable per IsComparable; numeric and temporal operands are
// promoted first.
func Order(a, b any) (int, error) {
	a, b = Canonical(a), Canonical(b)
	ta, tb := InferType(a), InferType(b)

	if ta.IsNumeric() && tb.IsNumeric() {
		return orderNumeric(a, b), nil
	}

	if ta.IsTemporal() && tb.IsTemporal() {
		if !IsComparable(ta, tb) {
			return 0, &ErrNotComparable{Left: ta, Right: tb}
		}
		return orderTemporal(a, b), nil
	}

	if ta != tb {
		return 0, &ErrNotComparable{Left: ta, Right: tb}
	}

	switch va := a.(type) {
	case string:
		return strings.Compare(va, b.(string)), nil
	case JSON:
		return strings.Compare(string(va), string(b.(JSON))), nil
	case bool:
		vb := b.(bool)
		switch {
		case va == vb:
			return 0, nil
		case !va:
			return -1, nil
		default:
			return 1, nil
		}
	default:
		return 0, &ErrNotComparable{Left: ta, Right: tb}
	}
}

func orderNumeric(a, b any) int {
	if da, ok := a.(decimal.Decimal); ok {
		return da.Cmp(toDecimal(b))
	}
	if _, ok := b.(decimal.Decimal); ok {
		return toDecimal(a).Cmp(toDecimal(b))
	}

	fa, fb := toFloat(a), toFloat(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	default:
		return 0
	}
}

func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case int64:
		return decimal.NewFromInt(val)
	case float64:
		return decimal.NewFromFloat(val)
	default:
		return decimal.Zero
	}
}

func toFloat(v any) float64 {
	switch val := v.(type) {
	case int64:
		return float64(val)
	case float64:
		return val
	default:
		return 0
	}
}

func toDatetime(v any) time.Time {
	switch val := v.(type) {
	case Date:
		return val.Datetime()
	case TimeOfDay:
		return val.Datetime()
	case time.Time:
		return val
	default:
		return time.Time{}
	}
}

func orderTemporal(a, b any) int {
	return toDatetime(a).Compare(toDatetime(b))
}

// Apply evaluates `left op right` with SQL null semantics: if either
// operand is null the result is null, which callers treat as false in
// filter contexts. The bool result is only meaningful when null is false.
func Apply(left any, op CompareOp, right any) (result, null bool, err error) {
	if left == nil || right == nil {
		return false, true, nil
	}

	cmp, err := Order(left, right)
	if err != nil {
		return false, false, err
	}

	switch op {
	case OpEq:
		return cmp == 0, false, nil
	case OpNe:
		return cmp != 0, false, nil
	case OpLt:
		return cmp < 0, false, nil
	case OpLe:
		return cmp <= 0, false, nil
	case OpGt:
		return cmp > 0, false, nil
	case OpGe:
		return cmp >= 0, false, nil
	default:
		return false, false, fmt.Errorf("unsupported comparison operator %d", op)
	}
}
