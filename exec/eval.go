package exec

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vegasq/tablecat/query"
	"github.com/vegasq/tablecat/types"
)

// evalBool evaluates a boolean expression with three-valued logic. The
// null result propagates so NOT and OR combine correctly; filter
// contexts treat null as false.
func evalBool(expr query.Expr, row types.Row) (match, null bool, err error) {
	switch v := expr.(type) {
	case *query.BinaryExpr:
		lm, ln, err := evalBool(v.Left, row)
		if err != nil {
			return false, false, err
		}
		rm, rn, err := evalBool(v.Right, row)
		if err != nil {
			return false, false, err
		}
		if v.Op == query.LogicalAnd {
			if (!lm && !ln) || (!rm && !rn) {
				return false, false, nil
			}
			if ln || rn {
				return false, true, nil
			}
			return true, false, nil
		}
		if (lm && !ln) || (rm && !rn) {
			return true, false, nil
		}
		if ln || rn {
			return false, true, nil
		}
		return false, false, nil

	case *query.NotExpr:
		m, n, err := evalBool(v.Expr, row)
		if err != nil {
			return false, false, err
		}
		if n {
			return false, true, nil
		}
		return !m, false, nil

	case *query.ComparisonExpr:
		left := row[v.Column]
		result, isNull, err := types.Apply(left, v.Op, v.Value)
		if err != nil {
			return false, false, wrapCompareErr(v.Op.String(), err)
		}
		return result, isNull, nil

	case *query.ColumnComparisonExpr:
		result, isNull, err := types.Apply(row[v.Left], v.Op, row[v.Right])
		if err != nil {
			return false, false, wrapCompareErr(v.Op.String(), err)
		}
		return result, isNull, nil

	case *query.IsNullExpr:
		value, exists := row[v.Column]
		isNull := !exists || value == nil
		if v.Negate {
			return !isNull, false, nil
		}
		return isNull, false, nil

	case *query.InExpr:
		value := row[v.Column]
		if value == nil {
			return false, true, nil
		}
		found := false
		for _, candidate := range v.Values {
			result, isNull, err := types.Apply(value, types.OpEq, candidate)
			if err != nil {
				return false, false, wrapCompareErr("IN", err)
			}
			if !isNull && result {
				found = true
				break
			}
		}
		if v.Negate {
			return !found, false, nil
		}
		return found, false, nil

	case *query.LikeExpr:
		value := row[v.Column]
		if value == nil {
			return false, true, nil
		}
		str, ok := value.(string)
		if !ok {
			return false, false, &TypeError{Op: "LIKE", Left: types.InferType(value), Right: types.TypeString}
		}
		matched := matchLikePattern(str, v.Pattern)
		if v.Negate {
			return !matched, false, nil
		}
		return matched, false, nil

	case *query.BetweenExpr:
		value := row[v.Column]
		if value == nil {
			return false, true, nil
		}
		lower, lowerNull, err := types.Apply(value, types.OpGe, v.Lower)
		if err != nil {
			return false, false, wrapCompareErr("BETWEEN", err)
		}
		upper, upperNull, err := types.Apply(value, types.OpLe, v.Upper)
		if err != nil {
			return false, false, wrapCompareErr("BETWEEN", err)
		}
		if lowerNull || upperNull {
			return false, true, nil
		}
		between := lower && upper
		if v.Negate {
			return !between, false, nil
		}
		return between, false, nil

	default:
		return false, false, &UnsupportedJoinConditionError{Condition: expr.String()}
	}
}

// evalFilter reduces three-valued logic to the filter contract: null is
// false.
func evalFilter(expr query.Expr, row types.Row) (bool, error) {
	match, null, err := evalBool(expr, row)
	if err != nil {
		return false, err
	}
	return match && !null, nil
}

// evalSelect evaluates a projection expression. Aggregate calls read
// the value the Aggregate operator stored under the call's name.
func evalSelect(expr query.SelectExpr, row types.Row) (any, error) {
	switch v := expr.(type) {
	case *query.ColumnRef:
		return row[v.Column], nil
	case *query.Literal:
		return v.Value, nil
	case *query.AggregateCall:
		return row[v.Name()], nil
	case *query.ArithExpr:
		left, err := evalSelect(v.Left, row)
		if err != nil {
			return nil, err
		}
		right, err := evalSelect(v.Right, row)
		if err != nil {
			return nil, err
		}
		return evalArith(left, v.Op, right)
	default:
		return nil, &TypeError{Op: "project"}
	}
}

// evalArith applies an arithmetic operator with numeric promotion.
// Integer operands stay integral except under division, which yields
// float. Any null operand yields null.
func evalArith(left any, op query.ArithOp, right any) (any, error) {
	if left == nil || right == nil {
		return nil, nil
	}

	left, right = types.Canonical(left), types.Canonical(right)
	lt, rt := types.InferType(left), types.InferType(right)
	if !lt.IsNumeric() || !rt.IsNumeric() {
		return nil, &TypeError{Op: op.String(), Left: lt, Right: rt}
	}

	result := types.Promote(lt, rt)
	if result == types.TypeDecimal {
		l, r := toDecimal(left), toDecimal(right)
		switch op {
		case query.ArithAdd:
			return l.Add(r), nil
		case query.ArithSub:
			return l.Sub(r), nil
		case query.ArithMul:
			return l.Mul(r), nil
		default:
			if r.IsZero() {
				return nil, &TypeError{Op: "/", Left: lt, Right: rt}
			}
			return l.Div(r), nil
		}
	}

	if result == types.TypeInteger && op != query.ArithDiv {
		l, r := left.(int64), right.(int64)
		switch op {
		case query.ArithAdd:
			return l + r, nil
		case query.ArithSub:
			return l - r, nil
		default:
			return l * r, nil
		}
	}

	l, r := toFloat(left), toFloat(right)
	switch op {
	case query.ArithAdd:
		return l + r, nil
	case query.ArithSub:
		return l - r, nil
	case query.ArithMul:
		return l * r, nil
	default:
		if r == 0 {
			return nil, &TypeError{Op: "/", Left: lt, Right: rt}
		}
		return l / r, nil
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
	case decimal.Decimal:
		f, _ := val.Float64()
		return f
	default:
		return 0
	}
}

// matchLikePattern matches a string against a SQL LIKE pattern where %
// matches any run of characters and _ matches exactly one.
func matchLikePattern(str, pattern string) bool {
	segments := strings.Split(pattern, "%")
	pos := 0

	for i, segment := range segments {
		if segment == "" {
			continue
		}

		var matchPos int
		if i == len(segments)-1 && !strings.HasSuffix(pattern, "%") {
			// The final segment is anchored to the end of the string.
			start := len(str) - len(segment)
			if start < pos || findSegmentMatch(str[start:], segment) != 0 {
				return false
			}
			matchPos = start - pos
		} else {
			matchPos = findSegmentMatch(str[pos:], segment)
		}
		if matchPos == -1 {
			return false
		}
		if i == 0 && !strings.HasPrefix(pattern, "%") && matchPos != 0 {
			return false
		}
		pos += matchPos + len(segment)
	}

	if !strings.HasSuffix(pattern, "%") && pos != len(str) {
		return false
	}
	return true
}

// findSegmentMatch finds where a segment (with _ wildcards) first
// matches, or -1.
func findSegmentMatch(str, segment string) int {
	if len(segment) == 0 {
		return 0
	}
	if !strings.Contains(segment, "_") {
		return strings.Index(str, segment)
	}

	for i := 0; i+len(segment) <= len(str); i++ {
		match := true
		for j := 0; j < len(segment); j++ {
			if segment[j] != '_' && str[i+j] != segment[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
