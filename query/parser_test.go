package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/tablecat/types"
)

func TestParseBasicSelect(t *testing.T) {
	stmt, err := Parse("SELECT name, age FROM 'people.csv' WHERE age > 25")
	require.NoError(t, err)

	require.Len(t, stmt.Select, 2)
	assert.Equal(t, "name", stmt.Select[0].Expr.(*ColumnRef).Column)
	assert.Equal(t, "age", stmt.Select[1].Expr.(*ColumnRef).Column)

	require.Len(t, stmt.Sources, 1)
	assert.Equal(t, "people.csv", stmt.Sources[0].Source)
	assert.True(t, stmt.Sources[0].Quoted)

	cmp, ok := stmt.Where.(*ComparisonExpr)
	require.True(t, ok)
	assert.Equal(t, "age", cmp.Column)
	assert.Equal(t, types.OpGt, cmp.Op)
	assert.Equal(t, int64(25), cmp.Value)
}

func TestParseStar(t *testing.T) {
	stmt, err := Parse("select * from data")
	require.NoError(t, err)
	require.Len(t, stmt.Select, 1)
	_, ok := stmt.Select[0].Expr.(Star)
	assert.True(t, ok)
	assert.Equal(t, "data", stmt.Sources[0].Source)
	assert.False(t, stmt.Sources[0].Quoted)
}

func TestParseAliases(t *testing.T) {
	stmt, err := Parse("SELECT u.name AS who FROM 'u.csv' u")
	require.NoError(t, err)
	assert.Equal(t, "who", stmt.Select[0].Alias)
	assert.Equal(t, "who", stmt.Select[0].OutputName())
	assert.Equal(t, "u", stmt.Sources[0].Alias)
}

func TestParseCommaSources(t *testing.T) {
	stmt, err := Parse("SELECT * FROM 'a.csv' a, 'b.csv' b")
	require.NoError(t, err)
	require.Len(t, stmt.Sources, 2)
	assert.Equal(t, "a", stmt.Sources[0].Alias)
	assert.Equal(t, "b.csv", stmt.Sources[1].Source)
}

func TestParseJoins(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		kind JoinKind
	}{
		{"inner", "SELECT * FROM a JOIN b ON a.id = b.id", JoinInner},
		{"explicit inner", "SELECT * FROM a INNER JOIN b ON a.id = b.id", JoinInner},
		{"left", "SELECT * FROM a LEFT JOIN b ON a.id = b.id", JoinLeft},
		{"left outer", "SELECT * FROM a LEFT OUTER JOIN b ON a.id = b.id", JoinLeft},
		{"right", "SELECT * FROM a RIGHT JOIN b ON a.id = b.id", JoinRight},
		{"full", "SELECT * FROM a FULL OUTER JOIN b ON a.id = b.id", JoinFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.sql)
			require.NoError(t, err)
			require.Len(t, stmt.Joins, 1)
			assert.Equal(t, tt.kind, stmt.Joins[0].Kind)

			cond, ok := stmt.Joins[0].On.(*ColumnComparisonExpr)
			require.True(t, ok)
			assert.Equal(t, "a.id", cond.Left)
			assert.Equal(t, "b.id", cond.Right)
		})
	}
}

func TestParseCrossJoin(t *testing.T) {
	stmt, err := Parse("SELECT * FROM a CROSS JOIN b")
	require.NoError(t, err)
	require.Len(t, stmt.Joins, 1)
	assert.Equal(t, JoinCross, stmt.Joins[0].Kind)
	assert.Nil(t, stmt.Joins[0].On)
}

func TestParseAggregates(t *testing.T) {
	stmt, err := Parse("SELECT k, COUNT(*), AVG(v) FROM s GROUP BY k")
	require.NoError(t, err)

	count := stmt.Select[1].Expr.(*AggregateCall)
	assert.True(t, count.Star)
	assert.Equal(t, "COUNT(*)", count.Name())

	avg := stmt.Select[2].Expr.(*AggregateCall)
	assert.Equal(t, "AVG", avg.Func)
	assert.Equal(t, "v", avg.Column)

	assert.Equal(t, []string{"k"}, stmt.GroupBy)
	assert.True(t, HasAggregates(stmt.Select))
}

func TestParseArithmetic(t *testing.T) {
	stmt, err := Parse("SELECT price * qty AS total, price / 2 FROM t")
	require.NoError(t, err)

	total := stmt.Select[0].Expr.(*ArithExpr)
	assert.Equal(t, ArithMul, total.Op)
	assert.Equal(t, "total", stmt.Select[0].OutputName())

	half := stmt.Select[1].Expr.(*ArithExpr)
	assert.Equal(t, ArithDiv, half.Op)
}

func TestParseWhereOperators(t *testing.T) {
	stmt, err := Parse("SELECT * FROM t WHERE a = 1 AND b != 2 OR NOT c <= 3")
	require.NoError(t, err)

	or, ok := stmt.Where.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, LogicalOr, or.Op)

	and, ok := or.Left.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, LogicalAnd, and.Op)

	not, ok := or.Right.(*NotExpr)
	require.True(t, ok)
	_, ok = not.Expr.(*ComparisonExpr)
	assert.True(t, ok)
}

func TestParseSpecialPredicates(t *testing.T) {
	stmt, err := Parse("SELECT * FROM t WHERE a IN (1, 2) AND b LIKE 'x%' AND c BETWEEN 1 AND 5 AND d IS NOT NULL")
	require.NoError(t, err)

	conjuncts := SplitConjuncts(stmt.Where)
	require.Len(t, conjuncts, 4)

	in := conjuncts[0].(*InExpr)
	assert.Equal(t, []any{int64(1), int64(2)}, in.Values)

	like := conjuncts[1].(*LikeExpr)
	assert.Equal(t, "x%", like.Pattern)

	between := conjuncts[2].(*BetweenExpr)
	assert.Equal(t, int64(1), between.Lower)

	isNull := conjuncts[3].(*IsNullExpr)
	assert.True(t, isNull.Negate)
}

func TestParseDateLiteral(t *testing.T) {
	stmt, err := Parse("SELECT * FROM t WHERE day >= '2024-03-01'")
	require.NoError(t, err)

	cmp := stmt.Where.(*ComparisonExpr)
	assert.Equal(t, types.TypeDate, types.InferType(cmp.Value))
}

func TestParseLimitOffset(t *testing.T) {
	stmt, err := Parse("SELECT * FROM t ORDER BY a DESC, b LIMIT 10 OFFSET 5")
	require.NoError(t, err)

	require.Len(t, stmt.OrderBy, 2)
	assert.True(t, stmt.OrderBy[0].Desc)
	assert.False(t, stmt.OrderBy[1].Desc)

	require.NotNil(t, stmt.Limit)
	assert.Equal(t, int64(10), *stmt.Limit)
	require.NotNil(t, stmt.Offset)
	assert.Equal(t, int64(5), *stmt.Offset)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"missing from", "SELECT a"},
		{"missing select", "FROM t"},
		{"bad operator", "SELECT * FROM t WHERE a ~ 1"},
		{"negative limit", "SELECT * FROM t LIMIT -1"},
		{"join without on", "SELECT * FROM a JOIN b"},
		{"unknown function", "SELECT LENGTH(a) FROM t"},
		{"trailing garbage", "SELECT * FROM t WHERE a = 1 b"},
		{"sum star", "SELECT SUM(*) FROM t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.sql)
			require.Error(t, err)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.GreaterOrEqual(t, pe.Offset, 0)
		})
	}
}

func TestExtractSources(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{"single", "SELECT * FROM 'a.csv'", []string{"a.csv"}},
		{"comma list", "SELECT * FROM 'a.csv' a, 'b.csv' b", []string{"a.csv", "b.csv"}},
		{"join", "SELECT * FROM 'a.csv' a LEFT JOIN 'b.csv' b ON a.x = b.x", []string{"a.csv", "b.csv"}},
		{"identifier source", "SELECT * FROM t", nil},
		{"where string ignored", "SELECT * FROM 'a.csv' WHERE n = 'b.csv'", []string{"a.csv"}},
		{"same path twice", "SELECT * FROM 'a.csv' x JOIN 'a.csv' y ON x.i = y.i", []string{"a.csv", "a.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSources(tt.sql))
		})
	}
}
