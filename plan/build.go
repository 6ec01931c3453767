package plan

import (
	"github.com/vegasq/tablecat/query"
	"github.com/vegasq/tablecat/reader"
	"github.com/vegasq/tablecat/types"
)

// Binder resolves a table reference to an opened reader. The same path
// referenced twice yields two independent readers.
type Binder func(ref query.TableRef) (reader.Reader, error)

// Build constructs and validates the logical plan for a statement.
// Shape, bottom up: scans, joins (left deep), filter, aggregate,
// project, sort, limit. The sort is placed above the projection when
// every sort key is visible in the projected output, else below it.
func Build(stmt *query.Statement, bind Binder) (*Plan, error) {
	scanRoot, err := buildScan(stmt.Sources[0], bind)
	if err != nil {
		return nil, err
	}
	var root Node = scanRoot

	// Comma-separated FROM entries are cross joins.
	for _, ref := range stmt.Sources[1:] {
		right, err := buildScan(ref, bind)
		if err != nil {
			return nil, err
		}
		root = &JoinNode{Left: root, Right: right, Kind: query.JoinCross}
	}

	for _, join := range stmt.Joins {
		right, err := buildScan(join.Table, bind)
		if err != nil {
			return nil, err
		}
		node := &JoinNode{Left: root, Right: right, Kind: join.Kind, On: join.On}
		if join.On != nil {
			if err := validateColumns(join.On.Columns(nil), node.Schema()); err != nil {
				return nil, err
			}
		}
		root = node
	}

	if stmt.Where != nil {
		if err := validateWhere(stmt.Where, root.Schema()); err != nil {
			return nil, err
		}
		root = &FilterNode{Child: root, Cond: stmt.Where}
	}

	hasAggregates := query.HasAggregates(stmt.Select)
	if len(stmt.GroupBy) > 0 || hasAggregates {
		if err := validateAggregation(stmt, root.Schema()); err != nil {
			return nil, err
		}
		root = &AggregateNode{Child: root, GroupBy: stmt.GroupBy, Items: stmt.Select}
	} else {
		if err := validateSelect(stmt.Select, root.Schema()); err != nil {
			return nil, err
		}
	}

	project := &ProjectNode{Child: root, Items: stmt.Select}

	if len(stmt.OrderBy) > 0 {
		projected := project.Schema()
		sortAbove := true
		for _, key := range stmt.OrderBy {
			if !projected.Has(key.Column) {
				sortAbove = false
				break
			}
		}

		if sortAbove {
			root = &SortNode{Child: project, Keys: stmt.OrderBy}
		} else {
			inner := project.Child.Schema()
			for _, key := range stmt.OrderBy {
				if !inner.Has(key.Column) {
					return nil, &SchemaError{Column: key.Column, Detail: "unknown ORDER BY column"}
				}
			}
			project.Child = &SortNode{Child: project.Child, Keys: stmt.OrderBy}
			root = project
		}
	} else {
		root = project
	}

	if stmt.Limit != nil || stmt.Offset != nil {
		limit := &LimitNode{Child: root, N: -1}
		if stmt.Limit != nil {
			limit.N = *stmt.Limit
		}
		if stmt.Offset != nil {
			limit.Offset = *stmt.Offset
		}
		root = limit
	}

	return &Plan{Root: root}, nil
}

func buildScan(ref query.TableRef, bind Binder) (*ScanNode, error) {
	r, err := bind(ref)
	if err != nil {
		return nil, err
	}
	schema, err := r.Schema()
	if err != nil {
		return nil, err
	}
	return &ScanNode{
		Source:     ref.Source,
		Alias:      ref.Alias,
		Reader:     r,
		BaseSchema: schema,
	}, nil
}

func validateColumns(columns []string, schema *types.Schema) error {
	for _, col := range columns {
		if !schema.Has(col) {
			return &SchemaError{Column: col, Detail: "unknown column"}
		}
	}
	return nil
}

// validateWhere checks column references and, where both operand types
// are known, comparability.
func validateWhere(expr query.Expr, schema *types.Schema) error {
	if err := validateColumns(expr.Columns(nil), schema); err != nil {
		return err
	}
	return validateComparability(expr, schema)
}

func validateComparability(expr query.Expr, schema *types.Schema) error {
	switch v := expr.(type) {
	case *query.BinaryExpr:
		if err := validateComparability(v.Left, schema); err != nil {
			return err
		}
		return validateComparability(v.Right, schema)
	case *query.NotExpr:
		return validateComparability(v.Expr, schema)
	case *query.ComparisonExpr:
		colType, ok := schema.TypeOf(v.Column)
		valType := types.InferType(v.Value)
		if ok && !types.IsComparable(colType, valType) {
			return &SchemaError{
				Column: v.Column,
				Detail: "cannot compare " + colType.String() + " with " + valType.String(),
			}
		}
	case *query.ColumnComparisonExpr:
		leftType, leftOk := schema.TypeOf(v.Left)
		rightType, rightOk := schema.TypeOf(v.Right)
		if leftOk && rightOk && !types.IsComparable(leftType, rightType) {
			return &SchemaError{
				Column: v.Left,
				Detail: "cannot compare " + leftType.String() + " with " + rightType.String(),
			}
		}
	}
	return nil
}

func validateSelect(items []query.SelectItem, schema *types.Schema) error {
	for _, item := range items {
		if _, ok := item.Expr.(query.Star); ok {
			continue
		}
		if err := validateColumns(item.Expr.Columns(nil), schema); err != nil {
			return err
		}
	}
	return nil
}

// validateAggregation enforces that non-aggregate select columns appear
// in GROUP BY.
func validateAggregation(stmt *query.Statement, schema *types.Schema) error {
	if err := validateColumns(stmt.GroupBy, schema); err != nil {
		return err
	}

	for _, item := range stmt.Select {
		switch v := item.Expr.(type) {
		case query.Star:
			return &SchemaError{Detail: "SELECT * cannot be combined with aggregation"}
		case *query.ColumnRef:
			if !containsString(stmt.GroupBy, v.Column) {
				return &SchemaError{Column: v.Column, Detail: "column must appear in GROUP BY"}
			}
		}
		if err := validateSelect([]query.SelectItem{item}, schema); err != nil {
			return err
		}
	}
	return nil
}
