package types

import (
	"fmt"
	"strings"
)

// Column is a named, typed schema entry.
type Column struct {
	Name string
	Type DataType
}

// Schema is an ordered mapping from column name to data type. Names are
// unique within a schema.
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema builds a schema from ordered columns. A duplicate name keeps
// the first occurrence and promotes its type with the duplicate's.
func NewSchema(columns ...Column) *Schema {
	s := &Schema{index: make(map[string]int, len(columns))}
	for _, col := range columns {
		s.Add(col.Name, col.Type)
	}
	return s
}

// Add appends a column, or promotes the type of an existing column with
// the same name.
func (s *Schema) Add(name string, t DataType) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[name]; ok {
		s.columns[i].Type = Promote(s.columns[i].Type, t)
		return
	}
	s.index[name] = len(s.columns)
	s.columns = append(s.columns, Column{Name: name, Type: t})
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.columns)
}

// Columns returns the ordered column list.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names returns the ordered column names.
func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, col := range s.columns {
		names[i] = col.Name
	}
	return names
}

// Has reports whether the schema contains the column.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// TypeOf returns the declared type of a column, or TypeNull and false if
// the column is unknown.
func (s *Schema) TypeOf(name string) (DataType, bool) {
	i, ok := s.index[name]
	if !ok {
		return TypeNull, false
	}
	return s.columns[i].Type, true
}

// Merge unions two schemas by column name, promoting the types of
// overlapping columns. Column order is this schema's order followed by
// the other schema's unseen columns.
func (s *Schema) Merge(other *Schema) *Schema {
	merged := NewSchema(s.columns...)
	if other != nil {
		for _, col := range other.columns {
			merged.Add(col.Name, col.Type)
		}
	}
	return merged
}

// Equal reports whether two schemas have the same columns, types, and
// order.
func (s *Schema) Equal(other *Schema) bool {
	if other == nil || len(s.columns) != len(other.columns) {
		return false
	}
	for i, col := range s.columns {
		if other.columns[i] != col {
			return false
		}
	}
	return true
}

// String renders the schema as "name: TYPE, ...".
func (s *Schema) String() string {
	var b strings.Builder
	for i, col := range s.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", col.Name, col.Type)
	}
	return b.String()
}

// SchemaFromRows infers a schema by sampling rows. Column order follows
// the provided column order when given, else the first row's iteration
// order is not stable, so callers should pass explicit order whenever the
// source defines one.
func SchemaFromRows(order []string, rows []Row) *Schema {
	s := NewSchema()
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		seen[name] = true
		var samples []any
		for _, row := range rows {
			if v, ok := row[name]; ok {
				samples = append(samples, v)
			}
		}
		s.Add(name, InferCommonType(samples))
	}
	for _, row := range rows {
		for name := range row {
			if !seen[name] {
				seen[name] = true
				var samples []any
				for _, r := range rows {
					if v, ok := r[name]; ok {
						samples = append(samples, v)
					}
				}
				s.Add(name, InferCommonType(samples))
			}
		}
	}
	return s
}
