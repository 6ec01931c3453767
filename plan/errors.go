package plan

import "fmt"

// SchemaError reports a reference to an unknown column or a type
// mismatch detected at plan time.
type SchemaError struct {
	Column string
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Detail)
	}
	return "schema error: " + e.Detail
}
