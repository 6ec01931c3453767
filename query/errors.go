package query

import "fmt"

// ParseError reports a SQL syntax error with the byte offset of the
// offending token and a snippet of the surrounding input.
type ParseError struct {
	Message string
	Offset  int
	Snippet string
}

func (e *ParseError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
	}
	return fmt.Sprintf("parse error at offset %d: %s (near %q)", e.Offset, e.Message, e.Snippet)
}

// snippetAround extracts a short context window around an offset.
func snippetAround(input string, offset int) string {
	const radius = 15
	start := offset - radius
	if start < 0 {
		start = 0
	}
	end := offset + radius
	if end > len(input) {
		end = len(input)
	}
	if start >= end {
		return ""
	}
	return input[start:end]
}
