package reader

import (
	"bufio"
	"strings"
)

// MarkdownReader reads the k-th pipe table of a Markdown document.
// Escaped pipes (\|) inside cells are preserved literally.
type MarkdownReader struct {
	*tabular
}

// NewMarkdownReader parses the document and selects the table named by
// the selector index (0-based, negative from the end, default 0).
func NewMarkdownReader(src ByteSource, selector string, opts Options) (*MarkdownReader, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var lines []string
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, &IOError{Path: src.Name(), Cause: err}
	}

	tables := findMarkdownTables(lines)
	if len(tables) == 0 {
		return nil, &DataError{Path: src.Name(), Detail: "no tables found"}
	}

	idx, err := selectTableIndex(selector, len(tables), src.Name())
	if err != nil {
		return nil, err
	}

	table := tables[idx]
	return &MarkdownReader{tabular: buildTabular(src, opts, table.header, table.cells)}, nil
}

type markdownTable struct {
	header []string
	cells  [][]string
}

// findMarkdownTables scans for header/separator/data blocks.
func findMarkdownTables(lines []string) []markdownTable {
	var tables []markdownTable

	for i := 0; i+1 < len(lines); i++ {
		if !isPipeRow(lines[i]) || !isSeparatorRow(lines[i+1]) {
			continue
		}

		table := markdownTable{header: splitPipeRow(lines[i])}
		j := i + 2
		for ; j < len(lines) && isPipeRow(lines[j]) && !isSeparatorRow(lines[j]); j++ {
			table.cells = append(table.cells, splitPipeRow(lines[j]))
		}
		tables = append(tables, table)
		i = j - 1
	}

	return tables
}

func isPipeRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "|") && strings.Count(trimmed, "|") >= 2
}

func isSeparatorRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !isPipeRow(trimmed) {
		return false
	}
	for _, cell := range splitPipeRow(trimmed) {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			return false
		}
		for _, r := range cell {
			if r != '-' && r != ':' {
				return false
			}
		}
		if !strings.Contains(cell, "-") {
			return false
		}
	}
	return true
}

// splitPipeRow splits a |-delimited row, honoring \| escapes.
func splitPipeRow(line string) []string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")

	var cells []string
	var cur strings.Builder
	escaped := false
	for _, r := range trimmed {
		switch {
		case escaped:
			if r != '|' {
				cur.WriteRune('\\')
			}
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteRune('\\')
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	return cells
}
