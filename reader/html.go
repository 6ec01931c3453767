package reader

import (
	"strings"

	"golang.org/x/net/html"
)

// HTMLReader reads the k-th <table> of an HTML document. Column names
// come from the header row; cell types are inferred from content.
type HTMLReader struct {
	*tabular
}

// NewHTMLReader parses the document and selects the table named by the
// selector index (0-based, negative from the end, default 0).
func NewHTMLReader(src ByteSource, selector string, opts Options) (*HTMLReader, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	doc, err := html.Parse(rc)
	if err != nil {
		return nil, &DataError{Path: src.Name(), Detail: err.Error()}
	}

	tables := findTables(doc)
	if len(tables) == 0 {
		return nil, &DataError{Path: src.Name(), Detail: "no tables found"}
	}

	idx, err := selectTableIndex(selector, len(tables), src.Name())
	if err != nil {
		return nil, err
	}

	header, cells := extractHTMLTable(tables[idx])
	if len(header) == 0 {
		return nil, &DataError{Path: src.Name(), Detail: "table has no header row"}
	}

	return &HTMLReader{tabular: buildTabular(src, opts, header, cells)}, nil
}

// findTables collects <table> elements in document order.
func findTables(node *html.Node) []*html.Node {
	var tables []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			tables = append(tables, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return tables
}

// extractHTMLTable reads a table's rows: the first row is the header,
// the rest are data.
func extractHTMLTable(table *html.Node) (header []string, cells [][]string) {
	var rows [][]string
	var walkRows func(*html.Node)
	walkRows = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var row []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					row = append(row, strings.TrimSpace(nodeText(c)))
				}
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkRows(c)
		}
	}
	walkRows(table)

	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], rows[1:]
}

// nodeText concatenates the text content under a node.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
