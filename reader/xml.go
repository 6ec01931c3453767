package reader

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/vegasq/tablecat/types"
)

// XMLReader reads repeating elements of an XML document as rows. The
// selector names the row element; without one, the most common element
// at the deepest level with at least two repetitions is chosen.
// Attributes become @-prefixed columns; nested children flatten into
// dot-joined names.
type XMLReader struct {
	pushdown
	src      ByteSource
	opts     Options
	selector string

	rows   []types.Row
	order  []string
	schema *types.Schema
	loaded bool
	closed bool
}

// NewXMLReader creates an XML reader with an optional element selector.
func NewXMLReader(src ByteSource, selector string, opts Options) *XMLReader {
	return &XMLReader{src: src, opts: opts, selector: selector}
}

type xmlNode struct {
	name     string
	attrs    []xml.Attr
	children []*xmlNode
	text     strings.Builder
	depth    int
}

func (r *XMLReader) load() error {
	if r.loaded {
		return nil
	}

	rc, err := r.src.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	root, err := parseXMLTree(rc)
	if err != nil {
		return &DataError{Path: r.src.Name(), Detail: err.Error()}
	}
	if root == nil {
		return &DataError{Path: r.src.Name(), Detail: "empty document"}
	}

	name := r.selector
	if name == "" {
		name = detectRowElement(root)
		if name == "" {
			return &DataError{Path: r.src.Name(), Detail: "no repeating element found"}
		}
	}

	elements := collectElements(root, name)
	if len(elements) == 0 {
		return &DataError{Path: r.src.Name(), Detail: "element " + name + " not found"}
	}

	for _, el := range elements {
		r.rows = append(r.rows, r.elementToRow(el))
	}

	r.loaded = true
	return nil
}

// parseXMLTree builds a generic element tree from the token stream.
func parseXMLTree(rc io.Reader) (*xmlNode, error) {
	dec := xml.NewDecoder(rc)

	var root *xmlNode
	var stack []*xmlNode

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{name: t.Name.Local, attrs: t.Attr, depth: len(stack)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			} else if root == nil {
				root = node
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	return root, nil
}

// detectRowElement picks the most common direct-child element name at
// the deepest level holding at least two repetitions.
func detectRowElement(root *xmlNode) string {
	best := ""
	bestDepth := -1
	bestCount := 0

	var walk func(*xmlNode)
	walk = func(n *xmlNode) {
		counts := make(map[string]int)
		for _, child := range n.children {
			counts[child.name]++
		}
		for name, count := range counts {
			if count < 2 {
				continue
			}
			if n.depth > bestDepth || (n.depth == bestDepth && count > bestCount) {
				best = name
				bestDepth = n.depth
				bestCount = count
			}
		}
		for _, child := range n.children {
			walk(child)
		}
	}
	walk(root)

	return best
}

// collectElements gathers elements by name in document order.
func collectElements(root *xmlNode, name string) []*xmlNode {
	var out []*xmlNode
	var walk func(*xmlNode)
	walk = func(n *xmlNode) {
		if n.name == name {
			out = append(out, n)
			return
		}
		for _, child := range n.children {
			walk(child)
		}
	}
	walk(root)
	return out
}

// elementToRow flattens one row element: attributes prefix with @,
// nested children join with dots, leaf text goes through inference.
func (r *XMLReader) elementToRow(el *xmlNode) types.Row {
	row := make(types.Row)

	var set func(name string, value any)
	set = func(name string, value any) {
		if !containsString(r.order, name) {
			r.order = append(r.order, name)
		}
		row[name] = value
	}

	for _, attr := range el.attrs {
		value, _ := types.ParseString(attr.Value)
		set("@"+attr.Name.Local, value)
	}

	var flatten func(prefix string, n *xmlNode)
	flatten = func(prefix string, n *xmlNode) {
		for _, child := range n.children {
			name := child.name
			if prefix != "" {
				name = prefix + "." + name
			}
			if len(child.children) == 0 {
				value, _ := types.ParseString(strings.TrimSpace(child.text.String()))
				set(name, value)
				continue
			}
			flatten(name, child)
		}
	}
	flatten("", el)

	return row
}

// Schema infers column types by sampling the row elements.
func (r *XMLReader) Schema() (*types.Schema, error) {
	if r.schema == nil {
		if err := r.load(); err != nil {
			return nil, err
		}
		sample := r.rows
		if len(sample) > r.opts.sampleSize() {
			sample = sample[:r.opts.sampleSize()]
		}
		r.schema = types.SchemaFromRows(r.order, sample)
	}
	return r.prunedSchema(r.schema), nil
}

// SetPushdownFilters accepts simple predicates over known columns.
func (r *XMLReader) SetPushdownFilters(preds []types.Predicate) []types.Predicate {
	if _, err := r.Schema(); err != nil {
		return nil
	}
	return r.acceptFilters(r.schema, preds)
}

// Rows iterates the row elements in document order.
func (r *XMLReader) Rows() (RowIterator, error) {
	if _, err := r.Schema(); err != nil {
		return nil, err
	}
	return &sliceIterator{reader: &r.pushdown, rows: r.rows}, nil
}

// Close drops the materialized rows.
func (r *XMLReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.rows = nil
	return r.src.Close()
}
