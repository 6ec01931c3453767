package reader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vegasq/tablecat/types"
)

// JSONReader reads a whole JSON document and serves an array of objects
// selected by an optional fragment path. Path syntax: dotted keys
// (a.b), an array index (a[0]), or a single array flatten (a[]).
type JSONReader struct {
	pushdown
	src  ByteSource
	opts Options
	path string

	rows   []types.Row
	order  []string
	schema *types.Schema
	loaded bool
	closed bool
}

// NewJSONReader creates a JSON document reader with a selector path.
func NewJSONReader(src ByteSource, path string, opts Options) *JSONReader {
	return &JSONReader{src: src, opts: opts, path: path}
}

func (r *JSONReader) load() error {
	if r.loaded {
		return nil
	}

	rc, err := r.src.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := json.NewDecoder(rc)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &DataError{Path: r.src.Name(), Detail: err.Error()}
	}

	target, err := navigateJSONPath(doc, r.path)
	if err != nil {
		return &DataError{Path: r.src.Name(), Detail: err.Error()}
	}

	records, ok := target.([]any)
	if !ok {
		return &DataError{Path: r.src.Name(), Detail: fmt.Sprintf("path %q does not select an array", r.path)}
	}

	for i, rec := range records {
		obj, ok := rec.(map[string]any)
		if !ok {
			return &DataError{Path: r.src.Name(), Detail: fmt.Sprintf("element %d is not an object", i)}
		}
		r.rows = append(r.rows, convertJSONObject(obj, &r.order))
	}

	r.loaded = true
	return nil
}

// Schema infers column types by sampling the selected records.
func (r *JSONReader) Schema() (*types.Schema, error) {
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
func (r *JSONReader) SetPushdownFilters(preds []types.Predicate) []types.Predicate {
	if _, err := r.Schema(); err != nil {
		return nil
	}
	return r.acceptFilters(r.schema, preds)
}

// Rows iterates the selected records in document order.
func (r *JSONReader) Rows() (RowIterator, error) {
	if _, err := r.Schema(); err != nil {
		return nil, err
	}
	return &sliceIterator{reader: &r.pushdown, rows: r.rows}, nil
}

// Close drops the materialized rows and releases the byte source.
func (r *JSONReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.rows = nil
	return r.src.Close()
}

// navigateJSONPath walks a dotted path with optional [i] and []
// segments. Only one [] flatten may appear.
func navigateJSONPath(doc any, path string) (any, error) {
	if path == "" {
		return autoDetectRecords(doc), nil
	}

	if strings.Count(path, "[]") > 1 {
		return nil, fmt.Errorf("path %q has more than one [] flatten", path)
	}

	current := doc
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			return nil, fmt.Errorf("path %q has an empty segment", path)
		}

		key := segment
		suffix := ""
		if i := strings.IndexByte(segment, '['); i >= 0 {
			key = segment[:i]
			suffix = segment[i:]
		}

		if key != "" {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("path %q: %q is not an object", path, key)
			}
			next, ok := obj[key]
			if !ok {
				return nil, fmt.Errorf("path %q: key %q not found", path, key)
			}
			current = next
		}

		switch {
		case suffix == "":
		case suffix == "[]":
			arr, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("path %q: %q is not an array", path, key)
			}
			var flattened []any
			for _, el := range arr {
				if inner, ok := el.([]any); ok {
					flattened = append(flattened, inner...)
				} else {
					flattened = append(flattened, el)
				}
			}
			current = flattened
		default:
			idxStr := strings.TrimSuffix(strings.TrimPrefix(suffix, "["), "]")
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, fmt.Errorf("path %q: bad index %q", path, idxStr)
			}
			arr, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("path %q: %q is not an array", path, key)
			}
			if idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("path %q: index %d out of range", path, idx)
			}
			current = arr[idx]
		}
	}

	return current, nil
}

// autoDetectRecords finds the record array when no path is given: the
// document itself when it is an array, else the first array-of-objects
// value in the top-level object.
func autoDetectRecords(doc any) any {
	if _, ok := doc.([]any); ok {
		return doc
	}
	if obj, ok := doc.(map[string]any); ok {
		for _, v := range obj {
			if arr, ok := v.([]any); ok && len(arr) > 0 {
				if _, ok := arr[0].(map[string]any); ok {
					return arr
				}
			}
		}
	}
	return doc
}

// convertJSONObject converts a decoded object to a row, recording
// first-seen column order in order.
func convertJSONObject(obj map[string]any, order *[]string) types.Row {
	row := make(types.Row, len(obj))
	for key, value := range obj {
		if order != nil && !containsString(*order, key) {
			*order = append(*order, key)
		}
		row[key] = convertJSONValue(value)
	}
	return row
}

// convertJSONValue maps decoded JSON values to engine values. Scalar
// strings run through string inference; nested structures become
// json-typed raw text.
func convertJSONValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case bool:
		return v
	case json.Number:
		s := v.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := v.Int64(); err == nil {
				return n
			}
		}
		f, _ := v.Float64()
		return f
	case string:
		parsed, _ := types.ParseString(v)
		return parsed
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return types.JSON(raw)
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// sliceIterator serves pre-materialized rows, honoring the shared
// pushdown state.
type sliceIterator struct {
	reader  *pushdown
	rows    []types.Row
	pos     int
	emitted int64
}

func (it *sliceIterator) Next() (types.Row, error) {
	for {
		if it.reader.capReached(it.emitted) || it.pos >= len(it.rows) {
			return nil, io.EOF
		}
		row := it.rows[it.pos]
		it.pos++

		keep, err := types.MatchesAll(it.reader.filters, row)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}

		it.emitted++
		return it.reader.prune(row), nil
	}
}

// JSONLReader reads line-delimited JSON. Malformed lines surface as
// warnings, not errors.
type JSONLReader struct {
	pushdown
	src  ByteSource
	opts Options

	schema *types.Schema
	order  []string

	stream io.ReadCloser
	closed bool
}

// NewJSONLReader creates a JSONL reader over a byte source.
func NewJSONLReader(src ByteSource, opts Options) *JSONLReader {
	return &JSONLReader{src: src, opts: opts}
}

// Schema samples the first lines on first call.
func (r *JSONLReader) Schema() (*types.Schema, error) {
	if r.schema == nil {
		rc, err := r.src.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		var sample []types.Row
		scanner := bufio.NewScanner(rc)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() && len(sample) < r.opts.sampleSize() {
			row, ok := r.parseLine(scanner.Bytes(), 0, nil)
			if ok {
				sample = append(sample, row)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, &IOError{Path: r.src.Name(), Cause: err}
		}
		r.schema = types.SchemaFromRows(r.order, sample)
	}
	return r.prunedSchema(r.schema), nil
}

// SetPushdownFilters accepts simple predicates over known columns.
func (r *JSONLReader) SetPushdownFilters(preds []types.Predicate) []types.Predicate {
	if _, err := r.Schema(); err != nil {
		return nil
	}
	return r.acceptFilters(r.schema, preds)
}

func (r *JSONLReader) parseLine(line []byte, lineNo int64, warnings *Warnings) (types.Row, bool) {
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		warnings.Add("%s: line %d: %v", r.src.Name(), lineNo, err)
		return nil, false
	}
	return convertJSONObject(obj, &r.order), true
}

// Rows streams lines lazily.
func (r *JSONLReader) Rows() (RowIterator, error) {
	if _, err := r.Schema(); err != nil {
		return nil, err
	}

	stream, err := r.src.Open()
	if err != nil {
		return nil, err
	}
	r.stream = stream

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	return &jsonlIterator{reader: r, scanner: scanner}, nil
}

// Close releases the stream. Safe to call more than once.
func (r *JSONLReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var err error
	if r.stream != nil {
		err = r.stream.Close()
		r.stream = nil
	}
	if closeErr := r.src.Close(); err == nil {
		err = closeErr
	}
	return err
}

type jsonlIterator struct {
	reader  *JSONLReader
	scanner *bufio.Scanner
	line    int64
	emitted int64
	done    bool
}

func (it *jsonlIterator) Next() (types.Row, error) {
	if it.done {
		return nil, io.EOF
	}
	r := it.reader

	for {
		if r.capReached(it.emitted) {
			it.done = true
			return nil, io.EOF
		}

		if !it.scanner.Scan() {
			it.done = true
			if err := it.scanner.Err(); err != nil {
				return nil, &IOError{Path: r.src.Name(), Cause: err}
			}
			return nil, io.EOF
		}
		it.line++

		row, ok := r.parseLine(it.scanner.Bytes(), it.line, r.opts.Warnings)
		if !ok {
			continue
		}

		keep, err := types.MatchesAll(r.filters, row)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}

		it.emitted++
		return r.prune(row), nil
	}
}
