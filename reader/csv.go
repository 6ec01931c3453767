package reader

import (
	"encoding/csv"
	"io"

	"github.com/vegasq/tablecat/types"
)

// CSVReader reads comma-delimited files with a mandatory header row.
// Column types are inferred by sampling; rows that fail to coerce keep
// null in the offending cells and raise a recoverable warning.
type CSVReader struct {
	pushdown
	src  ByteSource
	opts Options

	schema *types.Schema
	header []string

	stream io.ReadCloser
	closed bool
}

// NewCSVReader creates a CSV reader over a byte source.
func NewCSVReader(src ByteSource, opts Options) *CSVReader {
	return &CSVReader{src: src, opts: opts}
}

// Schema samples the file on first call and caches the result.
func (r *CSVReader) Schema() (*types.Schema, error) {
	if r.schema != nil {
		return r.prunedSchema(r.schema), nil
	}

	rc, err := r.src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	header, sample, err := r.readSample(rc)
	if err != nil {
		return nil, err
	}
	r.header = header
	r.schema = inferCSVSchema(header, sample)
	return r.prunedSchema(r.schema), nil
}

// SetPushdownFilters accepts every simple predicate over a known,
// comparable column. Accepted filters are evaluated after parsing and
// before emission.
func (r *CSVReader) SetPushdownFilters(preds []types.Predicate) []types.Predicate {
	if _, err := r.Schema(); err != nil {
		return nil
	}
	// Filters check against the full schema: a filter column may have
	// been pruned from the emitted columns.
	return r.acceptFilters(r.schema, preds)
}

// readSample reads the header and up to sampleSize records.
func (r *CSVReader) readSample(rc io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(rc)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, &DataError{Path: r.src.Name(), Detail: "missing header row"}
	}
	if err != nil {
		return nil, nil, &DataError{Path: r.src.Name(), Detail: err.Error()}
	}

	var sample [][]string
	for len(sample) < r.opts.sampleSize() {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Sampling tolerates broken records; iteration warns on them.
			continue
		}
		sample = append(sample, record)
	}

	return header, sample, nil
}

// inferCSVSchema folds per-column string inference over the sample.
func inferCSVSchema(header []string, sample [][]string) *types.Schema {
	schema := types.NewSchema()
	for i, name := range header {
		common := types.TypeNull
		for _, record := range sample {
			if i >= len(record) {
				continue
			}
			common = types.Promote(common, types.InferTypeFromString(record[i]))
		}
		schema.Add(name, common)
	}
	return schema
}

// Rows starts iteration. When Schema has not been called yet, the
// schema is first inferred from a separate read of the source; rows
// then come from a freshly opened stream.
func (r *CSVReader) Rows() (RowIterator, error) {
	if _, err := r.Schema(); err != nil {
		return nil, err
	}

	stream, err := r.src.Open()
	if err != nil {
		return nil, err
	}
	r.stream = stream

	cr := csv.NewReader(stream)
	cr.FieldsPerRecord = -1

	// Skip the header; Schema already validated its presence.
	if _, err := cr.Read(); err != nil {
		stream.Close()
		return nil, &DataError{Path: r.src.Name(), Detail: err.Error()}
	}

	return &csvIterator{reader: r, cr: cr}, nil
}

// Close releases the reader's stream. Safe to call more than once.
func (r *CSVReader) Close() error {
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

type csvIterator struct {
	reader  *CSVReader
	cr      *csv.Reader
	line    int64
	emitted int64
	done    bool
}

func (it *csvIterator) Next() (types.Row, error) {
	if it.done {
		return nil, io.EOF
	}
	r := it.reader

	for {
		if r.capReached(it.emitted) {
			it.done = true
			return nil, io.EOF
		}

		record, err := it.cr.Read()
		if err == io.EOF {
			it.done = true
			return nil, io.EOF
		}
		it.line++
		if err != nil {
			r.opts.Warnings.Add("%s: line %d: %v", r.src.Name(), it.line, err)
			continue
		}

		row := it.convert(record)

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

// convert coerces a raw record against the inferred schema. A wrong
// field count or a non-coercible cell degrades to null with a warning.
func (it *csvIterator) convert(record []string) types.Row {
	r := it.reader
	if len(record) != len(r.header) {
		r.opts.Warnings.Add("%s: line %d: expected %d fields, got %d",
			r.src.Name(), it.line, len(r.header), len(record))
	}

	row := make(types.Row, len(r.header))
	for i, name := range r.header {
		if i >= len(record) {
			row[name] = nil
			continue
		}
		colType, _ := r.schema.TypeOf(name)
		value, ok := types.CoerceString(record[i], colType)
		if !ok {
			r.opts.Warnings.Add("%s: line %d: cannot read %q as %s for column %s",
				r.src.Name(), it.line, record[i], colType, name)
			row[name] = nil
			continue
		}
		row[name] = value
	}
	return row
}
