package reader

import (
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
	"github.com/shopspring/decimal"

	"github.com/vegasq/tablecat/logger"
	"github.com/vegasq/tablecat/types"
)

// parquetColumn describes one leaf column of a parquet schema: its
// engine type plus the decode details needed for value conversion.
type parquetColumn struct {
	name     string
	index    int
	dataType types.DataType
	scale    int32  // decimal scale
	timeUnit string // "millis", "micros", or "nanos"
}

// ParquetReader reads a single parquet file. The schema comes from the
// footer metadata; row groups whose column statistics cannot satisfy
// the accepted filters are skipped without being decoded.
type ParquetReader struct {
	pushdown
	src  ByteSource
	opts Options

	file    *parquet.File
	columns []parquetColumn
	schema  *types.Schema

	// partition values synthesized into every emitted row, set by the
	// dataset reader.
	partition map[string]any

	closed bool
}

// NewParquetReader creates a parquet reader over a byte source. For
// remote sources the footer and pruned row groups are fetched with
// range reads.
func NewParquetReader(src ByteSource, opts Options) *ParquetReader {
	return &ParquetReader{src: src, opts: opts}
}

func (r *ParquetReader) open() error {
	if r.file != nil {
		return nil
	}

	ra, size, err := r.src.ReaderAt()
	if err != nil {
		return err
	}

	file, err := parquet.OpenFile(ra, size)
	if err != nil {
		return &IOError{Path: r.src.Name(), Cause: err}
	}
	r.file = file

	schema := types.NewSchema()
	for i, field := range file.Schema().Fields() {
		col := mapParquetField(field, i)
		r.columns = append(r.columns, col)
		schema.Add(col.name, col.dataType)
	}
	for key, value := range r.partition {
		schema.Add(key, types.InferType(value))
	}
	r.schema = schema
	return nil
}

// mapParquetField maps a parquet leaf field to an engine column per the
// fixed physical/logical type table.
func mapParquetField(field parquet.Field, index int) parquetColumn {
	col := parquetColumn{name: field.Name(), index: index, dataType: types.TypeString}
	t := field.Type()

	if lt := t.LogicalType(); lt != nil {
		switch {
		case lt.UTF8 != nil:
			col.dataType = types.TypeString
			return col
		case lt.Json != nil:
			col.dataType = types.TypeJSON
			return col
		case lt.Decimal != nil:
			col.dataType = types.TypeDecimal
			col.scale = lt.Decimal.Scale
			return col
		case lt.Date != nil:
			col.dataType = types.TypeDate
			return col
		case lt.Time != nil:
			col.dataType = types.TypeTime
			col.timeUnit = timeUnitName(lt.Time.Unit)
			return col
		case lt.Timestamp != nil:
			col.dataType = types.TypeDatetime
			col.timeUnit = timeUnitName(lt.Timestamp.Unit)
			return col
		}
	}

	switch t.Kind() {
	case parquet.Boolean:
		col.dataType = types.TypeBoolean
	case parquet.Int32, parquet.Int64:
		col.dataType = types.TypeInteger
	case parquet.Float, parquet.Double:
		col.dataType = types.TypeFloat
	case parquet.ByteArray, parquet.FixedLenByteArray:
		col.dataType = types.TypeString
	default:
		col.dataType = types.TypeString
	}
	return col
}

func timeUnitName(unit format.TimeUnit) string {
	switch {
	case unit.Micros != nil:
		return "micros"
	case unit.Nanos != nil:
		return "nanos"
	default:
		return "millis"
	}
}

// Schema decodes the footer on first call.
func (r *ParquetReader) Schema() (*types.Schema, error) {
	if err := r.open(); err != nil {
		return nil, err
	}
	return r.prunedSchema(r.schema), nil
}

// SetPushdownFilters accepts simple predicates over known, comparable
// columns. Accepted predicates both prune row groups by their
// statistics and filter decoded rows.
func (r *ParquetReader) SetPushdownFilters(preds []types.Predicate) []types.Predicate {
	if err := r.open(); err != nil {
		return nil
	}
	return r.acceptFilters(r.schema, preds)
}

// rowRange is a span of row indices to decode.
type rowRange struct {
	start int64
	count int64
}

// pruneRowGroups compares each row group's min/max statistics against
// the accepted filters and returns the row ranges that may contain a
// match.
func (r *ParquetReader) pruneRowGroups() []rowRange {
	var ranges []rowRange
	var offset int64

	for _, rg := range r.file.RowGroups() {
		n := rg.NumRows()
		if r.groupMayMatch(rg) {
			ranges = append(ranges, rowRange{start: offset, count: n})
		} else {
			logger.Debug().
				Str("file", r.src.Name()).
				Int64("rows", n).
				Msg("row group pruned by statistics")
		}
		offset += n
	}

	return ranges
}

func (r *ParquetReader) groupMayMatch(rg parquet.RowGroup) bool {
	if len(r.filters) == 0 {
		return true
	}
	chunks := rg.ColumnChunks()

	for _, pred := range r.filters {
		col, ok := r.columnByName(pred.Column)
		if !ok || col.index >= len(chunks) {
			continue
		}

		idx, err := chunks[col.index].ColumnIndex()
		if err != nil || idx == nil || idx.NumPages() == 0 {
			continue
		}

		min, max, allNull := chunkBounds(idx, col)
		if allNull {
			// A column with only nulls can never satisfy a simple
			// predicate.
			return false
		}
		if min == nil || max == nil {
			continue
		}
		if !boundsMayMatch(min, max, pred) {
			return false
		}
	}

	return true
}

// chunkBounds folds page-level statistics into chunk min/max.
func chunkBounds(idx parquet.ColumnIndex, col parquetColumn) (min, max any, allNull bool) {
	allNull = true
	for page := 0; page < idx.NumPages(); page++ {
		if idx.NullPage(page) {
			continue
		}
		allNull = false

		lo := convertParquetValue(idx.MinValue(page), col)
		hi := convertParquetValue(idx.MaxValue(page), col)
		if lo == nil || hi == nil {
			return nil, nil, false
		}

		if min == nil {
			min, max = lo, hi
			continue
		}
		if cmp, err := types.Order(lo, min); err == nil && cmp < 0 {
			min = lo
		}
		if cmp, err := types.Order(hi, max); err == nil && cmp > 0 {
			max = hi
		}
	}
	return min, max, allNull
}

// boundsMayMatch reports whether any value in [min, max] can satisfy
// the predicate. Comparison failures keep the group.
func boundsMayMatch(min, max any, pred types.Predicate) bool {
	cmpMin, err := types.Order(pred.Value, min)
	if err != nil {
		return true
	}
	cmpMax, err := types.Order(pred.Value, max)
	if err != nil {
		return true
	}

	switch pred.Op {
	case types.OpEq:
		return cmpMin >= 0 && cmpMax <= 0
	case types.OpNe:
		return !(cmpMin == 0 && cmpMax == 0)
	case types.OpLt:
		return cmpMin > 0 // min < value
	case types.OpLe:
		return cmpMin >= 0
	case types.OpGt:
		return cmpMax < 0 // max > value
	case types.OpGe:
		return cmpMax <= 0
	default:
		return true
	}
}

// convertParquetValue maps a raw parquet value to the engine value of
// the column's type.
func convertParquetValue(v parquet.Value, col parquetColumn) any {
	if v.IsNull() {
		return nil
	}

	switch col.dataType {
	case types.TypeBoolean:
		return v.Boolean()
	case types.TypeInteger:
		return v.Int64()
	case types.TypeFloat:
		return v.Double()
	case types.TypeDecimal:
		return decimal.New(v.Int64(), -col.scale)
	case types.TypeDate:
		return types.Date(time.Unix(0, 0).UTC().AddDate(0, 0, int(v.Int32())))
	case types.TypeTime:
		return types.TimeOfDay(time.Unix(0, 0).UTC().Add(sinceMidnight(v.Int64(), col.timeUnit)))
	case types.TypeDatetime:
		return epochToTime(v.Int64(), col.timeUnit)
	case types.TypeJSON:
		return types.JSON(v.ByteArray())
	default:
		return string(v.ByteArray())
	}
}

func sinceMidnight(n int64, unit string) time.Duration {
	switch unit {
	case "micros":
		return time.Duration(n) * time.Microsecond
	case "nanos":
		return time.Duration(n)
	default:
		return time.Duration(n) * time.Millisecond
	}
}

func epochToTime(n int64, unit string) time.Time {
	switch unit {
	case "micros":
		return time.UnixMicro(n).UTC()
	case "nanos":
		return time.Unix(0, n).UTC()
	default:
		return time.UnixMilli(n).UTC()
	}
}

func (r *ParquetReader) columnByName(name string) (parquetColumn, bool) {
	for _, col := range r.columns {
		if col.name == name {
			return col, true
		}
	}
	return parquetColumn{}, false
}

// convertRow normalizes a decoded row map to engine values and merges
// partition columns.
func (r *ParquetReader) convertRow(raw map[string]any) types.Row {
	row := make(types.Row, len(raw)+len(r.partition))
	for _, col := range r.columns {
		v, ok := raw[col.name]
		if !ok {
			continue
		}
		row[col.name] = normalizeParquetGoValue(v, col)
	}
	for key, value := range r.partition {
		row[key] = value
	}
	return row
}

// normalizeParquetGoValue maps the Go values produced by parquet-go's
// map decoding onto engine values.
func normalizeParquetGoValue(v any, col parquetColumn) any {
	if v == nil {
		return nil
	}

	switch col.dataType {
	case types.TypeInteger:
		switch n := v.(type) {
		case int32:
			return int64(n)
		case int64:
			return n
		case int:
			return int64(n)
		}
	case types.TypeFloat:
		switch n := v.(type) {
		case float32:
			return float64(n)
		case float64:
			return n
		}
	case types.TypeDecimal:
		switch n := v.(type) {
		case int32:
			return decimal.New(int64(n), -col.scale)
		case int64:
			return decimal.New(n, -col.scale)
		case float64:
			return decimal.NewFromFloat(n)
		}
	case types.TypeDate:
		switch n := v.(type) {
		case int32:
			return types.Date(time.Unix(0, 0).UTC().AddDate(0, 0, int(n)))
		case int64:
			return types.Date(time.Unix(0, 0).UTC().AddDate(0, 0, int(n)))
		case time.Time:
			return types.Date(n)
		}
	case types.TypeTime:
		switch n := v.(type) {
		case int32:
			return types.TimeOfDay(time.Unix(0, 0).UTC().Add(sinceMidnight(int64(n), col.timeUnit)))
		case int64:
			return types.TimeOfDay(time.Unix(0, 0).UTC().Add(sinceMidnight(n, col.timeUnit)))
		case time.Time:
			return types.TimeOfDay(n)
		}
	case types.TypeDatetime:
		switch n := v.(type) {
		case int64:
			return epochToTime(n, col.timeUnit)
		case time.Time:
			return n.UTC()
		}
	case types.TypeJSON:
		switch s := v.(type) {
		case string:
			return types.JSON(s)
		case []byte:
			return types.JSON(s)
		}
	case types.TypeBoolean:
		if b, ok := v.(bool); ok {
			return b
		}
	case types.TypeString:
		switch s := v.(type) {
		case string:
			return s
		case []byte:
			return string(s)
		}
	}
	return types.Canonical(v)
}

// Rows decodes the surviving row groups in order.
func (r *ParquetReader) Rows() (RowIterator, error) {
	if err := r.open(); err != nil {
		return nil, err
	}
	return &parquetIterator{
		reader: r,
		ranges: r.pruneRowGroups(),
	}, nil
}

// Close releases the underlying byte source.
func (r *ParquetReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.file = nil
	return r.src.Close()
}

type parquetIterator struct {
	reader  *ParquetReader
	ranges  []rowRange
	rows    *parquet.Reader
	within  int64
	emitted int64
	done    bool
}

func (it *parquetIterator) Next() (types.Row, error) {
	r := it.reader

	for {
		if it.done || r.capReached(it.emitted) {
			it.done = true
			return nil, io.EOF
		}

		if it.rows == nil {
			if len(it.ranges) == 0 {
				it.done = true
				return nil, io.EOF
			}
			it.rows = parquet.NewReader(r.file)
			if err := it.rows.SeekToRow(it.ranges[0].start); err != nil {
				return nil, &IOError{Path: r.src.Name(), Cause: err}
			}
			it.within = 0
		}

		if it.within >= it.ranges[0].count {
			it.ranges = it.ranges[1:]
			if len(it.ranges) == 0 {
				it.done = true
				return nil, io.EOF
			}
			if err := it.rows.SeekToRow(it.ranges[0].start); err != nil {
				return nil, &IOError{Path: r.src.Name(), Cause: err}
			}
			it.within = 0
		}

		raw := make(map[string]any)
		err := it.rows.Read(&raw)
		if err == io.EOF {
			it.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, &IOError{Path: r.src.Name(), Cause: err}
		}
		it.within++

		row := r.convertRow(raw)

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

// ParquetDatasetReader reads a directory of parquet files laid out with
// Hive-style key=value partition components. Partition columns are
// virtual: synthesized into every emitted row, pruned before any file
// is opened.
type ParquetDatasetReader struct {
	pushdown
	root  string
	opts  Options
	files []partitionFile

	schema *types.Schema
	closed bool

	// open per-file reader during iteration, for Close.
	current *ParquetReader
}

// NewParquetDatasetReader discovers the dataset's files and partition
// descriptors.
func NewParquetDatasetReader(root string, opts Options) (*ParquetDatasetReader, error) {
	files, err := discoverPartitionFiles(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &UnknownFormatError{Locator: root}
	}
	return &ParquetDatasetReader{root: root, opts: opts, files: files}, nil
}

// Schema merges the first file's footer schema with the partition
// columns.
func (r *ParquetDatasetReader) Schema() (*types.Schema, error) {
	if r.schema == nil {
		first := NewParquetReader(NewFileSource(r.files[0].path), r.opts)
		defer first.Close()

		fileSchema, err := first.Schema()
		if err != nil {
			return nil, err
		}

		schema := types.NewSchema(fileSchema.Columns()...)
		for _, key := range partitionKeys(r.files) {
			for _, f := range r.files {
				if v, ok := f.values[key]; ok {
					schema.Add(key, types.InferType(v))
					break
				}
			}
		}
		r.schema = schema
	}
	return r.prunedSchema(r.schema), nil
}

// SetPushdownFilters accepts simple predicates over known columns,
// including partition columns.
func (r *ParquetDatasetReader) SetPushdownFilters(preds []types.Predicate) []types.Predicate {
	if _, err := r.Schema(); err != nil {
		return nil
	}
	return r.acceptFilters(r.schema, preds)
}

// Rows iterates the surviving files in discovery order.
func (r *ParquetDatasetReader) Rows() (RowIterator, error) {
	if _, err := r.Schema(); err != nil {
		return nil, err
	}

	var files []partitionFile
	for _, f := range r.files {
		if f.matches(r.partitions) {
			files = append(files, f)
		} else {
			logger.Debug().
				Str("file", f.path).
				Msg("partition pruned")
		}
	}

	return &datasetIterator{reader: r, files: files}, nil
}

// PartitionKeys returns the dataset's partition column names; the
// optimizer uses it to route partition filters.
func (r *ParquetDatasetReader) PartitionKeys() []string {
	return partitionKeys(r.files)
}

// OpenedFiles reports how many files survive partition pruning under the
// current partition filters; it does not need a Rows call first. Used by
// explain and tests.
func (r *ParquetDatasetReader) OpenedFiles() int {
	opened := 0
	for _, f := range r.files {
		if f.matches(r.partitions) {
			opened++
		}
	}
	return opened
}

// Close closes the file reader currently being iterated.
func (r *ParquetDatasetReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.current != nil {
		return r.current.Close()
	}
	return nil
}

type datasetIterator struct {
	reader  *ParquetDatasetReader
	files   []partitionFile
	iter    RowIterator
	emitted int64
	done    bool
}

func (it *datasetIterator) Next() (types.Row, error) {
	r := it.reader

	for {
		if it.done || r.capReached(it.emitted) {
			it.done = true
			return nil, io.EOF
		}

		if it.iter == nil {
			if len(it.files) == 0 {
				it.done = true
				return nil, io.EOF
			}
			f := it.files[0]
			it.files = it.files[1:]

			fileReader := NewParquetReader(NewFileSource(f.path), r.opts)
			fileReader.partition = f.values
			fileReader.required = r.required
			if r.hasRowCap {
				fileReader.SetRowCap(r.rowCap - it.emitted)
			}
			if accepted := fileReader.SetPushdownFilters(r.filters); len(accepted) != len(r.filters) {
				// The file reader re-checks filters row by row; any it
				// rejects (schema drift between files) stay unchecked
				// rather than wrongly satisfied.
				r.opts.Warnings.Add("%s: %d filter(s) not applied", f.path, len(r.filters)-len(accepted))
			}
			r.current = fileReader

			iter, err := fileReader.Rows()
			if err != nil {
				return nil, err
			}
			it.iter = iter
		}

		row, err := it.iter.Next()
		if err == io.EOF {
			if closeErr := r.current.Close(); closeErr != nil {
				return nil, closeErr
			}
			r.current = nil
			it.iter = nil
			continue
		}
		if err != nil {
			return nil, err
		}

		it.emitted++
		return row, nil
	}
}
