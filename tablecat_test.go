package tablecat_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/tablecat"
	"github.com/vegasq/tablecat/exec"
	"github.com/vegasq/tablecat/plan"
	"github.com/vegasq/tablecat/query"
	"github.com/vegasq/tablecat/reader"
	"github.com/vegasq/tablecat/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func mustList(t *testing.T, sql, source string) []types.Row {
	t.Helper()
	result, err := tablecat.Execute(sql, source)
	require.NoError(t, err)
	defer result.Close()
	rows, err := result.ToList()
	require.NoError(t, err)
	return rows
}

// S1: CSV filter + project with ordering.
func TestScenarioCSVFilterProject(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "e.csv", "id,name,age\n1,Alice,30\n2,Bob,20\n3,Cara,25\n")

	rows := mustList(t, fmt.Sprintf("SELECT name FROM '%s' WHERE age >= 25 ORDER BY name", path), "")

	require.Len(t, rows, 2)
	assert.Equal(t, types.Row{"name": "Alice"}, rows[0])
	assert.Equal(t, types.Row{"name": "Cara"}, rows[1])
}

// S2: GROUP BY with AVG.
func TestScenarioGroupByAverage(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "s.csv", "k,g,v\ncat,A,10\ncat,A,30\ncat,B,20\n")

	rows := mustList(t, fmt.Sprintf("SELECT g, AVG(v) FROM '%s' GROUP BY g ORDER BY g", path), "")

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0]["g"])
	assert.Equal(t, 20.0, rows[0]["AVG(v)"])
	assert.Equal(t, "B", rows[1]["g"])
	assert.Equal(t, 20.0, rows[1]["AVG(v)"])
}

// S3: LEFT JOIN with ordering; unmatched left rows null-extend.
func TestScenarioLeftJoin(t *testing.T) {
	dir := t.TempDir()
	users := writeFile(t, dir, "u.csv", "id,name\n1,Alice\n2,Bob\n")
	orders := writeFile(t, dir, "o.csv", "uid,amt\n1,100\n1,50\n3,999\n")

	sql := fmt.Sprintf(
		"SELECT u.name, o.amt FROM '%s' u LEFT JOIN '%s' o ON u.id = o.uid ORDER BY u.name, o.amt",
		users, orders)
	rows := mustList(t, sql, "")

	require.Len(t, rows, 3)
	assert.Equal(t, "Alice", rows[0]["u.name"])
	assert.Equal(t, int64(50), rows[0]["o.amt"])
	assert.Equal(t, int64(100), rows[1]["o.amt"])
	assert.Equal(t, "Bob", rows[2]["u.name"])
	assert.Nil(t, rows[2]["o.amt"])
}

type partRow struct {
	ID  int64  `parquet:"id"`
	Tag string `parquet:"tag"`
}

func writeParquet(t *testing.T, path string, n int, tag string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)

	rows := make([]partRow, n)
	for i := range rows {
		rows[i] = partRow{ID: int64(i), Tag: tag}
	}

	writer := parquet.NewGenericWriter[partRow](f)
	_, err = writer.Write(rows)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, f.Close())
}

// S4: partition pruning over a Hive-layout parquet dataset.
func TestScenarioPartitionPruning(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "year=2023"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "year=2024"), 0o755))
	writeParquet(t, filepath.Join(root, "year=2023", "part.parquet"), 100, "old")
	writeParquet(t, filepath.Join(root, "year=2024", "part.parquet"), 50, "new")

	result, err := tablecat.Execute("SELECT COUNT(*) FROM ds WHERE year = 2024", root)
	require.NoError(t, err)
	defer result.Close()

	rows, err := result.ToList()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(50), rows[0]["COUNT(*)"])

	explain := result.Explain()
	assert.Contains(t, explain, "partition_pruning: applied")
	assert.Contains(t, explain, "partition_filters=[year=2024]")
}

// S5: limit pushdown caps the reader.
func TestScenarioLimitPushdown(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("id,v\n")
	for i := 0; i < 50000; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i, i)
	}
	path := writeFile(t, dir, "big.csv", b.String())

	result, err := tablecat.Execute(fmt.Sprintf("SELECT * FROM '%s' LIMIT 3", path), "")
	require.NoError(t, err)
	defer result.Close()

	rows, err := result.ToList()
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	assert.Contains(t, result.Explain(), "limit_pushdown: applied (n=3)")
}

// S6: JSON nested path selector.
func TestScenarioJSONNestedPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "api.json", `{"data":{"users":[{"n":"A"},{"n":"B"}]}}`)

	rows := mustList(t, "SELECT n FROM t", path+"#json:data.users")

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0]["n"])
	assert.Equal(t, "B", rows[1]["n"])
}

func TestExecuteParseErrorBeforeRows(t *testing.T) {
	_, err := tablecat.Execute("SELEC nope", "")
	require.Error(t, err)
	var pe *query.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestExecuteUnknownColumnIsSchemaError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.csv", "x\n1\n")

	_, err := tablecat.Execute(fmt.Sprintf("SELECT nope FROM '%s'", path), "")
	require.Error(t, err)
	var se *plan.SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestExecuteNonEquiJoinUnsupported(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "x\n1\n")
	b := writeFile(t, dir, "b.csv", "y\n1\n")

	sql := fmt.Sprintf("SELECT * FROM '%s' a JOIN '%s' b ON a.x < b.y", a, b)
	_, err := tablecat.Execute(sql, "")
	require.Error(t, err)
	var uj *exec.UnsupportedJoinConditionError
	assert.ErrorAs(t, err, &uj)
}

func TestExecuteUnknownFormat(t *testing.T) {
	_, err := tablecat.Execute("SELECT * FROM 'data.bin#avro'", "")
	require.Error(t, err)
	var uf *reader.UnknownFormatError
	assert.ErrorAs(t, err, &uf)
}

func TestExecuteWarningsSurface(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "w.csv", "id,v\n1,2\n3\n4,5\n")

	result, err := tablecat.Execute(fmt.Sprintf("SELECT * FROM '%s'", path), "")
	require.NoError(t, err)
	defer result.Close()

	rows, err := result.ToList()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.NotEmpty(t, result.Warnings())
}

func TestExecuteCrossJoinCommaForm(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "x\n1\n2\n")
	b := writeFile(t, dir, "b.csv", "y\n10\n20\n")

	sql := fmt.Sprintf("SELECT * FROM '%s' a, '%s' b ORDER BY a.x, b.y", a, b)
	rows := mustList(t, sql, "")
	assert.Len(t, rows, 4)
}

func TestExecuteSamePathTwoReaders(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "n.csv", "id,v\n1,10\n2,20\n")

	sql := fmt.Sprintf("SELECT a.v, b.v FROM '%s' a JOIN '%s' b ON a.id = b.id ORDER BY a.v", path, path)
	rows := mustList(t, sql, "")
	require.Len(t, rows, 2)
	assert.Equal(t, rows[0]["a.v"], rows[0]["b.v"])
}

func TestExecuteFullOuterJoin(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "id,l\n1,x\n2,y\n")
	b := writeFile(t, dir, "b.csv", "id,r\n2,p\n3,q\n")

	sql := fmt.Sprintf("SELECT a.l, b.r FROM '%s' a FULL OUTER JOIN '%s' b ON a.id = b.id", a, b)
	rows := mustList(t, sql, "")
	require.Len(t, rows, 3)
}

func TestExecuteRightJoin(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "id,l\n1,x\n")
	b := writeFile(t, dir, "b.csv", "id,r\n1,p\n2,q\n")

	sql := fmt.Sprintf("SELECT a.l, b.r FROM '%s' a RIGHT JOIN '%s' b ON a.id = b.id ORDER BY b.r", a, b)
	rows := mustList(t, sql, "")
	require.Len(t, rows, 2)
	assert.Equal(t, "x", rows[0]["a.l"])
	assert.Nil(t, rows[1]["a.l"])
}

func TestInferSchemaIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "s.csv", "a,b\n1,x\n2,y\n")

	first, err := tablecat.InferSchema(path)
	require.NoError(t, err)
	second, err := tablecat.InferSchema(path)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

// Pushdown preserves semantics: the optimized pipeline returns the same
// rows as an unoptimized plan over the same statement.
func TestOptimizedMatchesUnoptimized(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "p.csv",
		"id,name,age\n1,Alice,30\n2,Bob,20\n3,Cara,25\n4,Dan,35\n5,Eve,\n")

	sql := fmt.Sprintf("SELECT name, age FROM '%s' WHERE age > 21 ORDER BY age LIMIT 2", path)

	optimized := mustList(t, sql, "")

	// Unoptimized: build and execute the raw plan directly.
	stmt, err := query.Parse(sql)
	require.NoError(t, err)
	p, err := plan.Build(stmt, func(ref query.TableRef) (reader.Reader, error) {
		return reader.Open(ref.Source, reader.Options{})
	})
	require.NoError(t, err)

	root, err := exec.Build(p.Root)
	require.NoError(t, err)
	require.NoError(t, root.Open())
	defer root.Close()

	var unoptimized []types.Row
	for {
		row, err := root.Next()
		if err != nil {
			break
		}
		unoptimized = append(unoptimized, row)
	}

	assert.Equal(t, unoptimized, optimized)
}

func TestExplainDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "d.csv", "a,b\n1,2\n")

	sql := fmt.Sprintf("SELECT a FROM '%s' WHERE b = 2 LIMIT 1", path)

	first, err := tablecat.Execute(sql, "")
	require.NoError(t, err)
	defer first.Close()
	second, err := tablecat.Execute(sql, "")
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, first.Explain(), second.Explain())
}

func TestQueryResultCloseTwice(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.csv", "a\n1\n")

	result, err := tablecat.Execute(fmt.Sprintf("SELECT * FROM '%s'", path), "")
	require.NoError(t, err)

	_, err = result.Next()
	require.NoError(t, err)
	require.NoError(t, result.Close())
	require.NoError(t, result.Close())
}

func TestHTMLSelectorEndToEnd(t *testing.T) {
	dir := t.TempDir()
	html := `<html><body>
<table><tr><th>a</th></tr><tr><td>1</td></tr></table>
<table><tr><th>city</th><th>pop</th></tr>
<tr><td>Oslo</td><td>700000</td></tr>
<tr><td>Bergen</td><td>290000</td></tr></table>
</body></html>`
	path := writeFile(t, dir, "page.html", html)

	rows := mustList(t, "SELECT city FROM t WHERE pop > 300000", path+"#html:1")
	require.Len(t, rows, 1)
	assert.Equal(t, "Oslo", rows[0]["city"])
}

func TestMarkdownEndToEnd(t *testing.T) {
	dir := t.TempDir()
	md := "| name | qty |\n|------|-----|\n| bolt | 41 |\n| nut | 7 |\n"
	path := writeFile(t, dir, "inv.md", md)

	rows := mustList(t, "SELECT name FROM t WHERE qty < 10", path)
	require.Len(t, rows, 1)
	assert.Equal(t, "nut", rows[0]["name"])
}

func TestXMLEndToEnd(t *testing.T) {
	dir := t.TempDir()
	xml := `<rows><row><v>1</v></row><row><v>2</v></row><row><v>3</v></row></rows>`
	path := writeFile(t, dir, "data.xml", xml)

	rows := mustList(t, "SELECT v FROM t WHERE v >= 2 ORDER BY v DESC", path+"#xml:row")
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), rows[0]["v"])
}

func TestAggregateWithoutGroupByOverEmptyFilter(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "z.csv", "v\n1\n2\n")

	rows := mustList(t, fmt.Sprintf("SELECT COUNT(*), SUM(v) FROM '%s' WHERE v > 100", path), "")
	require.Len(t, rows, 1)
	assert.Equal(t, int64(0), rows[0]["COUNT(*)"])
	assert.Nil(t, rows[0]["SUM(v)"])
}

func TestArithmeticProjectionEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "m.csv", "price,qty\n3,4\n10,2\n")

	rows := mustList(t, fmt.Sprintf("SELECT price * qty AS total FROM '%s' ORDER BY total", path), "")
	require.Len(t, rows, 2)
	assert.Equal(t, int64(12), rows[0]["total"])
	assert.Equal(t, int64(20), rows[1]["total"])
}
