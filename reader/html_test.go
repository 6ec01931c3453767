package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/tablecat/types"
)

const twoTablesHTML = `<html><body>
<table>
  <tr><th>city</th><th>pop</th></tr>
  <tr><td>Oslo</td><td>700000</td></tr>
  <tr><td>Bergen</td><td>290000</td></tr>
</table>
<table>
  <tr><th>code</th><th>price</th></tr>
  <tr><td>AA</td><td>1.5</td></tr>
  <tr><td>BB</td><td>n/a</td></tr>
</table>
</body></html>`

func TestHTMLFirstTableDefault(t *testing.T) {
	path := writeTempFile(t, "page.html", twoTablesHTML)

	r, err := NewHTMLReader(NewFileSource(path), "", Options{})
	require.NoError(t, err)
	defer r.Close()

	schema, err := r.Schema()
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "pop"}, schema.Names())

	popType, _ := schema.TypeOf("pop")
	assert.Equal(t, types.TypeInteger, popType)

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)

	require.Len(t, rows, 2)
	assert.Equal(t, "Oslo", rows[0]["city"])
	assert.Equal(t, int64(700000), rows[0]["pop"])
}

func TestHTMLNegativeIndexAndNullTokens(t *testing.T) {
	path := writeTempFile(t, "page.html", twoTablesHTML)

	r, err := NewHTMLReader(NewFileSource(path), "-1", Options{})
	require.NoError(t, err)
	defer r.Close()

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)

	require.Len(t, rows, 2)
	assert.Equal(t, 1.5, rows[0]["price"])
	assert.Nil(t, rows[1]["price"])
}

func TestHTMLIndexOutOfRange(t *testing.T) {
	path := writeTempFile(t, "page.html", twoTablesHTML)

	_, err := NewHTMLReader(NewFileSource(path), "5", Options{})
	require.Error(t, err)
	var de *DataError
	assert.ErrorAs(t, err, &de)
}

func TestHTMLNoTables(t *testing.T) {
	path := writeTempFile(t, "empty.html", "<html><body><p>nothing</p></body></html>")

	_, err := NewHTMLReader(NewFileSource(path), "", Options{})
	require.Error(t, err)
}
