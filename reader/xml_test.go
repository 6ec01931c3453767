package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/tablecat/types"
)

const ordersXML = `<?xml version="1.0"?>
<orders>
  <order id="1">
    <amount>100</amount>
    <customer>
      <name>Alice</name>
      <city>Oslo</city>
    </customer>
  </order>
  <order id="2">
    <amount>50</amount>
    <customer>
      <name>Bob</name>
      <city>Bergen</city>
    </customer>
  </order>
</orders>`

func TestXMLExplicitSelector(t *testing.T) {
	path := writeTempFile(t, "orders.xml", ordersXML)

	r := NewXMLReader(NewFileSource(path), "order", Options{})
	defer r.Close()

	schema, err := r.Schema()
	require.NoError(t, err)
	assert.Equal(t, []string{"@id", "amount", "customer.name", "customer.city"}, schema.Names())

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)

	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0]["@id"])
	assert.Equal(t, int64(100), rows[0]["amount"])
	assert.Equal(t, "Alice", rows[0]["customer.name"])
	assert.Equal(t, "Bergen", rows[1]["customer.city"])
}

func TestXMLAutoDetect(t *testing.T) {
	path := writeTempFile(t, "orders.xml", ordersXML)

	r := NewXMLReader(NewFileSource(path), "", Options{})
	defer r.Close()

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)

	require.Len(t, rows, 2)
	assert.Equal(t, int64(100), rows[0]["amount"])
}

func TestXMLAutoDetectDeepest(t *testing.T) {
	doc := `<root>
  <meta><k>a</k><k>b</k></meta>
  <data>
    <rows>
      <row><v>1</v></row>
      <row><v>2</v></row>
      <row><v>3</v></row>
    </rows>
  </data>
</root>`
	path := writeTempFile(t, "deep.xml", doc)

	r := NewXMLReader(NewFileSource(path), "", Options{})
	defer r.Close()

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)

	require.Len(t, rows, 3)
	assert.Equal(t, int64(2), rows[1]["v"])
}

func TestXMLUnknownElement(t *testing.T) {
	path := writeTempFile(t, "orders.xml", ordersXML)

	r := NewXMLReader(NewFileSource(path), "invoice", Options{})
	defer r.Close()

	_, err := r.Rows()
	require.Error(t, err)
	var de *DataError
	assert.ErrorAs(t, err, &de)
}

func TestXMLFilterPushdown(t *testing.T) {
	path := writeTempFile(t, "orders.xml", ordersXML)

	r := NewXMLReader(NewFileSource(path), "order", Options{})
	defer r.Close()

	accepted := r.SetPushdownFilters([]types.Predicate{
		{Column: "amount", Op: types.OpGt, Value: int64(60)},
	})
	require.Len(t, accepted, 1)

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)

	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0]["customer.name"])
}
