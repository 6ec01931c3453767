package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocator(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		scheme   Scheme
		path     string
		format   string
		selector string
	}{
		{"plain path", "data.csv", SchemeFile, "data.csv", "", ""},
		{"format fragment", "data.txt#csv", SchemeFile, "data.txt", "csv", ""},
		{"json path selector", "api.json#json:data.users", SchemeFile, "api.json", "json", "data.users"},
		{"html index", "page.html#html:1", SchemeFile, "page.html", "html", "1"},
		{"negative index", "doc.md#markdown:-1", SchemeFile, "doc.md", "markdown", "-1"},
		{"xml element", "feed.xml#xml:record", SchemeFile, "feed.xml", "xml", "record"},
		{"http url", "https://example.com/d.parquet", SchemeHTTP, "https://example.com/d.parquet", "", ""},
		{"s3 uri", "s3://bucket/key.csv", SchemeS3, "s3://bucket/key.csv", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ResolveLocator(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, loc.Scheme)
			assert.Equal(t, tt.path, loc.Path)
			assert.Equal(t, tt.format, loc.Format)
			assert.Equal(t, tt.selector, loc.Selector)
		})
	}
}

func TestResolveLocatorUnknownFormat(t *testing.T) {
	_, err := ResolveLocator("data.bin#avro")
	require.Error(t, err)
	var uf *UnknownFormatError
	assert.ErrorAs(t, err, &uf)
}

func TestLocatorExtension(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"data.csv", "csv"},
		{"dir/data.PARQUET", "parquet"},
		{"https://x.test/a/b.jsonl?v=1", "jsonl"},
		{"noext", ""},
	}

	for _, tt := range tests {
		loc := Locator{Path: tt.path}
		assert.Equal(t, tt.want, loc.extension(), tt.path)
	}
}
