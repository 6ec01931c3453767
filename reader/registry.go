package reader

import (
	"io"
	"os"
	"strings"

	"github.com/vegasq/tablecat/logger"
)

// factory builds a reader over a byte source.
type factory func(src ByteSource, loc Locator, opts Options) (Reader, error)

// formatFactories is the static fragment-format table.
var formatFactories = map[string]factory{
	"csv": func(src ByteSource, loc Locator, opts Options) (Reader, error) {
		return NewCSVReader(src, opts), nil
	},
	"parquet": func(src ByteSource, loc Locator, opts Options) (Reader, error) {
		return NewParquetReader(src, opts), nil
	},
	"json": func(src ByteSource, loc Locator, opts Options) (Reader, error) {
		return NewJSONReader(src, loc.Selector, opts), nil
	},
	"jsonl": func(src ByteSource, loc Locator, opts Options) (Reader, error) {
		return NewJSONLReader(src, opts), nil
	},
	"html": func(src ByteSource, loc Locator, opts Options) (Reader, error) {
		return NewHTMLReader(src, loc.Selector, opts)
	},
	"markdown": func(src ByteSource, loc Locator, opts Options) (Reader, error) {
		return NewMarkdownReader(src, loc.Selector, opts)
	},
	"xml": func(src ByteSource, loc Locator, opts Options) (Reader, error) {
		return NewXMLReader(src, loc.Selector, opts), nil
	},
}

// extensionFormats is the static extension table.
var extensionFormats = map[string]string{
	"csv":      "csv",
	"parquet":  "parquet",
	"json":     "json",
	"jsonl":    "jsonl",
	"ndjson":   "jsonl",
	"html":     "html",
	"htm":      "html",
	"md":       "markdown",
	"markdown": "markdown",
	"xml":      "xml",
}

// Open resolves a locator string and constructs the reader for it.
// Resolution order: explicit fragment format, then path extension, then
// content sniffing over the first 4 KiB.
func Open(locatorString string, opts Options) (Reader, error) {
	loc, err := ResolveLocator(locatorString)
	if err != nil {
		return nil, err
	}

	// A local directory is a partitioned Parquet dataset.
	if loc.Scheme == SchemeFile {
		if info, statErr := os.Stat(loc.Path); statErr == nil && info.IsDir() {
			return NewParquetDatasetReader(loc.Path, opts)
		}
	}

	src, err := newByteSource(loc, opts)
	if err != nil {
		return nil, err
	}

	format := loc.Format
	if format == "" {
		format = extensionFormats[loc.extension()]
	}
	if format == "" {
		format, err = sniffFormat(src)
		if err != nil {
			return nil, err
		}
	}

	build, ok := formatFactories[format]
	if !ok {
		return nil, &UnknownFormatError{Locator: locatorString}
	}

	logger.Debug().
		Str("locator", locatorString).
		Str("format", format).
		Msg("opening reader")

	return build(src, loc, opts)
}

func newByteSource(loc Locator, opts Options) (ByteSource, error) {
	switch loc.Scheme {
	case SchemeHTTP:
		return NewHTTPSource(loc.Path, opts.HTTPClient), nil
	case SchemeS3:
		return NewS3Source(loc.Path, opts.S3)
	default:
		return NewFileSource(loc.Path), nil
	}
}

// sniffFormat inspects the first 4 KiB of content. Recognized, in
// order: the Parquet magic, HTML tags, an XML declaration, a Markdown
// separator row, a JSON leading brace or bracket, then CSV as the
// fallback.
func sniffFormat(src ByteSource) (string, error) {
	rc, err := src.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	head := make([]byte, 4096)
	n, err := io.ReadFull(rc, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", &IOError{Path: src.Name(), Cause: err}
	}
	head = head[:n]

	if len(head) >= 4 && string(head[:4]) == "PAR1" {
		return "parquet", nil
	}

	text := strings.ToLower(string(head))
	if strings.Contains(text, "<html") || strings.Contains(text, "<table") {
		return "html", nil
	}
	if strings.Contains(text, "<?xml") {
		return "xml", nil
	}
	if markdownSeparator(text) {
		return "markdown", nil
	}

	trimmed := strings.TrimLeft(string(head), " \t\r\n")
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return "json", nil
	}

	return "csv", nil
}

// markdownSeparator looks for a |---|-style separator row.
func markdownSeparator(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 4 || line[0] != '|' {
			continue
		}
		stripped := strings.Map(func(r rune) rune {
			switch r {
			case '|', '-', ':', ' ':
				return -1
			}
			return r
		}, line)
		if stripped == "" && strings.Contains(line, "---") {
			return true
		}
	}
	return false
}
