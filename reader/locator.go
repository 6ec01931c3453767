package reader

import (
	"strings"
)

// Scheme identifies where a source's bytes live.
type Scheme int

const (
	SchemeFile Scheme = iota
	SchemeHTTP
	SchemeS3
)

// String returns the scheme name.
func (s Scheme) String() string {
	switch s {
	case SchemeFile:
		return "file"
	case SchemeHTTP:
		return "http"
	case SchemeS3:
		return "s3"
	default:
		return "?"
	}
}

// Locator is a normalized source identifier: scheme, path, and the
// optional `#format[:selector]` fragment.
type Locator struct {
	Scheme   Scheme
	Path     string // local path, full URL, or s3://bucket/key
	Format   string // explicit format hint from the fragment, or ""
	Selector string // table index, JSON path, or XML element name
}

// Raw reassembles the locator without the fragment.
func (l Locator) Raw() string {
	return l.Path
}

// knownFormats lists the fragment format hints the registry accepts.
var knownFormats = map[string]bool{
	"csv":      true,
	"parquet":  true,
	"json":     true,
	"jsonl":    true,
	"html":     true,
	"markdown": true,
	"xml":      true,
}

// ResolveLocator parses a locator string into its normalized form. An
// explicit fragment format must be one of the registry's known formats.
func ResolveLocator(raw string) (Locator, error) {
	loc := Locator{Path: raw}

	if i := strings.LastIndexByte(raw, '#'); i >= 0 {
		fragment := raw[i+1:]
		loc.Path = raw[:i]

		format := fragment
		if j := strings.IndexByte(fragment, ':'); j >= 0 {
			format = fragment[:j]
			loc.Selector = fragment[j+1:]
		}
		format = strings.ToLower(format)
		if !knownFormats[format] {
			return Locator{}, &UnknownFormatError{Locator: raw}
		}
		loc.Format = format
	}

	switch {
	case strings.HasPrefix(loc.Path, "http://"), strings.HasPrefix(loc.Path, "https://"):
		loc.Scheme = SchemeHTTP
	case strings.HasPrefix(loc.Path, "s3://"):
		loc.Scheme = SchemeS3
	default:
		loc.Scheme = SchemeFile
	}

	return loc, nil
}

// extension returns the lower-cased extension of the last path
// component, without the dot.
func (l Locator) extension() string {
	path := l.Path
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return strings.ToLower(path[i+1:])
	}
	return ""
}
