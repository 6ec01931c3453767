package reader

import "fmt"

// UnknownFormatError reports a locator that cannot be bound to any
// registered reader.
type UnknownFormatError struct {
	Locator string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown source format: %s", e.Locator)
}

// IOError wraps a file, HTTP, or S3 access failure.
type IOError struct {
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error reading %s: %v", e.Path, e.Cause)
}

func (e *IOError) Unwrap() error {
	return e.Cause
}

// AuthError reports missing or unusable credentials for a remote store.
type AuthError struct {
	Path  string
	Cause error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error for %s: %v", e.Path, e.Cause)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// DataError reports a malformed record the reader cannot recover from.
// Most malformed input degrades to null cells and a warning instead.
type DataError struct {
	Path   string
	Detail string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("malformed data in %s: %s", e.Path, e.Detail)
}
