package reader

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
)

// ByteSource abstracts where a source's bytes come from. Streaming
// readers use Open; the Parquet reader uses ReaderAt so it can fetch the
// footer and individual row-group byte ranges.
type ByteSource interface {
	// Name identifies the source in errors and logs.
	Name() string
	// Open returns the full content as a stream.
	Open() (io.ReadCloser, error)
	// ReaderAt returns random access to the content plus its size.
	ReaderAt() (io.ReaderAt, int64, error)
	// Close releases anything held by ReaderAt.
	Close() error
}

// fileSource serves bytes from a local file.
type fileSource struct {
	path string
	file *os.File
}

// NewFileSource builds a byte source over a local path.
func NewFileSource(path string) ByteSource {
	return &fileSource{path: path}
}

func (f *fileSource) Name() string {
	return f.path
}

func (f *fileSource) Open() (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, &IOError{Path: f.path, Cause: err}
	}
	return file, nil
}

func (f *fileSource) ReaderAt() (io.ReaderAt, int64, error) {
	if f.file == nil {
		file, err := os.Open(f.path)
		if err != nil {
			return nil, 0, &IOError{Path: f.path, Cause: err}
		}
		f.file = file
	}
	stat, err := f.file.Stat()
	if err != nil {
		return nil, 0, &IOError{Path: f.path, Cause: err}
	}
	return f.file, stat.Size(), nil
}

func (f *fileSource) Close() error {
	if f.file == nil {
		return nil
	}
	file := f.file
	f.file = nil
	return file.Close()
}

// httpSource serves bytes over HTTP(S), using range requests when the
// origin advertises support and falling back to a full download when it
// does not.
type httpSource struct {
	url    string
	client *http.Client

	size     int64
	ranges   bool
	probed   bool
	buffered []byte
}

// NewHTTPSource builds a byte source over an HTTP(S) URL.
func NewHTTPSource(url string, client *http.Client) ByteSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpSource{url: url, client: client}
}

func (h *httpSource) Name() string {
	return h.url
}

func (h *httpSource) Open() (io.ReadCloser, error) {
	resp, err := h.client.Get(h.url)
	if err != nil {
		return nil, &IOError{Path: h.url, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &IOError{Path: h.url, Cause: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	return resp.Body, nil
}

// probe issues a HEAD request to learn the content length and whether
// the origin accepts range requests.
func (h *httpSource) probe() error {
	if h.probed {
		return nil
	}
	resp, err := h.client.Head(h.url)
	if err != nil {
		return &IOError{Path: h.url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &IOError{Path: h.url, Cause: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	h.size = resp.ContentLength
	h.ranges = resp.Header.Get("Accept-Ranges") == "bytes" && h.size >= 0
	h.probed = true
	return nil
}

func (h *httpSource) ReaderAt() (io.ReaderAt, int64, error) {
	if h.buffered != nil {
		return bytes.NewReader(h.buffered), int64(len(h.buffered)), nil
	}

	if err := h.probe(); err != nil {
		return nil, 0, err
	}

	if h.ranges {
		return &httpRangeReader{src: h}, h.size, nil
	}

	// No range support: download once and serve from memory.
	body, err := h.Open()
	if err != nil {
		return nil, 0, err
	}
	defer body.Close()

	buffered, err := io.ReadAll(body)
	if err != nil {
		return nil, 0, &IOError{Path: h.url, Cause: err}
	}
	h.buffered = buffered
	return bytes.NewReader(h.buffered), int64(len(h.buffered)), nil
}

func (h *httpSource) Close() error {
	h.buffered = nil
	return nil
}

// httpRangeReader adapts HTTP range requests to io.ReaderAt.
type httpRangeReader struct {
	src *httpSource
}

func (r *httpRangeReader) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	req, err := http.NewRequest(http.MethodGet, r.src.url, nil)
	if err != nil {
		return 0, &IOError{Path: r.src.url, Cause: err}
	}
	end := off + int64(len(p)) - 1
	req.Header.Set("Range", "bytes="+strconv.FormatInt(off, 10)+"-"+strconv.FormatInt(end, 10))

	resp, err := r.src.client.Do(req)
	if err != nil {
		return 0, &IOError{Path: r.src.url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return 0, &IOError{Path: r.src.url, Cause: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	n, err := io.ReadFull(resp.Body, p)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return n, io.EOF
	}
	if err != nil {
		return n, &IOError{Path: r.src.url, Cause: err}
	}
	return n, nil
}
