package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves one object from memory, honoring Range headers.
type fakeS3 struct {
	bucket string
	key    string
	data   []byte
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if aws.ToString(params.Bucket) != f.bucket || aws.ToString(params.Key) != f.key {
		return nil, fmt.Errorf("no such key")
	}

	data := f.data
	if params.Range != nil {
		spec := strings.TrimPrefix(aws.ToString(params.Range), "bytes=")
		parts := strings.SplitN(spec, "-", 2)
		start, _ := strconv.ParseInt(parts[0], 10, 64)
		end, _ := strconv.ParseInt(parts[1], 10, 64)
		if end >= int64(len(data)) {
			end = int64(len(data)) - 1
		}
		data = data[start : end+1]
	}

	length := int64(len(data))
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: &length,
	}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if aws.ToString(params.Bucket) != f.bucket || aws.ToString(params.Key) != f.key {
		return nil, fmt.Errorf("no such key")
	}
	length := int64(len(f.data))
	return &s3.HeadObjectOutput{ContentLength: &length}, nil
}

func TestS3SourceRangeReads(t *testing.T) {
	client := &fakeS3{bucket: "b", key: "data/x.bin", data: []byte("0123456789")}

	src, err := NewS3Source("s3://b/data/x.bin", client)
	require.NoError(t, err)

	ra, size, err := src.ReaderAt()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	buf := make([]byte, 3)
	n, err := ra.ReadAt(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "456", string(buf))
}

func TestS3SourceOpen(t *testing.T) {
	client := &fakeS3{bucket: "b", key: "k.csv", data: []byte("a,b\n1,2\n")}

	src, err := NewS3Source("s3://b/k.csv", client)
	require.NoError(t, err)

	rc, err := src.Open()
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(content))
}

func TestS3SourceMalformedURI(t *testing.T) {
	_, err := NewS3Source("s3://bucketonly", &fakeS3{})
	require.Error(t, err)
	var ioErr *IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestS3ReaderThroughRegistry(t *testing.T) {
	client := &fakeS3{bucket: "b", key: "d.csv", data: []byte("id,v\n1,10\n2,20\n")}

	r, err := Open("s3://b/d.csv", Options{S3: client})
	require.NoError(t, err)
	defer r.Close()

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)
	assert.Len(t, rows, 2)
}
