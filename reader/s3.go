package reader

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client the byte source needs.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// s3Source serves bytes from an S3 object using the object-store range
// API. Credentials come from the process environment.
type s3Source struct {
	uri    string
	bucket string
	key    string
	client S3API

	size   int64
	probed bool
}

// NewS3Source builds a byte source over an s3://bucket/key URI. When
// client is nil the default AWS configuration is loaded and missing
// credentials surface as an AuthError.
func NewS3Source(uri string, client S3API) (ByteSource, error) {
	trimmed := strings.TrimPrefix(uri, "s3://")
	bucket, key, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || key == "" {
		return nil, &IOError{Path: uri, Cause: fmt.Errorf("malformed s3 uri")}
	}

	if client == nil {
		cfg, err := config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, &AuthError{Path: uri, Cause: err}
		}
		if _, err := cfg.Credentials.Retrieve(context.Background()); err != nil {
			return nil, &AuthError{Path: uri, Cause: err}
		}
		client = s3.NewFromConfig(cfg)
	}

	return &s3Source{uri: uri, bucket: bucket, key: key, client: client}, nil
}

func (s *s3Source) Name() string {
	return s.uri
}

func (s *s3Source) Open() (io.ReadCloser, error) {
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, &IOError{Path: s.uri, Cause: err}
	}
	return out.Body, nil
}

func (s *s3Source) probe() error {
	if s.probed {
		return nil
	}
	out, err := s.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return &IOError{Path: s.uri, Cause: err}
	}
	if out.ContentLength != nil {
		s.size = *out.ContentLength
	}
	s.probed = true
	return nil
}

func (s *s3Source) ReaderAt() (io.ReaderAt, int64, error) {
	if err := s.probe(); err != nil {
		return nil, 0, err
	}
	return &s3RangeReader{src: s}, s.size, nil
}

func (s *s3Source) Close() error {
	return nil
}

// s3RangeReader adapts ranged GetObject calls to io.ReaderAt.
type s3RangeReader struct {
	src *s3Source
}

func (r *s3RangeReader) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	end := off + int64(len(p)) - 1
	rng := "bytes=" + strconv.FormatInt(off, 10) + "-" + strconv.FormatInt(end, 10)

	out, err := r.src.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(r.src.bucket),
		Key:    aws.String(r.src.key),
		Range:  aws.String(rng),
	})
	if err != nil {
		return 0, &IOError{Path: r.src.uri, Cause: err}
	}
	defer out.Body.Close()

	n, err := io.ReadFull(out.Body, p)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return n, io.EOF
	}
	if err != nil {
		return n, &IOError{Path: r.src.uri, Cause: err}
	}
	return n, nil
}
