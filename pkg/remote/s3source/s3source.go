// Package s3source implements remote.Source over an S3-compatible bucket.
// Folders are key prefixes; listing pages follow ListObjectsV2 continuation tokens.
package s3source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/joe/img-updater/pkg/remote"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// Config holds S3 connection settings.
type Config struct {
	Endpoint  string // optional, for S3-compatible stores (path-style addressing)
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	PageSize  int32
}

// API is the subset of the S3 client the source uses.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source lists and fetches objects from one bucket.
type Source struct {
	api      API
	bucket   string
	pageSize int32
}

// New loads AWS configuration and creates a bucket source.
func New(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithAPI(client, cfg.Bucket, cfg.PageSize), nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api API, bucket string, pageSize int32) *Source {
	return &Source{api: api, bucket: bucket, pageSize: pageSize}
}

// List returns one page of objects under folder/.
func (s *Source) List(ctx context.Context, folder, cursor string) (remote.Page, error) {
	prefix := prefixFor(folder)

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	if cursor != "" {
		input.ContinuationToken = aws.String(cursor)
	}
	if s.pageSize > 0 {
		input.MaxKeys = aws.Int32(s.pageSize)
	}

	out, err := s.api.ListObjectsV2(ctx, input)
	if err != nil {
		return remote.Page{}, fmt.Errorf("list %s/%s: %w", s.bucket, prefix, remote.Classify(err))
	}

	page := remote.Page{Entries: make([]remote.Entry, 0, len(out.Contents))}

	for _, object := range out.Contents {
		key := aws.ToString(object.Key)
		if strings.HasSuffix(key, "/") {
			continue
		}

		entry := remote.Entry{
			Name: strings.TrimPrefix(key, prefix),
			Size: remote.UnknownSize,
		}
		if object.LastModified != nil {
			entry.ModifiedAt = remote.TimePtr(*object.LastModified)
		}
		if object.Size != nil {
			entry.Size = *object.Size
		}

		page.Entries = append(page.Entries, entry)
	}

	if aws.ToBool(out.IsTruncated) {
		page.Cursor = aws.ToString(out.NextContinuationToken)
	}

	return page, nil
}

// Fetch opens one object.
func (s *Source) Fetch(ctx context.Context, folder, name string) (io.ReadCloser, error) {
	key := prefixFor(folder) + name

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("get %s/%s: %w", s.bucket, key, remote.ErrNotFound)
		}

		return nil, fmt.Errorf("get %s/%s: %w", s.bucket, key, remote.Classify(err))
	}

	return remote.TransientReader(out.Body), nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}

func prefixFor(folder string) string {
	prefix := strings.Trim(folder, "/")
	if prefix == "" {
		return ""
	}

	return prefix + "/"
}
