// Package s3 implements a seguid store on Amazon S3
// or any S3-compatible object store that supports conditional writes.
package s3

import (
	"bytes"
	"context"
	stderrs "errors"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
	"github.com/bobg/seguid/store/kv"
	"github.com/bobg/seguid/store/transform"
)

var _ kv.Store = &Store{}

// Store is an S3-based implementation of kv.Store.
// Each key is an object key.
// A value's version is its ETag,
// and conditional writes use If-Match and If-None-Match.
type Store struct {
	client *s3.Client
	bucket string
}

// Config holds construction parameters.
type Config struct {
	Region    string
	Bucket    string
	Endpoint  string // optional; if set enables custom endpoint (e.g. MinIO)
	PathStyle bool
}

// New produces a new Store using client and bucket.
func New(client *s3.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// NewFromConfig creates an S3 client from the default AWS configuration chain
// as modified by cfg.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client, cfg.Bucket), nil
}

// Get gets the value at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, kv.Version, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if isNotFound(err) {
		return nil, kv.NoVersion, seguid.ErrNotFound
	}
	if err != nil {
		return nil, kv.NoVersion, errors.Wrapf(err, "getting object %s", key)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, kv.NoVersion, errors.Wrapf(err, "reading contents of object %s", key)
	}
	return b, kv.Version(aws.ToString(out.ETag)), nil
}

// Put stores val at key if the key's current version is prev.
func (s *Store) Put(ctx context.Context, key string, val []byte, prev kv.Version) error {
	input := &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(val),
	}
	if prev == kv.NoVersion {
		input.IfNoneMatch = aws.String("*")
	} else {
		input.IfMatch = aws.String(string(prev))
	}

	// A conditional write to a missing key fails with 404.
	_, err := s.client.PutObject(ctx, input)
	if isConflict(err) || (prev != kv.NoVersion && isNotFound(err)) {
		return kv.ErrConflict
	}
	return errors.Wrapf(err, "putting object %s", key)
}

// List produces the keys having the given prefix and sorting after `after`, in lexicographic order.
// S3 lists object keys in lexicographic order of their UTF-8 bytes.
func (s *Store) List(ctx context.Context, prefix, after string, f func(string) error) error {
	input := &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix}
	if after != "" {
		input.StartAfter = &after
	}
	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return errors.Wrap(err, "listing objects")
		}
		for _, obj := range out.Contents {
			if err := f(aws.ToString(obj.Key)); err != nil {
				return err
			}
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return nil
		}
		input.ContinuationToken = out.NextContinuationToken
	}
}

type statusCoder interface {
	HTTPStatusCode() int
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if stderrs.As(err, &nsk) {
		return true
	}
	var sc statusCoder
	return stderrs.As(err, &sc) && sc.HTTPStatusCode() == http.StatusNotFound
}

func isConflict(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if stderrs.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	var sc statusCoder
	if stderrs.As(err, &sc) {
		switch sc.HTTPStatusCode() {
		case http.StatusPreconditionFailed, http.StatusConflict:
			return true
		}
	}
	return false
}

func init() {
	store.Register("s3", func(ctx context.Context, conf map[string]interface{}) (seguid.Store, error) {
		bucket, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		cfg := Config{Bucket: bucket}
		cfg.Region, _ = conf["region"].(string)
		cfg.Endpoint, _ = conf["endpoint"].(string)
		cfg.PathStyle, _ = conf["path_style"].(bool)

		s, err := NewFromConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		ts, err := transform.FromConfig(s, conf)
		if err != nil {
			return nil, err
		}
		return kv.NewMap(ts), nil
	})
}
