package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3 is a Backend over any S3-compatible store (AWS S3, MinIO, and friends).
// The client is constructed lazily on first use — construction reads
// credentials and region once and is cached for the life of the backend.
type S3 struct {
	bucket    string
	endpoint  string // empty for AWS S3 proper
	region    string
	accessKey string
	secretKey string

	once     sync.Once
	client   *s3.Client
	clientErr error
}

// S3Options configures an S3 backend.
type S3Options struct {
	Bucket   string
	Endpoint string // optional, e.g. https://localhost:9000 for MinIO
	Region   string // defaults to us-east-1
	// AccessKey and SecretKey are optional; when empty the SDK's default
	// credential chain (env, shared config, instance profile) applies.
	AccessKey string
	SecretKey string
}

// NewS3 creates an S3-compatible backend. No network access happens until the
// first operation.
func NewS3(opts S3Options) *S3 {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	return &S3{
		bucket:    opts.Bucket,
		endpoint:  opts.Endpoint,
		region:    region,
		accessKey: opts.AccessKey,
		secretKey: opts.SecretKey,
	}
}

// getClient builds the SDK client exactly once. The sync.Once guard removes
// the first-call race under concurrent access.
func (s *S3) getClient(ctx context.Context) (*s3.Client, error) {
	s.once.Do(func() {
		loadOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(s.region),
		}
		if s.accessKey != "" && s.secretKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(s.accessKey, s.secretKey, ""),
			))
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			s.clientErr = fmt.Errorf("objectstore: failed to load s3 config: %w", err)
			return
		}

		s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if s.endpoint != "" {
				o.BaseEndpoint = aws.String(s.endpoint)
				// MinIO and most self-hosted stores require path-style keys.
				o.UsePathStyle = true
			}
		})
	})

	return s.client, s.clientErr
}

// Put uploads body under key with full-overwrite semantics.
func (s *S3) Put(ctx context.Context, key string, body []byte, contentType string) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("objectstore: s3 put %s: %w", key, err)
	}
	return nil
}

// Get downloads the object at key, translating the vendor's NoSuchKey error
// into the absent sentinel. Every other error propagates.
func (s *S3) Get(ctx context.Context, key string) ([]byte, bool, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, false, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("objectstore: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("objectstore: s3 read %s: %w", key, err)
	}
	return data, true, nil
}

// Delete removes key. S3 deletes are idempotent: deleting a missing key
// succeeds at the wire level already.
func (s *S3) Delete(ctx context.Context, key string) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}

	if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("objectstore: s3 delete %s: %w", key, err)
	}
	return nil
}

// List drains the ListObjectsV2 paginator completely and returns the
// flattened key set.
func (s *S3) List(ctx context.Context, prefix string) ([]string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("objectstore: s3 list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// isS3NotFound matches the typed NoSuchKey error plus the generic NotFound
// code some S3-compatible stores return instead.
func isS3NotFound(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
