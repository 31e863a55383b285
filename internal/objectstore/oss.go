package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSS is a Backend over Alibaba Cloud Object Storage Service. As with BOS,
// the vendor SDK is context-free; the bucket handle is created lazily and
// cached.
type OSS struct {
	bucket    string
	endpoint  string
	accessKey string
	secretKey string

	once      sync.Once
	handle    *oss.Bucket
	handleErr error
}

// NewOSS creates an OSS backend. No network access happens until the first
// operation.
func NewOSS(bucket, accessKey, secretKey, endpoint string) *OSS {
	return &OSS{
		bucket:    bucket,
		endpoint:  endpoint,
		accessKey: accessKey,
		secretKey: secretKey,
	}
}

func (o *OSS) getBucket() (*oss.Bucket, error) {
	o.once.Do(func() {
		client, err := oss.New(o.endpoint, o.accessKey, o.secretKey)
		if err != nil {
			o.handleErr = fmt.Errorf("objectstore: failed to create oss client: %w", err)
			return
		}
		handle, err := client.Bucket(o.bucket)
		if err != nil {
			o.handleErr = fmt.Errorf("objectstore: failed to open oss bucket %s: %w", o.bucket, err)
			return
		}
		o.handle = handle
	})
	return o.handle, o.handleErr
}

// Put uploads body under key.
func (o *OSS) Put(_ context.Context, key string, body []byte, contentType string) error {
	bucket, err := o.getBucket()
	if err != nil {
		return err
	}

	var opts []oss.Option
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}

	if err := bucket.PutObject(key, bytes.NewReader(body), opts...); err != nil {
		return fmt.Errorf("objectstore: oss put %s: %w", key, err)
	}
	return nil
}

// Get downloads the object at key; a 404 service error becomes the absent
// sentinel.
func (o *OSS) Get(_ context.Context, key string) ([]byte, bool, error) {
	bucket, err := o.getBucket()
	if err != nil {
		return nil, false, err
	}

	rc, err := bucket.GetObject(key)
	if err != nil {
		if isOSSNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("objectstore: oss get %s: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("objectstore: oss read %s: %w", key, err)
	}
	return data, true, nil
}

// Delete removes key. OSS deletes are idempotent at the wire level.
func (o *OSS) Delete(_ context.Context, key string) error {
	bucket, err := o.getBucket()
	if err != nil {
		return err
	}

	if err := bucket.DeleteObject(key); err != nil {
		return fmt.Errorf("objectstore: oss delete %s: %w", key, err)
	}
	return nil
}

// List walks the marker-based pagination until IsTruncated is false.
func (o *OSS) List(_ context.Context, prefix string) ([]string, error) {
	bucket, err := o.getBucket()
	if err != nil {
		return nil, err
	}

	var keys []string
	marker := ""
	for {
		result, err := bucket.ListObjects(oss.Prefix(prefix), oss.Marker(marker))
		if err != nil {
			return nil, fmt.Errorf("objectstore: oss list %s: %w", prefix, err)
		}

		for _, obj := range result.Objects {
			keys = append(keys, obj.Key)
		}

		if !result.IsTruncated {
			return keys, nil
		}
		marker = result.NextMarker
	}
}

func isOSSNotFound(err error) bool {
	var svcErr oss.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode == 404 || svcErr.Code == "NoSuchKey"
	}
	return false
}
