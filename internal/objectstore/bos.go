package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/baidubce/bce-sdk-go/bce"
	"github.com/baidubce/bce-sdk-go/services/bos"
	bosapi "github.com/baidubce/bce-sdk-go/services/bos/api"
)

// bosMaxKeys is the vendor page-size limit for ListObjects.
const bosMaxKeys = 1000

// BOS is a Backend over Baidu Object Storage. The vendor SDK does not accept
// a context; cancellation and timeouts are SDK-level configuration.
type BOS struct {
	bucket    string
	endpoint  string
	accessKey string
	secretKey string

	once      sync.Once
	client    *bos.Client
	clientErr error
}

// NewBOS creates a BOS backend. The client is constructed lazily on first use.
func NewBOS(bucket, accessKey, secretKey, endpoint string) *BOS {
	return &BOS{
		bucket:    bucket,
		endpoint:  endpoint,
		accessKey: accessKey,
		secretKey: secretKey,
	}
}

func (b *BOS) getClient() (*bos.Client, error) {
	b.once.Do(func() {
		client, err := bos.NewClient(b.accessKey, b.secretKey, b.endpoint)
		if err != nil {
			b.clientErr = fmt.Errorf("objectstore: failed to create bos client: %w", err)
			return
		}
		b.client = client
	})
	return b.client, b.clientErr
}

// Put uploads body under key.
func (b *BOS) Put(_ context.Context, key string, body []byte, contentType string) error {
	client, err := b.getClient()
	if err != nil {
		return err
	}

	var args *bosapi.PutObjectArgs
	if contentType != "" {
		args = &bosapi.PutObjectArgs{ContentType: contentType}
	}

	if _, err := client.PutObjectFromBytes(b.bucket, key, body, args); err != nil {
		return fmt.Errorf("objectstore: bos put %s: %w", key, err)
	}
	return nil
}

// Get downloads the object at key; a 404/NoSuchKey from the service becomes
// the absent sentinel.
func (b *BOS) Get(_ context.Context, key string) ([]byte, bool, error) {
	client, err := b.getClient()
	if err != nil {
		return nil, false, err
	}

	result, err := client.BasicGetObject(b.bucket, key)
	if err != nil {
		if isBOSNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("objectstore: bos get %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, false, fmt.Errorf("objectstore: bos read %s: %w", key, err)
	}
	return data, true, nil
}

// Delete removes key. BOS reports 404 for a missing object; that is swallowed
// to keep delete idempotent across backends.
func (b *BOS) Delete(_ context.Context, key string) error {
	client, err := b.getClient()
	if err != nil {
		return err
	}

	if err := client.DeleteObject(b.bucket, key); err != nil {
		if isBOSNotFound(err) {
			return nil
		}
		return fmt.Errorf("objectstore: bos delete %s: %w", key, err)
	}
	return nil
}

// List walks the marker-based pagination until IsTruncated is false.
func (b *BOS) List(_ context.Context, prefix string) ([]string, error) {
	client, err := b.getClient()
	if err != nil {
		return nil, err
	}

	var keys []string
	marker := ""
	for {
		result, err := client.ListObjects(b.bucket, &bosapi.ListObjectsArgs{
			Prefix:  prefix,
			Marker:  marker,
			MaxKeys: bosMaxKeys,
		})
		if err != nil {
			return nil, fmt.Errorf("objectstore: bos list %s: %w", prefix, err)
		}

		for _, obj := range result.Contents {
			keys = append(keys, obj.Key)
		}

		if !result.IsTruncated {
			return keys, nil
		}
		marker = result.NextMarker
	}
}

func isBOSNotFound(err error) bool {
	var svcErr *bce.BceServiceError
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode == 404 || svcErr.Code == "NoSuchKey"
	}
	return false
}
