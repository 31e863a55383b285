package objectstore

import (
	"log"
	"strings"

	"github.com/scrypster/membase/internal/config"
)

// NewFromConfig selects and constructs a backend from configuration.
//
// The credential fields are all-or-nothing: when endpoint, bucket, access key
// id, or secret are missing the factory returns the in-memory reference
// backend instead of failing. Missing object-store configuration never
// raises — a non-persistent fallback is safe for local development, unlike
// the relational tier where absence is fatal.
//
// A bare-hostname endpoint is normalized to a fully-qualified https:// URL.
func NewFromConfig(cfg config.ObjectStoreConfig) Backend {
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		log.Printf("objectstore: incomplete credentials, using in-memory backend (non-persistent)")
		return NewMemory()
	}

	endpoint := normalizeEndpoint(cfg.Endpoint)

	switch strings.ToLower(cfg.Provider) {
	case "bos":
		return NewBOS(cfg.Bucket, cfg.AccessKeyID, cfg.SecretAccessKey, endpoint)
	case "oss":
		return NewOSS(cfg.Bucket, cfg.AccessKeyID, cfg.SecretAccessKey, endpoint)
	case "", "s3":
		return NewS3(S3Options{
			Bucket:    cfg.Bucket,
			Endpoint:  endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKeyID,
			SecretKey: cfg.SecretAccessKey,
		})
	default:
		log.Printf("objectstore: unknown provider %q, using in-memory backend", cfg.Provider)
		return NewMemory()
	}
}

// normalizeEndpoint defaults a bare hostname to the secure scheme.
func normalizeEndpoint(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}
