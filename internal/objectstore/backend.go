// Package objectstore provides the deep-tier object storage abstraction:
// a single Backend interface, an in-memory reference implementation, and
// adapters for S3-compatible stores, Baidu BOS, and Alibaba OSS.
//
// The contract deliberately folds "not found" into a data value instead of an
// error: a new user with no stored profile is the common case, and callers
// treat it as normal control flow. Every adapter translates its vendor's
// not-found error into the (nil, false, nil) form; all other vendor errors
// propagate unmodified. No adapter retries — retry policy belongs to the
// caller.
package objectstore

import "context"

// Backend is the uniform capability set over heterogeneous object stores.
// Implementations must satisfy the same semantics regardless of the vendor's
// consistency or pagination model.
type Backend interface {
	// Put uploads body under key, overwriting any existing object. There are
	// no partial or append semantics. contentType is advisory metadata passed
	// to the vendor API when non-empty; it is never validated against body.
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// Get returns the exact bytes previously stored under key. A key that
	// does not exist yields (nil, false, nil) — never an error.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)

	// Delete removes key. Deleting a non-existent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every key whose name begins with prefix. Order is
	// unspecified. Implementations fully drain vendor pagination before
	// returning.
	List(ctx context.Context, prefix string) ([]string, error)
}
