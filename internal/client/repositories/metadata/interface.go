// Package metadata is the client's durable key-value table. The session
// store keeps its serialized state under a handful of well-known keys.
package metadata

import (
	"context"
)

// Repository reads and writes opaque values by key. Get reports found=false
// for a missing key rather than an error.
type Repository interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
}
