// Package metadata is the local key/value store backing the persisted
// session: the bearer token and the serialized user profile live here under
// fixed keys.
package metadata

import "context"

const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Repository stores opaque values under string keys. Get returns (nil, nil)
// for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}
