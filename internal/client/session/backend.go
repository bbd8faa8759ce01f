package session

import "context"

// Backend is a key/value storage area. Get returns (nil, nil) when the key
// is absent.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
