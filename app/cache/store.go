package cache

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("cache key not found")

// Store is the key-value persistence behind the gate. Ordering across keys is not guaranteed.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context, key string) error
	ClearAll(ctx context.Context) error
}
