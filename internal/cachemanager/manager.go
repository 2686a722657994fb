// Package cachemanager provides a small generic cache used to memoize derived
// per-document state such as parsed structure.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager stores values of type V under keys of type K.
type CacheManager[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
	Len() int
}
