// Package store provides the key-value staging area used to buffer request
// logs between the hot path and the periodic database flush.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key does not exist or has expired.
var ErrNotFound = errors.New("store: key not found")

// Store is the staging interface. Values are opaque byte slices with an
// optional TTL; sets hold string members without expiry.
type Store interface {
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
	Del(keys ...string) error
	Exists(key string) (bool, error)

	SAdd(key string, members ...any) error
	SPopN(key string, count int64) ([]string, error)

	Close() error
}
