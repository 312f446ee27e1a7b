package library

import "time"

// Store is the KV layer the repositories sit on. Values are opaque bytes;
// a zero ttl means the entry never expires. ScanPrefix returns values in
// key order so listings are stable across backends.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	ScanPrefix(prefix string) ([][]byte, error)
	Close() error
}
