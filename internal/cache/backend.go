package cache

import (
	"context"
	"encoding/binary"
	"time"
)

// Backend stores tag versions and view entries.
//
// Version keys never expire; an invalidation is a version bump. Entries
// expire after their TTL, which bounds staleness if a bump is lost.
type Backend interface {
	// Versions returns the current version of each key, 0 for unknown keys.
	Versions(ctx context.Context, keys []string) ([]uint64, error)
	// Bump increments the version of each key.
	Bump(ctx context.Context, keys []string) error
	// Load returns a stored entry; ok is false on a miss.
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Save stores an entry for ttl.
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

const (
	versionPrefix = "overflow:tagv:"
	entryPrefix   = "overflow:view:"
)

func versionKeys(tags []Tag) []string {
	keys := make([]string, len(tags))
	for i, t := range tags {
		keys[i] = versionPrefix + t.String()
	}
	return keys
}

func encodeVersion(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func decodeVersion(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
