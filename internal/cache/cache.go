package cache

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Cache fronts expensive guest reads. It is not authoritative: every value
// has a TTL, any write path invalidates matching keys before returning, and
// dropping the whole cache only degrades to direct store reads.
type Cache interface {
	// Get returns the cached value and whether it was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// InvalidatePattern removes every key matching a glob pattern.
	InvalidatePattern(ctx context.Context, pattern string) error
	Close() error
}

// Cache keys are namespaced under "guests:" so one pattern invalidation
// covers every read the engine can have staled.
func DetailKey(guestID string) string {
	return "guests:detail:" + guestID
}

// ListKey escapes the caller-supplied components so a search string
// containing the separator cannot collide with another query's key.
func ListKey(status, search string, page, pageSize int) string {
	return fmt.Sprintf("guests:list:%s:%s:%d:%d",
		url.QueryEscape(status), url.QueryEscape(search), page, pageSize)
}

func StatsKey() string {
	return "guests:stats"
}
