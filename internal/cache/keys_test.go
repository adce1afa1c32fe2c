package cache_test

import (
	"testing"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/cache"

	"github.com/stretchr/testify/assert"
)

func TestKeysAreNamespaced(t *testing.T) {
	assert.Equal(t, "guests:detail:G001", cache.DetailKey("G001"))
	assert.Equal(t, "guests:stats", cache.StatsKey())
	assert.Equal(t, "guests:list:CHECKED_IN:ada:1:50", cache.ListKey("CHECKED_IN", "ada", 1, 50))
}

func TestListKeySeparatorInSearchCannotCollide(t *testing.T) {
	// Without escaping these two queries would render the same raw key.
	a := cache.ListKey("a", "b:1", 2, 50)
	b := cache.ListKey("a:b", "1", 2, 50)
	assert.NotEqual(t, a, b)

	// A colon in the search must not leak a raw separator into the key.
	assert.NotContains(t, cache.ListKey("", "x:y", 1, 50), ":x:y:")
}
