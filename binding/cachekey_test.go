package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCacheKey(t *testing.T) {
	t.Parallel()

	t.Run("stable across calls and where map ordering", func(t *testing.T) {
		t.Parallel()

		opts := Options{Where: map[string]any{"a": 1, "b": 2, "c": 3}}
		first := buildCacheKey("users", "id", int64(1), opts)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, buildCacheKey("users", "id", int64(1), opts))
		}
	})

	t.Run("carries model, field and value segments", func(t *testing.T) {
		t.Parallel()

		key := buildCacheKey("users", "id", int64(42), Options{})
		assert.Contains(t, key, "users::id::42::")
	})

	t.Run("shape-affecting options change the key", func(t *testing.T) {
		t.Parallel()

		base := buildCacheKey("users", "id", int64(1), Options{})
		withSelect := buildCacheKey("users", "id", int64(1), Options{Select: []string{"name"}})
		withInclude := buildCacheKey("users", "id", int64(1), Options{Include: []string{"posts"}})
		withWhere := buildCacheKey("users", "id", int64(1), Options{Where: map[string]any{"active": true}})
		withKey := buildCacheKey("users", "id", int64(1), Options{Key: "id"})
		withTrashed := buildCacheKey("users", "id", int64(1), Options{WithTrashed: true})
		onlyTrashed := buildCacheKey("users", "id", int64(1), Options{OnlyTrashed: true})

		keys := []string{base, withSelect, withInclude, withWhere, withKey, withTrashed, onlyTrashed}
		seen := make(map[string]bool, len(keys))
		for _, k := range keys {
			assert.False(t, seen[k], "option shapes must not collide: %s", k)
			seen[k] = true
		}
	})

	t.Run("lock does not affect the key", func(t *testing.T) {
		t.Parallel()

		plain := buildCacheKey("users", "id", int64(1), Options{})
		locked := buildCacheKey("users", "id", int64(1), Options{Lock: LockForUpdate})
		assert.Equal(t, plain, locked)
	})

	t.Run("distinct values and models never collide textually", func(t *testing.T) {
		t.Parallel()

		assert.NotEqual(t,
			buildCacheKey("users", "id", int64(1), Options{}),
			buildCacheKey("users", "id", int64(2), Options{}),
		)
		assert.NotEqual(t,
			buildCacheKey("users", "id", int64(1), Options{}),
			buildCacheKey("posts", "id", int64(1), Options{}),
		)
	})
}

func TestOptionsCacheEnabled(t *testing.T) {
	t.Parallel()

	assert.False(t, Options{}.cacheEnabled())
	assert.True(t, Options{Cache: true}.cacheEnabled())
	assert.True(t, Options{CacheTTL: 1}.cacheEnabled())
	assert.False(t, Options{Cache: true, Query: func() {}}.cacheEnabled(),
		"query modifier must bypass the cache")
}
