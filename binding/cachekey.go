package binding

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// keySeparator delimits cache key segments.
const keySeparator = "::"

// buildCacheKey derives the composite cache key for one binding:
// model identity, lookup field, stringified lookup value, and a hash of
// the option subset that affects which record is returned and in what
// shape (Key, Include, Where, Select, soft-delete visibility). Options
// that only affect locking are excluded; the Query escape hatch never
// reaches this function because such bindings bypass the cache
// entirely.
func buildCacheKey(model, field string, value any, opts Options) string {
	h := xxhash.New()
	writeSegment(h, "key", opts.Key)
	writeSegment(h, "include", strings.Join(opts.Include, ","))
	writeSegment(h, "select", strings.Join(opts.Select, ","))
	writeSegment(h, "where", canonicalWhere(opts.Where))
	writeSegment(h, "trashed", trashedMode(opts))

	return strings.Join([]string{
		model,
		field,
		fmt.Sprintf("%v", value),
		strconv.FormatUint(h.Sum64(), 16),
	}, keySeparator)
}

func trashedMode(opts Options) string {
	switch {
	case opts.OnlyTrashed:
		return "only"
	case opts.WithTrashed:
		return "with"
	default:
		return ""
	}
}

func writeSegment(h *xxhash.Digest, name, value string) {
	// Digest.WriteString never returns an error.
	_, _ = h.WriteString(name)
	_, _ = h.WriteString("=")
	_, _ = h.WriteString(value)
	_, _ = h.WriteString(";")
}

// canonicalWhere serializes the Where map with sorted keys so equal
// conditions always hash identically regardless of map iteration order.
func canonicalWhere(where map[string]any) string {
	if len(where) == 0 {
		return ""
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(pairs, ",")
}
