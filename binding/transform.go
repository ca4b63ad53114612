package binding

import (
	"strconv"

	"github.com/google/uuid"
)

// IsIntString reports whether s is a decimal integer that fits in
// int64. Values that overflow are not integers for binding purposes:
// they stay strings and resolve to "not found" instead of silently
// wrapping.
func IsIntString(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// IsUUID reports whether s is a canonical UUID string.
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}

// IsObjectIDHex reports whether s looks like a Mongo ObjectId: exactly
// 24 lowercase/uppercase hex characters.
func IsObjectIDHex(s string) bool {
	if len(s) != 24 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// DefaultTransform is the coercion used when neither the adapter nor
// the caller supplies one: integer-like strings become int64,
// UUID- and ObjectId-shaped strings are preserved verbatim, everything
// else passes through unchanged.
func DefaultTransform(raw string) any {
	if IsUUID(raw) || IsObjectIDHex(raw) {
		return raw
	}
	if IsIntString(raw) {
		n, _ := strconv.ParseInt(raw, 10, 64)
		return n
	}
	return raw
}
