package query

import (
	"encoding/json"
	"slices"
)

// Key identifies a cached query, for example Key{"userPosts", email}.
// Elements are compared in order; invalidation matches by prefix.
type Key []string

// String returns the canonical form of the key.
func (k Key) String() string {
	b, _ := json.Marshal([]string(k))
	return string(b)
}

// HasPrefix reports whether k starts with every element of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	return len(prefix) <= len(k) && slices.Equal(k[:len(prefix)], prefix)
}
