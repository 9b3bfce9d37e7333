package cache

import (
	"fmt"
	"strings"
)

// NullKey is the canonical rendering of a nil key tuple
const NullKey = "null"

// Key renders a primary key tuple canonically: "[a,b]", or "null" for a nil tuple.
// Two tuples address the same cache entry iff their renderings are equal.
func Key(values []any) string {
	if values == nil {
		return NullKey
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%v", v)
	}
	b.WriteByte(']')
	return b.String()
}
