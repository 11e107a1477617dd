// Package version compares dotted library version strings.
package version

import (
	"strconv"
	"strings"
)

// IsOutdated reports whether current is older than latest.
//
// Both strings are split on '.', and components are compared pairwise up to
// the shorter length after dropping every non-digit character. The first
// differing pair decides. When all compared pairs are equal, current is
// outdated only if it has fewer components than latest ("1.9" < "1.9.1").
// Anything that does not parse is treated as not outdated.
func IsOutdated(current, latest string) bool {
	cur := splitComponents(current)
	lat := splitComponents(latest)

	n := len(cur)
	if len(lat) < n {
		n = len(lat)
	}
	for i := 0; i < n; i++ {
		c, ok := parseComponent(cur[i])
		if !ok {
			return false
		}
		l, ok := parseComponent(lat[i])
		if !ok {
			return false
		}
		if c < l {
			return true
		}
		if c > l {
			return false
		}
	}
	return len(cur) < len(lat)
}

// splitComponents splits on '.' and drops trailing empty components, so
// "1.11.1." has three components.
func splitComponents(v string) []string {
	parts := strings.Split(v, ".")
	for len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func parseComponent(part string) (int, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, part)
	n, err := strconv.ParseInt(digits, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}
