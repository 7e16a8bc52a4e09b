// Package oemref cleans OEM part references and finds the reference
// prefixes that dominate a vehicle platform, so that SEO blocks only list
// exact OEM matches.
package oemref

import (
	"strings"
	"unicode"
)

// prefixLen is the size of the structural prefix used for clustering
const prefixLen = 3

// Normalize canonicalizes a raw reference: trimmed, uppercased, with every
// whitespace rune and hyphen removed. Normalize(Normalize(s)) == Normalize(s).
func Normalize(ref string) string {
	ref = strings.ToUpper(strings.TrimSpace(ref))

	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, ref)
}

// ExtractPrefix returns the first three characters of the normalized
// reference. References shorter than three characters or whose first three
// characters are not A-Z/0-9 have no prefix.
func ExtractPrefix(ref string) (string, bool) {
	normalized := Normalize(ref)
	if len(normalized) < prefixLen {
		return "", false
	}

	for i := 0; i < prefixLen; i++ {
		if !isAlnum(normalized[i]) {
			return "", false
		}
	}

	return normalized[:prefixLen], true
}

func isAlnum(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Format re-inserts readable spacing into a reference based on the length
// of its normalized form:
//
//	10 or 11 chars -> 2 2 3 3(4)   e.g. "41 06 003 79R"
//	9 chars        -> 3 3 3
//	8 chars        -> 4 4
//	12+ chars      -> groups of 3
//
// Any other length returns the trimmed, uppercased input untouched.
func Format(ref string) string {
	normalized := []rune(Normalize(ref))
	original := strings.ToUpper(strings.TrimSpace(ref))

	n := len(normalized)
	switch {
	case n < 4:
		return original
	case n == 10 || n == 11:
		return joinGroups(normalized, 2, 2, 3, n-7)
	case n == 9:
		return joinGroups(normalized, 3, 3, 3)
	case n == 8:
		return joinGroups(normalized, 4, 4)
	case n >= 12:
		sizes := make([]int, 0, n/3+1)
		for rest := n; rest > 0; rest -= 3 {
			sizes = append(sizes, min(3, rest))
		}
		return joinGroups(normalized, sizes...)
	default:
		return original
	}
}

// joinGroups splits s into consecutive groups of the given sizes and joins
// them with single spaces. The sizes must add up to len(s).
func joinGroups(s []rune, sizes ...int) string {
	var b strings.Builder
	b.Grow(len(s) + len(sizes))

	pos := 0
	for i, size := range sizes {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(s[pos : pos+size]))
		pos += size
	}

	return b.String()
}
