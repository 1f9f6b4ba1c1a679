// Package natsort orders names with embedded numbers the way people read
// them: "t2" before "t10".
package natsort

import (
	"sort"
	"strings"
)

// key alternates text and digit runs: text, number, text, ..., text.
// A name always yields an odd number of parts, starting and ending with text.
func key(s string) []string {
	parts := make([]string, 0, 3)
	start := 0
	for i := 0; i < len(s); {
		if !isDigit(s[i]) {
			i++
			continue
		}
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		parts = append(parts, s[start:i], s[i:j])
		start, i = j, j
	}
	return append(parts, s[start:])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// compareNumbers compares digit runs by value, without overflow
func compareNumbers(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// Compare orders a and b part by part; text parts compare bytewise and
// number parts by value. When one key is a prefix of the other the shorter
// sorts first.
func Compare(a, b string) int {
	ka, kb := key(a), key(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		var c int
		if i%2 == 0 {
			c = strings.Compare(ka[i], kb[i])
		} else {
			c = compareNumbers(ka[i], kb[i])
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case len(ka) < len(kb):
		return -1
	case len(ka) > len(kb):
		return 1
	}
	return 0
}

// Less reports whether a sorts before b
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Strings sorts names in place. Names that compare equal keep their order.
func Strings(names []string) {
	sort.SliceStable(names, func(i, j int) bool { return Less(names[i], names[j]) })
}
