package common

import "strings"

// HasAny returns true if s contains any of the substrings. Matching is
// case-insensitive; callers pass lowercase substrings.
func HasAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
