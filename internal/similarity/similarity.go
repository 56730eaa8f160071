// Package similarity implements fuzzy title matching for cross-source
// deduplication.
package similarity

import "strings"

// DefaultThreshold is the ratio above which two titles are considered the
// same listing.
const DefaultThreshold = 0.85

// Ratio returns a normalized similarity score in [0, 1] for two strings.
// The comparison is case-insensitive and computes 2*M/T, where M is the
// number of matching runes under an optimal alignment (longest common
// subsequence) and T is the total rune count of both strings. Two empty
// strings are identical and score 1.
func Ratio(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}

	return 2.0 * float64(lcsLength(ra, rb)) / float64(total)
}

// Similar reports whether the two titles score at or above threshold.
func Similar(a, b string, threshold float64) bool {
	return Ratio(a, b) >= threshold
}

// lcsLength computes the longest common subsequence length with a rolling
// single-row DP table.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
