// Package keyword provides the catalog full-text index and typo-tolerant term matching.
package keyword

// LevenshteinDistance calculates the minimum number of single-character edits
// (insertions, deletions, or substitutions) required to change one string into another.
// Strings are compared rune by rune.
func LevenshteinDistance(a, b string) int {
	d, _ := levenshtein([]rune(a), []rune(b), -1)
	return d
}

// LevenshteinWithin reports whether a and b are at most maxDistance edits apart,
// returning the distance when they are. It stops early once every cell of a row
// exceeds maxDistance, so scanning a large vocabulary stays cheap.
func LevenshteinWithin(a, b string, maxDistance int) (int, bool) {
	ra, rb := []rune(a), []rune(b)
	if diff := len(ra) - len(rb); diff > maxDistance || -diff > maxDistance {
		return 0, false
	}
	return levenshtein(ra, rb, maxDistance)
}

// levenshtein runs the two-row dynamic program. A negative bound disables the early exit.
func levenshtein(runesA, runesB []rune, bound int) (int, bool) {
	lenA := len(runesA)
	lenB := len(runesB)
	if lenA == 0 || lenB == 0 {
		d := lenA + lenB
		return d, bound < 0 || d <= bound
	}

	// Only two rows of the matrix are kept.
	prev := make([]int, lenB+1)
	curr := make([]int, lenB+1)
	for j := 0; j <= lenB; j++ {
		prev[j] = j
	}

	for i := 1; i <= lenA; i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= lenB; j++ {
			cost := 0
			if runesA[i-1] != runesB[j-1] {
				cost = 1
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
			if curr[j] < rowMin {
				rowMin = curr[j]
			}
		}
		if bound >= 0 && rowMin > bound {
			return rowMin, false
		}
		prev, curr = curr, prev
	}

	d := prev[lenB]
	return d, bound < 0 || d <= bound
}

func min3(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
