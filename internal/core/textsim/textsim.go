// Package textsim scores fuzzy similarity between event descriptions.
//
// The score is a character-level Ratcliff-Obershelp ratio: 2*M/T, where M is
// the total length of matching contiguous blocks found by greedy
// longest-match recursion and T is the combined length of both cleaned
// inputs. Inputs are lower-cased and whitespace-collapsed before comparison.
package textsim

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Similarity returns a score in [0, 1]. Two empty strings score 1.0; an
// empty string against a non-empty one scores 0.0.
func Similarity(a, b string) float64 {
	ar := []rune(clean(a))
	br := []rune(clean(b))

	total := len(ar) + len(br)
	if total == 0 {
		return 1.0
	}

	matched := matchingTotal(ar, br)

	return 2 * float64(matched) / float64(total)
}

func clean(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToLower(s), " "))
}

// matchingTotal sums the lengths of matching blocks: it finds the longest
// common contiguous block, then recurses on the pieces to its left and right.
func matchingTotal(a, b []rune) int {
	ai, bi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}

	return size + matchingTotal(a[:ai], b[:bi]) + matchingTotal(a[ai+size:], b[bi+size:])
}

// longestCommonBlock finds the longest contiguous block common to a and b,
// preferring the earliest occurrence in a, then in b.
func longestCommonBlock(a, b []rune) (bestA, bestB, bestSize int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	// lengths[j] is the length of the common block ending at a[i-1], b[j].
	lengths := make(map[int]int)

	for i, r := range a {
		next := make(map[int]int, len(b2j[r]))

		for _, j := range b2j[r] {
			k := lengths[j-1] + 1
			next[j] = k

			if k > bestSize {
				bestA, bestB, bestSize = i-k+1, j-k+1, k
			}
		}

		lengths = next
	}

	return bestA, bestB, bestSize
}
