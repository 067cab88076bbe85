// -----------------------------------------------------------------------
// Name Similarity - Ratcliff/Obershelp ratio over normalized case names
// -----------------------------------------------------------------------

package citations

import (
	"strings"
	"unicode"
)

// businessSuffixes normalise to a bare form so "Acme, Inc." and "Acme Inc"
// compare equal.
var businessSuffixes = map[string]string{
	"inc":    "inc",
	"inc.":   "inc",
	"llc":    "llc",
	"l.l.c.": "llc",
	"corp":   "corp",
	"corp.":  "corp",
	"co":     "co",
	"co.":    "co",
	"ltd":    "ltd",
	"ltd.":   "ltd",
	"l.p.":   "lp",
	"lp":     "lp",
	"n.a.":   "na",
	"p.c.":   "pc",
	"ass'n":  "assn",
	"assn":   "assn",
	"dep't":  "dept",
	"dept":   "dept",
	"comm'n": "commn",
	"commn":  "commn",
	"mun":    "mun",
	"mun.":   "mun",
}

// NormalizeCaseName lowercases, strips punctuation, and collapses business
// suffixes so similarity compares substance rather than typography.
func NormalizeCaseName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if canon, ok := businessSuffixes[f]; ok {
			out = append(out, canon)
			continue
		}
		var b strings.Builder
		for _, c := range f {
			if unicode.IsLetter(c) || unicode.IsDigit(c) {
				b.WriteRune(c)
			}
		}
		if b.Len() > 0 {
			out = append(out, b.String())
		}
	}
	return strings.Join(out, " ")
}

// NameSimilarity returns the Ratcliff/Obershelp ratio between two case
// names after normalization. Range [0, 1]; identical names score 1.
func NameSimilarity(a, b string) float64 {
	na := NormalizeCaseName(a)
	nb := NormalizeCaseName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	ra := []rune(na)
	rb := []rune(nb)
	matched := matchingBlocks(ra, rb)
	return 2 * float64(matched) / float64(len(ra)+len(rb))
}

// matchingBlocks sums the lengths of recursively matched common blocks:
// the longest common substring, then the same on the pieces either side.
func matchingBlocks(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	aStart, bStart, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlocks(a[:aStart], b[:bStart])
	total += matchingBlocks(a[aStart+size:], b[bStart+size:])
	return total
}

// longestCommonSubstring returns the start offsets and length of the
// longest run of runes common to a and b.
func longestCommonSubstring(a, b []rune) (aStart, bStart, size int) {
	// prev[j] holds the match length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > size {
					size = cur[j]
					aStart = i - size
					bStart = j - size
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return aStart, bStart, size
}
