// -----------------------------------------------------------------------
// Pattern Scanner - Locates reporter citations in cleaned text
// -----------------------------------------------------------------------

package citations

import (
	"sort"

	"github.com/ternarybob/casestrainer/internal/models"
)

// Match is one located citation before name/year extraction. Offsets are
// rune positions into the scanned text.
type Match struct {
	PatternName string
	Family      models.ReporterFamily
	Text        string
	Start       int
	End         int
	Volume      string
	Reporter    string // As matched; canonicalized during normalization
	Page        string
}

// Span returns the rune length of the match.
func (m Match) Span() int {
	return m.End - m.Start
}

// FindAll scans text with every registered pattern and resolves overlaps:
// the match with the earlier start wins, ties broken by longer span.
// Results are in document order.
func (r *Registry) FindAll(text string) []Match {
	byteToRune := runeOffsets(text)

	var all []Match
	for i := range r.patterns {
		p := &r.patterns[i]
		for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
			m := Match{
				PatternName: p.Name,
				Family:      p.Family,
				Text:        text[idx[0]:idx[1]],
				Start:       byteToRune[idx[0]],
				End:         byteToRune[idx[1]],
				Volume:      groupText(text, idx, p.volIdx),
				Reporter:    groupText(text, idx, p.repIdx),
				Page:        groupText(text, idx, p.pageIdx),
			}
			all = append(all, m)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].Span() > all[j].Span()
	})

	// Sweep in order keeping the first match of each overlapping group.
	kept := all[:0]
	lastEnd := -1
	for _, m := range all {
		if m.Start < lastEnd {
			continue
		}
		kept = append(kept, m)
		lastEnd = m.End
	}

	return kept
}

// groupText extracts a submatch by group index from a SubmatchIndex row.
func groupText(text string, idx []int, group int) string {
	lo, hi := idx[2*group], idx[2*group+1]
	if lo < 0 || hi < 0 {
		return ""
	}
	return text[lo:hi]
}

// runeOffsets maps every byte offset that starts a rune (plus the final
// offset) onto its rune index. Offsets exposed by the API are rune-based
// so multi-byte characters do not skew window arithmetic.
func runeOffsets(text string) []int {
	offsets := make([]int, len(text)+1)
	runeIdx := 0
	for byteIdx := range text {
		offsets[byteIdx] = runeIdx
		runeIdx++
	}
	offsets[len(text)] = runeIdx
	return offsets
}
