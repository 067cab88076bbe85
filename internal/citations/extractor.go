// -----------------------------------------------------------------------
// Case-Name & Date Extractor - Pulls party names and years from windows
// -----------------------------------------------------------------------

package citations

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/casestrainer/internal/models"
)

// Party names are runs of capitalised tokens joined by single spaces and
// optional commas, admitting lowercase connectives and corporate suffixes.
// Token repetition is bounded so a greedy match cannot swallow a paragraph.
const (
	partyToken = `[A-Z][A-Za-z0-9&'\x{2019}.\-]*`
	connective = `of|the|and|for|ex|rel\.?|de|la|van|von|&`
	party      = partyToken + `(?:,? (?:` + partyToken + `|` + connective + `)){0,8}`
)

var (
	// Adversarial form is tried first so "Matter of X v. Y" keeps its
	// full span; special forms catch the rest.
	caseNameRe = regexp.MustCompile(
		party + ` vs?\. ` + party +
			`|(?:In re|Matter of|Ex parte|Estate of) ` + party,
	)

	yearRe       = regexp.MustCompile(`\b(1[7-9]\d{2}|20\d{2})\b`)
	parenGroupRe = regexp.MustCompile(`\(([^()]*)\)`)
)

// proceduralPhrases are history notations that look like names but are not.
var proceduralPhrases = map[string]bool{
	"vacated":               true,
	"remanded":              true,
	"reversed":              true,
	"affirmed":              true,
	"vacated and remanded":  true,
	"reversed and remanded": true,
	"affirmed in part":      true,
	"reversed in part":      true,
}

// Extracted carries the per-citation extraction outcome.
type Extracted struct {
	Name    string
	nameEnd int // byte offset of the name's end within NameContext; -1 if none
	Year    *int
}

// ExtractNameAndYear finds the case name ending closest to the citation and
// the year by the positional search order: parenthesised group after the
// citation, then between name and volume, then anywhere in the window.
// maxYear bounds acceptable years (current year + 1).
func ExtractNameAndYear(m Match, w Window, maxYear int) Extracted {
	out := Extracted{nameEnd: -1}

	locs := caseNameRe.FindAllStringIndex(w.NameContext, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		candidate := strings.TrimRight(w.NameContext[locs[i][0]:locs[i][1]], " ,")
		if validCaseName(candidate) {
			out.Name = candidate
			out.nameEnd = locs[i][0] + len(candidate)
			break
		}
	}

	out.Year = extractYear(m, w, out.nameEnd, maxYear)
	return out
}

// extractYear resolves the citation year. Neutral and vendor citations
// carry the year as their volume; printed reporters fall back to the
// positional search.
func extractYear(m Match, w Window, nameEnd int, maxYear int) *int {
	if m.Family == models.FamilyNeutral || m.Family == models.FamilyVendor {
		if y := parseYear(m.Volume, maxYear); y != nil {
			return y
		}
	}

	// 1. A parenthesised court/date group following the citation.
	for _, group := range parenGroupRe.FindAllStringSubmatch(w.AfterCite, -1) {
		if y := findYear(group[1], maxYear); y != nil {
			return y
		}
	}

	// 2. Between the case name and the citation volume.
	if nameEnd >= 0 && nameEnd <= len(w.NameContext) {
		if y := findYear(w.NameContext[nameEnd:], maxYear); y != nil {
			return y
		}
	}

	// 3. Anywhere in the isolated window.
	return findYear(w.Full, maxYear)
}

func findYear(s string, maxYear int) *int {
	for _, m := range yearRe.FindAllString(s, -1) {
		if y := parseYear(m, maxYear); y != nil {
			return y
		}
	}
	return nil
}

func parseYear(s string, maxYear int) *int {
	y, err := strconv.Atoi(s)
	if err != nil || y < 1700 || y > maxYear {
		return nil
	}
	return &y
}

// validCaseName rejects candidates that cannot be names: lowercase starts
// (the pattern forbids these already), bare procedural history phrases,
// and anything that crossed a blanked citation span.
func validCaseName(name string) bool {
	if name == "" {
		return false
	}
	first := []rune(name)[0]
	if first >= 'a' && first <= 'z' {
		return false
	}
	if strings.Contains(name, "  ") {
		return false
	}
	cleaned := strings.ToLower(strings.Trim(name, " .,"))
	return !proceduralPhrases[cleaned]
}
