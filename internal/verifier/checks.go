// -----------------------------------------------------------------------
// Candidate Checks - Citation, jurisdiction, year, and name acceptance
// -----------------------------------------------------------------------

package verifier

import (
	"strconv"
	"strings"

	"github.com/ternarybob/casestrainer/internal/citations"
	"github.com/ternarybob/casestrainer/internal/models"
)

// Year gap that verifies with a logged warning rather than a rejection.
const yearWarnGap = 3

// citationListMatches reports whether any candidate citation string equals
// one of the target's lookup variants. Comparison collapses whitespace and
// ignores case so "198 P. 3d 1021" still matches "198 P.3d 1021".
func citationListMatches(candidateCitations []string, variants []string) bool {
	normalized := make(map[string]bool, len(variants))
	for _, v := range variants {
		normalized[foldCitation(v)] = true
	}
	for _, cc := range candidateCitations {
		if normalized[foldCitation(cc)] {
			return true
		}
	}
	return false
}

func foldCitation(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(s, ". ", ".")), " "))
}

// jurisdictionAllowed checks the candidate's jurisdiction code against the
// reporter family's allowed set. An empty allowed set or an unreported
// candidate jurisdiction passes; the check only rejects positive mismatches.
func jurisdictionAllowed(registry *citations.Registry, c *models.Citation, candidateJurisdiction string) bool {
	cand := strings.ToUpper(strings.TrimSpace(candidateJurisdiction))
	if cand == "" {
		return true
	}

	var allowed []string
	if c.IsNeutral() {
		if j := registry.NeutralJurisdiction(c.Reporter); j != "" {
			allowed = []string{j}
		}
	} else {
		allowed = registry.AllowedJurisdictions(c.Reporter)
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, cand) {
			return true
		}
	}
	return false
}

// yearAccepted applies the verification-time year check. An absent
// extracted year or candidate year passes. Within the warn gap the match
// is silent; between warn gap and tolerance it is accepted with warn=true;
// beyond the tolerance it is rejected.
func yearAccepted(candidateYear int, extracted *int, tolerance int) (ok bool, warn bool) {
	if candidateYear == 0 || extracted == nil || *extracted == 0 {
		return true, false
	}
	gap := candidateYear - *extracted
	if gap < 0 {
		gap = -gap
	}
	if gap > tolerance {
		return false, false
	}
	return true, gap >= yearWarnGap
}

// candidateYear extracts the year from an ISO decision date.
func candidateYear(decisionDate string) int {
	if len(decisionDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(decisionDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// selectCanonicalName chooses between the source's case name and the
// document's extracted name. Truncated, stub, or substantially shorter
// candidate names lose to a non-empty extracted name; a missing top-level
// name falls through to the docket caption.
func selectCanonicalName(candidateName, docketName, extractedName string) string {
	name := strings.TrimSpace(candidateName)
	if name == "" {
		name = strings.TrimSpace(docketName)
	}
	if name == "" {
		return extractedName
	}
	if extractedName == "" {
		return name
	}
	if strings.HasSuffix(name, "...") ||
		len(name) < 20 ||
		len(extractedName)-len(name) > 10 {
		return extractedName
	}
	return name
}

// nameMatches applies the similarity threshold when an extracted name
// exists. Citations without an extracted name match on citation identity
// alone.
func nameMatches(extractedName, candidateName string, threshold float64) bool {
	if strings.TrimSpace(extractedName) == "" || strings.TrimSpace(candidateName) == "" {
		return true
	}
	return citations.NameSimilarity(extractedName, candidateName) >= threshold
}
