// -----------------------------------------------------------------------
// Normalizer - Canonical citation text and lookup variants
// -----------------------------------------------------------------------

package citations

import (
	"strings"

	"github.com/ternarybob/casestrainer/internal/models"
)

// Normalize rebuilds a match as its canonical printed form from the
// captured groups, which inherently strips pinpoint pages, docket numbers,
// and court parentheticals. Pure and idempotent: normalizing an
// already-normalized citation yields the identity.
func (r *Registry) Normalize(m Match) (text string, canonicalLabel string) {
	canonicalLabel = r.CanonicalLabel(m.Reporter)
	return renderCitation(m.Volume, canonicalLabel, m.Page, m.Family), canonicalLabel
}

// renderCitation lays out volume/label/page per family convention. New
// Mexico neutral citations print hyphenated; other neutral forms and all
// printed reporters use spaces.
func renderCitation(volume, label, page string, family models.ReporterFamily) string {
	if family == models.FamilyNeutral && strings.HasPrefix(label, "NM") {
		return volume + "-" + label + "-" + page
	}
	return volume + " " + label + " " + page
}

// CitationVariants generates the lookup variant set for a citation: the
// canonical form, each alias spelling, ordinal alternates (2d/2nd, 3d/3rd),
// and long-form reporter names where defined. The canonical form is always
// first; duplicates are removed.
func (r *Registry) CitationVariants(volume, canonicalLabel, page string, family models.ReporterFamily) []string {
	labels := []string{canonicalLabel}
	labels = append(labels, r.Aliases(canonicalLabel)...)
	if full := r.Fullname(canonicalLabel); full != "" {
		labels = append(labels, full)
	}

	// Ordinal alternates for every spelling collected so far.
	for _, l := range labels {
		if alt := swapOrdinal(l); alt != "" {
			labels = append(labels, alt)
		}
	}

	seen := make(map[string]bool, len(labels))
	variants := make([]string, 0, len(labels))
	for _, l := range labels {
		text := renderCitation(volume, l, page, family)
		if !seen[text] {
			seen[text] = true
			variants = append(variants, text)
		}
	}
	return variants
}

// swapOrdinal exchanges the 2d/2nd and 3d/3rd series spellings; returns ""
// when the label carries no ordinal.
func swapOrdinal(label string) string {
	switch {
	case strings.Contains(label, "2d"):
		return strings.Replace(label, "2d", "2nd", 1)
	case strings.Contains(label, "2nd"):
		return strings.Replace(label, "2nd", "2d", 1)
	case strings.Contains(label, "3d"):
		return strings.Replace(label, "3d", "3rd", 1)
	case strings.Contains(label, "3rd"):
		return strings.Replace(label, "3rd", "3d", 1)
	}
	return ""
}
