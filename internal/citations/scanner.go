// -----------------------------------------------------------------------
// Scanner - Full extraction pass: locate, isolate, extract, normalize
// -----------------------------------------------------------------------

package citations

import (
	"time"

	"github.com/ternarybob/casestrainer/internal/models"
)

// Scanner runs the extraction stages over cleaned text: pattern matching,
// context isolation, name/year extraction, and normalization. It is pure
// and deterministic; a fixed input always yields the same citations.
type Scanner struct {
	registry *Registry
	isolator *Isolator
}

func NewScanner(registry *Registry) *Scanner {
	return &Scanner{
		registry: registry,
		isolator: NewIsolator(),
	}
}

// Registry exposes the scanner's reporter registry for verification-time
// variant generation and jurisdiction lookups.
func (s *Scanner) Registry() *Registry {
	return s.registry
}

// Scan extracts every citation from text in document order, deduplicated
// by normalized text and start offset. ClusterID is left at -1; the
// clusterer assigns it.
func (s *Scanner) Scan(text string) []models.Citation {
	doc := newDocument(text)
	matches := s.registry.FindAll(text)
	maxYear := time.Now().Year() + 1

	type dedupeKey struct {
		text  string
		start int
	}
	seen := make(map[dedupeKey]bool, len(matches))

	citations := make([]models.Citation, 0, len(matches))
	for i, m := range matches {
		normalized, label := s.registry.Normalize(m)
		key := dedupeKey{text: normalized, start: m.Start}
		if seen[key] {
			continue
		}
		seen[key] = true

		w := s.isolator.Isolate(doc, matches, i)
		ext := ExtractNameAndYear(m, w, maxYear)

		citations = append(citations, models.Citation{
			Text:              normalized,
			RawText:           m.Text,
			Start:             m.Start,
			End:               m.End,
			Reporter:          label,
			Family:            m.Family,
			Volume:            m.Volume,
			Page:              m.Page,
			ExtractedCaseName: ext.Name,
			ExtractedYear:     ext.Year,
			ClusterID:         -1,
		})
	}
	return citations
}

// Variants returns the lookup variant set for a scanned citation.
func (s *Scanner) Variants(c *models.Citation) []string {
	return s.registry.CitationVariants(c.Volume, c.Reporter, c.Page, c.Family)
}
