// -----------------------------------------------------------------------
// Fallback Runner - Bounded fan-out over ranked HTML sources
// -----------------------------------------------------------------------

package verifier

import (
	"bytes"
	"context"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/casestrainer/internal/citations"
	"github.com/ternarybob/casestrainer/internal/models"
)

// fallbackResult pairs a source's rank with its scraped hit so the winner
// is always the best-ranked acceptable hit regardless of fetch order.
type fallbackResult struct {
	rank   int
	source models.VerificationSource
	hit    sourceHit
}

// runFallbacks queries the ranked sources concurrently, at most
// fanoutLimit in flight, and returns the best-ranked hit passing the name
// and year checks. All sources are attempted; rank decides, not arrival
// order, which keeps the outcome deterministic.
func (s *Service) runFallbacks(ctx context.Context, c *models.Citation) (outcome, bool) {
	if len(s.sources) == 0 {
		return outcome{}, false
	}

	results := make([]fallbackResult, len(s.sources))
	sem := make(chan struct{}, s.fanoutLimit)
	var wg sync.WaitGroup

	for i, src := range s.sources {
		wg.Add(1)
		go func(rank int, src fallbackSource) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			results[rank] = fallbackResult{
				rank:   rank,
				source: src.name,
				hit:    s.querySource(ctx, src, c),
			}
		}(i, src)
	}
	wg.Wait()

	for _, res := range results {
		if !res.hit.ok {
			continue
		}
		if !nameMatches(c.ExtractedCaseName, res.hit.name, s.similarityThreshold) {
			continue
		}
		hitYear := candidateYear(res.hit.date)
		if hitYear == 0 {
			hitYear = yearFromText(res.hit.date)
		}
		ok, warn := yearAccepted(hitYear, c.ExtractedYear, s.yearTolerance)
		if !ok {
			continue
		}
		if warn {
			s.logger.Warn().
				Str("citation", c.Text).
				Str("source", string(res.source)).
				Int("candidate_year", hitYear).
				Int("extracted_year", c.YearOrZero()).
				Msg("Fallback year gap accepted with warning")
		}
		return outcome{
			kind:   outcomeVerified,
			source: res.source,
			name:   selectCanonicalName(res.hit.name, "", c.ExtractedCaseName),
			date:   res.hit.date,
			url:    res.hit.url,
		}, true
	}
	return outcome{}, false
}

// querySource performs one source fetch and extraction. Errors degrade to
// a missing hit; per-citation verification never fails the task.
func (s *Service) querySource(ctx context.Context, src fallbackSource, c *models.Citation) sourceHit {
	pageURL := src.buildURL(c)
	if pageURL == "" {
		return sourceHit{}
	}

	var body []byte
	var err error
	if src.needsBrowser {
		if s.browser == nil {
			return sourceHit{}
		}
		body, err = s.browser.FetchHTML(ctx, pageURL)
	} else {
		var status int
		body, status, err = s.fetcher.Get(ctx, pageURL)
		if err == nil && (status < 200 || status >= 300) {
			return sourceHit{}
		}
	}
	if err != nil {
		s.logger.Debug().
			Str("source", string(src.name)).
			Str("url", pageURL).
			Err(err).
			Msg("Fallback source fetch failed")
		return sourceHit{}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return sourceHit{}
	}

	hit := src.extract(doc, c)
	if hit.ok && hit.url == "" {
		hit.url = pageURL
	}
	// A hit whose caption bears no resemblance to the extracted name is
	// likely an unrelated search result.
	if hit.ok && c.HasName() && hit.name != "" {
		if citations.NameSimilarity(c.ExtractedCaseName, hit.name) < s.similarityThreshold {
			return sourceHit{}
		}
	}
	return hit
}

func yearFromText(text string) int {
	if m := bareYearRe.FindString(text); m != "" {
		return candidateYear(m)
	}
	return 0
}
