// -----------------------------------------------------------------------
// Verifier Service - Per-cluster verification over the strategy chain
// -----------------------------------------------------------------------

package verifier

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/citations"
	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

type outcomeKind int

const (
	outcomeNotFound outcomeKind = iota
	outcomeVerified
	outcomeRateLimited
	outcomeError
)

// outcome is the tagged result of one verification strategy.
type outcome struct {
	kind   outcomeKind
	source models.VerificationSource
	name   string
	date   string
	url    string
	errMsg string
}

// Service verifies citation clusters against the structured API and the
// ranked HTML fallbacks. The unit of verification is the cluster: members
// are attempted in document order until one verifies, then the outcome
// propagates to the peers.
type Service struct {
	registry *citations.Registry
	api      *apiClient
	fetcher  *Fetcher
	browser  *BrowserFetcher
	sources  []fallbackSource
	logger   arbor.ILogger

	fanoutLimit         int
	similarityThreshold float64
	yearTolerance       int
	perCitationBudget   time.Duration
}

var _ interfaces.Verifier = (*Service)(nil)

func NewService(cfg common.VerificationConfig, registry *citations.Registry, fetcher *Fetcher, browser *BrowserFetcher, logger arbor.ILogger) *Service {
	perCall := time.Duration(cfg.PerCallTimeoutMs) * time.Millisecond
	return &Service{
		registry:            registry,
		api:                 newAPIClient(cfg.API, perCall, cfg.UserAgent, logger),
		fetcher:             fetcher,
		browser:             browser,
		sources:             sourcesInOrder(cfg.FallbackSourceOrder),
		logger:              logger,
		fanoutLimit:         cfg.FanoutLimit,
		similarityThreshold: 0.6,
		yearTolerance:       cfg.YearTolerance,
		perCitationBudget:   time.Duration(cfg.PerCitationBudgetMs) * time.Millisecond,
	}
}

// VerifyAll runs verification over every cluster, mutating citations and
// clusters in place. The returned flag reports whether the structured API
// rate limited during this run.
func (s *Service) VerifyAll(ctx context.Context, cits []models.Citation, clusters []models.Cluster, progress func(done, total int)) bool {
	limits := &rateLimitState{}
	total := len(clusters)

	for ki := range clusters {
		select {
		case <-ctx.Done():
			return limits.Tripped()
		default:
		}

		for _, idx := range clusters[ki].MemberIndexes {
			c := &cits[idx]
			out := s.verifyCitation(ctx, c, limits)
			s.applyOutcome(c, out)
			if c.Verified {
				break
			}
		}

		if progress != nil {
			progress(ki+1, total)
		}
	}

	PropagateClusters(cits, clusters)
	return limits.Tripped()
}

// verifyCitation walks the strategy chain under the per-citation budget:
// structured API, API search variant, then the HTML fallbacks. The search
// variant runs only after a not_found; a rate limit skips both API
// strategies for the rest of the request.
func (s *Service) verifyCitation(ctx context.Context, c *models.Citation, limits *rateLimitState) outcome {
	budgetCtx, cancel := context.WithTimeout(ctx, s.perCitationBudget)
	defer cancel()

	variants := s.registry.CitationVariants(c.Volume, c.Reporter, c.Page, c.Family)

	if !limits.Tripped() {
		out := s.tryAPI(budgetCtx, c, variants, s.api.Lookup, models.SourceAPI)
		switch out.kind {
		case outcomeVerified:
			return out
		case outcomeRateLimited:
			limits.Trip()
		case outcomeNotFound:
			if !limits.Tripped() {
				out = s.tryAPI(budgetCtx, c, variants, s.api.Search, models.SourceAPISearch)
				if out.kind == outcomeVerified {
					return out
				}
				if out.kind == outcomeRateLimited {
					limits.Trip()
				}
			}
		}
	}

	if out, ok := s.runFallbacks(budgetCtx, c); ok {
		return out
	}
	return outcome{kind: outcomeNotFound}
}

type apiCall func(ctx context.Context, text string) ([]apiCandidate, bool, error)

func (s *Service) tryAPI(ctx context.Context, c *models.Citation, variants []string, call apiCall, source models.VerificationSource) outcome {
	candidates, rateLimited, err := call(ctx, c.Text)
	if rateLimited {
		return outcome{kind: outcomeRateLimited}
	}
	if err != nil {
		s.logger.Debug().
			Str("citation", c.Text).
			Str("source", string(source)).
			Err(err).
			Msg("Structured API call failed")
		return outcome{kind: outcomeError, errMsg: err.Error()}
	}

	for _, cand := range candidates {
		// The citation list is a hard gate. A candidate that does not list
		// a variant of the target, or lists nothing at all, is not a match.
		if !citationListMatches(cand.Citations, variants) {
			continue
		}
		if !jurisdictionAllowed(s.registry, c, cand.Jurisdiction) {
			continue
		}
		candYear := candidateYear(cand.DecisionDate)
		ok, warn := yearAccepted(candYear, c.ExtractedYear, s.yearTolerance)
		if !ok {
			continue
		}
		candName := cand.CaseName
		if candName == "" {
			candName = cand.Docket.CaseName
		}
		if !nameMatches(c.ExtractedCaseName, candName, s.similarityThreshold) {
			continue
		}
		if warn {
			s.logger.Warn().
				Str("citation", c.Text).
				Int("candidate_year", candYear).
				Int("extracted_year", c.YearOrZero()).
				Msg("Candidate year gap accepted with warning")
		}
		return outcome{
			kind:   outcomeVerified,
			source: source,
			name:   selectCanonicalName(cand.CaseName, cand.Docket.CaseName, c.ExtractedCaseName),
			date:   cand.DecisionDate,
			url:    cand.AbsoluteURL,
		}
	}
	return outcome{kind: outcomeNotFound}
}

// applyOutcome writes a strategy outcome onto the citation. Failures are
// diagnostic, never fatal; the citation simply stays unverified.
func (s *Service) applyOutcome(c *models.Citation, out outcome) {
	switch out.kind {
	case outcomeVerified:
		c.Verified = true
		c.TrueByParallel = false
		c.VerificationSource = out.source
		c.CanonicalName = out.name
		c.CanonicalDate = out.date
		c.CanonicalURL = out.url
		c.VerificationError = ""
	case outcomeRateLimited:
		c.VerificationError = "structured API rate limited"
	case outcomeError:
		c.VerificationError = out.errMsg
	}
}
