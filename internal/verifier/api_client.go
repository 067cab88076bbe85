// -----------------------------------------------------------------------
// API Client - Structured citation lookup with rate-limit detection
// -----------------------------------------------------------------------

package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/common"
)

// apiCandidate is one case record returned by the structured API. The
// top-level case name can be empty on partially indexed records, in which
// case the docket name carries the caption.
type apiCandidate struct {
	Citations    []string `json:"citations"`
	CaseName     string   `json:"case_name"`
	DecisionDate string   `json:"decision_date"`
	AbsoluteURL  string   `json:"absolute_url"`
	Jurisdiction string   `json:"jurisdiction"`
	Docket       struct {
		CaseName string `json:"case_name"`
	} `json:"docket"`
}

// apiLookupItem wraps the per-citation response shape: each looked-up
// citation carries its matching case clusters.
type apiLookupItem struct {
	Citation string         `json:"citation"`
	Status   int            `json:"status"`
	Clusters []apiCandidate `json:"clusters"`
}

// apiClient talks to the structured citation API. A 429 status or a body
// mentioning a rate limit is reported as rateLimited and never retried.
type apiClient struct {
	baseURL   string
	searchURL string
	token     string
	userAgent string
	client    *http.Client
	logger    arbor.ILogger
}

func newAPIClient(cfg common.CitationAPIConfig, timeout time.Duration, userAgent string, logger arbor.ILogger) *apiClient {
	return &apiClient{
		baseURL:   cfg.BaseURL,
		searchURL: cfg.SearchURL,
		token:     cfg.Token,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// Lookup posts the normalized citation to the primary endpoint.
func (a *apiClient) Lookup(ctx context.Context, text string) ([]apiCandidate, bool, error) {
	return a.post(ctx, a.baseURL, text)
}

// Search posts to the search variant. Callers invoke this only after a
// not_found from Lookup, never after a rate limit.
func (a *apiClient) Search(ctx context.Context, text string) ([]apiCandidate, bool, error) {
	if a.searchURL == "" {
		return nil, false, nil
	}
	return a.post(ctx, a.searchURL, text)
}

func (a *apiClient) post(ctx context.Context, endpoint, text string) (candidates []apiCandidate, rateLimited bool, err error) {
	if endpoint == "" {
		return nil, false, nil
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("invalid API endpoint %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", a.userAgent)
	if a.token != "" {
		req.Header.Set("Authorization", a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, false, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || containsRateLimit(body) {
		// Reset headers are diagnostic only; there is no retry or backoff
		// within a request.
		a.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("rate_limit_reset", resp.Header.Get("X-RateLimit-Reset")).
			Str("retry_after", resp.Header.Get("Retry-After")).
			Str("rate_limit_remaining", resp.Header.Get("X-RateLimit-Remaining")).
			Msg("Structured API rate limited")
		return nil, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("structured API returned status %d", resp.StatusCode)
	}

	return parseCandidates(body), false, nil
}

// parseCandidates accepts both response shapes: the per-citation lookup
// list with nested clusters, and a bare candidate array.
func parseCandidates(body []byte) []apiCandidate {
	var items []apiLookupItem
	if err := json.Unmarshal(body, &items); err == nil {
		var out []apiCandidate
		for _, item := range items {
			out = append(out, item.Clusters...)
		}
		if len(out) > 0 {
			return out
		}
	}

	var wrapper struct {
		Clusters []apiCandidate `json:"clusters"`
		Results  []apiCandidate `json:"results"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil {
		if len(wrapper.Clusters) > 0 {
			return wrapper.Clusters
		}
		if len(wrapper.Results) > 0 {
			return wrapper.Results
		}
	}

	var bare []apiCandidate
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare
	}
	return nil
}

func containsRateLimit(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "rate limit")
}
