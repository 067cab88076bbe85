package verifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/casestrainer/internal/citations"
	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/models"
)

func testRegistry(t *testing.T) *citations.Registry {
	t.Helper()
	reg, err := citations.NewRegistry(nil, nil)
	require.NoError(t, err)
	return reg
}

func newTestService(t *testing.T, apiURL, searchURL string) *Service {
	t.Helper()
	cfg := common.VerificationConfig{
		Enabled:             true,
		PerCallTimeoutMs:    5000,
		PerCitationBudgetMs: 30000,
		YearTolerance:       5,
		FanoutLimit:         8,
		API: common.CitationAPIConfig{
			BaseURL:   apiURL,
			SearchURL: searchURL,
			Token:     "Token test",
		},
	}
	fetcher := NewFetcher(5*time.Second, "", common.GetLogger())
	svc := NewService(cfg, testRegistry(t), fetcher, nil, common.GetLogger())
	svc.sources = nil // Tests install their own fallback sources
	return svc
}

func intPtr(y int) *int { return &y }

func pacificCitation(start int) models.Citation {
	return models.Citation{
		Text:              "198 P.3d 1021",
		RawText:           "198 P.3d 1021",
		Start:             start,
		End:               start + 13,
		Reporter:          "P.3d",
		Family:            models.FamilyPacific,
		Volume:            "198",
		Page:              "1021",
		ExtractedCaseName: "Hale v. Wellpinit School District",
		ExtractedYear:     intPtr(2009),
		ClusterID:         0,
	}
}

func lookupResponse(caseName, date, absURL, jurisdiction string, cites ...string) []byte {
	body, _ := json.Marshal([]apiLookupItem{{
		Citation: cites[0],
		Status:   200,
		Clusters: []apiCandidate{{
			Citations:    cites,
			CaseName:     caseName,
			DecisionDate: date,
			AbsoluteURL:  absURL,
			Jurisdiction: jurisdiction,
		}},
	}})
	return body
}

func TestVerifyAll_StructuredAPIVerifies(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Token test", r.Header.Get("Authorization"))
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "198 P.3d 1021", req["text"])
		w.Write(lookupResponse(
			"Hale v. Wellpinit School District No. 49", "2009-01-15",
			"/opinion/hale-v-wellpinit/", "WA", "198 P.3d 1021", "165 Wash.2d 494"))
	}))
	defer api.Close()

	svc := newTestService(t, api.URL, "")
	cits := []models.Citation{pacificCitation(10)}
	clusters := []models.Cluster{{ID: 0, MemberIndexes: []int{0}, ClusterCaseName: cits[0].ExtractedCaseName, ClusterYear: intPtr(2009)}}

	rateLimited := svc.VerifyAll(context.Background(), cits, clusters, nil)
	assert.False(t, rateLimited)
	require.True(t, cits[0].Verified)
	assert.False(t, cits[0].TrueByParallel)
	assert.Equal(t, models.SourceAPI, cits[0].VerificationSource)
	assert.Equal(t, "Hale v. Wellpinit School District No. 49", cits[0].CanonicalName)
	assert.Equal(t, "2009-01-15", cits[0].CanonicalDate)
	assert.Equal(t, "Hale v. Wellpinit School District No. 49", clusters[0].ClusterCaseName)
}

func TestVerifyAll_RateLimitShortCircuits(t *testing.T) {
	var calls int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer api.Close()

	svc := newTestService(t, api.URL, api.URL+"/search")
	c1 := pacificCitation(10)
	c2 := pacificCitation(500)
	c2.ClusterID = 1
	cits := []models.Citation{c1, c2}
	clusters := []models.Cluster{
		{ID: 0, MemberIndexes: []int{0}},
		{ID: 1, MemberIndexes: []int{1}},
	}

	rateLimited := svc.VerifyAll(context.Background(), cits, clusters, nil)
	assert.True(t, rateLimited)
	// One 429 trips the flag; the search variant and the second citation
	// never reach the API.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, cits[0].Verified)
	assert.False(t, cits[1].Verified)
}

func TestVerifyAll_RateLimitDetectedInBody(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"detail": "Rate limit exceeded, slow down"}`))
	}))
	defer api.Close()

	svc := newTestService(t, api.URL, "")
	cits := []models.Citation{pacificCitation(10)}
	clusters := []models.Cluster{{ID: 0, MemberIndexes: []int{0}}}

	assert.True(t, svc.VerifyAll(context.Background(), cits, clusters, nil))
}

func TestVerifyAll_SearchVariantAfterNotFound(t *testing.T) {
	var lookupCalls, searchCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&lookupCalls, 1)
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&searchCalls, 1)
		w.Write(lookupResponse(
			"Hale v. Wellpinit School District No. 49", "2009-01-15",
			"/opinion/hale/", "WA", "198 P.3d 1021"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := newTestService(t, srv.URL+"/lookup", srv.URL+"/search")
	cits := []models.Citation{pacificCitation(10)}
	clusters := []models.Cluster{{ID: 0, MemberIndexes: []int{0}}}

	svc.VerifyAll(context.Background(), cits, clusters, nil)
	assert.Equal(t, int32(1), atomic.LoadInt32(&lookupCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&searchCalls))
	require.True(t, cits[0].Verified)
	assert.Equal(t, models.SourceAPISearch, cits[0].VerificationSource)
}

func TestVerifyAll_EmptyCandidateCitationListRejected(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Name, year, and jurisdiction all line up, but the candidate lists
		// no citations, so it cannot confirm the target.
		body, _ := json.Marshal([]apiLookupItem{{
			Citation: "198 P.3d 1021",
			Status:   200,
			Clusters: []apiCandidate{{
				CaseName:     "Hale v. Wellpinit School District",
				DecisionDate: "2009-01-15",
				AbsoluteURL:  "/opinion/hale/",
				Jurisdiction: "WA",
			}},
		}})
		w.Write(body)
	}))
	defer api.Close()

	svc := newTestService(t, api.URL, "")
	cits := []models.Citation{pacificCitation(10)}
	clusters := []models.Cluster{{ID: 0, MemberIndexes: []int{0}}}

	svc.VerifyAll(context.Background(), cits, clusters, nil)
	assert.False(t, cits[0].Verified)
}

func TestVerifyAll_JurisdictionMismatchRejected(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A Pacific-reporter citation cannot resolve to a Texas case.
		w.Write(lookupResponse(
			"Hale v. Wellpinit School District", "2009-01-15",
			"/opinion/x/", "TX", "198 P.3d 1021"))
	}))
	defer api.Close()

	svc := newTestService(t, api.URL, "")
	cits := []models.Citation{pacificCitation(10)}
	clusters := []models.Cluster{{ID: 0, MemberIndexes: []int{0}}}

	svc.VerifyAll(context.Background(), cits, clusters, nil)
	assert.False(t, cits[0].Verified)
}

func TestVerifyAll_YearGapBeyondToleranceRejected(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(lookupResponse(
			"Hale v. Wellpinit School District", "1990-01-15",
			"/opinion/x/", "WA", "198 P.3d 1021"))
	}))
	defer api.Close()

	svc := newTestService(t, api.URL, "")
	cits := []models.Citation{pacificCitation(10)}
	clusters := []models.Cluster{{ID: 0, MemberIndexes: []int{0}}}

	svc.VerifyAll(context.Background(), cits, clusters, nil)
	assert.False(t, cits[0].Verified)
}

func TestVerifyAll_FallbackSourceWins(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer api.Close()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="search-result">
<h3><a href="/cases/hale">Hale v. Wellpinit School District, 198 P.3d 1021 (2009)</a></h3>
</div></body></html>`))
	}))
	defer page.Close()

	svc := newTestService(t, api.URL, "")
	svc.sources = []fallbackSource{{
		name: models.SourceJustia,
		buildURL: func(c *models.Citation) string {
			return page.URL + "/search?q=" + url.QueryEscape(c.Text)
		},
		extract: func(doc *goquery.Document, c *models.Citation) sourceHit {
			return extractResultList(doc, "div.search-result h3 a", page.URL)
		},
	}}

	cits := []models.Citation{pacificCitation(10)}
	clusters := []models.Cluster{{ID: 0, MemberIndexes: []int{0}}}

	svc.VerifyAll(context.Background(), cits, clusters, nil)
	require.True(t, cits[0].Verified)
	assert.Equal(t, models.SourceJustia, cits[0].VerificationSource)
	assert.Equal(t, "Hale v. Wellpinit School District", cits[0].CanonicalName)
	assert.Equal(t, page.URL+"/cases/hale", cits[0].CanonicalURL)
}

func TestVerifyAll_ClusterStopsAfterFirstVerifiedMember(t *testing.T) {
	var calls int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write(lookupResponse(
			"Hale v. Wellpinit School District No. 49", "2009-01-15",
			"/opinion/hale/", "WA", "198 P.3d 1021", "165 Wash.2d 494"))
	}))
	defer api.Close()

	svc := newTestService(t, api.URL, "")
	first := pacificCitation(10)
	second := models.Citation{
		Text: "165 Wash.2d 494", RawText: "165 Wn.2d 494",
		Start: 30, End: 43,
		Reporter: "Wash.2d", Family: models.FamilyState,
		Volume: "165", Page: "494",
		ExtractedCaseName: "Hale v. Wellpinit School District",
		ExtractedYear:     intPtr(2009),
		ClusterID:         0,
	}
	cits := []models.Citation{first, second}
	clusters := []models.Cluster{{
		ID: 0, MemberIndexes: []int{0, 1},
		ClusterCaseName: first.ExtractedCaseName, ClusterYear: intPtr(2009),
	}}

	svc.VerifyAll(context.Background(), cits, clusters, nil)

	// First member verifies; second is propagated, not fetched.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.True(t, cits[0].Verified)
	require.True(t, cits[1].Verified)
	assert.False(t, cits[0].TrueByParallel)
	assert.True(t, cits[1].TrueByParallel)
	assert.Equal(t, models.SourceAPI, cits[1].VerificationSource)
	assert.Equal(t, cits[0].CanonicalName, cits[1].CanonicalName)
}

func TestVerifyAll_ProgressReported(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer api.Close()

	svc := newTestService(t, api.URL, "")
	cits := []models.Citation{pacificCitation(10), pacificCitation(500)}
	cits[1].ClusterID = 1
	clusters := []models.Cluster{
		{ID: 0, MemberIndexes: []int{0}},
		{ID: 1, MemberIndexes: []int{1}},
	}

	var seen [][2]int
	svc.VerifyAll(context.Background(), cits, clusters, func(done, total int) {
		seen = append(seen, [2]int{done, total})
	})
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, seen)
}

func TestPropagateClusters_PrefersAPIProducer(t *testing.T) {
	cits := []models.Citation{
		{Text: "a", Verified: true, VerificationSource: models.SourceJustia,
			CanonicalName: "From Justia", CanonicalDate: "2009-01-01"},
		{Text: "b", Verified: true, VerificationSource: models.SourceAPI,
			CanonicalName: "From API", CanonicalDate: "2009-02-02"},
		{Text: "c"},
	}
	clusters := []models.Cluster{{ID: 0, MemberIndexes: []int{0, 1, 2}, ClusterYear: intPtr(2009)}}

	PropagateClusters(cits, clusters)
	assert.Equal(t, "From API", cits[2].CanonicalName)
	assert.True(t, cits[2].TrueByParallel)
	// The peer carries the producer's source; true_by_parallel is what
	// distinguishes it from a direct verification.
	assert.Equal(t, models.SourceAPI, cits[2].VerificationSource)
	assert.Equal(t, "From API", clusters[0].ClusterCaseName)
	assert.Equal(t, models.SourceAPI, clusters[0].VerificationSource)
}

func TestPropagateClusters_NoVerifiedMembersUnchanged(t *testing.T) {
	cits := []models.Citation{{Text: "a"}, {Text: "b"}}
	clusters := []models.Cluster{{ID: 0, MemberIndexes: []int{0, 1}}}

	PropagateClusters(cits, clusters)
	assert.False(t, cits[0].Verified)
	assert.False(t, cits[1].Verified)
	assert.Empty(t, clusters[0].VerificationSource)
}
