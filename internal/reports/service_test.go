package reports

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/models"
)

func intPtr(v int) *int { return &v }

func sampleResult() *models.AnalysisResult {
	result := models.NewAnalysisResult("result_report", "task_report", time.Hour)
	result.SourceKind = models.SourceKindFile
	result.SourceName = "brief.pdf"
	result.Citations = []models.Citation{
		{
			Text:               "198 P.3d 1021",
			ExtractedCaseName:  "Hale v. Wellpinit School District",
			ExtractedYear:      intPtr(2009),
			Verified:           true,
			VerificationSource: models.SourceAPI,
			CanonicalName:      "Hale v. Wellpinit School District No. 49",
			CanonicalURL:       "https://example.org/hale",
			ClusterID:          0,
		},
		{
			Text:      "165 Wn.2d 494",
			Verified:  false,
			ClusterID: 0,
		},
	}
	result.Clusters = []models.Cluster{
		{
			ID:                 0,
			ClusterCaseName:    "Hale v. Wellpinit School District",
			ClusterYear:        intPtr(2009),
			CanonicalName:      "Hale v. Wellpinit School District No. 49",
			CanonicalURL:       "https://example.org/hale",
			VerificationSource: models.SourceAPI,
			Citations:          []string{"165 Wn.2d 494", "198 P.3d 1021"},
			MemberIndexes:      []int{0, 1},
		},
	}
	result.ComputeStats(1200, false)
	return result
}

func TestBuildMarkdown_CoversResultFields(t *testing.T) {
	md := buildMarkdown(sampleResult())

	assert.Contains(t, md, "# Citation Analysis Report")
	assert.Contains(t, md, "Citations found: 2")
	assert.Contains(t, md, "Citations verified: 1")
	assert.Contains(t, md, "Hale v. Wellpinit School District No. 49")
	assert.Contains(t, md, "198 P.3d 1021")
	assert.Contains(t, md, "verified (api)")
	assert.Contains(t, md, "unverified")
	assert.Contains(t, md, "brief.pdf")
}

func TestBuildMarkdown_RateLimitNoted(t *testing.T) {
	result := sampleResult()
	result.ComputeStats(1200, true)
	md := buildMarkdown(result)
	assert.Contains(t, md, "rate limit")
}

func TestGeneratePDF_ProducesDocument(t *testing.T) {
	svc := NewService(common.GetLogger())

	pdf, err := svc.GeneratePDF(context.Background(), sampleResult())
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF-"), "output must be a PDF document")
}

func TestGeneratePDF_EmptyResult(t *testing.T) {
	svc := NewService(common.GetLogger())

	result := models.NewAnalysisResult("result_empty", "", time.Hour)
	result.ComputeStats(5, false)

	pdf, err := svc.GeneratePDF(context.Background(), result)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)

	_, err = svc.GeneratePDF(context.Background(), nil)
	require.Error(t, err)
}
