package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/casestrainer/internal/citations"
	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// stubVerifier marks every cluster's first member verified.
type stubVerifier struct {
	called bool
}

func (v *stubVerifier) VerifyAll(ctx context.Context, cits []models.Citation, clusters []models.Cluster, progress func(done, total int)) bool {
	v.called = true
	for ki := range clusters {
		if len(clusters[ki].MemberIndexes) == 0 {
			continue
		}
		first := clusters[ki].MemberIndexes[0]
		cits[first].Verified = true
		cits[first].VerificationSource = models.SourceAPI
		cits[first].CanonicalName = cits[first].ExtractedCaseName
		cits[first].CanonicalDate = "2009-01-15"
		if progress != nil {
			progress(ki+1, len(clusters))
		}
	}
	return false
}

func newTestPipeline(t *testing.T, verifier interfaces.Verifier) *Service {
	t.Helper()
	reg, err := citations.NewRegistry(nil, nil)
	require.NoError(t, err)
	cfg := common.NewDefaultConfig()
	return NewService(cfg, citations.NewScanner(reg), verifier, common.GetLogger())
}

const sampleBrief = `The trial court misapplied the standard. Hale v. Wellpinit Sch. Dist.,
165 Wn.2d 494, 198 P.3d 1021 (2009). See also State v. Gresham, 173 Wn.2d 405,
269 P.3d 207 (2012).`

func TestAnalyze_EndToEnd(t *testing.T) {
	verifier := &stubVerifier{}
	svc := newTestPipeline(t, verifier)

	result, err := svc.Analyze(context.Background(), sampleBrief, interfaces.AnalyzeOptions{
		TaskID:     "task_test",
		SourceKind: models.SourceKindText,
		SourceName: "brief.txt",
	})
	require.NoError(t, err)
	assert.True(t, verifier.called)

	require.Len(t, result.Citations, 4)
	assert.Len(t, result.Clusters, 2)
	assert.Equal(t, "task_test", result.TaskID)
	assert.Equal(t, models.SourceKindText, result.SourceKind)
	assert.Equal(t, 4, result.Stats.CitationsTotal)
	assert.Equal(t, 2, result.Stats.ClustersTotal)
	assert.False(t, result.Stats.RateLimited)

	// Citations stay in document order with valid cluster assignments.
	for i := 1; i < len(result.Citations); i++ {
		assert.Greater(t, result.Citations[i].Start, result.Citations[i-1].Start)
	}
	for _, c := range result.Citations {
		assert.GreaterOrEqual(t, c.ClusterID, 0)
		assert.Less(t, c.ClusterID, len(result.Clusters))
	}
}

func TestAnalyze_ProgressSequence(t *testing.T) {
	svc := newTestPipeline(t, &stubVerifier{})

	var phases []models.TaskPhase
	var percents []int
	_, err := svc.Analyze(context.Background(), sampleBrief, interfaces.AnalyzeOptions{
		Progress: func(phase models.TaskPhase, percent int) {
			phases = append(phases, phase)
			percents = append(percents, percent)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.TaskPhase("extracting_citations"), phases[0])
	assert.Equal(t, models.TaskPhase("finalizing"), phases[len(phases)-1])
	// Percent never regresses.
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
	assert.Equal(t, 95, percents[len(percents)-1])
}

func TestAnalyze_EmptyTextRejected(t *testing.T) {
	svc := newTestPipeline(t, nil)

	_, err := svc.Analyze(context.Background(), "", interfaces.AnalyzeOptions{})
	require.Error(t, err)
	appErr := models.AsAppError(err)
	assert.Equal(t, models.ErrCodeInputError, appErr.Code)
}

func TestAnalyze_NoCitationsStillSucceeds(t *testing.T) {
	verifier := &stubVerifier{}
	svc := newTestPipeline(t, verifier)

	result, err := svc.Analyze(context.Background(),
		"This document cites nothing at all.", interfaces.AnalyzeOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Citations)
	assert.Empty(t, result.Clusters)
	assert.False(t, verifier.called, "verifier must not run with no citations")
	assert.Equal(t, 0, result.Stats.CitationsTotal)
}

func TestAnalyze_CancellationAtPhaseBoundary(t *testing.T) {
	svc := newTestPipeline(t, &stubVerifier{})

	_, err := svc.Analyze(context.Background(), sampleBrief, interfaces.AnalyzeOptions{
		Cancelled: func() bool { return true },
	})
	require.ErrorIs(t, err, ErrCanceled)
}

func TestAnalyze_Deterministic(t *testing.T) {
	svc := newTestPipeline(t, nil)

	first, err := svc.Analyze(context.Background(), sampleBrief, interfaces.AnalyzeOptions{})
	require.NoError(t, err)
	second, err := svc.Analyze(context.Background(), sampleBrief, interfaces.AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Citations, second.Citations)
	assert.Equal(t, first.Clusters, second.Clusters)
}
