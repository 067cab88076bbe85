// -----------------------------------------------------------------------
// Analysis Pipeline - Scan, cluster, verify, and assemble the result
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/citations"
	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// ErrCanceled reports a cooperative cancellation observed at a phase
// boundary. Workers map it to the canceled task status, never failed.
var ErrCanceled = errors.New("analysis canceled")

// Service is the extraction pipeline shared by the inline path and queued
// workers. It receives cleaned text; upstream fetching and document
// decoding happen before Analyze. Given the same text and configuration
// the output is deterministic apart from verification outcomes.
type Service struct {
	scanner  *citations.Scanner
	verifier interfaces.Verifier
	logger   arbor.ILogger

	clusterOpts         citations.ClusterOptions
	verificationEnabled bool
	resultTTL           time.Duration
}

var _ interfaces.Pipeline = (*Service)(nil)

func NewService(cfg *common.Config, scanner *citations.Scanner, verifier interfaces.Verifier, logger arbor.ILogger) *Service {
	return &Service{
		scanner:  scanner,
		verifier: verifier,
		logger:   logger,
		clusterOpts: citations.ClusterOptions{
			SimilarityThreshold: cfg.Pipeline.NameSimilarityThreshold,
			YearTolerance:       cfg.Pipeline.YearToleranceCluster,
			MaxSpanChars:        cfg.Pipeline.ClusterMaxSpanChars,
			ProximityChars:      cfg.Pipeline.ClusterProximityChars,
		},
		verificationEnabled: cfg.Verification.Enabled,
		resultTTL:           cfg.ResultTTL(),
	}
}

// Analyze runs extraction, clustering, and verification over text and
// returns the assembled result. Cancellation is checked at phase
// boundaries only; in-flight HTTP calls abort through their own timeouts.
func (s *Service) Analyze(ctx context.Context, text string, opts interfaces.AnalyzeOptions) (*models.AnalysisResult, error) {
	if text == "" {
		return nil, models.NewInputError("no text to analyze")
	}
	start := time.Now()

	if err := s.checkCancel(ctx, opts); err != nil {
		return nil, err
	}
	reportPhase(opts.Progress, models.PhaseExtractingCitations)
	cits := s.scanner.Scan(text)

	if err := s.checkCancel(ctx, opts); err != nil {
		return nil, err
	}
	reportPhase(opts.Progress, models.PhaseClustering)
	clusters := citations.BuildClusters(cits, s.clusterOpts)

	if err := s.checkCancel(ctx, opts); err != nil {
		return nil, err
	}
	reportPhase(opts.Progress, models.PhaseVerifying)
	rateLimited := false
	if s.verificationEnabled && s.verifier != nil && len(cits) > 0 {
		rateLimited = s.verifier.VerifyAll(ctx, cits, clusters, func(done, total int) {
			if opts.Progress != nil {
				opts.Progress(models.PhaseVerifying, verifyPercent(done, total))
			}
		})
	}

	if err := s.checkCancel(ctx, opts); err != nil {
		return nil, err
	}
	reportPhase(opts.Progress, models.PhaseFinalizing)

	result := models.NewAnalysisResult(common.NewResultID(), opts.TaskID, s.resultTTL)
	result.SourceKind = opts.SourceKind
	result.SourceName = opts.SourceName
	result.Citations = cits
	result.Clusters = clusters
	result.ComputeStats(time.Since(start).Milliseconds(), rateLimited)

	s.logger.Info().
		Str("task_id", opts.TaskID).
		Str("result_id", result.ID).
		Int("citations", result.Stats.CitationsTotal).
		Int("verified", result.Stats.CitationsVerified).
		Int("clusters", result.Stats.ClustersTotal).
		Bool("rate_limited", rateLimited).
		Int64("duration_ms", result.Stats.DurationMs).
		Msg("Analysis complete")

	return result, nil
}

func (s *Service) checkCancel(ctx context.Context, opts interfaces.AnalyzeOptions) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if opts.Cancelled != nil && opts.Cancelled() {
		return ErrCanceled
	}
	return nil
}
