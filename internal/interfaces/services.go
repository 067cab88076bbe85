package interfaces

import (
	"context"

	"github.com/ternarybob/casestrainer/internal/models"
)

// ProgressFunc receives phase transitions as the pipeline advances.
// percent is the floor for the phase, or finer-grained progress while
// verifying.
type ProgressFunc func(phase models.TaskPhase, percent int)

// CancelCheckFunc reports whether cancellation was requested. The pipeline
// polls it at phase boundaries; cancellation is cooperative.
type CancelCheckFunc func() bool

// AnalyzeOptions carries per-run options into the pipeline.
type AnalyzeOptions struct {
	TaskID     string // Empty for inline runs
	SourceKind models.SourceKind
	SourceName string
	Progress   ProgressFunc
	Cancelled  CancelCheckFunc
}

// Pipeline runs the extraction, clustering, and verification stages over
// cleaned source text and produces an immutable result. The same pipeline
// serves both the inline path and queued workers.
type Pipeline interface {
	Analyze(ctx context.Context, text string, opts AnalyzeOptions) (*models.AnalysisResult, error)
}

// DocumentExtractor converts document bytes into cleaned UTF-8 text.
// The pipeline treats the extractor as opaque.
type DocumentExtractor interface {
	// ExtractText returns cleaned text or a typed error for unsupported
	// or undecodable input.
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)

	// SupportedTypes lists the accepted MIME types.
	SupportedTypes() []string
}

// DocumentFetcher downloads URL-mode input.
type DocumentFetcher interface {
	// Fetch returns the body and the response content type.
	Fetch(ctx context.Context, url string) (data []byte, mimeType string, err error)
}

// Verifier checks extracted citations against external sources, mutating
// the citation and cluster records in place. The returned flag reports
// whether a structured-API rate limit occurred during the run.
type Verifier interface {
	VerifyAll(ctx context.Context, citations []models.Citation, clusters []models.Cluster, progress func(done, total int)) (rateLimited bool)
}

// ReportService renders an analysis result as a PDF document.
type ReportService interface {
	GeneratePDF(ctx context.Context, result *models.AnalysisResult) ([]byte, error)
}
