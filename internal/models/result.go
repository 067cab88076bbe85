// -----------------------------------------------------------------------
// Analysis Result - Immutable public output of one analysis run
// -----------------------------------------------------------------------

package models

import "time"

// ResultStats summarizes one analysis run.
type ResultStats struct {
	CitationsTotal    int   `json:"citations_total"`
	CitationsVerified int   `json:"citations_verified"`
	ClustersTotal     int   `json:"clusters_total"`
	RateLimited       bool  `json:"rate_limited"` // A structured-API 429 occurred during this run
	DurationMs        int64 `json:"duration_ms"`
}

// AnalysisResult is the immutable record written once per finished task and
// served until its TTL lapses. Citations are in document order; cluster IDs
// are stable within this result only.
type AnalysisResult struct {
	ID        string    `json:"result_id"`
	TaskID    string    `json:"task_id,omitempty"` // Empty for inline (immediate) runs
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" badgerhold:"index"`

	SourceKind SourceKind `json:"source_kind"`
	SourceName string     `json:"source_name,omitempty"`

	Citations []Citation  `json:"citations"`
	Clusters  []Cluster   `json:"clusters"`
	Stats     ResultStats `json:"stats"`
}

// NewAnalysisResult creates a result shell; citations, clusters, and stats
// are filled by the pipeline before the result is stored.
func NewAnalysisResult(id, taskID string, ttl time.Duration) *AnalysisResult {
	now := time.Now()
	return &AnalysisResult{
		ID:        id,
		TaskID:    taskID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Citations: []Citation{},
		Clusters:  []Cluster{},
	}
}

// ComputeStats derives the summary counters from the citation list.
func (r *AnalysisResult) ComputeStats(durationMs int64, rateLimited bool) {
	verified := 0
	for i := range r.Citations {
		if r.Citations[i].Verified {
			verified++
		}
	}
	r.Stats = ResultStats{
		CitationsTotal:    len(r.Citations),
		CitationsVerified: verified,
		ClustersTotal:     len(r.Clusters),
		RateLimited:       rateLimited,
		DurationMs:        durationMs,
	}
}

// IsExpired reports whether the result's TTL has lapsed.
func (r *AnalysisResult) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
