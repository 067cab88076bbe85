package main

import (
	"fmt"
	"strings"

	"github.com/ternarybob/casestrainer/internal/models"
)

// formatQueued tells the caller how to follow a queued task
func formatQueued(taskID string) string {
	var sb strings.Builder
	sb.WriteString("## Analysis Queued\n\n")
	sb.WriteString(fmt.Sprintf("**Task ID:** %s\n\n", taskID))
	sb.WriteString("The document was large enough to process in the background. ")
	sb.WriteString("Poll get_task_status with this task_id; when status is `finished`, fetch the result with get_result.\n")
	return sb.String()
}

// formatTaskStatus formats a task status snapshot as markdown
func formatTaskStatus(status *taskStatusResponse) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Task %s\n\n", status.TaskID))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n", status.Status))
	if status.Phase != "" {
		sb.WriteString(fmt.Sprintf("**Phase:** %s (%d%%)\n", status.Phase, status.Percent))
	}
	if status.ResultID != "" {
		sb.WriteString(fmt.Sprintf("**Result ID:** %s\n", status.ResultID))
	}
	if status.Error != "" {
		sb.WriteString(fmt.Sprintf("**Error:** %s (%s)\n", status.Error, status.ErrorCode))
	}
	return sb.String()
}

// formatResult formats an analysis result as markdown
func formatResult(result *models.AnalysisResult) string {
	if result == nil {
		return "No result returned."
	}

	var sb strings.Builder
	sb.WriteString("## Citation Analysis\n\n")
	sb.WriteString(fmt.Sprintf("**Result ID:** %s\n", result.ID))
	if result.SourceName != "" {
		sb.WriteString(fmt.Sprintf("**Source:** %s (%s)\n", result.SourceName, result.SourceKind))
	}
	sb.WriteString(fmt.Sprintf("**Citations:** %d found, %d verified, %d clusters\n\n",
		result.Stats.CitationsTotal, result.Stats.CitationsVerified, result.Stats.ClustersTotal))
	if result.Stats.RateLimited {
		sb.WriteString("Note: the citation API rate limit was hit during this run; some citations were checked against fallback sources only.\n\n")
	}

	if len(result.Citations) == 0 {
		sb.WriteString("No citations were found in the document.\n")
		return sb.String()
	}

	for i := range result.Citations {
		c := &result.Citations[i]
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, c.Text))
		if c.ExtractedCaseName != "" {
			sb.WriteString(fmt.Sprintf("**Case:** %s\n", c.ExtractedCaseName))
		}
		if c.HasYear() {
			sb.WriteString(fmt.Sprintf("**Year:** %d\n", c.YearOrZero()))
		}
		switch {
		case c.Verified && c.TrueByParallel:
			sb.WriteString(fmt.Sprintf("**Verified:** yes, via parallel citation in cluster %d\n", c.ClusterID))
		case c.Verified:
			sb.WriteString(fmt.Sprintf("**Verified:** yes (%s)\n", c.VerificationSource))
		default:
			sb.WriteString("**Verified:** no\n")
		}
		if c.CanonicalName != "" && c.CanonicalName != c.ExtractedCaseName {
			sb.WriteString(fmt.Sprintf("**Canonical name:** %s\n", c.CanonicalName))
		}
		if c.CanonicalURL != "" {
			sb.WriteString(fmt.Sprintf("**URL:** %s\n", c.CanonicalURL))
		}
		if c.VerificationError != "" {
			sb.WriteString(fmt.Sprintf("**Note:** %s\n", c.VerificationError))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
