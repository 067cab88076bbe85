// -----------------------------------------------------------------------
// Report Service - Renders an analysis result as a PDF summary
// -----------------------------------------------------------------------

package reports

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// Service renders results as PDF. The result is first summarized as
// markdown, then the markdown AST drives PDF layout, so the same summary
// could be served as text without touching the renderer.
type Service struct {
	logger arbor.ILogger
}

var _ interfaces.ReportService = (*Service)(nil)

// NewService creates the report renderer.
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// GeneratePDF renders the result summary.
func (s *Service) GeneratePDF(ctx context.Context, result *models.AnalysisResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("result is required")
	}

	markdown := buildMarkdown(result)
	pdf, err := renderMarkdown(markdown)
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	s.logger.Debug().
		Str("result_id", result.ID).
		Int("bytes", len(pdf)).
		Msg("Report rendered")
	return pdf, nil
}

// buildMarkdown summarizes the result: header, stats, clusters, then the
// full citation list in document order.
func buildMarkdown(result *models.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("# Citation Analysis Report\n\n")
	fmt.Fprintf(&b, "Result %s, generated %s.\n\n", result.ID, result.CreatedAt.Format("2 January 2006 15:04"))
	if result.SourceName != "" {
		fmt.Fprintf(&b, "Source: %s (%s)\n\n", result.SourceName, result.SourceKind)
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Citations found: %d\n", result.Stats.CitationsTotal)
	fmt.Fprintf(&b, "- Citations verified: %d\n", result.Stats.CitationsVerified)
	fmt.Fprintf(&b, "- Parallel citation clusters: %d\n", result.Stats.ClustersTotal)
	fmt.Fprintf(&b, "- Analysis time: %d ms\n", result.Stats.DurationMs)
	if result.Stats.RateLimited {
		b.WriteString("- Citation API rate limit was hit during this run; HTML fallbacks were used\n")
	}
	b.WriteString("\n")

	if len(result.Clusters) > 0 {
		b.WriteString("## Parallel Citation Clusters\n\n")
		for i := range result.Clusters {
			cluster := &result.Clusters[i]
			name := cluster.CanonicalName
			if name == "" {
				name = cluster.ClusterCaseName
			}
			if name == "" {
				name = "(case name not extracted)"
			}
			fmt.Fprintf(&b, "### %s\n\n", name)
			if cluster.ClusterYear != nil {
				fmt.Fprintf(&b, "Year: %d\n\n", *cluster.ClusterYear)
			}
			for _, member := range cluster.Citations {
				fmt.Fprintf(&b, "- %s\n", member)
			}
			if cluster.CanonicalURL != "" {
				fmt.Fprintf(&b, "\nVerified via %s: %s\n", cluster.VerificationSource, cluster.CanonicalURL)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Citations\n\n")
	if len(result.Citations) == 0 {
		b.WriteString("No citations were found in the document.\n")
	}
	for i := range result.Citations {
		c := &result.Citations[i]
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, c.Text)
		if c.ExtractedCaseName != "" {
			fmt.Fprintf(&b, "- Case: %s\n", c.ExtractedCaseName)
		}
		if c.HasYear() {
			fmt.Fprintf(&b, "- Year: %d\n", c.YearOrZero())
		}
		fmt.Fprintf(&b, "- Status: %s\n", verificationLabel(c))
		if c.CanonicalName != "" && c.CanonicalName != c.ExtractedCaseName {
			fmt.Fprintf(&b, "- Canonical name: %s\n", c.CanonicalName)
		}
		if c.CanonicalURL != "" {
			fmt.Fprintf(&b, "- Source: %s\n", c.CanonicalURL)
		}
		if c.VerificationError != "" {
			fmt.Fprintf(&b, "- Note: %s\n", c.VerificationError)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func verificationLabel(c *models.Citation) string {
	switch {
	case c.Verified && c.TrueByParallel:
		return fmt.Sprintf("verified via parallel citation (cluster %d)", c.ClusterID)
	case c.Verified:
		return fmt.Sprintf("verified (%s)", c.VerificationSource)
	default:
		return "unverified"
	}
}

// renderMarkdown walks the goldmark AST and lays out headings, paragraphs,
// and list items with fpdf.
func renderMarkdown(markdown string) ([]byte, error) {
	source := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			writeHeading(pdf, translate, n.Level, string(nodeText(n, source)))
		case *ast.Paragraph:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, translate(string(nodeText(n, source))), "", "L", false)
			pdf.Ln(2)
		case *ast.List:
			pdf.SetFont("Helvetica", "", 10)
			for item := n.FirstChild(); item != nil; item = item.NextSibling() {
				line := "-  " + string(nodeText(item, source))
				pdf.MultiCell(0, 5, translate(line), "", "L", false)
			}
			pdf.Ln(2)
		case *ast.ThematicBreak:
			x, y := pdf.GetXY()
			width, _ := pdf.GetPageSize()
			pdf.Line(x, y, width-18, y)
			pdf.Ln(4)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeading(pdf *fpdf.Fpdf, translate func(string) string, level int, heading string) {
	size := 16.0
	switch {
	case level >= 3:
		size = 11
	case level == 2:
		size = 13
	}
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.5, translate(heading), "", "L", false)
	pdf.Ln(2)
}

// nodeText flattens the inline text of a block node, joining segments with
// spaces so soft line breaks do not glue words together.
func nodeText(node ast.Node, source []byte) []byte {
	var out bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			out.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				out.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return bytes.ReplaceAll(out.Bytes(), []byte("\n"), []byte(" "))
}
