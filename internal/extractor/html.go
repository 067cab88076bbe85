// -----------------------------------------------------------------------
// HTML Extraction - goquery cleanup + markdown conversion
// -----------------------------------------------------------------------

package extractor

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// Elements that never carry document prose.
var htmlNoiseSelectors = []string{
	"script", "style", "noscript", "nav", "header", "footer", "aside",
	"form", "iframe", "svg",
}

var markdownLinkRe = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)

// extractHTML strips chrome elements with goquery, converts the remainder
// to markdown, then flattens the markdown syntax that would confuse the
// citation scanner.
func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	for _, sel := range htmlNoiseSelectors {
		doc.Find(sel).Remove()
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	cleanedHTML, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize HTML: %w", err)
	}

	mdConverter := md.NewConverter("", true, nil)
	markdown, err := mdConverter.ConvertString(cleanedHTML)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML: %w", err)
	}
	return flattenMarkdown(markdown), nil
}

// flattenMarkdown removes the markdown markers the converter emits so the
// output reads as plain prose.
func flattenMarkdown(markdown string) string {
	text := markdownLinkRe.ReplaceAllString(markdown, "$1")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		trimmed = strings.TrimLeft(trimmed, "#>")
		trimmed = strings.TrimPrefix(trimmed, "- ")
		trimmed = strings.TrimPrefix(trimmed, "* ")
		trimmed = strings.ReplaceAll(trimmed, "**", "")
		trimmed = strings.ReplaceAll(trimmed, "__", "")
		lines = append(lines, strings.TrimSpace(trimmed))
	}
	return strings.Join(lines, "\n")
}
