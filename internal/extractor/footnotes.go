// -----------------------------------------------------------------------
// Footnote Conversion - Moves PDF footnote lines to an Endnotes section
// -----------------------------------------------------------------------

package extractor

import (
	"fmt"
	"regexp"
	"strings"
)

var footnoteLineRe = regexp.MustCompile(`^\s*\[?(\d{1,3})[\].]?\s+(\S.*)$`)

// Minimum body length for a numbered line to count as a footnote rather
// than a numbered heading or list item.
const footnoteMinBody = 20

// ConvertFootnotes relocates sequentially numbered footnote lines into an
// appended "Endnotes:" section. Footnotes in legal briefs hold citations;
// moving them after the body keeps footnote citations ordered after the
// main-body citations during scanning. Text without a clean footnote
// sequence passes through unchanged.
func ConvertFootnotes(text string) string {
	lines := strings.Split(text, "\n")

	type footnote struct {
		number int
		body   string
	}
	var notes []footnote
	var body []string
	expected := 1

	for _, line := range lines {
		m := footnoteLineRe.FindStringSubmatch(line)
		if m != nil {
			num := parseInt(m[1])
			if num == expected && len(m[2]) >= footnoteMinBody {
				notes = append(notes, footnote{number: num, body: strings.TrimSpace(m[2])})
				expected++
				continue
			}
		}
		body = append(body, line)
	}

	// A single matching line is more likely a list item than a footnote.
	if len(notes) < 2 {
		return text
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(strings.Join(body, "\n"), "\n"))
	sb.WriteString("\n\nEndnotes:\n")
	for _, note := range notes {
		sb.WriteString(fmt.Sprintf("%d. %s\n", note.number, note.body))
	}
	return sb.String()
}

func parseInt(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
