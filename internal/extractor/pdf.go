// -----------------------------------------------------------------------
// PDF Text Extraction - pdfcpu content extraction with text-operator decode
// -----------------------------------------------------------------------

package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPDF pulls page text out of a PDF. pdfcpu has no direct text API,
// so page content streams are extracted to a temp directory and the text
// show operators (Tj, TJ, ', ") are decoded from each stream.
func (s *Service) extractPDF(ctx context.Context, data []byte) (string, error) {
	tempDir, err := os.MkdirTemp("", "casestrainer-pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempFile := filepath.Join(tempDir, "input.pdf")
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write temp PDF file: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(tempDir, "pages")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create page dir: %w", err)
	}
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract PDF content: %w", err)
	}

	pageTexts := make(map[int]string)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		pageTexts[pageNum] = decodeContentText(content)
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		text := pageTexts[pageNum]
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}
	return builder.String(), nil
}

// decodeContentText reads the literal strings fed to text show operators
// out of a raw page content stream. Strings are accumulated and flushed on
// Tj/TJ/quote operators; positioning operators TD/Td/T* become line breaks.
func decodeContentText(stream []byte) string {
	var out strings.Builder
	var pending []string

	i := 0
	for i < len(stream) {
		c := stream[i]
		switch {
		case c == '(':
			str, next := readLiteralString(stream, i)
			pending = append(pending, str)
			i = next
		case c == '<' && i+1 < len(stream) && stream[i+1] != '<':
			str, next := readHexString(stream, i)
			pending = append(pending, str)
			i = next
		case c == 'T' && i+1 < len(stream):
			switch stream[i+1] {
			case 'j', 'J':
				for _, s := range pending {
					out.WriteString(s)
				}
				pending = pending[:0]
				i += 2
			case 'd', 'D', '*':
				if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
					out.WriteByte('\n')
				}
				pending = pending[:0]
				i += 2
			default:
				i++
			}
		case c == '\'' || c == '"':
			out.WriteByte('\n')
			for _, s := range pending {
				out.WriteString(s)
			}
			pending = pending[:0]
			i++
		default:
			i++
		}
	}
	return out.String()
}

// readLiteralString parses a PDF literal string starting at the opening
// paren, handling escapes and balanced nested parens.
func readLiteralString(stream []byte, start int) (string, int) {
	var sb strings.Builder
	depth := 0
	i := start
	for i < len(stream) {
		c := stream[i]
		switch c {
		case '\\':
			if i+1 < len(stream) {
				switch stream[i+1] {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				case 'r', 'b', 'f':
					// Ignored control escapes
				case '(', ')', '\\':
					sb.WriteByte(stream[i+1])
				default:
					sb.WriteByte(stream[i+1])
				}
				i += 2
				continue
			}
			i++
		case '(':
			depth++
			if depth > 1 {
				sb.WriteByte(c)
			}
			i++
		case ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(c)
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), i
}

// readHexString parses a PDF hex string. Single-byte Latin text decodes
// directly; two-byte encodings fall back to dropping the high byte, which
// recovers ASCII from identity CID maps.
func readHexString(stream []byte, start int) (string, int) {
	end := start + 1
	for end < len(stream) && stream[end] != '>' {
		end++
	}
	hex := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') {
			return r
		}
		return -1
	}, string(stream[start+1:end]))

	var sb strings.Builder
	for j := 0; j+1 < len(hex); j += 2 {
		b := hexByte(hex[j])<<4 | hexByte(hex[j+1])
		if b >= 0x20 && b < 0x7f {
			sb.WriteByte(b)
		}
	}
	if end < len(stream) {
		end++
	}
	return sb.String(), end
}

func hexByte(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
