// -----------------------------------------------------------------------
// Document Extractor Service - Converts uploaded documents to cleaned text
// -----------------------------------------------------------------------

package extractor

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

const (
	mimeText  = "text/plain"
	mimePDF   = "application/pdf"
	mimeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeRTF   = "application/rtf"
	mimeODT   = "application/vnd.oasis.opendocument.text"
	mimeHTML  = "text/html"
	mimeOctet = "application/octet-stream"
)

// Service decodes document bytes into cleaned UTF-8 text. Dispatch is by
// MIME type, with content sniffing when the declared type is missing or
// generic.
type Service struct {
	logger           arbor.ILogger
	convertFootnotes bool
	maxDocumentBytes int64
}

var _ interfaces.DocumentExtractor = (*Service)(nil)

func NewService(cfg common.ExtractionConfig, logger arbor.ILogger) *Service {
	return &Service{
		logger:           logger,
		convertFootnotes: cfg.ConvertFootnotes,
		maxDocumentBytes: cfg.MaxDocumentBytes,
	}
}

// SupportedTypes lists the accepted MIME types.
func (s *Service) SupportedTypes() []string {
	return []string{mimeText, mimePDF, mimeDOCX, mimeRTF, mimeODT, mimeHTML}
}

// ExtractText converts document bytes to cleaned text. mimeType may carry
// parameters ("text/html; charset=utf-8"); only the media type is used.
func (s *Service) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", models.NewInputError("document is empty")
	}

	mt := normalizeMediaType(mimeType)
	if mt == "" || mt == mimeOctet {
		mt = sniffMediaType(data)
	}

	var text string
	var err error
	switch mt {
	case mimeText:
		text = string(data)
	case mimePDF:
		text, err = s.extractPDF(ctx, data)
		if err == nil && s.convertFootnotes {
			text = ConvertFootnotes(text)
		}
	case mimeDOCX:
		text, err = extractDOCX(data)
	case mimeODT:
		text, err = extractODT(data)
	case mimeRTF:
		text, err = extractRTF(data)
	case mimeHTML:
		text, err = extractHTML(data)
	default:
		return "", models.NewAppError(models.ErrCodeUnsupportedFormat,
			"unsupported document type: "+mt, nil)
	}
	if err != nil {
		if appErr := asExtractionError(err); appErr != nil {
			return "", appErr
		}
		return "", models.NewAppError(models.ErrCodeExtractionError,
			"failed to extract document text", err)
	}

	text = cleanText(text)
	if text == "" {
		return "", models.NewAppError(models.ErrCodeExtractionError,
			"document produced no text", nil)
	}
	if s.maxDocumentBytes > 0 && int64(len(text)) > s.maxDocumentBytes {
		return "", models.NewAppError(models.ErrCodeInputTooLarge,
			"extracted text exceeds the configured limit", nil)
	}

	s.logger.Debug().
		Str("media_type", mt).
		Int("input_bytes", len(data)).
		Int("text_bytes", len(text)).
		Msg("Extracted document text")

	return text, nil
}

func asExtractionError(err error) *models.AppError {
	var appErr *models.AppError
	if e, ok := err.(*models.AppError); ok {
		appErr = e
	}
	return appErr
}

// normalizeMediaType strips parameters and lowercases the media type.
func normalizeMediaType(mimeType string) string {
	mt := mimeType
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// sniffMediaType guesses a media type from leading bytes. Zip containers
// are disambiguated by their package contents.
func sniffMediaType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return mimePDF
	case bytes.HasPrefix(data, []byte(`{\rtf`)):
		return mimeRTF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		if zipContains(data, "word/document.xml") {
			return mimeDOCX
		}
		if zipContains(data, "content.xml") {
			return mimeODT
		}
		return mimeOctet
	case looksLikeHTML(data):
		return mimeHTML
	default:
		return mimeText
	}
}

func looksLikeHTML(data []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(data[:minInt(len(data), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.HasPrefix(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<body"))
}

// cleanText normalizes line endings, replaces non-breaking spaces, and
// drops invalid UTF-8 so downstream rune offsets stay stable.
func cleanText(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(text)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
