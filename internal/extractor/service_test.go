package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(common.ExtractionConfig{
		ConvertFootnotes: true,
		MaxDocumentBytes: 10 * 1024 * 1024,
	}, common.GetLogger())
}

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractText_PlainTextPassthrough(t *testing.T) {
	svc := newTestService(t)

	text, err := svc.ExtractText(context.Background(),
		[]byte("Smith v. Jones, 100 P.3d 200 (2004).\r\nSecond line. End."),
		"text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "Smith v. Jones, 100 P.3d 200 (2004).\nSecond line. End.", text)
}

func TestExtractText_EmptyInput(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ExtractText(context.Background(), nil, "text/plain")
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.ErrCodeInputError, appErr.Code)
}

func TestExtractText_UnsupportedType(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ExtractText(context.Background(), []byte("data"), "image/png")
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.ErrCodeUnsupportedFormat, appErr.Code)
}

func TestExtractText_DOCX(t *testing.T) {
	svc := newTestService(t)
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>State v. Gresham, 173 Wn.2d 405 (2012).</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph</w:t></w:r><w:r><w:tab/><w:t>after tab.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildZip(t, map[string]string{
		"[Content_Types].xml": "<Types/>",
		"word/document.xml":   docXML,
	})

	text, err := svc.ExtractText(context.Background(), data, mimeDOCX)
	require.NoError(t, err)
	assert.Contains(t, text, "State v. Gresham, 173 Wn.2d 405 (2012).")
	assert.Contains(t, text, "Second paragraph\tafter tab.")
}

func TestExtractText_DOCXSniffedFromOctetStream(t *testing.T) {
	svc := newTestService(t)
	data := buildZip(t, map[string]string{
		"word/document.xml": `<w:document xmlns:w="x"><w:p><w:r><w:t>Sniffed body text here.</w:t></w:r></w:p></w:document>`,
	})

	text, err := svc.ExtractText(context.Background(), data, "application/octet-stream")
	require.NoError(t, err)
	assert.Contains(t, text, "Sniffed body text here.")
}

func TestExtractText_ODT(t *testing.T) {
	svc := newTestService(t)
	contentXML := `<?xml version="1.0"?>
<office:document-content xmlns:office="o" xmlns:text="t">
  <office:body><office:text>
    <text:h>Brief of Appellant</text:h>
    <text:p>See Flying T Ranch, 388 P.3d 977 (2017).</text:p>
  </office:text></office:body>
</office:document-content>`
	data := buildZip(t, map[string]string{
		"mimetype":    mimeODT,
		"content.xml": contentXML,
	})

	text, err := svc.ExtractText(context.Background(), data, mimeODT)
	require.NoError(t, err)
	assert.Contains(t, text, "Brief of Appellant")
	assert.Contains(t, text, "See Flying T Ranch, 388 P.3d 977 (2017).")
}

func TestExtractText_RTF(t *testing.T) {
	svc := newTestService(t)
	rtf := `{\rtf1\ansi{\fonttbl{\f0 Times New Roman;}}\f0\fs24 Smith v. Jones, 100 P.3d 200 (2004).\par Second \'e9 line with \u8220?quotes\u8221?.\par}`

	text, err := svc.ExtractText(context.Background(), []byte(rtf), "application/rtf")
	require.NoError(t, err)
	assert.Contains(t, text, "Smith v. Jones, 100 P.3d 200 (2004).")
	assert.NotContains(t, text, "Times New Roman")
	assert.NotContains(t, text, "fonttbl")
	assert.Contains(t, text, "é")
	assert.Contains(t, text, "“quotes”")
}

func TestExtractText_HTML(t *testing.T) {
	svc := newTestService(t)
	html := `<!DOCTYPE html><html><head><title>Case</title>
<script>var x = 1;</script><style>body{}</style></head>
<body><nav>Home | About</nav>
<h1>Opinion</h1>
<p>See <a href="/x">Brown v. Board of Education</a>, 347 U.S. 483 (1954).</p>
</body></html>`

	text, err := svc.ExtractText(context.Background(), []byte(html), "text/html; charset=utf-8")
	require.NoError(t, err)
	assert.Contains(t, text, "Brown v. Board of Education, 347 U.S. 483 (1954).")
	assert.NotContains(t, text, "var x = 1")
	assert.NotContains(t, text, "Home | About")
	assert.NotContains(t, text, "](")
}

func TestExtractText_TooLarge(t *testing.T) {
	svc := NewService(common.ExtractionConfig{MaxDocumentBytes: 10}, common.GetLogger())

	_, err := svc.ExtractText(context.Background(),
		[]byte("this text is longer than ten bytes"), "text/plain")
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.ErrCodeInputTooLarge, appErr.Code)
}

func TestConvertFootnotes(t *testing.T) {
	text := strings.Join([]string{
		"The court below erred. See note 1.",
		"1 Smith v. Jones, 100 P.3d 200 (2004), held the opposite.",
		"The second assignment of error follows.",
		"2 Brown v. Board of Education, 347 U.S. 483 (1954), controls here.",
	}, "\n")

	got := ConvertFootnotes(text)
	endnotesAt := strings.Index(got, "Endnotes:")
	require.Greater(t, endnotesAt, 0)
	assert.Contains(t, got[:endnotesAt], "second assignment of error")
	assert.Contains(t, got[endnotesAt:], "1. Smith v. Jones, 100 P.3d 200 (2004), held the opposite.")
	assert.Contains(t, got[endnotesAt:], "2. Brown v. Board of Education, 347 U.S. 483 (1954), controls here.")
}

func TestConvertFootnotes_NoSequenceUnchanged(t *testing.T) {
	text := "1. Introduction\nSome body text.\n3 A non-sequential numbered line that is long enough."
	assert.Equal(t, text, ConvertFootnotes(text))
}

func TestSniffMediaType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"pdf magic", []byte("%PDF-1.7 rest"), mimePDF},
		{"rtf magic", []byte(`{\rtf1 body}`), mimeRTF},
		{"html doctype", []byte("<!DOCTYPE html><html></html>"), mimeHTML},
		{"plain fallback", []byte("just words"), mimeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniffMediaType(tt.data))
		})
	}
}
