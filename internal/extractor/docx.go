// -----------------------------------------------------------------------
// DOCX and ODT Extraction - Zip container + XML character data
// -----------------------------------------------------------------------

package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractDOCX reads word/document.xml out of the OOXML package and decodes
// paragraph text. w:t holds runs, w:p ends become newlines, w:tab tabs.
func extractDOCX(data []byte) (string, error) {
	doc, err := readZipEntry(data, "word/document.xml")
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX package: %w", err)
	}
	return decodeWordXML(doc, wordprocessingTags)
}

// extractODT reads content.xml out of the OpenDocument package. text:p and
// text:h are paragraphs; text:tab maps to a tab.
func extractODT(data []byte) (string, error) {
	doc, err := readZipEntry(data, "content.xml")
	if err != nil {
		return "", fmt.Errorf("failed to open ODT package: %w", err)
	}
	return decodeWordXML(doc, opendocumentTags)
}

// xmlTagSet names the container-specific elements driving text layout.
type xmlTagSet struct {
	textRun   string // Element whose chardata is document text ("" = all chardata)
	paragraph []string
	tab       string
	lineBreak string
}

var wordprocessingTags = xmlTagSet{
	textRun:   "t",
	paragraph: []string{"p"},
	tab:       "tab",
	lineBreak: "br",
}

var opendocumentTags = xmlTagSet{
	paragraph: []string{"p", "h"},
	tab:       "tab",
	lineBreak: "line-break",
}

func decodeWordXML(data []byte, tags xmlTagSet) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var sb strings.Builder
	inRun := tags.textRun == ""

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document XML: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case tags.textRun:
				inRun = true
			case tags.tab:
				sb.WriteByte('\t')
			case tags.lineBreak:
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			if tags.textRun != "" && el.Name.Local == tags.textRun {
				inRun = false
			}
			for _, p := range tags.paragraph {
				if el.Name.Local == p {
					sb.WriteString("\n\n")
					break
				}
			}
		case xml.CharData:
			if inRun {
				sb.Write(el)
			}
		}
	}
	return sb.String(), nil
}

func readZipEntry(data []byte, name string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("missing package entry %s", name)
}

// zipContains reports whether the archive holds the named entry. Used for
// container sniffing; corrupt archives simply fail the check.
func zipContains(data []byte, name string) bool {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, file := range reader.File {
		if file.Name == name {
			return true
		}
	}
	return false
}
