// -----------------------------------------------------------------------
// RTF Extraction - Control-word stripping state machine
// -----------------------------------------------------------------------

package extractor

import (
	"fmt"
	"strconv"
	"strings"
)

// Destination groups whose content is metadata, not document text.
var rtfSkipGroups = map[string]bool{
	"fonttbl":    true,
	"colortbl":   true,
	"stylesheet": true,
	"info":       true,
	"pict":       true,
	"header":     true,
	"footer":     true,
	"themedata":  true,
	"generator":  true,
}

// extractRTF strips RTF control words and groups, keeping document text.
// Handles \par and \line breaks, \'hh hex escapes, and \uN unicode escapes
// with their replacement-character skip counts.
func extractRTF(data []byte) (string, error) {
	if !strings.HasPrefix(string(data[:minInt(len(data), 5)]), `{\rtf`) {
		return "", fmt.Errorf("not an RTF document")
	}

	var sb strings.Builder
	skipDepth := 0 // Depth at which a skip group started, 0 = not skipping
	depth := 0
	ucSkip := 1      // Bytes to skip after \uN, set by \ucN
	pendingSkip := 0 // Replacement bytes remaining after a \uN

	i := 0
	for i < len(data) {
		c := data[i]
		switch c {
		case '{':
			depth++
			i++
		case '}':
			if skipDepth > 0 && depth == skipDepth {
				skipDepth = 0
			}
			depth--
			i++
		case '\\':
			word, param, hasParam, next := readControlWord(data, i+1)
			i = next
			if skipDepth > 0 {
				continue
			}
			switch word {
			case "":
				// Escaped literal like \{ \} \\
				if i-1 < len(data) {
					sb.WriteByte(data[i-1])
				}
			case "par", "line", "sect", "page":
				sb.WriteByte('\n')
			case "tab", "cell":
				sb.WriteByte('\t')
			case "emdash", "endash":
				sb.WriteByte('-')
			case "lquote", "rquote":
				sb.WriteByte('\'')
			case "ldblquote", "rdblquote":
				sb.WriteByte('"')
			case "'":
				if i+1 < len(data) {
					if b, err := strconv.ParseUint(string(data[i:i+2]), 16, 8); err == nil {
						if pendingSkip > 0 {
							pendingSkip--
						} else if b >= 0x20 {
							// Codepage bytes decode as Latin-1
							sb.WriteRune(rune(b))
						}
					}
					i += 2
				}
			case "uc":
				if hasParam {
					ucSkip = param
				}
			case "u":
				if hasParam {
					r := rune(param)
					if r < 0 {
						r += 65536
					}
					sb.WriteRune(r)
					pendingSkip = ucSkip
				}
			case "*":
				// Ignorable destination; skip the enclosing group
				skipDepth = depth
			default:
				if rtfSkipGroups[word] {
					skipDepth = depth
				}
			}
		case '\r', '\n':
			i++
		default:
			if skipDepth == 0 {
				if pendingSkip > 0 {
					pendingSkip--
				} else {
					sb.WriteByte(c)
				}
			}
			i++
		}
	}
	return sb.String(), nil
}

// readControlWord parses the control word starting after a backslash.
// Returns the word, its numeric parameter if any, and the next offset.
// Symbol controls (\', \*, escaped literals) return single-character words.
func readControlWord(data []byte, start int) (word string, param int, hasParam bool, next int) {
	i := start
	if i >= len(data) {
		return "", 0, false, i
	}

	c := data[i]
	if c == '\'' || c == '*' {
		return string(c), 0, false, i + 1
	}
	if !isAlpha(c) {
		// Escaped literal; caller reads data[next-1]
		return "", 0, false, i + 1
	}

	wordStart := i
	for i < len(data) && isAlpha(data[i]) {
		i++
	}
	word = string(data[wordStart:i])

	paramStart := i
	if i < len(data) && (data[i] == '-' || isDigit(data[i])) {
		i++
		for i < len(data) && isDigit(data[i]) {
			i++
		}
		if n, err := strconv.Atoi(string(data[paramStart:i])); err == nil {
			param, hasParam = n, true
		}
	}

	// A single trailing space terminates the control word
	if i < len(data) && data[i] == ' ' {
		i++
	}
	return word, param, hasParam, i
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
