// -----------------------------------------------------------------------
// Context Isolator - Bounds the text window used for name/year extraction
// -----------------------------------------------------------------------

package citations

import (
	"sort"
	"strings"
	"unicode"
)

const (
	backWindowRunes    = 400
	forwardWindowRunes = 200
)

// document wraps cleaned text with its rune form and effective sentence
// terminator positions, computed once per analysis.
type document struct {
	text        string
	runes       []rune
	terminators []int // rune positions of sentence-ending . ? !
}

func newDocument(text string) *document {
	runes := []rune(text)
	return &document{
		text:        text,
		runes:       runes,
		terminators: sentenceTerminators(runes),
	}
}

func (d *document) slice(lo, hi int) string {
	if lo < 0 {
		lo = 0
	}
	if hi > len(d.runes) {
		hi = len(d.runes)
	}
	if lo >= hi {
		return ""
	}
	return string(d.runes[lo:hi])
}

// Window is the isolated context for one citation. NameContext covers
// [Lo, cite start) with neighbouring citations blanked and leading signal
// words stripped; AfterCite covers (cite end, Hi] with neighbours blanked.
type Window struct {
	Lo, Hi      int
	NameContext string
	AfterCite   string
	Full        string // Entire blanked window, for last-resort year search
}

// Isolator computes extraction windows. It guarantees the window handed to
// the name extractor for one citation never contains the text of another.
type Isolator struct {
	back    int
	forward int
}

func NewIsolator() *Isolator {
	return &Isolator{back: backWindowRunes, forward: forwardWindowRunes}
}

// Isolate computes the window for matches[i]. matches must be the full
// deduplicated match list in document order.
func (iso *Isolator) Isolate(doc *document, matches []Match, i int) Window {
	cite := matches[i]

	lo := cite.Start - iso.back
	if lo < 0 {
		lo = 0
	}
	if i > 0 && matches[i-1].End > lo {
		lo = matches[i-1].End
	}
	if t := lastTerminatorBefore(doc.terminators, cite.Start); t >= 0 && t+1 > lo {
		lo = t + 1
	}
	if lo > cite.Start {
		lo = cite.Start
	}

	hi := cite.End + iso.forward
	if hi > len(doc.runes) {
		hi = len(doc.runes)
	}
	if i+1 < len(matches) && matches[i+1].Start < hi {
		hi = matches[i+1].Start
	}
	if t := firstTerminatorAt(doc.terminators, cite.End); t >= 0 && t < hi {
		hi = t
	}
	if hi < cite.End {
		hi = cite.End
	}

	// Blank every other citation span that reaches into the window so
	// neighbours cannot contaminate extraction.
	window := make([]rune, hi-lo)
	copy(window, doc.runes[lo:hi])
	for j := range matches {
		if j == i {
			continue
		}
		blankOverlap(window, lo, matches[j].Start, matches[j].End)
	}

	nameCtx := string(window[:cite.Start-lo])
	nameCtx = StripSignalWords(nameCtx)

	return Window{
		Lo:          lo,
		Hi:          hi,
		NameContext: nameCtx,
		AfterCite:   string(window[cite.End-lo:]),
		Full:        string(window),
	}
}

// blankOverlap replaces the intersection of [start, end) with the window
// (which begins at doc offset lo) by spaces.
func blankOverlap(window []rune, lo, start, end int) {
	from := start - lo
	to := end - lo
	if from < 0 {
		from = 0
	}
	if to > len(window) {
		to = len(window)
	}
	for k := from; k < to; k++ {
		window[k] = ' '
	}
}

// signalWords is the closed set stripped from the head of a name context,
// longest phrases first so greedy matching picks the full form.
var signalWords = []string{
	"for example, in",
	"but see",
	"but cf.",
	"see also",
	"e.g.",
	"cf.",
	"accord",
	"id.",
	"contra",
	"see",
	"vacated",
	"remanded",
	"reversed",
	"affirmed",
	"overruling",
	"affirming",
}

// StripSignalWords removes leading signal words and the punctuation between
// them, case-insensitively at word boundaries, repeating until none remain.
// A context that was only signal words collapses to the empty string.
func StripSignalWords(s string) string {
	for {
		trimmed := strings.TrimLeft(s, " \t,;:")
		stripped := false
		lower := strings.ToLower(trimmed)
		for _, sig := range signalWords {
			if !strings.HasPrefix(lower, sig) {
				continue
			}
			// Word boundary: the signal must not run into a longer word.
			rest := trimmed[len(sig):]
			if rest != "" {
				r := []rune(rest)[0]
				if unicode.IsLetter(r) || unicode.IsDigit(r) {
					continue
				}
			}
			trimmed = rest
			stripped = true
			break
		}
		if !stripped {
			return strings.TrimLeft(trimmed, " \t,;:")
		}
		s = trimmed
	}
}

// sentenceTerminators finds the rune positions of effective sentence
// terminators: . ? ! outside quotation marks and parentheses, not part of
// a known abbreviation, and followed by whitespace or end of text.
func sentenceTerminators(runes []rune) []int {
	var positions []int
	parenDepth := 0
	inQuote := false

	for i, c := range runes {
		switch c {
		case '(', '[':
			parenDepth++
			continue
		case ')', ']':
			if parenDepth > 0 {
				parenDepth--
			}
			continue
		case '"':
			inQuote = !inQuote
			continue
		case '“': // left curly quote
			inQuote = true
			continue
		case '”': // right curly quote
			inQuote = false
			continue
		}

		if c != '.' && c != '?' && c != '!' {
			continue
		}
		if parenDepth > 0 || inQuote {
			continue
		}
		// Sentence boundaries are followed by whitespace or end the text.
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if c == '.' && isAbbreviationBefore(runes, i) {
			continue
		}
		positions = append(positions, i)
	}
	return positions
}

// abbreviations whose trailing period does not end a sentence. Single
// letters (initials, reporter fragments) are always treated as
// abbreviations and need no entry here.
var abbreviations = map[string]bool{
	"v": true, "vs": true,
	"inc": true, "llc": true, "corp": true, "co": true, "ltd": true,
	"dep't": true, "dept": true, "comm'n": true, "ass'n": true, "mun": true,
	"no": true, "nos": true, "mr": true, "mrs": true, "ms": true, "dr": true,
	"jr": true, "sr": true, "st": true, "rel": true, "ex": true, "al": true,
	"etc": true, "seq": true, "cert": true, "rev'd": true, "aff'd": true,
	"supp": true, "app": true, "ed": true, "ct": true, "cl": true,
	"fed": true, "cir": true, "wn": true, "wash": true, "stat": true,
}

// isAbbreviationBefore inspects the token preceding the period at pos.
func isAbbreviationBefore(runes []rune, pos int) bool {
	end := pos
	start := end
	for start > 0 {
		c := runes[start-1]
		if unicode.IsLetter(c) || c == '\'' || c == '’' {
			start--
			continue
		}
		break
	}
	if start == end {
		return false // Period with no word before it (digits, ellipsis)
	}
	token := strings.ToLower(string(runes[start:end]))
	token = strings.ReplaceAll(token, "’", "'")
	if len([]rune(token)) == 1 {
		return true
	}
	return abbreviations[token]
}

// lastTerminatorBefore returns the greatest terminator position < limit,
// or -1 when none exists.
func lastTerminatorBefore(terms []int, limit int) int {
	idx := sort.SearchInts(terms, limit)
	if idx == 0 {
		return -1
	}
	return terms[idx-1]
}

// firstTerminatorAt returns the smallest terminator position >= from, or
// -1 when none exists.
func firstTerminatorAt(terms []int, from int) int {
	idx := sort.SearchInts(terms, from)
	if idx >= len(terms) {
		return -1
	}
	return terms[idx]
}
