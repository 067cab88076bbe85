// -----------------------------------------------------------------------
// Fallback Sources - Ranked HTML legal databases with per-site extraction
// -----------------------------------------------------------------------

package verifier

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/casestrainer/internal/models"
)

// sourceHit is a candidate scraped from one fallback page.
type sourceHit struct {
	ok   bool
	name string
	date string // Year or ISO date as printed on the page
	url  string
}

// fallbackSource describes one ranked HTML database: how to build the
// query URL for a citation and how to read a case name, date, and link
// out of the returned page.
type fallbackSource struct {
	name         models.VerificationSource
	needsBrowser bool
	buildURL     func(c *models.Citation) string
	extract      func(doc *goquery.Document, c *models.Citation) sourceHit
}

var caseNameLineRe = regexp.MustCompile(`(In re |Ex parte |Matter of |Estate of |[A-Z][\w.,'&-]*(?: [\w.,'&-]+)* v\.? [A-Z])`)
var pageYearRe = regexp.MustCompile(`\((?:[A-Za-z.\s]*\s)?(1[789]\d{2}|20\d{2})\)`)
var bareYearRe = regexp.MustCompile(`\b(1[789]\d{2}|20\d{2})\b`)

// defaultSourceOrder is the built-in ranking; verification.fallback_source_order
// reorders or trims it.
var defaultSourceOrder = []string{
	"justia", "leagle", "casetext", "cornell_lii", "google_scholar",
	"findlaw", "casemine", "vlex", "openjurist",
}

func builtinSources() map[string]fallbackSource {
	return map[string]fallbackSource{
		"justia": {
			name: models.SourceJustia,
			buildURL: func(c *models.Citation) string {
				return "https://law.justia.com/search?cx=004471346074896664113%3A3ebsrnjk05g&q=" + url.QueryEscape(quoted(c.Text))
			},
			extract: func(doc *goquery.Document, c *models.Citation) sourceHit {
				return extractResultList(doc, "div.gsc-webResult a.gs-title, .search-result a, .result a", "https://law.justia.com")
			},
		},
		"leagle": {
			name: models.SourceLeagle,
			buildURL: func(c *models.Citation) string {
				return "https://www.leagle.com/leaglesearch?q=" + url.QueryEscape(quoted(c.Text))
			},
			extract: func(doc *goquery.Document, c *models.Citation) sourceHit {
				return extractResultList(doc, "div.search-result h3 a, .media-body a", "https://www.leagle.com")
			},
		},
		"casetext": {
			name:         models.SourceCaseText,
			needsBrowser: true,
			buildURL: func(c *models.Citation) string {
				return "https://casetext.com/search?q=" + url.QueryEscape(quoted(c.Text))
			},
			extract: func(doc *goquery.Document, c *models.Citation) sourceHit {
				return extractResultList(doc, "a.case-name, div.search-result a, h2 a", "https://casetext.com")
			},
		},
		"cornell_lii": {
			name: models.SourceCornellLII,
			buildURL: func(c *models.Citation) string {
				return "https://www.law.cornell.edu/search/site/" + url.PathEscape(c.Text)
			},
			extract: func(doc *goquery.Document, c *models.Citation) sourceHit {
				return extractResultList(doc, "ol.search-results h3 a, .search-result a", "https://www.law.cornell.edu")
			},
		},
		"google_scholar": {
			name: models.SourceGoogleScholar,
			buildURL: func(c *models.Citation) string {
				return "https://scholar.google.com/scholar?hl=en&as_sdt=6&q=" + url.QueryEscape(quoted(c.Text))
			},
			extract: func(doc *goquery.Document, c *models.Citation) sourceHit {
				hit := extractResultList(doc, "h3.gs_rt a", "https://scholar.google.com")
				if hit.ok && hit.date == "" {
					// Scholar prints "Court, Year" in the gs_a byline
					if m := bareYearRe.FindString(doc.Find("div.gs_a").First().Text()); m != "" {
						hit.date = m
					}
				}
				return hit
			},
		},
		"findlaw": {
			name: models.SourceFindLaw,
			buildURL: func(c *models.Citation) string {
				return "https://caselaw.findlaw.com/search?query=" + url.QueryEscape(quoted(c.Text))
			},
			extract: func(doc *goquery.Document, c *models.Citation) sourceHit {
				return extractResultList(doc, "div.searchresult h2 a, .case-title a", "https://caselaw.findlaw.com")
			},
		},
		"casemine": {
			name: models.SourceCaseMine,
			buildURL: func(c *models.Citation) string {
				return "https://www.casemine.com/search/us?q=" + url.QueryEscape(quoted(c.Text))
			},
			extract: func(doc *goquery.Document, c *models.Citation) sourceHit {
				return extractResultList(doc, "div.searchResult h4 a, .judgement-title a", "https://www.casemine.com")
			},
		},
		"vlex": {
			name:         models.SourceVLex,
			needsBrowser: true,
			buildURL: func(c *models.Citation) string {
				return "https://vlex.com/search/jurisdiction:US?q=" + url.QueryEscape(quoted(c.Text))
			},
			extract: func(doc *goquery.Document, c *models.Citation) sourceHit {
				return extractResultList(doc, "h3.search-result-title a, .document-title a", "https://vlex.com")
			},
		},
		"openjurist": {
			name: models.SourceOpenJurist,
			buildURL: func(c *models.Citation) string {
				// OpenJurist uses path-addressed citations, not a search form
				slug := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(c.Reporter, ".", ""), " ", "-"))
				return "https://openjurist.org/" + c.Volume + "/" + slug + "/" + c.Page
			},
			extract: func(doc *goquery.Document, c *models.Citation) sourceHit {
				title := strings.TrimSpace(doc.Find("h1#page-title, h1.title, h1").First().Text())
				if title == "" || !caseNameLineRe.MatchString(title) {
					return sourceHit{}
				}
				hit := sourceHit{ok: true, name: cleanPageName(title)}
				if m := bareYearRe.FindString(doc.Find("div.content, body").First().Text()); m != "" {
					hit.date = m
				}
				return hit
			},
		},
	}
}

// sourcesInOrder resolves the configured ranking to concrete sources.
// Unknown names are skipped; an empty order uses the built-in ranking.
func sourcesInOrder(order []string) []fallbackSource {
	if len(order) == 0 {
		order = defaultSourceOrder
	}
	all := builtinSources()
	out := make([]fallbackSource, 0, len(order))
	for _, name := range order {
		if src, ok := all[name]; ok {
			out = append(out, src)
		}
	}
	return out
}

// extractResultList picks the first search-result link whose text reads as
// a case caption and pairs it with a year found near the link.
func extractResultList(doc *goquery.Document, selector, base string) sourceHit {
	var hit sourceHit
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text == "" || !caseNameLineRe.MatchString(text) {
			return true
		}
		hit = sourceHit{ok: true, name: cleanPageName(text)}
		if href, ok := sel.Attr("href"); ok {
			hit.url = absoluteURL(base, href)
		}
		context := sel.Text() + " " + sel.Parent().Text()
		if m := pageYearRe.FindStringSubmatch(context); m != nil {
			hit.date = m[1]
		} else if m := bareYearRe.FindString(sel.Parent().Text()); m != "" {
			hit.date = m
		}
		return false
	})
	return hit
}

// citationTailRe locates the ", 388 P.3d 977 (2017)" tail a result title
// usually carries after the caption. Captions themselves contain commas
// ("Flying T Ranch, Inc. v. ..."), so the cut is at the first comma
// followed by a volume number.
var citationTailRe = regexp.MustCompile(`,\s*\d{1,4}[\s-]`)

func cleanPageName(title string) string {
	name := title
	if loc := citationTailRe.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}
	return strings.TrimSpace(name)
}

func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return base + href
	}
	return base + "/" + href
}

func quoted(s string) string {
	return `"` + s + `"`
}
