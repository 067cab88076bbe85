// -----------------------------------------------------------------------
// Reporter Registry - Pattern set and label tables loaded from reporters.yaml
// -----------------------------------------------------------------------

package citations

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/casestrainer/internal/models"
)

//go:embed reporters.yaml
var reportersYAML []byte

// Pattern is one compiled reporter-family pattern. Every pattern captures
// volume, reporter, and page named groups.
type Pattern struct {
	Name   string
	Family models.ReporterFamily

	re      *regexp.Regexp
	volIdx  int
	repIdx  int
	pageIdx int
}

// Registry holds the closed pattern set plus the label alias and
// jurisdiction tables. It is immutable after construction and safe for
// concurrent use.
type Registry struct {
	patterns []Pattern

	canonical     map[string]string                // compact spelling -> canonical label
	families      map[string]models.ReporterFamily // canonical label -> family
	aliases       map[string][]string              // canonical label -> alias spellings
	fullnames     map[string]string                // canonical label -> long-form name
	neutralCodes  map[string]string                // neutral code -> jurisdiction
	jurisdictions map[string][]string              // canonical label -> allowed jurisdictions
}

type registryFile struct {
	Patterns []struct {
		Name   string `yaml:"name"`
		Family string `yaml:"family"`
		Regex  string `yaml:"regex"`
	} `yaml:"patterns"`
	Labels []struct {
		Canonical string   `yaml:"canonical"`
		Family    string   `yaml:"family"`
		Aliases   []string `yaml:"aliases"`
		Fullname  string   `yaml:"fullname"`
	} `yaml:"labels"`
	NeutralCodes  map[string]string `yaml:"neutral_codes"`
	Jurisdictions []struct {
		Labels  []string `yaml:"labels"`
		Allowed []string `yaml:"allowed"`
	} `yaml:"jurisdictions"`
}

// NewRegistry loads the embedded reporter registry and merges the
// configured alias and jurisdiction extensions over the built-in tables.
func NewRegistry(extraAliases map[string]string, extraJurisdictions map[string][]string) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(reportersYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse reporter registry: %w", err)
	}

	r := &Registry{
		canonical:     make(map[string]string),
		families:      make(map[string]models.ReporterFamily),
		aliases:       make(map[string][]string),
		fullnames:     make(map[string]string),
		neutralCodes:  make(map[string]string),
		jurisdictions: make(map[string][]string),
	}

	for _, p := range file.Patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p.Name, err)
		}
		pat := Pattern{
			Name:    p.Name,
			Family:  models.ReporterFamily(p.Family),
			re:      re,
			volIdx:  re.SubexpIndex("volume"),
			repIdx:  re.SubexpIndex("reporter"),
			pageIdx: re.SubexpIndex("page"),
		}
		if pat.volIdx < 0 || pat.repIdx < 0 || pat.pageIdx < 0 {
			return nil, fmt.Errorf("pattern %q is missing a volume/reporter/page group", p.Name)
		}
		r.patterns = append(r.patterns, pat)
	}
	if len(r.patterns) == 0 {
		return nil, fmt.Errorf("reporter registry contains no patterns")
	}

	for _, l := range file.Labels {
		r.canonical[compactLabel(l.Canonical)] = l.Canonical
		r.families[l.Canonical] = models.ReporterFamily(l.Family)
		if len(l.Aliases) > 0 {
			r.aliases[l.Canonical] = append([]string{}, l.Aliases...)
			for _, a := range l.Aliases {
				r.canonical[compactLabel(a)] = l.Canonical
			}
		}
		if l.Fullname != "" {
			r.fullnames[l.Canonical] = l.Fullname
		}
	}

	for code, jur := range file.NeutralCodes {
		r.neutralCodes[compactLabel(code)] = jur
	}

	for _, j := range file.Jurisdictions {
		for _, label := range j.Labels {
			r.jurisdictions[label] = append([]string{}, j.Allowed...)
		}
	}

	// Config-supplied aliases map extra spellings onto canonical labels.
	for alias, canon := range extraAliases {
		r.canonical[compactLabel(alias)] = canon
		r.aliases[canon] = append(r.aliases[canon], alias)
	}

	// Config-supplied jurisdiction sets replace the built-in entry for
	// their label.
	for label, allowed := range extraJurisdictions {
		r.jurisdictions[label] = append([]string{}, allowed...)
	}

	return r, nil
}

// CanonicalLabel maps any recognised spelling of a reporter label onto its
// canonical printed form. Unknown labels are returned with whitespace runs
// collapsed.
func (r *Registry) CanonicalLabel(raw string) string {
	if canon, ok := r.canonical[compactLabel(raw)]; ok {
		return canon
	}
	return collapseSpaces(raw)
}

// FamilyOf returns the reporter family for a canonical label, falling back
// to the state family for unknown labels.
func (r *Registry) FamilyOf(label string) models.ReporterFamily {
	if fam, ok := r.families[label]; ok {
		return fam
	}
	return models.FamilyState
}

// AllowedJurisdictions returns the allowed jurisdiction codes for a
// canonical label, or nil when the label is unrestricted.
func (r *Registry) AllowedJurisdictions(label string) []string {
	if allowed, ok := r.jurisdictions[label]; ok {
		return allowed
	}
	return nil
}

// NeutralJurisdiction maps a neutral citation code (possibly carrying a
// court suffix, e.g. "NMSC") onto its jurisdiction code.
func (r *Registry) NeutralJurisdiction(code string) string {
	if jur, ok := r.neutralCodes[compactLabel(code)]; ok {
		return jur
	}
	return collapseSpaces(code)
}

// Aliases returns the alias spellings for a canonical label.
func (r *Registry) Aliases(label string) []string {
	return r.aliases[label]
}

// Fullname returns the long-form reporter name when one is defined.
func (r *Registry) Fullname(label string) string {
	return r.fullnames[label]
}

// Patterns returns the compiled pattern set in registry order.
func (r *Registry) Patterns() []Pattern {
	return r.patterns
}

// compactLabel removes all whitespace so spelling variants collide.
func compactLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if c != ' ' && c != '\t' && c != '\n' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// collapseSpaces reduces whitespace runs to single spaces and trims.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
