// -----------------------------------------------------------------------
// Citation - A single legal citation located in the source text
// -----------------------------------------------------------------------

package models

import "strings"

// ReporterFamily groups reporter labels for jurisdiction checks.
// Families map to the set of jurisdictions a citation may resolve to.
type ReporterFamily string

const (
	FamilyFederal  ReporterFamily = "federal"  // U.S., S. Ct., L. Ed., F., F. Supp., Fed. Cl., B.R.
	FamilyAtlantic ReporterFamily = "atlantic" // A., A.2d, A.3d
	FamilyPacific  ReporterFamily = "pacific"  // P., P.2d, P.3d
	FamilyNE       ReporterFamily = "north_eastern"
	FamilyNW       ReporterFamily = "north_western"
	FamilySE       ReporterFamily = "south_eastern"
	FamilySW       ReporterFamily = "south_western"
	FamilySouthern ReporterFamily = "southern"
	FamilyState    ReporterFamily = "state"   // State-specific reporters (Wash., Cal. App., ...)
	FamilyNeutral  ReporterFamily = "neutral" // Court-assigned neutral citations (2024-NMSC-009)
	FamilyVendor   ReporterFamily = "vendor"  // WL / LEXIS online citations
)

// VerificationSource identifies which strategy produced a verification outcome.
type VerificationSource string

const (
	SourceNone          VerificationSource = ""
	SourceAPI           VerificationSource = "api"
	SourceAPISearch     VerificationSource = "api_search"
	SourceJustia        VerificationSource = "justia"
	SourceLeagle        VerificationSource = "leagle"
	SourceCaseText      VerificationSource = "casetext"
	SourceCornellLII    VerificationSource = "cornell_lii"
	SourceGoogleScholar VerificationSource = "google_scholar"
	SourceFindLaw       VerificationSource = "findlaw"
	SourceCaseMine      VerificationSource = "casemine"
	SourceVLex          VerificationSource = "vlex"
	SourceOpenJurist    VerificationSource = "openjurist"
)

// Citation is one located citation with its extracted and verified fields.
// Start/End are rune offsets into the cleaned source text. Citations are
// serialized into the Result in document order.
type Citation struct {
	Text    string `json:"text"`     // Normalized citation text
	RawText string `json:"raw_text"` // Text as matched in the source
	Start   int    `json:"start"`    // Rune offset of match start
	End     int    `json:"end"`      // Rune offset one past match end

	Reporter string         `json:"reporter"` // Canonical reporter label
	Family   ReporterFamily `json:"-"`        // Derived from reporter; not serialized
	Volume   string         `json:"volume"`   // Volume or year for neutral/vendor forms
	Page     string         `json:"page"`     // Page or sequence number

	ExtractedCaseName string `json:"extracted_case_name"`
	ExtractedYear     *int   `json:"extracted_year"`

	CanonicalName string `json:"canonical_name,omitempty"` // From the verification source
	CanonicalDate string `json:"canonical_date,omitempty"` // ISO date when known
	CanonicalURL  string `json:"canonical_url,omitempty"`

	Verified           bool               `json:"verified"`
	TrueByParallel     bool               `json:"true_by_parallel"` // Verified via a cluster peer, not directly
	VerificationSource VerificationSource `json:"verification_source"`
	VerificationError  string             `json:"verification_error,omitempty"` // Diagnostic, not fatal

	ClusterID int `json:"cluster_id"` // -1 when unclustered
}

// HasYear reports whether a year was extracted for this citation.
func (c *Citation) HasYear() bool {
	return c.ExtractedYear != nil && *c.ExtractedYear > 0
}

// YearOrZero returns the extracted year or 0 when absent.
func (c *Citation) YearOrZero() int {
	if c.ExtractedYear == nil {
		return 0
	}
	return *c.ExtractedYear
}

// HasName reports whether a non-empty case name was extracted.
func (c *Citation) HasName() bool {
	return strings.TrimSpace(c.ExtractedCaseName) != ""
}

// Span returns the character length of the matched text.
func (c *Citation) Span() int {
	return c.End - c.Start
}

// IsNeutral reports whether the citation uses a court-assigned neutral form.
func (c *Citation) IsNeutral() bool {
	return c.Family == FamilyNeutral
}
