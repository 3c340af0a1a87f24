package models

// Document is one fetched and text-extracted web page.
type Document struct {
	URL   string
	Title string
	Text  string
}

// ResearchResult is the outcome of one research attempt: the synthesized
// answer plus the verified evidence backing it. Notes is empty when absent.
// DocumentCount and Errors exist for audit logging only and never cross the
// API boundary.
type ResearchResult struct {
	Answer           string
	ConfidenceLevel  ConfidenceLevel
	ConfidenceReason string
	Evidence         []VerifiedClaim
	Notes            string
	DocumentCount    int
	Errors           []string
}
