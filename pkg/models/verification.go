package models

// VerificationStatus classifies a verified claim group.
type VerificationStatus string

const (
	StatusAgreement    VerificationStatus = "AGREEMENT"
	StatusConflict     VerificationStatus = "CONFLICT"
	StatusSingleSource VerificationStatus = "SINGLE_SOURCE"
)

// ConfidenceLevel grades the overall trust in an answer.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// Claim is one atomic factual statement attributed to a single source URL.
type Claim struct {
	Text      string `json:"claim"`
	SourceURL string `json:"source_url"`
}

// VerifiedClaim is a group of semantically near-identical claims aggregated
// across sources. Claim holds the representative text verbatim; Sources is
// the deduplicated URL list in encounter order.
type VerifiedClaim struct {
	Claim   string             `json:"claim"`
	Status  VerificationStatus `json:"status"`
	Sources []string           `json:"sources"`
}
