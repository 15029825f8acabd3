// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Issue is one campaign policy position reported by the research backend.
type Issue struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Category    string `json:"category" yaml:"category"`
	Source      string `json:"source" yaml:"source"`
}

// CorporateDonor is one corporate contributor. Amounts are opaque display
// strings as reported by campaign finance sources; they are never parsed.
type CorporateDonor struct {
	Name     string `json:"name" yaml:"name"`
	Amount   string `json:"amount" yaml:"amount"`
	Industry string `json:"industry" yaml:"industry"`
	Cycle    string `json:"cycle" yaml:"cycle"`
}

// IndustryTotal is an aggregate contribution figure for one industry.
type IndustryTotal struct {
	Industry    string `json:"industry" yaml:"industry"`
	TotalAmount string `json:"total_amount" yaml:"total_amount"`
	Percentage  string `json:"percentage" yaml:"percentage"`
}

// IdeologicalDonor is a PAC or advocacy-group contributor.
type IdeologicalDonor struct {
	Name       string `json:"name" yaml:"name"`
	Amount     string `json:"amount" yaml:"amount"`
	Ideology   string `json:"ideology" yaml:"ideology"`
	IssueFocus string `json:"issue_focus" yaml:"issue_focus"`
	Cycle      string `json:"cycle" yaml:"cycle"`
}

// IndividualDonor is a named individual contributor.
type IndividualDonor struct {
	Name       string `json:"name" yaml:"name"`
	Amount     string `json:"amount" yaml:"amount"`
	Occupation string `json:"occupation" yaml:"occupation"`
}

// DonorProfile is the funding breakdown for one legislator. The lists keep
// the backend's ordering; a nil list marshals as [] via NormalizeLists.
type DonorProfile struct {
	TopCompanies      []CorporateDonor   `json:"top_companies" yaml:"top_companies"`
	TopIndustries     []IndustryTotal    `json:"top_industries" yaml:"top_industries"`
	IdeologicalDonors []IdeologicalDonor `json:"ideological_donors" yaml:"ideological_donors"`
	IndividualDonors  []IndividualDonor  `json:"individual_donors" yaml:"individual_donors"`
	DataSource        string             `json:"data_source" yaml:"data_source"`
	SourceURL         string             `json:"source_url" yaml:"source_url"`
}

// TokenUsage counts tokens consumed by one backend call or run.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

// Add accumulates another usage into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// ProcessingMetadata records how and when one result was produced.
// It is attached by the invoker and never recomputed downstream.
type ProcessingMetadata struct {
	// ProcessedDate is the processing timestamp in RFC 3339 format.
	ProcessedDate string `json:"processed_date" yaml:"processed_date"`

	// RunID identifies the pipeline run that produced the result.
	RunID string `json:"run_id" yaml:"run_id"`

	// Model is the backend model identifier.
	Model string `json:"model" yaml:"model"`

	// TokensUsed is the token accounting for the backend call.
	TokensUsed TokenUsage `json:"tokens_used" yaml:"tokens_used"`

	// Error marks the error variant.
	Error bool `json:"error,omitempty" yaml:"error,omitempty"`
}

// ResearchResult is the per-legislator output artifact. One file exists per
// (state, identifier) pair at a time; re-processing overwrites, never merges.
// Both the success and error variants carry every top-level field.
type ResearchResult struct {
	LegislatorID string             `json:"legislator_id" yaml:"legislator_id"`
	Name         string             `json:"name" yaml:"name"`
	State        string             `json:"state" yaml:"state"`
	LastUpdated  string             `json:"last_updated" yaml:"last_updated"`
	Issues       []Issue            `json:"issues" yaml:"issues"`
	Donors       DonorProfile       `json:"donors" yaml:"donors"`
	Sources      []string           `json:"sources" yaml:"sources"`
	Error        string             `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata     ProcessingMetadata `json:"processing_metadata" yaml:"processing_metadata"`
}

// IsError reports whether r is the error variant.
func (r *ResearchResult) IsError() bool {
	return r.Error != ""
}

// DonorCount returns the number of corporate plus ideological donors.
func (r *ResearchResult) DonorCount() int {
	return len(r.Donors.TopCompanies) + len(r.Donors.IdeologicalDonors)
}

// NormalizeLists replaces nil slices with empty ones so every written
// result carries all list fields as [] rather than null.
func (r *ResearchResult) NormalizeLists() {
	if r.Issues == nil {
		r.Issues = []Issue{}
	}
	if r.Sources == nil {
		r.Sources = []string{}
	}
	if r.Donors.TopCompanies == nil {
		r.Donors.TopCompanies = []CorporateDonor{}
	}
	if r.Donors.TopIndustries == nil {
		r.Donors.TopIndustries = []IndustryTotal{}
	}
	if r.Donors.IdeologicalDonors == nil {
		r.Donors.IdeologicalDonors = []IdeologicalDonor{}
	}
	if r.Donors.IndividualDonors == nil {
		r.Donors.IndividualDonors = []IndividualDonor{}
	}
}
