// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Chamber identifies the legislative body a role belongs to.
type Chamber string

const (
	ChamberUpper       Chamber = "upper"
	ChamberLower       Chamber = "lower"
	ChamberLegislature Chamber = "legislature"
)

// PersonRecord holds the identity of one legislator as read from the
// source dataset. Records are immutable once parsed; a pipeline pass
// never mutates them.
type PersonRecord struct {
	// ID is the stable opaque identifier from the source record
	// (e.g. "ocd-person/8a9c3f02-...").
	ID string `json:"id" yaml:"id"`

	// Name is the legislator's display name.
	Name string `json:"name" yaml:"name"`

	// State is the jurisdiction code derived from the dataset path
	// (e.g. "ak", "tx").
	State string `json:"state" yaml:"state"`

	// Party is the legislator's party name, or "Unknown".
	Party string `json:"party" yaml:"party"`

	// District is the district of the current legislative role.
	District string `json:"district" yaml:"district"`

	// Chamber is the type of the current legislative role.
	Chamber Chamber `json:"chamber" yaml:"chamber"`

	// Active reports whether the person currently holds a legislative
	// role. Walk only yields active people; LoadPerson preserves the
	// status either way.
	Active bool `json:"active" yaml:"active"`

	// CampaignSite is a campaign or official website hint from the
	// source record's links, if any.
	CampaignSite string `json:"campaign_site,omitempty" yaml:"campaign_site,omitempty"`

	// FileStem is the source filename without extension
	// (e.g. "john-doe-8a9c3f02"). Output paths mirror it.
	FileStem string `json:"filename" yaml:"filename"`

	// SourcePath is the path of the YAML file the record was read from.
	SourcePath string `json:"yaml_path" yaml:"yaml_path"`
}
