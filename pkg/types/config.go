package types

import "time"

// BackendKind selects the research backend implementation.
type BackendKind string

const (
	BackendClaude BackendKind = "claude"
	BackendOpenAI BackendKind = "openai"
)

// AIConfig holds shared settings for components that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-20250514").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout bounds a single API round trip so one stuck request cannot
	// stall the whole batch.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// ResearchConfig holds settings for the research invoker.
type ResearchConfig struct {
	AIConfig `yaml:",inline"`

	// Backend selects the research backend: claude or openai.
	Backend BackendKind `json:"backend" yaml:"backend"`

	// WebSearch enables the backend's web-search tool where supported.
	// Strategy selection is configuration; the pipeline is unaware of it.
	WebSearch bool `json:"web_search" yaml:"web_search"`

	// RunID identifies the pipeline run in result metadata
	// (e.g. a CI run number); "local" when unset.
	RunID string `json:"run_id" yaml:"run_id"`
}

// PipelineConfig holds settings for a batch research run.
type PipelineConfig struct {
	// DataDir is the root of the source people dataset
	// (contains data/{state}/legislature/*.yml).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// OutputDir is the root of the research output tree, mirroring DataDir.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Locale restricts the run to one jurisdiction code; empty means all.
	Locale string `json:"locale" yaml:"locale"`

	// MaxPeople caps the number of newly processed people per run (default 10).
	// Already-completed people do not count against the cap.
	MaxPeople int `json:"max_people" yaml:"max_people"`

	// Force reprocesses people whose research output already exists.
	Force bool `json:"force" yaml:"force"`

	// RequestDelay is the pause between consecutive backend calls (default 1s).
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay"`
}
