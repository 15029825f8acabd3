package research

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/civicdata/legislator-research/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

// --- mock backend ---

type mockReply struct {
	text  string
	usage types.TokenUsage
	err   error
}

// scriptedBackend returns its replies in order, repeating the last one.
type scriptedBackend struct {
	replies []mockReply
	calls   int
	prompts []string
}

func (s *scriptedBackend) Complete(_ context.Context, prompt string) (Completion, error) {
	s.prompts = append(s.prompts, prompt)
	idx := s.calls
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	s.calls++
	r := s.replies[idx]
	return Completion{Text: r.text, Usage: r.usage}, r.err
}

const findingsJSON = `{
  "issues": [
    {"title": "Healthcare", "description": "Supports expansion", "category": "healthcare", "source": "https://example.com/a"}
  ],
  "donors": {
    "top_companies": [
      {"name": "Acme Corp", "amount": "$12,000", "industry": "Manufacturing", "cycle": "2024"}
    ],
    "top_industries": [
      {"industry": "Manufacturing", "total_amount": "$40,000", "percentage": "20%"}
    ],
    "ideological_donors": [],
    "individual_donors": [],
    "data_source": "OpenSecrets",
    "source_url": "https://www.opensecrets.org/x"
  },
  "sources": ["https://example.com/a"]
}`

func testPerson() types.PersonRecord {
	return types.PersonRecord{
		ID:       "ocd-person/abc123",
		Name:     "John Doe",
		State:    "ak",
		Party:    "Democratic",
		District: "3",
		Chamber:  types.ChamberUpper,
		FileStem: "john-doe-abc123",
	}
}

func testConfig() types.ResearchConfig {
	return types.ResearchConfig{
		AIConfig: types.AIConfig{Model: "test-model", APIKey: "k", MaxRetries: 2},
		Backend:  types.BackendClaude,
		RunID:    "run-42",
	}
}

func TestResearchSuccess(t *testing.T) {
	backend := &scriptedBackend{replies: []mockReply{
		{text: findingsJSON, usage: types.TokenUsage{InputTokens: 100, OutputTokens: 50}},
	}}
	inv := NewInvokerWithBackend(backend, testConfig())

	result := inv.Research(context.Background(), testPerson())

	if result.IsError() {
		t.Fatalf("unexpected error variant: %s", result.Error)
	}
	if result.LegislatorID != "ocd-person/abc123" || result.Name != "John Doe" || result.State != "ak" {
		t.Errorf("identity not stamped from record: %+v", result)
	}
	if len(result.Issues) != 1 || result.Issues[0].Title != "Healthcare" {
		t.Errorf("issues = %+v", result.Issues)
	}
	if len(result.Donors.TopCompanies) != 1 || result.Donors.TopCompanies[0].Amount != "$12,000" {
		t.Errorf("top companies = %+v", result.Donors.TopCompanies)
	}
	if result.Metadata.Model != "test-model" || result.Metadata.RunID != "run-42" {
		t.Errorf("metadata = %+v", result.Metadata)
	}
	if result.Metadata.TokensUsed.InputTokens != 100 || result.Metadata.TokensUsed.OutputTokens != 50 {
		t.Errorf("token usage = %+v", result.Metadata.TokensUsed)
	}
	if result.LastUpdated == "" || result.Metadata.ProcessedDate == "" {
		t.Error("timestamps missing")
	}
}

func TestResearchRetriesUnparseableThenSucceeds(t *testing.T) {
	backend := &scriptedBackend{replies: []mockReply{
		{text: "I could not find structured data, sorry.", usage: types.TokenUsage{InputTokens: 10, OutputTokens: 5}},
		{text: "```json\n" + findingsJSON + "\n```", usage: types.TokenUsage{InputTokens: 20, OutputTokens: 15}},
	}}
	inv := NewInvokerWithBackend(backend, testConfig())

	result := inv.Research(context.Background(), testPerson())

	if result.IsError() {
		t.Fatalf("unexpected error variant: %s", result.Error)
	}
	if backend.calls != 2 {
		t.Errorf("backend calls = %d, want 2", backend.calls)
	}
	// Usage from both attempts is accounted.
	if got := result.Metadata.TokensUsed; got.InputTokens != 30 || got.OutputTokens != 20 {
		t.Errorf("token usage = %+v, want 30/20", got)
	}
	// Retry prompts carry the strict-JSON reminder.
	if !strings.Contains(backend.prompts[1], "RETRY ATTEMPT 2") {
		t.Errorf("second prompt missing retry note:\n%s", backend.prompts[1])
	}
}

func TestResearchErrorVariantAfterRetries(t *testing.T) {
	backend := &scriptedBackend{replies: []mockReply{
		{err: fmt.Errorf("connection refused"), usage: types.TokenUsage{InputTokens: 1}},
	}}
	inv := NewInvokerWithBackend(backend, testConfig())

	result := inv.Research(context.Background(), testPerson())

	if !result.IsError() {
		t.Fatal("want error variant")
	}
	if backend.calls != 3 {
		t.Errorf("backend calls = %d, want 3 (1 + 2 retries)", backend.calls)
	}
	if !strings.Contains(result.Error, "connection refused") {
		t.Errorf("error = %q, want cause preserved", result.Error)
	}
	// Error variant still conforms to the schema.
	if result.Issues == nil || result.Sources == nil || result.Donors.TopCompanies == nil {
		t.Error("error variant has nil lists")
	}
	if result.Donors.DataSource != "Error occurred" {
		t.Errorf("data source = %q", result.Donors.DataSource)
	}
	if !result.Metadata.Error {
		t.Error("metadata error flag not set")
	}
	if result.Metadata.TokensUsed.InputTokens != 3 {
		t.Errorf("usage = %+v, want input tokens from all attempts", result.Metadata.TokensUsed)
	}
}

func TestResearchDefaultsMissingFields(t *testing.T) {
	backend := &scriptedBackend{replies: []mockReply{
		{text: `{"issues": null}`},
	}}
	inv := NewInvokerWithBackend(backend, testConfig())

	result := inv.Research(context.Background(), testPerson())

	if result.IsError() {
		t.Fatalf("unexpected error variant: %s", result.Error)
	}
	if result.Issues == nil || len(result.Issues) != 0 {
		t.Errorf("issues = %#v, want empty list", result.Issues)
	}
	if result.Donors.TopCompanies == nil || result.Donors.IdeologicalDonors == nil ||
		result.Donors.TopIndustries == nil || result.Donors.IndividualDonors == nil {
		t.Error("donor lists not defaulted")
	}
	if result.Sources == nil {
		t.Error("sources not defaulted")
	}
}

func TestResearchContextCancelled(t *testing.T) {
	backend := &scriptedBackend{replies: []mockReply{
		{err: fmt.Errorf("transient")},
	}}
	inv := NewInvokerWithBackend(backend, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := inv.Research(ctx, testPerson())
	if !result.IsError() {
		t.Fatal("want error variant on cancelled context")
	}
	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1 (no retry after cancel)", backend.calls)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, false},
		{"leading whitespace", "\n  {\"a\": 1}\n", `{"a": 1}`, false},
		{"json fence", "Here you go:\n```json\n{\"a\": 1}\n```\n", `{"a": 1}`, false},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`, false},
		{"embedded in prose", `The result is {"a": 1} as requested.`, `{"a": 1}`, false},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`, false},
		{"no json", "no structured data here", "", true},
		{"broken json", `{"a": `, "", true},
		{"array not object", `[1, 2]`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Errorf("extractJSON(%q) = %q, want error", tt.text, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractJSON(%q): %v", tt.text, err)
			}
			if got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNewInvokerValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.ResearchConfig
	}{
		{"missing key", types.ResearchConfig{AIConfig: types.AIConfig{Model: "m"}, Backend: types.BackendClaude}},
		{"missing model", types.ResearchConfig{AIConfig: types.AIConfig{APIKey: "k"}, Backend: types.BackendClaude}},
		{"unknown backend", types.ResearchConfig{AIConfig: types.AIConfig{Model: "m", APIKey: "k"}, Backend: "gemini"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewInvoker(tt.cfg); err == nil {
				t.Error("NewInvoker succeeded, want error")
			}
		})
	}
}

func TestRenderPrompt(t *testing.T) {
	rec := testPerson()
	rec.CampaignSite = "https://johndoe.example.com"

	plain, err := renderPrompt(rec, false)
	if err != nil {
		t.Fatalf("renderPrompt: %v", err)
	}
	for _, want := range []string{"John Doe", "Democratic", "upper", "ak", "district 3", "https://johndoe.example.com", `"top_companies"`, "ONLY valid JSON"} {
		if !strings.Contains(plain, want) {
			t.Errorf("plain prompt missing %q", want)
		}
	}
	if strings.Contains(plain, "web search") {
		t.Error("plain prompt mentions web search")
	}

	search, err := renderPrompt(rec, true)
	if err != nil {
		t.Fatalf("renderPrompt: %v", err)
	}
	for _, want := range []string{"web search", "OpenSecrets.org"} {
		if !strings.Contains(search, want) {
			t.Errorf("web-search prompt missing %q", want)
		}
	}
}
