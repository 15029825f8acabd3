// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research adapts legislator records into requests for an external
// AI research backend and normalizes the responses into result records.
// This is the only network-performing part of the pipeline and the boundary
// where free-form backend output is forced into the output schema.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/civicdata/legislator-research/pkg/types"
)

// Completion is one backend response: the raw text plus token accounting.
type Completion struct {
	Text  string
	Usage types.TokenUsage
}

// Backend abstracts the AI research API so tests can supply a mock.
// Implementations return the model's raw text; the invoker owns parsing.
type Backend interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// backoffBase controls the base duration for exponential backoff between
// attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Invoker turns one PersonRecord into one ResearchResult. Failures become
// the error variant, never a returned error; the pipeline writes both
// variants so a failed person is not retried on every run.
type Invoker struct {
	backend Backend
	cfg     types.ResearchConfig
}

// NewInvoker selects and configures a backend. A missing API key is a
// structural error reported before any processing starts.
func NewInvoker(cfg types.ResearchConfig) (*Invoker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for backend %q", cfg.Backend)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("no model configured for backend %q", cfg.Backend)
	}

	var backend Backend
	switch cfg.Backend {
	case types.BackendClaude, "":
		backend = NewClaudeBackend(cfg)
	case types.BackendOpenAI:
		backend = NewOpenAIBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown research backend %q", cfg.Backend)
	}

	return &Invoker{backend: backend, cfg: cfg}, nil
}

// NewInvokerWithBackend wires an explicit backend, for tests and callers
// that construct their own.
func NewInvokerWithBackend(backend Backend, cfg types.ResearchConfig) *Invoker {
	return &Invoker{backend: backend, cfg: cfg}
}

// Research produces the result record for one person. Backend errors and
// unparseable responses are retried with exponential backoff; once the
// retries are exhausted the error variant is returned. Token usage from
// every attempt, failed or not, is accounted.
func (inv *Invoker) Research(ctx context.Context, rec types.PersonRecord) *types.ResearchResult {
	maxRetries := inv.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	var usage types.TokenUsage
	var lastErr error

	basePrompt, err := renderPrompt(rec, inv.cfg.WebSearch)
	if err != nil {
		return inv.errorResult(rec, usage, err)
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		prompt := basePrompt
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return inv.errorResult(rec, usage, ctx.Err())
			case <-time.After(backoff):
			}
			prompt += retryNote(attempt)
		}

		comp, err := inv.backend.Complete(ctx, prompt)
		usage.Add(comp.Usage)
		if err != nil {
			lastErr = err
			slog.Warn("backend call failed", "person", rec.ID, "attempt", attempt+1, "error", err)
			continue
		}

		result, err := inv.normalize(rec, comp.Text)
		if err != nil {
			lastErr = err
			slog.Warn("unparseable backend response", "person", rec.ID, "attempt", attempt+1, "error", err)
			continue
		}

		result.Metadata = inv.metadata(usage, false)
		return result
	}

	return inv.errorResult(rec, usage, fmt.Errorf("after %d retries: %w", maxRetries, lastErr))
}

// wireResult is the backend's response shape. Only the findings are taken
// from it; identity fields come from the person record.
type wireResult struct {
	Issues  []types.Issue      `json:"issues"`
	Donors  types.DonorProfile `json:"donors"`
	Sources []string           `json:"sources"`
}

// normalize enforces the output schema on the backend's free-form text:
// locate a JSON object, decode it, default absent lists to empty, and stamp
// identity from the source record rather than trusting the echo.
func (inv *Invoker) normalize(rec types.PersonRecord, text string) (*types.ResearchResult, error) {
	payload, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, fmt.Errorf("decoding research payload: %w", err)
	}

	result := &types.ResearchResult{
		LegislatorID: rec.ID,
		Name:         rec.Name,
		State:        rec.State,
		LastUpdated:  time.Now().Format(time.RFC3339),
		Issues:       wire.Issues,
		Donors:       wire.Donors,
		Sources:      wire.Sources,
	}
	result.NormalizeLists()
	return result, nil
}

// errorResult builds the error-variant record: every top-level field
// present, findings empty, the failure recorded in the artifact itself so
// it stays auditable after the process exits.
func (inv *Invoker) errorResult(rec types.PersonRecord, usage types.TokenUsage, cause error) *types.ResearchResult {
	result := &types.ResearchResult{
		LegislatorID: rec.ID,
		Name:         rec.Name,
		State:        rec.State,
		LastUpdated:  time.Now().Format(time.RFC3339),
		Error:        cause.Error(),
		Donors: types.DonorProfile{
			DataSource: "Error occurred",
		},
		Metadata: inv.metadata(usage, true),
	}
	result.NormalizeLists()
	return result
}

func (inv *Invoker) metadata(usage types.TokenUsage, failed bool) types.ProcessingMetadata {
	runID := inv.cfg.RunID
	if runID == "" {
		runID = "local"
	}
	return types.ProcessingMetadata{
		ProcessedDate: time.Now().Format(time.RFC3339),
		RunID:         runID,
		Model:         inv.cfg.Model,
		TokensUsed:    usage,
		Error:         failed,
	}
}

// extractJSON locates a JSON object inside model output. Models are asked
// for bare JSON but ignore that often enough that fenced code blocks and
// surrounding prose must be tolerated.
func extractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	// Fenced code block, with or without a language tag.
	if idx := strings.Index(trimmed, "```"); idx >= 0 {
		rest := trimmed[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate := strings.TrimSpace(rest[:end])
			if json.Valid([]byte(candidate)) && strings.HasPrefix(candidate, "{") {
				return candidate, nil
			}
		}
	}

	// Outermost braces.
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no valid JSON object in response")
}
