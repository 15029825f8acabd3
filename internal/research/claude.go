// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/civicdata/legislator-research/internal/httputil"
	"github.com/civicdata/legislator-research/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const (
	anthropicVersion     = "2023-06-01"
	claudeMaxTokens      = 4096
	defaultClaudeTimeout = 2 * time.Minute
)

// ClaudeBackend calls the Claude Messages API, optionally with the
// web-search tool enabled for live campaign finance lookups.
type ClaudeBackend struct {
	apiKey    string
	model     string
	webSearch bool
	client    *http.Client
}

// NewClaudeBackend builds a backend from the research configuration.
func NewClaudeBackend(cfg types.ResearchConfig) *ClaudeBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClaudeTimeout
	}
	return &ClaudeBackend{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		webSearch: cfg.WebSearch,
		client:    &http.Client{Timeout: timeout},
	}
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
	Tools     []claudeTool    `json:"tools,omitempty"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeTool struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Usage   claudeUsage     `json:"usage"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Complete sends the prompt and returns the concatenated text blocks of the
// response. Rate-limit and overload responses are retried with backoff
// before being surfaced as errors.
func (c *ClaudeBackend) Complete(ctx context.Context, prompt string) (Completion, error) {
	reqBody := claudeRequest{
		Model:     c.model,
		MaxTokens: claudeMaxTokens,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}
	if c.webSearch {
		reqBody.Tools = []claudeTool{
			{Type: "web_search_20250305", Name: "web_search", MaxUses: 8},
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Completion{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return Completion{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		return Completion{}, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Completion{}, fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return Completion{}, fmt.Errorf("decoding Claude response: %w", err)
	}

	// With web search enabled the response interleaves tool-use blocks with
	// text; only the text blocks carry the findings.
	var sb strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return Completion{}, fmt.Errorf("no text content in Claude API response")
	}

	return Completion{
		Text: sb.String(),
		Usage: types.TokenUsage{
			InputTokens:  cResp.Usage.InputTokens,
			OutputTokens: cResp.Usage.OutputTokens,
		},
	}, nil
}
