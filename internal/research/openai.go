// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/civicdata/legislator-research/pkg/types"
)

const defaultOpenAITimeout = 2 * time.Minute

// OpenAIBackend calls an OpenAI-compatible chat completion API. It has no
// web-search tool; research relies on the model's knowledge.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend builds a backend from the research configuration.
func NewOpenAIBackend(cfg types.ResearchConfig) *OpenAIBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIBackend{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Complete sends the prompt as a single user message.
func (o *OpenAIBackend) Complete(ctx context.Context, prompt string) (Completion, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("calling chat completion API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("chat completion API returned no choices")
	}

	return Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: types.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
