// Package service hosts the AI-assisted configuration helper: one chat call
// that turns pasted free text into ApiConfig fields.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ssrsss/API-Check/internal/models"
)

const extractSystemPrompt = `You extract API connection details from free text
such as curl commands, documentation snippets or dashboard copy-paste.
Reply with a single JSON object and nothing else, using the keys:
"name", "base_url", "api_key", "model". Use an empty string for anything
the text does not contain.`

// Extractor wraps the OpenAI client for configuration extraction.
type Extractor struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewExtractor creates an extractor talking to the given assistant endpoint.
func NewExtractor(baseURL, apiKey, model string) *Extractor {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" && baseURL != "https://api.openai.com/v1" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Extractor{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: 30 * time.Second,
	}
}

// Extract asks the assistant model to pull connection fields out of text and
// returns them as a fresh ApiConfig in standard mode.
func (e *Extractor) Extract(ctx context.Context, text string) (*models.ApiConfig, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	response, err := e.client.Chat.Completions.New(timeoutCtx, openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extractSystemPrompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("extraction returned no choices")
	}

	var fields struct {
		Name    string `json:"name"`
		BaseURL string `json:"base_url"`
		APIKey  string `json:"api_key"`
		Model   string `json:"model"`
	}
	raw := stripCodeFence(response.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("extraction returned invalid JSON: %w", err)
	}
	if fields.BaseURL == "" {
		return nil, fmt.Errorf("no base URL found in the provided text")
	}

	cfg := &models.ApiConfig{
		ID:             uuid.NewString(),
		Name:           fields.Name,
		BaseURL:        fields.BaseURL,
		APIKey:         fields.APIKey,
		ConnectionMode: models.ConnectionModeStandard,
		Capabilities:   models.Capabilities{Chat: true, Models: true},
	}
	if fields.Model != "" {
		cfg.Models = []string{fields.Model}
	}
	if cfg.Name == "" {
		cfg.Name = "extracted"
	}
	return cfg, nil
}

// stripCodeFence removes a surrounding markdown fence that some models wrap
// around JSON answers.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
