package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	anthropicEndpointDefault = "https://api.anthropic.com"
	anthropicAPIVersion      = "2023-06-01"
	anthropicMaxTokens       = 2048
)

// AnthropicConfig configures the Anthropic messages backend.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// AnthropicProvider analyzes content through the Anthropic messages API.
type AnthropicProvider struct {
	model      string
	httpClient *resty.Client
}

var _ Provider = (*AnthropicProvider)(nil)

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Error   *anthropicError         `json:"error"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewAnthropicProvider builds the provider with a dedicated HTTP client.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = anthropicEndpointDefault
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", anthropicAPIVersion).
		SetHeader("Content-Type", "application/json")

	return &AnthropicProvider{
		model:      cfg.Model,
		httpClient: httpClient,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Analyze sends a single messages API turn.
func (p *AnthropicProvider) Analyze(ctx context.Context, content, instruction string) (string, error) {
	var result anthropicResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetBody(anthropicRequest{
			Model:     p.model,
			MaxTokens: anthropicMaxTokens,
			System:    systemPrompt,
			Messages: []anthropicMessage{
				{Role: "user", Content: buildUserPrompt(content, instruction)},
			},
		}).
		SetResult(&result).
		SetError(&result).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("messages request: %w", err)
	}
	if resp.IsError() {
		if result.Error != nil {
			return "", fmt.Errorf("messages API error (%d, %s): %s", resp.StatusCode(), result.Error.Type, result.Error.Message)
		}
		return "", fmt.Errorf("messages API error: unexpected status %d", resp.StatusCode())
	}

	var parts []string
	for _, block := range result.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, strings.TrimSpace(block.Text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("messages API returned no text content")
	}
	return strings.Join(parts, "\n"), nil
}
