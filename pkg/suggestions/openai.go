package suggestions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

const systemPrompt = `You are a helpful assistant that analyzes problems and returns practical suggestions. ` +
	`Respond with a JSON array only, no prose. Each element must be an object with a "type" field ` +
	`("solution", "insight" or "action") and a "content" field containing one concise paragraph.`

const maxResponseBytes = 1 << 20

// OpenAIConfig configures the chat-completions client
type OpenAIConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// OpenAIGenerator asks a chat-completions endpoint for suggestions
type OpenAIGenerator struct {
	cfg        OpenAIConfig
	httpClient *http.Client
	ids        *idSource
}

// NewOpenAIGenerator creates a client for cfg. A nil httpClient gets one
// with cfg.Timeout.
func NewOpenAIGenerator(cfg OpenAIConfig, httpClient *http.Client) *OpenAIGenerator {
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAIGenerator{cfg: cfg, httpClient: httpClient, ids: newIDSource()}
}

// Name implements Generator
func (g *OpenAIGenerator) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate implements Generator
func (g *OpenAIGenerator) Generate(ctx context.Context, problem string) ([]Suggestion, error) {
	if g.cfg.APIKey == "" {
		return nil, errors.New("openai api key is not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Problem: %s\n\nGenerate 3 useful suggestions (solution, insight, action) tailored to the problem.", problem)},
		},
		Temperature: 0.7,
		MaxTokens:   800,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read openai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode openai response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("openai response has no choices")
	}

	items, err := ParseSuggestions(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, 0, len(items))
	for _, item := range items {
		out = append(out, g.ids.stamp(item))
	}
	return out, nil
}

type rawSuggestion struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ParseSuggestions decodes model output into suggestions. It tries the text
// as-is, then a repaired copy, then the first [...] block. Items without
// content are dropped.
func ParseSuggestions(text string) ([]Suggestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty model output")
	}

	items, err := decodeItems(text)
	if err != nil {
		if repaired, repairErr := jsonrepair.JSONRepair(text); repairErr == nil {
			items, err = decodeItems(repaired)
		}
	}
	if err != nil {
		if block, ok := arrayBlock(text); ok {
			items, err = decodeItems(block)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("unparseable model output: %w", err)
	}

	out := make([]Suggestion, 0, len(items))
	for _, item := range items {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		out = append(out, Suggestion{Type: normalizeType(strings.ToLower(strings.TrimSpace(item.Type))), Content: content})
	}
	if len(out) == 0 {
		return nil, errors.New("model output contains no suggestions")
	}
	return out, nil
}

func decodeItems(s string) ([]rawSuggestion, error) {
	var items []rawSuggestion
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// arrayBlock returns the text between the first '[' and the last ']'
func arrayBlock(s string) (string, bool) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
