package generation

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

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
)

// ErrMissingKey is returned without any network call when no API key is configured
var ErrMissingKey = errors.New("generator api key not configured")

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls an OpenAI-compatible chat completions endpoint
type OpenAIClient struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

// NewOpenAIClient creates a client with its own timeout
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       model,
		Temperature: 0.7,
		HTTPClient:  &http.Client{Timeout: timeout},
	}
}

// WithModel returns a copy of the client targeting another model
func (c *OpenAIClient) WithModel(model string) *OpenAIClient {
	cp := *c
	cp.Model = model
	return &cp
}

type completionRequest struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", domain.GenerationFailed(ErrMissingKey)
	}

	msgs := make([]Turn, 0, len(req.Turns)+1)
	if req.System != "" {
		msgs = append(msgs, Turn{Role: RoleSystem, Content: req.System})
	}
	msgs = append(msgs, req.Turns...)

	body, err := json.Marshal(completionRequest{Model: c.Model, Messages: msgs, Temperature: c.Temperature})
	if err != nil {
		return "", domain.GenerationFailed(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", domain.GenerationFailed(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return "", domain.GenerationFailed(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.GenerationFailed(fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", domain.GenerationFailed(fmt.Errorf("parse response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", domain.GenerationFailed(errors.New("no choices in response"))
	}

	text := strings.TrimSpace(contentText(parsed.Choices[0].Message.Content))
	if text == "" {
		return "", domain.GenerationFailed(errors.New("empty reply"))
	}
	return text, nil
}

// contentText accepts either a plain string or a list of {type, text} parts
func contentText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func (c *OpenAIClient) baseURL() string {
	if c.BaseURL == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *OpenAIClient) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return &http.Client{Timeout: 60 * time.Second}
	}
	return c.HTTPClient
}
