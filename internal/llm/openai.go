package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
)

const (
	// DefaultOpenAIBaseURL is used when no base URL is configured.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultOpenAIModel is the chat model used for transaction parsing.
	DefaultOpenAIModel = "gpt-4o"

	defaultUpstreamMessage = "Failed to parse transactions"
	maxErrorBodyBytes      = 64 << 10
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient creates a client for baseURL. An empty baseURL selects the
// public OpenAI API; a nil httpClient gets a client with a 60s timeout.
func NewOpenAIClient(baseURL string, httpClient *http.Client) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a chat completion request and returns the first choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	log := logger.FromContext(ctx)

	model := req.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("Complete: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("Complete: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("Complete: %w: %v", domain.ErrUpstreamRequestFailed, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("model", model).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Chat completion response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("Complete: %w: %s", domain.ErrUpstreamRequestFailed, upstreamMessage(resp.Body))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("Complete: %w: decode response: %v", domain.ErrUpstreamRequestFailed, err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("Complete: %w: response has no choices", domain.ErrUpstreamRequestFailed)
	}

	return decoded.Choices[0].Message.Content, nil
}

// upstreamMessage extracts error.message from an error body, falling back to
// a generic message when the body is not in the expected format.
func upstreamMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return defaultUpstreamMessage
	}

	var er errorResponse
	if err := json.Unmarshal(raw, &er); err != nil || er.Error.Message == "" {
		return defaultUpstreamMessage
	}
	return er.Error.Message
}
