package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

// DefaultGeminiModel is used when a request does not name a model.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements Completer with the Gemini API. A client is created
// per call because the API key can differ per user.
type GeminiClient struct {
	baseURL string
}

// NewGeminiClient creates a GeminiClient. baseURL may be empty.
func NewGeminiClient(baseURL string) *GeminiClient {
	return &GeminiClient{baseURL: baseURL}
}

// Complete generates content from the system and user prompts.
func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      req.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL},
	})
	if err != nil {
		return "", fmt.Errorf("Complete: create genai client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
	}
	if req.JSONMode {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(req.UserPrompt), config)
	if err != nil {
		return "", fmt.Errorf("Complete: %w: %v", domain.ErrUpstreamRequestFailed, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Complete: %w: empty response from model", domain.ErrUpstreamRequestFailed)
	}
	return text, nil
}
