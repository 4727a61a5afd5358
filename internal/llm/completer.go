// Package llm sends chat-completion requests to hosted language models.
package llm

import "context"

// CompletionRequest is a single system+user prompt exchange.
type CompletionRequest struct {
	APIKey       string
	Model        string
	SystemPrompt string
	UserPrompt   string
	// JSONMode asks the provider to constrain output to a JSON object.
	JSONMode bool
}

// Completer returns the raw text content of the model's first answer.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
