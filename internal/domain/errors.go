package domain

import "errors"

var (
	// ErrNotAuthenticated means no user identifier is available.
	ErrNotAuthenticated = errors.New("user not authenticated")

	// ErrAPIKeyMissing means neither the user's settings nor the environment
	// provide a credential for the LLM provider.
	ErrAPIKeyMissing = errors.New("API key not configured. Please set your OpenAI API key in Settings.")

	// ErrUpstreamRequestFailed wraps non-success responses from the LLM provider.
	ErrUpstreamRequestFailed = errors.New("upstream request failed")

	// ErrInvalidResponseShape means the decoded model output is neither an
	// object with a transactions array nor a bare array.
	ErrInvalidResponseShape = errors.New("invalid response shape")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
