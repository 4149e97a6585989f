package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// Client is the interface for LLM providers
type Client interface {
	Complete(ctx context.Context, systemPrompt string, messages []Message, opts *RequestOptions) (*Response, error)
	CompleteWithRetry(ctx context.Context, systemPrompt string, messages []Message, maxRetries int, opts *RequestOptions) (*Response, error)
}

// Message represents a conversation message. A user message may carry the
// results of tool calls made in the previous assistant turn; an assistant
// message may carry the tool calls it made.
type Message struct {
	Role        string
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Tool is a function the model may call
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// ToolCall is one function call requested by the model
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolResult acknowledges a tool call in the following user turn
type ToolResult struct {
	CallID  string
	Content string
	IsError bool
}

// RequestOptions configures an LLM request
type RequestOptions struct {
	MaxTokens int
	Tools     []Tool
}

// Response from an LLM completion
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
	Model        string
	StopReason   string // "end_turn", "max_tokens", "tool_use", "stop"
}

// WasTruncated returns true if the response hit the token limit
func (r *Response) WasTruncated() bool {
	return r.StopReason == "max_tokens" || r.StopReason == "length"
}

// APIError is a non-200 reply from a provider
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("API error (%d): %s - %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether the same request may succeed later
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// retryBackoff is the first wait between attempts; it doubles each time
var retryBackoff = time.Second

// withRetry runs call up to maxRetries times with exponential backoff.
// Client errors other than rate limits are returned at once.
func withRetry(ctx context.Context, maxRetries int, call func() (*Response, error)) (*Response, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		resp, err := call()
		if err == nil {
			return resp, nil
		}

		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, err
		}
		if i == maxRetries-1 {
			break
		}

		// Exponential backoff
		backoff := retryBackoff * time.Duration(1<<uint(i))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if maxRetries == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}
