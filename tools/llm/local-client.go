package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// DefaultLocalURL is the chat completions endpoint of a local LM Studio server
const DefaultLocalURL = "http://localhost:1234/v1/chat/completions"

// LocalClient talks to an OpenAI-compatible chat completions server
type LocalClient struct {
	url        string
	model      string
	httpClient *http.Client
}

// NewLocalClient creates a client for an OpenAI-compatible endpoint
func NewLocalClient(url, model string) *LocalClient {
	if url == "" {
		url = DefaultLocalURL
	}
	return &LocalClient{
		url:   url,
		model: model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

type openAIRequest struct {
	Model     string       `json:"model,omitempty"`
	Messages  []openAIMsg  `json:"messages"`
	MaxTokens int          `json:"max_tokens"`
	Tools     []openAITool `json:"tools,omitempty"`
}

type openAIMsg struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIFunction struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMsg `json:"message"`
		FinishReason string    `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func toOpenAIMessages(systemPrompt string, messages []Message) []openAIMsg {
	out := []openAIMsg{{Role: "system", Content: systemPrompt}}
	for _, m := range messages {
		// each tool result is its own message in this protocol
		for _, r := range m.ToolResults {
			out = append(out, openAIMsg{Role: "tool", ToolCallID: r.CallID, Content: r.Content})
		}
		if m.Content == "" && len(m.ToolCalls) == 0 {
			continue
		}
		msg := openAIMsg{Role: m.Role, Content: m.Content}
		for _, tc := range m.ToolCalls {
			var call openAIToolCall
			call.ID = tc.ID
			call.Type = "function"
			call.Function.Name = tc.Name
			call.Function.Arguments = string(tc.Arguments)
			msg.ToolCalls = append(msg.ToolCalls, call)
		}
		out = append(out, msg)
	}
	return out
}

// Complete sends the conversation to the local server
func (c *LocalClient) Complete(ctx context.Context, systemPrompt string, messages []Message, opts *RequestOptions) (*Response, error) {
	start := time.Now()

	reqBody := openAIRequest{
		Model:     c.model,
		Messages:  toOpenAIMessages(systemPrompt, messages),
		MaxTokens: 4096,
	}
	if opts != nil {
		if opts.MaxTokens > 0 {
			reqBody.MaxTokens = opts.MaxTokens
		}
		for _, t := range opts.Tools {
			reqBody.Tools = append(reqBody.Tools, openAITool{
				Type:     "function",
				Function: openAIFunction{Name: t.Name, Description: t.Description, Parameters: t.InputSchema},
			})
		}
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local model connection failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var result openAIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	choice := result.Choices[0]
	out := &Response{
		Content:      choice.Message.Content,
		InputTokens:  result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
		Duration:     time.Since(start),
		Model:        result.Model,
		StopReason:   choice.FinishReason,
	}
	for _, tc := range choice.Message.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		if !json.Valid(args) {
			return nil, fmt.Errorf("tool call %s has malformed arguments", tc.Function.Name)
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	return out, nil
}

// CompleteWithRetry attempts completion with retries on failure
func (c *LocalClient) CompleteWithRetry(ctx context.Context, systemPrompt string, messages []Message, maxRetries int, opts *RequestOptions) (*Response, error) {
	return withRetry(ctx, maxRetries, func() (*Response, error) {
		return c.Complete(ctx, systemPrompt, messages, opts)
	})
}
