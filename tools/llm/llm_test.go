package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	retryBackoff = time.Millisecond
}

func TestAnthropicToolRoundTrip(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		io.WriteString(w, `{
			"model": "m",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "Dropping a ball."},
				{"type": "tool_use", "id": "call_1", "name": "createBall", "input": {"x_m": 1, "y_m": 2}}
			],
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	c := NewAnthropicClient("secret", "").WithURL(srv.URL)
	opts := &RequestOptions{Tools: []Tool{{Name: "createBall", InputSchema: &jsonschema.Schema{Type: "object"}}}}
	resp, err := c.Complete(context.Background(), "sys", []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "old", Name: "createBox", Arguments: json.RawMessage(`{}`)}}},
		{Role: "user", Content: "again", ToolResults: []ToolResult{{CallID: "old", Content: "done"}}},
	}, opts)
	require.NoError(t, err)

	assert.Equal(t, "Dropping a ball.", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "createBall", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"x_m": 1, "y_m": 2}`, string(resp.ToolCalls[0].Arguments))
	assert.Equal(t, 10, resp.InputTokens)
	assert.False(t, resp.WasTruncated())

	assert.Equal(t, DefaultAnthropicModel, got["model"])
	assert.Equal(t, "sys", got["system"])
	tools := got["tools"].([]any)
	assert.Equal(t, "createBall", tools[0].(map[string]any)["name"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 3)
	third := msgs[2].(map[string]any)["content"].([]any)
	first := third[0].(map[string]any)
	assert.Equal(t, "tool_result", first["type"], "results lead the user turn")
	assert.Equal(t, "old", first["tool_use_id"])
}

func TestAnthropicErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	_, err := NewAnthropicClient("k", "m").WithURL(srv.URL).Complete(context.Background(), "", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid_request_error", apiErr.Type)
	assert.False(t, apiErr.Retryable())
}

func TestLocalFunctionCalling(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{
			"model": "local",
			"choices": [{
				"finish_reason": "tool_calls",
				"message": {"role": "assistant", "content": "ok", "tool_calls": [
					{"id": "a", "type": "function", "function": {"name": "clearSimulation", "arguments": ""}}
				]}
			}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 4}
		}`)
	}))
	defer srv.Close()

	resp, err := NewLocalClient(srv.URL, "").Complete(context.Background(), "sys", []Message{
		{Role: "user", Content: "x", ToolResults: []ToolResult{{CallID: "p", Content: "done"}}},
	}, &RequestOptions{MaxTokens: 99, Tools: []Tool{{Name: "clearSimulation"}}})
	require.NoError(t, err)

	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "tool", got.Messages[1].Role)
	assert.Equal(t, "p", got.Messages[1].ToolCallID)
	assert.Equal(t, 99, got.MaxTokens)
	assert.Equal(t, "function", got.Tools[0].Type)

	require.Len(t, resp.ToolCalls, 1)
	assert.JSONEq(t, `{}`, string(resp.ToolCalls[0].Arguments))
	assert.Equal(t, 4, resp.OutputTokens)
}

func TestLocalRejectsMalformedArguments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[{"message":{"tool_calls":[{"id":"a","function":{"name":"x","arguments":"{nope"}}]}}]}`)
	}))
	defer srv.Close()

	_, err := NewLocalClient(srv.URL, "").Complete(context.Background(), "", nil, nil)
	assert.Error(t, err)
}

func TestRetryStopsOnClientErrors(t *testing.T) {
	var calls int32
	_, err := withRetry(context.Background(), 3, func() (*Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, &APIError{StatusCode: http.StatusUnauthorized}
	})
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls)
}

func TestRetryRetriesServerErrors(t *testing.T) {
	var calls int32
	resp, err := withRetry(context.Background(), 3, func() (*Response, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, &APIError{StatusCode: http.StatusServiceUnavailable}
		}
		return &Response{Content: "ok"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.EqualValues(t, 3, calls)
}

func TestSingleAttemptReturnsRawError(t *testing.T) {
	boom := errors.New("boom")
	_, err := withRetry(context.Background(), 0, func() (*Response, error) { return nil, boom })
	assert.Same(t, boom, err)
}

type scripted struct {
	replies []*Response
	err     error
	seen    [][]Message
}

func (s *scripted) Complete(ctx context.Context, system string, messages []Message, opts *RequestOptions) (*Response, error) {
	s.seen = append(s.seen, messages)
	if s.err != nil {
		return nil, s.err
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func (s *scripted) CompleteWithRetry(ctx context.Context, system string, messages []Message, _ int, opts *RequestOptions) (*Response, error) {
	return s.Complete(ctx, system, messages, opts)
}

func TestSessionAnswersToolCallsNextTurn(t *testing.T) {
	c := &scripted{replies: []*Response{
		{Content: "one", ToolCalls: []ToolCall{{ID: "a"}, {ID: "b"}}},
		{Content: "two"},
	}}
	s := NewSession(c, "sys", RequestOptions{}, 1)

	_, err := s.Send(context.Background(), "first")
	require.NoError(t, err)
	s.Acknowledge("a", "created ball", false)

	_, err = s.Send(context.Background(), "second")
	require.NoError(t, err)

	turn := c.seen[1][2]
	require.Len(t, turn.ToolResults, 2)
	assert.Equal(t, ToolResult{CallID: "a", Content: "created ball"}, turn.ToolResults[0])
	assert.True(t, turn.ToolResults[1].IsError, "unacknowledged calls are reported as not executed")
	assert.Len(t, s.History(), 4)
}

func TestSessionFailureKeepsHistory(t *testing.T) {
	c := &scripted{replies: []*Response{{Content: "one"}}}
	s := NewSession(c, "", RequestOptions{}, 1)
	_, err := s.Send(context.Background(), "first")
	require.NoError(t, err)

	c.err = errors.New("down")
	_, err = s.Send(context.Background(), "second")
	assert.Error(t, err)
	assert.Len(t, s.History(), 2)

	c.err = nil
	c.replies = []*Response{{}}
	_, err = s.Send(context.Background(), "third")
	require.NoError(t, err)
	assert.Len(t, s.History(), 2, "empty replies are not recorded")

	s.Reset()
	assert.Empty(t, s.History())
}
