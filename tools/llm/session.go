package llm

import (
	"context"
	"sync"
)

// Session is a multi-turn conversation. Tool calls from the last reply are
// answered with tool results at the start of the next user turn.
type Session struct {
	client     Client
	system     string
	opts       RequestOptions
	maxRetries int

	mu      sync.Mutex
	history []Message
	pending []ToolCall
	results map[string]ToolResult
}

// NewSession starts an empty conversation
func NewSession(client Client, systemPrompt string, opts RequestOptions, maxRetries int) *Session {
	return &Session{
		client:     client,
		system:     systemPrompt,
		opts:       opts,
		maxRetries: maxRetries,
		results:    make(map[string]ToolResult),
	}
}

// Acknowledge records the outcome of a tool call from the last reply
func (s *Session) Acknowledge(callID, content string, isError bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[callID] = ToolResult{CallID: callID, Content: content, IsError: isError}
}

// Send adds a user turn and returns the reply. On failure the conversation
// is left as it was.
func (s *Session) Send(ctx context.Context, text string) (*Response, error) {
	s.mu.Lock()
	turn := Message{Role: "user", Content: text}
	for _, call := range s.pending {
		r, ok := s.results[call.ID]
		if !ok {
			r = ToolResult{CallID: call.ID, Content: "not executed", IsError: true}
		}
		turn.ToolResults = append(turn.ToolResults, r)
	}
	messages := append(append([]Message(nil), s.history...), turn)
	opts := s.opts
	s.mu.Unlock()

	resp, err := s.client.CompleteWithRetry(ctx, s.system, messages, s.maxRetries, &opts)
	if err != nil {
		return nil, err
	}

	// an empty turn is not kept; providers reject empty assistant messages
	if resp.Content == "" && len(resp.ToolCalls) == 0 {
		return resp, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(messages, Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})
	s.pending = resp.ToolCalls
	s.results = make(map[string]ToolResult)
	return resp, nil
}

// History returns a copy of the turns exchanged so far
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history...)
}

// Reset forgets the conversation
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.pending = nil
	s.results = make(map[string]ToolResult)
}
