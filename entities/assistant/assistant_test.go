package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physics-lab/tools/catalog"
	"physics-lab/tools/llm"
	"physics-lab/tools/logger"
)

type fakeClient struct {
	replies  []*llm.Response
	err      error
	prompts  []string
	messages [][]llm.Message
	opts     []*llm.RequestOptions
}

func (f *fakeClient) Complete(ctx context.Context, system string, messages []llm.Message, opts *llm.RequestOptions) (*llm.Response, error) {
	f.messages = append(f.messages, messages)
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func (f *fakeClient) CompleteWithRetry(ctx context.Context, system string, messages []llm.Message, _ int, opts *llm.RequestOptions) (*llm.Response, error) {
	return f.Complete(ctx, system, messages, opts)
}

func newAssistant(c llm.Client) *Assistant {
	return New(c, catalog.Physics(), Options{MaxRetries: 1}, logger.Discard())
}

func TestPromptModes(t *testing.T) {
	t.Run("drawings with text", func(t *testing.T) {
		p := Prompt(Context{Text: "make a lever", Drawings: 2, Connections: 1, Labels: []string{"a"}})
		assert.Contains(t, p, "2 shapes and 1 connections")
		assert.Contains(t, p, catalog.CreateSceneFromDrawings)
		assert.Contains(t, p, `"make a lever"`)
		assert.NotContains(t, p, "already exist")
	})
	t.Run("drawings without text", func(t *testing.T) {
		p := Prompt(Context{Drawings: 1})
		assert.Contains(t, p, "Infer the role")
	})
	t.Run("labels prefix", func(t *testing.T) {
		p := Prompt(Context{Text: "push ball", Labels: []string{"ball", "box"}})
		assert.Equal(t, "Context: these objects already exist in the simulation: ball, box. push ball", p)
	})
	t.Run("plain", func(t *testing.T) {
		assert.Equal(t, "drop a ball", Prompt(Context{Text: "drop a ball"}))
	})
}

func TestToolsCoverCatalog(t *testing.T) {
	cat := catalog.Physics()
	tools := Tools(cat)
	require.Len(t, tools, len(cat.All()))
	for _, tool := range tools {
		def, ok := cat.Lookup(tool.Name)
		require.True(t, ok)
		assert.Equal(t, def.Required(), tool.InputSchema.Required)
	}
}

func TestAskParsesToolCallsInOrder(t *testing.T) {
	c := &fakeClient{replies: []*llm.Response{{
		Content: " Building a ramp. ",
		ToolCalls: []llm.ToolCall{
			{ID: "1", Name: catalog.CreateInclinedPlane, Arguments: json.RawMessage(`{"x_m":1}`)},
			{ID: "2", Name: catalog.CreateBall, Arguments: json.RawMessage(`{"x_m":2,"y_m":3}`)},
		},
	}}}
	a := newAssistant(c)

	reply, err := a.Ask(context.Background(), Context{Text: "ramp"})
	require.NoError(t, err)
	assert.Equal(t, "Building a ramp.", reply.Explanation)
	require.Len(t, reply.Actions, 2)
	assert.Equal(t, catalog.CreateInclinedPlane, reply.Actions[0].Name)
	assert.Equal(t, catalog.CreateBall, reply.Actions[1].Name)
	assert.NotEmpty(t, c.opts[0].Tools)
}

func TestAskAllowsNarration(t *testing.T) {
	c := &fakeClient{replies: []*llm.Response{{Content: "A pendulum swings because of gravity."}}}
	reply, err := newAssistant(c).Ask(context.Background(), Context{Text: "why?"})
	require.NoError(t, err)
	assert.Empty(t, reply.Actions)
}

func TestAskInlineActions(t *testing.T) {
	c := &fakeClient{replies: []*llm.Response{{
		Content: `Clearing. <actions>[{"name":"clearSimulation","arguments":{}}]</actions>`,
	}}}
	reply, err := newAssistant(c).Ask(context.Background(), Context{Text: "clear"})
	require.NoError(t, err)
	assert.Equal(t, "Clearing.", reply.Explanation)
	require.Len(t, reply.Actions, 1)
	assert.Equal(t, catalog.ClearSimulation, reply.Actions[0].Name)
}

func TestAskFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply *llm.Response
		err   error
		is    error
	}{
		{name: "transport", err: errors.New("connection refused")},
		{name: "empty", reply: &llm.Response{}, is: ErrNoReply},
		{name: "nameless call", reply: &llm.Response{ToolCalls: []llm.ToolCall{{ID: "x"}}}},
		{name: "bad inline", reply: &llm.Response{Content: "<actions>[{</actions>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeClient{err: tt.err}
			if tt.reply != nil {
				c.replies = []*llm.Response{tt.reply}
			}
			reply, err := newAssistant(c).Ask(context.Background(), Context{Text: "x"})
			assert.Nil(t, reply)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestAcknowledgeFeedsNextTurn(t *testing.T) {
	c := &fakeClient{replies: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call", Name: catalog.CreateBall}}},
		{Content: "done"},
	}}
	a := newAssistant(c)
	_, err := a.Ask(context.Background(), Context{Text: "ball"})
	require.NoError(t, err)
	a.Acknowledge("call", false, "label taken")

	_, err = a.Ask(context.Background(), Context{Text: "again"})
	require.NoError(t, err)
	last := c.messages[1][len(c.messages[1])-1]
	require.Len(t, last.ToolResults, 1)
	assert.True(t, last.ToolResults[0].IsError)
	assert.Equal(t, "label taken", last.ToolResults[0].Content)

	a.Reset()
	c.replies = []*llm.Response{{Content: "fresh"}}
	_, err = a.Ask(context.Background(), Context{Text: "new"})
	require.NoError(t, err)
	assert.Len(t, c.messages[2], 1)
}
