package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"physics-lab/tools/catalog"
	"physics-lab/tools/llm"
	"physics-lab/tools/logger"
)

// ErrNoReply is returned when the model answers with neither text nor actions
var ErrNoReply = errors.New("model returned an empty reply")

// Context is what the lab knows when the user sends a prompt
type Context struct {
	Text        string
	Drawings    int
	Connections int
	Labels      []string
}

// Call is one action requested by the model, in reply order
type Call struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Reply is the parsed model answer for one turn
type Reply struct {
	Explanation  string
	Actions      []Call
	InputTokens  int
	OutputTokens int
}

// Options tunes the model requests
type Options struct {
	MaxTokens  int
	MaxRetries int
}

// Assistant turns user requests into catalog actions through a model session
type Assistant struct {
	session *llm.Session
	log     *logger.Logger
}

// New creates an assistant that advertises every catalog action as a tool
func New(client llm.Client, cat *catalog.Catalog, opts Options, log *logger.Logger) *Assistant {
	if log == nil {
		log = logger.Default()
	}
	if cat == nil {
		cat = catalog.Physics()
	}
	reqOpts := llm.RequestOptions{MaxTokens: opts.MaxTokens, Tools: Tools(cat)}
	return &Assistant{
		session: llm.NewSession(client, systemPrompt(cat), reqOpts, opts.MaxRetries),
		log:     log.WithPrefix("assistant"),
	}
}

// Tools renders the catalog as model tool declarations
func Tools(cat *catalog.Catalog) []llm.Tool {
	defs := cat.All()
	tools := make([]llm.Tool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, llm.Tool{Name: d.Name, Description: d.Description, InputSchema: d.Schema()})
	}
	return tools
}

// Prompt builds the outgoing user turn for c
func Prompt(c Context) string {
	text := strings.TrimSpace(c.Text)
	switch {
	case c.Drawings > 0:
		var b strings.Builder
		fmt.Fprintf(&b, "Context: the user has drawn %d shapes and %d connections. Analyse the drawings and the request to build a realistic physics scene.\n", c.Drawings, c.Connections)
		b.WriteString("1. Shape analysis: decide the physical role of each drawing from its geometry and position. A triangle or small shape under a long bar may be a fulcrum, a long bar may be a lever, a circle may be a ball.\n")
		fmt.Fprintf(&b, "2. Call %s once to create every object, giving the important properties per drawing index, such as isStatic: true for supporting objects.\n", catalog.CreateSceneFromDrawings)
		if text != "" {
			fmt.Fprintf(&b, "\nThe user's request is: %q. Use it to carry out the steps above.", text)
		} else {
			b.WriteString("\nThe user gave no request. Infer the role of each object from its shape and position.")
		}
		return b.String()
	case len(c.Labels) > 0:
		return fmt.Sprintf("Context: these objects already exist in the simulation: %s. %s", strings.Join(c.Labels, ", "), text)
	default:
		return text
	}
}

// Ask sends one user turn and parses the reply. Any transport or parsing
// failure is returned as a single error with no partial reply.
func (a *Assistant) Ask(ctx context.Context, c Context) (*Reply, error) {
	done := a.log.Step("Asking model")
	defer done()

	prompt := Prompt(c)
	a.log.Debug("prompt: %s", prompt)

	resp, err := a.session.Send(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to get reply from model: %w", err)
	}
	a.log.Tokens(resp.InputTokens, resp.OutputTokens)
	if resp.WasTruncated() {
		a.log.Warn("reply hit the token limit")
	}

	reply, err := parseReply(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model reply: %w", err)
	}
	return reply, nil
}

// Acknowledge reports an executed action back to the model on the next turn
func (a *Assistant) Acknowledge(callID string, success bool, message string) {
	if callID == "" {
		return
	}
	a.session.Acknowledge(callID, message, !success)
}

// Reset starts a fresh conversation
func (a *Assistant) Reset() {
	a.session.Reset()
}

func parseReply(resp *llm.Response) (*Reply, error) {
	reply := &Reply{
		Explanation:  strings.TrimSpace(resp.Content),
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}
	for _, tc := range resp.ToolCalls {
		if tc.Name == "" {
			return nil, fmt.Errorf("tool call %q has no name", tc.ID)
		}
		reply.Actions = append(reply.Actions, Call{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}

	// models without tool support may list actions inline instead
	if len(reply.Actions) == 0 {
		if block, found := extractTag(reply.Explanation, "actions"); found {
			var calls []Call
			if err := json.Unmarshal([]byte(block), &calls); err != nil {
				return nil, fmt.Errorf("malformed <actions> block: %w", err)
			}
			for i, c := range calls {
				if c.Name == "" {
					return nil, fmt.Errorf("action %d has no name", i)
				}
			}
			reply.Actions = calls
			reply.Explanation = strings.TrimSpace(actionsBlock.ReplaceAllString(reply.Explanation, ""))
		}
	}

	if reply.Explanation == "" && len(reply.Actions) == 0 {
		return nil, ErrNoReply
	}
	return reply, nil
}

var actionsBlock = regexp.MustCompile(`(?s)<actions>.*?</actions>`)

func extractTag(content, tag string) (string, bool) {
	re := regexp.MustCompile(fmt.Sprintf(`(?s)<%s>(.*?)</%s>`, tag, tag))
	match := re.FindStringSubmatch(content)
	if len(match) < 2 {
		return "", false
	}
	return strings.TrimSpace(match[1]), true
}

func systemPrompt(cat *catalog.Catalog) string {
	return fmt.Sprintf(`You are the assistant of an interactive physics lab. You build and change a 2D rigid-body simulation by calling the tools you are given.

The world uses meters with the y axis pointing up. The ground is a static slab whose top is at y = 0 and the visible area is about 10 m wide and 6 m tall, starting at x = 0. Angles are in degrees, velocities in m/s, forces in newtons and masses in kg.

Available actions: %s.

Guidelines:
- Give every object you may want to refer to later a short unique label.
- Refer to existing objects only by the labels you were told about.
- Explain briefly what you are building, then call the tools in the order they must run.
- If you cannot call tools, list the calls instead as a JSON array inside <actions></actions> tags, each entry shaped as {"name": "...", "arguments": {...}}.`, strings.Join(cat.Names(), ", "))
}
