package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physics-lab/entities/interpreter"
	"physics-lab/entities/simulation"
	"physics-lab/tools/catalog"
	"physics-lab/tools/logger"
)

type call struct {
	name string
	args string
}

type fakeLab struct {
	calls []call
}

func (f *fakeLab) Execute(ctx context.Context, name string, args json.RawMessage) interpreter.Result {
	f.calls = append(f.calls, call{name, string(args)})
	if name == catalog.DeleteObject {
		return interpreter.Result{Success: false, Message: "no object"}
	}
	return interpreter.Result{Success: true, Message: "created ball"}
}

func (f *fakeLab) Objects() []simulation.BodyReport {
	return []simulation.BodyReport{{Label: "ball", X: 1, Y: 2}}
}

func connect(t *testing.T, lab Lab) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := New(lab, catalog.Physics(), "test", logger.Discard())
	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestListsEveryAction(t *testing.T) {
	cs := connect(t, &fakeLab{})
	list, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, append(catalog.Physics().Names(), ListObjects), names)
}

func TestCallRoutesIntoLab(t *testing.T) {
	lab := &fakeLab{}
	cs := connect(t, lab)
	ctx := context.Background()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      catalog.CreateBall,
		Arguments: map[string]any{"x_m": 2, "y_m": 2},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"success":true,"message":"created ball"}`, text(t, res))
	require.Len(t, lab.calls, 1)
	assert.Equal(t, catalog.CreateBall, lab.calls[0].name)
	assert.JSONEq(t, `{"x_m":2,"y_m":2}`, lab.calls[0].args)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: catalog.DeleteObject, Arguments: map[string]any{"label": "x"}})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListObjects(t *testing.T) {
	cs := connect(t, &fakeLab{})
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: ListObjects, Arguments: map[string]any{}})
	require.NoError(t, err)

	var reports []simulation.BodyReport
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "ball", reports[0].Label)
}
