package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"physics-lab/entities/interpreter"
	"physics-lab/entities/simulation"
	"physics-lab/tools/catalog"
	"physics-lab/tools/logger"
)

// ListObjects is the extra read-only tool reporting labelled bodies
const ListObjects = "listObjects"

// Lab is what the server drives
type Lab interface {
	Execute(ctx context.Context, name string, args json.RawMessage) interpreter.Result
	Objects() []simulation.BodyReport
}

// New registers every catalog action as an MCP tool routed into lab
func New(lab Lab, cat *catalog.Catalog, version string, log *logger.Logger) *mcp.Server {
	if log == nil {
		log = logger.Default()
	}
	log = log.WithPrefix("mcp")

	server := mcp.NewServer(&mcp.Implementation{Name: "physics-lab", Version: version}, nil)
	for _, def := range cat.All() {
		name := def.Name
		server.AddTool(&mcp.Tool{
			Name:        name,
			Description: def.Description,
			InputSchema: def.Schema(),
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			res := lab.Execute(ctx, name, req.Params.Arguments)
			log.Debug("%s -> %v", name, res.Success)
			return textResult(res, !res.Success)
		})
	}

	server.AddTool(&mcp.Tool{
		Name:        ListObjects,
		Description: "List every labelled body with its position (m), velocity (m/s), mass and energies.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		objects := lab.Objects()
		if objects == nil {
			objects = []simulation.BodyReport{}
		}
		return textResult(objects, false)
	})
	return server
}

// Serve runs the server over stdin and stdout until ctx ends
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func textResult(v any, isError bool) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: isError,
	}, nil
}
