package mcp

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolServer is a registry of MCP tools.
type ToolServer struct {
	name    string
	version string
	log     *slog.Logger

	mu    sync.RWMutex
	tools map[string]*registeredTool
}

// registeredTool holds tool metadata, its handler and the resolved input schema.
type registeredTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
	schema  *jsonschema.Resolved
}

// NewToolServer creates an empty tool registry.
func NewToolServer(log *slog.Logger, name, version string) *ToolServer {
	return &ToolServer{
		name:    name,
		version: version,
		log:     log.With("component", "mcp_server", "server", name),
		tools:   make(map[string]*registeredTool, 8),
	}
}

// AddTool registers a tool, replacing any tool with the same name. The input
// schema, when given as *jsonschema.Schema, must have type "object".
func (s *ToolServer) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) error {
	rt := &registeredTool{tool: tool, handler: handler}

	if schema, ok := tool.InputSchema.(*jsonschema.Schema); ok && schema != nil {
		if schema.Type != "object" {
			return fmt.Errorf("tool %q: input schema must have type \"object\"", tool.Name)
		}

		resolved, err := schema.Resolve(nil)
		if err != nil {
			return fmt.Errorf("tool %q: resolve input schema: %w", tool.Name, err)
		}

		rt.schema = resolved
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[tool.Name] = rt
	s.log.Debug("Registered tool", "tool", tool.Name)

	return nil
}

// Name returns the server name.
func (s *ToolServer) Name() string {
	return s.name
}

// Version returns the server version.
func (s *ToolServer) Version() string {
	return s.version
}

// ListTools returns the registered tools sorted by name.
func (s *ToolServer) ListTools() []*mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]*mcp.Tool, 0, len(s.tools))
	for _, rt := range s.tools {
		tools = append(tools, rt.tool)
	}

	slices.SortFunc(tools, func(a, b *mcp.Tool) int { return cmp.Compare(a.Name, b.Name) })

	return tools
}

// CallTool invokes a tool in process. Unknown tools, invalid input and
// handler failures are reported as error results, not Go errors.
func (s *ToolServer) CallTool(ctx context.Context, name string, input map[string]any) *mcp.CallToolResult {
	s.mu.RLock()
	rt, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return ErrorResult("Tool not found: " + name)
	}

	if input == nil {
		input = map[string]any{}
	}

	inputBytes, err := json.Marshal(input)
	if err != nil {
		return ErrorResult("Failed to marshal input: " + err.Error())
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: inputBytes,
		},
	}

	return s.invoke(ctx, rt, req)
}

// invoke validates arguments and runs the handler.
func (s *ToolServer) invoke(ctx context.Context, rt *registeredTool, req *mcp.CallToolRequest) *mcp.CallToolResult {
	args, err := ParseArguments(req)
	if err != nil {
		return ErrorResult(err.Error())
	}

	if rt.schema != nil {
		if err := rt.schema.Validate(args); err != nil {
			s.log.Debug("Rejected tool input", "tool", rt.tool.Name, "error", err)

			return ErrorResult("Invalid input: " + err.Error())
		}
	}

	s.log.Debug("Calling tool", "tool", rt.tool.Name)

	result, err := rt.handler(ctx, req)
	if err != nil {
		s.log.Warn("Tool execution failed", "tool", rt.tool.Name, "error", err)

		return ErrorResult("Tool execution failed: " + err.Error())
	}

	if result == nil {
		return &mcp.CallToolResult{Content: []mcp.Content{}}
	}

	return result
}

// Server returns an MCP server exposing every registered tool. Tools added
// after the call are not included.
func (s *ToolServer) Server() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: s.name, Version: s.version},
		&mcp.ServerOptions{Logger: s.log},
	)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rt := range s.tools {
		tool := rt.tool
		if tool.InputSchema == nil {
			clone := *tool
			clone.InputSchema = &jsonschema.Schema{Type: "object"}
			tool = &clone
		}

		server.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.invoke(ctx, rt, req), nil
		})
	}

	return server
}

// Serve runs the registry as an MCP server on transport t until ctx is done
// or the client disconnects.
func (s *ToolServer) Serve(ctx context.Context, t mcp.Transport) error {
	s.log.Info("Serving MCP tools", "tools", len(s.ListTools()))

	return s.Server().Run(ctx, t)
}

// SimpleSchema creates a jsonschema.Schema from a simple type map. Every
// property is required.
//
// Input format: {"a": "float64", "b": "string"}
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, goType := range props {
		properties[name] = goTypeToJSONSchema(goType)
		required = append(required, name)
	}

	slices.Sort(required)

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// goTypeToJSONSchema converts a Go type string to a JSON Schema type.
func goTypeToJSONSchema(goType string) *jsonschema.Schema {
	switch goType {
	case "string":
		return &jsonschema.Schema{Type: "string"}
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "float", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	default:
		if itemType, ok := strings.CutPrefix(goType, "[]"); ok && itemType != "" {
			return &jsonschema.Schema{
				Type:  "array",
				Items: goTypeToJSONSchema(itemType),
			}
		}

		return &jsonschema.Schema{Type: "string"}
	}
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// ResultText joins the text content of a result.
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}

	parts := make([]string, 0, len(result.Content))

	for _, c := range result.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}

	return strings.Join(parts, "\n")
}

// NewTool creates an mcp.Tool with the given parameters.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	if args == nil {
		args = make(map[string]any)
	}

	return args, nil
}

// DecodeArguments unmarshals CallToolRequest arguments into v.
func DecodeArguments(req *mcp.CallToolRequest, v any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}

	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	return nil
}
