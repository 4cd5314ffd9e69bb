// Package mcp hosts tools behind the Model Context Protocol.
//
// A ToolServer is a thread-safe tool registry. Tools can be invoked directly
// in process with CallTool, or the same registry can be served to any MCP
// client over a transport such as stdio. Tool input is validated against the
// tool's JSON Schema before the handler runs.
//
// The package also defines the configuration types for external MCP servers
// that are passed through to the agent CLI.
package mcp
