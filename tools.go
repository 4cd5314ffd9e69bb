package claudeflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/claudeflow-go/internal/cli"
	"github.com/wagiedev/claudeflow-go/internal/mcp"
)

// Tool names registered by NewOrchestratorTools.
const (
	ToolQuery    = "query"
	ToolParallel = "parallel"
	ToolPipeline = "pipeline"
)

// ToolsConfig configures NewOrchestratorTools.
type ToolsConfig struct {
	// Name and Version identify the MCP server. Defaults: "claudeflow" and
	// the SDK version.
	Name    string
	Version string

	// Logger receives server diagnostics. Nil disables logging.
	Logger *slog.Logger

	// Parallel is the default configuration of the parallel tool. Calls may
	// override MaxConcurrency and FailFast.
	Parallel ParallelConfig

	// Pipeline configures the pipeline tool.
	Pipeline PipelineConfig

	// Retry is applied to the query tool.
	Retry RetryPolicy
}

// queryArgs are the per-call agent settings shared by every tool.
//
//nolint:tagliatelle // tool arguments use snake_case keys
type queryArgs struct {
	Model        string `json:"model,omitempty"`
	MaxTurns     int    `json:"max_turns,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

func (a queryArgs) options() *Options {
	if a == (queryArgs{}) {
		return nil
	}

	return &Options{
		Model:        a.Model,
		MaxTurns:     a.MaxTurns,
		SystemPrompt: a.SystemPrompt,
	}
}

// taskSummary is one element of the parallel tool's JSON result.
//
//nolint:tagliatelle // tool results use snake_case keys
type taskSummary struct {
	Index    int    `json:"index"`
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewOrchestratorTools exposes o as MCP tools: "query" runs one prompt with
// retries, "parallel" fans prompts out and returns a JSON summary, and
// "pipeline" chains prompts and returns the final text. Task failures are
// reported as error results.
//
// The returned server can be called in process with CallTool or served to
// an MCP client with Serve.
func NewOrchestratorTools(o *Orchestrator, cfg ToolsConfig) (*ToolServer, error) {
	if cfg.Name == "" {
		cfg.Name = "claudeflow"
	}

	if cfg.Version == "" {
		cfg.Version = cli.SDKVersion
	}

	log := cfg.Logger
	if log == nil {
		log = NopLogger()
	}

	server := mcp.NewToolServer(log, cfg.Name, cfg.Version)

	tools := []struct {
		tool    *mcpsdk.Tool
		handler mcpsdk.ToolHandler
	}{
		{
			tool: mcp.NewTool(ToolQuery, "Run one prompt through the agent and return its answer.",
				querySchema(map[string]*jsonschema.Schema{
					"prompt": {Type: "string", Description: "The prompt to run.", MinLength: ptr(1)},
				}, "prompt")),
			handler: queryHandler(o, cfg.Retry),
		},
		{
			tool: mcp.NewTool(ToolParallel, "Run independent prompts concurrently and return a JSON summary per prompt.",
				querySchema(map[string]*jsonschema.Schema{
					"prompts":         promptsSchema(),
					"max_concurrency": {Type: "integer", Minimum: ptr(0.0), Description: "Maximum live sessions, 0 for unbounded."},
					"fail_fast":       {Type: "boolean", Description: "Cancel remaining prompts after the first failure."},
				}, "prompts")),
			handler: parallelHandler(o, cfg.Parallel),
		},
		{
			tool: mcp.NewTool(ToolPipeline, "Run prompts in sequence, feeding each answer into the next prompt.",
				querySchema(map[string]*jsonschema.Schema{
					"prompts": promptsSchema(),
				}, "prompts")),
			handler: pipelineHandler(o, cfg.Pipeline),
		},
	}

	for _, t := range tools {
		if err := server.AddTool(t.tool, t.handler); err != nil {
			return nil, err
		}
	}

	return server, nil
}

func ptr[T any](v T) *T {
	return &v
}

// querySchema returns an object schema with props plus the optional agent
// settings of queryArgs.
func querySchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	props["model"] = &jsonschema.Schema{Type: "string", Description: "Model override."}
	props["max_turns"] = &jsonschema.Schema{Type: "integer", Minimum: ptr(0.0), Description: "Turn limit, 0 for none."}
	props["system_prompt"] = &jsonschema.Schema{Type: "string", Description: "System prompt override."}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func promptsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Items:       &jsonschema.Schema{Type: "string", MinLength: ptr(1)},
		MinItems:    ptr(1),
		Description: "The prompts to run, in order.",
	}
}

func queryHandler(o *Orchestrator, policy RetryPolicy) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args struct {
			queryArgs

			Prompt string `json:"prompt"`
		}

		if err := mcp.DecodeArguments(req, &args); err != nil {
			return nil, err
		}

		out := o.Retry(ctx, Spec{Name: ToolQuery, Prompt: args.Prompt, Options: args.options()}, policy)
		if out.Err != nil {
			return mcp.ErrorResult(out.Err.Error()), nil
		}

		return mcp.TextResult(out.Text()), nil
	}
}

func parallelHandler(o *Orchestrator, defaults ParallelConfig) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args struct {
			queryArgs

			Prompts        []string `json:"prompts"`
			MaxConcurrency *int     `json:"max_concurrency"`
			FailFast       *bool    `json:"fail_fast"`
		}

		if err := mcp.DecodeArguments(req, &args); err != nil {
			return nil, err
		}

		cfg := defaults
		if args.MaxConcurrency != nil {
			cfg.MaxConcurrency = *args.MaxConcurrency
		}

		if args.FailFast != nil {
			cfg.FailFast = *args.FailFast
		}

		specs := make([]Spec, len(args.Prompts))
		for i, prompt := range args.Prompts {
			specs[i] = Spec{Name: fmt.Sprintf("%s[%d]", ToolParallel, i), Prompt: prompt, Options: args.options()}
		}

		outcomes := o.Parallel(ctx, specs, cfg)

		summary := make([]taskSummary, len(outcomes))
		failed := false

		for i, out := range outcomes {
			summary[i] = taskSummary{
				Index:    out.Index,
				TaskID:   out.TaskID,
				Status:   string(out.Status),
				Attempts: out.Attempts,
				Text:     out.Text(),
			}

			if out.Err != nil {
				summary[i].Error = out.Err.Error()
				failed = true
			}
		}

		data, err := json.Marshal(summary)
		if err != nil {
			return nil, fmt.Errorf("marshal summary: %w", err)
		}

		result := mcp.TextResult(string(data))
		result.IsError = failed

		return result, nil
	}
}

func pipelineHandler(o *Orchestrator, cfg PipelineConfig) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args struct {
			queryArgs

			Prompts []string `json:"prompts"`
		}

		if err := mcp.DecodeArguments(req, &args); err != nil {
			return nil, err
		}

		stages := make([]Stage, len(args.Prompts))
		for i, prompt := range args.Prompts {
			stages[i] = Stage{Spec: Spec{
				Name:    fmt.Sprintf("%s[%d]", ToolPipeline, i),
				Prompt:  prompt,
				Options: args.options(),
			}}
		}

		result, err := o.Pipeline(ctx, stages, cfg)
		if err != nil {
			return mcp.ErrorResult(err.Error()), nil
		}

		return mcp.TextResult(result.Text()), nil
	}
}
