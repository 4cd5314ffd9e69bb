package claudeflow

import (
	"github.com/wagiedev/claudeflow-go/internal/config"
	"github.com/wagiedev/claudeflow-go/internal/mcp"
	"github.com/wagiedev/claudeflow-go/internal/message"
	"github.com/wagiedev/claudeflow-go/internal/orchestrator"
	"github.com/wagiedev/claudeflow-go/internal/stream"
)

// ===== Configuration =====

// Options configures one agent query.
type Options = config.Options

// Effort controls thinking depth.
type Effort = config.Effort

const (
	// EffortLow uses minimal thinking.
	EffortLow = config.EffortLow
	// EffortMedium uses moderate thinking.
	EffortMedium = config.EffortMedium
	// EffortHigh uses deep thinking.
	EffortHigh = config.EffortHigh
	// EffortMax uses maximum thinking depth.
	EffortMax = config.EffortMax
)

// EnvProvider supplies environment variables (typically credentials) before
// every spawn.
type EnvProvider = config.EnvProvider

// EnvProviderFunc adapts a function to EnvProvider.
type EnvProviderFunc = config.EnvProviderFunc

// StaticEnv is an EnvProvider returning a fixed set of variables.
type StaticEnv = config.StaticEnv

// Preset is a named bundle of query settings.
type Preset = config.Preset

// PresetProvider resolves presets by name.
type PresetProvider = config.PresetProvider

// Presets is a map-backed PresetProvider.
type Presets = config.Presets

// ConfigFile is the YAML configuration file.
type ConfigFile = config.File

// ===== Messages =====

// Message is one classified record of agent output.
type Message = message.Message

// MessageKind tags a Message.
type MessageKind = message.Kind

const (
	// KindSystemInit is the session start record.
	KindSystemInit = message.KindSystemInit
	// KindUser is a user turn.
	KindUser = message.KindUser
	// KindAssistant is an assistant turn.
	KindAssistant = message.KindAssistant
	// KindToolResult carries tool output.
	KindToolResult = message.KindToolResult
	// KindResultSuccess is a successful terminal result.
	KindResultSuccess = message.KindResultSuccess
	// KindResultError is an unsuccessful terminal result.
	KindResultError = message.KindResultError
	// KindUnknown is anything else, including malformed lines.
	KindUnknown = message.KindUnknown
)

// ContentBlock is a block of message content.
type ContentBlock = message.ContentBlock

// TextBlock contains plain text content.
type TextBlock = message.TextBlock

// ThinkingBlock contains the agent's reasoning.
type ThinkingBlock = message.ThinkingBlock

// ToolUseBlock represents the agent using a tool.
type ToolUseBlock = message.ToolUseBlock

// ToolResultBlock contains the result of a tool execution.
type ToolResultBlock = message.ToolResultBlock

// Stream is a pull cursor over the messages of one agent session.
type Stream = stream.Stream

// AssistantText joins the assistant text of msgs.
func AssistantText(msgs []*Message) string {
	return message.AssistantText(msgs)
}

// FinalResult returns the last terminal result message of msgs, or nil.
func FinalResult(msgs []*Message) *Message {
	return message.FinalResult(msgs)
}

// ===== Orchestration =====

// Orchestrator runs many agent sessions.
type Orchestrator = orchestrator.Orchestrator

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption = orchestrator.Option

// Spec describes one agent run.
type Spec = orchestrator.Spec

// Outcome is the result of one task.
type Outcome = orchestrator.Outcome

// TaskStatus is the lifecycle state of a task.
type TaskStatus = orchestrator.Status

const (
	// TaskPending means the task waits for a concurrency slot.
	TaskPending = orchestrator.StatusPending
	// TaskRunning means an attempt is in progress.
	TaskRunning = orchestrator.StatusRunning
	// TaskRetrying means the task waits before its next attempt.
	TaskRetrying = orchestrator.StatusRetrying
	// TaskSucceeded is terminal.
	TaskSucceeded = orchestrator.StatusSucceeded
	// TaskFailed is terminal.
	TaskFailed = orchestrator.StatusFailed
)

// ParallelConfig controls fan-out execution.
type ParallelConfig = orchestrator.ParallelConfig

// RetryPolicy bounds re-execution after transient failures.
type RetryPolicy = orchestrator.RetryPolicy

// Batch is a set of tasks submitted together.
type Batch = orchestrator.Batch

// TaskInfo identifies a submitted task.
type TaskInfo = orchestrator.TaskInfo

// Stage is one step of a pipeline.
type Stage = orchestrator.Stage

// PipelineConfig controls pipeline execution.
type PipelineConfig = orchestrator.PipelineConfig

// PipelineResult holds the outcomes of the stages that ran.
type PipelineResult = orchestrator.PipelineResult

// Metrics exposes Prometheus collectors for orchestrated tasks.
type Metrics = orchestrator.Metrics

// ===== MCP =====

// MCPServerConfig is the interface for MCP server configurations.
type MCPServerConfig = mcp.ServerConfig

// MCPStdioServerConfig configures a stdio-based MCP server.
type MCPStdioServerConfig = mcp.StdioServerConfig

// MCPSSEServerConfig configures a Server-Sent Events MCP server.
type MCPSSEServerConfig = mcp.SSEServerConfig

// MCPHTTPServerConfig configures an HTTP-based MCP server.
type MCPHTTPServerConfig = mcp.HTTPServerConfig

// ToolServer is a registry of MCP tools.
type ToolServer = mcp.ToolServer
