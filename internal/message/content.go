package message

// Block type constants.
const (
	BlockTypeText       = "text"
	BlockTypeThinking   = "thinking"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// ContentBlock represents a block of content within a message.
type ContentBlock interface {
	BlockType() string
}

// Compile-time verification that all content block types implement ContentBlock.
var (
	_ ContentBlock = (*TextBlock)(nil)
	_ ContentBlock = (*ThinkingBlock)(nil)
	_ ContentBlock = (*ToolUseBlock)(nil)
	_ ContentBlock = (*ToolResultBlock)(nil)
)

// TextBlock contains plain text content.
type TextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// BlockType implements the ContentBlock interface.
func (b *TextBlock) BlockType() string { return BlockTypeText }

// ThinkingBlock contains the agent's reasoning.
type ThinkingBlock struct {
	Type     string `json:"type"`
	Thinking string `json:"thinking"`
}

// BlockType implements the ContentBlock interface.
func (b *ThinkingBlock) BlockType() string { return BlockTypeThinking }

// ToolUseBlock represents a tool invocation by the agent.
type ToolUseBlock struct {
	Type  string         `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// BlockType implements the ContentBlock interface.
func (b *ToolUseBlock) BlockType() string { return BlockTypeToolUse }

// ToolResultBlock contains the result of a tool execution.
//
//nolint:tagliatelle // the CLI uses snake_case for JSON fields
type ToolResultBlock struct {
	Type      string         `json:"type"`
	ToolUseID string         `json:"tool_use_id"`
	Content   []ContentBlock `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

// BlockType implements the ContentBlock interface.
func (b *ToolResultBlock) BlockType() string { return BlockTypeToolResult }

// parseContentBlocks converts raw content entries into blocks. Entries that
// are not objects are skipped; unknown block types fall back to TextBlock so
// newer CLI block types stay readable.
func parseContentBlocks(data []any) []ContentBlock {
	blocks := make([]ContentBlock, 0, len(data))

	for _, item := range data {
		blockData, ok := item.(map[string]any)
		if !ok {
			continue
		}

		blocks = append(blocks, parseContentBlock(blockData))
	}

	return blocks
}

func parseContentBlock(data map[string]any) ContentBlock {
	switch stringField(data, "type") {
	case BlockTypeThinking:
		return &ThinkingBlock{Type: BlockTypeThinking, Thinking: stringField(data, "thinking")}
	case BlockTypeToolUse:
		input, _ := data["input"].(map[string]any)

		return &ToolUseBlock{
			Type:  BlockTypeToolUse,
			ID:    stringField(data, "id"),
			Name:  stringField(data, "name"),
			Input: input,
		}
	case BlockTypeToolResult:
		block := &ToolResultBlock{
			Type:      BlockTypeToolResult,
			ToolUseID: stringField(data, "tool_use_id"),
		}

		if isError, ok := data["is_error"].(bool); ok {
			block.IsError = isError
		}

		switch content := data["content"].(type) {
		case string:
			block.Content = []ContentBlock{&TextBlock{Type: BlockTypeText, Text: content}}
		case []any:
			block.Content = parseContentBlocks(content)
		}

		return block
	default:
		return &TextBlock{Type: BlockTypeText, Text: stringField(data, "text")}
	}
}

// hasToolResultBlock reports whether raw content carries a tool_result block.
func hasToolResultBlock(content any) bool {
	items, ok := content.([]any)
	if !ok {
		return false
	}

	for _, item := range items {
		if block, ok := item.(map[string]any); ok && block["type"] == BlockTypeToolResult {
			return true
		}
	}

	return false
}
