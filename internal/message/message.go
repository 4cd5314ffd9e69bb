// Package message classifies decoded CLI records into tagged messages.
package message

import "strings"

// Kind identifies the class of a protocol event.
type Kind string

const (
	// KindSystemInit is the session initialization event.
	KindSystemInit Kind = "system_init"
	// KindUser is a user turn echoed back by the agent.
	KindUser Kind = "user"
	// KindAssistant is an assistant turn.
	KindAssistant Kind = "assistant"
	// KindToolResult is the result of a tool invocation.
	KindToolResult Kind = "tool_result"
	// KindResultSuccess is the terminal result of a successful run.
	KindResultSuccess Kind = "result_success"
	// KindResultError is the terminal result of an unsuccessful run.
	KindResultError Kind = "result_error"
	// KindUnknown covers unrecognized, malformed and non-JSON lines.
	KindUnknown Kind = "unknown"
)

// IsResult reports whether the kind is a terminal result.
func (k Kind) IsResult() bool {
	return k == KindResultSuccess || k == KindResultError
}

// Message is one classified protocol event. Messages are never mutated after
// classification.
type Message struct {
	Kind Kind

	// Payload is the decoded JSON object. Nil for lines that were not JSON objects.
	Payload map[string]any

	// Raw is the original line, verbatim, without its newline.
	Raw string

	// Err is set on unknown messages demoted by a decode or protocol error.
	// An unrecognized but well-formed record has a nil Err.
	Err error
}

// Type returns the record's "type" discriminant.
func (m *Message) Type() string {
	return stringField(m.Payload, "type")
}

// Subtype returns the record's "subtype" field.
func (m *Message) Subtype() string {
	return stringField(m.Payload, "subtype")
}

// SessionID returns the agent session identifier, if the record carries one.
func (m *Message) SessionID() string {
	return stringField(m.Payload, "session_id")
}

// ResultText returns the "result" field of a terminal result message.
func (m *Message) ResultText() string {
	if !m.Kind.IsResult() {
		return ""
	}

	return stringField(m.Payload, "result")
}

// CostUSD returns the reported total cost of a terminal result message.
func (m *Message) CostUSD() (float64, bool) {
	if !m.Kind.IsResult() {
		return 0, false
	}

	cost, ok := m.Payload["total_cost_usd"].(float64)

	return cost, ok
}

// ErrorCode returns the code of an unsuccessful result: its subtype, or
// "error" when the agent reported success with is_error set.
func (m *Message) ErrorCode() string {
	if m.Kind != KindResultError {
		return ""
	}

	if subtype := m.Subtype(); subtype != "" && subtype != "success" {
		return subtype
	}

	return "error"
}

// Text returns the assembled text of an assistant or user message. String
// content is returned as is; block content contributes its text blocks.
func (m *Message) Text() string {
	if m.Kind != KindAssistant && m.Kind != KindUser {
		return ""
	}

	inner, _ := m.Payload["message"].(map[string]any)

	switch content := inner["content"].(type) {
	case string:
		return content
	case []any:
		var sb strings.Builder

		for _, block := range parseContentBlocks(content) {
			if tb, ok := block.(*TextBlock); ok {
				sb.WriteString(tb.Text)
			}
		}

		return sb.String()
	default:
		return ""
	}
}

// Blocks returns the content blocks of an assistant, user or tool result
// message. String content is normalized to a single TextBlock.
func (m *Message) Blocks() []ContentBlock {
	inner, _ := m.Payload["message"].(map[string]any)

	switch content := inner["content"].(type) {
	case string:
		return []ContentBlock{&TextBlock{Type: BlockTypeText, Text: content}}
	case []any:
		return parseContentBlocks(content)
	default:
		return nil
	}
}

// AssistantText joins the text of every assistant message in msgs, one
// message per line.
func AssistantText(msgs []*Message) string {
	parts := make([]string, 0, len(msgs))

	for _, msg := range msgs {
		if msg.Kind != KindAssistant {
			continue
		}

		if text := msg.Text(); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n")
}

// FinalResult returns the last terminal result message in msgs, or nil.
func FinalResult(msgs []*Message) *Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Kind.IsResult() {
			return msgs[i]
		}
	}

	return nil
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)

	return s
}
