package message

import (
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/claudeflow-go/internal/decode"
	"github.com/wagiedev/claudeflow-go/internal/errors"
)

// Record type discriminants as emitted by the CLI.
const (
	typeSystem     = "system"
	typeUser       = "user"
	typeAssistant  = "assistant"
	typeToolResult = "tool_result"
	typeResult     = "result"
)

// Payload requirements per record type. Only key presence and coarse JSON
// types are checked; payloads are otherwise passed through untouched.
var (
	turnSchema = mustResolve(&jsonschema.Schema{
		Type:     "object",
		Required: []string{"message"},
		Properties: map[string]*jsonschema.Schema{
			"message": {Type: "object"},
		},
	})

	systemSchema = mustResolve(&jsonschema.Schema{
		Type:     "object",
		Required: []string{"subtype"},
		Properties: map[string]*jsonschema.Schema{
			"subtype": {Type: "string"},
		},
	})

	resultSchema = mustResolve(&jsonschema.Schema{
		Type:     "object",
		Required: []string{"subtype"},
		Properties: map[string]*jsonschema.Schema{
			"subtype":  {Type: "string"},
			"is_error": {Type: "boolean"},
		},
	})
)

func mustResolve(schema *jsonschema.Schema) *jsonschema.Resolved {
	resolved, err := schema.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("resolve message schema: %v", err))
	}

	return resolved
}

// Classify converts a decoded record into exactly one Message.
//
// Lines that are not JSON objects, records with an unrecognized discriminant
// and records missing required fields all become KindUnknown with the raw
// line preserved. Classification never fails.
func Classify(log *slog.Logger, rec decode.Record) *Message {
	msg := &Message{Kind: KindUnknown, Payload: rec.Data, Raw: rec.Line}

	if !rec.Valid() {
		log.Debug("Passing through undecodable line", "error", rec.Err)

		msg.Err = rec.Err

		return msg
	}

	msgType, _ := rec.Data["type"].(string)

	var (
		kind   Kind
		schema *jsonschema.Resolved
	)

	switch msgType {
	case typeSystem:
		kind, schema = KindUnknown, systemSchema
	case typeAssistant:
		kind, schema = KindAssistant, turnSchema
	case typeUser:
		kind, schema = KindUser, turnSchema
	case typeToolResult:
		kind = KindToolResult
	case typeResult:
		kind, schema = KindResultError, resultSchema
	default:
		log.Debug("Unrecognized record type", "message_type", msgType)

		return msg
	}

	if schema != nil {
		if err := schema.Validate(rec.Data); err != nil {
			log.Debug("Demoting invalid record", "message_type", msgType, "error", err)

			msg.Err = &errors.ProtocolError{Type: msgType, Err: err, Data: rec.Data}

			return msg
		}
	}

	switch msgType {
	case typeSystem:
		if rec.Data["subtype"] == "init" {
			kind = KindSystemInit
		}
	case typeUser:
		inner, _ := rec.Data["message"].(map[string]any)
		if hasToolResultBlock(inner["content"]) {
			kind = KindToolResult
		}
	case typeResult:
		if isError, _ := rec.Data["is_error"].(bool); rec.Data["subtype"] == "success" && !isError {
			kind = KindResultSuccess
		}
	}

	msg.Kind = kind

	return msg
}
