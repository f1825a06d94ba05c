package oddsfeed

import (
	"bytes"
	"fmt"

	sonic "github.com/bytedance/sonic"
)

// Shape classifies a provider response body.
type Shape string

const (
	ShapeArray    Shape = "array"
	ShapeEmpty    Shape = "empty"
	ShapeEnvelope Shape = "envelope"
	ShapeInvalid  Shape = "invalid"
)

// ParseResult is the outcome of Parse. Fixtures is empty for every shape but ShapeArray.
type ParseResult struct {
	Fixtures []FixtureRecord
	Shape    Shape
	// Message carries the provider's error text for ShapeEnvelope or the decode error for ShapeInvalid.
	Message string
	// Skipped counts array elements that were not JSON objects.
	Skipped int
}

const maxMessageLength = 240

// Parse never fails: bodies that are not a JSON array of objects degrade to an empty result.
func Parse(raw []byte) ParseResult {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ParseResult{Shape: ShapeEmpty}
	}

	var decoded any
	if err := sonic.Unmarshal(trimmed, &decoded); err != nil {
		return ParseResult{Shape: ShapeInvalid, Message: abbreviate(err.Error())}
	}

	switch v := decoded.(type) {
	case nil:
		return ParseResult{Shape: ShapeEmpty}
	case []any:
		result := ParseResult{Shape: ShapeArray, Fixtures: make([]FixtureRecord, 0, len(v))}
		for _, item := range v {
			fields, ok := item.(map[string]any)
			if !ok {
				result.Skipped++
				continue
			}
			result.Fixtures = append(result.Fixtures, NewFixtureRecord(fields))
		}
		return result
	case map[string]any:
		return ParseResult{Shape: ShapeEnvelope, Message: envelopeMessage(v)}
	default:
		return ParseResult{Shape: ShapeInvalid, Message: fmt.Sprintf("unexpected top-level %T", v)}
	}
}

func envelopeMessage(m map[string]any) string {
	for _, key := range []string{"message", "error"} {
		switch v := m[key].(type) {
		case nil:
			continue
		case string:
			if v != "" {
				return abbreviate(v)
			}
		default:
			return abbreviate(fmt.Sprint(v))
		}
	}
	return ""
}

func abbreviate(s string) string {
	if len(s) <= maxMessageLength {
		return s
	}
	return s[:maxMessageLength] + "..."
}
