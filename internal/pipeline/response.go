package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

// DecodeModelResponse strips Markdown wrappers from model output and decodes
// the remaining JSON. Undecodable content is an ErrInvalidResponseShape.
func DecodeModelResponse(content string) (any, error) {
	clean := cleanModelJSON(content)

	var decoded any
	if err := json.Unmarshal([]byte(clean), &decoded); err != nil {
		return nil, fmt.Errorf("DecodeModelResponse: %w: %v", domain.ErrInvalidResponseShape, err)
	}
	return decoded, nil
}

// ExtractRecords locates the raw transaction records in a decoded response.
// Two shapes are accepted: {"transactions": [...]} and a bare array. Array
// elements that are not objects become empty records.
func ExtractRecords(decoded any) ([]RawRecord, error) {
	switch v := decoded.(type) {
	case []any:
		return toRecords(v), nil
	case map[string]any:
		if arr, ok := v["transactions"].([]any); ok {
			return toRecords(arr), nil
		}
	}
	return nil, fmt.Errorf("ExtractRecords: %w: expected a transactions array", domain.ErrInvalidResponseShape)
}

func toRecords(items []any) []RawRecord {
	out := make([]RawRecord, len(items))
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			out[i] = m
		} else {
			out[i] = RawRecord{}
		}
	}
	return out
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return strings.Trim(s, "`")
		}
		s = strings.TrimSpace(s[idx+1:])
		if end := strings.LastIndex(s, "```"); end != -1 {
			s = strings.TrimSpace(s[:end])
		}
	}

	if s == "" || s[0] == '{' || s[0] == '[' {
		return s
	}

	// Leading prose: keep from the first opening bracket to its last closer.
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return s
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(s, closer); end > start {
		return s[start : end+1]
	}
	return s
}
