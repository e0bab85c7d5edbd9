package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"
)

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	val, ok := req.GetArguments()[key].(string)
	if !ok {
		return ""
	}
	return trimString(val)
}

// requireID extracts a positive dataset id. Models send ids as numbers or
// as numeric strings; both are accepted.
func requireID(req mcp.CallToolRequest, key string) (int64, *mcp.CallToolResult) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return 0, NewErrorResult(CodeInvalidParameters, fmt.Sprintf("parameter '%s' is required", key))
	}
	if s, isString := raw.(string); isString {
		raw = trimString(s)
	}

	id, err := cast.ToInt64E(raw)
	if err != nil || id <= 0 {
		return 0, NewErrorResult(CodeInvalidParameters,
			fmt.Sprintf("parameter '%s' must be a positive integer, got %v", key, raw))
	}
	return id, nil
}

// jsonResult marshals v as the text content of a tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
