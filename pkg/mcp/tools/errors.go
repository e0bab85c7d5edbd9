package tools

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Dimash999666/data-quality-platform/pkg/api"
	"github.com/Dimash999666/data-quality-platform/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Returning it as a tool result keeps the details visible to the model
// instead of being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes used in tool results.
const (
	CodeInvalidParameters = "invalid_parameters"
	CodeNotFound          = "not_found"
	CodeDependentVersions = "dependent_versions"
	CodeRejected          = "rejected"
	CodeServiceError      = "service_error"
	CodeProfileRequired   = "profile_required"
)

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can act on (bad parameters, unknown dataset).
// Transport failures are returned as Go errors instead.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// NewAPIErrorResult converts a gateway error into a tool result. It returns
// a nil result for failures the caller cannot fix (service unreachable,
// malformed responses); the caller returns those as Go errors.
func NewAPIErrorResult(err error) *mcp.CallToolResult {
	apiErr, ok := api.AsError(err)
	if !ok {
		return nil
	}

	switch {
	case apiErr.Kind == api.KindTransport:
		return nil
	case apiErr.Kind == api.KindLocal:
		return NewErrorResultWithDetails(CodeInvalidParameters, apiErr.Message, detailOrNil(apiErr))
	case errors.Is(apiErr, apperrors.ErrDependentVersions):
		return NewErrorResult(CodeDependentVersions, apiErr.Message)
	case apiErr.StatusCode == http.StatusNotFound:
		return NewErrorResult(CodeNotFound, apiErr.Message)
	case apiErr.HasDetail():
		return NewErrorResultWithDetails(CodeRejected, apiErr.Message, apiErr.Detail)
	default:
		return NewErrorResultWithDetails(CodeServiceError, apiErr.Message, map[string]any{"status": apiErr.StatusCode})
	}
}

func detailOrNil(apiErr *api.Error) any {
	if apiErr.Detail == nil {
		return nil
	}
	return apiErr.Detail
}
