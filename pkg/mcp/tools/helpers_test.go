package tools

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestTrimString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"whitespace only", "   ", ""},
		{"both sides whitespace", "  test  ", "test"},
		{"mixed whitespace", " \t\ntest\n\t ", "test"},
		{"no whitespace", "test", "test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, trimString(tt.input))
		})
	}
}

func TestRequireID(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		want    int64
		wantErr bool
	}{
		{"json number", map[string]any{"dataset_id": float64(7)}, 7, false},
		{"numeric string", map[string]any{"dataset_id": " 12 "}, 12, false},
		{"missing", map[string]any{}, 0, true},
		{"null", map[string]any{"dataset_id": nil}, 0, true},
		{"zero", map[string]any{"dataset_id": float64(0)}, 0, true},
		{"negative", map[string]any{"dataset_id": float64(-3)}, 0, true},
		{"not a number", map[string]any{"dataset_id": "abc"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, bad := requireID(callRequest(tt.args), "dataset_id")
			if tt.wantErr {
				require.NotNil(t, bad)
				errResp := parseErrorResult(t, bad)
				assert.Equal(t, CodeInvalidParameters, errResp.Code)
				assert.Contains(t, errResp.Message, "dataset_id")
				return
			}
			assert.Nil(t, bad)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestGetOptionalString(t *testing.T) {
	req := callRequest(map[string]any{"column": "  age ", "n": 3})
	assert.Equal(t, "age", getOptionalString(req, "column"))
	assert.Equal(t, "", getOptionalString(req, "n"))
	assert.Equal(t, "", getOptionalString(req, "missing"))
}
