package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

type healthResult struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// It reports this client's version and whether the quality service answers.
func RegisterHealthTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns client version and the health of the dataset-quality service"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Service: "unreachable", Version: deps.Version}
		status, err := deps.Service.Health(ctx)
		if err != nil {
			result.Status = "degraded"
			deps.logger().Debug("Health check failed", zap.Error(err))
		} else {
			result.Service = status.Status
		}
		return jsonResult(result)
	})
}
