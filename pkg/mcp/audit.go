package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// maxParamSize is the longest string parameter kept in an audit entry.
const maxParamSize = 1024

// maxPreviewSize is the longest result preview kept in an audit entry.
const maxPreviewSize = 200

// sensitiveKeys are parameter-name fragments whose values are hashed.
var sensitiveKeys = []string{"password", "secret", "token", "api_key", "apikey", "credential"}

// ToolCallEvent is one audited tool invocation.
type ToolCallEvent struct {
	CallID        string
	Tool          string
	Params        map[string]any
	Successful    bool
	ErrorCode     string
	ErrorMessage  string
	Duration      time.Duration
	ResultSummary map[string]any
}

// AuditLogger records every MCP tool call to the logger.
type AuditLogger struct {
	logger *zap.Logger
	sink   func(ToolCallEvent)

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewAuditLogger creates an AuditLogger that writes to logger.
func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{logger: logger.Named("mcp-audit")}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *AuditLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *AuditLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *AuditLogger) afterCallTool(_ context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	event := a.buildEvent(id, req)
	event.Successful = result == nil || !result.IsError
	event.ResultSummary = summarizeResult(result)
	if code, ok := event.ResultSummary["error_code"].(string); ok {
		event.ErrorCode = code
	}
	a.record(event)
}

func (a *AuditLogger) onError(_ context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}

	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	event := a.buildEvent(id, req)
	event.Successful = false
	event.ErrorMessage = err.Error()
	a.record(event)
}

func (a *AuditLogger) loadAndDeleteStart(id any) (time.Time, bool) {
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		return v.(time.Time), true
	}
	return time.Now(), false
}

func (a *AuditLogger) buildEvent(id any, req *mcplib.CallToolRequest) ToolCallEvent {
	start, _ := a.loadAndDeleteStart(id)
	event := ToolCallEvent{
		CallID:   uuid.NewString(),
		Duration: time.Since(start),
	}
	if req != nil {
		event.Tool = req.Params.Name
		event.Params = sanitizeParams(req.Params.Arguments)
	}
	return event
}

func (a *AuditLogger) record(event ToolCallEvent) {
	fields := []zap.Field{
		zap.String("call_id", event.CallID),
		zap.String("tool", event.Tool),
		zap.Bool("successful", event.Successful),
		zap.Duration("duration", event.Duration),
	}
	if len(event.Params) > 0 {
		fields = append(fields, zap.Any("params", event.Params))
	}

	switch {
	case event.ErrorMessage != "":
		a.logger.Warn("MCP tool call failed", append(fields, zap.String("error", event.ErrorMessage))...)
	case event.ErrorCode != "":
		a.logger.Info("MCP tool call rejected", append(fields, zap.String("error_code", event.ErrorCode))...)
	default:
		a.logger.Debug("MCP tool call", append(fields, zap.Any("result", event.ResultSummary))...)
	}

	if a.sink != nil {
		a.sink(event)
	}
}

// sanitizeParams copies request parameters for the audit log, hashing
// sensitive values and truncating long strings.
func sanitizeParams(args any) map[string]any {
	params, ok := args.(map[string]any)
	if !ok || len(params) == 0 {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		sanitized[k] = sanitizeValue(k, v)
	}
	return sanitized
}

func sanitizeValue(key string, value any) any {
	if isSensitiveKey(key) {
		return hashSensitiveValue(value)
	}

	switch val := value.(type) {
	case string:
		if len(val) > maxParamSize {
			return val[:maxParamSize] + "...[truncated]"
		}
		return val
	case map[string]any:
		return sanitizeParams(val)
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// hashSensitiveValue returns a SHA-256 hash prefix so entries can be
// correlated without storing the value.
func hashSensitiveValue(value any) string {
	str, ok := value.(string)
	if !ok {
		str = fmt.Sprintf("%v", value)
	}
	hash := sha256.Sum256([]byte(str))
	return "sha256:" + hex.EncodeToString(hash[:8])
}

// summarizeResult creates a compact summary of the tool result.
func summarizeResult(result *mcplib.CallToolResult) map[string]any {
	if result == nil {
		return nil
	}

	summary := map[string]any{
		"is_error": result.IsError,
	}

	for _, c := range result.Content {
		tc, ok := c.(mcplib.TextContent)
		if !ok {
			continue
		}
		summary["content_count"] = len(result.Content)

		text := tc.Text
		if gjson.Valid(text) {
			if count := gjson.Get(text, "count"); count.Exists() {
				summary["count"] = count.Int()
			}
			if code := gjson.Get(text, "code"); result.IsError && code.Type == gjson.String {
				summary["error_code"] = code.String()
			}
		}

		if len(text) > maxPreviewSize {
			text = text[:maxPreviewSize] + "...[truncated]"
		}
		summary["preview"] = text
		break
	}

	return summary
}
