package tools

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Dimash999666/data-quality-platform/pkg/api"
	"github.com/Dimash999666/data-quality-platform/pkg/models"
	"github.com/Dimash999666/data-quality-platform/pkg/workspace"
)

// Service is the gateway surface the tools call. *api.Gateway implements it.
type Service interface {
	workspace.Service
	Health(ctx context.Context) (*models.HealthStatus, error)
	GetDataset(ctx context.Context, id int64) (*models.Dataset, error)
}

// Deps holds what the dataset tools need.
type Deps struct {
	Service Service
	Logger  *zap.Logger
	Version string
}

func (d *Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// RegisterTools registers every tool on s.
func RegisterTools(s *server.MCPServer, deps *Deps) {
	RegisterHealthTool(s, deps)
	registerListDatasetsTool(s, deps)
	registerProfileDatasetTool(s, deps)
	registerGetIssuesTool(s, deps)
	registerListRulesTool(s, deps)
	registerValidateDatasetTool(s, deps)
	registerListVersionsTool(s, deps)
	registerCompareVersionsTool(s, deps)
	registerAnalyzeDatasetTool(s, deps)
}

// respond turns a gateway call into a tool result. Errors the caller can act
// on become error results; transport failures are returned as Go errors.
func respond[T any](deps *Deps, tool string, value T, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if result := NewAPIErrorResult(err); result != nil {
			deps.logger().Debug("Tool call rejected", zap.String("tool", tool), zap.Error(err))
			return result, nil
		}
		return nil, fmt.Errorf("%s failed: %w", tool, err)
	}
	return jsonResult(value)
}

func datasetIDParam() mcp.ToolOption {
	return mcp.WithNumber(
		"dataset_id",
		mcp.Required(),
		mcp.Description("Dataset id as returned by list_datasets"),
	)
}

type datasetList struct {
	Count    int              `json:"count"`
	Datasets []models.Dataset `json:"datasets"`
}

func registerListDatasetsTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"list_datasets",
		mcp.WithDescription("List every uploaded dataset with its id, name, version, row and column counts."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := deps.Service.ListDatasets(ctx)
		if list == nil {
			list = []models.Dataset{}
		}
		return respond(deps, "list_datasets", datasetList{Count: len(list), Datasets: list}, err)
	})
}

func registerProfileDatasetTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"profile_dataset",
		mcp.WithDescription(
			"Compute the quality profile of a dataset: quality score, per-column statistics, "+
				"anomalies and detected issues. Set latest=true to read the last stored profile "+
				"instead of computing a new one.",
		),
		datasetIDParam(),
		mcp.WithBoolean(
			"latest",
			mcp.Description("Optional - return the most recent stored profile without recomputing"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, bad := requireID(req, "dataset_id")
		if bad != nil {
			return bad, nil
		}

		if req.GetBool("latest", false) {
			report, err := deps.Service.LatestProfile(ctx, id)
			return respond(deps, "profile_dataset", report, err)
		}
		report, err := deps.Service.RunProfile(ctx, id)
		return respond(deps, "profile_dataset", report, err)
	})
}

func registerGetIssuesTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"get_issues",
		mcp.WithDescription("List the quality issues found by the latest profile of a dataset."),
		datasetIDParam(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, bad := requireID(req, "dataset_id")
		if bad != nil {
			return bad, nil
		}
		issues, err := deps.Service.Issues(ctx, id)
		return respond(deps, "get_issues", issues, err)
	})
}

type ruleList struct {
	DatasetID int64         `json:"dataset_id"`
	Count     int           `json:"count"`
	Rules     []models.Rule `json:"rules"`
}

func registerListRulesTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"list_rules",
		mcp.WithDescription("List the validation rules defined on a dataset."),
		datasetIDParam(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, bad := requireID(req, "dataset_id")
		if bad != nil {
			return bad, nil
		}
		rules, err := deps.Service.ListRules(ctx, id)
		if rules == nil {
			rules = []models.Rule{}
		}
		return respond(deps, "list_rules", ruleList{DatasetID: id, Count: len(rules), Rules: rules}, err)
	})
}

func registerValidateDatasetTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"validate_dataset",
		mcp.WithDescription(
			"Run every validation rule of a dataset. Each result carries the total number of "+
				"violations and a sample of violating rows; the sample may be shorter than the total.",
		),
		datasetIDParam(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, bad := requireID(req, "dataset_id")
		if bad != nil {
			return bad, nil
		}
		result, err := deps.Service.Validate(ctx, id)
		return respond(deps, "validate_dataset", result, err)
	})
}

func registerListVersionsTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"list_versions",
		mcp.WithDescription("List every version in the lineage of a dataset, oldest first."),
		datasetIDParam(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, bad := requireID(req, "dataset_id")
		if bad != nil {
			return bad, nil
		}
		versions, err := deps.Service.Versions(ctx, id)
		return respond(deps, "list_versions", versions, err)
	})
}

func registerCompareVersionsTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"compare_versions",
		mcp.WithDescription(
			"Compare two datasets (usually two versions of one lineage): row and column changes, "+
				"per-column quality drift and an overall drift score. dataset_a is the baseline.",
		),
		mcp.WithNumber("dataset_a", mcp.Required(), mcp.Description("Baseline dataset id")),
		mcp.WithNumber("dataset_b", mcp.Required(), mcp.Description("Dataset id compared against the baseline")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		a, bad := requireID(req, "dataset_a")
		if bad != nil {
			return bad, nil
		}
		b, bad := requireID(req, "dataset_b")
		if bad != nil {
			return bad, nil
		}
		if a == b {
			return NewErrorResult(CodeInvalidParameters, "dataset_a and dataset_b must differ"), nil
		}
		cmp, err := deps.Service.Compare(ctx, a, b)
		return respond(deps, "compare_versions", cmp, err)
	})
}

func registerAnalyzeDatasetTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"analyze_dataset",
		mcp.WithDescription(
			"Ask the service's AI engine for an assessment of a profiled dataset: summary, ML readiness, "+
				"risks, critical problems, recommendations and suggested rules. "+
				"The dataset must have been profiled first (profile_dataset).",
		),
		datasetIDParam(),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, bad := requireID(req, "dataset_id")
		if bad != nil {
			return bad, nil
		}

		analysis, err := deps.Service.AnalyzeDataset(ctx, id)
		if err != nil && needsProfile(ctx, deps, id, err) {
			return NewErrorResult(CodeProfileRequired,
				fmt.Sprintf("dataset %d has no profile yet. Call profile_dataset(dataset_id=%d) first.", id, id)), nil
		}
		return respond(deps, "analyze_dataset", analysis, err)
	})
}

// needsProfile reports whether a 404 from the analysis endpoint means the
// dataset exists but was never profiled.
func needsProfile(ctx context.Context, deps *Deps, id int64, err error) bool {
	apiErr, ok := api.AsError(err)
	if !ok || apiErr.StatusCode != http.StatusNotFound {
		return false
	}
	_, getErr := deps.Service.GetDataset(ctx, id)
	return getErr == nil
}
