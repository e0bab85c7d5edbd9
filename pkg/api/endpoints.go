package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/Dimash999666/data-quality-platform/pkg/models"
)

func idSegment(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Health reports whether the service is up.
func (g *Gateway) Health(ctx context.Context) (*models.HealthStatus, error) {
	var out models.HealthStatus
	if err := g.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDatasets returns every dataset known to the service.
func (g *Gateway) ListDatasets(ctx context.Context) ([]models.Dataset, error) {
	var out []models.Dataset
	if err := g.doJSON(ctx, http.MethodGet, "/datasets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDataset fetches a single dataset.
func (g *Gateway) GetDataset(ctx context.Context, id int64) (*models.Dataset, error) {
	var out models.Dataset
	if err := g.doJSON(ctx, http.MethodGet, escapeSegments("datasets", idSegment(id)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadDataset uploads a CSV as a new root dataset.
func (g *Gateway) UploadDataset(ctx context.Context, filename string, r io.Reader) (*models.Dataset, error) {
	g.logger.Info("Uploading dataset", zap.String("filename", filename))

	var out models.Dataset
	if err := g.doMultipart(ctx, "/datasets/upload", filename, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadVersion uploads a CSV as a new version of datasetID.
func (g *Gateway) UploadVersion(ctx context.Context, datasetID int64, filename string, r io.Reader) (*models.NewVersionResponse, error) {
	g.logger.Info("Uploading new version",
		zap.Int64("dataset_id", datasetID),
		zap.String("filename", filename))

	var out models.NewVersionResponse
	path := escapeSegments("datasets", idSegment(datasetID), "new-version")
	if err := g.doMultipart(ctx, path, filename, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDataset deletes a dataset. A refusal caused by dependent versions
// is returned with KindDependencyConflict.
func (g *Gateway) DeleteDataset(ctx context.Context, id int64) (*models.DeleteResponse, error) {
	var out models.DeleteResponse
	if err := g.doJSON(ctx, http.MethodDelete, escapeSegments("datasets", idSegment(id)), nil, &out); err != nil {
		if apiErr, ok := AsError(err); ok {
			return nil, classifyDeleteError(apiErr)
		}
		return nil, err
	}
	return &out, nil
}

// RunProfile computes a fresh profile for the dataset.
func (g *Gateway) RunProfile(ctx context.Context, id int64) (*models.ProfileReport, error) {
	var out models.ProfileReport
	if err := g.doJSON(ctx, http.MethodPost, escapeSegments("datasets", idSegment(id), "profile"), nil, &out); err != nil {
		return nil, err
	}
	if out.DatasetID == 0 {
		out.DatasetID = id
	}
	return &out, nil
}

// LatestProfile fetches the most recently stored profile.
func (g *Gateway) LatestProfile(ctx context.Context, id int64) (*models.ProfileReport, error) {
	var out models.ProfileReport
	if err := g.doJSON(ctx, http.MethodGet, escapeSegments("datasets", idSegment(id), "profile"), nil, &out); err != nil {
		return nil, err
	}
	if out.DatasetID == 0 {
		out.DatasetID = id
	}
	return &out, nil
}

// Issues fetches the issue list of the latest profile.
func (g *Gateway) Issues(ctx context.Context, id int64) (*models.IssueList, error) {
	var out models.IssueList
	if err := g.doJSON(ctx, http.MethodGet, escapeSegments("datasets", idSegment(id), "issues"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeDataset requests an AI analysis.
func (g *Gateway) AnalyzeDataset(ctx context.Context, id int64) (*models.AIAnalysisResponse, error) {
	var out models.AIAnalysisResponse
	if err := g.doJSON(ctx, http.MethodPost, escapeSegments("datasets", idSegment(id), "ai-analyze"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SuggestRules asks the AI for rule suggestions for one column.
func (g *Gateway) SuggestRules(ctx context.Context, id int64, column string) (*models.RuleSuggestions, error) {
	if column == "" {
		return nil, NewLocalError("column name is required", nil)
	}

	var out models.RuleSuggestions
	path := escapeSegments("datasets", idSegment(id), "ai-suggest-rules", column)
	if err := g.doJSON(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Column == "" {
		out.Column = column
	}
	return &out, nil
}

// ListRules returns the rules of a dataset.
func (g *Gateway) ListRules(ctx context.Context, id int64) ([]models.Rule, error) {
	var out models.RuleList
	if err := g.doJSON(ctx, http.MethodGet, escapeSegments("datasets", idSegment(id), "rules"), nil, &out); err != nil {
		return nil, err
	}
	return out.Rules, nil
}

// CreateRule adds a rule to a dataset.
func (g *Gateway) CreateRule(ctx context.Context, id int64, rule models.RuleCreate) (*models.Rule, error) {
	if !models.IsValidRuleType(rule.RuleType) {
		return nil, NewLocalError(fmt.Sprintf("unknown rule type %q", rule.RuleType), nil)
	}
	if rule.ColumnName == "" {
		return nil, NewLocalError("column name is required", nil)
	}
	if rule.Parameters == nil {
		rule.Parameters = map[string]any{}
	}

	var out models.Rule
	if err := g.doJSON(ctx, http.MethodPost, escapeSegments("datasets", idSegment(id), "rules"), rule, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRule removes a rule from a dataset.
func (g *Gateway) DeleteRule(ctx context.Context, datasetID, ruleID int64) error {
	path := escapeSegments("datasets", idSegment(datasetID), "rules", idSegment(ruleID))
	return g.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// Validate runs every rule of the dataset.
func (g *Gateway) Validate(ctx context.Context, id int64) (*models.ValidationResult, error) {
	var out models.ValidationResult
	if err := g.doJSON(ctx, http.MethodPost, escapeSegments("datasets", idSegment(id), "validate"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Versions returns the version lineage containing the dataset.
func (g *Gateway) Versions(ctx context.Context, id int64) (*models.VersionList, error) {
	var out models.VersionList
	if err := g.doJSON(ctx, http.MethodGet, escapeSegments("datasets", idSegment(id), "versions"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Compare computes drift between two datasets.
func (g *Gateway) Compare(ctx context.Context, a, b int64) (*models.Comparison, error) {
	var out models.Comparison
	path := escapeSegments("datasets", idSegment(a), "compare", idSegment(b))
	if err := g.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SecurityCheck asks the service to scan a CSV without storing it.
func (g *Gateway) SecurityCheck(ctx context.Context, filename string, r io.Reader) (*models.SecurityReport, error) {
	var out models.SecurityReport
	if err := g.doMultipart(ctx, "/datasets/security-check", filename, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
