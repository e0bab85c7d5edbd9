// Package workspace holds the client-side state of a dataset-quality session:
// the dataset list and selection, per-panel fetch state, the comparison pair
// and the upload flow.
package workspace

import (
	"context"
	"io"

	"github.com/Dimash999666/data-quality-platform/pkg/models"
)

// Service is the subset of the gateway the workspace drives.
// *api.Gateway implements it.
type Service interface {
	ListDatasets(ctx context.Context) ([]models.Dataset, error)
	DeleteDataset(ctx context.Context, id int64) (*models.DeleteResponse, error)
	UploadDataset(ctx context.Context, filename string, r io.Reader) (*models.Dataset, error)
	UploadVersion(ctx context.Context, datasetID int64, filename string, r io.Reader) (*models.NewVersionResponse, error)

	RunProfile(ctx context.Context, id int64) (*models.ProfileReport, error)
	LatestProfile(ctx context.Context, id int64) (*models.ProfileReport, error)
	Issues(ctx context.Context, id int64) (*models.IssueList, error)

	AnalyzeDataset(ctx context.Context, id int64) (*models.AIAnalysisResponse, error)
	SuggestRules(ctx context.Context, id int64, column string) (*models.RuleSuggestions, error)

	ListRules(ctx context.Context, id int64) ([]models.Rule, error)
	CreateRule(ctx context.Context, id int64, rule models.RuleCreate) (*models.Rule, error)
	DeleteRule(ctx context.Context, datasetID, ruleID int64) error
	Validate(ctx context.Context, id int64) (*models.ValidationResult, error)

	Versions(ctx context.Context, id int64) (*models.VersionList, error)
	Compare(ctx context.Context, a, b int64) (*models.Comparison, error)
}
