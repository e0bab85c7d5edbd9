package workspace

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/Dimash999666/data-quality-platform/pkg/api"
	"github.com/Dimash999666/data-quality-platform/pkg/apperrors"
	"github.com/Dimash999666/data-quality-platform/pkg/jsonutil"
	"github.com/Dimash999666/data-quality-platform/pkg/models"
)

// fetch binds one request to the selected dataset. The request is tagged with
// the dataset key (plus suffix); if the selection moves on before or while it
// runs, its outcome is dropped and ErrSuperseded is returned.
func fetch[T any](
	ctx context.Context,
	store *EntityStore,
	vs *ViewState[T],
	suffix string,
	fn func(ctx context.Context, ds models.Dataset) (T, error),
) (T, error) {
	var zero T

	var ticket Ticket
	ds, ok := store.beginForSelected(func(ds models.Dataset) {
		ticket = vs.Begin(ds.Key()+suffix, false)
	})
	if !ok {
		return zero, apperrors.ErrNoSelection
	}

	value, err := fn(ctx, ds)
	if err != nil && ctx.Err() != nil {
		// A cancelled caller leaves the view idle rather than failed.
		vs.Abandon(ticket)
		return zero, err
	}
	if err != nil {
		if failErr := vs.Fail(ticket, err); failErr != nil {
			return zero, failErr
		}
		return zero, err
	}

	if err := vs.Resolve(ticket, value); err != nil {
		return zero, err
	}
	return value, nil
}

func selectedKey(store *EntityStore) string {
	return store.Selected().Key()
}

// ProfilePanel shows the quality profile and issues of the selected dataset.
type ProfilePanel struct {
	svc    Service
	store  *EntityStore
	logger *zap.Logger

	Profile ViewState[*models.ProfileReport]
	Issues  ViewState[*models.IssueList]
}

// Run computes a fresh profile. Its issues also populate Issues.
func (p *ProfilePanel) Run(ctx context.Context) (*models.ProfileReport, error) {
	var issuedFor models.Dataset
	report, err := fetch(ctx, p.store, &p.Profile, "", func(ctx context.Context, ds models.Dataset) (*models.ProfileReport, error) {
		issuedFor = ds
		return p.svc.RunProfile(ctx, ds.ID)
	})
	if err != nil {
		return nil, err
	}

	issues := &models.IssueList{
		DatasetID:   report.DatasetID,
		TotalIssues: len(report.Issues),
		Issues:      report.Issues,
	}
	var resolveErr error
	published := p.store.whileSelected(issuedFor.ID, func() {
		ticket := p.Issues.Begin(issuedFor.Key(), false)
		resolveErr = p.Issues.Resolve(ticket, issues)
	})
	if !published || resolveErr != nil {
		// The report itself is still the caller's; only the issue view moved on.
		p.logger.Debug("Dropped superseded issues",
			zap.Int64("dataset_id", issuedFor.ID),
			zap.Bool("selection_changed", !published),
			zap.Error(resolveErr))
	}
	return report, nil
}

// LoadLatest fetches the most recently stored profile.
func (p *ProfilePanel) LoadLatest(ctx context.Context) (*models.ProfileReport, error) {
	return fetch(ctx, p.store, &p.Profile, "", func(ctx context.Context, ds models.Dataset) (*models.ProfileReport, error) {
		return p.svc.LatestProfile(ctx, ds.ID)
	})
}

// LoadIssues fetches the issue list of the latest profile.
func (p *ProfilePanel) LoadIssues(ctx context.Context) (*models.IssueList, error) {
	return fetch(ctx, p.store, &p.Issues, "", func(ctx context.Context, ds models.Dataset) (*models.IssueList, error) {
		return p.svc.Issues(ctx, ds.ID)
	})
}

func (p *ProfilePanel) invalidate() {
	p.Profile.Invalidate()
	p.Issues.Invalidate()
}

// AIPanel shows AI analysis and per-column rule suggestions. Nothing here is
// reused between requests: every call refetches.
type AIPanel struct {
	svc   Service
	store *EntityStore

	Analysis    ViewState[*models.AIAnalysis]
	Suggestions ViewState[*models.RuleSuggestions]
}

// Analyze requests a fresh AI analysis.
func (a *AIPanel) Analyze(ctx context.Context) (*models.AIAnalysis, error) {
	return fetch(ctx, a.store, &a.Analysis, "", func(ctx context.Context, ds models.Dataset) (*models.AIAnalysis, error) {
		resp, err := a.svc.AnalyzeDataset(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		return &resp.Analysis, nil
	})
}

// SuggestRules asks for rule suggestions for one column.
func (a *AIPanel) SuggestRules(ctx context.Context, column string) (*models.RuleSuggestions, error) {
	column = strings.TrimSpace(column)
	if column == "" {
		return nil, api.NewLocalError("column name is required", nil)
	}
	return fetch(ctx, a.store, &a.Suggestions, "/"+column, func(ctx context.Context, ds models.Dataset) (*models.RuleSuggestions, error) {
		return a.svc.SuggestRules(ctx, ds.ID, column)
	})
}

func (a *AIPanel) invalidate() {
	a.Analysis.Invalidate()
	a.Suggestions.Invalidate()
}

// RulesPanel manages validation rules and runs validation.
type RulesPanel struct {
	svc    Service
	store  *EntityStore
	logger *zap.Logger

	Rules      ViewState[[]models.Rule]
	Validation ViewState[*models.ValidationResult]
}

// Load fetches the rule list.
func (r *RulesPanel) Load(ctx context.Context) ([]models.Rule, error) {
	return fetch(ctx, r.store, &r.Rules, "", func(ctx context.Context, ds models.Dataset) ([]models.Rule, error) {
		rules, err := r.svc.ListRules(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		if rules == nil {
			rules = []models.Rule{}
		}
		return rules, nil
	})
}

// AddRule parses paramsJSON, checks it against ruleType and creates the rule.
// Any local problem is returned without contacting the service. The rule list
// is refetched afterwards.
func (r *RulesPanel) AddRule(ctx context.Context, column, ruleType, paramsJSON string) (*models.Rule, error) {
	ds := r.store.Selected()
	if ds == nil {
		return nil, apperrors.ErrNoSelection
	}

	create, err := buildRule(column, ruleType, paramsJSON)
	if err != nil {
		return nil, err
	}

	rule, err := r.svc.CreateRule(ctx, ds.ID, create)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Added rule",
		zap.Int64("dataset_id", ds.ID),
		zap.Int64("rule_id", rule.ID),
		zap.String("column", rule.ColumnName),
		zap.String("rule_type", rule.RuleType))

	r.reload(ctx)
	return rule, nil
}

// DeleteRule removes a rule and refetches the list.
func (r *RulesPanel) DeleteRule(ctx context.Context, ruleID int64) error {
	ds := r.store.Selected()
	if ds == nil {
		return apperrors.ErrNoSelection
	}

	if err := r.svc.DeleteRule(ctx, ds.ID, ruleID); err != nil {
		return err
	}
	r.reload(ctx)
	return nil
}

// CanValidate reports whether the loaded rule list for the selection is non-empty.
func (r *RulesPanel) CanValidate() bool {
	rules, ok := r.Rules.Value(selectedKey(r.store))
	return ok && len(rules) > 0
}

// RunValidation runs every rule. It returns ErrNoRules, without a request,
// when the dataset has no rules; the list is loaded first if needed.
func (r *RulesPanel) RunValidation(ctx context.Context) (*models.ValidationResult, error) {
	if r.store.Selected() == nil {
		return nil, apperrors.ErrNoSelection
	}
	if _, loaded := r.Rules.Value(selectedKey(r.store)); !loaded {
		if _, err := r.Load(ctx); err != nil {
			return nil, err
		}
	}
	if !r.CanValidate() {
		return nil, apperrors.ErrNoRules
	}

	return fetch(ctx, r.store, &r.Validation, "", func(ctx context.Context, ds models.Dataset) (*models.ValidationResult, error) {
		return r.svc.Validate(ctx, ds.ID)
	})
}

// reload refetches the rules after a mutation and drops the stale validation.
func (r *RulesPanel) reload(ctx context.Context) {
	r.Validation.Invalidate()
	if _, err := r.Load(ctx); err != nil {
		r.logger.Warn("Rule list refresh failed", zap.Error(err))
	}
}

func (r *RulesPanel) invalidate() {
	r.Rules.Invalidate()
	r.Validation.Invalidate()
}

// buildRule validates a rule locally.
func buildRule(column, ruleType, paramsJSON string) (models.RuleCreate, error) {
	column = strings.TrimSpace(column)
	if column == "" {
		return models.RuleCreate{}, api.NewLocalError("column name is required", nil)
	}
	ruleType = strings.TrimSpace(ruleType)
	if !models.IsValidRuleType(ruleType) {
		return models.RuleCreate{}, api.NewLocalError(
			fmt.Sprintf("unknown rule type %q (expected one of %s)", ruleType, strings.Join(models.RuleTypes, ", ")), nil)
	}

	params, err := jsonutil.ParseParameters(paramsJSON)
	if err != nil {
		msg := strings.TrimPrefix(err.Error(), apperrors.ErrLocalValidation.Error()+": ")
		return models.RuleCreate{}, api.NewLocalError(msg, nil)
	}
	if err := checkParameters(ruleType, params); err != nil {
		return models.RuleCreate{}, err
	}

	return models.RuleCreate{ColumnName: column, RuleType: ruleType, Parameters: params}, nil
}

// checkParameters rejects parameters the service could not run. Anything the
// service can evaluate is left to it, including patterns outside RE2 syntax
// and range rules without bounds.
func checkParameters(ruleType string, params map[string]any) error {
	switch ruleType {
	case models.RuleTypeRange:
		for _, key := range []string{"min", "max"} {
			raw, ok := params[key]
			if !ok || raw == nil {
				continue
			}
			if _, isString := raw.(string); isString {
				return api.NewLocalError(fmt.Sprintf("range %s must be a number, got %q", key, raw), nil)
			}
			if _, err := cast.ToFloat64E(raw); err != nil {
				return api.NewLocalError(fmt.Sprintf("range %s must be a number", key), nil)
			}
		}
	case models.RuleTypeRegex:
		pattern, err := cast.ToStringE(params["pattern"])
		if err != nil || pattern == "" {
			return api.NewLocalError(`regex rule needs a "pattern" string`, nil)
		}
	}
	return nil
}

// VersionsPanel lists the lineage of the selected dataset and compares two versions.
type VersionsPanel struct {
	svc      Service
	store    *EntityStore
	uploader *UploadController
	logger   *zap.Logger

	Versions   ViewState[*models.VersionList]
	Comparison ViewState[*models.Comparison]

	mu        sync.Mutex
	selection SelectionPair
}

// Load fetches the version list.
func (v *VersionsPanel) Load(ctx context.Context) (*models.VersionList, error) {
	return fetch(ctx, v.store, &v.Versions, "", func(ctx context.Context, ds models.Dataset) (*models.VersionList, error) {
		return v.svc.Versions(ctx, ds.ID)
	})
}

// Toggle picks or releases a version for comparison. Only versions in the
// loaded list can be picked; a third pick fails with ErrSelectionFull.
// Any change drops the previous comparison.
func (v *VersionsPanel) Toggle(id int64) error {
	ds := v.store.Selected()
	if ds == nil {
		return apperrors.ErrNoSelection
	}
	list, ok := v.Versions.Value(ds.Key())
	if !ok {
		return api.NewLocalError(fmt.Sprintf("versions of dataset %d are not loaded", ds.ID), nil)
	}
	if _, listed := list.Find(id); !listed {
		return fmt.Errorf("version %d is not in the lineage of dataset %d: %w", id, ds.ID, apperrors.ErrNotFound)
	}

	v.mu.Lock()
	changed := v.selection.Toggle(id)
	v.mu.Unlock()

	if !changed {
		return fmt.Errorf("cannot pick version %d: %w", id, apperrors.ErrSelectionFull)
	}
	v.Comparison.Invalidate()
	return nil
}

// Selection returns a copy of the comparison pair.
func (v *VersionsPanel) Selection() SelectionPair {
	v.mu.Lock()
	defer v.mu.Unlock()
	return SelectionPair{ids: v.selection.IDs()}
}

// Compare compares the two picked versions, older version first.
func (v *VersionsPanel) Compare(ctx context.Context) (*models.Comparison, error) {
	v.mu.Lock()
	a, b, ok := v.selection.Pair()
	v.mu.Unlock()
	if !ok {
		return nil, api.NewLocalError("select exactly two versions to compare", nil)
	}

	if list, loaded := v.Versions.Value(selectedKey(v.store)); loaded {
		a, b = orderByVersion(list, a, b)
	}

	suffix := fmt.Sprintf("/%d:%d", a, b)
	return fetch(ctx, v.store, &v.Comparison, suffix, func(ctx context.Context, _ models.Dataset) (*models.Comparison, error) {
		return v.svc.Compare(ctx, a, b)
	})
}

// UploadVersion uploads path as a new version of the selected dataset and
// reloads the version list.
func (v *VersionsPanel) UploadVersion(ctx context.Context, path string) (*models.NewVersionResponse, error) {
	ds := v.store.Selected()
	if ds == nil {
		return nil, apperrors.ErrNoSelection
	}

	resp, err := v.uploader.UploadVersion(ctx, ds.ID, path)
	if err != nil {
		return nil, err
	}

	if _, err := v.Load(ctx); err != nil {
		v.logger.Warn("Version list refresh failed after upload", zap.Error(err))
	}
	return resp, nil
}

func (v *VersionsPanel) invalidate() {
	v.Versions.Invalidate()
	v.Comparison.Invalidate()

	v.mu.Lock()
	v.selection.Reset()
	v.mu.Unlock()
}

// orderByVersion puts the lower version number first; unknown ids keep pick order.
func orderByVersion(list *models.VersionList, a, b int64) (int64, int64) {
	va, okA := list.Find(a)
	vb, okB := list.Find(b)
	if !okA || !okB {
		return a, b
	}
	pair := []*models.Dataset{va, vb}
	sort.SliceStable(pair, func(i, j int) bool { return pair[i].Version < pair[j].Version })
	return pair[0].ID, pair[1].ID
}
