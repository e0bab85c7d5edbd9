package models

import (
	"encoding/json"

	"github.com/Dimash999666/data-quality-platform/pkg/jsonutil"
)

// SuggestedRule is a validation rule proposed by the AI engine.
type SuggestedRule struct {
	Column jsonutil.FlexibleString `json:"column"`
	Rule   jsonutil.FlexibleString `json:"rule"`
	Reason jsonutil.FlexibleString `json:"reason"`
}

// AIAnalysis is the AI engine's assessment of a profiled dataset.
// Fields are tolerant because the engine output is model-generated JSON.
type AIAnalysis struct {
	Summary          jsonutil.FlexibleString  `json:"summary"`
	MLReadiness      jsonutil.FlexibleString  `json:"ml_readiness"`
	MLRisks          jsonutil.FlexibleStrings `json:"ml_risks"`
	CriticalProblems jsonutil.FlexibleStrings `json:"critical_problems"`
	Recommendations  jsonutil.FlexibleStrings `json:"recommendations"`
	SuggestedRules   []SuggestedRule          `json:"suggested_rules"`
}

// AIAnalysisResponse is returned by POST /datasets/{id}/ai-analyze.
type AIAnalysisResponse struct {
	DatasetID    int64      `json:"dataset_id"`
	QualityScore float64    `json:"quality_score"`
	Analysis     AIAnalysis `json:"ai_analysis"`
}

// ColumnRuleSuggestion is a single rule proposed for one column. Extra
// keys such as min/max/pattern are kept in Parameters.
type ColumnRuleSuggestion struct {
	Type       string         `json:"type"`
	Reason     string         `json:"reason"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// RuleSuggestions is returned by POST /datasets/{id}/ai-suggest-rules/{column}.
type RuleSuggestions struct {
	DatasetID   int64                  `json:"dataset_id"`
	Column      string                 `json:"column"`
	Rules       []ColumnRuleSuggestion `json:"rules"`
	Explanation string                 `json:"explanation"`
}

// UnmarshalJSON keeps every key other than type and reason as a parameter.
func (s *ColumnRuleSuggestion) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = ColumnRuleSuggestion{
		Type:   jsonutil.FlexibleStringValue(raw["type"]),
		Reason: jsonutil.FlexibleStringValue(raw["reason"]),
	}
	for key, value := range raw {
		if key == "type" || key == "reason" {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		if s.Parameters == nil {
			s.Parameters = make(map[string]any)
		}
		s.Parameters[key] = v
	}
	return nil
}

// UnmarshalJSON flattens the service's nested suggested_rules object.
func (r *RuleSuggestions) UnmarshalJSON(data []byte) error {
	var raw struct {
		DatasetID      int64  `json:"dataset_id"`
		Column         string `json:"column"`
		SuggestedRules struct {
			Rules       []ColumnRuleSuggestion  `json:"rules"`
			Explanation jsonutil.FlexibleString `json:"explanation"`
		} `json:"suggested_rules"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = RuleSuggestions{
		DatasetID:   raw.DatasetID,
		Column:      raw.Column,
		Rules:       raw.SuggestedRules.Rules,
		Explanation: raw.SuggestedRules.Explanation.String(),
	}
	return nil
}
