package models

// Validation outcomes.
const (
	StatusPassed  = "PASSED"
	StatusFailed  = "FAILED"
	StatusSkipped = "SKIPPED"
	StatusError   = "ERROR"
)

// noRulesStatus is the status the service reports when a dataset has no rules.
const noRulesStatus = "no_rules"

// ViolationDetail is one sampled row that failed a rule.
type ViolationDetail struct {
	RowIndex    int               `json:"row_index"`
	ColumnValue string            `json:"column_value"`
	RowData     map[string]string `json:"row_data"`
}

// RuleResult is the outcome of evaluating one rule.
type RuleResult struct {
	RuleID           int64             `json:"rule_id"`
	Column           string            `json:"column"`
	RuleType         string            `json:"rule_type"`
	Parameters       map[string]any    `json:"parameters"`
	Status           string            `json:"status"`
	Message          string            `json:"message"`
	Violations       int               `json:"violations"`
	ViolationDetails []ViolationDetail `json:"violation_details"`
}

// SampleSize is the number of violating rows the service chose to return.
func (r *RuleResult) SampleSize() int {
	return len(r.ViolationDetails)
}

// IsTruncated reports whether the sample is smaller than the true total.
func (r *RuleResult) IsTruncated() bool {
	return r.SampleSize() < r.Violations
}

// ValidationResult is produced by running all rules of a dataset.
type ValidationResult struct {
	OverallStatus string       `json:"overall_status"`
	TotalRules    int          `json:"total_rules"`
	Passed        int          `json:"passed"`
	Failed        int          `json:"failed"`
	Results       []RuleResult `json:"results"`

	// Set when the service answered {"status":"no_rules"}.
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// NoRules reports whether the service found no rules to run.
func (v *ValidationResult) NoRules() bool {
	return v != nil && v.Status == noRulesStatus
}

// ResultFor returns the result for the given rule id.
func (v *ValidationResult) ResultFor(ruleID int64) (*RuleResult, bool) {
	if v == nil {
		return nil, false
	}
	for i := range v.Results {
		if v.Results[i].RuleID == ruleID {
			return &v.Results[i], true
		}
	}
	return nil, false
}
