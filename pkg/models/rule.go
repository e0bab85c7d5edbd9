package models

// Rule types understood by the validator.
const (
	RuleTypeRange   = "range"
	RuleTypeNotNull = "not_null"
	RuleTypeUnique  = "unique"
	RuleTypeRegex   = "regex"
)

// RuleTypes lists the supported rule types in display order.
var RuleTypes = []string{RuleTypeNotNull, RuleTypeUnique, RuleTypeRange, RuleTypeRegex}

// IsValidRuleType reports whether t is a supported rule type.
func IsValidRuleType(t string) bool {
	for _, known := range RuleTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Rule is a user-defined validation constraint on one column.
type Rule struct {
	ID         int64          `json:"id"`
	DatasetID  int64          `json:"dataset_id,omitempty"`
	ColumnName string         `json:"column_name"`
	RuleType   string         `json:"rule_type"`
	Parameters map[string]any `json:"parameters"`
}

// RuleCreate is the body of POST /datasets/{id}/rules.
type RuleCreate struct {
	ColumnName string         `json:"column_name"`
	RuleType   string         `json:"rule_type"`
	Parameters map[string]any `json:"parameters"`
}

// RuleList is returned by GET /datasets/{id}/rules.
type RuleList struct {
	DatasetID int64  `json:"dataset_id"`
	Rules     []Rule `json:"rules"`
}
