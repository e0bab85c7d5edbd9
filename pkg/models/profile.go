package models

import (
	"encoding/json"
	"sort"
)

// Issue severities reported by the profiler.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// NumericStats holds summary statistics for a numeric column.
// Values are nil when the column has no non-missing values.
type NumericStats struct {
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Std    *float64 `json:"std"`
}

// CategoricalStats holds value counts for a text column.
type CategoricalStats struct {
	UniqueCount int            `json:"unique_count"`
	TopValues   map[string]int `json:"top_values"`
}

// OutlierStats holds z-score outlier counts for a numeric column.
type OutlierStats struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Profile is the statistical summary computed by the service.
type Profile struct {
	TotalRows            int                         `json:"total_rows"`
	TotalColumns         int                         `json:"total_columns"`
	Columns              []string                    `json:"columns"`
	MissingValues        map[string]int              `json:"missing_values"`
	MissingPercentage    map[string]float64          `json:"missing_percentage"`
	Duplicates           int                         `json:"duplicates"`
	DuplicatesPercentage float64                     `json:"duplicates_percentage"`
	Dtypes               map[string]string           `json:"dtypes"`
	NumericStats         map[string]NumericStats     `json:"numeric_stats"`
	CategoricalStats     map[string]CategoricalStats `json:"categorical_stats"`
	Outliers             map[string]OutlierStats     `json:"outliers"`
}

// ColumnNames returns columns in dataset order, falling back to the sorted
// dtype keys when the service omitted the ordered list.
func (p *Profile) ColumnNames() []string {
	if p == nil {
		return nil
	}
	if len(p.Columns) > 0 {
		return p.Columns
	}
	names := make([]string, 0, len(p.Dtypes))
	for name := range p.Dtypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Anomalies is the ML anomaly-detection block of a profile.
type Anomalies struct {
	AnomalyCount      int     `json:"anomaly_count"`
	AnomalyPercentage float64 `json:"anomaly_percentage"`
	AnomalyIndices    []int   `json:"anomaly_indices"`
	Message           string  `json:"message"`
}

// Issue is one detected quality problem.
type Issue struct {
	ID           int64  `json:"id,omitempty"`
	IssueType    string `json:"issue_type"`
	Severity     string `json:"severity"`
	ColumnName   string `json:"column_name,omitempty"`
	Description  string `json:"description"`
	AffectedRows int    `json:"affected_rows"`
}

// UnmarshalJSON accepts both the profile shape (issue_type, column_name)
// and the issues-endpoint shape (type, column).
func (i *Issue) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           int64   `json:"id"`
		IssueType    string  `json:"issue_type"`
		Type         string  `json:"type"`
		Severity     string  `json:"severity"`
		ColumnName   *string `json:"column_name"`
		Column       *string `json:"column"`
		Description  string  `json:"description"`
		AffectedRows *int    `json:"affected_rows"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*i = Issue{
		ID:          raw.ID,
		IssueType:   raw.IssueType,
		Severity:    raw.Severity,
		Description: raw.Description,
	}
	if i.IssueType == "" {
		i.IssueType = raw.Type
	}
	if raw.ColumnName != nil {
		i.ColumnName = *raw.ColumnName
	} else if raw.Column != nil {
		i.ColumnName = *raw.Column
	}
	if raw.AffectedRows != nil {
		i.AffectedRows = *raw.AffectedRows
	}
	return nil
}

// ProfileReport is the profile of one dataset together with its derived
// quality score and issues.
type ProfileReport struct {
	DatasetID    int64     `json:"dataset_id"`
	QualityScore float64   `json:"quality_score"`
	CreatedAt    string    `json:"created_at,omitempty"`
	Profile      Profile   `json:"profile"`
	Anomalies    Anomalies `json:"anomalies"`
	Issues       []Issue   `json:"issues"`
}

// UnmarshalJSON accepts both the freshly computed shape (profile/anomalies at
// the top level) and the stored shape (nested under metrics).
func (r *ProfileReport) UnmarshalJSON(data []byte) error {
	type plain ProfileReport
	var raw struct {
		plain
		Metrics *struct {
			Profile   Profile   `json:"profile"`
			Anomalies Anomalies `json:"anomalies"`
		} `json:"metrics"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = ProfileReport(raw.plain)
	if raw.Metrics != nil {
		r.Profile = raw.Metrics.Profile
		r.Anomalies = raw.Metrics.Anomalies
	}
	return nil
}

// IssueList is returned by GET /datasets/{id}/issues.
type IssueList struct {
	DatasetID   int64   `json:"dataset_id"`
	TotalIssues int     `json:"total_issues"`
	Issues      []Issue `json:"issues"`
}
