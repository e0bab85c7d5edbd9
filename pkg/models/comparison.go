package models

import "sort"

// Drift levels. The service reports "good" for a stable comparison; it is
// normalised to DriftOK.
const (
	DriftCritical = "critical"
	DriftWarning  = "warning"
	DriftOK       = "ok"
	driftGood     = "good"
)

// Missing-value trend per column.
const (
	TrendImproved = "improved"
	TrendDegraded = "degraded"
	TrendStable   = "stable"
)

// DriftScore is the overall assessment of a comparison.
type DriftScore struct {
	Overall           string `json:"overall"`
	Label             string `json:"label"`
	IssuesCount       int    `json:"issues_count"`
	ImprovementsCount int    `json:"improvements_count"`
}

// Level returns Overall normalised to one of the Drift constants.
func (d DriftScore) Level() string {
	if d.Overall == driftGood {
		return DriftOK
	}
	return d.Overall
}

// RowChanges describes how the row count moved between versions.
type RowChanges struct {
	Old     int     `json:"old"`
	New     int     `json:"new"`
	Diff    int     `json:"diff"`
	DiffPct float64 `json:"diff_pct"`
}

// ColumnChanges lists columns added or removed between versions.
type ColumnChanges struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Common  []string `json:"common,omitempty"`
}

// ColumnDrift is the per-column quality drift.
type ColumnDrift struct {
	MissingOld     float64  `json:"missing_old"`
	MissingNew     float64  `json:"missing_new"`
	MissingDiff    float64  `json:"missing_diff"`
	MissingStatus  string   `json:"missing_status"`
	DuplicatesDiff float64  `json:"duplicates_diff"`
	MeanOld        *float64 `json:"mean_old,omitempty"`
	MeanNew        *float64 `json:"mean_new,omitempty"`
	MeanChangePct  *float64 `json:"mean_change_pct,omitempty"`
	MeanStatus     string   `json:"mean_status,omitempty"`
}

// ComparisonDetail is the body of a comparison.
type ComparisonDetail struct {
	RowChanges    RowChanges             `json:"row_changes"`
	ColumnChanges ColumnChanges          `json:"column_changes"`
	QualityDrift  map[string]ColumnDrift `json:"quality_drift"`
	Summary       []string               `json:"summary"`
}

// DriftColumns returns the drifted column names in sorted order.
func (c *ComparisonDetail) DriftColumns() []string {
	names := make([]string, 0, len(c.QualityDrift))
	for name := range c.QualityDrift {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DatasetRef identifies one side of a comparison.
type DatasetRef struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Version int    `json:"version"`
}

// Comparison is produced for an ordered pair of versions.
type Comparison struct {
	DatasetA   DatasetRef       `json:"dataset_a"`
	DatasetB   DatasetRef       `json:"dataset_b"`
	DriftScore DriftScore       `json:"drift_score"`
	Comparison ComparisonDetail `json:"comparison"`
}
