package apitest

import (
	"fmt"
	"math"
	"sort"

	"github.com/Dimash999666/data-quality-platform/pkg/models"
)

// buildProfile computes a reduced profile: missing values, duplicates and
// basic numeric and categorical statistics. Anomaly detection is not simulated.
func buildProfile(d *dataset) models.ProfileReport {
	t := d.table
	total := len(t.rows)

	p := models.Profile{
		TotalRows:         total,
		TotalColumns:      len(t.header),
		Columns:           append([]string(nil), t.header...),
		MissingValues:     make(map[string]int),
		MissingPercentage: make(map[string]float64),
		Dtypes:            make(map[string]string),
		NumericStats:      make(map[string]models.NumericStats),
		CategoricalStats:  make(map[string]models.CategoricalStats),
		Outliers:          make(map[string]models.OutlierStats),
	}

	for i, col := range t.header {
		values := t.column(i)
		p.MissingValues[col] = missing(values)
		p.MissingPercentage[col] = percent(p.MissingValues[col], total)
		p.Dtypes[col] = dtype(values)

		if nums, ok := numeric(values); ok {
			lo, hi := nums[0], nums[0]
			for _, n := range nums {
				lo, hi = math.Min(lo, n), math.Max(hi, n)
			}
			m := round2(mean(nums))
			p.NumericStats[col] = models.NumericStats{Min: &lo, Max: &hi, Mean: &m}
			p.Outliers[col] = models.OutlierStats{}
			continue
		}

		counts := make(map[string]int)
		for _, v := range values {
			if v != "" {
				counts[v]++
			}
		}
		p.CategoricalStats[col] = models.CategoricalStats{UniqueCount: len(counts), TopValues: counts}
	}

	p.Duplicates = duplicateRows(t)
	p.DuplicatesPercentage = percent(p.Duplicates, total)

	anomalies := models.Anomalies{Message: "Anomaly detection not run"}

	return models.ProfileReport{
		DatasetID:    d.ID,
		QualityScore: qualityScore(p),
		Profile:      p,
		Anomalies:    anomalies,
		Issues:       detectIssues(p),
	}
}

func qualityScore(p models.Profile) float64 {
	score := 100.0

	if len(p.MissingPercentage) > 0 {
		sum := 0.0
		for _, pct := range p.MissingPercentage {
			sum += pct
		}
		score -= sum / float64(len(p.MissingPercentage)) * 2
	}
	score -= p.DuplicatesPercentage * 1.5

	return math.Round(math.Max(0, math.Min(100, score))*10) / 10
}

func detectIssues(p models.Profile) []models.Issue {
	issues := []models.Issue{}

	for _, col := range p.Columns {
		pct := p.MissingPercentage[col]
		if pct <= 0 {
			continue
		}
		severity := models.SeverityLow
		switch {
		case pct > 20:
			severity = models.SeverityHigh
		case pct > 5:
			severity = models.SeverityMedium
		}
		issues = append(issues, models.Issue{
			IssueType:    "missing_values",
			Severity:     severity,
			ColumnName:   col,
			Description:  fmt.Sprintf("Column '%s' has %v%% missing values (%d rows)", col, pct, p.MissingValues[col]),
			AffectedRows: p.MissingValues[col],
		})
	}

	if p.Duplicates > 0 {
		severity := models.SeverityMedium
		if p.DuplicatesPercentage > 10 {
			severity = models.SeverityHigh
		}
		issues = append(issues, models.Issue{
			IssueType:    "duplicates",
			Severity:     severity,
			Description:  fmt.Sprintf("Found %d duplicate rows (%v%%)", p.Duplicates, p.DuplicatesPercentage),
			AffectedRows: p.Duplicates,
		})
	}

	return issues
}

func compareTables(old, cur *table) models.ComparisonDetail {
	out := models.ComparisonDetail{
		QualityDrift: make(map[string]models.ColumnDrift),
		Summary:      []string{},
	}

	diff := len(cur.rows) - len(old.rows)
	out.RowChanges = models.RowChanges{Old: len(old.rows), New: len(cur.rows), Diff: diff}
	if len(old.rows) > 0 {
		out.RowChanges.DiffPct = round2(float64(diff) / float64(len(old.rows)) * 100)
	}
	switch {
	case diff > 0:
		out.Summary = append(out.Summary, fmt.Sprintf("Added %d rows", diff))
	case diff < 0:
		out.Summary = append(out.Summary, fmt.Sprintf("Removed %d rows", -diff))
	default:
		out.Summary = append(out.Summary, "Row count unchanged")
	}

	out.ColumnChanges = models.ColumnChanges{Added: []string{}, Removed: []string{}, Common: []string{}}
	for _, col := range cur.header {
		if old.columnIndex(col) < 0 {
			out.ColumnChanges.Added = append(out.ColumnChanges.Added, col)
		}
	}
	for _, col := range old.header {
		if cur.columnIndex(col) < 0 {
			out.ColumnChanges.Removed = append(out.ColumnChanges.Removed, col)
		} else {
			out.ColumnChanges.Common = append(out.ColumnChanges.Common, col)
		}
	}
	sort.Strings(out.ColumnChanges.Common)

	for _, col := range out.ColumnChanges.Common {
		oldVals := old.column(old.columnIndex(col))
		newVals := cur.column(cur.columnIndex(col))

		drift := models.ColumnDrift{
			MissingOld: percent(missing(oldVals), len(oldVals)),
			MissingNew: percent(missing(newVals), len(newVals)),
		}
		drift.MissingDiff = round2(drift.MissingNew - drift.MissingOld)
		switch {
		case drift.MissingDiff < -2:
			drift.MissingStatus = models.TrendImproved
		case drift.MissingDiff > 2:
			drift.MissingStatus = models.TrendDegraded
		default:
			drift.MissingStatus = models.TrendStable
		}

		changed := drift.MissingDiff != 0
		oldNums, oldOK := numeric(oldVals)
		newNums, newOK := numeric(newVals)
		if oldOK && newOK {
			oldMean, newMean := round2(mean(oldNums)), round2(mean(newNums))
			if oldMean != 0 {
				change := round2((newMean - oldMean) / math.Abs(oldMean) * 100)
				drift.MeanOld, drift.MeanNew, drift.MeanChangePct = &oldMean, &newMean, &change
				switch {
				case math.Abs(change) > 20:
					drift.MeanStatus = "significant_change"
				case math.Abs(change) > 5:
					drift.MeanStatus = "moderate_change"
				default:
					drift.MeanStatus = "stable"
				}
				changed = changed || change != 0
			}
		}

		if changed {
			out.QualityDrift[col] = drift
		}
	}

	if len(out.QualityDrift) == 0 {
		out.Summary = append(out.Summary, "No significant quality drift detected")
	}
	return out
}

func driftScore(c models.ComparisonDetail) models.DriftScore {
	issues, improvements := 0, 0
	for _, drift := range c.QualityDrift {
		switch drift.MissingStatus {
		case models.TrendDegraded:
			issues++
		case models.TrendImproved:
			improvements++
		}
		if drift.MeanStatus == "significant_change" {
			issues++
		}
	}
	issues += len(c.ColumnChanges.Removed)
	if math.Abs(c.RowChanges.DiffPct) > 30 {
		issues++
	}

	score := models.DriftScore{IssuesCount: issues, ImprovementsCount: improvements}
	switch {
	case issues >= 3:
		score.Overall, score.Label = models.DriftCritical, "Significant degradation"
	case issues >= 1:
		score.Overall, score.Label = models.DriftWarning, "Minor changes detected"
	default:
		score.Overall, score.Label = "good", "Data quality stable"
	}
	return score
}
