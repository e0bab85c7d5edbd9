package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/Dimash999666/data-quality-platform/pkg/models"
	"github.com/Dimash999666/data-quality-platform/pkg/workspace"
)

// Datasets prints the dataset list. The selected dataset is marked with "*".
func (r *Renderer) Datasets(list []models.Dataset, selectedID int64) error {
	if len(list) == 0 {
		r.println("No datasets. Upload a CSV to get started.")
		return r.err
	}

	r.table(func(w io.Writer) {
		fmt.Fprintln(w, " \tID\tNAME\tVERSION\tROWS\tCOLUMNS\tUPLOADED")
		for _, ds := range list {
			marker := " "
			if ds.ID == selectedID {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\tv%d\t%s\t%s\t%s\n",
				marker, ds.ID, ds.Name, ds.Version, r.num(ds.TotalRows), r.num(ds.TotalColumns), orDash(ds.UploadDate))
		}
	})
	return r.err
}

// Dataset prints one dataset.
func (r *Renderer) Dataset(ds *models.Dataset) error {
	r.printf("%s (id %d, v%d)\n", r.bold(ds.Name), ds.ID, ds.Version)
	r.printf("  %s, %s\n", r.count(ds.TotalRows, "row"), r.count(ds.TotalColumns, "column"))
	if ds.UploadDate != "" {
		r.printf("  uploaded %s\n", ds.UploadDate)
	}
	return r.err
}

// Profile prints a quality profile and its issues.
func (r *Renderer) Profile(report *models.ProfileReport) error {
	p := &report.Profile

	r.printf("%s %.1f/100\n", r.bold("Quality score:"), report.QualityScore)
	if report.CreatedAt != "" {
		r.printf("Profiled at %s\n", report.CreatedAt)
	}
	r.printf("%s, %s, %s (%s)\n",
		r.count(p.TotalRows, "row"), r.count(p.TotalColumns, "column"),
		r.count(p.Duplicates, "duplicate"), r.pct(p.DuplicatesPercentage))

	if columns := p.ColumnNames(); len(columns) > 0 {
		r.println()
		r.table(func(w io.Writer) {
			fmt.Fprintln(w, "COLUMN\tTYPE\tMISSING\tMIN\tMAX\tMEAN\tOUTLIERS")
			for _, col := range columns {
				minV, maxV, mean := "-", "-", "-"
				if stats, ok := p.NumericStats[col]; ok {
					minV, maxV, mean = r.float(stats.Min), r.float(stats.Max), r.float(stats.Mean)
				}
				outliers := "-"
				if o, ok := p.Outliers[col]; ok {
					outliers = r.num(o.Count)
				}
				fmt.Fprintf(w, "%s\t%s\t%s (%s)\t%s\t%s\t%s\t%s\n",
					col, orDash(p.Dtypes[col]), r.num(p.MissingValues[col]), r.pct(p.MissingPercentage[col]),
					minV, maxV, mean, outliers)
			}
		})
	}

	if a := report.Anomalies; a.AnomalyCount > 0 || a.Message != "" {
		r.println()
		if a.Message != "" {
			r.printf("Anomalies: %s\n", a.Message)
		} else {
			r.printf("Anomalies: %s (%s)\n", r.count(a.AnomalyCount, "row"), r.pct(a.AnomalyPercentage))
		}
	}

	r.println()
	return r.issueList(report.Issues)
}

// Issues prints a stored issue list.
func (r *Renderer) Issues(list *models.IssueList) error {
	return r.issueList(list.Issues)
}

func (r *Renderer) issueList(issues []models.Issue) error {
	if len(issues) == 0 {
		r.println(r.level("ok") + " No issues detected.")
		return r.err
	}

	r.printf("%s\n", r.bold(r.count(len(issues), "issue")))
	for _, issue := range issues {
		where := ""
		if issue.ColumnName != "" {
			where = " [" + issue.ColumnName + "]"
		}
		affected := ""
		if issue.AffectedRows > 0 {
			affected = " (" + r.count(issue.AffectedRows, "row") + ")"
		}
		r.printf("  %-6s %s%s: %s%s\n",
			r.level(strings.ToUpper(issue.Severity)), issue.IssueType, where, issue.Description, affected)
	}
	return r.err
}

func (r *Renderer) float(f *float64) string {
	if f == nil {
		return "-"
	}
	return r.printer.Sprintf("%.2f", *f)
}

// Analysis prints an AI analysis.
func (r *Renderer) Analysis(a *models.AIAnalysis) error {
	if s := a.Summary.String(); s != "" {
		r.printf("%s %s\n", r.bold("Summary:"), s)
	}
	if s := a.MLReadiness.String(); s != "" {
		r.printf("%s %s\n", r.bold("ML readiness:"), s)
	}
	r.bullets("Critical problems", ansiRed, a.CriticalProblems)
	r.bullets("ML risks", ansiYellow, a.MLRisks)
	r.bullets("Recommendations", "", a.Recommendations)

	if len(a.SuggestedRules) > 0 {
		r.printf("%s\n", r.bold("Suggested rules:"))
		for _, rule := range a.SuggestedRules {
			r.printf("  - %s on %s: %s\n", rule.Rule, rule.Column, rule.Reason)
		}
	}
	return r.err
}

func (r *Renderer) bullets(title, code string, items []string) {
	if len(items) == 0 {
		return
	}
	r.printf("%s\n", r.paint(code, title+":"))
	for _, item := range items {
		r.printf("  - %s\n", item)
	}
}

// Suggestions prints rule suggestions for one column.
func (r *Renderer) Suggestions(s *models.RuleSuggestions) error {
	r.printf("Suggested rules for %s:\n", r.bold(s.Column))
	if len(s.Rules) == 0 {
		r.println("  none")
	}
	for _, rule := range s.Rules {
		r.printf("  - %s %s: %s\n", rule.Type, r.dim(formatParams(rule.Parameters)), rule.Reason)
	}
	if s.Explanation != "" {
		r.printf("%s\n", s.Explanation)
	}
	return r.err
}

// Rules prints the rules of a dataset.
func (r *Renderer) Rules(rules []models.Rule) error {
	if len(rules) == 0 {
		r.println("No rules defined.")
		return r.err
	}

	r.table(func(w io.Writer) {
		fmt.Fprintln(w, "ID\tCOLUMN\tTYPE\tPARAMETERS")
		for _, rule := range rules {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", rule.ID, rule.ColumnName, rule.RuleType, formatParams(rule.Parameters))
		}
	})
	return r.err
}

// ValidationSummary returns "3 passed, 1 failed".
func ValidationSummary(result *models.ValidationResult) string {
	return fmt.Sprintf("%d passed, %d failed", result.Passed, result.Failed)
}

// ViolationSummary returns "12 total, showing first 3" when the service sent
// a truncated sample and "3 total" otherwise.
func ViolationSummary(result *models.RuleResult) string {
	if result.IsTruncated() {
		return fmt.Sprintf("%d total, showing first %d", result.Violations, result.SampleSize())
	}
	return fmt.Sprintf("%d total", result.Violations)
}

// Validation prints the outcome of a validation run. Violation samples are
// printed as received; nothing beyond the sample is shown.
func (r *Renderer) Validation(result *models.ValidationResult) error {
	if result.NoRules() {
		r.println(orDash(result.Message))
		return r.err
	}

	r.printf("%s  overall: %s\n", ValidationSummary(result), r.level(result.OverallStatus))

	for i := range result.Results {
		rr := &result.Results[i]
		r.println()
		r.printf("%-7s #%d %s on %s", r.level(rr.Status), rr.RuleID, rr.RuleType, rr.Column)
		if params := formatParams(rr.Parameters); params != "-" {
			r.printf(" (%s)", params)
		}
		r.println()
		if rr.Message != "" {
			r.printf("  %s\n", rr.Message)
		}
		if rr.Violations == 0 {
			continue
		}

		r.printf("  Violations: %s\n", ViolationSummary(rr))
		r.table(func(w io.Writer) {
			for _, v := range rr.ViolationDetails {
				fmt.Fprintf(w, "    row %d\t%q\n", v.RowIndex, v.ColumnValue)
			}
		})
	}
	return r.err
}

// Versions prints a lineage. The comparison pair is shown as checkboxes:
// "[x]" picked, "[ ]" available, "[-]" unavailable while two are picked.
func (r *Renderer) Versions(list *models.VersionList, pair workspace.SelectionPair) error {
	if len(list.Versions) == 0 {
		r.println("No versions.")
		return r.err
	}

	r.table(func(w io.Writer) {
		fmt.Fprintln(w, " \tVERSION\tID\tNAME\tROWS\tCOLUMNS\tUPLOADED")
		for _, v := range list.Versions {
			box := "[ ]"
			switch {
			case pair.IsSelected(v.ID):
				box = "[x]"
			case !pair.CanSelect(v.ID):
				box = "[-]"
			}
			name := v.Name
			if v.ID == list.RootID {
				name += " (root)"
			}
			fmt.Fprintf(w, "%s\tv%d\t%d\t%s\t%s\t%s\t%s\n",
				box, v.Version, v.ID, name, r.num(v.TotalRows), r.num(v.TotalColumns), orDash(v.UploadDate))
		}
	})

	if pair.CanCompare() {
		r.println("Two versions picked; run compare.")
	}
	return r.err
}

// Comparison prints the drift between two versions.
func (r *Renderer) Comparison(c *models.Comparison) error {
	detail := &c.Comparison

	r.printf("%s v%d → %s v%d\n", c.DatasetA.Name, c.DatasetA.Version, c.DatasetB.Name, c.DatasetB.Version)
	level := c.DriftScore.Level()
	r.printf("%s %s", r.bold("Drift:"), r.level(level))
	if c.DriftScore.Label != "" {
		r.printf(" (%s)", c.DriftScore.Label)
	}
	r.printf(", %s, %s\n", r.count(c.DriftScore.IssuesCount, "issue"), r.count(c.DriftScore.ImprovementsCount, "improvement"))

	rc := detail.RowChanges
	r.printf("Rows: %s → %s (%+d, %s)\n", r.num(rc.Old), r.num(rc.New), rc.Diff, r.pct(rc.DiffPct))
	if len(detail.ColumnChanges.Added) > 0 {
		r.printf("Columns added: %s\n", strings.Join(detail.ColumnChanges.Added, ", "))
	}
	if len(detail.ColumnChanges.Removed) > 0 {
		r.printf("Columns removed: %s\n", strings.Join(detail.ColumnChanges.Removed, ", "))
	}

	if columns := detail.DriftColumns(); len(columns) > 0 {
		r.println()
		r.table(func(w io.Writer) {
			fmt.Fprintln(w, "COLUMN\tMISSING\tTREND\tMEAN CHANGE")
			for _, col := range columns {
				d := detail.QualityDrift[col]
				mean := "-"
				if d.MeanChangePct != nil {
					mean = r.printer.Sprintf("%+.1f%%", *d.MeanChangePct)
				}
				fmt.Fprintf(w, "%s\t%s → %s\t%s\t%s\n",
					col, r.pct(d.MissingOld), r.pct(d.MissingNew), r.level(orDash(d.MissingStatus)), mean)
			}
		})
	}

	if len(detail.Summary) > 0 {
		r.println()
		for _, line := range detail.Summary {
			r.printf("  - %s\n", line)
		}
	}
	return r.err
}

// SecurityReport prints the verdict of a file check.
func (r *Renderer) SecurityReport(rep *models.SecurityReport) error {
	r.printf("%s (%.3f MB, sha256 %s)\n", rep.Filename, rep.SizeMB, orDash(rep.FileHash))
	r.printf("  extension: %s\n", r.verdict(rep.ExtensionOK))
	r.printf("  size:      %s\n", r.verdict(rep.SizeOK))

	structure := r.verdict(rep.Structure.Valid)
	if rep.Structure.Valid {
		structure += fmt.Sprintf(" (%s, %s)", r.count(rep.Structure.Rows, "row"), r.count(rep.Structure.Columns, "column"))
	} else if rep.Structure.Reason != "" {
		structure += " (" + rep.Structure.Reason + ")"
	}
	r.printf("  structure: %s\n", structure)

	r.printf("  content:   %s %s\n", r.verdict(rep.SecurityScan.Safe), rep.SecurityScan.Message)
	for _, cell := range rep.SecurityScan.Issues {
		r.printf("    row %d, column %d: %q\n", cell.Line, cell.Cell, cell.Value)
	}
	return r.err
}

func (r *Renderer) verdict(ok bool) string {
	if ok {
		return r.paint(ansiGreen, "ok")
	}
	return r.paint(ansiRed, "failed")
}

// UploadState prints the state of an upload controller.
func (r *Renderer) UploadState(state workspace.UploadState, ds *models.Dataset) error {
	switch {
	case state == workspace.UploadDone && ds != nil:
		r.printf("Uploaded %s as dataset %d (v%d, %s)\n", ds.Name, ds.ID, ds.Version, r.count(ds.TotalRows, "row"))
	default:
		r.printf("Upload %s\n", state)
	}
	return r.err
}
