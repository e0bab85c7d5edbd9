package apitest

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/Dimash999666/data-quality-platform/pkg/models"
	"github.com/Dimash999666/data-quality-platform/pkg/preflight"
)

// violationSampleLimit bounds the violating rows echoed per rule.
const violationSampleLimit = 50

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]models.Dataset, 0, len(s.datasets))
	for _, d := range s.datasets {
		out = append(out, d.Dataset)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	render.JSON(w, r, out)
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}
	render.JSON(w, r, d.Dataset)
}

// readUpload reads the "file" form field, writing the service's refusal when it fails preflight.
func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, r, http.StatusUnprocessableEntity, []map[string]any{{
			"loc":  []string{"body", "file"},
			"msg":  "field required",
			"type": "value_error.missing",
		}})
		return "", nil, false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, r, http.StatusBadRequest, "Could not read upload")
		return "", nil, false
	}

	if rej := preflight.Check(header.Filename, content, preflight.Options{ScanContent: true}); rej != nil {
		writeDetail(w, r, http.StatusBadRequest, map[string]any{
			"error":        rej.Error,
			"reason":       rej.Reason,
			"explanation":  rej.Explanation,
			"found_issues": rej.FoundIssues,
			"how_to_fix":   rej.HowToFix,
		})
		return "", nil, false
	}
	return header.Filename, content, true
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	filename, content, ok := readUpload(w, r)
	if !ok {
		return
	}

	tbl, err := parseTable(content)
	if err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	d := s.insertLocked(preflight.SanitizeFilename(filename), 1, 0, tbl)
	s.mu.Unlock()

	render.JSON(w, r, d.Dataset)
}

func (s *Server) newVersion(w http.ResponseWriter, r *http.Request) {
	original, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}

	filename, content, ok := readUpload(w, r)
	if !ok {
		return
	}

	tbl, err := parseTable(content)
	if err != nil {
		writeDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	root := original.rootID()
	version := s.maxVersionLocked(root) + 1
	name := fmt.Sprintf("%s_v%d.csv", strings.TrimSuffix(preflight.SanitizeFilename(filename), ".csv"), version)
	d := s.insertLocked(name, version, root, tbl)
	s.mu.Unlock()

	render.JSON(w, r, models.NewVersionResponse{
		Message:    fmt.Sprintf("Version %d created", version),
		RootID:     root,
		NewDataset: d.Dataset,
	})
}

func (s *Server) deleteDataset(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	var children []string
	for _, other := range s.datasets {
		if other.parentID == d.ID && other.ID != d.ID {
			children = append(children, other.Name)
		}
	}
	if len(children) > 0 {
		s.mu.Unlock()
		sort.Strings(children)
		writeDetail(w, r, http.StatusBadRequest, fmt.Sprintf(
			"Cannot delete: %d version(s) depend on this dataset (%s). Delete them first.",
			len(children), strings.Join(children, ", ")))
		return
	}

	delete(s.datasets, d.ID)
	delete(s.rules, d.ID)
	delete(s.profiles, d.ID)
	s.mu.Unlock()

	render.JSON(w, r, models.DeleteResponse{
		Message:   fmt.Sprintf("Dataset '%s' deleted successfully", d.Name),
		DeletedID: d.ID,
	})
}

func (s *Server) runProfile(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}

	report := buildProfile(d)

	s.mu.Lock()
	s.profiles[d.ID] = &storedProfile{report: report, createdAt: time.Now().UTC()}
	s.mu.Unlock()

	render.JSON(w, r, report)
}

func (s *Server) latestProfile(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	stored := s.profiles[d.ID]
	s.mu.Unlock()

	if stored == nil {
		writeDetail(w, r, http.StatusNotFound, "Profile not found. Run POST /profile first.")
		return
	}

	render.JSON(w, r, map[string]any{
		"dataset_id":    d.ID,
		"quality_score": stored.report.QualityScore,
		"created_at":    stored.createdAt.Format("2006-01-02T15:04:05.000000"),
		"metrics": map[string]any{
			"profile":   stored.report.Profile,
			"anomalies": stored.report.Anomalies,
		},
	})
}

func (s *Server) issues(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	stored := s.profiles[d.ID]
	s.mu.Unlock()

	items := []map[string]any{}
	if stored != nil {
		for i, issue := range stored.report.Issues {
			items = append(items, map[string]any{
				"id":            i + 1,
				"type":          issue.IssueType,
				"severity":      issue.Severity,
				"column":        issue.ColumnName,
				"description":   issue.Description,
				"affected_rows": issue.AffectedRows,
			})
		}
	}

	render.JSON(w, r, map[string]any{
		"dataset_id":   d.ID,
		"total_issues": len(items),
		"issues":       items,
	})
}

func (s *Server) aiAnalyze(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	stored := s.profiles[d.ID]
	s.mu.Unlock()

	if stored == nil {
		writeDetail(w, r, http.StatusNotFound, "Run POST /datasets/{id}/profile first!")
		return
	}

	readiness := "ready"
	var problems []string
	for _, issue := range stored.report.Issues {
		if issue.Severity == models.SeverityHigh {
			readiness = "not ready"
			problems = append(problems, issue.Description)
		}
	}

	render.JSON(w, r, map[string]any{
		"dataset_id":    d.ID,
		"quality_score": stored.report.QualityScore,
		"ai_analysis": map[string]any{
			"summary":           fmt.Sprintf("Dataset %s scored %.1f", d.Name, stored.report.QualityScore),
			"ml_readiness":      readiness,
			"ml_risks":          []string{},
			"critical_problems": problems,
			"recommendations":   []string{"Review columns with missing values"},
			"suggested_rules":   []map[string]string{},
		},
	})
}

func (s *Server) suggestRules(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}

	column := chi.URLParam(r, "column")
	idx := d.table.columnIndex(column)
	if idx < 0 {
		writeDetail(w, r, http.StatusNotFound, fmt.Sprintf("Column '%s' not found", column))
		return
	}

	values := d.table.column(idx)
	rules := []map[string]any{}
	if missing(values) > 0 {
		rules = append(rules, map[string]any{"type": models.RuleTypeNotNull, "reason": "Column has missing values"})
	}
	if nums, isNum := numeric(values); isNum {
		lo, hi := nums[0], nums[0]
		for _, n := range nums {
			lo, hi = min(lo, n), max(hi, n)
		}
		rules = append(rules, map[string]any{"type": models.RuleTypeRange, "min": lo, "max": hi, "reason": "Observed value range"})
	}

	render.JSON(w, r, map[string]any{
		"dataset_id": d.ID,
		"column":     column,
		"suggested_rules": map[string]any{
			"rules":       rules,
			"explanation": fmt.Sprintf("Rules derived from %d sampled values", len(values)),
		},
	})
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	rules := append([]models.Rule{}, s.rules[d.ID]...)
	s.mu.Unlock()

	render.JSON(w, r, models.RuleList{DatasetID: d.ID, Rules: rules})
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}

	var body models.RuleCreate
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		writeDetail(w, r, http.StatusUnprocessableEntity, []map[string]any{{
			"loc":  []string{"body"},
			"msg":  err.Error(),
			"type": "value_error.jsondecode",
		}})
		return
	}
	if body.ColumnName == "" {
		writeDetail(w, r, http.StatusUnprocessableEntity, []map[string]any{{
			"loc":  []string{"body", "column_name"},
			"msg":  "field required",
			"type": "value_error.missing",
		}})
		return
	}

	s.mu.Lock()
	rule := s.addRuleLocked(d.ID, body.ColumnName, body.RuleType, body.Parameters)
	s.mu.Unlock()

	render.JSON(w, r, rule)
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}
	ruleID, _ := strconv.ParseInt(chi.URLParam(r, "ruleID"), 10, 64)

	s.mu.Lock()
	rules := s.rules[d.ID]
	found := false
	for i, rule := range rules {
		if rule.ID == ruleID {
			s.rules[d.ID] = append(rules[:i:i], rules[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		writeDetail(w, r, http.StatusNotFound, "Rule not found")
		return
	}
	render.JSON(w, r, map[string]string{"message": fmt.Sprintf("Rule %d deleted successfully", ruleID)})
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	rules := append([]models.Rule{}, s.rules[d.ID]...)
	s.mu.Unlock()

	if len(rules) == 0 {
		render.JSON(w, r, map[string]string{"status": "no_rules", "message": "No validation rules defined"})
		return
	}

	out := models.ValidationResult{OverallStatus: models.StatusPassed, TotalRules: len(rules)}
	for _, rule := range rules {
		res := evaluate(d.table, rule)
		switch res.Status {
		case models.StatusPassed:
			out.Passed++
		case models.StatusFailed:
			out.Failed++
			out.OverallStatus = models.StatusFailed
		case models.StatusError:
			out.OverallStatus = models.StatusFailed
		}
		out.Results = append(out.Results, res)
	}

	render.JSON(w, r, out)
}

func (s *Server) versions(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	root := d.rootID()
	list := s.lineageLocked(root)
	s.mu.Unlock()

	render.JSON(w, r, models.VersionList{DatasetID: d.ID, RootID: root, Versions: list})
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r, "id")
	if !ok {
		return
	}
	b, ok := s.lookup(w, r, "other")
	if !ok {
		return
	}

	detail := compareTables(a.table, b.table)
	render.JSON(w, r, models.Comparison{
		DatasetA:   models.DatasetRef{ID: a.ID, Name: a.Name, Version: a.Version},
		DatasetB:   models.DatasetRef{ID: b.ID, Name: b.Name, Version: b.Version},
		DriftScore: driftScore(detail),
		Comparison: detail,
	})
}

func (s *Server) securityCheck(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, r, http.StatusUnprocessableEntity, "field required: file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, r, http.StatusBadRequest, "Could not read upload")
		return
	}

	render.JSON(w, r, preflight.Inspect(header.Filename, content, preflight.Options{ScanContent: true}))
}

func evaluate(t *table, rule models.Rule) models.RuleResult {
	res := models.RuleResult{
		RuleID:     rule.ID,
		Column:     rule.ColumnName,
		RuleType:   rule.RuleType,
		Parameters: rule.Parameters,
	}

	idx := t.columnIndex(rule.ColumnName)
	if idx < 0 {
		res.Status = models.StatusError
		res.Message = fmt.Sprintf("Column '%s' not found in dataset", rule.ColumnName)
		return res
	}
	values := t.column(idx)

	violates := make([]bool, len(values))
	switch rule.RuleType {
	case models.RuleTypeNotNull:
		for i, v := range values {
			violates[i] = v == ""
		}
	case models.RuleTypeUnique:
		counts := make(map[string]int)
		for _, v := range values {
			counts[v]++
		}
		for i, v := range values {
			violates[i] = counts[v] > 1
		}
	case models.RuleTypeRange:
		if _, isNum := numeric(values); !isNum {
			res.Status = models.StatusSkipped
			res.Message = fmt.Sprintf("Column '%s' is not numeric (type: object). Range rule skipped.", rule.ColumnName)
			return res
		}
		lo, hasLo := toFloat(rule.Parameters["min"])
		hi, hasHi := toFloat(rule.Parameters["max"])
		for i, v := range values {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			violates[i] = (hasLo && n < lo) || (hasHi && n > hi)
		}
	case models.RuleTypeRegex:
		pattern, _ := rule.Parameters["pattern"].(string)
		if pattern != "" {
			re, err := regexp.Compile("^(?:" + pattern + ")")
			if err != nil {
				res.Status = models.StatusError
				res.Message = fmt.Sprintf("Invalid pattern: %v", err)
				return res
			}
			for i, v := range values {
				violates[i] = v == "" || !re.MatchString(v)
			}
		}
	}

	for i, bad := range violates {
		if !bad {
			continue
		}
		res.Violations++
		if len(res.ViolationDetails) < violationSampleLimit {
			row := make(map[string]string, len(t.header))
			for c, h := range t.header {
				row[h] = t.rows[i][c]
			}
			res.ViolationDetails = append(res.ViolationDetails, models.ViolationDetail{
				RowIndex:    i,
				ColumnValue: values[i],
				RowData:     row,
			})
		}
	}

	if res.Violations > 0 {
		res.Status = models.StatusFailed
		res.Message = fmt.Sprintf("Found %d violations", res.Violations)
	} else {
		res.Status = models.StatusPassed
		res.Message = "All values valid"
	}
	return res
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
