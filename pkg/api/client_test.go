package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Dimash999666/data-quality-platform/pkg/api/apitest"
	"github.com/Dimash999666/data-quality-platform/pkg/apperrors"
	"github.com/Dimash999666/data-quality-platform/pkg/models"
)

const peopleCSV = "name,age,email\nalice,30,a@example.com\nbob,,b@example.com\ncarol,41,c@example.com\n"

func newTestGateway(t *testing.T, baseURL string) *Gateway {
	t.Helper()
	g, err := NewGateway(Options{BaseURL: baseURL, Timeout: 5 * time.Second, UserAgent: "dq-test"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return g
}

func TestNewGateway_InvalidBaseURL(t *testing.T) {
	_, err := NewGateway(Options{BaseURL: "not a url"}, zap.NewNop())
	require.Error(t, err)

	_, err = NewGateway(Options{BaseURL: "/relative"}, nil)
	require.Error(t, err)
}

func TestGateway_BuildURL(t *testing.T) {
	g, err := NewGateway(Options{BaseURL: "http://example.com/api/"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/api/datasets", g.buildURL("/datasets"))
	assert.Equal(t, "http://example.com/api/datasets/1/ai-suggest-rules/unit%20price",
		g.buildURL(escapeSegments("datasets", "1", "ai-suggest-rules", "unit price")))
	assert.Equal(t, "http://example.com/api/datasets/1/ai-suggest-rules/a%2Fb",
		g.buildURL(escapeSegments("datasets", "1", "ai-suggest-rules", "a/b")))
}

func TestGateway_SetsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	g := newTestGateway(t, srv.URL)
	health, err := g.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)

	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "dq-test", got.Get("User-Agent"))
	assert.Len(t, got.Get(RequestIDHeader), 36)
}

func TestGateway_DatasetLifecycle(t *testing.T) {
	fake := apitest.New(t)
	g := newTestGateway(t, fake.URL)
	ctx := context.Background()

	uploaded, err := g.UploadDataset(ctx, "people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)
	assert.Equal(t, "people.csv", uploaded.Name)
	assert.Equal(t, 1, uploaded.Version)
	assert.Equal(t, 3, uploaded.TotalRows)
	assert.Equal(t, 3, uploaded.TotalColumns)

	list, err := g.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uploaded.ID, list[0].ID)

	got, err := g.GetDataset(ctx, uploaded.ID)
	require.NoError(t, err)
	assert.Equal(t, uploaded.Name, got.Name)

	resp, err := g.DeleteDataset(ctx, uploaded.ID)
	require.NoError(t, err)
	assert.Equal(t, uploaded.ID, resp.DeletedID)

	_, err = g.GetDataset(ctx, uploaded.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestGateway_UploadStructuredRejection(t *testing.T) {
	fake := apitest.New(t)
	g := newTestGateway(t, fake.URL)

	_, err := g.UploadDataset(context.Background(), "bad.csv", strings.NewReader("a,b\n=SUM(A1),2\n"))
	require.Error(t, err)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindStructured, apiErr.Kind)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.NotNil(t, apiErr.Detail)
	assert.Equal(t, "Security check failed", apiErr.Detail.Error)
	assert.NotEmpty(t, apiErr.Detail.Reason)
	require.Len(t, apiErr.Detail.FoundIssues, 1)
	assert.Contains(t, apiErr.Detail.FoundIssues[0], "Row 2, column 1")
	assert.NotEmpty(t, apiErr.Detail.HowToFix)
}

func TestGateway_StructuredDetail422(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":{
			"error":"bad header",
			"reason":"duplicate column names",
			"found_issues":["col 'id' appears twice","col 'name' appears twice"],
			"how_to_fix":"rename the duplicated columns"
		}}`))
	}))
	defer srv.Close()

	g := newTestGateway(t, srv.URL)
	_, err := g.UploadDataset(context.Background(), "x.csv", strings.NewReader("id,id\n1,2\n"))
	require.Error(t, err)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindStructured, apiErr.Kind)
	assert.Equal(t, 422, apiErr.StatusCode)
	require.True(t, apiErr.HasDetail())
	assert.Equal(t, "bad header", apiErr.Detail.Error)
	assert.Equal(t, "duplicate column names", apiErr.Detail.Reason)
	assert.Equal(t, []string{"col 'id' appears twice", "col 'name' appears twice"}, []string(apiErr.Detail.FoundIssues))
	assert.Equal(t, "rename the duplicated columns", apiErr.Detail.HowToFix)
	assert.Empty(t, apiErr.Detail.Explanation)
}

func TestGateway_ErrorMessageFallback(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"string detail", 404, `{"detail":"Dataset not found"}`, "Dataset not found"},
		{"empty body", 502, ``, "502 Bad Gateway"},
		{"html body", 500, `<html>oops</html>`, "500 Internal Server Error"},
		{"no detail key", 503, `{"message":"down"}`, "503 Service Unavailable"},
		{"blank detail", 400, `{"detail":"  "}`, "400 Bad Request"},
		{"field errors", 422, `{"detail":[{"loc":["body","column_name"],"msg":"field required","type":"value_error.missing"}]}`,
			"body.column_name: field required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestGateway(t, srv.URL).ListDatasets(context.Background())
			apiErr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, KindService, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Nil(t, apiErr.Detail)
		})
	}
}

func TestGateway_DeleteDependentVersions(t *testing.T) {
	fake := apitest.New(t)
	root := fake.AddDataset("sales.csv", peopleCSV)
	fake.AddVersion(root.ID, "sales_v2.csv", peopleCSV)

	g := newTestGateway(t, fake.URL)
	_, err := g.DeleteDataset(context.Background(), root.ID)
	require.Error(t, err)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindDependencyConflict, apiErr.Kind)
	assert.Contains(t, apiErr.Message, "1 version(s) depend on this dataset (sales_v2.csv)")
	assert.True(t, errors.Is(err, apperrors.ErrDependentVersions))
}

func TestGateway_DeleteDependentVersions_TypedCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":{"error":"Dataset is in use","code":"dependent_versions"}}`))
	}))
	defer srv.Close()

	_, err := newTestGateway(t, srv.URL).DeleteDataset(context.Background(), 7)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindDependencyConflict, apiErr.Kind)
	assert.Equal(t, "Dataset is in use", apiErr.Message)
}

func TestGateway_DependencyWordingOutsideDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"2 version(s) depend on this dataset"}`))
	}))
	defer srv.Close()

	_, err := newTestGateway(t, srv.URL).Validate(context.Background(), 1)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindService, apiErr.Kind)
}

func TestGateway_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestGateway(t, url).ListDatasets(context.Background())
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Zero(t, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "service unreachable")
	assert.NotNil(t, apiErr.Cause)
}

func TestGateway_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestGateway(t, srv.URL).ListDatasets(ctx)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGateway_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "not-a-number"`))
	}))
	defer srv.Close()

	_, err := newTestGateway(t, srv.URL).GetDataset(context.Background(), 1)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Equal(t, "malformed response from service", apiErr.Message)
}

func TestGateway_ProfileRunAndLatest(t *testing.T) {
	fake := apitest.New(t)
	ds := fake.AddDataset("people.csv", peopleCSV)
	g := newTestGateway(t, fake.URL)
	ctx := context.Background()

	_, err := g.LatestProfile(ctx, ds.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	report, err := g.RunProfile(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.ID, report.DatasetID)
	assert.Equal(t, 3, report.Profile.TotalRows)
	assert.Equal(t, 1, report.Profile.MissingValues["age"])
	require.NotEmpty(t, report.Issues)
	assert.Equal(t, "missing_values", report.Issues[0].IssueType)
	assert.Equal(t, "age", report.Issues[0].ColumnName)

	latest, err := g.LatestProfile(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, report.QualityScore, latest.QualityScore)
	assert.Equal(t, 3, latest.Profile.TotalRows)
	assert.NotEmpty(t, latest.CreatedAt)

	issues, err := g.Issues(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, len(report.Issues), issues.TotalIssues)
	assert.Equal(t, "age", issues.Issues[0].ColumnName)
}

func TestGateway_AI(t *testing.T) {
	fake := apitest.New(t)
	ds := fake.AddDataset("people.csv", peopleCSV)
	g := newTestGateway(t, fake.URL)
	ctx := context.Background()

	_, err := g.AnalyzeDataset(ctx, ds.ID)
	require.Error(t, err)

	_, err = g.RunProfile(ctx, ds.ID)
	require.NoError(t, err)

	analysis, err := g.AnalyzeDataset(ctx, ds.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, analysis.Analysis.Summary.String())
	assert.NotEmpty(t, analysis.Analysis.MLReadiness.String())

	suggestions, err := g.SuggestRules(ctx, ds.ID, "age")
	require.NoError(t, err)
	assert.Equal(t, "age", suggestions.Column)
	require.Len(t, suggestions.Rules, 2)
	assert.Equal(t, models.RuleTypeNotNull, suggestions.Rules[0].Type)
	assert.Equal(t, models.RuleTypeRange, suggestions.Rules[1].Type)
	assert.EqualValues(t, 30, suggestions.Rules[1].Parameters["min"])

	_, err = g.SuggestRules(ctx, ds.ID, "")
	assert.True(t, errors.Is(err, apperrors.ErrLocalValidation))

	_, err = g.SuggestRules(ctx, ds.ID, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestGateway_RulesAndValidate(t *testing.T) {
	fake := apitest.New(t)
	ds := fake.AddDataset("people.csv", peopleCSV)
	g := newTestGateway(t, fake.URL)
	ctx := context.Background()

	noRules, err := g.Validate(ctx, ds.ID)
	require.NoError(t, err)
	assert.True(t, noRules.NoRules())

	notNull, err := g.CreateRule(ctx, ds.ID, models.RuleCreate{ColumnName: "age", RuleType: models.RuleTypeNotNull})
	require.NoError(t, err)
	assert.NotZero(t, notNull.ID)
	assert.NotNil(t, notNull.Parameters)

	_, err = g.CreateRule(ctx, ds.ID, models.RuleCreate{
		ColumnName: "age",
		RuleType:   models.RuleTypeRange,
		Parameters: map[string]any{"min": 0, "max": 35},
	})
	require.NoError(t, err)

	_, err = g.CreateRule(ctx, ds.ID, models.RuleCreate{ColumnName: "age", RuleType: "between"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrLocalValidation))
	assert.Equal(t, 2, fake.RequestCount(http.MethodPost, fmt.Sprintf("/datasets/%d/rules", ds.ID)))

	rules, err := g.ListRules(ctx, ds.ID)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	result, err := g.Validate(ctx, ds.ID)
	require.NoError(t, err)
	assert.False(t, result.NoRules())
	assert.Equal(t, models.StatusFailed, result.OverallStatus)
	assert.Equal(t, 2, result.TotalRules)
	assert.Equal(t, 2, result.Failed)

	nn, ok := result.ResultFor(notNull.ID)
	require.True(t, ok)
	assert.Equal(t, 1, nn.Violations)
	require.Len(t, nn.ViolationDetails, 1)
	assert.Equal(t, "bob", nn.ViolationDetails[0].RowData["name"])

	require.NoError(t, g.DeleteRule(ctx, ds.ID, notNull.ID))
	err = g.DeleteRule(ctx, ds.ID, notNull.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestGateway_VersionsAndCompare(t *testing.T) {
	fake := apitest.New(t)
	root := fake.AddDataset("people.csv", peopleCSV)
	g := newTestGateway(t, fake.URL)
	ctx := context.Background()

	created, err := g.UploadVersion(ctx, root.ID, "people.csv",
		strings.NewReader("name,age,email\nalice,30,\nbob,,\ncarol,41,\ndave,90,\n"))
	require.NoError(t, err)
	assert.Equal(t, root.ID, created.RootID)
	assert.Equal(t, 2, created.NewDataset.Version)
	assert.Equal(t, "people_v2.csv", created.NewDataset.Name)

	versions, err := g.Versions(ctx, created.NewDataset.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, versions.RootID)
	require.Len(t, versions.Versions, 2)
	assert.Equal(t, 1, versions.Versions[0].Version)
	assert.Equal(t, 2, versions.Versions[1].Version)

	cmp, err := g.Compare(ctx, root.ID, created.NewDataset.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, cmp.DatasetA.ID)
	assert.Equal(t, created.NewDataset.ID, cmp.DatasetB.ID)
	assert.Equal(t, 1, cmp.Comparison.RowChanges.Diff)
	assert.Contains(t, cmp.Comparison.QualityDrift, "email")
	assert.Equal(t, models.TrendDegraded, cmp.Comparison.QualityDrift["email"].MissingStatus)
	assert.NotEqual(t, models.DriftOK, cmp.DriftScore.Level())
}

func TestGateway_SecurityCheck(t *testing.T) {
	fake := apitest.New(t)
	g := newTestGateway(t, fake.URL)

	report, err := g.SecurityCheck(context.Background(), "notes.txt", strings.NewReader("a,b\n=SUM(1),2\n"))
	require.NoError(t, err)
	assert.False(t, report.ExtensionOK)
	assert.True(t, report.SizeOK)
	assert.False(t, report.SecurityScan.Safe)
	require.Len(t, report.SecurityScan.Issues, 1)
}

func TestGateway_Request(t *testing.T) {
	fake := apitest.New(t)
	fake.AddDataset("people.csv", peopleCSV)
	g := newTestGateway(t, fake.URL)

	raw, err := g.Request(context.Background(), http.MethodGet, "/datasets", nil)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name":"people.csv"`)

	_, err = g.Request(context.Background(), http.MethodGet, "/datasets/99", nil)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
