package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Dimash999666/data-quality-platform/pkg/api/apitest"
	"github.com/Dimash999666/data-quality-platform/pkg/models"
)

const (
	peopleCSV   = "name,age,email\nalice,30,a@example.com\nbob,,b@example.com\ncarol,41,c@example.com\n"
	peopleV2CSV = "name,age,email\nalice,31,a@example.com\nbob,25,b@example.com\ncarol,41,c@example.com\ndave,52,d@example.com\n"
)

type result struct {
	stdout string
	stderr string
	code   int
}

func runCLI(t *testing.T, fake *apitest.Server, stdin string, args ...string) result {
	t.Helper()

	var out, errOut bytes.Buffer
	app := NewApp("test", strings.NewReader(stdin), &out, &errOut)
	app.logger = zaptest.NewLogger(t)

	full := append([]string{
		"--api-url", fake.URL,
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--no-color",
	}, args...)
	code := app.execute(context.Background(), full)
	return result{stdout: out.String(), stderr: errOut.String(), code: code}
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDatasetsList_Text(t *testing.T) {
	fake := apitest.New(t)
	fake.AddDataset("people.csv", peopleCSV)

	res := runCLI(t, fake, "", "datasets", "list")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "NAME")
	assert.Contains(t, res.stdout, "people.csv")
}

func TestDatasets_DefaultsToList(t *testing.T) {
	fake := apitest.New(t)

	res := runCLI(t, fake, "", "datasets")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "No datasets")
}

func TestDatasetsList_JSON(t *testing.T) {
	fake := apitest.New(t)
	fake.AddDataset("people.csv", peopleCSV)

	res := runCLI(t, fake, "", "--output", "json", "datasets", "list")
	require.Equal(t, 0, res.code, res.stderr)

	var list []models.Dataset
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "people.csv", list[0].Name)
	assert.Equal(t, 3, list[0].TotalRows)
}

func TestDatasetsList_YAMLUsesJSONFieldNames(t *testing.T) {
	fake := apitest.New(t)
	fake.AddDataset("people.csv", peopleCSV)

	res := runCLI(t, fake, "", "-o", "yaml", "datasets", "list")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "name: people.csv")
	assert.Contains(t, res.stdout, "total_rows: 3")
}

func TestDatasetsShow(t *testing.T) {
	fake := apitest.New(t)
	ds := fake.AddDataset("people.csv", peopleCSV)

	res := runCLI(t, fake, "", "datasets", "show", "1")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "people.csv (id 1, v1)")
	assert.Equal(t, int64(1), ds.ID)
}

func TestInvalidID(t *testing.T) {
	fake := apitest.New(t)

	res := runCLI(t, fake, "", "datasets", "show", "abc")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `invalid dataset id "abc"`)
	assert.Empty(t, fake.Requests())
}

func TestInvalidOutputFormat(t *testing.T) {
	fake := apitest.New(t)

	res := runCLI(t, fake, "", "--output", "xml", "health")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "output.format")
}

func TestDatasetsDelete_DependentVersions(t *testing.T) {
	fake := apitest.New(t)
	root := fake.AddDataset("people.csv", peopleCSV)
	fake.AddVersion(root.ID, "people_v2.csv", peopleV2CSV)

	res := runCLI(t, fake, "", "datasets", "delete", "1")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `cannot delete "people.csv"`)
}

func TestDatasetsDelete(t *testing.T) {
	fake := apitest.New(t)
	fake.AddDataset("people.csv", peopleCSV)

	res := runCLI(t, fake, "", "datasets", "delete", "1")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Deleted dataset 1")
	assert.Equal(t, 1, fake.RequestCount("DELETE", "/datasets/1"))
}

func TestUpload(t *testing.T) {
	fake := apitest.New(t)
	path := writeCSV(t, "people.csv", peopleCSV)

	res := runCLI(t, fake, "", "upload", path)

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Uploaded people.csv as dataset 1")
	assert.Equal(t, 1, fake.RequestCount("POST", "/datasets/upload"))
}

func TestUpload_LocalRejectionNeverSent(t *testing.T) {
	fake := apitest.New(t)
	path := writeCSV(t, "notes.txt", peopleCSV)

	res := runCLI(t, fake, "", "upload", path)

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Invalid file type")
	assert.Contains(t, res.stderr, "How to fix:")
	assert.Zero(t, fake.RequestCount("POST", "/datasets/upload"))
}

func TestNewVersion(t *testing.T) {
	fake := apitest.New(t)
	fake.AddDataset("people.csv", peopleCSV)
	path := writeCSV(t, "people.csv", peopleV2CSV)

	res := runCLI(t, fake, "", "new-version", "1", path)

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Version 2 created")
	assert.Contains(t, res.stdout, "as dataset 2")
}

func TestProfile(t *testing.T) {
	fake := apitest.New(t)
	fake.AddDataset("people.csv", peopleCSV)

	res := runCLI(t, fake, "", "profile", "1")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Quality score")
	assert.Equal(t, 1, fake.RequestCount("POST", "/datasets/1/profile"))
}

func TestProfile_Latest(t *testing.T) {
	fake := apitest.New(t)
	fake.AddDataset("people.csv", peopleCSV)
	require.Equal(t, 0, runCLI(t, fake, "", "profile", "1").code)

	res := runCLI(t, fake, "", "profile", "1", "--latest")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, 1, fake.RequestCount("GET", "/datasets/1/profile"))
}

func TestRulesAndValidate(t *testing.T) {
	fake := apitest.New(t)
	fake.AddDataset("people.csv", peopleCSV)

	res := runCLI(t, fake, "", "validate", "1")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "No validation rules defined")
	assert.Zero(t, fake.RequestCount("POST", "/datasets/1/validate"))

	res = runCLI(t, fake, "", "rules", "add", "1", "age", "range", "--params", `{"min": 0, "max": 120}`)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "range")

	res = runCLI(t, fake, "", "rules", "add", "1", "age", "between")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `unknown rule type "between"`)

	res = runCLI(t, fake, "", "rules", "list", "1")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "age")

	res = runCLI(t, fake, "", "validate", "1")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "1 passed, 0 failed")

	res = runCLI(t, fake, "", "rules", "delete", "1", "1")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Deleted rule 1")
}

func TestVersionsAndCompare(t *testing.T) {
	fake := apitest.New(t)
	root := fake.AddDataset("people.csv", peopleCSV)
	fake.AddVersion(root.ID, "people_v2.csv", peopleV2CSV)

	res := runCLI(t, fake, "", "versions", "2")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "people.csv (root)")
	assert.Contains(t, res.stdout, "people_v2.csv")

	res = runCLI(t, fake, "", "compare", "2", "1")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Drift:")
	assert.Equal(t, 1, fake.RequestCount("GET", "/datasets/1/compare/2"))
}

func TestCompare_RejectsOtherLineage(t *testing.T) {
	fake := apitest.New(t)
	fake.AddDataset("people.csv", peopleCSV)
	fake.AddDataset("orders.csv", "id,total\n1,9.5\n")

	res := runCLI(t, fake, "", "compare", "1", "2")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "version 2 is not in the lineage of dataset 1")
}

func TestCompare_SameID(t *testing.T) {
	fake := apitest.New(t)

	res := runCLI(t, fake, "", "compare", "1", "1")

	assert.Equal(t, 1, res.code)
	assert.Empty(t, fake.Requests())
}

func TestCheck_Clean(t *testing.T) {
	fake := apitest.New(t)
	path := writeCSV(t, "people.csv", peopleCSV)

	res := runCLI(t, fake, "", "check", path)

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Local checks:")
	assert.Contains(t, res.stdout, "Service checks:")
	assert.Equal(t, 1, fake.RequestCount("POST", "/datasets/security-check"))
}

func TestCheck_LocalOnlyRejectsFormula(t *testing.T) {
	fake := apitest.New(t)
	path := writeCSV(t, "evil.csv", "name,total\nalice,=SUM(A1:A2)\nbob,3\n")

	res := runCLI(t, fake, "", "check", "--local", path)

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "=SUM(A1:A2)")
	assert.Contains(t, res.stderr, "Security check failed")
	assert.Contains(t, res.stderr, "Found issues:")
	assert.Empty(t, fake.Requests())
}

func TestHealth(t *testing.T) {
	fake := apitest.New(t)

	res := runCLI(t, fake, "", "health")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "healthy")
}

func TestHealth_Unreachable(t *testing.T) {
	fake := apitest.New(t)
	fake.Close()

	res := runCLI(t, fake, "", "health")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Error:")
}

func TestUnknownCommand(t *testing.T) {
	fake := apitest.New(t)

	res := runCLI(t, fake, "", "frobnicate")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "unknown command")
}
