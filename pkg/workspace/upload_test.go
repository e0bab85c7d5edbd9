package workspace

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dimash999666/data-quality-platform/pkg/api"
	"github.com/Dimash999666/data-quality-platform/pkg/apperrors"
	"github.com/Dimash999666/data-quality-platform/pkg/preflight"
)

func TestUploadState_String(t *testing.T) {
	assert.Equal(t, "idle", UploadIdle.String())
	assert.Equal(t, "uploading", UploadUploading.String())
	assert.Equal(t, "done", UploadDone.String())
	assert.Equal(t, "failed", UploadFailed.String())
}

func TestUpload_NonCSVNeverHitsNetwork(t *testing.T) {
	ws, fake := newTestWorkspace(t)

	for _, name := range []string{"data.xlsx", "data.json", "data", "missing-file.txt"} {
		path := writeFile(t, name, "a,b\n1,2\n")
		if name == "missing-file.txt" {
			path = "/nonexistent/" + name
		}

		_, err := ws.Upload(bg(), path)
		require.Error(t, err, name)

		var ue *UploadError
		require.True(t, errors.As(err, &ue))
		assert.True(t, ue.Local)
		require.NotNil(t, ue.Detail)
		assert.Equal(t, "Invalid file type", ue.Detail.Error)
		assert.True(t, errors.Is(err, apperrors.ErrLocalValidation))
	}

	assert.Empty(t, fake.Requests())
	assert.Equal(t, UploadFailed, ws.Uploader.State())
}

func TestUpload_StructuredRejectionKeepsEveryField(t *testing.T) {
	ws, fake := newTestWorkspace(t)
	fake.Override(http.MethodPost, "/datasets/upload", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":{"error":"bad header","reason":"missing id column","found_issues":["no 'id' column"],"how_to_fix":"add an id column"}}`))
	})

	_, err := ws.Upload(bg(), writeFile(t, "people.csv", peopleCSV))
	require.Error(t, err)

	var ue *UploadError
	require.True(t, errors.As(err, &ue))
	assert.False(t, ue.Local)
	assert.Equal(t, http.StatusUnprocessableEntity, ue.StatusCode)
	require.True(t, ue.Structured())
	assert.Equal(t, "bad header", ue.Detail.Error)
	assert.Equal(t, "missing id column", ue.Detail.Reason)
	assert.Equal(t, []string{"no 'id' column"}, []string(ue.Detail.FoundIssues))
	assert.Equal(t, "add an id column", ue.Detail.HowToFix)

	_, last := ws.Uploader.Result()
	assert.Same(t, ue, last)
	assert.Nil(t, ws.Selected())
}

func TestUpload_PlainFailureHasNoDetail(t *testing.T) {
	ws, fake := newTestWorkspace(t)
	fake.Override(http.MethodPost, "/datasets/upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := ws.Upload(bg(), writeFile(t, "people.csv", peopleCSV))

	var ue *UploadError
	require.True(t, errors.As(err, &ue))
	assert.False(t, ue.Structured())
	assert.Equal(t, "500 Internal Server Error", ue.Message)
}

func TestUpload_LocalContentScan(t *testing.T) {
	ws, fake := newTestWorkspace(t)

	_, err := ws.Upload(bg(), writeFile(t, "evil.csv", "name,cmd\nx,=HYPERLINK(\"http://evil\")\n"))

	var ue *UploadError
	require.True(t, errors.As(err, &ue))
	assert.True(t, ue.Local)
	require.NotNil(t, ue.Detail)
	assert.Equal(t, "Security check failed", ue.Detail.Error)
	require.Len(t, ue.Detail.FoundIssues, 1)
	assert.Empty(t, fake.Requests())
}

func TestUpload_TooLargeRejectedBeforeRead(t *testing.T) {
	fake := newFakeOnly(t)
	gw, err := api.NewGateway(api.Options{BaseURL: fake.URL}, nil)
	require.NoError(t, err)
	ws := New(gw, Options{Preflight: preflight.Options{MaxSizeBytes: 10}}, nil)

	_, err = ws.Upload(bg(), writeFile(t, "big.csv", peopleCSV))

	var ue *UploadError
	require.True(t, errors.As(err, &ue))
	require.NotNil(t, ue.Detail)
	assert.Equal(t, "File too large", ue.Detail.Error)
	assert.Empty(t, fake.Requests())
}

func TestUpload_SuccessReloadsAndSelects(t *testing.T) {
	ws, fake := newTestWorkspace(t)
	existing := fake.AddDataset("old.csv", peopleCSV)

	ds, err := ws.Upload(bg(), writeFile(t, "people.csv", peopleCSV))
	require.NoError(t, err)
	assert.Equal(t, "people.csv", ds.Name)
	assert.Equal(t, 1, ds.Version)
	assert.NotEqual(t, existing.ID, ds.ID)

	assert.Equal(t, UploadDone, ws.Uploader.State())
	result, uploadErr := ws.Uploader.Result()
	assert.Nil(t, uploadErr)
	assert.Equal(t, ds.ID, result.ID)

	assert.Len(t, ws.Store.Datasets(), 2)
	require.NotNil(t, ws.Selected())
	assert.Equal(t, ds.ID, ws.Selected().ID)
	assert.Equal(t, 1, fake.RequestCount(http.MethodGet, "/datasets"))
}

func TestUpload_ConcurrentUploadRejected(t *testing.T) {
	ws, fake := newTestWorkspace(t)
	g := newGate(t)
	fake.Override(http.MethodPost, "/datasets/upload", g.handler(http.StatusOK,
		`{"id":1,"name":"people.csv","version":1,"total_rows":3,"total_columns":3}`))

	path := writeFile(t, "people.csv", peopleCSV)
	done := make(chan error, 1)
	go func() {
		_, err := ws.Upload(bg(), path)
		done <- err
	}()
	g.waitEntered(t)
	assert.Equal(t, UploadUploading, ws.Uploader.State())

	_, err := ws.Upload(bg(), path)
	assert.ErrorIs(t, err, apperrors.ErrUploadInProgress)
	var ue *UploadError
	require.True(t, errors.As(err, &ue))
	assert.True(t, ue.Local)

	g.open()
	require.NoError(t, <-done)
	assert.Equal(t, UploadDone, ws.Uploader.State())
	assert.Equal(t, 1, fake.RequestCount(http.MethodPost, "/datasets/upload"))
}

func TestUploadVersion_DoesNotChangeSelection(t *testing.T) {
	ws, fake := newTestWorkspace(t)
	root := fake.AddDataset("people.csv", peopleCSV)
	other := fake.AddDataset("other.csv", peopleCSV)

	_, err := ws.Select(bg(), other.ID)
	require.NoError(t, err)

	resp, err := ws.Uploader.UploadVersion(bg(), root.ID, writeFile(t, "people.csv", peopleCSV))
	require.NoError(t, err)
	assert.Equal(t, root.ID, resp.RootID)
	assert.Equal(t, 2, resp.NewDataset.Version)

	assert.Equal(t, other.ID, ws.Selected().ID)
	assert.Len(t, ws.Store.Datasets(), 3)
}

func TestUploadError_Message(t *testing.T) {
	ue := newUploadError("x.csv", fmt.Errorf("boom"))
	assert.Equal(t, "upload x.csv: boom", ue.Error())
	assert.False(t, ue.Local)

	again := newUploadError("y.csv", fmt.Errorf("wrapped: %w", ue))
	assert.Same(t, ue, again)
}
