package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/Dimash999666/data-quality-platform/pkg/api"
	"github.com/Dimash999666/data-quality-platform/pkg/apperrors"
	"github.com/Dimash999666/data-quality-platform/pkg/models"
	"github.com/Dimash999666/data-quality-platform/pkg/preflight"
)

// UploadState is the state of the UploadController.
type UploadState int

const (
	UploadIdle UploadState = iota
	UploadUploading
	UploadDone
	UploadFailed
)

// String returns a human-readable string for the upload state.
func (s UploadState) String() string {
	switch s {
	case UploadIdle:
		return "idle"
	case UploadUploading:
		return "uploading"
	case UploadDone:
		return "done"
	case UploadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UploadError is a failed upload. When the service (or the local preflight)
// refused the file with a diagnostic, Detail carries every field of it.
type UploadError struct {
	Local      bool        // Rejected before any network call
	Filename   string      // Base name of the file
	Message    string      // One-line summary
	StatusCode int         // HTTP status, 0 for local and transport failures
	Detail     *api.Detail // Structured diagnostic, nil for plain failures
	Cause      error
}

// Error implements the error interface.
func (e *UploadError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("upload %s: %s", e.Filename, e.Message)
	}
	return "upload: " + e.Message
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *UploadError) Unwrap() error {
	return e.Cause
}

// Structured reports whether a diagnostic is attached.
func (e *UploadError) Structured() bool {
	return e.Detail != nil
}

// newUploadError wraps any gateway or local failure.
func newUploadError(filename string, err error) *UploadError {
	var uploadErr *UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr
	}

	ue := &UploadError{Filename: filename, Message: err.Error(), Cause: err}
	if apiErr, ok := api.AsError(err); ok {
		ue.Local = apiErr.Kind == api.KindLocal
		ue.Message = apiErr.Message
		ue.StatusCode = apiErr.StatusCode
		ue.Detail = apiErr.Detail
	}
	return ue
}

func rejectionError(filename string, rej *preflight.Rejection) *UploadError {
	detail := &api.Detail{
		Error:       rej.Error,
		Reason:      rej.Reason,
		Explanation: rej.Explanation,
		FoundIssues: rej.FoundIssues,
		HowToFix:    rej.HowToFix,
	}
	return newUploadError(filename, api.NewLocalError(rej.Error, detail))
}

// UploadController drives uploads of new datasets and new versions.
// One upload may be in flight at a time.
type UploadController struct {
	svc    Service
	store  *EntityStore
	opts   preflight.Options
	logger *zap.Logger

	mu       sync.Mutex
	state    UploadState
	filename string
	result   *models.Dataset
	err      *UploadError
}

// NewUploadController creates an idle controller.
func NewUploadController(svc Service, store *EntityStore, opts preflight.Options, logger *zap.Logger) *UploadController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadController{
		svc:    svc,
		store:  store,
		opts:   opts,
		logger: logger.Named("upload"),
	}
}

// State returns the current state.
func (u *UploadController) State() UploadState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Result returns the outcome of the last finished upload.
func (u *UploadController) Result() (*models.Dataset, *UploadError) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.result, u.err
}

// Upload sends the CSV at path as a new dataset. On success the dataset list
// is reloaded and the new dataset becomes the selection.
func (u *UploadController) Upload(ctx context.Context, path string) (*models.Dataset, error) {
	filename := filepath.Base(path)

	content, err := u.begin(path)
	if err != nil {
		return nil, err
	}

	ds, err := u.svc.UploadDataset(ctx, filename, bytes.NewReader(content))
	if err != nil {
		return nil, u.fail(filename, err)
	}
	u.succeed(ds)

	u.logger.Info("Uploaded dataset",
		zap.Int64("dataset_id", ds.ID),
		zap.String("name", ds.Name),
		zap.Int("version", ds.Version))

	u.reloadList(ctx)
	u.store.SelectDataset(*ds)
	return ds, nil
}

// UploadVersion sends the CSV at path as a new version of datasetID. The
// selection is left alone; callers refresh the version list.
func (u *UploadController) UploadVersion(ctx context.Context, datasetID int64, path string) (*models.NewVersionResponse, error) {
	filename := filepath.Base(path)

	content, err := u.begin(path)
	if err != nil {
		return nil, err
	}

	resp, err := u.svc.UploadVersion(ctx, datasetID, filename, bytes.NewReader(content))
	if err != nil {
		return nil, u.fail(filename, err)
	}
	created := resp.NewDataset
	u.succeed(&created)

	u.logger.Info("Uploaded new version",
		zap.Int64("parent_id", datasetID),
		zap.Int64("root_id", resp.RootID),
		zap.Int64("dataset_id", created.ID),
		zap.Int("version", created.Version))

	u.reloadList(ctx)
	return resp, nil
}

// begin runs the local checks and claims the controller. The extension is
// checked before the file is touched.
func (u *UploadController) begin(path string) ([]byte, error) {
	filename := filepath.Base(path)

	u.mu.Lock()
	if u.state == UploadUploading {
		inFlight := u.filename
		u.mu.Unlock()
		ue := newUploadError(filename, fmt.Errorf("%w: %s", apperrors.ErrUploadInProgress, inFlight))
		ue.Local = true
		return nil, ue
	}
	u.state = UploadUploading
	u.filename = filename
	u.result = nil
	u.err = nil
	u.mu.Unlock()

	if rej := preflight.CheckExtension(filename); rej != nil {
		return nil, u.finishFailed(rejectionError(filename, rej))
	}

	content, rej, err := readLimited(path, u.opts)
	if err != nil {
		return nil, u.finishFailed(newUploadError(filename, api.NewLocalError(err.Error(), nil)))
	}
	if rej != nil {
		return nil, u.finishFailed(rejectionError(filename, rej))
	}

	if rej := preflight.Check(filename, content, u.opts); rej != nil {
		return nil, u.finishFailed(rejectionError(filename, rej))
	}
	return content, nil
}

func (u *UploadController) fail(filename string, err error) error {
	ue := newUploadError(filename, err)
	u.logger.Warn("Upload failed",
		zap.String("filename", filename),
		zap.Int("status", ue.StatusCode),
		zap.Bool("structured", ue.Structured()),
		zap.String("message", ue.Message))
	return u.finishFailed(ue)
}

func (u *UploadController) finishFailed(ue *UploadError) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state = UploadFailed
	u.err = ue
	return ue
}

func (u *UploadController) succeed(ds *models.Dataset) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state = UploadDone
	u.result = ds
}

// reloadList refreshes the dataset list. Failure leaves the list unchanged.
func (u *UploadController) reloadList(ctx context.Context) {
	if _, err := u.store.Load(ctx); err != nil {
		u.logger.Warn("Dataset list refresh failed after upload", zap.Error(err))
	}
}

// readLimited reads path, refusing files over the size limit before reading them.
func readLimited(path string, opts preflight.Options) ([]byte, *preflight.Rejection, error) {
	f, err := os.Open(path)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		return nil, nil, fmt.Errorf("cannot open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot stat %s: %w", filepath.Base(path), err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%s is a directory", filepath.Base(path))
	}
	if rej := preflight.CheckSize(info.Size(), opts); rej != nil {
		return nil, rej, nil
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read %s: %w", filepath.Base(path), err)
	}
	return content, nil, nil
}
