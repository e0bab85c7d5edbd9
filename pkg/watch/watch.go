// Package watch pushes a new dataset version whenever a CSV file changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Dimash999666/data-quality-platform/pkg/models"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 750 * time.Millisecond

// Uploader sends a file as a new version of a dataset.
// *workspace.UploadController satisfies it.
type Uploader interface {
	UploadVersion(ctx context.Context, datasetID int64, path string) (*models.NewVersionResponse, error)
}

// Options configures a Watcher.
type Options struct {
	// Debounce is how long the file must be quiet before it is uploaded.
	Debounce time.Duration
	// OnUpload, if set, is called after every upload attempt.
	OnUpload func(resp *models.NewVersionResponse, err error)
}

// Watcher uploads path as a new version of one dataset each time it is
// written. Bursts of writes within the debounce window cause one upload.
type Watcher struct {
	uploader  Uploader
	datasetID int64
	path      string
	opts      Options
	logger    *zap.Logger
}

// New creates a Watcher. The file must exist.
func New(uploader Uploader, datasetID int64, path string, opts Options, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot watch %s: is a directory", path)
	}

	return &Watcher{
		uploader:  uploader,
		datasetID: datasetID,
		path:      abs,
		opts:      opts,
		logger:    logger.Named("watch"),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run watches until ctx is canceled. The parent directory is watched so
// editors that replace the file on save are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.logger.Info("Watching file",
		zap.String("path", w.path),
		zap.Int64("dataset_id", w.datasetID),
		zap.Duration("debounce", w.opts.Debounce))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopped watching", zap.String("path", w.path))
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("File changed", zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Warn("File watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			w.upload(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *Watcher) upload(ctx context.Context) {
	resp, err := w.uploader.UploadVersion(ctx, w.datasetID, w.path)
	if err != nil {
		w.logger.Warn("Version upload failed",
			zap.String("path", w.path),
			zap.Int64("dataset_id", w.datasetID),
			zap.Error(err))
	} else {
		w.logger.Info("Uploaded new version",
			zap.Int64("dataset_id", resp.NewDataset.ID),
			zap.String("name", resp.NewDataset.Name),
			zap.Int("version", resp.NewDataset.Version))
	}

	if w.opts.OnUpload != nil {
		w.opts.OnUpload(resp, err)
	}
}
