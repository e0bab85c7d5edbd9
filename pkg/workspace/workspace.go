package workspace

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Dimash999666/data-quality-platform/pkg/apperrors"
	"github.com/Dimash999666/data-quality-platform/pkg/models"
	"github.com/Dimash999666/data-quality-platform/pkg/preflight"
)

// Options configures a Workspace.
type Options struct {
	Preflight preflight.Options
}

// Workspace ties the store, the uploader and the panels to one service.
// Changing the selected dataset invalidates every panel.
type Workspace struct {
	Store    *EntityStore
	Uploader *UploadController
	Profile  *ProfilePanel
	AI       *AIPanel
	Rules    *RulesPanel
	Versions *VersionsPanel

	svc    Service
	logger *zap.Logger
}

// New creates a workspace with nothing loaded or selected.
func New(svc Service, opts Options, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("workspace")

	store := NewEntityStore(svc, logger)
	uploader := NewUploadController(svc, store, opts.Preflight, logger)

	w := &Workspace{
		Store:    store,
		Uploader: uploader,
		Profile:  &ProfilePanel{svc: svc, store: store, logger: logger.Named("profile")},
		AI:       &AIPanel{svc: svc, store: store},
		Rules:    &RulesPanel{svc: svc, store: store, logger: logger.Named("rules")},
		Versions: &VersionsPanel{svc: svc, store: store, uploader: uploader, logger: logger.Named("versions")},
		svc:      svc,
		logger:   logger,
	}

	store.OnSelect(func(prev, next *models.Dataset) {
		w.invalidate()
	})
	return w
}

// Load reloads the dataset list.
func (w *Workspace) Load(ctx context.Context) ([]models.Dataset, error) {
	return w.Store.Load(ctx)
}

// Select makes the listed dataset id current, loading the list first if it is empty.
func (w *Workspace) Select(ctx context.Context, id int64) (*models.Dataset, error) {
	if _, ok := w.Store.Find(id); !ok {
		if _, err := w.Store.Load(ctx); err != nil {
			return nil, err
		}
	}
	return w.Store.Select(id)
}

// Selected returns the current dataset, or nil.
func (w *Workspace) Selected() *models.Dataset {
	return w.Store.Selected()
}

// Upload uploads a new dataset and selects it.
func (w *Workspace) Upload(ctx context.Context, path string) (*models.Dataset, error) {
	return w.Uploader.Upload(ctx, path)
}

// Refresh loads the rules and versions of the selected dataset in parallel.
func (w *Workspace) Refresh(ctx context.Context) error {
	if w.Store.Selected() == nil {
		return apperrors.ErrNoSelection
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := w.Rules.Load(gctx)
		return err
	})
	g.Go(func() error {
		_, err := w.Versions.Load(gctx)
		return err
	})
	return g.Wait()
}

// Delete deletes a dataset. Deleting the selected dataset clears the
// selection. A refusal because versions depend on it is returned as an
// error that satisfies errors.Is(err, apperrors.ErrDependentVersions).
func (w *Workspace) Delete(ctx context.Context, id int64) error {
	name := fmt.Sprintf("dataset %d", id)
	if ds, ok := w.Store.Find(id); ok {
		name = fmt.Sprintf("%q", ds.Name)
	}

	if err := w.Store.Remove(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrDependentVersions) {
			return fmt.Errorf("cannot delete %s: newer versions depend on it, delete them first: %w", name, err)
		}
		return err
	}

	if _, err := w.Store.Load(ctx); err != nil {
		w.logger.Warn("Dataset list refresh failed after delete", zap.Error(err))
	}
	return nil
}

func (w *Workspace) invalidate() {
	w.Profile.invalidate()
	w.AI.invalidate()
	w.Rules.invalidate()
	w.Versions.invalidate()
}
