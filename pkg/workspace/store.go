package workspace

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Dimash999666/data-quality-platform/pkg/apperrors"
	"github.com/Dimash999666/data-quality-platform/pkg/models"
)

// storeState is the value the EntityStore guards. Every transition below is a
// function of (state, event) returning the next state.
type storeState struct {
	datasets []models.Dataset
	selected *models.Dataset
}

func (s storeState) find(id int64) (models.Dataset, bool) {
	for _, d := range s.datasets {
		if d.ID == id {
			return d, true
		}
	}
	return models.Dataset{}, false
}

func (s storeState) selectedID() int64 {
	if s.selected == nil {
		return 0
	}
	return s.selected.ID
}

// withDatasets replaces the list. The selection survives only if its id is
// still listed, and then takes the fresh projection.
func withDatasets(s storeState, list []models.Dataset) storeState {
	next := storeState{datasets: append([]models.Dataset(nil), list...)}
	if s.selected != nil {
		if d, ok := next.find(s.selected.ID); ok {
			next.selected = &d
		}
	}
	return next
}

// withSelected selects ds, adding it to the list when it is not there yet.
func withSelected(s storeState, ds models.Dataset) storeState {
	next := storeState{datasets: s.datasets, selected: &ds}
	if _, ok := s.find(ds.ID); !ok {
		next.datasets = append(append([]models.Dataset(nil), s.datasets...), ds)
	}
	return next
}

// withoutSelection clears the selection.
func withoutSelection(s storeState) storeState {
	return storeState{datasets: s.datasets}
}

// withoutDataset drops id from the list and clears the selection if it pointed at id.
func withoutDataset(s storeState, id int64) storeState {
	next := storeState{datasets: make([]models.Dataset, 0, len(s.datasets))}
	for _, d := range s.datasets {
		if d.ID != id {
			next.datasets = append(next.datasets, d)
		}
	}
	if s.selected != nil && s.selected.ID != id {
		next.selected = s.selected
	}
	return next
}

// SelectHook is called after the selected dataset identity changes.
// prev and next are nil when nothing was or is selected.
type SelectHook func(prev, next *models.Dataset)

// EntityStore holds the dataset list and the current selection.
type EntityStore struct {
	svc    Service
	logger *zap.Logger
	loads  singleflight.Group

	// dispatch is held for writing across a transition and its hooks, and
	// for reading while a fetch pins the selection it was issued for.
	dispatch sync.RWMutex

	mu    sync.RWMutex
	state storeState
	hooks []SelectHook
}

// NewEntityStore creates an empty store backed by svc.
func NewEntityStore(svc Service, logger *zap.Logger) *EntityStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityStore{
		svc:    svc,
		logger: logger.Named("store"),
	}
}

// OnSelect registers fn to run after every change of selected identity.
// Hooks run before any fetch can start against the new selection, so they
// must not change the selection or start fetches themselves.
func (s *EntityStore) OnSelect(fn SelectHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Load replaces the dataset list from the service. Concurrent calls share one request.
func (s *EntityStore) Load(ctx context.Context) ([]models.Dataset, error) {
	v, err, _ := s.loads.Do("datasets", func() (any, error) {
		return s.svc.ListDatasets(ctx)
	})
	if err != nil {
		return nil, err
	}

	list, _ := v.([]models.Dataset)
	s.apply(func(st storeState) storeState { return withDatasets(st, list) })

	s.logger.Debug("Loaded datasets", zap.Int("count", len(list)))
	return s.Datasets(), nil
}

// Datasets returns a copy of the list in service order.
func (s *EntityStore) Datasets() []models.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Dataset(nil), s.state.datasets...)
}

// Find returns the listed dataset with id.
func (s *EntityStore) Find(id int64) (models.Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.find(id)
}

// Selected returns a copy of the selected dataset, or nil.
func (s *EntityStore) Selected() *models.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.selected == nil {
		return nil
	}
	d := *s.state.selected
	return &d
}

// IsSelected reports whether id is the selected dataset.
func (s *EntityStore) IsSelected(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.selected != nil && s.state.selected.ID == id
}

// beginForSelected runs begin with the selected dataset while no transition
// can run. It reports false, without calling begin, when nothing is selected.
func (s *EntityStore) beginForSelected(begin func(ds models.Dataset)) (models.Dataset, bool) {
	s.dispatch.RLock()
	defer s.dispatch.RUnlock()

	ds := s.Selected()
	if ds == nil {
		return models.Dataset{}, false
	}
	begin(*ds)
	return *ds, true
}

// whileSelected runs fn only if id is still the selected dataset, with no
// transition able to run meanwhile.
func (s *EntityStore) whileSelected(id int64, fn func()) bool {
	s.dispatch.RLock()
	defer s.dispatch.RUnlock()

	if !s.IsSelected(id) {
		return false
	}
	fn()
	return true
}

// Select selects the listed dataset with id.
func (s *EntityStore) Select(id int64) (*models.Dataset, error) {
	ds, ok := s.Find(id)
	if !ok {
		return nil, fmt.Errorf("dataset %d: %w", id, apperrors.ErrNotFound)
	}
	s.SelectDataset(ds)
	return &ds, nil
}

// SelectDataset selects ds whether or not it is listed yet.
func (s *EntityStore) SelectDataset(ds models.Dataset) {
	s.apply(func(st storeState) storeState { return withSelected(st, ds) })
}

// Clear drops the selection.
func (s *EntityStore) Clear() {
	s.apply(withoutSelection)
}

// Remove deletes the dataset on the service, then drops it locally.
// The returned error is the gateway's; a dependent-versions refusal
// satisfies errors.Is(err, apperrors.ErrDependentVersions).
func (s *EntityStore) Remove(ctx context.Context, id int64) error {
	if _, err := s.svc.DeleteDataset(ctx, id); err != nil {
		return err
	}
	s.apply(func(st storeState) storeState { return withoutDataset(st, id) })
	s.logger.Info("Removed dataset", zap.Int64("dataset_id", id))
	return nil
}

// apply runs a transition and notifies hooks when the selected id changed.
// Fetches pinned through beginForSelected wait until every hook has returned.
func (s *EntityStore) apply(transition func(storeState) storeState) {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	prev := s.state.selected
	s.state = transition(s.state)
	next := s.state.selected
	hooks := append([]SelectHook(nil), s.hooks...)
	s.mu.Unlock()

	prevID, nextID := storeState{selected: prev}.selectedID(), storeState{selected: next}.selectedID()
	if prevID == nextID {
		return
	}

	s.logger.Debug("Selection changed", zap.Int64("from", prevID), zap.Int64("to", nextID))
	for _, hook := range hooks {
		hook(copyDataset(prev), copyDataset(next))
	}
}

func copyDataset(d *models.Dataset) *models.Dataset {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
