package workspace

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dimash999666/data-quality-platform/pkg/apperrors"
	"github.com/Dimash999666/data-quality-platform/pkg/models"
)

// listService serves a fixed dataset list and counts calls.
type listService struct {
	Service

	mu       sync.Mutex
	datasets []models.Dataset
	calls    atomic.Int32
	gate     chan struct{}
	deleteFn func(id int64) error
}

func (s *listService) ListDatasets(ctx context.Context) ([]models.Dataset, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Dataset(nil), s.datasets...), nil
}

func (s *listService) DeleteDataset(ctx context.Context, id int64) (*models.DeleteResponse, error) {
	if s.deleteFn != nil {
		if err := s.deleteFn(id); err != nil {
			return nil, err
		}
	}
	return &models.DeleteResponse{DeletedID: id}, nil
}

func (s *listService) set(list ...models.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets = list
}

var (
	dsA = models.Dataset{ID: 1, Name: "a.csv", Version: 1}
	dsB = models.Dataset{ID: 2, Name: "b.csv", Version: 1}
	dsC = models.Dataset{ID: 3, Name: "a_v2.csv", Version: 2}
)

func TestWithDatasets_KeepsListedSelection(t *testing.T) {
	st := withSelected(storeState{}, dsA)

	renamed := dsA
	renamed.TotalRows = 99
	next := withDatasets(st, []models.Dataset{renamed, dsB})

	require.NotNil(t, next.selected)
	assert.Equal(t, int64(1), next.selected.ID)
	assert.Equal(t, 99, next.selected.TotalRows)
	assert.Len(t, next.datasets, 2)
}

func TestWithDatasets_DropsVanishedSelection(t *testing.T) {
	st := withSelected(storeState{}, dsA)
	next := withDatasets(st, []models.Dataset{dsB})
	assert.Nil(t, next.selected)
}

func TestWithSelected_AddsUnlisted(t *testing.T) {
	st := storeState{datasets: []models.Dataset{dsA}}
	next := withSelected(st, dsB)

	assert.Len(t, next.datasets, 2)
	assert.Len(t, st.datasets, 1, "input state must not change")
	assert.Equal(t, int64(2), next.selectedID())
}

func TestWithoutDataset(t *testing.T) {
	st := withSelected(storeState{datasets: []models.Dataset{dsA, dsB}}, dsA)

	next := withoutDataset(st, dsB.ID)
	assert.Equal(t, int64(1), next.selectedID())
	assert.Len(t, next.datasets, 1)

	next = withoutDataset(st, dsA.ID)
	assert.Nil(t, next.selected)
	assert.Equal(t, []models.Dataset{dsB}, next.datasets)
}

func TestEntityStore_LoadPreservesOrder(t *testing.T) {
	svc := &listService{}
	svc.set(dsB, dsA, dsC)
	store := NewEntityStore(svc, nil)

	list, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 3}, ids(list))
}

func TestEntityStore_LoadClearsVanishedSelection(t *testing.T) {
	svc := &listService{}
	svc.set(dsA, dsB)
	store := NewEntityStore(svc, nil)
	ctx := context.Background()

	_, err := store.Load(ctx)
	require.NoError(t, err)
	_, err = store.Select(dsA.ID)
	require.NoError(t, err)

	var events [][2]int64
	store.OnSelect(func(prev, next *models.Dataset) {
		events = append(events, [2]int64{idOf(prev), idOf(next)})
	})

	_, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, store.IsSelected(dsA.ID))
	assert.Empty(t, events, "reload that keeps the selection must not fire hooks")

	svc.set(dsB)
	_, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, store.Selected())
	assert.Equal(t, [][2]int64{{1, 0}}, events)
}

func TestEntityStore_LoadCoalescesConcurrentCalls(t *testing.T) {
	svc := &listService{gate: make(chan struct{})}
	svc.set(dsA)
	store := NewEntityStore(svc, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Load(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return svc.calls.Load() == 1 }, waitFor, pollEvery)
	close(svc.gate)
	wg.Wait()

	assert.LessOrEqual(t, svc.calls.Load(), int32(5))
	assert.Len(t, store.Datasets(), 1)
}

func TestEntityStore_SelectUnknown(t *testing.T) {
	store := NewEntityStore(&listService{}, nil)
	_, err := store.Select(42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, store.Selected())
}

func TestEntityStore_HooksOnIdentityChangeOnly(t *testing.T) {
	svc := &listService{}
	svc.set(dsA, dsB)
	store := NewEntityStore(svc, nil)
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	var events [][2]int64
	store.OnSelect(func(prev, next *models.Dataset) {
		events = append(events, [2]int64{idOf(prev), idOf(next)})
	})

	_, _ = store.Select(dsA.ID)
	_, _ = store.Select(dsA.ID)
	_, _ = store.Select(dsB.ID)
	store.Clear()
	store.Clear()

	assert.Equal(t, [][2]int64{{0, 1}, {1, 2}, {2, 0}}, events)
}

func TestEntityStore_RemoveSelectedClearsSelection(t *testing.T) {
	svc := &listService{}
	svc.set(dsA, dsB)
	store := NewEntityStore(svc, nil)
	ctx := context.Background()
	_, err := store.Load(ctx)
	require.NoError(t, err)
	_, err = store.Select(dsA.ID)
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, dsA.ID))
	assert.Nil(t, store.Selected())
	assert.Equal(t, []int64{2}, ids(store.Datasets()))
}

func TestEntityStore_RemoveFailureKeepsState(t *testing.T) {
	conflict := errors.New("blocked")
	svc := &listService{deleteFn: func(int64) error { return conflict }}
	svc.set(dsA)
	store := NewEntityStore(svc, nil)
	ctx := context.Background()
	_, err := store.Load(ctx)
	require.NoError(t, err)
	_, err = store.Select(dsA.ID)
	require.NoError(t, err)

	err = store.Remove(ctx, dsA.ID)
	assert.ErrorIs(t, err, conflict)
	assert.True(t, store.IsSelected(dsA.ID))
	assert.Len(t, store.Datasets(), 1)
}

func ids(list []models.Dataset) []int64 {
	out := make([]int64, len(list))
	for i, d := range list {
		out[i] = d.ID
	}
	return out
}

func idOf(d *models.Dataset) int64 {
	if d == nil {
		return 0
	}
	return d.ID
}
