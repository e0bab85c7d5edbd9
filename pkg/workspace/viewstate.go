package workspace

import (
	"sync"

	"github.com/Dimash999666/data-quality-platform/pkg/apperrors"
)

// Status is the lifecycle state of a ViewState.
type Status int

const (
	// StatusIdle means nothing has been requested for the current identity.
	StatusIdle Status = iota
	// StatusLoading means a request is in flight.
	StatusLoading
	// StatusReady means the latest request succeeded.
	StatusReady
	// StatusError means the latest request failed.
	StatusError
)

// String returns a human-readable string for the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Ticket identifies one request issued against a ViewState.
// Only the holder of the most recent ticket may complete the state.
type Ticket struct {
	Key        string
	generation uint64
}

// Snapshot is a point-in-time copy of a ViewState.
type Snapshot[T any] struct {
	Status Status
	Key    string
	Value  T
	Err    error
}

// Ready reports whether the snapshot holds a value for key.
func (s Snapshot[T]) Ready(key string) bool {
	return s.Status == StatusReady && s.Key == key
}

// ViewState holds the result of one asynchronous fetch, tagged with the
// identity it was fetched for. Responses carrying a stale ticket are dropped.
type ViewState[T any] struct {
	mu         sync.RWMutex
	status     Status
	key        string
	value      T
	hasValue   bool
	err        error
	generation uint64
}

// Begin moves the state to loading for key and returns the ticket the
// response must present. Any earlier ticket is superseded. The previous
// value stays visible only when keepPrevious is set and the key is unchanged.
func (v *ViewState[T]) Begin(key string, keepPrevious bool) Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.generation++
	if !keepPrevious || key != v.key {
		var zero T
		v.value = zero
		v.hasValue = false
	}
	v.key = key
	v.err = nil
	v.status = StatusLoading

	return Ticket{Key: key, generation: v.generation}
}

// Resolve stores value if t is still current, otherwise returns ErrSuperseded.
func (v *ViewState[T]) Resolve(t Ticket, value T) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.currentLocked(t) {
		return apperrors.ErrSuperseded
	}
	v.value = value
	v.hasValue = true
	v.err = nil
	v.status = StatusReady
	return nil
}

// Fail records err if t is still current, otherwise returns ErrSuperseded.
func (v *ViewState[T]) Fail(t Ticket, err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.currentLocked(t) {
		return apperrors.ErrSuperseded
	}
	var zero T
	v.value = zero
	v.hasValue = false
	v.err = err
	v.status = StatusError
	return nil
}

// Current reports whether t is the latest ticket issued.
func (v *ViewState[T]) Current(t Ticket) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.currentLocked(t)
}

func (v *ViewState[T]) currentLocked(t Ticket) bool {
	return t.generation == v.generation && t.Key == v.key && v.status == StatusLoading
}

// Invalidate discards value, error and any in-flight ticket.
func (v *ViewState[T]) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.generation++
	var zero T
	v.value = zero
	v.hasValue = false
	v.err = nil
	v.key = ""
	v.status = StatusIdle
}

// Snapshot returns a copy of the current state.
func (v *ViewState[T]) Snapshot() Snapshot[T] {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return Snapshot[T]{Status: v.status, Key: v.key, Value: v.value, Err: v.err}
}

// Value returns the ready value for key.
func (v *ViewState[T]) Value(key string) (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.status != StatusReady || v.key != key || !v.hasValue {
		var zero T
		return zero, false
	}
	return v.value, true
}

// Status returns the current status.
func (v *ViewState[T]) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status
}

// Abandon returns the state to idle if t is still current.
// Used when the caller gave up before the response arrived.
func (v *ViewState[T]) Abandon(t Ticket) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.currentLocked(t) {
		return
	}
	v.generation++
	v.key = ""
	v.status = StatusIdle
}
