package registry

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/abdul-hamid-achik/partest/packages/core/capture"
	"github.com/abdul-hamid-achik/partest/packages/core/status"
)

// ErrSealed is returned when registering into a registry that a run has
// already started on.
var ErrSealed = errors.New("registry is sealed")

// ErrBusy is returned by Begin while an earlier run is still dispatching or
// any of its tests are still executing.
var ErrBusy = errors.New("registry has tests still running")

// Test describes one registered test. Only its state changes after
// registration.
type Test struct {
	Name  string
	Func  capture.Func
	Arg   any
	Level int

	state status.State
}

// State returns the outcome recorded by the last run. It must only be read
// once the run that wrote it has completed.
func (t *Test) State() status.State {
	return t.state
}

// SetState records an outcome. Each run writes a test's state once.
func (t *Test) SetState(s status.State) {
	t.state = s
}

// Registry is an ordered, append-only collection of tests.
type Registry struct {
	mu     sync.RWMutex
	tests  []*Test
	sealed bool

	active   bool
	inflight int
}

// Default is the process-wide registry used by Register and the CLI.
var Default = New()

func New() *Registry {
	return &Registry{}
}

// Register adds a test to Default and returns the stored descriptor.
func Register(t Test) *Test {
	return Default.MustRegister(t)
}

// Add registers t. The state of the stored descriptor starts Unset.
func (r *Registry) Add(t Test) (*Test, error) {
	if t.Name == "" {
		return nil, errors.New("test name is required")
	}
	if t.Func == nil {
		return nil, errors.New("test " + t.Name + " has no function")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, ErrSealed
	}

	stored := t
	stored.state = status.Unset
	r.tests = append(r.tests, &stored)
	return &stored, nil
}

// MustRegister is Add for init-time registration; it panics on error.
func (r *Registry) MustRegister(t Test) *Test {
	stored, err := r.Add(t)
	if err != nil {
		panic("registry: " + err.Error())
	}
	return stored
}

// All yields every test in registration order. The sequence can be iterated
// any number of times.
func (r *Registry) All() iter.Seq[*Test] {
	return func(yield func(*Test) bool) {
		r.mu.RLock()
		tests := r.tests
		r.mu.RUnlock()

		for _, t := range tests {
			if !yield(t) {
				return
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tests)
}

// Lookup returns the first test registered under name.
func (r *Registry) Lookup(name string) (*Test, bool) {
	for t := range r.All() {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Seal stops further registration.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Reset clears every recorded state so the registry can be run again. It
// must not be called while a run is in progress; runs use Begin instead.
func (r *Registry) Reset() {
	for t := range r.All() {
		t.state = status.Unset
	}
}

// Begin seals the registry, clears every state and marks a run as active.
// It fails with ErrBusy while another run is active or tests launched by an
// earlier run have not finished. Every successful Begin must be paired with
// End.
func (r *Registry) Begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active || r.inflight > 0 {
		return fmt.Errorf("%w: %d tests", ErrBusy, r.inflight)
	}
	r.active = true
	r.sealed = true
	for _, t := range r.tests {
		t.state = status.Unset
	}
	return nil
}

// End marks the active run as no longer dispatching or waiting. Tests it
// launched may still be executing; they are released through Finished.
func (r *Registry) End() {
	r.mu.Lock()
	r.active = false
	r.mu.Unlock()
}

// Launched counts one more executing test.
func (r *Registry) Launched() {
	r.mu.Lock()
	r.inflight++
	r.mu.Unlock()
}

// Finished releases a test counted by Launched. Its state must be written
// before the call.
func (r *Registry) Finished() {
	r.mu.Lock()
	r.inflight--
	r.mu.Unlock()
}

// InFlight returns the number of launched tests that have not finished.
func (r *Registry) InFlight() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inflight
}
