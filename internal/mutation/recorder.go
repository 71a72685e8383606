// Package mutation records optimistic mutations so hosts can render
// per-entity sync state: what is in flight, what failed, what settled.
package mutation

import (
	"sort"
	"sync"
	"time"

	"github.com/osmia/marginalia/internal/engine"
)

// State describes where a tracked mutation currently stands.
type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Mutation is the tracked record of one optimistic change.
type Mutation struct {
	StartedAt time.Time
	SettledAt time.Time
	Proposed  any
	Prior     any
	// Reason carries the failure cause when State is StateFailed.
	Reason error
	Key    string
	Kind   string
	State  State
}

// Recorder is an in-memory engine.MutationTracker keeping the latest record
// per key. Start replaces whatever record a key had; Complete and Fail apply
// last-writer-wins, so a stale attempt failing after its replacement started
// leaves at most a transient blip, never a stuck state.
type Recorder struct {
	mu    sync.Mutex
	byKey map[string]Mutation
}

var _ engine.MutationTracker = (*Recorder)(nil)

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{byKey: make(map[string]Mutation)}
}

// StartMutation implements engine.MutationTracker.
func (r *Recorder) StartMutation(key, kind string, proposed, prior any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[key] = Mutation{
		Key:       key,
		Kind:      kind,
		Proposed:  proposed,
		Prior:     prior,
		State:     StatePending,
		StartedAt: time.Now(),
	}
}

// CompleteMutation implements engine.MutationTracker. Unknown keys are ignored.
func (r *Recorder) CompleteMutation(key string) {
	r.settle(key, StateCompleted, nil)
}

// FailMutation implements engine.MutationTracker. Unknown keys are ignored.
func (r *Recorder) FailMutation(key string, reason error) {
	r.settle(key, StateFailed, reason)
}

func (r *Recorder) settle(key string, state State, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byKey[key]
	if !ok {
		return
	}
	m.State = state
	m.Reason = reason
	m.SettledAt = time.Now()
	r.byKey[key] = m
}

// Get returns the latest record for a key.
func (r *Recorder) Get(key string) (Mutation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byKey[key]
	return m, ok
}

// Pending returns every in-flight mutation, oldest first.
func (r *Recorder) Pending() []Mutation {
	return r.byState(StatePending)
}

// Failed returns every failed mutation, oldest first.
func (r *Recorder) Failed() []Mutation {
	return r.byState(StateFailed)
}

func (r *Recorder) byState(state State) []Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Mutation
	for _, m := range r.byKey {
		if m.State == state {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Len returns the number of tracked keys.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}

// Reset drops every record.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey = make(map[string]Mutation)
}
