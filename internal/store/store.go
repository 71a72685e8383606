// Package store holds the live annotation state shared between the engine
// and its hosts.
//
// Every mutation replaces the underlying map instead of editing it in place,
// so a snapshot handed out earlier never changes underneath its holder. Hosts
// detect change cheaply by comparing Version or by draining the Watch channel
// and re-reading.
package store

import (
	"sync"

	"github.com/osmia/marginalia/internal/model"
)

// Store owns the live entityID to annotation map plus the engine-level error
// slot. All methods are safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	annotations map[string]model.Annotation
	watchers    map[int]chan struct{}
	lastErr     string
	version     uint64
	nextWatcher int
	hasErr      bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		annotations: make(map[string]model.Annotation),
		watchers:    make(map[int]chan struct{}),
	}
}

// Upsert inserts or replaces the live annotation for an entity.
func (s *Store) Upsert(entityID string, ann model.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.copyWith(entityID, ann)
	s.commitLocked(next)
}

// UpsertIf replaces the live annotation for an entity only when the slot
// currently holds the annotation identified by expectID. It reports whether
// the write was applied. Streaming loops use it so a stale attempt can never
// clobber a newer one or resurrect a cleared entity.
func (s *Store) UpsertIf(entityID, expectID string, ann model.Annotation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.annotations[entityID]
	if !ok || cur.ID != expectID {
		return false
	}
	next := s.copyWith(entityID, ann)
	s.commitLocked(next)
	return true
}

// Update applies fn to the live annotation for an entity as a single atomic
// read-modify-write. It reports false when no annotation is live for the
// entity. fn must not call back into the store.
func (s *Store) Update(entityID string, fn func(model.Annotation) model.Annotation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.annotations[entityID]
	if !ok {
		return false
	}
	next := s.copyWith(entityID, fn(cur))
	s.commitLocked(next)
	return true
}

// Remove deletes the live annotation for an entity and returns it. A missing
// entity reports false and leaves the store untouched.
func (s *Store) Remove(entityID string) (model.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.annotations[entityID]
	if !ok {
		return model.Annotation{}, false
	}
	next := make(map[string]model.Annotation, len(s.annotations))
	for k, v := range s.annotations {
		if k != entityID {
			next[k] = v
		}
	}
	s.commitLocked(next)
	return cur, true
}

// Get returns the live annotation for an entity.
func (s *Store) Get(entityID string) (model.Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ann, ok := s.annotations[entityID]
	return ann, ok
}

// Snapshot returns the current annotation map. The returned map is never
// mutated after it is handed out; callers must treat it as read-only.
func (s *Store) Snapshot() map[string]model.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.annotations
}

// Len returns the number of live annotations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.annotations)
}

// Version returns a counter that increments on every observable change,
// including error slot updates. Two equal versions mean nothing changed
// in between.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SetError records the most recent engine-level failure message.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = msg
	s.hasErr = true
	s.version++
	s.notifyLocked()
}

// ClearError dismisses the recorded failure message, if any.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasErr {
		return
	}
	s.lastErr = ""
	s.hasErr = false
	s.version++
	s.notifyLocked()
}

// LastError returns the recorded failure message and whether one is set.
func (s *Store) LastError() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr, s.hasErr
}

// Watch registers a change listener. The returned channel carries a coalesced
// signal: at least one receive is pending after any change, and the listener
// re-reads the store rather than receiving payloads. The cancel function
// releases the registration and closes the channel.
func (s *Store) Watch() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextWatcher
	s.nextWatcher++
	ch := make(chan struct{}, 1)
	s.watchers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(c)
		}
	}
	return ch, cancel
}

// copyWith builds the successor map with one slot replaced. Callers must hold mu.
func (s *Store) copyWith(entityID string, ann model.Annotation) map[string]model.Annotation {
	next := make(map[string]model.Annotation, len(s.annotations)+1)
	for k, v := range s.annotations {
		next[k] = v
	}
	next[entityID] = ann
	return next
}

// commitLocked swaps in the successor map and wakes watchers. Callers must hold mu.
func (s *Store) commitLocked(next map[string]model.Annotation) {
	s.annotations = next
	s.version++
	s.notifyLocked()
}

// notifyLocked delivers a non-blocking signal to every watcher. Sends happen
// under mu, the same lock cancel closes under, so a send can never race a close.
func (s *Store) notifyLocked() {
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
