// Package undo implements the grace-period ledger that makes annotation
// removal reversible for a bounded window.
package undo

import (
	"sync"
	"time"

	"github.com/osmia/marginalia/internal/model"
)

// DefaultGraceWindow is how long a removed annotation stays restorable.
const DefaultGraceWindow = 5 * time.Second

// ExpireFunc is called after an entry's grace window lapses without a
// restore. It runs outside the ledger lock and may call back into the ledger.
type ExpireFunc func(entityID string, ann model.Annotation)

type entry struct {
	deadline time.Time
	timer    *time.Timer
	ann      model.Annotation
	gen      uint64
}

// Ledger holds removed annotations keyed by entity until they are taken back
// or their grace window lapses. Like the live store, every mutation replaces
// the held map rather than editing it, so Held snapshots stay stable.
//
// Each entry carries its own expiry timer, but the deadline is authoritative:
// Hold and Take also sweep lapsed entries on entry, so a slow timer can never
// make an expired annotation restorable.
type Ledger struct {
	mu       sync.Mutex
	held     map[string]entry
	onExpire ExpireFunc
	window   time.Duration
	gen      uint64
	closed   bool
}

// NewLedger creates a ledger with the given grace window. A zero or negative
// window falls back to DefaultGraceWindow. onExpire may be nil.
func NewLedger(window time.Duration, onExpire ExpireFunc) *Ledger {
	if window <= 0 {
		window = DefaultGraceWindow
	}
	return &Ledger{
		held:     make(map[string]entry),
		onExpire: onExpire,
		window:   window,
	}
}

// Window returns the configured grace window.
func (l *Ledger) Window() time.Duration {
	return l.window
}

// Hold stores a removed annotation for later restore. Holding again for the
// same entity replaces the copy and restarts its window. The held copy always
// has IsDeleting cleared: a pending-confirmation flag must not survive into a
// restore.
func (l *Ledger) Hold(entityID string, ann model.Annotation) {
	now := time.Now()
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	expired := l.sweepLocked(now)

	if prev, ok := l.held[entityID]; ok {
		prev.timer.Stop()
	}

	ann.IsDeleting = false
	l.gen++
	gen := l.gen
	e := entry{
		ann:      ann.Clone(),
		deadline: now.Add(l.window),
		gen:      gen,
		timer:    time.AfterFunc(l.window, func() { l.expire(entityID, gen) }),
	}

	next := make(map[string]entry, len(l.held)+1)
	for k, v := range l.held {
		next[k] = v
	}
	next[entityID] = e
	l.held = next
	l.mu.Unlock()

	l.fireExpired(expired)
}

// Take removes and returns the held annotation for an entity if its grace
// window is still open. A missing or lapsed entry reports false.
func (l *Ledger) Take(entityID string) (model.Annotation, bool) {
	now := time.Now()
	l.mu.Lock()
	expired := l.sweepLocked(now)

	e, ok := l.held[entityID]
	if !ok {
		l.mu.Unlock()
		l.fireExpired(expired)
		return model.Annotation{}, false
	}

	e.timer.Stop()
	l.held = l.copyWithout(entityID)
	l.mu.Unlock()

	l.fireExpired(expired)
	return e.ann, true
}

// Held returns the current held map. Callers must treat it as read-only.
func (l *Ledger) Held() map[string]model.Annotation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]model.Annotation, len(l.held))
	for k, v := range l.held {
		out[k] = v.ann
	}
	return out
}

// Deadline returns when the held entry for an entity lapses.
func (l *Ledger) Deadline(entityID string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.held[entityID]
	if !ok {
		return time.Time{}, false
	}
	return e.deadline, true
}

// Len returns the number of held entries, counting lapsed ones not yet swept.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

// Close stops every pending timer and drops all held entries without firing
// expiry callbacks. The ledger accepts no holds afterwards.
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for _, e := range l.held {
		e.timer.Stop()
	}
	l.held = make(map[string]entry)
}

// expire is the timer path. The generation guard makes a stale timer harmless:
// if the slot was taken back or re-held since this timer was armed, the
// generation no longer matches and nothing happens.
func (l *Ledger) expire(entityID string, gen uint64) {
	l.mu.Lock()
	e, ok := l.held[entityID]
	if !ok || e.gen != gen || l.closed {
		l.mu.Unlock()
		return
	}
	l.held = l.copyWithout(entityID)
	fn := l.onExpire
	l.mu.Unlock()

	if fn != nil {
		fn(entityID, e.ann)
	}
}

// sweepLocked drops every entry whose deadline has passed and returns them so
// the caller can fire callbacks after releasing the lock.
func (l *Ledger) sweepLocked(now time.Time) []expiredEntry {
	var out []expiredEntry
	for id, e := range l.held {
		if now.After(e.deadline) {
			e.timer.Stop()
			out = append(out, expiredEntry{entityID: id, ann: e.ann})
		}
	}
	if len(out) == 0 {
		return nil
	}
	next := make(map[string]entry, len(l.held))
	for id, e := range l.held {
		if !now.After(e.deadline) {
			next[id] = e
		}
	}
	l.held = next
	return out
}

type expiredEntry struct {
	entityID string
	ann      model.Annotation
}

func (l *Ledger) fireExpired(expired []expiredEntry) {
	if l.onExpire == nil {
		return
	}
	for _, e := range expired {
		l.onExpire(e.entityID, e.ann)
	}
}

func (l *Ledger) copyWithout(entityID string) map[string]entry {
	next := make(map[string]entry, len(l.held))
	for k, v := range l.held {
		if k != entityID {
			next[k] = v
		}
	}
	return next
}
