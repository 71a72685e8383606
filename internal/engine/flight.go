package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// flight is one in-flight generation attempt: the revocable handle plus the
// identity that makes the single-flight rule enforceable.
type flight struct {
	cancel   context.CancelFunc
	streamID string
	entityID string
}

// coordinator owns the single active flight. Beginning a new flight revokes
// the previous one under the same lock, so no interleaving of operations ever
// leaves two flights live.
type coordinator struct {
	mu     sync.Mutex
	active *flight
}

// begin revokes the active flight, if any, then installs a fresh one derived
// from parent. It returns the flight's context and stream identity.
func (c *coordinator) begin(parent context.Context, entityID string) (context.Context, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.cancel()
		c.active = nil
	}
	ctx, cancel := context.WithCancel(parent)
	c.active = &flight{
		cancel:   cancel,
		streamID: uuid.NewString(),
		entityID: entityID,
	}
	return ctx, c.active.streamID
}

// cancelActive revokes the active flight and reports whether one existed.
// The revoked flight settles asynchronously in its own loop.
func (c *coordinator) cancelActive() bool {
	c.mu.Lock()
	f := c.active
	c.active = nil
	c.mu.Unlock()
	if f == nil {
		return false
	}
	f.cancel()
	return true
}

// cancelFor revokes the active flight only when it belongs to entityID.
func (c *coordinator) cancelFor(entityID string) bool {
	c.mu.Lock()
	f := c.active
	if f == nil || f.entityID != entityID {
		c.mu.Unlock()
		return false
	}
	c.active = nil
	c.mu.Unlock()
	f.cancel()
	return true
}

// finish clears the slot when the flight with streamID settles. A newer
// flight that already took the slot is left alone.
func (c *coordinator) finish(streamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil && c.active.streamID == streamID {
		c.active = nil
	}
}

// activeStream returns the live stream identity, if any.
func (c *coordinator) activeStream() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return "", false
	}
	return c.active.streamID, true
}
