// Package stream issues annotation generation requests and delivers each
// response as ordered text chunks.
//
// The wire format is deliberately opaque: whatever bytes the endpoint writes
// arrive as text fragments in order, with multi-byte runes kept intact even
// when the transport splits them across reads. Callers accumulate; this
// package never buffers a whole response.
package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/osmia/marginalia/internal/model"
)

// Request carries one generation attempt's inputs. Context is opaque
// key/value material forwarded verbatim to the endpoint; the engine never
// interprets it.
type Request struct {
	Context    map[string]any   `json:"context,omitempty"`
	EntityKind model.EntityKind `json:"entityKind"`
	EntityID   string           `json:"entityId"`
}

// Client issues a single generation request and streams back its response.
type Client interface {
	// Generate posts req and invokes onChunk once per decoded text fragment,
	// in arrival order, from the calling goroutine. It returns nil on clean
	// end-of-stream and ctx's error when the attempt was revoked mid-flight.
	// A non-nil error from onChunk stops the read and is returned unchanged.
	Generate(ctx context.Context, req Request, onChunk func(text string) error) error
}

// ErrMissingBody indicates the endpoint reported success with nothing to
// stream.
var ErrMissingBody = errors.New("generation response has no body")

// TransportError reports a non-success response from the generation endpoint.
type TransportError struct {
	Body       string
	StatusCode int
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("generation request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("generation request failed with status %d: %s", e.StatusCode, e.Body)
}
