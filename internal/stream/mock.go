package stream

import (
	"context"
	"sync"
	"time"
)

// MockClient is a scripted Client for tests and offline demos. It never
// touches the network: chunks come from Chunks or ChunksFunc, are delivered
// at Interval, and revocation is honored between chunks.
type MockClient struct {
	// ChunksFunc, when set, derives the script from the request. It takes
	// precedence over Chunks.
	ChunksFunc func(req Request) []string
	// Err, when set, terminates the stream after the final chunk.
	Err error
	// Chunks is the default script.
	Chunks []string
	// Interval is the pause before each chunk. Zero delivers immediately.
	Interval time.Duration

	mu    sync.Mutex
	calls []Request
}

// Generate implements Client.
func (m *MockClient) Generate(ctx context.Context, req Request, onChunk func(string) error) error {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	script := m.Chunks
	if m.ChunksFunc != nil {
		script = m.ChunksFunc(req)
	}
	interval := m.Interval
	terminal := m.Err
	m.mu.Unlock()

	for _, chunk := range script {
		if interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return terminal
}

// GetCalls returns a copy of every request seen so far.
func (m *MockClient) GetCalls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears the recorded requests.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
