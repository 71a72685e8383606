package devserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmia/marginalia/internal/model"
	"github.com/osmia/marginalia/internal/stream"
)

func newTestServer(t *testing.T, interval time.Duration) *httptest.Server {
	t.Helper()
	s := New(Config{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		ChunkInterval: interval,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, baseURL string) *stream.HTTPClient {
	t.Helper()
	c, err := stream.NewHTTPClient(stream.Config{BaseURL: baseURL})
	require.NoError(t, err)
	return c
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, time.Millisecond)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGenerateStreamsFullScript(t *testing.T) {
	ts := newTestServer(t, time.Millisecond)
	client := newTestClient(t, ts.URL)

	req := stream.Request{
		EntityKind: model.KindTransaction,
		EntityID:   "txn-1",
		Context:    map[string]any{"merchant": "Café Olimpico"},
	}

	var got strings.Builder
	err := client.Generate(context.Background(), req, func(text string) error {
		got.WriteString(text)
		return nil
	})
	require.NoError(t, err)

	want := strings.Join(Script(model.KindTransaction, "txn-1", map[string]any{"merchant": "Café Olimpico"}), "")
	assert.Equal(t, want, got.String())
	assert.Contains(t, got.String(), "Café Olimpico")
}

func TestGenerateHonorsCancellation(t *testing.T) {
	ts := newTestServer(t, 50*time.Millisecond)
	client := newTestClient(t, ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	var chunks int
	err := client.Generate(ctx, stream.Request{
		EntityKind: model.KindBudget,
		EntityID:   "bud-1",
	}, func(string) error {
		chunks++
		if chunks == 2 {
			cancel()
		}
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, chunks, len(Script(model.KindBudget, "bud-1", nil)),
		"cancellation must stop the stream before the script ends")
}

func TestGenerateRejectsUnknownKind(t *testing.T) {
	ts := newTestServer(t, time.Millisecond)
	client := newTestClient(t, ts.URL)

	err := client.Generate(context.Background(), stream.Request{
		EntityKind: model.EntityKind("invoice"),
		EntityID:   "x",
	}, func(string) error { return nil })

	var transportErr *stream.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusBadRequest, transportErr.StatusCode)
	assert.Contains(t, transportErr.Body, "unknown entity kind")
}

func TestGenerateRequiresEntityID(t *testing.T) {
	ts := newTestServer(t, time.Millisecond)
	client := newTestClient(t, ts.URL)

	err := client.Generate(context.Background(), stream.Request{
		EntityKind: model.KindReceipt,
	}, func(string) error { return nil })

	var transportErr *stream.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusBadRequest, transportErr.StatusCode)
}

func TestScriptIsDeterministicAndReassembles(t *testing.T) {
	for _, kind := range model.EntityKinds() {
		a := Script(kind, "e-1", nil)
		b := Script(kind, "e-1", nil)
		require.Equal(t, a, b, "script for %s must be deterministic", kind)
		assert.NotEmpty(t, strings.Join(a, ""))
	}
}

func TestScriptUsesContextHints(t *testing.T) {
	withHint := strings.Join(Script(model.KindBudget, "b", map[string]any{"category": "travel"}), "")
	assert.Contains(t, withHint, "travel")

	without := strings.Join(Script(model.KindBudget, "b", nil), "")
	assert.NotContains(t, without, "travel")
}
