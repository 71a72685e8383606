package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const generatePath = "/api/annotations/generate"

// maxErrorBody bounds how much of a failure response is kept for the error
// message.
const maxErrorBody = 4 << 10

// Config holds settings for the HTTP generation client.
type Config struct {
	// BaseURL is the endpoint root, e.g. "http://localhost:8787".
	BaseURL string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
}

// HTTPClient streams annotation text from a generation endpoint over a
// chunked HTTP response.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewHTTPClient creates a client for the endpoint at cfg.BaseURL.
//
// The underlying http.Client carries no timeout: a generation stream stays
// open for as long as the model keeps producing, and revocation arrives
// through the request context instead.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Generate implements Client.
func (c *HTTPClient) Generate(ctx context.Context, req Request, onChunk func(string) error) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/plain")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// The transport wraps revocation in a url.Error; callers need the
		// bare context error to tell cancellation from genuine failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("generation request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return ErrMissingBody
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TransportError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	return readChunks(ctx, resp.Body, onChunk)
}

// readChunks forwards each read of r to onChunk as decoded text. Bytes of a
// rune split across reads are carried until its remainder arrives; a carry
// still pending at end-of-stream is flushed as a final fragment.
func readChunks(ctx context.Context, r io.Reader, onChunk func(string) error) error {
	var dec chunkDecoder
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if text := dec.decode(buf[:n]); text != "" {
				if cbErr := onChunk(text); cbErr != nil {
					return cbErr
				}
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			if tail := dec.flush(); tail != "" {
				if cbErr := onChunk(tail); cbErr != nil {
					return cbErr
				}
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to read generation stream: %w", err)
	}
}
