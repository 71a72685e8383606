package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/osmia/marginalia/internal/archive"
	"github.com/osmia/marginalia/internal/common"
	"github.com/osmia/marginalia/internal/stream"
)

// defaultBaseURL points generation at the local dev server.
const defaultBaseURL = "http://localhost:8787"

// generationConfig resolves the endpoint settings: an explicitly set flag
// wins, then config file / environment, then the dev server default.
func generationConfig(cmd *cobra.Command) stream.Config {
	cfg := stream.Config{
		BaseURL: viper.GetString("generation.base_url"),
		APIKey:  viper.GetString("generation.api_key"),
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL, _ = cmd.Flags().GetString("base-url")
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey, _ = cmd.Flags().GetString("api-key")
	}
	return cfg
}

// parseContextPairs turns repeated key=value flags into the opaque context
// map forwarded to the generation endpoint.
func parseContextPairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid context pair %q: expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

// openArchive opens and migrates the configured annotation archive. An empty
// path disables archiving and returns nil.
func openArchive(ctx context.Context) (*archive.Store, error) {
	path := viper.GetString("archive.path")
	if path == "" {
		return nil, nil
	}

	store, err := archive.New(common.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation archive: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate annotation archive: %w", err)
	}
	return store, nil
}
