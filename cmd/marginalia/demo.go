package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/osmia/marginalia/internal/devserver"
	"github.com/osmia/marginalia/internal/stream"
	"github.com/osmia/marginalia/internal/tui"
)

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Interactive annotation demo",
		Long: `Demo opens an interactive view over canned records. Generate, cancel,
clear, resolve, and undo annotations from the keyboard; streams arrive from
the configured endpoint (run "marginalia dev-server" first) or, with
--offline, from a built-in scripted client.`,
		RunE: runDemo,
	}

	cmd.Flags().String("base-url", defaultBaseURL, "generation endpoint base URL")
	cmd.Flags().String("api-key", "", "bearer token for the generation endpoint")
	cmd.Flags().Bool("offline", false, "use the built-in scripted client instead of an endpoint")

	return cmd
}

func runDemo(cmd *cobra.Command, _ []string) error {
	var client stream.Client
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		client = &stream.MockClient{
			ChunksFunc: func(req stream.Request) []string {
				return devserver.Script(req.EntityKind, req.EntityID, req.Context)
			},
			Interval: 60 * time.Millisecond,
		}
	} else {
		httpClient, err := stream.NewHTTPClient(generationConfig(cmd))
		if err != nil {
			return err
		}
		client = httpClient
	}

	cfg := tui.Config{Client: client}
	store, err := openArchive(cmd.Context())
	if err != nil {
		return err
	}
	if store != nil {
		cfg.Archive = store
		defer func() { _ = store.Close() }()
	}

	return tui.Run(cmd.Context(), cfg)
}
