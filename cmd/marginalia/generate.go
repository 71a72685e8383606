package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/osmia/marginalia/internal/engine"
	"github.com/osmia/marginalia/internal/model"
	"github.com/osmia/marginalia/internal/stream"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Stream an AI annotation for one record to stdout",
		Long: `Generate requests an annotation for a single record and streams it to
stdout as it arrives. Ctrl-C cancels the stream; text received up to that
point is kept and the command still exits cleanly.`,
		RunE: runGenerate,
	}

	cmd.Flags().String("kind", "", fmt.Sprintf("entity kind (%v)", model.EntityKinds()))
	cmd.Flags().String("entity", "", "entity identifier")
	cmd.Flags().StringArray("context", nil, "context forwarded to the model (key=value, repeatable)")
	cmd.Flags().String("base-url", defaultBaseURL, "generation endpoint base URL")
	cmd.Flags().String("api-key", "", "bearer token for the generation endpoint")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	kind := model.EntityKind(cmd.Flag("kind").Value.String())
	entityID := cmd.Flag("entity").Value.String()

	pairs, err := cmd.Flags().GetStringArray("context")
	if err != nil {
		return err
	}
	extra, err := parseContextPairs(pairs)
	if err != nil {
		return err
	}

	client, err := stream.NewHTTPClient(generationConfig(cmd))
	if err != nil {
		return err
	}

	store, err := openArchive(cmd.Context())
	if err != nil {
		return err
	}
	cfg := engine.Config{}
	if store != nil {
		cfg.Archive = store
		defer func() { _ = store.Close() }()
	}

	eng, err := engine.NewWithConfig(client, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	return streamToStdout(cmd.Context(), eng, kind, entityID, extra)
}

// streamToStdout drives one generation and prints each text delta as the
// store changes, returning once the annotation settles.
func streamToStdout(ctx context.Context, eng *engine.AnnotationEngine, kind model.EntityKind, entityID string, extra map[string]any) error {
	changes, stopWatch := eng.Watch()
	defer stopWatch()

	annotationID, err := eng.Generate(kind, entityID, extra)
	if err != nil {
		return err
	}

	interrupt := ctx.Done()
	printed := 0
	for {
		select {
		case <-interrupt:
			// First interrupt revokes the stream; the loop keeps draining
			// until the annotation settles with its partial text.
			eng.CancelActive()
			interrupt = nil
		case <-changes:
		}

		ann, ok := eng.Get(entityID)
		if !ok || ann.ID != annotationID {
			return fmt.Errorf("annotation for %s was replaced mid-stream", entityID)
		}
		if len(ann.Text) > printed {
			fmt.Fprint(os.Stdout, ann.Text[printed:])
			printed = len(ann.Text)
		}
		if !ann.IsStreaming {
			fmt.Fprintln(os.Stdout)
			if msg, failed := eng.LastError(); failed {
				return fmt.Errorf("generation failed: %s", msg)
			}
			return nil
		}
	}
}
