package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/osmia/marginalia/internal/model"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived annotations",
		Long: `History reads the annotation archive. Only cleanly completed
generations are archived; cancelled and failed attempts never appear here.`,
		RunE: runHistory,
	}

	cmd.Flags().String("entity", "", "show annotations for one entity")
	cmd.Flags().Int("limit", 20, "maximum annotations to list")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	entityID, _ := cmd.Flags().GetString("entity")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := openArchive(cmd.Context())
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no archive configured: set --db")
	}
	defer func() { _ = store.Close() }()

	var annotations []model.Annotation
	if entityID != "" {
		annotations, err = store.History(cmd.Context(), entityID, limit)
	} else {
		annotations, err = store.Recent(cmd.Context(), limit)
	}
	if err != nil {
		return err
	}

	if len(annotations) == 0 {
		fmt.Println("No archived annotations.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tKIND\tENTITY\tTEXT")
	for _, ann := range annotations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			ann.CreatedAt.Format("2006-01-02 15:04"),
			ann.EntityKind,
			ann.EntityID,
			truncate(ann.Text, 72))
	}
	return w.Flush()
}

// truncate trims s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
