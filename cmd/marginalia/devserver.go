package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/osmia/marginalia/internal/devserver"
)

func devServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run a local generation endpoint streaming canned annotations",
		RunE:  runDevServer,
	}

	cmd.Flags().String("addr", devserver.DefaultAddr, "listen address")
	cmd.Flags().Duration("interval", 60*time.Millisecond, "pause between streamed chunks")

	return cmd
}

func runDevServer(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	interval, _ := cmd.Flags().GetDuration("interval")

	server := devserver.New(devserver.Config{
		Addr:          addr,
		ChunkInterval: interval,
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-cmd.Context().Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
