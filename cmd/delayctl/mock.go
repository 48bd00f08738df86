package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/delayboard/internal/catalog"
	"github.com/abelbrown/delayboard/internal/logging"
	"github.com/abelbrown/delayboard/internal/mockapi"
)

func mockCmd() *cobra.Command {
	var (
		addr  string
		empty bool
	)
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve a seeded fake backend for local dashboards",
		Long: "Serve the dashboard API from memory. Point the dashboard at it with\n" +
			"DELAYBOARD_API_URL=http://localhost:8080",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := mockapi.New()
			if !empty {
				srv.Seed(catalog.Default().Codes())
			}

			hs := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- hs.ListenAndServe()
			}()
			logging.Info("Mock backend listening", "addr", addr, "seeded", !empty)
			cmd.Printf("Mock backend listening on %s\n", addr)

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := hs.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().BoolVar(&empty, "empty", false, "Start with no data")
	return cmd
}
