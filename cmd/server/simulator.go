package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/psp"
)

func simulatorCmd() *cobra.Command {
	var (
		addr      string
		waitPolls int
	)

	cmd := &cobra.Command{
		Use:   "psp-simulator",
		Short: "Run a local PSP for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           psp.NewSimulator(waitPolls, nil).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			logger.Info("psp simulator listening", map[string]any{
				"addr":       addr,
				"wait-polls": waitPolls,
			})
			return listen(ctx, srv)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9090", "listen address")
	cmd.Flags().IntVar(&waitPolls, "wait-polls", 2, "polls answered with waiting before a payment resolves")

	return cmd
}

// listen serves until ctx is cancelled, then shuts down gracefully.
func listen(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
