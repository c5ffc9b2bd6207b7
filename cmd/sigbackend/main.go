// sigbackend serves the reference delivery confirmation endpoint for
// trying a station without the real backend.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/juruen/sigpad/backend"
	"github.com/juruen/sigpad/log"
)

func newRoot() *cobra.Command {
	var (
		addr     string
		cfg      backend.Config
		logLevel string
	)

	cmd := &cobra.Command{
		Use:           "sigbackend",
		Short:         "reference delivery confirmation endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Init(logLevel, false)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, addr, backend.New(cfg))
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&cfg.Path, "path", backend.DefaultPath, "confirmation route")
	cmd.Flags().StringVar(&cfg.SignatureField, "signature-field", backend.DefaultSignatureField, "signature field name")
	cmd.Flags().StringVar(&cfg.DeliveryTypeField, "delivery-type-field", backend.DefaultDeliveryTypeField, "delivery type field name")
	cmd.Flags().StringVar(&cfg.DeliveryType, "delivery-type", backend.DefaultDeliveryType, "accepted delivery type")
	cmd.Flags().StringVar(&cfg.Token, "token", os.Getenv("SIGPAD_TOKEN"), "required bearer token")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}

func serve(ctx context.Context, addr string, s *backend.Server) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info.Printf("listening on %s", addr)
		if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info.Println("shutting down")
		return s.Echo.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func main() {
	if err := newRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sigbackend:", err)
		os.Exit(1)
	}
}
