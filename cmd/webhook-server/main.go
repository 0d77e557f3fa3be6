// The webhook-server command receives bunq payment callbacks and books
// categorized transactions into the matching budgets. Predictions are routed
// to the per-budget model servers through the persisted port map.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/svanherk/bunqynab/internal/app"
	"github.com/svanherk/bunqynab/internal/ingest"
)

func main() {
	a, err := app.Bootstrap("webhook-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := run(a); err != nil {
		a.Logger.Fatal().Err(err).Msg("webhook server failed")
	}
}

func run(a *app.App) error {
	gateway := ingest.NewGateway(
		a.Ynab.Accounts,
		a.Ynab.Categories,
		a.Ynab.Transactions,
		ingest.NewPortResolver(a.Ports),
		a.Config.Currency,
		a.Logger,
	)

	if a.Config.Hostname != "" {
		callbackURL := fmt.Sprintf("https://%s:%d/receive-transaction", a.Config.Hostname, a.Config.Port)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := a.Bunq.Callbacks.Ensure(ctx, callbackURL, "MUTATION")
		cancel()
		if err != nil {
			return err
		}
		a.Logger.Info().Str("url", callbackURL).Msg("callback registered")
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", a.Config.Host, a.Config.Port),
		Handler: gateway.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", server.Addr).Msg("webhook server listening")
		if a.Config.TLSCert != "" && a.Config.TLSKey != "" {
			errCh <- server.ListenAndServeTLS(a.Config.TLSCert, a.Config.TLSKey)
		} else {
			errCh <- server.ListenAndServe()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	gateway.Wait()
	return nil
}
