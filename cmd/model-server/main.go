// The model-server command serves category predictions for one budget from
// its production model. The serve-models supervisor spawns one of these per
// budget.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/svanherk/bunqynab/internal/app"
	"github.com/svanherk/bunqynab/internal/serving"
)

func main() {
	budgetID := flag.String("budget", "", "budget id to serve predictions for")
	port := flag.Int("port", 0, "port to listen on")
	flag.Parse()

	if *budgetID == "" || *port == 0 {
		fmt.Fprintln(os.Stderr, "usage: model-server -budget <id> -port <port>")
		os.Exit(2)
	}

	a, err := app.Bootstrap("model-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := run(a, *budgetID, *port); err != nil {
		a.Logger.Fatal().Err(err).Str("budget", *budgetID).Msg("model server failed")
	}
}

func run(a *app.App, budgetID string, port int) error {
	server := serving.NewServer(budgetID, a.Registry, a.Flags, a.Bunq.Payments, a.Logger)
	if err := server.Load(); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", httpServer.Addr).Str("budget", budgetID).Msg("model server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
