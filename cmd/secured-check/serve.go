package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tbudis/secured"
)

const shutdownTimeout = 10 * time.Second

func (a *app) handler() (http.Handler, error) {
	m, err := secured.New(
		secured.WithAuthorizer(a.authorizer),
		secured.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /check", m.ProtectFunc(a.requirement, func(w http.ResponseWriter, r *http.Request) {
		identity := secured.MustGetIdentity(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = writeDecision(w, newDecision(identity, nil))
	}))
	return mux, nil
}

func (a *app) serve(ctx context.Context) error {
	handler, err := a.handler()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              a.addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
