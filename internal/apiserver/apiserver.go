package apiserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/KotFed0t/crypto_vault_tracker/config"
)

type APIServer struct {
	server *http.Server
	cfg    *config.Config
}

func New(cfg *config.Config, handler http.Handler) *APIServer {
	return &APIServer{
		cfg: cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:      handler,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
	}
}

// Start serves in the background. A listen failure is sent to the returned channel.
func (s *APIServer) Start() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		slog.Info("api server started", slog.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server stopped with error", slog.String("err", err.Error()))
			errCh <- err
		}
		close(errCh)
	}()

	return errCh
}

func (s *APIServer) Stop() {
	slog.Info("start stopping api server")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		slog.Error("api server shutdown error", slog.String("err", err.Error()))
		return
	}

	slog.Info("api server stopped")
}
