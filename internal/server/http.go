package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/logger"
)

const httpShutdownTimeout = 5 * time.Second

// HTTPServer runs the status API as a background worker. It stops
// accepting requests when its context ends and gives in-flight requests a
// short grace period.
type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

func NewHTTPServer(address string, handler http.Handler, requestTimeout time.Duration, log *logger.Logger) *HTTPServer {
	if requestTimeout > 0 {
		handler = http.TimeoutHandler(handler, requestTimeout, "request timed out")
	}

	return &HTTPServer{
		server: &http.Server{
			Addr:              address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log,
	}
}

func (h *HTTPServer) Run(ctx context.Context) {
	errCh := make(chan error, 1)
	go func() {
		h.logger.Info().Str("address", h.server.Addr).Msg("Launching HTTP status server")
		errCh <- h.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error().Err(err).Msg("HTTP server ListenAndServe")
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()

	if err := h.server.Shutdown(shutdownCtx); err != nil {
		h.logger.Warn().Err(err).Msg("HTTP server Shutdown")
	}
	<-errCh
	h.logger.Info().Msg("HTTP server Shutdown")
}
