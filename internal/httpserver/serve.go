package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/andrebq/puente/internal/logutil"
)

const (
	shutdownGrace = 30 * time.Second
)

// Serve listens on bind and blocks until ctx is done or the server fails.
func Serve(ctx context.Context, bind string, handler http.Handler) error {
	lst, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("unable to listen on %v, cause %w", bind, err)
	}
	return ServeListener(ctx, lst, handler)
}

// ServeListener is Serve on an existing listener, which is closed on return.
// Cancelling ctx lets in-flight requests finish before returning.
func ServeListener(ctx context.Context, lst net.Listener, handler http.Handler) error {
	server := http.Server{
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// directory calls take up to GAS_TIMEOUT, keep room for them
		WriteTimeout:   time.Minute,
		IdleTimeout:    2 * time.Minute,
		MaxHeaderBytes: 64 << 10,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", lst.Addr().String()).Logger()
	served := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting HTTP server")
		served <- server.Serve(lst)
	}()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Initiating shutdown process")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	<-served
	if err != nil {
		return fmt.Errorf("unable to shutdown server, cause %w", err)
	}
	log.Info().Msg("Shutdown completed")
	return nil
}
