package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-chainviz/pkg/logging"
)

// ReloadFunc reloads configuration such as the expansion key table
type ReloadFunc func() error

// GracefulServer wraps an HTTP server with graceful shutdown
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
	shutdownCh      chan struct{}
	shutdownOnce    sync.Once
	reloadFn        ReloadFunc
	reloadMu        sync.RWMutex
}

// GracefulOption configures a GracefulServer
type GracefulOption func(*GracefulServer)

// WithShutdownTimeout bounds how long in-flight requests may drain
func WithShutdownTimeout(d time.Duration) GracefulOption {
	return func(gs *GracefulServer) {
		if d > 0 {
			gs.shutdownTimeout = d
		}
	}
}

// WithTLSConfig serves HTTPS with cfg. A nil cfg keeps plain HTTP.
func WithTLSConfig(cfg *tls.Config) GracefulOption {
	return func(gs *GracefulServer) { gs.server.TLSConfig = cfg }
}

// WithServerLogger sets the logger
func WithServerLogger(l logging.Logger) GracefulOption {
	return func(gs *GracefulServer) { gs.logger = l }
}

// NewGracefulServer creates a new graceful HTTP server. WriteTimeout is
// left at zero so websocket streams are not cut off; handlers that write
// bodies set their own deadlines.
func NewGracefulServer(addr string, handler http.Handler, opts ...GracefulOption) *GracefulServer {
	gs := &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:          logging.NewNopLogger(),
		shutdownTimeout: 10 * time.Second,
		shutdownCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(gs)
	}
	return gs
}

// ListenAndServe listens on the configured address and serves until ctx is
// done, then shuts down gracefully
func (gs *GracefulServer) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	return gs.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	if gs.server.TLSConfig != nil {
		ln = tls.NewListener(ln, gs.server.TLSConfig)
	}

	errCh := make(chan error, 1)
	go func() {
		gs.logger.Info("http server listening",
			logging.String("addr", ln.Addr().String()),
			logging.Bool("tls", gs.server.TLSConfig != nil),
		)
		errCh <- gs.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	if err := gs.Shutdown(gs.shutdownTimeout); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown initiates a graceful shutdown
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", timeout))

		if shutdownErr := gs.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			gs.logger.Error("shutdown failed", logging.Error(shutdownErr))
		} else {
			gs.logger.Info("server shutdown complete")
		}
	})
	return err
}

// WatchReloadSignal calls the reload function on every SIGHUP until ctx
// is done. Termination signals are left to the caller.
func (gs *GracefulServer) WatchReloadSignal(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			gs.logger.Info("received SIGHUP, reloading")
			_ = gs.Reload()
		}
	}
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetReloadFunc sets the function called on reload
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.reloadMu.Lock()
	defer gs.reloadMu.Unlock()
	gs.reloadFn = fn
}

// Reload runs the reload function, if any
func (gs *GracefulServer) Reload() error {
	gs.reloadMu.RLock()
	fn := gs.reloadFn
	gs.reloadMu.RUnlock()

	if fn == nil {
		gs.logger.Warn("reload requested but no reload function configured")
		return nil
	}

	if err := fn(); err != nil {
		gs.logger.Error("reload failed", logging.Error(err))
		return err
	}

	gs.logger.Info("reload complete")
	return nil
}
