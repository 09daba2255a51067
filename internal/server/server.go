// Package server exposes the orchestrator over HTTP: agent listing and
// switching, execution with failover, mode control, backend command
// passthrough, and a live SSE tail of the session timeline.
package server

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dmaloney/relay/internal/adapter"
	"github.com/dmaloney/relay/internal/orchestrator"
	"github.com/dmaloney/relay/internal/sessionlog"
)

// Config holds server configuration.
type Config struct {
	Addr string // listen address, e.g. ":8080"
}

// Server is the HTTP front door for the orchestrator.
type Server struct {
	config  Config
	orch    *orchestrator.Orchestrator
	reg     *adapter.Registry
	store   sessionlog.Store // nil when the recorder has no read side
	bcast   *Broadcaster
	baseCtx context.Context
	cancel  context.CancelFunc
	httpSrv *http.Server
	log     *zap.Logger
}

// New wires the HTTP surface around an orchestrator. store may be nil;
// session reads then degrade to the adapter's own session listing.
func New(cfg Config, orch *orchestrator.Orchestrator, reg *adapter.Registry, store sessionlog.Store, bcast *Broadcaster, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if bcast == nil {
		bcast = NewBroadcaster()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:  cfg,
		orch:    orch,
		reg:     reg,
		store:   store,
		bcast:   bcast,
		baseCtx: ctx,
		cancel:  cancel,
		log:     log.With(zap.String("component", "server")),
	}

	mux := http.NewServeMux()

	// Go 1.22+ method+pattern routing.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/agents", s.handleListAgents)
	mux.HandleFunc("POST /v1/execute", s.handleExecute)
	mux.HandleFunc("POST /v1/switch", s.handleSwitch)
	mux.HandleFunc("POST /v1/mode", s.handleMode)
	mux.HandleFunc("POST /v1/command", s.handleCommand)
	mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	mux.HandleFunc("GET /v1/sessions/{id}/events", s.handleSessionEvents)
	mux.HandleFunc("GET /v1/events", s.handleEvents)

	s.httpSrv = &http.Server{
		Handler:      csrfProtect(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE requires no write timeout
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	return s
}

// Handler returns the configured root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// ListenAndServe starts the server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		s.log.Info("shutting down", zap.String("signal", sig.String()))
		s.Shutdown()
	}()

	s.log.Info("listening", zap.String("addr", s.config.Addr))
	s.httpSrv.Addr = s.config.Addr
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// csrfProtect rejects cross-origin POST requests. Browsers automatically
// set the Origin header on cross-origin requests, so checking it blocks
// CSRF from malicious web pages while allowing CLI/programmatic callers
// (which either omit Origin or set it to match the server).
func csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			origin := r.Header.Get("Origin")
			if origin != "" {
				u, err := url.Parse(origin)
				if err != nil {
					http.Error(w, `{"error":"invalid Origin header"}`, http.StatusForbidden)
					return
				}
				host := u.Hostname()
				if host != "localhost" && host != "127.0.0.1" && host != "::1" {
					http.Error(w, `{"error":"cross-origin request blocked"}`, http.StatusForbidden)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully stops the server: live SSE clients get their done
// event, then HTTP connections drain.
func (s *Server) Shutdown() {
	s.bcast.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	_ = s.httpSrv.Shutdown(shutdownCtx)

	s.cancel()
}
