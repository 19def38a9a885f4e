// Package dashboard serves a read-only web view of the invocation history
// and the active profile, plus a JSON API for stats, history and dry-run
// policy checks.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tkingovr/xapictl/internal/audit"
	"github.com/tkingovr/xapictl/internal/config"
	"github.com/tkingovr/xapictl/internal/filter"
	"github.com/tkingovr/xapictl/internal/policy"
)

// Server is the web dashboard HTTP server.
type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	auditStore audit.Store
	engine     policy.Engine
	cfg        *config.Config
	addr       string
}

// NewServer creates a new dashboard server. cfg supplies the profile shown
// on the policy page and the host and user fed to policy checks.
func NewServer(addr string, store audit.Store, engine policy.Engine, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		auditStore: store,
		engine:     engine,
		cfg:        cfg,
		addr:       addr,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleOverview)
	s.mux.HandleFunc("GET /audit", s.handleAudit)
	s.mux.HandleFunc("GET /policy", s.handlePolicy)
	s.mux.HandleFunc("GET /api/v1/stats", s.handleAPIStats)
	s.mux.HandleFunc("GET /api/v1/history", s.handleAPIHistory)
	s.mux.HandleFunc("POST /api/v1/check", s.handleAPICheck)
}

// ListenAndServe starts the dashboard HTTP server and stops it when ctx is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	s.logger.Info("starting dashboard", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the HTTP handler for embedding in other servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) requestChain() *filter.Chain {
	return filter.BuildRequestChain(filter.ChainConfig{
		Engine: s.engine,
		Logger: s.logger,
	})
}
