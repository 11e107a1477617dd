// Package api serves the findings of a running session over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nxneeraj/hx-warden/pkg/store"
)

// NewRouter wires the findings endpoints.
func NewRouter(s *store.FindingsStore, log *zap.SugaredLogger) *mux.Router {
	handler := NewAPIHandler(s, log)

	r := mux.NewRouter()
	r.HandleFunc("/findings", handler.ListFindingsHandler).Methods(http.MethodGet)
	r.HandleFunc("/findings", handler.ClearFindingsHandler).Methods(http.MethodDelete)
	// stats must be registered ahead of {id}
	r.HandleFunc("/findings/stats", handler.StatsHandler).Methods(http.MethodGet)
	r.HandleFunc("/findings/{id}", handler.FindingHandler).Methods(http.MethodGet)
	return r
}

// Server is the findings API server.
type Server struct {
	srv *http.Server
	log *zap.SugaredLogger
}

// NewServer prepares an API server on the given port.
func NewServer(port int, s *store.FindingsStore, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      NewRouter(s, log),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Start runs the server in a goroutine so that it doesn't block. A listen
// failure is sent on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("[API] ListenAndServe error: %v", err)
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Infof("[API] Server listening on http://localhost%s", s.srv.Addr)
	return errCh
}

// Shutdown gives in-flight requests until ctx is done to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("[API] Shutting down server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.log.Info("[API] Server exiting gracefully.")
	return nil
}
