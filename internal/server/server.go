// Package server exposes the pipeline over HTTP: ranking-only suggestions,
// shorts generation, segment compilation, and catalog access with byte-range
// streaming. Wire field names are part of the contract with the UI and must
// not change.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/boopesh07/VideoToShorts/internal/catalog"
	"github.com/boopesh07/VideoToShorts/internal/logging"
	"github.com/boopesh07/VideoToShorts/internal/types"
	"github.com/boopesh07/VideoToShorts/internal/usecase"
)

// Service is the pipeline surface the handlers call.
type Service interface {
	SuggestSegments(ctx context.Context, tr types.Transcript, targetDuration float64, maxSegments int) (usecase.Suggestion, error)
	GenerateShorts(ctx context.Context, in usecase.GenerateInput) (usecase.GenerateResult, error)
	CompileSegments(ctx context.Context, in usecase.CompileInput) (usecase.CompileResult, error)
}

// Catalog is the read/delete surface the shorts endpoints use.
type Catalog interface {
	Get(ctx context.Context, filename string) (types.GeneratedShort, error)
	List(ctx context.Context) ([]types.GeneratedShort, error)
	Delete(ctx context.Context, filename string) error
}

type Options struct {
	Bind     string
	UIOrigin string
	Logger   *slog.Logger
}

type Server struct {
	svc      Service
	cat      Catalog
	log      *slog.Logger
	uiOrigin string

	httpSrv  *http.Server
	listener net.Listener
}

func New(svc Service, cat Catalog, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{
		svc:      svc,
		cat:      cat,
		log:      log.With("component", "server"),
		uiOrigin: opts.UIOrigin,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/test", s.handleTest)
	mux.HandleFunc("POST /suggest_segments", s.handleSuggestSegments)
	mux.HandleFunc("POST /generate_shorts", s.handleGenerateShorts)
	mux.HandleFunc("POST /compile_segments", s.handleCompileSegments)
	mux.HandleFunc("GET /shorts", s.handleListShorts)
	mux.HandleFunc("GET /shorts/{filename}", s.handleStreamShort)
	mux.HandleFunc("GET /shorts/{filename}/download", s.handleDownloadShort)
	mux.HandleFunc("DELETE /shorts/{filename}", s.handleDeleteShort)

	s.httpSrv = &http.Server{
		Addr:              opts.Bind,
		Handler:           s.withCORS(s.withRequestLog(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		// Generation jobs block the handler while media tools run; the write
		// timeout must cover the slowest job, not a typical API call.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins serving and returns once the listener is bound. The server
// shuts down gracefully when ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpSrv.Addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()

	s.log.Info("listening", "address", listener.Addr().String())
	return nil
}

// Addr returns the bound address after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.httpSrv.Addr
	}
	return s.listener.Addr().String()
}

// Handler exposes the routed handler stack (used by tests).
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.uiOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.uiOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encode response", "error", err)
	}
}

func (s *Server) notFound(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "short not found",
		})
		return
	}
	s.writeJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}
