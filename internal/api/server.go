// Package api serves simulation output over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/talgya/macrosim/internal/engine"
	"github.com/talgya/macrosim/internal/persistence"
)

// Server serves the simulation over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // Optional history store
	RunID    string          // Run recorded in DB, if any
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	corsOrigins []string
	hub         *Hub
	control     *RateLimiter
	router      chi.Router
}

// NewServer creates a server with all routes and middleware.
func NewServer(sim *engine.Simulation, eng *engine.Engine, port int, adminKey string, corsOrigins []string) *Server {
	s := &Server{
		Sim:         sim,
		Eng:         eng,
		Port:        port,
		AdminKey:    adminKey,
		corsOrigins: corsOrigins,
		hub:         NewHub(),
		control:     NewRateLimiter(60, time.Minute),
	}
	s.router = s.buildRouter()
	return s
}

// WithHistory attaches the history store and the current run.
func (s *Server) WithHistory(db *persistence.DB, runID string) *Server {
	s.DB = db
	s.RunID = runID
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Publish pushes a completed period to every stream client.
func (s *Server) Publish(row engine.PeriodRow) {
	s.hub.Broadcast(row)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API starting", "addr", httpSrv.Addr, "admin_auth", s.AdminKey != "")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("HTTP API shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := []string{"*"}
	if len(s.corsOrigins) > 0 {
		origins = s.corsOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)

		r.Get("/economies/{id}", s.handleEconomy)
		r.Get("/economies/{id}/series/{series}", s.handleSeries)
		r.Get("/economies/{id}/goods/{good}", s.handleGood)

		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{run}/stats", s.handleRunStats)

		r.Get("/stream", s.handleStream)

		r.Post("/control/{action}", RateLimitMiddleware(s.control, s.adminOnly(s.handleControl)))
	})

	return r
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no api.admin_key set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

// queryInt parses an integer query parameter, returning def when absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}
