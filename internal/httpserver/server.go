package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/garcia/facebook-api/internal/config"
	"github.com/garcia/facebook-api/internal/domain"
	"github.com/garcia/facebook-api/internal/events"
)

// maxBodyBytes caps request bodies on the posts endpoints.
const maxBodyBytes = 1 << 20

// Server is the HTTP server that serves the posts API.
type Server struct {
	posts      *domain.PostService
	hub        *events.Hub
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server

	// closing is closed by Shutdown so hijacked stream connections end too.
	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates a new HTTP server for the given post service. Change
// events for /api/posts/stream are read from hub.
func NewServer(cfg *config.Config, posts *domain.PostService, hub *events.Hub, logger *slog.Logger) *Server {
	s := &Server{
		posts:   posts,
		hub:     hub,
		logger:  logger,
		closing: make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withLogging(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api/posts", func(r chi.Router) {
		r.Post("/", s.handleCreatePost)
		r.Get("/", s.handleListPosts)
		r.Get("/stream", s.handleStream)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetPost)
			r.Put("/", s.handleReplacePost)
			r.Patch("/", s.handlePatchPost)
			r.Delete("/", s.handleDeletePost)
		})
	})
	s.handler = r

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server and closes open streams.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, errorResponse{
		Error:   errType,
		Message: message,
	})
}

func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
