// Package httpapi serves the method catalog over HTTP and the conversation
// over a websocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/igoryan-dao/thinking-tools/internal/catalog"
	"github.com/igoryan-dao/thinking-tools/internal/classifier"
	"github.com/igoryan-dao/thinking-tools/internal/conversation"
	"github.com/igoryan-dao/thinking-tools/internal/search"
)

const maxBodyBytes = 64 << 10

// Server is the HTTP surface
type Server struct {
	hub    *conversation.Hub
	deps   conversation.Deps
	logger *zap.Logger

	allowedOrigins []string
}

// New creates the HTTP surface around hub
func New(hub *conversation.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{hub: hub, deps: hub.Deps(), logger: logger.Named("http")}
}

// SetAllowedOrigins lists browser origins, besides the server's own host,
// that may open /ws/chat
func (s *Server) SetAllowedOrigins(origins []string) {
	s.allowedOrigins = origins
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/methods", s.listMethods)
		r.Get("/methods/{id}", s.getMethod)
		r.Get("/methods/{id}/questions/{step}", s.getQuestion)
		r.Post("/classify", s.classify)
		r.Post("/search", s.search)
	})

	r.Get("/ws/chat", s.chat)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
	})
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"methods":       s.deps.Catalog.Len(),
		"search":        s.deps.Search.Name(),
		"conversations": s.hub.Len(),
	})
}

func (s *Server) listMethods(w http.ResponseWriter, r *http.Request) {
	category := catalog.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		Error(w, http.StatusBadRequest, "unknown category: "+string(category))
		return
	}
	JSON(w, http.StatusOK, s.deps.Engine.ListMethods(category))
}

func (s *Server) getMethod(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := s.deps.Catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "Unknown method: "+chi.URLParam(r, "id"))
		return
	}
	JSON(w, http.StatusOK, tmpl)
}

func (s *Server) getQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		Error(w, http.StatusBadRequest, "step must be an integer")
		return
	}

	q := s.deps.Engine.Generate(id, step, r.URL.Query().Get("context"))
	if q.Failed() {
		status := http.StatusBadRequest
		if !s.deps.Catalog.Has(id) {
			status = http.StatusNotFound
		}
		JSON(w, status, q)
		return
	}
	JSON(w, http.StatusOK, q)
}

type classifyRequest struct {
	Problem string `json:"problem"`
}

type classifyResponse struct {
	classifier.Result
	Formatted string `json:"formatted"`
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Problem == "" {
		Error(w, http.StatusBadRequest, "problem is required")
		return
	}

	result := s.deps.Classifier.Classify(req.Problem)
	JSON(w, http.StatusOK, classifyResponse{
		Result:    result,
		Formatted: classifier.FormatRecommendations(result),
	})
}

type searchRequest struct {
	Query      string           `json:"query"`
	Category   catalog.Category `json:"category"`
	Difficulty string           `json:"difficulty"`
	Limit      int              `json:"limit"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		Error(w, http.StatusBadRequest, "query is required")
		return
	}

	results := search.Safe(r.Context(), s.deps.Search, search.Query{
		Text:       req.Query,
		Category:   req.Category,
		Difficulty: req.Difficulty,
		Limit:      req.Limit,
	}, s.logger)
	if results == nil {
		results = []search.Result{}
	}
	JSON(w, http.StatusOK, results)
}
