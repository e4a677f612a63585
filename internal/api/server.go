// Package api exposes wizard sessions over HTTP/JSON.
package api

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	apperrors "creator-match/internal/common/errors"
	"creator-match/internal/common/logger"
	"creator-match/internal/session"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// RequestTimeout bounds a single handler, including score generation.
	RequestTimeout time.Duration
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:        ":8080",
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
}

type Dependencies struct {
	Sessions *session.Manager
	// Ready reports whether backing services are reachable. Nil means always.
	Ready  func(ctx context.Context) error
	Logger logger.Logger
}

type Server struct {
	router   *mux.Router
	server   *http.Server
	sessions *session.Manager
	ready    func(ctx context.Context) error
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
	config   ServerConfig
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

func NewServer(config ServerConfig, deps Dependencies) *Server {
	log := logger.ForComponent(deps.Logger, "api")

	s := &Server{
		router:   mux.NewRouter(),
		sessions: deps.Sessions,
		ready:    deps.Ready,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
		config:   config,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.recoverMiddleware)

	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.readiness).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.timeoutMiddleware)

	api.HandleFunc("/wizards", s.createWizard).Methods(http.MethodPost)
	api.HandleFunc("/wizards/{id}", s.withSession(s.getWizard)).Methods(http.MethodGet)
	api.HandleFunc("/wizards/{id}", s.deleteWizard).Methods(http.MethodDelete)
	api.HandleFunc("/wizards/{id}/business", s.withSession(s.updateBusiness)).Methods(http.MethodPatch)
	api.HandleFunc("/wizards/{id}/business/submit", s.withSession(s.submitBusiness)).Methods(http.MethodPost)
	api.HandleFunc("/wizards/{id}/creator", s.withSession(s.updateCreator)).Methods(http.MethodPatch)
	api.HandleFunc("/wizards/{id}/creator/submit", s.withSession(s.submitCreator)).Methods(http.MethodPost)
	api.HandleFunc("/wizards/{id}/back", s.withSession(s.back)).Methods(http.MethodPost)
	api.HandleFunc("/wizards/{id}/reset", s.withSession(s.reset)).Methods(http.MethodPost)
	api.HandleFunc("/wizards/{id}/email", s.withSession(s.submitEmail)).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errors.HandleHTTPError(w, r, apperrors.NewInvalidRequestError("no route for "+r.Method+" "+r.URL.Path))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errors.HandleHTTPError(w, r, apperrors.NewInvalidRequestError("method "+r.Method+" not allowed on "+r.URL.Path))
	})
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", map[string]interface{}{"address": s.config.Address})
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()[:8]
		}
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		s.logger.Debug("request", map[string]interface{}{
			"requestId":  r.Context().Value(requestIDKey),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     wrapper.statusCode,
			"durationMs": time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic", map[string]interface{}{
					"panic": rec,
					"stack": string(debug.Stack()),
				})
				s.errors.HandleHTTPError(w, r, apperrors.NewInternalError(nil))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.RequestTimeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
