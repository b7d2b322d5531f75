package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/johnrirwin/youthinvest/internal/auth"
	"github.com/johnrirwin/youthinvest/internal/logging"
)

type Server struct {
	svc            InvestingService
	authMiddleware *auth.Middleware
	logger         *logging.Logger
	server         *http.Server
}

// New builds the local API. authMiddleware may be nil, in which case the
// mutating routes are open.
func New(svc InvestingService, authMiddleware *auth.Middleware, logger *logging.Logger) *Server {
	return &Server{
		svc:            svc,
		authMiddleware: authMiddleware,
		logger:         logger.With(logging.WithField("component", "httpapi")),
	}
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	investingAPI := NewInvestingAPI(s.svc, s.logger)
	r.Route("/api", func(r chi.Router) {
		investingAPI.RegisterRoutes(r, s.protect)
	})

	r.Get("/health", s.handleHealth)

	return r
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// protect wraps mutating handlers with bearer auth when it is configured.
func (s *Server) protect(next http.Handler) http.Handler {
	if s.authMiddleware == nil {
		return next
	}
	return s.authMiddleware.RequireAuth(next)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
