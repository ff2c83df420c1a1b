package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-channel-subscription/internal/usecase"
)

// Server exposes the inbound HTTP surface: payment webhook, admin triggers,
// health probe and metrics.
type Server struct {
	accessUC   usecase.AccessUseCase
	sweepUC    usecase.SweepUseCase
	adminToken string
	log        *zerolog.Logger
	srv        *http.Server
}

func NewServer(accessUC usecase.AccessUseCase, sweepUC usecase.SweepUseCase, adminToken string, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		accessUC:   accessUC,
		sweepUC:    sweepUC,
		adminToken: adminToken,
		log:        &l,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/webhook/instamojo", s.handleWebhook)
	r.Get("/payment/success", s.handlePaymentSuccess)
	r.Get("/payment/failed", s.handlePaymentFailed)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(admin chi.Router) {
		admin.Use(s.authMiddleware)
		admin.Post("/admin/sweep", s.handleSweep)
		admin.Get("/admin/sweep", s.handleSweep)
		admin.Get("/admin/pending", s.handlePending)
	})

	return r
}

func (s *Server) Start(port int) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// authMiddleware provides simple Bearer token authentication for admin routes.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			s.log.Error().Msg("admin token is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.adminToken {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
