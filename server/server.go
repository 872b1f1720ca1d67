package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/artisanhubapp/artisanhub/internal/config"
	"github.com/artisanhubapp/artisanhub/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	// 404 handler - must be last
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"not_found","message":"no such route"}}`))
	})

	// Authenticated API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.RequireAuth)
	api.Use(h.MetricsContext)

	api.HandleFunc("/orders/{id}", h.OrderGet).Methods("GET").Name("orders.get")
	api.HandleFunc("/orders/{id}/actions", h.OrderAction).Methods("POST").Name("orders.action")
	api.HandleFunc("/orders/{id}/specs", h.OrderAttachSpecs).Methods("POST").Name("orders.specs")
	api.HandleFunc("/orders/{id}/refund-requests", h.OrderRefundRequest).Methods("POST").Name("orders.refund.request")
	api.HandleFunc("/orders/{id}/refund-requests/resolve", h.OrderRefundResolve).Methods("POST").Name("orders.refund.resolve")

	api.HandleFunc("/bookings/{id}", h.BookingGet).Methods("GET").Name("bookings.get")
	api.HandleFunc("/bookings/{id}/actions", h.BookingAction).Methods("POST").Name("bookings.action")
	api.HandleFunc("/bookings/{id}/reschedule", h.BookingReschedule).Methods("POST").Name("bookings.reschedule")
	api.HandleFunc("/bookings/{id}/refund-requests", h.BookingRefundRequest).Methods("POST").Name("bookings.refund.request")
	api.HandleFunc("/bookings/{id}/refund-requests/resolve", h.BookingRefundResolve).Methods("POST").Name("bookings.refund.resolve")

	api.HandleFunc("/dashboard/metrics", h.DashboardMetrics).Methods("GET").Name("dashboard.metrics")

	return r
}
