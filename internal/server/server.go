package server

import (
	"log/slog"
	"net/http"

	"tms-dashboard/internal/handlers"
	"tms-dashboard/internal/observability"
	"tms-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

type Options struct {
	MaxUploadBytes int64
	// Metrics exposes /metrics and counts SSE clients when set.
	Metrics *observability.Metrics
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, templateHandlers *TemplateHandlers, opts Options) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger, opts.MaxUploadBytes),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger, opts.Metrics),
	}
	s.setupRoutes(templateHandlers, opts.Metrics)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers, metrics *observability.Metrics) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics.Handler())
	}

	// REST API endpoints
	s.mux.HandleFunc("POST /api/upload", s.apiHandlers.HandleUpload)
	s.mux.HandleFunc("GET /api/metrics", s.apiHandlers.HandleMetrics)
	s.mux.HandleFunc("GET /api/summary", s.apiHandlers.HandleSummary)
	s.mux.HandleFunc("GET /api/otp", s.apiHandlers.HandleOTP)
	s.mux.HandleFunc("GET /api/volume", s.apiHandlers.HandleVolume)
	s.mux.HandleFunc("GET /api/lanes", s.apiHandlers.HandleLanes)
	s.mux.HandleFunc("GET /api/financials", s.apiHandlers.HandleFinancials)
	s.mux.HandleFunc("GET /api/report", s.apiHandlers.HandleReport)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/kpis", s.sseHandlers.HandleKPIs)
	s.mux.HandleFunc("GET /sse/otp", s.sseHandlers.HandleOTP)
	s.mux.HandleFunc("GET /sse/lanes", s.sseHandlers.HandleLanes)
	s.mux.HandleFunc("GET /sse/financials", s.sseHandlers.HandleFinancials)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
