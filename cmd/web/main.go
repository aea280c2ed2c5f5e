package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"tms-dashboard/internal/config"
	"tms-dashboard/internal/derive"
	"tms-dashboard/internal/handlers"
	"tms-dashboard/internal/ingest"
	"tms-dashboard/internal/middleware"
	"tms-dashboard/internal/observability"
	"tms-dashboard/internal/server"
	"tms-dashboard/internal/services"
	"tms-dashboard/internal/ui/templates"
	"tms-dashboard/internal/workbook"
)

const (
	renderTimeout  = 10 * time.Second
	preloadTimeout = 60 * time.Second
	cacheMaxAge    = "public, max-age=300"
)

// Template handler functions that can access the template functions
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Cache-Control", cacheMaxAge)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func newAnalytics(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *services.Analytics {
	parser := ingest.NewParser(logger, ingest.Options{
		Workbook: workbook.Options{MaxLegacyRows: cfg.Data.MaxLegacyRows},
	})
	return services.NewAnalytics(
		services.WithLogger(logger),
		services.WithMetrics(metrics),
		services.WithParser(parser),
		services.WithReportOptions(derive.Options{
			TopLanes:      cfg.Data.TopLanes,
			LossAccounts:  derive.DefaultLossAccounts,
			LiteralBilled: cfg.Data.LiteralBilled,
		}),
	)
}

func newHandler(cfg *config.Config, logger *slog.Logger, analytics *services.Analytics, metrics *observability.Metrics) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	srv := server.NewServer(analytics, logger, templateHandlers, server.Options{
		MaxUploadBytes: cfg.Data.MaxUploadBytes,
		Metrics:        metrics,
	})

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

// preload ingests the configured workbook. A failure is logged and the
// service starts without data.
func preload(analytics *services.Analytics, path string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), preloadTimeout)
	defer cancel()
	ctx, span := observability.Tracer().Start(ctx, "preload")
	defer span.End()

	start := time.Now()
	snap, err := analytics.LoadFromFile(ctx, path)
	if err != nil {
		logger.Warn("preload failed, starting without data", "file", path, "error", err)
		return
	}
	logger.Info("workbook preloaded",
		"file", path,
		"upload_id", snap.UploadID,
		"orders", snap.Metrics.TotalOrders,
		"duration", time.Since(start))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", handlers.Version,
		"address", cfg.Address(),
		"max_upload_bytes", cfg.Data.MaxUploadBytes,
		"tracing", cfg.Tracing.Enabled,
	)

	shutdownTracing, err := observability.InitTracing(cfg.Tracing, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	analytics := newAnalytics(cfg, logger, metrics)
	if cfg.Data.PreloadFile != "" {
		preload(analytics, cfg.Data.PreloadFile, logger)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, logger, analytics, metrics),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})
	gracefulServer.RegisterShutdownHook(shutdownTracing)

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
