// Package server assembles the REST and WebSocket API surface over the
// trading services.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/infinityai/tradebot/internal/domain"
	"github.com/infinityai/tradebot/internal/server/handler"
	"github.com/infinityai/tradebot/internal/server/middleware"
	"github.com/infinityai/tradebot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// Optional per-client API rate limiting; zero disables it.
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server registers. Archives
// and Signals may be nil in modes without blob storage or a signal runner;
// their routes are simply left unregistered.
type Handlers struct {
	Health    *handler.HealthHandler
	Orders    *handler.OrderHandler
	Portfolio *handler.PortfolioHandler
	Risk      *handler.RiskHandler
	Tracker   *handler.TrackerHandler
	Signals   *handler.SignalHandler
	Status    *handler.StatusHandler
	Archives  *handler.ArchiveHandler
}

// Server is the headless HTTP + WebSocket API for the trading bot.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and the middleware
// chain (auth, logging, CORS, optional rate limit) applied. The limiter is
// optional; pass nil to skip API rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Orders and routing.
	mux.HandleFunc("POST /api/v1/orders", handlers.Orders.PlaceOrder)
	mux.HandleFunc("GET /api/v1/orders/{broker}", handlers.Orders.ListOrders)
	mux.HandleFunc("DELETE /api/v1/orders/{broker}/{id}", handlers.Orders.CancelOrder)
	mux.HandleFunc("GET /api/v1/quotes/{broker}/{symbol}", handlers.Orders.GetQuote)
	mux.HandleFunc("GET /api/v1/candles/{broker}/{symbol}", handlers.Orders.GetCandles)
	mux.HandleFunc("POST /api/v1/emergency-stop", handlers.Orders.EmergencyStop)

	// Portfolio views.
	mux.HandleFunc("GET /api/v1/portfolio", handlers.Portfolio.GetCombined)
	mux.HandleFunc("GET /api/v1/portfolio/{broker}", handlers.Portfolio.GetPortfolio)

	// Risk limits.
	mux.HandleFunc("GET /api/v1/risk/limits", handlers.Risk.GetLimits)
	mux.HandleFunc("PUT /api/v1/risk/limits", handlers.Risk.UpdateLimits)

	// Spread-position tracker.
	mux.HandleFunc("POST /api/v1/tracker/execute", handlers.Tracker.Execute)
	mux.HandleFunc("POST /api/v1/tracker/monitor", handlers.Tracker.Monitor)
	mux.HandleFunc("GET /api/v1/tracker/positions", handlers.Tracker.ListPositions)
	mux.HandleFunc("POST /api/v1/tracker/positions/{id}/close", handlers.Tracker.ClosePosition)
	mux.HandleFunc("GET /api/v1/tracker/stats", handlers.Tracker.GetStats)
	mux.HandleFunc("POST /api/v1/tracker/emergency-stop", handlers.Tracker.EmergencyStop)

	// Mock AI signals.
	if handlers.Signals != nil {
		mux.HandleFunc("POST /api/v1/signals/generate", handlers.Signals.Generate)
		mux.HandleFunc("GET /api/v1/signals/recent", handlers.Signals.Recent)
		mux.HandleFunc("GET /api/v1/signals/auto-execute", handlers.Signals.GetAutoExecute)
		mux.HandleFunc("PUT /api/v1/signals/auto-execute", handlers.Signals.SetAutoExecute)
	}

	// Status snapshot.
	mux.HandleFunc("GET /api/v1/status", handlers.Status.GetStatus)

	// Cold-storage archives.
	if handlers.Archives != nil {
		mux.HandleFunc("GET /api/v1/archives", handlers.Archives.ListArchives)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Auth and rate limiting protect the API surface only.
	var api http.Handler = mux
	api = middleware.Auth(cfg.APIKey)(api)
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		api = middleware.RateLimit(limiter, cfg.RateLimit, window)(api)
	}

	// The liveness endpoint stays unauthenticated so orchestrator health
	// checks keep working when an API key is configured.
	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", handlers.Health.HealthCheck)
	root.Handle("/", api)

	var h http.Handler = root
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
