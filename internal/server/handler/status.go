package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/infinityai/tradebot/internal/broker"
	"github.com/infinityai/tradebot/internal/domain"
	"github.com/infinityai/tradebot/internal/service"
	"github.com/infinityai/tradebot/internal/signal"
)

// StatusHandler serves the process status snapshot for dashboards.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	registry  *broker.Registry
	tracker   *service.TrackerService
	runner    *signal.Runner // optional
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. The runner may be nil in modes
// that do not generate signals.
func NewStatusHandler(mode string, startedAt time.Time, registry *broker.Registry, tracker *service.TrackerService, runner *signal.Runner, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startedAt: startedAt,
		registry:  registry,
		tracker:   tracker,
		runner:    runner,
		logger:    logHandler(logger, "status"),
	}
}

// GetStatus responds with the current operational state.
// GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := domain.BotStatus{
		Mode:            h.mode,
		UptimeSeconds:   int64(time.Since(h.startedAt).Seconds()),
		Brokers:         h.registry.Names(),
		ActivePositions: h.tracker.Stats().ActivePositions,
	}
	if h.runner != nil {
		status.AutoExecute = h.runner.AutoExecute()
	}
	writeJSON(w, http.StatusOK, status)
}
