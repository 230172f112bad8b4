package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/infinityai/tradebot/internal/domain"
	"github.com/infinityai/tradebot/internal/service"
)

// TrackerHandler exposes the spread-position tracker: trade execution,
// monitoring, position views, statistics, and the tracker emergency stop.
type TrackerHandler struct {
	tracker *service.TrackerService
	logger  *slog.Logger
}

// NewTrackerHandler creates a TrackerHandler backed by the tracker service.
func NewTrackerHandler(tracker *service.TrackerService, logger *slog.Logger) *TrackerHandler {
	return &TrackerHandler{
		tracker: tracker,
		logger:  logHandler(logger, "tracker"),
	}
}

// executeRequest carries the signal shape plus an optional force flag that
// bypasses the confidence threshold.
type executeRequest struct {
	Direction  string              `json:"direction"`
	Confidence float64             `json:"confidence"`
	Price      float64             `json:"price"`
	Symbol     string              `json:"symbol,omitempty"`
	Reasoning  string              `json:"reasoning,omitempty"`
	Scores     domain.SignalScores `json:"scores,omitempty"`
	Force      bool                `json:"force,omitempty"`
}

// Execute opens a spread position from the supplied signal. A signal below
// the confidence threshold (without force) or a second signal while a
// position is active gets an acknowledgement, not an error.
// POST /api/v1/tracker/execute
func (h *TrackerHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	direction := domain.SignalDirection(req.Direction)
	if direction != domain.SignalBull && direction != domain.SignalBear {
		writeError(w, http.StatusBadRequest, "direction must be bull or bear")
		return
	}

	sig := domain.TradeSignal{
		Symbol:     req.Symbol,
		Direction:  direction,
		Confidence: req.Confidence,
		Reasoning:  req.Reasoning,
		Scores:     req.Scores,
		Price:      req.Price,
	}

	var (
		pos *domain.SpreadPosition
		err error
	)
	if req.Force {
		pos, err = h.tracker.ExecuteForced(r.Context(), sig)
	} else {
		pos, err = h.tracker.ExecuteSpreadTrade(r.Context(), sig)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if pos == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"executed": false,
			"reason":   "confidence too low or position already active",
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"executed": true,
		"position": pos,
	})
}

// monitorRequest optionally carries an explicit price for the pass.
type monitorRequest struct {
	Price *float64 `json:"price"`
}

// Monitor runs one monitoring pass and returns the resulting statistics. An
// empty body (or null price) makes the tracker fetch its own quote.
// POST /api/v1/tracker/monitor
func (h *TrackerHandler) Monitor(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if r.Body != nil {
		// Body is optional; decode errors on an empty body are ignored.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	stats := h.tracker.MonitorPositions(r.Context(), req.Price)
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":  stats,
		"active": h.tracker.ActivePosition(),
	})
}

// ListPositions returns the active position (if any) followed by the closed
// log.
// GET /api/v1/tracker/positions
func (h *TrackerHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.tracker.Positions()
	writeJSON(w, http.StatusOK, map[string]any{
		"positions": positions,
		"count":     len(positions),
	})
}

// GetStats returns cumulative tracker statistics over active and closed
// positions.
// GET /api/v1/tracker/stats
func (h *TrackerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Stats())
}

// closeRequest optionally names the close reason; default is stop_loss.
type closeRequest struct {
	Reason string `json:"reason"`
}

// ClosePosition closes the identified position. Unknown ids are idempotent
// no-ops and still return 200.
// POST /api/v1/tracker/positions/{id}/close
func (h *TrackerHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "position id is required")
		return
	}

	var req closeRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	reason := domain.CloseReason(req.Reason)
	switch reason {
	case domain.CloseReasonStopLoss, domain.CloseReasonProfitTarget, domain.CloseReasonExpired:
	case "":
		reason = domain.CloseReasonStopLoss
	default:
		writeError(w, http.StatusBadRequest, "reason must be stop_loss, profit_target, or expired")
		return
	}

	h.tracker.ClosePosition(r.Context(), id, reason)
	writeJSON(w, http.StatusOK, map[string]any{
		"closed": id,
		"reason": string(reason),
		"stats":  h.tracker.Stats(),
	})
}

// EmergencyStop closes every tracked position with reason stop_loss.
// POST /api/v1/tracker/emergency-stop
func (h *TrackerHandler) EmergencyStop(w http.ResponseWriter, r *http.Request) {
	h.tracker.EmergencyStop(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"stopped": true,
		"stats":   h.tracker.Stats(),
	})
}
