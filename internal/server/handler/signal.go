package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/infinityai/tradebot/internal/domain"
	"github.com/infinityai/tradebot/internal/signal"
)

// SignalHandler exposes on-demand signal generation, the recent-signal log,
// and the auto-execute toggle.
type SignalHandler struct {
	runner   *signal.Runner
	sigCache domain.SignalCache // optional
	logger   *slog.Logger
}

// NewSignalHandler creates a SignalHandler backed by the signal runner.
func NewSignalHandler(runner *signal.Runner, sigCache domain.SignalCache, logger *slog.Logger) *SignalHandler {
	return &SignalHandler{
		runner:   runner,
		sigCache: sigCache,
		logger:   logHandler(logger, "signal"),
	}
}

// generateRequest optionally carries the underlying price to evaluate. When
// absent, the runner resolves the latest price itself.
type generateRequest struct {
	Price float64 `json:"price"`
}

// Generate produces one signal on demand and returns it. Auto-execute applies
// to on-demand signals the same way it applies to scheduled ones.
// POST /api/v1/signals/generate
func (h *SignalHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	sig := h.runner.Tick(r.Context(), req.Price)
	writeJSON(w, http.StatusOK, sig)
}

// Recent returns the most recent generated signals from the signal cache.
// GET /api/v1/signals/recent
func (h *SignalHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.sigCache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"signals": []domain.TradeSignal{}, "count": 0})
		return
	}

	opts := parseListOpts(r)
	signals, err := h.sigCache.RecentSignals(r.Context(), opts.Limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"signals": signals,
		"count":   len(signals),
	})
}

// GetAutoExecute reports whether qualifying signals open positions
// automatically.
// GET /api/v1/signals/auto-execute
func (h *SignalHandler) GetAutoExecute(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": h.runner.AutoExecute()})
}

// autoExecuteRequest toggles auto-execution.
type autoExecuteRequest struct {
	Enabled bool `json:"enabled"`
}

// SetAutoExecute toggles auto-execution of qualifying signals.
// PUT /api/v1/signals/auto-execute
func (h *SignalHandler) SetAutoExecute(w http.ResponseWriter, r *http.Request) {
	var req autoExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	h.runner.SetAutoExecute(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}
