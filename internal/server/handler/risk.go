package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/infinityai/tradebot/internal/domain"
	"github.com/infinityai/tradebot/internal/service"
)

// RiskHandler exposes the risk limits for reading and patching.
type RiskHandler struct {
	risk   *service.RiskService
	logger *slog.Logger
}

// NewRiskHandler creates a RiskHandler backed by the risk service.
func NewRiskHandler(risk *service.RiskService, logger *slog.Logger) *RiskHandler {
	return &RiskHandler{
		risk:   risk,
		logger: logHandler(logger, "risk"),
	}
}

// riskLimitsView is the JSON shape of the limits for both read and patch.
// Pointer fields on the patch leave absent fields untouched.
type riskLimitsPatchRequest struct {
	MaxOrderValue      *float64  `json:"max_order_value"`
	MaxDailyLoss       *float64  `json:"max_daily_loss"`
	MaxPositionSize    *float64  `json:"max_position_size"`
	MaxOpenPositions   *int      `json:"max_open_positions"`
	AllowedSymbols     *[]string `json:"allowed_symbols"`
	MarketHoursOnly    *bool     `json:"market_hours_only"`
	MaxOrdersPerMinute *int      `json:"max_orders_per_minute"`
}

func limitsResponse(l domain.RiskLimits, dailyLoss float64) map[string]any {
	return map[string]any{
		"max_order_value":       l.MaxOrderValue,
		"max_daily_loss":        l.MaxDailyLoss,
		"max_position_size":     l.MaxPositionSize,
		"max_open_positions":    l.MaxOpenPositions,
		"allowed_symbols":       l.AllowedSymbols,
		"market_hours_only":     l.MarketHoursOnly,
		"max_orders_per_minute": l.MaxOrdersPerMinute,
		"daily_loss":            dailyLoss,
	}
}

// GetLimits returns the current risk limits along with today's accumulated
// loss.
// GET /api/v1/risk/limits
func (h *RiskHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, limitsResponse(h.risk.Limits(), h.risk.DailyLoss()))
}

// UpdateLimits shallow-merges the supplied fields into the current limits and
// returns the merged result. Fields absent from the body stay unchanged.
// PUT /api/v1/risk/limits
func (h *RiskHandler) UpdateLimits(w http.ResponseWriter, r *http.Request) {
	var req riskLimitsPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	merged := h.risk.UpdateLimits(r.Context(), domain.RiskLimitsPatch{
		MaxOrderValue:      req.MaxOrderValue,
		MaxDailyLoss:       req.MaxDailyLoss,
		MaxPositionSize:    req.MaxPositionSize,
		MaxOpenPositions:   req.MaxOpenPositions,
		AllowedSymbols:     req.AllowedSymbols,
		MarketHoursOnly:    req.MarketHoursOnly,
		MaxOrdersPerMinute: req.MaxOrdersPerMinute,
	})

	writeJSON(w, http.StatusOK, limitsResponse(merged, h.risk.DailyLoss()))
}
