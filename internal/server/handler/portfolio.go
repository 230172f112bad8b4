package handler

import (
	"log/slog"
	"net/http"

	"github.com/infinityai/tradebot/internal/domain"
	"github.com/infinityai/tradebot/internal/service"
)

// PortfolioHandler exposes the per-broker and combined portfolio views.
type PortfolioHandler struct {
	portfolios *service.PortfolioService
	logger     *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler backed by the portfolio
// service.
func NewPortfolioHandler(portfolios *service.PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolios: portfolios,
		logger:     logHandler(logger, "portfolio"),
	}
}

// GetPortfolio returns the live portfolio summary for one broker.
// GET /api/v1/portfolio/{broker}
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	broker := domain.BrokerName(pathParam(r, "broker"))

	summary, err := h.portfolios.Portfolio(r.Context(), broker)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetCombined returns one summary per configured broker, omitting any broker
// whose adapter call failed.
// GET /api/v1/portfolio
func (h *PortfolioHandler) GetCombined(w http.ResponseWriter, r *http.Request) {
	summaries := h.portfolios.Combined(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"portfolios": summaries,
		"count":      len(summaries),
	})
}
