package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marketpipe/internal/client/polymarket/gamma"
	"marketpipe/internal/repository"
)

type MarketHandler struct {
	Repo  repository.Repository
	Gamma *gamma.Client
}

func (h *MarketHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/markets")
	group.GET("", h.listMarkets)
	group.GET("/:market_id", h.getMarket)
	group.GET("/:market_id/live", h.liveMarket)
	group.GET("/:market_id/prices", h.listPrices)
}

func (h *MarketHandler) listMarkets(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListMarketsParams{
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		Active:   boolQueryPtr(c, "active"),
		Resolved: boolQueryPtr(c, "resolved"),
		Question: strQueryPtr(c, "q"),
		OrderBy:  "updated_at",
		Asc:      boolPtr(false),
	}
	ctx := c.Request.Context()
	items, err := h.Repo.ListMarkets(ctx, params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountMarkets(ctx, params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

func (h *MarketHandler) getMarket(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	marketID := strings.TrimSpace(c.Param("market_id"))
	if marketID == "" {
		Error(c, http.StatusBadRequest, "market_id is required", nil)
		return
	}
	item, err := h.Repo.GetMarketByMarketID(c.Request.Context(), marketID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "market not found", nil)
		return
	}
	Ok(c, item, nil)
}

// liveMarket fetches the current upstream listing, bypassing the store.
// Useful for checking a market between scheduled cycles.
func (h *MarketHandler) liveMarket(c *gin.Context) {
	if h.Gamma == nil {
		Error(c, http.StatusInternalServerError, "gamma client unavailable", nil)
		return
	}
	marketID := strings.TrimSpace(c.Param("market_id"))
	if marketID == "" {
		Error(c, http.StatusBadRequest, "market_id is required", nil)
		return
	}
	item, err := h.Gamma.GetMarketByID(c.Request.Context(), marketID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *MarketHandler) listPrices(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	marketID := strings.TrimSpace(c.Param("market_id"))
	if marketID == "" {
		Error(c, http.StatusBadRequest, "market_id is required", nil)
		return
	}
	items, err := h.Repo.ListPriceHistory(c.Request.Context(), repository.ListPriceHistoryParams{
		Limit:    intQuery(c, "limit", 200),
		Offset:   intQuery(c, "offset", 0),
		MarketID: &marketID,
		Since:    timeQueryPtr(c, "since"),
		Until:    timeQueryPtr(c, "until"),
		Asc:      boolPtr(true),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
