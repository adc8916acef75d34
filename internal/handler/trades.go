package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"marketpipe/internal/repository"
	"marketpipe/internal/service"
)

type TradeHandler struct {
	Repo   repository.Repository
	Trades *service.TradeService
}

func (h *TradeHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/trades")
	group.GET("", h.listTrades)
	group.GET("/:id", h.getTrade)
	group.POST("", h.openTrade)
	group.POST("/:id/close", h.closeTrade)
}

func (h *TradeHandler) listTrades(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListTradesParams{
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		Status:   strQueryPtr(c, "status"),
		MarketID: strQueryPtr(c, "market_id"),
		OrderBy:  "opened_at",
		Asc:      boolPtr(false),
	}
	ctx := c.Request.Context()
	items, err := h.Repo.ListTrades(ctx, params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTrades(ctx, params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

func (h *TradeHandler) getTrade(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid trade id", nil)
		return
	}
	item, err := h.Repo.GetTradeByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "trade not found", nil)
		return
	}
	Ok(c, item, nil)
}

type openTradeRequest struct {
	MarketID     string          `json:"market_id" binding:"required"`
	Side         string          `json:"side" binding:"required"`
	Outcome      string          `json:"outcome" binding:"required"`
	EntryPrice   float64         `json:"entry_price"`
	PositionSize decimal.Decimal `json:"position_size"`
	Confidence   *float64        `json:"confidence"`
	Reasoning    *string         `json:"reasoning"`
	SignalID     *uint64         `json:"signal_id"`
}

func (h *TradeHandler) openTrade(c *gin.Context) {
	if h.Trades == nil {
		Error(c, http.StatusInternalServerError, "trade service unavailable", nil)
		return
	}
	var req openTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Trades.OpenTrade(c.Request.Context(), service.OpenTradeInput{
		MarketID:     req.MarketID,
		Side:         req.Side,
		Outcome:      req.Outcome,
		EntryPrice:   req.EntryPrice,
		PositionSize: req.PositionSize,
		Confidence:   req.Confidence,
		Reasoning:    req.Reasoning,
		SignalID:     req.SignalID,
	})
	if err != nil {
		var storeErr *service.StoreError
		if errors.As(err, &storeErr) {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

type closeTradeRequest struct {
	ExitPrice float64 `json:"exit_price"`
}

func (h *TradeHandler) closeTrade(c *gin.Context) {
	if h.Trades == nil {
		Error(c, http.StatusInternalServerError, "trade service unavailable", nil)
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid trade id", nil)
		return
	}
	var req closeTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Trades.CloseTrade(c.Request.Context(), id, req.ExitPrice)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			Error(c, http.StatusNotFound, "trade not found", nil)
		case errors.Is(err, repository.ErrInvalidStateTransition):
			Error(c, http.StatusConflict, "trade already closed", nil)
		default:
			Error(c, http.StatusBadGateway, err.Error(), nil)
		}
		return
	}
	Ok(c, item, nil)
}
