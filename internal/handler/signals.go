package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marketpipe/internal/models"
	"marketpipe/internal/repository"
)

type SignalHandler struct {
	Repo repository.Repository
}

func (h *SignalHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/signals")
	group.GET("", h.listSignals)
	group.POST("", h.createSignal)
}

func (h *SignalHandler) listSignals(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListSignals(c.Request.Context(), repository.ListSignalsParams{
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		Type:     strQueryPtr(c, "type"),
		MarketID: strQueryPtr(c, "market_id"),
		Executed: boolQueryPtr(c, "executed"),
		Since:    timeQueryPtr(c, "since"),
		OrderBy:  "created_at",
		Asc:      boolPtr(false),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

type createSignalRequest struct {
	MarketID          string   `json:"market_id" binding:"required"`
	SignalType        string   `json:"signal_type" binding:"required"`
	Outcome           *string  `json:"outcome"`
	Confidence        float64  `json:"confidence"`
	FairProbability   *float64 `json:"fair_probability"`
	MarketProbability *float64 `json:"market_probability"`
	Edge              *float64 `json:"edge"`
	Reasoning         *string  `json:"reasoning"`
}

func (h *SignalHandler) createSignal(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	signalType := strings.ToUpper(strings.TrimSpace(req.SignalType))
	switch signalType {
	case "BUY", "SELL", "HOLD":
	default:
		Error(c, http.StatusBadRequest, "signal_type must be BUY, SELL or HOLD", nil)
		return
	}
	item := &models.Signal{
		MarketID:          strings.TrimSpace(req.MarketID),
		SignalType:        signalType,
		Outcome:           req.Outcome,
		Confidence:        req.Confidence,
		FairProbability:   req.FairProbability,
		MarketProbability: req.MarketProbability,
		Edge:              req.Edge,
		Reasoning:         req.Reasoning,
	}
	if err := h.Repo.InsertSignal(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}
