package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketpipe/internal/client/polymarket/gamma"
	"marketpipe/internal/monitor"
	"marketpipe/internal/service"
)

type PipelineHandler struct {
	Monitor  *monitor.Monitor
	Ingestor *service.IngestService
}

func (h *PipelineHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/pipeline")
	group.GET("/health", h.health)
	group.GET("/stats", h.stats)
	group.POST("/ingest", h.ingest)
}

func (h *PipelineHandler) health(c *gin.Context) {
	if h.Monitor == nil {
		Error(c, http.StatusInternalServerError, "monitor unavailable", nil)
		return
	}
	snapshot, err := h.Monitor.Snapshot(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, snapshot, nil)
}

func (h *PipelineHandler) stats(c *gin.Context) {
	if h.Ingestor == nil {
		Error(c, http.StatusInternalServerError, "ingestor unavailable", nil)
		return
	}
	Ok(c, h.Ingestor.Stats(), nil)
}

// ingest triggers one cycle outside the schedule. The cycle itself
// serializes against scheduled runs, so this can never overlap a tick.
func (h *PipelineHandler) ingest(c *gin.Context) {
	if h.Ingestor == nil {
		Error(c, http.StatusInternalServerError, "ingestor unavailable", nil)
		return
	}
	result, err := h.Ingestor.RunCycle(c.Request.Context())
	if err != nil {
		var fetchErr *gamma.FetchError
		if errors.As(err, &fetchErr) {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, result, nil)
}
