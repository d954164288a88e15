package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voltprep/internal/services"
)

type ProgressHandler struct {
	recorder *services.ProgressRecorder
	stats    *services.StatsService
}

func NewProgressHandler(recorder *services.ProgressRecorder, stats *services.StatsService) *ProgressHandler {
	return &ProgressHandler{recorder: recorder, stats: stats}
}

// Record POST /progress
func (h *ProgressHandler) Record(c *gin.Context) {
	var in services.AnswerInput
	if !bindJSON(c, &in) {
		return
	}

	result, err := h.recorder.Record(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Stats GET /progress/stats
func (h *ProgressHandler) Stats(c *gin.Context) {
	stats, err := h.stats.ForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
