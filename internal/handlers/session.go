package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voltprep/internal/services"
)

type SessionHandler struct {
	lifecycle *services.SessionLifecycle
}

func NewSessionHandler(lifecycle *services.SessionLifecycle) *SessionHandler {
	return &SessionHandler{lifecycle: lifecycle}
}

// Open POST /sessions
func (h *SessionHandler) Open(c *gin.Context) {
	var in services.OpenInput
	if !bindJSON(c, &in) {
		return
	}

	id, err := h.lifecycle.Open(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sessionId": id})
}

// Close PATCH /sessions
func (h *SessionHandler) Close(c *gin.Context) {
	var in services.CloseInput
	if !bindJSON(c, &in) {
		return
	}

	result, err := h.lifecycle.Close(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
