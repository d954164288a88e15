package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voltprep/internal/middleware"
	"voltprep/internal/services"
)

type ContactHandler struct {
	contact *services.ContactService
}

func NewContactHandler(contact *services.ContactService) *ContactHandler {
	return &ContactHandler{contact: contact}
}

// Submit POST /contact，先限流再校验
func (h *ContactHandler) Submit(c *gin.Context) {
	d := h.contact.Check(c.Request.Context(), middleware.ClientKey(c.Request))

	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.Allowed {
		secs := d.ResetInSeconds()
		c.Header("Retry-After", strconv.Itoa(secs))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":          "too many messages, please try again later",
			"resetInSeconds": secs,
		})
		return
	}

	var in services.ContactInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.contact.Submit(c.Request.Context(), in); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
