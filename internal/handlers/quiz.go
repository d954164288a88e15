package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voltprep/internal/services"
)

type QuizResultHandler struct {
	results *services.QuizResultService
}

func NewQuizResultHandler(results *services.QuizResultService) *QuizResultHandler {
	return &QuizResultHandler{results: results}
}

// Create POST /quiz-results
func (h *QuizResultHandler) Create(c *gin.Context) {
	var in services.QuizResultInput
	if !bindJSON(c, &in) {
		return
	}
	result, err := h.results.Record(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// List GET /quiz-results
func (h *QuizResultHandler) List(c *gin.Context) {
	history, err := h.results.History(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
