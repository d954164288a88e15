package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voltprep/internal/models"
	"voltprep/internal/services"
)

// BookmarkHandler 题目收藏与闪卡收藏共用，kind 决定读取哪个字段
type BookmarkHandler struct {
	bookmarks *services.BookmarkService
	kind      models.BookmarkKind
}

func NewBookmarkHandler(bookmarks *services.BookmarkService, kind models.BookmarkKind) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks, kind: kind}
}

type bookmarkRequest struct {
	QuestionID  string `json:"questionId"`
	FlashcardID string `json:"flashcardId"`
}

func (r bookmarkRequest) itemID(kind models.BookmarkKind) string {
	if kind == models.BookmarkFlashcard {
		return r.FlashcardID
	}
	return r.QuestionID
}

// Create 重复收藏返回已有 id 和 200
func (h *BookmarkHandler) Create(c *gin.Context) {
	var req bookmarkRequest
	if !bindJSON(c, &req) {
		return
	}

	id, created, err := h.bookmarks.Add(c.Request.Context(), h.kind, currentUserID(c), req.itemID(h.kind))
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"id": id, "created": created})
}

func (h *BookmarkHandler) List(c *gin.Context) {
	items, err := h.bookmarks.List(c.Request.Context(), h.kind, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": items})
}

func (h *BookmarkHandler) Delete(c *gin.Context) {
	if err := h.bookmarks.Remove(c.Request.Context(), h.kind, currentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
