package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"voltprep/internal/middleware"
	"voltprep/internal/models"
	"voltprep/internal/services"
)

type UserHandler struct {
	accounts *services.AccountService
}

func NewUserHandler(accounts *services.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

type userResponse struct {
	ID             string               `json:"id"`
	Email          string               `json:"email"`
	Name           string               `json:"name"`
	Username       *string              `json:"username"`
	City           string               `json:"city"`
	State          string               `json:"state"`
	XP             int                  `json:"xp"`
	Level          int                  `json:"level"`
	Title          string               `json:"title"`
	Progress       services.Progress    `json:"progress"`
	StudyStreak    int                  `json:"studyStreak"`
	LastStudyDate  *time.Time           `json:"lastStudyDate"`
	TargetExamDate *time.Time           `json:"targetExamDate"`
	Newsletter     bool                 `json:"newsletter"`
	Identity       *middleware.Identity `json:"identity"`
}

func newUserResponse(u *models.User, now time.Time) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Username:       u.Username,
		City:           u.City,
		State:          u.State,
		XP:             u.XP,
		Level:          u.Level,
		Title:          services.TitleForLevel(u.Level),
		Progress:       services.XPProgress(u.XP, u.Level),
		StudyStreak:    u.StudyStreak,
		LastStudyDate:  u.LastStudyDate,
		TargetExamDate: u.TargetExamDate,
		Newsletter:     u.Newsletter,
		Identity:       middleware.NewIdentity(u, now),
	}
}

// Me GET /user
func (h *UserHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, newUserResponse(middleware.CurrentUser(c), time.Now()))
}

// UpdateProfile PATCH /user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var in services.ProfileInput
	if !bindJSON(c, &in) {
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), currentUserID(c), in)
	if errors.Is(err, services.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "username is already taken"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user, time.Now()))
}
