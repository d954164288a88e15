package services

import (
	"github.com/google/uuid"

	"voltprep/internal/models"
)

// 经验流水动作
const (
	ActionCorrectAnswer = "correct_answer"
	ActionSessionBonus  = "session_bonus"
	ActionReconcile     = "reconcile"
)

// 经验值常量
const (
	XPCorrectAnswer   = 25
	XPSessionComplete = 50
)

func newXPLog(userID string, amount int, action string) models.XPLog {
	return models.XPLog{
		ID:     uuid.NewString(),
		UserID: userID,
		Amount: amount,
		Action: action,
	}
}
