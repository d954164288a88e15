package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltprep/internal/models"
)

var sessionNow = time.Date(2026, 4, 15, 18, 0, 0, 0, time.Local)

func daysAgo(n int) *time.Time {
	t := sessionNow.AddDate(0, 0, -n)
	return &t
}

func newTestLifecycle(users *fakeUserStore, sessions *fakeSessionStore) *SessionLifecycle {
	s := NewSessionLifecycle(users, sessions)
	s.now = fixedClock(sessionNow)
	return s
}

func TestOpenSession(t *testing.T) {
	sessions := newFakeSessionStore()
	s := newTestLifecycle(newFakeUserStore(), sessions)

	id, err := s.Open(context.Background(), "u1", OpenInput{SessionType: "mock_exam", CategorySlug: strPtr(" grounding ")})
	require.NoError(t, err)

	sess := sessions.sessions[id]
	require.NotNil(t, sess)
	assert.Equal(t, models.SessionMockExam, sess.SessionType)
	assert.Equal(t, "grounding", *sess.CategorySlug)
	assert.Equal(t, sessionNow, sess.StartedAt)
	assert.Nil(t, sess.EndedAt)
	assert.Equal(t, 0, sess.XPEarned)
}

func TestOpenSessionRejectsUnknownType(t *testing.T) {
	sessions := newFakeSessionStore()
	s := newTestLifecycle(newFakeUserStore(), sessions)

	_, err := s.Open(context.Background(), "u1", OpenInput{SessionType: "speedrun"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sessionType", verr.Field)
	assert.Empty(t, sessions.sessions)
}

func TestCloseSessionStreaks(t *testing.T) {
	cases := []struct {
		name     string
		last     *time.Time
		previous int
		want     int
	}{
		{"consecutive day", daysAgo(1), 4, 5},
		{"same day", daysAgo(0), 5, 5},
		{"gap resets", daysAgo(3), 10, 1},
		{"first ever", nil, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			users := newFakeUserStore(&models.User{ID: "u1", XP: 100, Level: 1, StudyStreak: tc.previous, LastStudyDate: tc.last})
			sessions := newFakeSessionStore()
			s := newTestLifecycle(users, sessions)

			id, err := s.Open(context.Background(), "u1", OpenInput{SessionType: "quiz"})
			require.NoError(t, err)

			res, err := s.Close(context.Background(), "u1", CloseInput{
				SessionID:         id,
				XPEarned:          intPtr(75),
				QuestionsAnswered: intPtr(4),
				QuestionsCorrect:  intPtr(3),
			})
			require.NoError(t, err)
			assert.Equal(t, &CloseResult{CompletionBonus: 50, NewStreak: tc.want}, res)

			u := users.get("u1")
			assert.Equal(t, 150, u.XP)
			assert.Equal(t, tc.want, u.StudyStreak)
			assert.Equal(t, sessionNow, *u.LastStudyDate)

			sess := sessions.sessions[id]
			require.NotNil(t, sess.EndedAt)
			assert.Equal(t, 75, sess.XPEarned)
			assert.Equal(t, 3, *sess.QuestionsCorrect)
		})
	}
}

func TestCloseSessionTwiceSameDayAwardsBonusTwice(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u1", XP: 0, Level: 1, StudyStreak: 2, LastStudyDate: daysAgo(1)})
	s := newTestLifecycle(users, newFakeSessionStore())

	first, err := s.Close(context.Background(), "u1", CloseInput{SessionID: "a"})
	require.NoError(t, err)
	second, err := s.Close(context.Background(), "u1", CloseInput{SessionID: "b"})
	require.NoError(t, err)

	assert.Equal(t, 3, first.NewStreak)
	assert.Equal(t, 3, second.NewStreak)
	assert.Equal(t, 100, users.get("u1").XP)
	assert.Len(t, users.logs, 2)
}

func TestCloseOtherUsersSessionIsSilent(t *testing.T) {
	users := newFakeUserStore(
		&models.User{ID: "owner", Level: 1},
		&models.User{ID: "intruder", Level: 1},
	)
	sessions := newFakeSessionStore()
	s := newTestLifecycle(users, sessions)

	id, err := s.Open(context.Background(), "owner", OpenInput{SessionType: "flashcard"})
	require.NoError(t, err)

	res, err := s.Close(context.Background(), "intruder", CloseInput{SessionID: id, XPEarned: intPtr(999)})
	require.NoError(t, err)
	assert.Equal(t, 50, res.CompletionBonus)

	assert.Nil(t, sessions.sessions[id].EndedAt)
	assert.Equal(t, 0, sessions.sessions[id].XPEarned)
}

func TestCloseSessionDefaults(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u1", Level: 1})
	sessions := newFakeSessionStore()
	s := newTestLifecycle(users, sessions)

	id, err := s.Open(context.Background(), "u1", OpenInput{SessionType: "daily_challenge"})
	require.NoError(t, err)
	_, err = s.Close(context.Background(), "u1", CloseInput{SessionID: id})
	require.NoError(t, err)

	sess := sessions.sessions[id]
	assert.Equal(t, 0, sess.XPEarned)
	assert.Nil(t, sess.QuestionsAnswered)
	assert.Nil(t, sess.QuestionsCorrect)
}

func TestCloseSessionValidation(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u1", Level: 1})
	s := newTestLifecycle(users, newFakeSessionStore())

	_, err := s.Close(context.Background(), "u1", CloseInput{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = s.Close(context.Background(), "u1", CloseInput{SessionID: "x", QuestionsAnswered: intPtr(-1)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "questionsAnswered", verr.Field)

	assert.Equal(t, 0, users.get("u1").XP)
}

func TestCloseSessionCrossesLevel(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u1", XP: 1180, Level: 2})
	s := newTestLifecycle(users, newFakeSessionStore())

	_, err := s.Close(context.Background(), "u1", CloseInput{SessionID: "s"})
	require.NoError(t, err)
	u := users.get("u1")
	assert.Equal(t, 1230, u.XP)
	assert.Equal(t, 3, u.Level)
}

func TestCloseSessionOnlyOnce(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u1", Level: 1})
	sessions := newFakeSessionStore()
	s := newTestLifecycle(users, sessions)

	id, err := s.Open(context.Background(), "u1", OpenInput{SessionType: "quiz"})
	require.NoError(t, err)
	_, err = s.Close(context.Background(), "u1", CloseInput{SessionID: id, XPEarned: intPtr(10)})
	require.NoError(t, err)
	firstEnded := *sessions.sessions[id].EndedAt

	s.now = fixedClock(sessionNow.Add(time.Hour))
	res, err := s.Close(context.Background(), "u1", CloseInput{SessionID: id, XPEarned: intPtr(999)})
	require.NoError(t, err)
	assert.Equal(t, XPSessionComplete, res.CompletionBonus)

	sess := sessions.sessions[id]
	assert.Equal(t, 10, sess.XPEarned)
	assert.Equal(t, firstEnded, *sess.EndedAt)
	assert.Equal(t, 2*XPSessionComplete, users.get("u1").XP)
}
