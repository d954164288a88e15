package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"voltprep/internal/middleware"
	"voltprep/internal/models"
	"voltprep/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memStore 内存版存储，同时满足 handler 测试用到的几个 store 接口
type memStore struct {
	mu        sync.Mutex
	users     map[string]*models.User
	logs      []models.XPLog
	attempts  []models.UserProgress
	sessions  map[string]*models.StudySession
	bookmarks map[string]services.BookmarkView
	owners    map[string]string
	failLock  bool
}

func newMemStore(users ...*models.User) *memStore {
	s := &memStore{
		users:     map[string]*models.User{},
		sessions:  map[string]*models.StudySession{},
		bookmarks: map[string]services.BookmarkView{},
		owners:    map[string]string{},
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memStore) user(id string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *memStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, services.ErrNotFound
}

func (s *memStore) FindByGoogleID(context.Context, string) (*models.User, error) {
	return nil, services.ErrNotFound
}

func (s *memStore) FindByStripeCustomer(context.Context, string) (*models.User, error) {
	return nil, services.ErrNotFound
}

func (s *memStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) UpdateFields(_ context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return services.ErrNotFound
	}
	if name, ok := fields["username"].(string); ok {
		for _, other := range s.users {
			if other.ID != id && other.Username != nil && *other.Username == name {
				return services.ErrConflict
			}
		}
		u.Username = &name
	}
	if city, ok := fields["city"].(string); ok {
		u.City = city
	}
	return nil
}

func (s *memStore) WithLock(_ context.Context, id string, fn services.UserMutation, inserts ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLock {
		return context.DeadlineExceeded
	}
	u, ok := s.users[id]
	if !ok {
		return services.ErrNotFound
	}
	for _, row := range inserts {
		if p, ok := row.(*models.UserProgress); ok {
			s.attempts = append(s.attempts, *p)
		}
	}
	cp := *u
	logs, err := fn(&cp)
	if err != nil {
		return err
	}
	*u = cp
	s.logs = append(s.logs, logs...)
	return nil
}

func (s *memStore) ActiveSince(context.Context, time.Time) ([]string, error) { return nil, nil }

type memAttempts struct{ *memStore }

func (s memAttempts) Create(_ context.Context, p *models.UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, *p)
	return nil
}

func (s memAttempts) Stats(_ context.Context, userID string, _ time.Time) (services.AttemptStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st services.AttemptStats
	for _, a := range s.attempts {
		if a.UserID == userID {
			st.Total++
			if a.IsCorrect {
				st.Correct++
			}
		}
	}
	return st, nil
}

func (s memAttempts) CountCorrect(context.Context, string) (int64, error) { return 0, nil }

type memSessions struct{ *memStore }

func (s memSessions) Create(_ context.Context, sess *models.StudySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s memSessions) Close(_ context.Context, userID, sessionID string, fields map[string]interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID || sess.EndedAt != nil {
		return 0, nil
	}
	ended := fields["ended_at"].(time.Time)
	sess.EndedAt = &ended
	sess.XPEarned = fields["xp_earned"].(int)
	return 1, nil
}

func (s memSessions) Totals(context.Context, string) (services.SessionTotals, error) {
	return services.SessionTotals{}, nil
}

type memBookmarks struct{ *memStore }

func (s memBookmarks) Find(_ context.Context, _ models.BookmarkKind, userID, itemID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.bookmarks {
		if s.owners[id] == userID && b.ItemID == itemID {
			return id, nil
		}
	}
	return "", services.ErrNotFound
}

func (s memBookmarks) Create(_ context.Context, _ models.BookmarkKind, id, userID, itemID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks[id] = services.BookmarkView{ID: id, ItemID: itemID, CreatedAt: at}
	s.owners[id] = userID
	return nil
}

func (s memBookmarks) Delete(_ context.Context, _ models.BookmarkKind, userID, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners[id] != userID {
		return 0, nil
	}
	delete(s.bookmarks, id)
	delete(s.owners, id)
	return 1, nil
}

func (s memBookmarks) List(_ context.Context, _ models.BookmarkKind, userID string) ([]services.BookmarkView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []services.BookmarkView
	for id, b := range s.bookmarks {
		if s.owners[id] == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

// asUser 模拟 LoadUser 已经放入 context 的身份
func asUser(store *memStore, userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u, err := store.FindByID(c.Request.Context(), userID); err == nil {
			c.Set(middleware.CheckUserKey, u)
			c.Set(middleware.IdentityKey, middleware.NewIdentity(u, time.Now()))
		}
		c.Next()
	}
}

func newEngine(store *memStore, userID string) *gin.Engine {
	r := gin.New()
	r.Use(asUser(store, userID), middleware.AuthRequired())
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type noQuizzes struct{}

func (noQuizzes) Create(context.Context, *models.QuizResult) error { return nil }

func (noQuizzes) ListByUser(context.Context, string) ([]models.QuizResult, error) { return nil, nil }

type noXPLogs struct{}

func (noXPLogs) SumExcluding(context.Context, string, ...string) (int64, error) { return 0, nil }

func (noXPLogs) DailySince(context.Context, string, time.Time) ([]services.DailyXP, error) {
	return nil, nil
}
