package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"voltprep/internal/models"
)

type fakeUserStore struct {
	mu      sync.Mutex
	rowLock sync.Mutex
	users   map[string]*models.User
	logs    []models.XPLog
	lockErr error
	updates int

	// attempts 接收 WithLock 中写入的答题记录
	attempts   *fakeProgressStore
	beforeLock func()
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) get(id string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *s.users[id]
	return &u
}

func (s *fakeUserStore) findWhere(match func(u *models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	return s.findWhere(func(u *models.User) bool { return u.ID == id })
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findWhere(func(u *models.User) bool { return u.Email == email })
}

func (s *fakeUserStore) FindByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	return s.findWhere(func(u *models.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID })
}

func (s *fakeUserStore) FindByStripeCustomer(_ context.Context, customerID string) (*models.User, error) {
	return s.findWhere(func(u *models.User) bool { return u.StripeCustomerID != nil && *u.StripeCustomerID == customerID })
}

func (s *fakeUserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) UpdateFields(_ context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	s.updates++
	for k, v := range fields {
		switch k {
		case "email_verified":
			u.EmailVerified = v.(bool)
		case "password_hash":
			h := v.(string)
			u.PasswordHash = &h
		case "google_id":
			g := v.(string)
			u.GoogleID = &g
		case "name":
			u.Name = v.(string)
		case "username":
			name := v.(string)
			for _, other := range s.users {
				if other.ID != id && other.Username != nil && *other.Username == name {
					return ErrConflict
				}
			}
			u.Username = &name
		case "city":
			u.City = v.(string)
		case "state":
			u.State = v.(string)
		case "date_of_birth":
			d := v.(time.Time)
			u.DateOfBirth = &d
		case "target_exam_date":
			d := v.(time.Time)
			u.TargetExamDate = &d
		case "newsletter":
			u.Newsletter = v.(bool)
		case "subscription_status":
			u.SubscriptionStatus = v.(models.SubscriptionStatus)
		case "stripe_customer_id":
			c := v.(string)
			u.StripeCustomerID = &c
		case "stripe_subscription_id":
			c := v.(string)
			u.StripeSubscriptionID = &c
		case "subscription_period_end":
			t := v.(time.Time)
			u.SubscriptionPeriodEnd = &t
		}
	}
	return nil
}

// WithLock 用单独的锁模拟行锁，fn 执行期间其他读操作仍可进行
func (s *fakeUserStore) WithLock(ctx context.Context, id string, fn UserMutation, inserts ...interface{}) error {
	s.mu.Lock()
	hook := s.beforeLock
	s.beforeLock = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.rowLock.Lock()
	defer s.rowLock.Unlock()

	s.mu.Lock()
	if s.lockErr != nil {
		s.mu.Unlock()
		return s.lockErr
	}
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	cp := *u
	s.mu.Unlock()

	for _, row := range inserts {
		if p, ok := row.(*models.UserProgress); ok && s.attempts != nil {
			if err := s.attempts.Create(ctx, p); err != nil {
				return err
			}
		}
	}

	logs, err := fn(&cp)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	*u = cp
	s.logs = append(s.logs, logs...)
	return nil
}

func (s *fakeUserStore) ActiveSince(_ context.Context, _ time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// xpLogStore 让对账测试直接读取 WithLock 写入的流水
func (s *fakeUserStore) SumExcluding(_ context.Context, userID string, actions ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skip := make(map[string]bool)
	for _, a := range actions {
		skip[a] = true
	}
	var sum int64
	for _, l := range s.logs {
		if l.UserID == userID && !skip[l.Action] {
			sum += int64(l.Amount)
		}
	}
	return sum, nil
}

func (s *fakeUserStore) DailySince(_ context.Context, _ string, _ time.Time) ([]DailyXP, error) {
	return nil, nil
}

type fakeProgressStore struct {
	mu          sync.Mutex
	attempts    []models.UserProgress
	err         error
	afterCreate func()
}

func (s *fakeProgressStore) Create(_ context.Context, p *models.UserProgress) error {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return s.err
	}
	for _, a := range s.attempts {
		if a.ID != "" && a.ID == p.ID {
			s.mu.Unlock()
			return ErrConflict
		}
	}
	s.attempts = append(s.attempts, *p)
	hook := s.afterCreate
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (s *fakeProgressStore) Stats(_ context.Context, userID string, since time.Time) (AttemptStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st AttemptStats
	distinct := map[string]bool{}
	for _, a := range s.attempts {
		if a.UserID != userID {
			continue
		}
		st.Total++
		if a.IsCorrect {
			st.Correct++
		}
		if !a.AnsweredAt.Before(since) {
			st.AnsweredToday++
		}
		distinct[a.QuestionID] = true
	}
	st.Distinct = int64(len(distinct))
	return st, nil
}

func (s *fakeProgressStore) CountCorrect(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.attempts {
		if a.UserID == userID && a.IsCorrect {
			n++
		}
	}
	return n, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.StudySession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.StudySession)}
}

func (s *fakeSessionStore) Create(_ context.Context, sess *models.StudySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *fakeSessionStore) Close(_ context.Context, userID, sessionID string, fields map[string]interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID || sess.EndedAt != nil {
		return 0, nil
	}
	ended := fields["ended_at"].(time.Time)
	sess.EndedAt = &ended
	sess.XPEarned = fields["xp_earned"].(int)
	sess.QuestionsAnswered = fields["questions_answered"].(*int)
	sess.QuestionsCorrect = fields["questions_correct"].(*int)
	return 1, nil
}

func (s *fakeSessionStore) Totals(_ context.Context, userID string) (SessionTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := SessionTotals{ByType: map[models.SessionType]int64{}}
	for _, sess := range s.sessions {
		if sess.UserID != userID || sess.EndedAt == nil {
			continue
		}
		totals.Completed++
		totals.XPEarned += int64(sess.XPEarned)
		totals.ByType[sess.SessionType]++
	}
	return totals, nil
}

type fakeBookmarkStore struct {
	mu    sync.Mutex
	items map[models.BookmarkKind][]BookmarkView
	owner map[string]string
}

func newFakeBookmarkStore() *fakeBookmarkStore {
	return &fakeBookmarkStore{items: map[models.BookmarkKind][]BookmarkView{}, owner: map[string]string{}}
}

func (s *fakeBookmarkStore) Find(_ context.Context, kind models.BookmarkKind, userID, itemID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.items[kind] {
		if s.owner[b.ID] == userID && b.ItemID == itemID {
			return b.ID, nil
		}
	}
	return "", ErrNotFound
}

func (s *fakeBookmarkStore) Create(_ context.Context, kind models.BookmarkKind, id, userID, itemID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[kind] = append(s.items[kind], BookmarkView{ID: id, ItemID: itemID, CreatedAt: at})
	s.owner[id] = userID
	return nil
}

func (s *fakeBookmarkStore) Delete(_ context.Context, kind models.BookmarkKind, userID, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[kind]
	for i, b := range items {
		if b.ID == id && s.owner[id] == userID {
			s.items[kind] = append(items[:i], items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *fakeBookmarkStore) List(_ context.Context, kind models.BookmarkKind, userID string) ([]BookmarkView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []BookmarkView
	for _, b := range s.items[kind] {
		if s.owner[b.ID] == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeQuizStore struct {
	results []models.QuizResult
}

func (s *fakeQuizStore) Create(_ context.Context, r *models.QuizResult) error {
	s.results = append(s.results, *r)
	return nil
}

func (s *fakeQuizStore) ListByUser(_ context.Context, userID string) ([]models.QuizResult, error) {
	var out []models.QuizResult
	for _, r := range s.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeTokenStore struct {
	tokens map[TokenPurpose][]TokenRecord
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[TokenPurpose][]TokenRecord{}}
}

func (s *fakeTokenStore) Replace(_ context.Context, purpose TokenPurpose, rec TokenRecord) error {
	kept := s.tokens[purpose][:0]
	for _, t := range s.tokens[purpose] {
		if t.UserID != rec.UserID {
			kept = append(kept, t)
		}
	}
	s.tokens[purpose] = append(kept, rec)
	return nil
}

func (s *fakeTokenStore) Find(_ context.Context, purpose TokenPurpose, token string) (*TokenRecord, error) {
	for _, t := range s.tokens[purpose] {
		if t.Token == token {
			cp := t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeTokenStore) Delete(_ context.Context, purpose TokenPurpose, id string) error {
	kept := s.tokens[purpose][:0]
	for _, t := range s.tokens[purpose] {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.tokens[purpose] = kept
	return nil
}

type sentMail struct {
	kind string
	to   string
	link string
	msg  ContactMessage
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) record(s sentMail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, s)
}

func (m *fakeMailer) SendVerificationEmail(to, _, link string) {
	m.record(sentMail{kind: "verify", to: to, link: link})
}

func (m *fakeMailer) SendPasswordResetEmail(to, _, link string) {
	m.record(sentMail{kind: "reset", to: to, link: link})
}

func (m *fakeMailer) SendWelcomeEmail(to, _ string) {
	m.record(sentMail{kind: "welcome", to: to})
}

func (m *fakeMailer) SendContactMessage(to string, msg ContactMessage) {
	m.record(sentMail{kind: "contact", to: to, msg: msg})
}

func (m *fakeMailer) ofKind(kind string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, s := range m.sent {
		if s.kind == kind {
			out = append(out, s)
		}
	}
	return out
}

type recordingScheduler struct {
	users []string
}

func (r *recordingScheduler) ScheduleUser(userID string) {
	r.users = append(r.users, userID)
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }
