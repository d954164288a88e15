package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltprep/internal/services"
)

type nopMailer struct{ contact int }

func (*nopMailer) SendVerificationEmail(string, string, string)  {}
func (*nopMailer) SendPasswordResetEmail(string, string, string) {}
func (*nopMailer) SendWelcomeEmail(string, string)               {}
func (m *nopMailer) SendContactMessage(string, services.ContactMessage) {
	m.contact++
}

func newContactEngine(mailer *nopMailer) http.Handler {
	h := NewContactHandler(services.NewContactService(
		services.NewMemoryLimiter(services.ContactLimit, services.ContactWindow), mailer, "support@voltprep.test"))
	r := gin.New()
	r.POST("/contact", h.Submit)
	return r
}

var validContact = map[string]string{"name": "Pat", "email": "pat@example.com", "message": "When is the next exam window?"}

func TestContactRateLimit(t *testing.T) {
	mailer := &nopMailer{}
	r := newContactEngine(mailer)

	for i := 0; i < services.ContactLimit; i++ {
		w := doJSON(t, r, http.MethodPost, "/contact", validContact, "X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, strconv.Itoa(services.ContactLimit-i-1), w.Header().Get("X-RateLimit-Remaining"))
	}

	w := doJSON(t, r, http.MethodPost, "/contact", validContact, "X-Forwarded-For", "203.0.113.7")
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 3500)
	assert.LessOrEqual(t, retryAfter, 3600)

	body := decode(t, w)
	assert.EqualValues(t, retryAfter, body["resetInSeconds"])
	assert.NotEmpty(t, body["error"])
	assert.Equal(t, services.ContactLimit, mailer.contact)

	other := doJSON(t, r, http.MethodPost, "/contact", validContact, "X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestContactLimitCountsInvalidSubmissions(t *testing.T) {
	mailer := &nopMailer{}
	r := newContactEngine(mailer)

	for i := 0; i < services.ContactLimit; i++ {
		w := doJSON(t, r, http.MethodPost, "/contact", map[string]string{"name": "Pat"}, "X-Real-IP", "192.0.2.9")
		require.Equal(t, http.StatusBadRequest, w.Code)
	}
	w := doJSON(t, r, http.MethodPost, "/contact", validContact, "X-Real-IP", "192.0.2.9")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Zero(t, mailer.contact)
}
