package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"voltprep/internal/models"
	"voltprep/internal/utils"
)

const (
	minPasswordLength = 8
	verifyTokenTTL    = 24 * time.Hour
	resetTokenTTL     = time.Hour
	tokenBytes        = 32
)

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// ProfileInput 只更新非空字段
type ProfileInput struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=100"`
	Username       *string `json:"username" validate:"omitempty,username"`
	City           *string `json:"city" validate:"omitempty,max=100"`
	State          *string `json:"state" validate:"omitempty,max=50"`
	DateOfBirth    *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	TargetExamDate *string `json:"targetExamDate" validate:"omitempty,datetime=2006-01-02"`
	Newsletter     *bool   `json:"newsletter"`
}

// GoogleProfile Google 返回的用户信息
type GoogleProfile struct {
	ID            string
	Email         string
	Name          string
	VerifiedEmail bool
}

type AccountService struct {
	users     UserStore
	tokens    TokenStore
	mailer    Mailer
	siteURL   string
	trialDays int
	validate  *validator.Validate
	now       Clock
}

func NewAccountService(users UserStore, tokens TokenStore, mailer Mailer, siteURL string, trialDays int) *AccountService {
	return &AccountService{
		users:     users,
		tokens:    tokens,
		mailer:    mailer,
		siteURL:   siteURL,
		trialDays: trialDays,
		validate:  newValidator(),
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AccountService) newUser(email, name string, provider models.AuthProvider) *models.User {
	trialEnds := s.now().AddDate(0, 0, s.trialDays)
	return &models.User{
		ID:                 uuid.NewString(),
		Email:              email,
		Name:               name,
		AuthProvider:       provider,
		Level:              1,
		SubscriptionStatus: models.StatusTrialing,
		TrialEndsAt:        &trialEnds,
	}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(utils.StripTags(in.Name))
	if err := s.validate.Var(email, "required,email,max=254"); err != nil {
		return nil, invalid("email", "a valid email is required")
	}
	if name == "" || len(name) > 100 {
		return nil, invalid("name", "name is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid("password", "password must be at least %d characters", minPasswordLength)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := s.newUser(email, name, models.ProviderEmail)
	user.PasswordHash = &hash
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		// 账号已创建，用户可以重新申请验证邮件
		log.Printf("verification token for %s failed: %v", user.ID, err)
	}
	s.mailer.SendWelcomeEmail(user.Email, user.Name)
	return user, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == nil || !utils.CheckPasswordHash(password, *user.PasswordHash) {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func (s *AccountService) sendVerification(ctx context.Context, user *models.User) error {
	token, err := s.issueToken(ctx, PurposeVerifyEmail, user.ID, verifyTokenTTL)
	if err != nil {
		return err
	}
	s.mailer.SendVerificationEmail(user.Email, user.Name, s.link("/auth/verify-email", token))
	return nil
}

// ResendVerification 已验证的账号直接返回
func (s *AccountService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}
	return s.sendVerification(ctx, user)
}

func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	rec, err := s.consumeToken(ctx, PurposeVerifyEmail, token)
	if err != nil {
		return err
	}
	if err := s.users.UpdateFields(ctx, rec.UserID, map[string]interface{}{"email_verified": true}); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return s.tokens.Delete(ctx, PurposeVerifyEmail, rec.ID)
}

// ForgotPassword 无论邮箱是否存在都返回成功，避免泄露账号
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.issueToken(ctx, PurposeResetPassword, user.ID, resetTokenTTL)
	if err != nil {
		return err
	}
	s.mailer.SendPasswordResetEmail(user.Email, user.Name, s.link("/reset-password", token))
	return nil
}

func (s *AccountService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < minPasswordLength {
		return invalid("password", "password must be at least %d characters", minPasswordLength)
	}
	rec, err := s.consumeToken(ctx, PurposeResetPassword, token)
	if err != nil {
		return err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdateFields(ctx, rec.UserID, map[string]interface{}{"password_hash": hash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return s.tokens.Delete(ctx, PurposeResetPassword, rec.ID)
}

// GoogleSignIn 按 Google ID、邮箱的顺序查找用户，都没有则新建
func (s *AccountService) GoogleSignIn(ctx context.Context, p GoogleProfile) (*models.User, error) {
	if !p.VerifiedEmail {
		return nil, invalid("email", "Google email is not verified")
	}

	user, err := s.users.FindByGoogleID(ctx, p.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	email := normalizeEmail(p.Email)
	user, err = s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		googleID := p.ID
		if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{
			"google_id":      googleID,
			"email_verified": true,
		}); err != nil {
			return nil, fmt.Errorf("link google account: %w", err)
		}
		user.GoogleID = &googleID
		user.EmailVerified = true
		return user, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	googleID := p.ID
	user = s.newUser(email, name, models.ProviderGoogle)
	user.GoogleID = &googleID
	user.EmailVerified = true
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.mailer.SendWelcomeEmail(user.Email, user.Name)
	return user, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	if in.Username != nil {
		u := strings.ToLower(strings.TrimSpace(*in.Username))
		in.Username = &u
	}
	if err := s.validate.StructCtx(ctx, in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, profileFieldError(verrs[0])
		}
		return nil, invalid("", "invalid profile")
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(utils.StripTags(*in.Name))
		if name == "" {
			return nil, invalid("name", "name must not be empty")
		}
		fields["name"] = name
	}
	if in.Username != nil {
		fields["username"] = *in.Username
	}
	if in.City != nil {
		fields["city"] = strings.TrimSpace(utils.StripTags(*in.City))
	}
	if in.State != nil {
		fields["state"] = strings.TrimSpace(utils.StripTags(*in.State))
	}
	if in.DateOfBirth != nil {
		d, err := parseDate("dateOfBirth", *in.DateOfBirth)
		if err != nil {
			return nil, err
		}
		if d.After(s.now()) {
			return nil, invalid("dateOfBirth", "dateOfBirth must be in the past")
		}
		fields["date_of_birth"] = d
	}
	if in.TargetExamDate != nil {
		d, err := parseDate("targetExamDate", *in.TargetExamDate)
		if err != nil {
			return nil, err
		}
		fields["target_exam_date"] = d
	}
	if in.Newsletter != nil {
		fields["newsletter"] = *in.Newsletter
	}

	if len(fields) > 0 {
		if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.users.FindByID(ctx, userID)
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, invalid(field, "%s must be formatted YYYY-MM-DD", field)
	}
	return d, nil
}

func profileFieldError(fe validator.FieldError) error {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "username":
		return invalid(field, "username must be 3-30 characters of a-z, 0-9, _ or -")
	case "datetime":
		return invalid(field, "%s must be formatted YYYY-MM-DD", field)
	case "min", "max":
		return invalid(field, "%s has an invalid length", field)
	}
	return invalid(field, "%s is invalid", field)
}

// issueToken 每个用户每种用途只保留一个有效令牌
func (s *AccountService) issueToken(ctx context.Context, purpose TokenPurpose, userID string, ttl time.Duration) (string, error) {
	token, err := utils.GenerateToken(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	rec := TokenRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.tokens.Replace(ctx, purpose, rec); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// consumeToken 查找并校验令牌，过期令牌顺手删除
func (s *AccountService) consumeToken(ctx context.Context, purpose TokenPurpose, token string) (*TokenRecord, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalid("token", "token is required")
	}
	rec, err := s.tokens.Find(ctx, purpose, token)
	if errors.Is(err, ErrNotFound) {
		return nil, invalid("token", "invalid or expired token")
	}
	if err != nil {
		return nil, err
	}
	if !s.now().Before(rec.ExpiresAt) {
		if err := s.tokens.Delete(ctx, purpose, rec.ID); err != nil {
			log.Printf("delete expired token %s: %v", rec.ID, err)
		}
		return nil, invalid("token", "invalid or expired token")
	}
	return rec, nil
}

func (s *AccountService) link(path, token string) string {
	return s.siteURL + path + "?token=" + url.QueryEscape(token)
}
