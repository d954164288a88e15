package services

import (
	"context"
	"html/template"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"

	"voltprep/internal/utils"
)

type ContactInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

// ContactMessage 渲染进邮件模板的内容，Body 已清洗
type ContactMessage struct {
	Name  string
	Email string
	Body  template.HTML
}

type ContactService struct {
	limiter  Limiter
	mailer   Mailer
	to       string
	validate *validator.Validate
}

func NewContactService(limiter Limiter, mailer Mailer, to string) *ContactService {
	return &ContactService{limiter: limiter, mailer: mailer, to: to, validate: newValidator()}
}

// Check 限流后端出错时放行，联系表单不是安全边界
func (s *ContactService) Check(ctx context.Context, clientKey string) Decision {
	d, err := s.limiter.Allow(ctx, clientKey)
	if err != nil {
		log.Printf("contact rate limit check failed for %s: %v", clientKey, err)
		return Decision{Allowed: true, Limit: ContactLimit, Remaining: ContactLimit}
	}
	return d
}

func (s *ContactService) Submit(ctx context.Context, in ContactInput) error {
	in.Name = strings.TrimSpace(utils.StripTags(in.Name))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Message = strings.TrimSpace(in.Message)

	if err := s.validate.StructCtx(ctx, in); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return contactFieldError(verrs[0])
		}
		return invalid("", "invalid contact form")
	}

	if s.to == "" {
		log.Printf("contact message from %s dropped: CONTACT_EMAIL not set", in.Email)
		return nil
	}
	s.mailer.SendContactMessage(s.to, ContactMessage{
		Name:  in.Name,
		Email: in.Email,
		Body:  utils.RenderMarkdown(in.Message),
	})
	return nil
}

func contactFieldError(fe validator.FieldError) error {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return invalid(field, "%s is required", field)
	case "email":
		return invalid(field, "email is not a valid address")
	case "min":
		return invalid(field, "%s must be at least %s characters", field, fe.Param())
	case "max":
		return invalid(field, "%s must be at most %s characters", field, fe.Param())
	}
	return invalid(field, "%s is invalid", field)
}
