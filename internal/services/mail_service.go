package services

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strings"

	"voltprep/internal/config"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

var mailTemplates = template.Must(template.ParseFS(emailTemplates, "templates/email/*.html"))

// Mailer 邮件发送均为异步，失败只记录日志
type Mailer interface {
	SendVerificationEmail(to, name, link string)
	SendPasswordResetEmail(to, name, link string)
	SendWelcomeEmail(to, name string)
	SendContactMessage(to string, msg ContactMessage)
}

type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	SiteURL  string
	Enabled  bool

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailService(cfg *config.Config) *MailService {
	enabled := cfg.SMTPHost != "" && cfg.SMTPPort != "" && cfg.SMTPUser != "" && cfg.SMTPPass != "" && cfg.SMTPFrom != ""
	if !enabled {
		log.Println("⚠️ MailService disabled: Missing SMTP environment variables.")
	}

	return &MailService{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		SiteURL:  cfg.SiteURL,
		Enabled:  enabled,
		send:     smtp.SendMail,
	}
}

func (s *MailService) buildMessage(to []string, subject, body string, replyTo string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ","))
	fmt.Fprintf(&b, "From: VoltPrep <%s>\r\n", s.From)
	if replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", replyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func (s *MailService) sendAsync(to []string, subject, body, replyTo string) {
	if !s.Enabled {
		return
	}

	msg := s.buildMessage(to, subject, body, replyTo)
	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		if err := s.send(addr, auth, s.From, to, msg); err != nil {
			log.Printf("❌ Failed to send email to %v: %v", to, err)
		} else {
			log.Printf("✅ Email sent to %v: %s", to, subject)
		}
	}()
}

func (s *MailService) render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *MailService) SendVerificationEmail(to, name, link string) {
	body, err := s.render("verify.html", map[string]string{"Name": name, "Link": link})
	if err != nil {
		log.Printf("Error rendering verification email: %v", err)
		return
	}
	s.sendAsync([]string{to}, "Verify your VoltPrep email", body, "")
}

func (s *MailService) SendPasswordResetEmail(to, name, link string) {
	body, err := s.render("reset.html", map[string]string{"Name": name, "Link": link})
	if err != nil {
		log.Printf("Error rendering reset email: %v", err)
		return
	}
	s.sendAsync([]string{to}, "Reset your VoltPrep password", body, "")
}

func (s *MailService) SendWelcomeEmail(to, name string) {
	body, err := s.render("welcome.html", map[string]string{"Name": name, "SiteURL": s.SiteURL})
	if err != nil {
		log.Printf("Error rendering welcome email: %v", err)
		return
	}
	s.sendAsync([]string{to}, "Welcome to VoltPrep", body, "")
}

func (s *MailService) SendContactMessage(to string, msg ContactMessage) {
	body, err := s.render("contact.html", msg)
	if err != nil {
		log.Printf("Error rendering contact email: %v", err)
		return
	}
	s.sendAsync([]string{to}, "[Contact] "+msg.Name, body, msg.Email)
}
