package infra

import (
	"fmt"
	"net/smtp"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends exchange tickets over SMTP.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	from     string
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.SMTPUser
	if cfg.NombreTienda != "" && cfg.SMTPUser != "" {
		from = fmt.Sprintf("%s <%s>", cfg.NombreTienda, cfg.SMTPUser)
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		from:     from,
	}
}

// Configurado is false when no SMTP host is set; jobs are then dropped.
func (m *Mailer) Configurado() bool { return m.host != "" }

// EnviarTicket mails the exchange ticket PDF to the customer.
func (m *Mailer) EnviarTicket(to, subject, body, pdfPath string) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := e.Send(m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}
