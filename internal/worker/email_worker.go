package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	PDFPath string `json:"pdf_path"`
}

type Mailer interface {
	Configurado() bool
	EnviarTicket(to, subject, body, pdfPath string) error
}

var _ Mailer = (*infra.Mailer)(nil)

// EmailWorker sends exchange tickets to customers.
type EmailWorker struct {
	mailer Mailer
}

func NewEmailWorker(mailer Mailer) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}
	if !w.mailer.Configurado() {
		log.Warn().Str("to", payload.ToEmail).Msg("email_worker: SMTP not configured, dropping email")
		return nil
	}

	err := withRetry(ctx, maxAttempts, func(attempt int) error {
		err := w.mailer.EnviarTicket(payload.ToEmail, payload.Subject, payload.Body, payload.PDFPath)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Str("to", payload.ToEmail).
				Msg("email_worker: send failed")
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("email_worker: %d attempts failed: %w", maxAttempts, err)
	}
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: ticket sent")
	return nil
}
