package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/model"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TicketJobPayload is the job envelope sent to QueueTicket.
type TicketJobPayload struct {
	CambioID     string `json:"cambio_id"`
	ClienteEmail string `json:"cliente_email"`
}

type emailEncolador interface {
	EnqueueEmail(ctx context.Context, payload interface{}) error
}

// TicketWorker renders the exchange ticket PDF and queues the email with it.
type TicketWorker struct {
	cambios     repository.CambioRepository
	emails      emailEncolador
	storagePath string
	tienda      string
	generar     func(c *model.Cambio, tienda, storagePath string) (string, error)
}

func NewTicketWorker(cambios repository.CambioRepository, emails emailEncolador, storagePath, tienda string) *TicketWorker {
	return &TicketWorker{
		cambios:     cambios,
		emails:      emails,
		storagePath: storagePath,
		tienda:      tienda,
		generar:     infra.GenerarTicketCambio,
	}
}

// Process:
//  1. Parse TicketJobPayload
//  2. Load the exchange with its lines from the ledger
//  3. Render the PDF ticket
//  4. Enqueue the email job
func (w *TicketWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload TicketJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("ticket_worker: invalid payload: %w", err)
	}
	id, err := uuid.Parse(payload.CambioID)
	if err != nil {
		return fmt.Errorf("ticket_worker: invalid cambio_id %q", payload.CambioID)
	}

	var c *model.Cambio
	err = withRetry(ctx, maxAttempts, func(int) error {
		var err error
		c, err = w.cambios.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("ticket_worker: load cambio %s: %w", id, err)
	}

	pdfPath, err := w.generar(c, w.tienda, w.storagePath)
	if err != nil {
		return fmt.Errorf("ticket_worker: %w", err)
	}
	log.Info().Str("pdf", pdfPath).Str("cambio_id", payload.CambioID).Msg("ticket_worker: PDF generated")

	if payload.ClienteEmail == "" {
		return nil
	}
	ref := c.ID.String()[:8]
	if c.RemoteID != nil && *c.RemoteID != "" {
		ref = *c.RemoteID
	}
	job := EmailJobPayload{
		ToEmail: payload.ClienteEmail,
		Subject: fmt.Sprintf("%s: comprobante de cambio #%s", w.tienda, ref),
		Body:    cuerpoEmail(c),
		PDFPath: pdfPath,
	}
	if err := w.emails.EnqueueEmail(ctx, job); err != nil {
		return fmt.Errorf("ticket_worker: enqueue email: %w", err)
	}
	return nil
}

func cuerpoEmail(c *model.Cambio) string {
	switch c.Resultado {
	case "a_favor_tienda":
		return fmt.Sprintf("Adjuntamos el comprobante de tu cambio.\nDiferencia abonada: $%s", c.MontoACobrar.StringFixed(2))
	case "a_favor_cliente":
		return fmt.Sprintf("Adjuntamos el comprobante de tu cambio.\nNota de crédito a tu favor: $%s", c.Diferencia.Neg().StringFixed(2))
	default:
		return "Adjuntamos el comprobante de tu cambio."
	}
}
