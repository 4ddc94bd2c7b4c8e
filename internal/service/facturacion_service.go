package service

import (
	"context"
	"strings"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type FacturacionService interface {
	// EmitirFactura invoices a supplementary sale (POST /v1/facturacion/ventas/:venta_id).
	EmitirFactura(ctx context.Context, ventaID string, req dto.FacturarRequest) (*dto.FacturaResponse, error)
	// TicketPDF renders the exchange ticket and returns its path (GET /v1/cambios/:id/ticket).
	TicketPDF(ctx context.Context, cambioID uuid.UUID) (string, error)
}

type facturacionService struct {
	retail      RetailAPI
	cambios     repository.CambioRepository
	storagePath string
	tienda      string
}

func NewFacturacionService(retail RetailAPI, cambios repository.CambioRepository, storagePath, tienda string) FacturacionService {
	return &facturacionService{retail: retail, cambios: cambios, storagePath: storagePath, tienda: tienda}
}

func (s *facturacionService) EmitirFactura(ctx context.Context, ventaID string, req dto.FacturarRequest) (*dto.FacturaResponse, error) {
	f, err := s.retail.EmitirFactura(ctx, ventaID, infra.FacturaRequest{
		Nombre:       strings.TrimSpace(req.Nombre),
		CUIT:         req.CUIT,
		Domicilio:    strings.TrimSpace(req.Domicilio),
		CondicionIVA: req.CondicionIVA,
	})
	if err != nil {
		log.Warn().Err(err).Str("venta_id", ventaID).Msg("facturacion: emisión rechazada")
		return nil, err
	}
	log.Info().Str("venta_id", ventaID).Str("factura", f.Numero).Msg("facturacion: factura emitida")
	return &dto.FacturaResponse{
		ID:      f.ID,
		VentaID: ventaID,
		Tipo:    f.Tipo,
		Numero:  f.Numero,
		CAE:     f.CAE,
		Total:   f.Total,
		Fecha:   f.Fecha.Format(time.RFC3339),
	}, nil
}

func (s *facturacionService) TicketPDF(ctx context.Context, cambioID uuid.UUID) (string, error) {
	c, err := s.cambios.FindByID(ctx, cambioID)
	if err != nil {
		return "", err
	}
	return infra.GenerarTicketCambio(c, s.tienda, s.storagePath)
}
