package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/cambio"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/model"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/repository"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AdvertenciaNotaCredito is shown when the retail API accepted a return that
// owes the customer money but did not say which credit-note sale it created.
const AdvertenciaNotaCredito = "nota de crédito generada pero no recuperable: buscarla en el listado de ventas"

// AdvertenciaSinNotaCredito is shown when the retail API accepted the return
// but reports that it generated no credit note.
const AdvertenciaSinNotaCredito = "el servidor no generó nota de crédito para esta devolución"

var (
	// ErrSinSeguimiento: the ledger row has no follow-up step to retry.
	ErrSinSeguimiento = errors.New("el cambio no tiene pasos pendientes")
	// ErrCambioSinRegistro: the exchange exists remotely but its ledger row
	// could not be written, so the follow-up cannot be resumed from here.
	ErrCambioSinRegistro = errors.New("el cambio se registró en ventas pero no en el registro local")
)

// ErrorSeguimiento reports that the exchange was created remotely and the
// step after it failed. The exchange is not rolled back.
type ErrorSeguimiento struct {
	CambioID string
	Paso     string
	Err      error
}

func (e *ErrorSeguimiento) Error() string {
	return fmt.Sprintf("el cambio %s quedó registrado pero falló %s: %v", e.CambioID, e.Paso, e.Err)
}

func (e *ErrorSeguimiento) Unwrap() error { return e.Err }

// Encolador queues background jobs.
type Encolador interface {
	EnqueueTicket(ctx context.Context, payload interface{}) error
}

// CambioService submits settlements to the retail API and keeps the local
// ledger of submitted exchanges.
type CambioService interface {
	Confirmar(ctx context.Context, op Operador, sesionID string, req dto.ConfirmarRequest) (*dto.ConfirmarResponse, error)
	ReintentarNotaCredito(ctx context.Context, id uuid.UUID) (*dto.NotaCreditoResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.CambioResponse, error)
	Listar(ctx context.Context, filter dto.CambioFilter) (*dto.CambioListResponse, error)
}

type cambioService struct {
	sesiones  repository.SesionRepository
	repo      repository.CambioRepository
	retail    RetailAPI
	encolador Encolador // nil disables ticket mailing
	now       func() time.Time
}

func NewCambioService(
	sesiones repository.SesionRepository,
	repo repository.CambioRepository,
	retail RetailAPI,
	encolador Encolador,
) CambioService {
	return &cambioService{
		sesiones:  sesiones,
		repo:      repo,
		retail:    retail,
		encolador: encolador,
		now:       time.Now,
	}
}

// ── Confirmar ─────────────────────────────────────────────────────────────────
//   1. Take the session's submit lock (a second concurrent submit fails)
//   2. Validate locally: no network call on validation errors
//   3. POST the exchange, unless a previous attempt already created it
//   4. Write the ledger row with the follow-up state
//   5. Follow-up: supplementary sale (difference > 0) or credit note (< 0)
//   6. Settle the session and clear its selection, or send it back to the
//      previous state with the error
//   7. (async) ticket PDF + email when the customer left an address

func (s *cambioService) Confirmar(ctx context.Context, op Operador, sesionID string, req dto.ConfirmarRequest) (*dto.ConfirmarResponse, error) {
	liberar, err := s.sesiones.Bloquear(ctx, sesionID)
	if err != nil {
		if errors.Is(err, repository.ErrEnvioEnCurso) {
			infra.CambiosConfirmados.WithLabelValues("en_curso").Inc()
		}
		return nil, err
	}
	defer liberar()

	ses, err := cargarSesion(ctx, s.sesiones, op, sesionID)
	if err != nil {
		return nil, err
	}
	if req.Motivo != "" && ses.CambioID == "" {
		ses.Motivo = req.Motivo
	}

	liq, err := ses.IniciarEnvio()
	if err != nil {
		infra.CambiosConfirmados.WithLabelValues("error_validacion").Inc()
		return nil, err
	}
	if err := s.guardar(ctx, ses); err != nil {
		return nil, err
	}

	resp, err := s.enviar(ctx, op, ses, liq, req)
	if err != nil {
		ses.FallarEnvio(err)
		if gErr := s.guardar(ctx, ses); gErr != nil {
			log.Error().Err(gErr).Str("sesion_id", ses.ID).Msg("cambios: no se pudo guardar la sesión tras el fallo")
		}
		var seg *ErrorSeguimiento
		if errors.As(err, &seg) {
			infra.CambiosConfirmados.WithLabelValues("error_seguimiento").Inc()
		} else {
			infra.CambiosConfirmados.WithLabelValues("error_cambio").Inc()
		}
		return nil, err
	}

	if err := ses.Liquidar(liq.Resultado()); err != nil {
		return nil, err
	}
	if err := s.guardar(ctx, ses); err != nil {
		// the exchange is complete; a stale session only costs a reload
		log.Error().Err(err).Str("sesion_id", ses.ID).Msg("cambios: no se pudo guardar la sesión liquidada")
	}
	resp.Estado = ses.Estado
	infra.CambiosConfirmados.WithLabelValues(string(resp.Resultado)).Inc()
	return resp, nil
}

func (s *cambioService) enviar(ctx context.Context, op Operador, ses *cambio.Sesion, liq cambio.Liquidacion, req dto.ConfirmarRequest) (*dto.ConfirmarResponse, error) {
	registro, err := s.registrar(ctx, op, ses, liq, req)
	if err != nil {
		return nil, err
	}

	resp := &dto.ConfirmarResponse{
		CambioID:       registro.ID.String(),
		CambioRemotoID: deref(registro.RemoteID),
		Resultado:      liq.Resultado(),
		Liquidacion:    liq,
	}
	logger := log.With().
		Str("sesion_id", ses.ID).
		Str("cambio_id", resp.CambioID).
		Str("venta_id", registro.VentaOriginalID).
		Logger()

	switch liq.Resultado() {
	case cambio.AFavorTienda:
		venta, err := s.ventaSuplementaria(ctx, op, ses, liq, registro)
		if err != nil {
			logger.Error().Err(err).Msg("cambios: falló la venta por la diferencia")
			return nil, &ErrorSeguimiento{CambioID: resp.CambioID, Paso: "la venta por la diferencia", Err: err}
		}
		resp.VentaSuplementaria = venta
		resp.PuedeFacturar = venta != nil

	case cambio.AFavorCliente:
		nc, advertencia, err := s.notaCredito(ctx, registro)
		if err != nil {
			logger.Error().Err(err).Msg("cambios: no se pudo recuperar la nota de crédito")
			return nil, &ErrorSeguimiento{CambioID: resp.CambioID, Paso: "la recuperación de la nota de crédito", Err: err}
		}
		resp.NotaCredito = nc
		resp.Advertencia = advertencia
		if advertencia != "" {
			logger.Warn().Msg("cambios: nota de crédito sin referencia")
		}
	}

	if req.ClienteEmail != nil && *req.ClienteEmail != "" && s.encolador != nil {
		payload := worker.TicketJobPayload{CambioID: resp.CambioID, ClienteEmail: *req.ClienteEmail}
		if err := s.encolador.EnqueueTicket(ctx, payload); err != nil {
			logger.Warn().Err(err).Msg("cambios: no se pudo encolar el ticket")
		}
	}

	logger.Info().
		Str("resultado", string(resp.Resultado)).
		Str("diferencia", liq.Diferencia.StringFixed(2)).
		Msg("cambio confirmado")
	return resp, nil
}

// registrar creates the exchange remotely and writes its ledger row, or loads
// the row of an exchange created by a previous attempt.
func (s *cambioService) registrar(ctx context.Context, op Operador, ses *cambio.Sesion, liq cambio.Liquidacion, req dto.ConfirmarRequest) (*model.Cambio, error) {
	if ses.CambioID != "" {
		id, err := uuid.Parse(ses.CambioID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCambioSinRegistro, ses.CambioID)
		}
		registro, err := s.repo.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCambioSinRegistro, ses.CambioID)
		}
		return registro, err
	}

	remoto, err := s.retail.CrearCambio(ctx, infra.CambioRequest{
		VentaOriginalID: ses.Venta.ID,
		TiendaID:        op.TiendaID,
		UsuarioID:       op.UsuarioID,
		Motivo:          ses.Motivo,
		Lineas:          liq.Lineas,
	})
	if err != nil {
		return nil, err
	}

	registro := nuevoRegistro(ses, liq, remoto)
	if req.ClienteEmail != nil && *req.ClienteEmail != "" {
		registro.ClienteEmail = req.ClienteEmail
	}
	// from here on a retry must never create the exchange again
	ses.RegistrarCambio(registro.ID.String())

	if err := s.repo.Create(ctx, registro); err != nil {
		log.Error().Err(err).
			Str("cambio_id", registro.ID.String()).
			Str("remote_id", remoto.ID).
			Msg("cambios: no se pudo escribir el registro local")
		return nil, &ErrorSeguimiento{CambioID: remoto.ID, Paso: "el registro local", Err: err}
	}
	return registro, nil
}

func nuevoRegistro(ses *cambio.Sesion, liq cambio.Liquidacion, remoto *infra.CambioRetail) *model.Cambio {
	estado := model.EstadoCompletado
	switch liq.Resultado() {
	case cambio.AFavorTienda:
		estado = model.EstadoPendienteVenta
	case cambio.AFavorCliente:
		switch {
		case remoto.VentaNotaCreditoID != "":
			estado = model.EstadoPendienteNotaCredito
		case remoto.NotaCreditoGenerada:
			estado = model.EstadoNotaCreditoNoRecuperable
		default:
			estado = model.EstadoSinNotaCredito
		}
	}

	id := uuid.New()
	remoteID := remoto.ID
	c := &model.Cambio{
		ID:              id,
		RemoteID:        &remoteID,
		VentaOriginalID: ses.Venta.ID,
		TiendaID:        ses.TiendaID,
		UsuarioID:       ses.UsuarioID,
		SesionID:        ses.ID,
		Motivo:          ses.Motivo,
		Estado:          estado,
		Resultado:       string(liq.Resultado()),
		MontoDevuelto:   liq.MontoDevuelto,
		TotalCarrito:    liq.Carrito.Total,
		Diferencia:      liq.Diferencia,
		MontoACobrar:    liq.MontoACobrar,
	}
	if remoto.VentaNotaCreditoID != "" {
		nc := remoto.VentaNotaCreditoID
		c.VentaNotaCreditoID = &nc
	}
	if ses.MetodoPago != nil && liq.Resultado() == cambio.AFavorTienda {
		mp := ses.MetodoPago.ID
		c.MetodoPagoID = &mp
		if ses.Arancel != nil {
			a := ses.Arancel.ID
			c.ArancelID = &a
		}
	}
	for i, l := range liq.Lineas {
		linea := model.CambioLinea{
			ID:          uuid.New(),
			CambioID:    id,
			Orden:       i,
			Accion:      string(l.Accion),
			Cantidad:    l.Cantidad,
			PrecioNuevo: l.PrecioNuevo,
		}
		if l.LineaVentaID != "" {
			v := l.LineaVentaID
			linea.LineaVentaID = &v
		}
		if l.ProductoNuevoID != "" {
			p := l.ProductoNuevoID
			linea.ProductoNuevoID = &p
		}
		c.Lineas = append(c.Lineas, linea)
	}
	return c
}

// ventaSuplementaria charges the difference. The sale carries the cart's
// equivalent adjustment so its stored total matches the (possibly rounded)
// cart total.
func (s *cambioService) ventaSuplementaria(ctx context.Context, op Operador, ses *cambio.Sesion, liq cambio.Liquidacion, registro *model.Cambio) (*dto.VentaResumen, error) {
	if registro.VentaSuplementariaID != nil {
		// charged by a previous attempt whose session save was lost
		return &dto.VentaResumen{ID: *registro.VentaSuplementariaID, Lineas: []dto.VentaLineaResumen{}}, nil
	}

	if ses.MetodoPago == nil {
		return nil, cambio.ErrMetodoPagoRequerido
	}
	req := infra.VentaRequest{
		TiendaID:     op.TiendaID,
		UsuarioID:    op.UsuarioID,
		MetodoPagoID: ses.MetodoPago.ID,
		CambioID:     deref(registro.RemoteID),
		CamposAjuste: liq.Carrito.AjusteEquivalente.Campos(),
	}
	if ses.Arancel != nil {
		req.ArancelID = ses.Arancel.ID
	}
	for _, l := range ses.Carrito.Lineas {
		req.Detalles = append(req.Detalles, infra.DetalleVentaRequest{
			ProductoID:     l.Producto.ID,
			Cantidad:       l.Cantidad,
			PrecioUnitario: l.Producto.Precio,
		})
	}

	// the payment method, and with it the fee surcharge, may have changed
	// since the last attempt
	mp := ses.MetodoPago.ID
	registro.MetodoPagoID = &mp
	registro.MontoACobrar = liq.MontoACobrar
	registro.ArancelID = nil
	if ses.Arancel != nil {
		a := ses.Arancel.ID
		registro.ArancelID = &a
	}

	venta, err := s.retail.CrearVenta(ctx, req)
	if err != nil {
		s.actualizar(ctx, registro, model.EstadoPendienteVenta, err)
		return nil, err
	}
	id := venta.ID
	registro.VentaSuplementariaID = &id
	s.actualizar(ctx, registro, model.EstadoCompletado, nil)
	return ventaToResumen(venta), nil
}

// notaCredito fetches the credit-note sale. A missing reference is not an
// error: the exchange succeeded, the operator gets a warning.
func (s *cambioService) notaCredito(ctx context.Context, registro *model.Cambio) (*dto.VentaResumen, string, error) {
	if registro.VentaNotaCreditoID == nil || *registro.VentaNotaCreditoID == "" {
		if registro.Estado == model.EstadoSinNotaCredito {
			s.actualizar(ctx, registro, model.EstadoSinNotaCredito, nil)
			return nil, AdvertenciaSinNotaCredito, nil
		}
		s.actualizar(ctx, registro, model.EstadoNotaCreditoNoRecuperable, nil)
		return nil, AdvertenciaNotaCredito, nil
	}
	venta, err := s.retail.ObtenerNotaCredito(ctx, *registro.VentaNotaCreditoID)
	if err != nil {
		estado := model.EstadoPendienteNotaCredito
		if registro.Estado == model.EstadoNotaCreditoAbandonada {
			estado = registro.Estado
		}
		s.actualizar(ctx, registro, estado, err)
		return nil, "", err
	}
	s.actualizar(ctx, registro, model.EstadoCompletado, nil)
	return ventaToResumen(venta), "", nil
}

// actualizar records the outcome of a follow-up attempt. Ledger write
// failures are logged only: the remote state is what matters to the
// customer and the row can be fixed from the logs.
func (s *cambioService) actualizar(ctx context.Context, registro *model.Cambio, estado string, causa error) {
	if registro.Estado != model.EstadoCompletado || estado != model.EstadoCompletado {
		registro.Intentos++
	}
	registro.Estado = estado
	registro.LastError = nil
	if causa != nil {
		msg := causa.Error()
		registro.LastError = &msg
	}
	if err := s.repo.Update(ctx, registro); err != nil {
		log.Error().Err(err).Str("cambio_id", registro.ID.String()).Str("estado", estado).
			Msg("cambios: no se pudo actualizar el registro local")
	}
}

func (s *cambioService) guardar(ctx context.Context, ses *cambio.Sesion) error {
	ses.ActualizadaEn = s.now()
	return s.sesiones.Save(ctx, ses)
}

// ── Ledger ────────────────────────────────────────────────────────────────────

func (s *cambioService) ReintentarNotaCredito(ctx context.Context, id uuid.UUID) (*dto.NotaCreditoResponse, error) {
	registro, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if registro.Estado != model.EstadoPendienteNotaCredito && registro.Estado != model.EstadoNotaCreditoAbandonada {
		return nil, fmt.Errorf("%w (estado %s)", ErrSinSeguimiento, registro.Estado)
	}
	nc, advertencia, err := s.notaCredito(ctx, registro)
	if err != nil {
		return nil, &ErrorSeguimiento{CambioID: registro.ID.String(), Paso: "la recuperación de la nota de crédito", Err: err}
	}
	return &dto.NotaCreditoResponse{
		Cambio:      CambioToResponse(registro),
		NotaCredito: nc,
		Advertencia: advertencia,
	}, nil
}

func (s *cambioService) Obtener(ctx context.Context, id uuid.UUID) (*dto.CambioResponse, error) {
	registro, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := CambioToResponse(registro)
	return &resp, nil
}

func (s *cambioService) Listar(ctx context.Context, filter dto.CambioFilter) (*dto.CambioListResponse, error) {
	cambios, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.CambioResponse, 0, len(cambios))
	for i := range cambios {
		data = append(data, CambioToResponse(&cambios[i]))
	}
	return &dto.CambioListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Mapping ───────────────────────────────────────────────────────────────────

func CambioToResponse(c *model.Cambio) dto.CambioResponse {
	resp := dto.CambioResponse{
		ID:                   c.ID.String(),
		RemoteID:             deref(c.RemoteID),
		VentaOriginalID:      c.VentaOriginalID,
		TiendaID:             c.TiendaID,
		UsuarioID:            c.UsuarioID,
		Motivo:               c.Motivo,
		Estado:               c.Estado,
		Resultado:            c.Resultado,
		MontoDevuelto:        c.MontoDevuelto,
		TotalCarrito:         c.TotalCarrito,
		Diferencia:           c.Diferencia,
		MontoACobrar:         c.MontoACobrar,
		MetodoPagoID:         deref(c.MetodoPagoID),
		VentaSuplementariaID: deref(c.VentaSuplementariaID),
		VentaNotaCreditoID:   deref(c.VentaNotaCreditoID),
		LastError:            deref(c.LastError),
		Intentos:             c.Intentos,
		Lineas:               make([]dto.CambioLineaResponse, 0, len(c.Lineas)),
		CreatedAt:            c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            c.UpdatedAt.Format(time.RFC3339),
	}
	for _, l := range c.Lineas {
		resp.Lineas = append(resp.Lineas, dto.CambioLineaResponse{
			Accion:          l.Accion,
			LineaVentaID:    deref(l.LineaVentaID),
			Cantidad:        l.Cantidad,
			ProductoNuevoID: deref(l.ProductoNuevoID),
			PrecioNuevo:     l.PrecioNuevo,
		})
	}
	return resp
}

func ventaToResumen(v *infra.VentaRetail) *dto.VentaResumen {
	r := &dto.VentaResumen{
		ID:     v.ID,
		Fecha:  v.Fecha.Format(time.RFC3339),
		Total:  v.Total,
		Lineas: make([]dto.VentaLineaResumen, 0, len(v.Detalles)),
	}
	for _, d := range v.Detalles {
		sub := d.Subtotal
		if sub.IsZero() {
			sub = d.PrecioUnitario.Mul(decimal.NewFromInt(int64(d.Cantidad)))
		}
		r.Lineas = append(r.Lineas, dto.VentaLineaResumen{
			ProductoID:     d.ProductoID,
			Producto:       d.ProductoNombre,
			Cantidad:       d.Cantidad,
			PrecioUnitario: d.PrecioUnitario,
			Subtotal:       sub,
		})
	}
	return r
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
