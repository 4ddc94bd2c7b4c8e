package service

import (
	"context"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/cambio"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SesionService drives a reconciliation session step by step. Every call
// returns the session with its settlement recomputed from scratch.
type SesionService interface {
	Crear(ctx context.Context, op Operador, req dto.CrearSesionRequest) (*dto.SesionResponse, error)
	Obtener(ctx context.Context, op Operador, id string) (*dto.SesionResponse, error)
	Descartar(ctx context.Context, op Operador, id string) error
	SeleccionarVenta(ctx context.Context, op Operador, id string, req dto.SeleccionarVentaRequest) (*dto.SesionResponse, error)
	MarcarDevolucion(ctx context.Context, op Operador, id, lineaID string, req dto.MarcarDevolucionRequest) (*dto.SesionResponse, error)
	AgregarProducto(ctx context.Context, op Operador, id string, req dto.AgregarProductoRequest) (*dto.SesionResponse, error)
	CambiarCantidad(ctx context.Context, op Operador, id, productoID string, req dto.CambiarCantidadRequest) (*dto.SesionResponse, error)
	QuitarProducto(ctx context.Context, op Operador, id, productoID string) (*dto.SesionResponse, error)
	AplicarAjuste(ctx context.Context, op Operador, id string, req dto.AjusteRequest) (*dto.SesionResponse, error)
	ElegirPago(ctx context.Context, op Operador, id string, req dto.PagoRequest) (*dto.SesionResponse, error)
}

type sesionService struct {
	repo    repository.SesionRepository
	retail  RetailAPI
	metodos MetodoPagoService
	now     func() time.Time
}

func NewSesionService(repo repository.SesionRepository, retail RetailAPI, metodos MetodoPagoService) SesionService {
	return &sesionService{repo: repo, retail: retail, metodos: metodos, now: time.Now}
}

func (s *sesionService) Crear(ctx context.Context, op Operador, req dto.CrearSesionRequest) (*dto.SesionResponse, error) {
	ses := cambio.NuevaSesion(uuid.NewString(), op.UsuarioID, op.TiendaID, s.now())
	if req.VentaID != "" {
		venta, err := s.retail.BuscarVenta(ctx, req.VentaID)
		if err != nil {
			return nil, err
		}
		if err := ses.SeleccionarVenta(venta.Original()); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, ses); err != nil {
		return nil, err
	}
	log.Debug().Str("sesion_id", ses.ID).Str("usuario_id", op.UsuarioID).Msg("sesion de cambio creada")
	return SesionToResponse(ses), nil
}

func (s *sesionService) Obtener(ctx context.Context, op Operador, id string) (*dto.SesionResponse, error) {
	ses, err := cargarSesion(ctx, s.repo, op, id)
	if err != nil {
		return nil, err
	}
	return SesionToResponse(ses), nil
}

func (s *sesionService) Descartar(ctx context.Context, op Operador, id string) error {
	ses, err := cargarSesion(ctx, s.repo, op, id)
	if err != nil {
		return err
	}
	if ses.CambioID != "" {
		log.Warn().Str("sesion_id", id).Str("cambio_id", ses.CambioID).
			Msg("sesion descartada con seguimiento pendiente")
	}
	return s.repo.Delete(ctx, id)
}

func (s *sesionService) SeleccionarVenta(ctx context.Context, op Operador, id string, req dto.SeleccionarVentaRequest) (*dto.SesionResponse, error) {
	return s.modificar(ctx, op, id, func(ses *cambio.Sesion) error {
		venta, err := s.retail.BuscarVenta(ctx, req.VentaID)
		if err != nil {
			return err
		}
		return ses.SeleccionarVenta(venta.Original())
	})
}

func (s *sesionService) MarcarDevolucion(ctx context.Context, op Operador, id, lineaID string, req dto.MarcarDevolucionRequest) (*dto.SesionResponse, error) {
	return s.modificar(ctx, op, id, func(ses *cambio.Sesion) error {
		return ses.MarcarDevolucion(lineaID, req.Cantidad)
	})
}

// AgregarProducto re-reads the product so price and stock are current.
func (s *sesionService) AgregarProducto(ctx context.Context, op Operador, id string, req dto.AgregarProductoRequest) (*dto.SesionResponse, error) {
	return s.modificar(ctx, op, id, func(ses *cambio.Sesion) error {
		p, err := s.retail.ObtenerProducto(ctx, req.ProductoID)
		if err != nil {
			return err
		}
		return ses.AgregarProducto(p.Producto(), req.Cantidad)
	})
}

func (s *sesionService) CambiarCantidad(ctx context.Context, op Operador, id, productoID string, req dto.CambiarCantidadRequest) (*dto.SesionResponse, error) {
	return s.modificar(ctx, op, id, func(ses *cambio.Sesion) error {
		return ses.CambiarCantidad(productoID, req.Cantidad)
	})
}

func (s *sesionService) QuitarProducto(ctx context.Context, op Operador, id, productoID string) (*dto.SesionResponse, error) {
	return s.modificar(ctx, op, id, func(ses *cambio.Sesion) error {
		return ses.CambiarCantidad(productoID, 0)
	})
}

func (s *sesionService) AplicarAjuste(ctx context.Context, op Operador, id string, req dto.AjusteRequest) (*dto.SesionResponse, error) {
	ajuste, err := cambio.NuevoAjuste(cambio.TipoAjuste(req.Tipo), req.Valor)
	if err != nil {
		return nil, err
	}
	return s.modificar(ctx, op, id, func(ses *cambio.Sesion) error {
		return ses.AplicarAjuste(ajuste, req.Redondeo)
	})
}

func (s *sesionService) ElegirPago(ctx context.Context, op Operador, id string, req dto.PagoRequest) (*dto.SesionResponse, error) {
	metodo, err := s.metodos.Buscar(ctx, req.MetodoPagoID)
	if err != nil {
		return nil, err
	}
	return s.modificar(ctx, op, id, func(ses *cambio.Sesion) error {
		return ses.ElegirPago(metodo, req.ArancelID)
	})
}

// modificar loads the session, applies fn and saves it only if fn succeeded.
func (s *sesionService) modificar(ctx context.Context, op Operador, id string, fn func(*cambio.Sesion) error) (*dto.SesionResponse, error) {
	ses, err := cargarSesion(ctx, s.repo, op, id)
	if err != nil {
		return nil, err
	}
	if err := fn(ses); err != nil {
		return nil, err
	}
	ses.ActualizadaEn = s.now()
	if err := s.repo.Save(ctx, ses); err != nil {
		return nil, err
	}
	return SesionToResponse(ses), nil
}

// cargarSesion hides other operators' sessions behind a not-found.
func cargarSesion(ctx context.Context, repo repository.SesionRepository, op Operador, id string) (*cambio.Sesion, error) {
	ses, err := repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if ses.UsuarioID != op.UsuarioID {
		return nil, repository.ErrSesionNoEncontrada
	}
	return ses, nil
}

// SesionToResponse recomputes the settlement preview for the UI.
func SesionToResponse(ses *cambio.Sesion) *dto.SesionResponse {
	liq := ses.Liquidacion()
	resp := &dto.SesionResponse{
		ID:            ses.ID,
		Estado:        ses.Estado,
		Venta:         ses.Venta,
		Devolucion:    []dto.DevolucionItemResponse{},
		Carrito:       ses.Carrito,
		MetodoPago:    ses.MetodoPago,
		Arancel:       ses.Arancel,
		Liquidacion:   liq,
		Resultado:     liq.Resultado(),
		CambioID:      ses.CambioID,
		UltimoError:   ses.UltimoError,
		ActualizadaEn: ses.ActualizadaEn.Format(time.RFC3339),
	}
	if ses.Venta != nil {
		for _, it := range ses.Seleccion.Items(*ses.Venta) {
			l, _ := ses.Venta.Linea(it.LineaID)
			resp.Devolucion = append(resp.Devolucion, dto.DevolucionItemResponse{
				LineaID:        it.LineaID,
				Producto:       l.Producto,
				Cantidad:       it.Cantidad,
				PrecioAjustado: cambio.Centavos(ses.Venta.PrecioAjustado(l)),
				Subtotal:       cambio.Centavos(cambio.ValorLinea(l.PrecioUnitario, it.Cantidad, ses.Venta.Ajuste, ses.Venta.Subtotal())),
			})
		}
	}
	return resp
}
