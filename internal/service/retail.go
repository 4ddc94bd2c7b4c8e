package service

import (
	"context"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
)

// RetailAPI is the subset of the retail REST API the services use.
type RetailAPI interface {
	BuscarVenta(ctx context.Context, id string) (*infra.VentaRetail, error)
	ObtenerProducto(ctx context.Context, id string) (*infra.ProductoRetail, error)
	ListarMetodosPago(ctx context.Context) ([]infra.MetodoPagoRetail, error)
	CrearCambio(ctx context.Context, req infra.CambioRequest) (*infra.CambioRetail, error)
	CrearVenta(ctx context.Context, req infra.VentaRequest) (*infra.VentaRetail, error)
	ObtenerNotaCredito(ctx context.Context, ventaID string) (*infra.VentaRetail, error)
	EmitirFactura(ctx context.Context, ventaID string, req infra.FacturaRequest) (*infra.FacturaRetail, error)
}

var _ RetailAPI = (*infra.RetailClient)(nil)

// Operador is the authenticated user acting on a session, taken from the JWT.
type Operador struct {
	UsuarioID string
	TiendaID  string
	Rol       string
}
