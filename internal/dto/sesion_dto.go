package dto

import (
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/cambio"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearSesionRequest struct {
	// VentaID optionally selects the original sale right away.
	VentaID string `json:"venta_id" validate:"omitempty,max=64"`
}

type SeleccionarVentaRequest struct {
	VentaID string `json:"venta_id" validate:"required,max=64"`
}

type MarcarDevolucionRequest struct {
	// Cantidad 0 unselects the line.
	Cantidad int `json:"cantidad" validate:"min=0"`
}

type AgregarProductoRequest struct {
	ProductoID string `json:"producto_id" validate:"required,max=64"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
}

type CambiarCantidadRequest struct {
	// Cantidad 0 removes the line.
	Cantidad int `json:"cantidad" validate:"min=0"`
}

type AjusteRequest struct {
	Tipo     string          `json:"tipo"     validate:"required,oneof=ninguno descuento_porcentaje descuento_monto recargo_porcentaje recargo_monto"`
	Valor    decimal.Decimal `json:"valor"    validate:"min=0"`
	Redondeo bool            `json:"redondeo"`
}

type PagoRequest struct {
	MetodoPagoID string `json:"metodo_pago_id" validate:"required,max=64"`
	ArancelID    string `json:"arancel_id"     validate:"omitempty,max=64"`
}

type ConfirmarRequest struct {
	Motivo string `json:"motivo" validate:"omitempty,max=500"`
	// ClienteEmail: optional; when present the exchange ticket PDF is mailed.
	ClienteEmail *string `json:"cliente_email" validate:"omitempty,email"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// SesionResponse is the session plus the settlement recomputed on read.
type SesionResponse struct {
	ID          string                   `json:"id"`
	Estado      cambio.Estado            `json:"estado"`
	Venta       *cambio.VentaOriginal    `json:"venta,omitempty"`
	Devolucion  []DevolucionItemResponse `json:"devolucion"`
	Carrito     cambio.Carrito           `json:"carrito"`
	MetodoPago  *cambio.MetodoPago       `json:"metodo_pago,omitempty"`
	Arancel     *cambio.Arancel          `json:"arancel,omitempty"`
	Liquidacion cambio.Liquidacion       `json:"liquidacion"`
	Resultado   cambio.Resultado         `json:"resultado"`
	// CambioID is set while an exchange awaits its follow-up step.
	CambioID      string `json:"cambio_id,omitempty"`
	UltimoError   string `json:"ultimo_error,omitempty"`
	ActualizadaEn string `json:"actualizada_en"`
}

type DevolucionItemResponse struct {
	LineaID        string          `json:"linea_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioAjustado decimal.Decimal `json:"precio_ajustado"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// ConfirmarResponse is the outcome of a settlement submission.
type ConfirmarResponse struct {
	CambioID       string             `json:"cambio_id"`
	CambioRemotoID string             `json:"cambio_remoto_id"`
	Estado         cambio.Estado      `json:"estado"`
	Resultado      cambio.Resultado   `json:"resultado"`
	Liquidacion    cambio.Liquidacion `json:"liquidacion"`
	// VentaSuplementaria is set when the customer paid a difference.
	VentaSuplementaria *VentaResumen `json:"venta_suplementaria,omitempty"`
	// NotaCredito is set when the store owes the customer.
	NotaCredito   *VentaResumen `json:"nota_credito,omitempty"`
	PuedeFacturar bool          `json:"puede_facturar"`
	Advertencia   string        `json:"advertencia,omitempty"`
}

// VentaResumen is a sale as rendered on a receipt.
type VentaResumen struct {
	ID     string              `json:"id"`
	Fecha  string              `json:"fecha"`
	Total  decimal.Decimal     `json:"total"`
	Lineas []VentaLineaResumen `json:"lineas"`
}

type VentaLineaResumen struct {
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}
