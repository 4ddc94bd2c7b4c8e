package dto

import "github.com/shopspring/decimal"

// CambioFilter is bound from query string of GET /v1/cambios.
type CambioFilter struct {
	Fecha   string `form:"fecha"              validate:"omitempty,datetime=2006-01-02"` // YYYY-MM-DD; empty = any day
	Estado  string `form:"estado,default=all" validate:"omitempty,oneof=all pendientes completado pendiente_venta pendiente_nota_credito nota_credito_no_recuperable sin_nota_credito nota_credito_abandonada"`
	VentaID string `form:"venta_id"`
	Page    int    `form:"page,default=1"     validate:"min=1"`
	Limit   int    `form:"limit,default=50"   validate:"min=1,max=200"`
}

type CambioLineaResponse struct {
	Accion          string          `json:"accion"`
	LineaVentaID    string          `json:"linea_venta_id,omitempty"`
	Cantidad        int             `json:"cantidad"`
	ProductoNuevoID string          `json:"producto_nuevo_id,omitempty"`
	PrecioNuevo     decimal.Decimal `json:"precio_nuevo"`
}

type CambioResponse struct {
	ID                   string                `json:"id"`
	RemoteID             string                `json:"remote_id,omitempty"`
	VentaOriginalID      string                `json:"venta_original_id"`
	TiendaID             string                `json:"tienda_id"`
	UsuarioID            string                `json:"usuario_id"`
	Motivo               string                `json:"motivo,omitempty"`
	Estado               string                `json:"estado"`
	Resultado            string                `json:"resultado"`
	MontoDevuelto        decimal.Decimal       `json:"monto_devuelto"`
	TotalCarrito         decimal.Decimal       `json:"total_carrito"`
	Diferencia           decimal.Decimal       `json:"diferencia"`
	MontoACobrar         decimal.Decimal       `json:"monto_a_cobrar"`
	MetodoPagoID         string                `json:"metodo_pago_id,omitempty"`
	VentaSuplementariaID string                `json:"venta_suplementaria_id,omitempty"`
	VentaNotaCreditoID   string                `json:"venta_nota_credito_id,omitempty"`
	LastError            string                `json:"last_error,omitempty"`
	Intentos             int                   `json:"intentos"`
	Lineas               []CambioLineaResponse `json:"lineas"`
	CreatedAt            string                `json:"created_at"`
	UpdatedAt            string                `json:"updated_at"`
}

type CambioListResponse struct {
	Data  []CambioResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// NotaCreditoResponse is returned by the credit-note retry endpoint.
type NotaCreditoResponse struct {
	Cambio      CambioResponse `json:"cambio"`
	NotaCredito *VentaResumen  `json:"nota_credito,omitempty"`
	Advertencia string         `json:"advertencia,omitempty"`
}
