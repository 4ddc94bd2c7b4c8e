package dto

import "github.com/shopspring/decimal"

// FacturarRequest carries the customer fields of an invoice. Only the name is
// mandatory.
type FacturarRequest struct {
	Nombre       string `json:"nombre"        validate:"required,max=200"`
	CUIT         string `json:"cuit"          validate:"omitempty,numeric,len=11"`
	Domicilio    string `json:"domicilio"     validate:"omitempty,max=300"`
	CondicionIVA string `json:"condicion_iva" validate:"omitempty,oneof=consumidor_final responsable_inscripto monotributista exento"`
}

type FacturaResponse struct {
	ID      string          `json:"id"`
	VentaID string          `json:"venta_id"`
	Tipo    string          `json:"tipo"`
	Numero  string          `json:"numero"`
	CAE     string          `json:"cae,omitempty"`
	Total   decimal.Decimal `json:"total"`
	Fecha   string          `json:"fecha"`
}

type ArancelResponse struct {
	ID         string          `json:"id"`
	Nombre     string          `json:"nombre"`
	Cuotas     int             `json:"cuotas"`
	Porcentaje decimal.Decimal `json:"porcentaje"`
}

type MetodoPagoResponse struct {
	ID         string            `json:"id"`
	Nombre     string            `json:"nombre"`
	Financiero bool              `json:"financiero"`
	Aranceles  []ArancelResponse `json:"aranceles"`
}
