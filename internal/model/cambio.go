package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger states of an exchange.
const (
	// EstadoCompletado: exchange and its follow-up step (if any) succeeded.
	EstadoCompletado = "completado"
	// EstadoPendienteVenta: exchange created remotely, supplementary sale failed.
	EstadoPendienteVenta = "pendiente_venta"
	// EstadoPendienteNotaCredito: exchange created remotely, credit-note sale
	// could not be fetched.
	EstadoPendienteNotaCredito = "pendiente_nota_credito"
	// EstadoNotaCreditoNoRecuperable: the server reported success but sent no
	// credit-note reference. Nothing to retry; the operator must look it up.
	EstadoNotaCreditoNoRecuperable = "nota_credito_no_recuperable"
	// EstadoSinNotaCredito: the server accepted the return and said it
	// generated no credit note.
	EstadoSinNotaCredito = "sin_nota_credito"
	// EstadoNotaCreditoAbandonada: the follow-up cron ran out of attempts and
	// sent the row to the DLQ. Only a manual retry touches it again.
	EstadoNotaCreditoAbandonada = "nota_credito_abandonada"
)

// Cambio is the local record of an exchange submitted to the retail API.
// Resultado: "saldo_cero" | "a_favor_cliente" | "a_favor_tienda"
type Cambio struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RemoteID             *string         `gorm:"column:remote_id"`
	VentaOriginalID      string          `gorm:"not null"`
	TiendaID             string          `gorm:"not null;default:''"`
	UsuarioID            string          `gorm:"not null;default:''"`
	SesionID             string          `gorm:"not null;default:''"`
	Motivo               string          `gorm:"not null;default:''"`
	Estado               string          `gorm:"type:varchar(32);not null"`
	Resultado            string          `gorm:"type:varchar(32);not null"`
	MontoDevuelto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalCarrito         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Diferencia           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MontoACobrar         decimal.Decimal `gorm:"type:decimal(12,2);not null;column:monto_a_cobrar"`
	MetodoPagoID         *string
	ArancelID            *string
	VentaSuplementariaID *string
	VentaNotaCreditoID   *string
	ClienteEmail         *string
	LastError            *string
	// Intentos counts follow-up attempts (sale or credit-note fetch)
	Intentos  int           `gorm:"not null;default:0"`
	Lineas    []CambioLinea `gorm:"foreignKey:CambioID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Cambio) TableName() string { return "cambios" }

// Pendiente reports whether the follow-up step can still be retried.
func (c *Cambio) Pendiente() bool {
	return c.Estado == EstadoPendienteVenta || c.Estado == EstadoPendienteNotaCredito
}

// CambioLinea is one settlement line in submission order.
// Accion: "DEVOLVER" | "CAMBIAR" | "AGREGAR"
type CambioLinea struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CambioID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	Orden           int             `gorm:"not null"`
	Accion          string          `gorm:"type:varchar(16);not null"`
	LineaVentaID    *string
	Cantidad        int             `gorm:"not null"`
	ProductoNuevoID *string
	PrecioNuevo     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (CambioLinea) TableName() string { return "cambio_lineas" }
