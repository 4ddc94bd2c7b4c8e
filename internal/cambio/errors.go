package cambio

import (
	"errors"
	"fmt"
)

var (
	ErrSeleccionVacia      = errors.New("debe seleccionar al menos un producto para devolver")
	ErrVentaNoSeleccionada = errors.New("no hay una venta original seleccionada")
	ErrMetodoPagoRequerido = errors.New("debe seleccionar un método de pago para cobrar la diferencia")
	ErrArancelRequerido    = errors.New("el método de pago es financiero: debe seleccionar un plan de cuotas")
	ErrStockInsuficiente   = errors.New("stock insuficiente")
	ErrProductoNoEnCarrito = errors.New("el producto no está en el carrito")
	ErrTransicionInvalida  = errors.New("transición de estado inválida")
)

// ErrorValidacion is a local, pre-submission validation failure tied to a field.
type ErrorValidacion struct {
	Campo   string
	Mensaje string
}

func (e *ErrorValidacion) Error() string {
	return fmt.Sprintf("%s: %s", e.Campo, e.Mensaje)
}

// EsValidacion reports whether err is a local validation failure, either a
// field error or one of the request-level sentinels.
func EsValidacion(err error) bool {
	var ev *ErrorValidacion
	if errors.As(err, &ev) {
		return true
	}
	return errors.Is(err, ErrSeleccionVacia) ||
		errors.Is(err, ErrVentaNoSeleccionada) ||
		errors.Is(err, ErrMetodoPagoRequerido) ||
		errors.Is(err, ErrArancelRequerido) ||
		errors.Is(err, ErrStockInsuficiente) ||
		errors.Is(err, ErrProductoNoEnCarrito)
}
