package cambio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// VentaOriginal is an immutable snapshot of a completed sale that items are
// being returned from.
type VentaOriginal struct {
	ID         string          `json:"id"`
	Fecha      time.Time       `json:"fecha"`
	Total      decimal.Decimal `json:"total"`
	MetodoPago string          `json:"metodo_pago"`
	Ajuste     Ajuste          `json:"ajuste"`
	Lineas     []LineaVenta    `json:"lineas"`
}

// LineaVenta is one item of the original sale. PrecioUnitario is the list
// price before any sale-level adjustment.
type LineaVenta struct {
	ID             string          `json:"id"`
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	// Anulada lines were individually voided: excluded from totals and returns.
	Anulada bool `json:"anulada"`
}

// Subtotal is the sum of price × quantity over non-voided lines.
func (v VentaOriginal) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range v.Lineas {
		if l.Anulada {
			continue
		}
		total = total.Add(l.PrecioUnitario.Mul(decimal.NewFromInt(int64(l.Cantidad))))
	}
	return total
}

// Linea looks a line up by id.
func (v VentaOriginal) Linea(id string) (LineaVenta, bool) {
	for _, l := range v.Lineas {
		if l.ID == id {
			return l, true
		}
	}
	return LineaVenta{}, false
}

// PrecioAjustado is the unit price of l after the sale's own adjustment terms.
func (v VentaOriginal) PrecioAjustado(l LineaVenta) decimal.Decimal {
	return PrecioAjustado(l.PrecioUnitario, v.Ajuste, v.Subtotal())
}

// SeleccionDevolucion maps an original line id to the quantity being returned.
type SeleccionDevolucion map[string]int

// ItemDevolucion is one entry of a selection in resolver order.
type ItemDevolucion struct {
	LineaID  string `json:"linea_id"`
	Cantidad int    `json:"cantidad"`
}

// Vacia reports whether nothing is selected.
func (s SeleccionDevolucion) Vacia() bool {
	for _, q := range s {
		if q > 0 {
			return false
		}
	}
	return true
}

// Items returns the selection ordered by the original sale's line order.
// Unknown, voided and zero-quantity entries are dropped.
func (s SeleccionDevolucion) Items(v VentaOriginal) []ItemDevolucion {
	items := make([]ItemDevolucion, 0, len(s))
	for _, l := range v.Lineas {
		q, ok := s[l.ID]
		if !ok || q <= 0 || l.Anulada {
			continue
		}
		items = append(items, ItemDevolucion{LineaID: l.ID, Cantidad: q})
	}
	return items
}

// CantidadTotal is the number of units selected.
func (s SeleccionDevolucion) CantidadTotal() int {
	n := 0
	for _, q := range s {
		if q > 0 {
			n += q
		}
	}
	return n
}

// ValidarCantidad checks a single selection change against the sale.
func ValidarCantidad(v VentaOriginal, lineaID string, cantidad int) error {
	l, ok := v.Linea(lineaID)
	if !ok {
		return &ErrorValidacion{Campo: "linea_id", Mensaje: fmt.Sprintf("la línea %s no pertenece a la venta %s", lineaID, v.ID)}
	}
	if l.Anulada {
		return &ErrorValidacion{Campo: "linea_id", Mensaje: fmt.Sprintf("%s fue anulado y no admite devolución", l.Producto)}
	}
	if cantidad < 1 {
		return &ErrorValidacion{Campo: "cantidad", Mensaje: "la cantidad a devolver debe ser al menos 1"}
	}
	if cantidad > l.Cantidad {
		return &ErrorValidacion{
			Campo:   "cantidad",
			Mensaje: fmt.Sprintf("no se pueden devolver %d unidades de %s: se vendieron %d", cantidad, l.Producto, l.Cantidad),
		}
	}
	return nil
}

// ValidarSeleccion rejects an empty selection and any entry that is not a
// returnable quantity of a line of v.
func ValidarSeleccion(s SeleccionDevolucion, v VentaOriginal) error {
	if s.Vacia() {
		return ErrSeleccionVacia
	}
	for id, q := range s {
		if err := ValidarCantidad(v, id, q); err != nil {
			return err
		}
	}
	return nil
}

// ValuarDevolucion sums the adjusted value of the selected lines, in cents.
// Unknown or voided lines are skipped.
func ValuarDevolucion(s SeleccionDevolucion, v VentaOriginal) decimal.Decimal {
	subtotal := v.Subtotal()
	total := decimal.Zero
	for _, it := range s.Items(v) {
		l, _ := v.Linea(it.LineaID)
		total = total.Add(ValorLinea(l.PrecioUnitario, it.Cantidad, v.Ajuste, subtotal))
	}
	return Centavos(total)
}
