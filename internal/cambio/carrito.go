package cambio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Producto is the catalog view of a product as it enters the cart.
type Producto struct {
	ID     string          `json:"id"`
	Nombre string          `json:"nombre"`
	Precio decimal.Decimal `json:"precio"`
	Stock  int             `json:"stock"`
}

// LineaCarrito is one product of the new cart.
type LineaCarrito struct {
	Producto Producto `json:"producto"`
	Cantidad int      `json:"cantidad"`
}

func (l LineaCarrito) Subtotal() decimal.Decimal {
	return l.Producto.Precio.Mul(decimal.NewFromInt(int64(l.Cantidad)))
}

// Carrito holds the new items taken in the exchange plus the cart's own
// adjustment. Redondeo floors the final total to a multiple of 100.
type Carrito struct {
	Lineas   []LineaCarrito `json:"lineas"`
	Ajuste   Ajuste         `json:"ajuste"`
	Redondeo bool           `json:"redondeo"`
}

func (c *Carrito) Vacio() bool { return len(c.Lineas) == 0 }

// Subtotal is the cart before its adjustment.
func (c *Carrito) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range c.Lineas {
		subtotal = subtotal.Add(l.Subtotal())
	}
	return subtotal
}

func (c *Carrito) indice(productoID string) int {
	for i, l := range c.Lineas {
		if l.Producto.ID == productoID {
			return i
		}
	}
	return -1
}

// Agregar adds cantidad units of p. The cumulative quantity for p may not
// exceed its stock; the check happens here, at add time only.
func (c *Carrito) Agregar(p Producto, cantidad int) error {
	if cantidad < 1 {
		return &ErrorValidacion{Campo: "cantidad", Mensaje: "la cantidad debe ser al menos 1"}
	}
	i := c.indice(p.ID)
	actual := 0
	if i >= 0 {
		actual = c.Lineas[i].Cantidad
	}
	if actual+cantidad > p.Stock {
		return fmt.Errorf("%w: %s tiene %d unidades disponibles", ErrStockInsuficiente, p.Nombre, p.Stock)
	}
	if i >= 0 {
		c.Lineas[i].Cantidad += cantidad
		// refresh price and stock from the latest lookup
		c.Lineas[i].Producto = p
		return nil
	}
	c.Lineas = append(c.Lineas, LineaCarrito{Producto: p, Cantidad: cantidad})
	return nil
}

// CambiarCantidad sets the quantity of a product already in the cart.
// Zero removes the line. Increments are checked against the stock captured
// when the product was added.
func (c *Carrito) CambiarCantidad(productoID string, cantidad int) error {
	i := c.indice(productoID)
	if i < 0 {
		return ErrProductoNoEnCarrito
	}
	if cantidad < 0 {
		return &ErrorValidacion{Campo: "cantidad", Mensaje: "la cantidad no puede ser negativa"}
	}
	if cantidad == 0 {
		c.Lineas = append(c.Lineas[:i], c.Lineas[i+1:]...)
		return nil
	}
	l := c.Lineas[i]
	if cantidad > l.Cantidad && cantidad > l.Producto.Stock {
		return fmt.Errorf("%w: %s tiene %d unidades disponibles", ErrStockInsuficiente, l.Producto.Nombre, l.Producto.Stock)
	}
	c.Lineas[i].Cantidad = cantidad
	return nil
}

// Quitar removes a product from the cart.
func (c *Carrito) Quitar(productoID string) error {
	return c.CambiarCantidad(productoID, 0)
}

// CantidadTotal is the number of units in the cart.
func (c *Carrito) CantidadTotal() int {
	n := 0
	for _, l := range c.Lineas {
		n += l.Cantidad
	}
	return n
}

// Vaciar clears lines, adjustment and rounding.
func (c *Carrito) Vaciar() {
	c.Lineas = nil
	c.Ajuste = SinAjuste()
	c.Redondeo = false
}

// ValuacionCarrito is the result of valuating a cart.
type ValuacionCarrito struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalAjustado decimal.Decimal `json:"total_ajustado"`
	Total         decimal.Decimal `json:"total"`
	Redondeado    bool            `json:"redondeado"`
	// AjusteEquivalente reproduces Total from Subtotal. Without rounding it is
	// the cart's own adjustment; with rounding it is the whole delta expressed
	// as a discount or surcharge amount, so a sale stored with it carries the
	// rounded total exactly.
	AjusteEquivalente Ajuste `json:"ajuste_equivalente"`
}

// ValuarCarrito computes the new cart's total: subtotal, then the cart's single
// total-level adjustment, then the optional floor to a multiple of 100.
func ValuarCarrito(c Carrito) ValuacionCarrito {
	// an adjustment without items has nothing to apply to
	if len(c.Lineas) == 0 {
		return ValuacionCarrito{AjusteEquivalente: SinAjuste()}
	}
	subtotal := c.Subtotal()
	ajuste := c.Ajuste
	if ajuste.Tipo == "" {
		ajuste = SinAjuste()
	}
	ajustado := Centavos(aplicarTotal(subtotal, ajuste))

	v := ValuacionCarrito{
		Subtotal:          subtotal,
		TotalAjustado:     ajustado,
		Total:             ajustado,
		AjusteEquivalente: ajuste,
	}
	if !c.Redondeo {
		return v
	}

	v.Total = RedondearAbajo(ajustado)
	v.Redondeado = true
	delta := v.Total.Sub(subtotal)
	switch {
	case delta.IsNegative():
		v.AjusteEquivalente = DescuentoMonto(delta.Neg())
	case delta.IsPositive():
		v.AjusteEquivalente = RecargoMonto(delta)
	default:
		v.AjusteEquivalente = SinAjuste()
	}
	return v
}

// RedondearAbajo floors t to the nearest lower multiple of 100. The
// remainder is dropped, never rounded up.
func RedondearAbajo(t decimal.Decimal) decimal.Decimal {
	return t.Shift(-2).Floor().Shift(2)
}
