package cambio

import "github.com/shopspring/decimal"

// Resultado is the direction of a settlement.
type Resultado string

const (
	SaldoCero     Resultado = "saldo_cero"
	AFavorCliente Resultado = "a_favor_cliente" // store owes the customer: credit note
	AFavorTienda  Resultado = "a_favor_tienda"  // customer owes the store: supplementary sale
)

// Arancel is a financing plan tied to a payment method. Porcentaje is a
// surcharge applied on top of the amount to charge.
type Arancel struct {
	ID         string          `json:"id"`
	Nombre     string          `json:"nombre"`
	Cuotas     int             `json:"cuotas"`
	Porcentaje decimal.Decimal `json:"porcentaje"`
}

// MetodoPago is a payment method. Financiero methods take installments and
// require an Arancel.
type MetodoPago struct {
	ID         string    `json:"id"`
	Nombre     string    `json:"nombre"`
	Financiero bool      `json:"financiero"`
	Aranceles  []Arancel `json:"aranceles,omitempty"`
}

// Arancel looks a fee plan up by id.
func (m MetodoPago) Arancel(id string) (Arancel, bool) {
	for _, a := range m.Aranceles {
		if a.ID == id {
			return a, true
		}
	}
	return Arancel{}, false
}

// Liquidacion is the computed outcome of an exchange.
type Liquidacion struct {
	MontoDevuelto decimal.Decimal  `json:"monto_devuelto"`
	Carrito       ValuacionCarrito `json:"carrito"`
	// Diferencia = new cart total − returned value.
	Diferencia decimal.Decimal `json:"diferencia"`
	// MontoACobrar is the positive difference plus the fee plan surcharge.
	MontoACobrar decimal.Decimal `json:"monto_a_cobrar"`
	Lineas       []LineaCambio   `json:"lineas"`
}

func (l Liquidacion) Resultado() Resultado {
	switch l.Diferencia.Sign() {
	case 1:
		return AFavorTienda
	case -1:
		return AFavorCliente
	}
	return SaldoCero
}

// Calcular validates the selection and builds the full settlement. arancel may
// be nil.
func Calcular(v VentaOriginal, s SeleccionDevolucion, c Carrito, arancel *Arancel) (Liquidacion, error) {
	if err := ValidarSeleccion(s, v); err != nil {
		return Liquidacion{}, err
	}
	return calcular(v, s, c, arancel), nil
}

// Previsualizar is Calcular without validation, for recompute-on-read views.
func Previsualizar(v VentaOriginal, s SeleccionDevolucion, c Carrito, arancel *Arancel) Liquidacion {
	return calcular(v, s, c, arancel)
}

func calcular(v VentaOriginal, s SeleccionDevolucion, c Carrito, arancel *Arancel) Liquidacion {
	devuelto := ValuarDevolucion(s, v)
	carrito := ValuarCarrito(c)
	// both sides are in cents, so an even exchange compares equal
	dif := Centavos(carrito.Total.Sub(devuelto))

	cobrar := decimal.Zero
	if dif.IsPositive() {
		cobrar = dif
		if arancel != nil && arancel.Porcentaje.IsPositive() {
			cobrar = Centavos(dif.Mul(cien.Add(arancel.Porcentaje)).Div(cien))
		}
	}

	return Liquidacion{
		MontoDevuelto: devuelto,
		Carrito:       carrito,
		Diferencia:    dif,
		MontoACobrar:  cobrar,
		Lineas:        ResolverLiquidacion(s.Items(v), c.Lineas),
	}
}

// ValidarPago enforces the payment requirements of a settlement: a positive
// difference with new cart lines needs a payment method, and a financial
// payment method needs a fee plan.
func ValidarPago(l Liquidacion, c Carrito, metodo *MetodoPago, arancel *Arancel) error {
	if c.Vacio() || !l.Diferencia.IsPositive() {
		return nil
	}
	if metodo == nil || metodo.ID == "" {
		return ErrMetodoPagoRequerido
	}
	if metodo.Financiero && (arancel == nil || arancel.ID == "") {
		return ErrArancelRequerido
	}
	return nil
}
