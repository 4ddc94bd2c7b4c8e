// Package cambio implements the exchange/return (cambio-devolución) reconciliation
// engine: adjusted prices, return and cart valuation, the pairing of returned lines
// against new cart lines, and the resulting settlement.
//
// Everything here is pure: no I/O, no clocks, no globals. Callers recompute on
// every read instead of caching results.
package cambio

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

var cien = decimal.NewFromInt(100)

// TipoAjuste identifies which discount/surcharge mode is active.
type TipoAjuste string

const (
	AjusteNinguno             TipoAjuste = "ninguno"
	AjusteDescuentoPorcentaje TipoAjuste = "descuento_porcentaje"
	AjusteDescuentoMonto      TipoAjuste = "descuento_monto"
	AjusteRecargoPorcentaje   TipoAjuste = "recargo_porcentaje"
	AjusteRecargoMonto        TipoAjuste = "recargo_monto"
)

// Valid reports whether t is one of the known modes.
func (t TipoAjuste) Valid() bool {
	switch t {
	case AjusteNinguno, AjusteDescuentoPorcentaje, AjusteDescuentoMonto,
		AjusteRecargoPorcentaje, AjusteRecargoMonto:
		return true
	}
	return false
}

// Ajuste is a single discount or surcharge. Only one mode can be active at a
// time, so the four mutually exclusive fields of a sale collapse into one value.
type Ajuste struct {
	Tipo  TipoAjuste      `json:"tipo"`
	Valor decimal.Decimal `json:"valor"`
}

func SinAjuste() Ajuste { return Ajuste{Tipo: AjusteNinguno} }

func DescuentoPorcentaje(v decimal.Decimal) Ajuste { return nuevoAjuste(AjusteDescuentoPorcentaje, v) }
func DescuentoMonto(v decimal.Decimal) Ajuste      { return nuevoAjuste(AjusteDescuentoMonto, v) }
func RecargoPorcentaje(v decimal.Decimal) Ajuste   { return nuevoAjuste(AjusteRecargoPorcentaje, v) }
func RecargoMonto(v decimal.Decimal) Ajuste        { return nuevoAjuste(AjusteRecargoMonto, v) }

// nuevoAjuste collapses non-positive values into "no adjustment".
func nuevoAjuste(t TipoAjuste, v decimal.Decimal) Ajuste {
	if !v.IsPositive() {
		return SinAjuste()
	}
	return Ajuste{Tipo: t, Valor: v}
}

// NuevoAjuste builds an adjustment from a mode name and a value, validating
// percentages against the 0..100 range for discounts.
func NuevoAjuste(t TipoAjuste, v decimal.Decimal) (Ajuste, error) {
	if t == "" {
		t = AjusteNinguno
	}
	if !t.Valid() {
		return Ajuste{}, &ErrorValidacion{Campo: "tipo", Mensaje: fmt.Sprintf("tipo de ajuste desconocido %q", t)}
	}
	if t == AjusteNinguno {
		return SinAjuste(), nil
	}
	if v.IsNegative() {
		return Ajuste{}, &ErrorValidacion{Campo: "valor", Mensaje: "el ajuste no puede ser negativo"}
	}
	if t == AjusteDescuentoPorcentaje && v.GreaterThan(cien) {
		return Ajuste{}, &ErrorValidacion{Campo: "valor", Mensaje: "el descuento no puede superar el 100%"}
	}
	return nuevoAjuste(t, v), nil
}

// AjusteDesdeCampos normalises the four legacy sale fields into one Ajuste.
// When more than one is set the choice is deterministic: percentages before
// amounts, discounts before surcharges.
func AjusteDesdeCampos(descPct, descMonto, recPct, recMonto decimal.Decimal) Ajuste {
	switch {
	case descPct.IsPositive():
		return DescuentoPorcentaje(descPct)
	case recPct.IsPositive():
		return RecargoPorcentaje(recPct)
	case descMonto.IsPositive():
		return DescuentoMonto(descMonto)
	case recMonto.IsPositive():
		return RecargoMonto(recMonto)
	}
	return SinAjuste()
}

// CamposAjuste is the four-field shape the retail API stores.
type CamposAjuste struct {
	DescuentoPorcentaje decimal.Decimal `json:"descuento_porcentaje"`
	DescuentoMonto      decimal.Decimal `json:"descuento_monto"`
	RecargoPorcentaje   decimal.Decimal `json:"recargo_porcentaje"`
	RecargoMonto        decimal.Decimal `json:"recargo_monto"`
}

// Campos expands a back into the four-field shape; at most one is non-zero.
func (a Ajuste) Campos() CamposAjuste {
	var c CamposAjuste
	switch a.Tipo {
	case AjusteDescuentoPorcentaje:
		c.DescuentoPorcentaje = a.Valor
	case AjusteDescuentoMonto:
		c.DescuentoMonto = a.Valor
	case AjusteRecargoPorcentaje:
		c.RecargoPorcentaje = a.Valor
	case AjusteRecargoMonto:
		c.RecargoMonto = a.Valor
	}
	return c
}

func (a Ajuste) Ninguno() bool { return a.Tipo == "" || a.Tipo == AjusteNinguno || !a.Valor.IsPositive() }

func (a Ajuste) esPorcentaje() bool {
	return a.Tipo == AjusteDescuentoPorcentaje || a.Tipo == AjusteRecargoPorcentaje
}

// UnmarshalJSON treats a missing tipo as "ninguno" so zero-valued sessions
// round-trip through Redis unchanged.
func (a *Ajuste) UnmarshalJSON(b []byte) error {
	type plain Ajuste
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.Tipo == "" {
		p.Tipo = AjusteNinguno
	}
	*a = Ajuste(p)
	return nil
}

// PrecioAjustado returns precio after applying a. subtotal is the sum of the
// non-voided lines the adjustment was agreed on; it is only used by the
// amount-based modes, which distribute the amount proportionally.
func PrecioAjustado(precio decimal.Decimal, a Ajuste, subtotal decimal.Decimal) decimal.Decimal {
	if a.Ninguno() {
		return precio
	}
	switch a.Tipo {
	case AjusteDescuentoPorcentaje:
		return precio.Mul(cien.Sub(a.Valor)).Div(cien)
	case AjusteRecargoPorcentaje:
		return precio.Mul(cien.Add(a.Valor)).Div(cien)
	}

	if subtotal.IsZero() {
		return precio
	}
	ajustado := aplicarTotal(subtotal, a)
	// multiply first: 100 * 270 / 300 is exact, 100 * (270 / 300) may not be
	return precio.Mul(ajustado).Div(subtotal)
}

// ValorLinea is the adjusted value of cantidad units of a line priced precio.
// Amount modes multiply before the single divide so a factor like 200/300
// does not leave a repeating remainder per unit.
func ValorLinea(precio decimal.Decimal, cantidad int, a Ajuste, subtotal decimal.Decimal) decimal.Decimal {
	bruto := precio.Mul(decimal.NewFromInt(int64(cantidad)))
	switch {
	case a.Ninguno():
		return bruto
	case a.esPorcentaje():
		return aplicarTotal(bruto, a)
	case subtotal.IsZero():
		return bruto
	}
	return bruto.Mul(aplicarTotal(subtotal, a)).Div(subtotal)
}

// Centavos rounds an amount of money to two decimals.
func Centavos(m decimal.Decimal) decimal.Decimal { return m.Round(2) }

// aplicarTotal applies a to a whole total (no proportional step). An amount
// discount never takes the total below zero.
func aplicarTotal(total decimal.Decimal, a Ajuste) decimal.Decimal {
	if a.Ninguno() {
		return total
	}
	switch a.Tipo {
	case AjusteDescuentoPorcentaje:
		return total.Mul(cien.Sub(a.Valor)).Div(cien)
	case AjusteRecargoPorcentaje:
		return total.Mul(cien.Add(a.Valor)).Div(cien)
	case AjusteDescuentoMonto:
		if a.Valor.GreaterThan(total) {
			return decimal.Zero
		}
		return total.Sub(a.Valor)
	case AjusteRecargoMonto:
		return total.Add(a.Valor)
	}
	return total
}
