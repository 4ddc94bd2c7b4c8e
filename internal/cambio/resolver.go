package cambio

import "github.com/shopspring/decimal"

// Accion classifies a settlement line.
type Accion string

const (
	// Devolver: units go back to the store with nothing taken in exchange.
	Devolver Accion = "DEVOLVER"
	// Cambiar: returned units swapped for a new product.
	Cambiar Accion = "CAMBIAR"
	// Agregar: new units sold on top of the exchange.
	Agregar Accion = "AGREGAR"
)

// LineaCambio is one line of the settlement submitted to the retail API.
// LineaVentaID is set for DEVOLVER and CAMBIAR, ProductoNuevoID and
// PrecioNuevo for CAMBIAR and AGREGAR.
type LineaCambio struct {
	Accion          Accion          `json:"accion"`
	LineaVentaID    string          `json:"linea_venta_id,omitempty"`
	Cantidad        int             `json:"cantidad"`
	ProductoNuevoID string          `json:"producto_nuevo_id,omitempty"`
	PrecioNuevo     decimal.Decimal `json:"precio_nuevo"`
}

// disponible is an arena slot: a returned line still free for pairing and the
// index of its provisional DEVOLVER line in the output.
type disponible struct {
	lineaID  string
	cantidad int
	salida   int
}

// ResolverLiquidacion pairs returned units against cart lines, first fit and
// in cart order:
//
//   - every return entry starts as a DEVOLVER line;
//   - each cart line takes the first free return entry: the entry becomes
//     CAMBIAR for min(returned, cart) units, any returned remainder becomes a
//     new DEVOLVER and any cart remainder an AGREGAR; the entry is then spent,
//     even when only partly swapped;
//   - cart lines with no free entry left become AGREGAR.
//
// Quantities are conserved: DEVOLVER+CAMBIAR sums to the returned units and
// CAMBIAR+AGREGAR to the cart units.
func ResolverLiquidacion(items []ItemDevolucion, lineas []LineaCarrito) []LineaCambio {
	salida := make([]LineaCambio, 0, len(items)+len(lineas))
	libres := make([]disponible, 0, len(items))
	for _, it := range items {
		libres = append(libres, disponible{lineaID: it.LineaID, cantidad: it.Cantidad, salida: len(salida)})
		salida = append(salida, LineaCambio{Accion: Devolver, LineaVentaID: it.LineaID, Cantidad: it.Cantidad})
	}

	for _, lc := range lineas {
		if lc.Cantidad <= 0 {
			continue
		}
		if len(libres) == 0 {
			salida = append(salida, agregar(lc, lc.Cantidad))
			continue
		}

		d := libres[0]
		libres = libres[1:]

		n := min(d.cantidad, lc.Cantidad)
		salida[d.salida] = LineaCambio{
			Accion:          Cambiar,
			LineaVentaID:    d.lineaID,
			Cantidad:        n,
			ProductoNuevoID: lc.Producto.ID,
			PrecioNuevo:     lc.Producto.Precio,
		}
		if n < d.cantidad {
			salida = append(salida, LineaCambio{Accion: Devolver, LineaVentaID: d.lineaID, Cantidad: d.cantidad - n})
		}
		if lc.Cantidad > n {
			salida = append(salida, agregar(lc, lc.Cantidad-n))
		}
	}
	return salida
}

func agregar(lc LineaCarrito, cantidad int) LineaCambio {
	return LineaCambio{
		Accion:          Agregar,
		Cantidad:        cantidad,
		ProductoNuevoID: lc.Producto.ID,
		PrecioNuevo:     lc.Producto.Precio,
	}
}

// Cantidades sums settlement quantities per action.
func Cantidades(lineas []LineaCambio) map[Accion]int {
	out := map[Accion]int{Devolver: 0, Cambiar: 0, Agregar: 0}
	for _, l := range lineas {
		out[l.Accion] += l.Cantidad
	}
	return out
}
