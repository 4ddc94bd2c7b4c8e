package cambio

import "fmt"

// Estado is the state of a reconciliation session.
type Estado string

const (
	SeleccionandoVenta        Estado = "seleccionando_venta"
	SeleccionandoDevoluciones Estado = "seleccionando_devoluciones"
	ArmandoCarrito            Estado = "armando_carrito"
	Enviando                  Estado = "enviando"
	LiquidadoPar              Estado = "liquidado_par"
	LiquidadoAFavorCliente    Estado = "liquidado_a_favor_cliente"
	LiquidadoAFavorTienda     Estado = "liquidado_a_favor_tienda"
)

// A failed submission is not a resting state: the session goes back to the
// state it left when the submission began.
var transiciones = map[Estado][]Estado{
	SeleccionandoVenta:        {SeleccionandoDevoluciones},
	SeleccionandoDevoluciones: {SeleccionandoDevoluciones, ArmandoCarrito, Enviando},
	ArmandoCarrito:            {ArmandoCarrito, SeleccionandoDevoluciones, Enviando},
	Enviando:                  {LiquidadoPar, LiquidadoAFavorCliente, LiquidadoAFavorTienda, SeleccionandoDevoluciones, ArmandoCarrito},
	LiquidadoPar:              {SeleccionandoDevoluciones},
	LiquidadoAFavorCliente:    {SeleccionandoDevoluciones},
	LiquidadoAFavorTienda:     {SeleccionandoDevoluciones},
}

// PuedePasarA reports whether e → n is allowed.
func (e Estado) PuedePasarA(n Estado) bool {
	for _, s := range transiciones[e] {
		if s == n {
			return true
		}
	}
	return false
}

// Liquidado reports whether e is a settled state.
func (e Estado) Liquidado() bool {
	return e == LiquidadoPar || e == LiquidadoAFavorCliente || e == LiquidadoAFavorTienda
}

// EstadoLiquidado maps a settlement direction to its final session state.
func EstadoLiquidado(r Resultado) Estado {
	switch r {
	case AFavorCliente:
		return LiquidadoAFavorCliente
	case AFavorTienda:
		return LiquidadoAFavorTienda
	}
	return LiquidadoPar
}

func transicion(desde, hacia Estado) error {
	if !desde.PuedePasarA(hacia) {
		return fmt.Errorf("%w: %s → %s", ErrTransicionInvalida, desde, hacia)
	}
	return nil
}
