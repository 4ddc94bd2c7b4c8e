package cambio

import (
	"errors"
	"fmt"
	"time"
)

// ErrSeguimientoPendiente is returned when the user tries to edit the returns
// or the cart of a session whose exchange was already created remotely.
var ErrSeguimientoPendiente = errors.New("el cambio ya fue registrado: sólo puede reintentarse el cobro")

// Sesion is one operator's reconciliation in progress. It owns the return
// selection, the new cart and the payment choice; nothing is shared between
// sessions.
type Sesion struct {
	ID        string `json:"id"`
	UsuarioID string `json:"usuario_id"`
	TiendaID  string `json:"tienda_id"`

	Estado       Estado `json:"estado"`
	EstadoPrevio Estado `json:"estado_previo,omitempty"`

	Venta      *VentaOriginal      `json:"venta,omitempty"`
	Seleccion  SeleccionDevolucion `json:"seleccion"`
	Carrito    Carrito             `json:"carrito"`
	MetodoPago *MetodoPago         `json:"metodo_pago,omitempty"`
	Arancel    *Arancel            `json:"arancel,omitempty"`
	Motivo     string              `json:"motivo,omitempty"`

	// CambioID is the ledger id of an exchange that was created remotely but
	// whose follow-up step failed. Retries skip straight to the follow-up.
	CambioID    string `json:"cambio_id,omitempty"`
	UltimoError string `json:"ultimo_error,omitempty"`

	CreadaEn      time.Time `json:"creada_en"`
	ActualizadaEn time.Time `json:"actualizada_en"`
}

func NuevaSesion(id, usuarioID, tiendaID string, ahora time.Time) *Sesion {
	return &Sesion{
		ID:            id,
		UsuarioID:     usuarioID,
		TiendaID:      tiendaID,
		Estado:        SeleccionandoVenta,
		Seleccion:     SeleccionDevolucion{},
		Carrito:       Carrito{Ajuste: SinAjuste()},
		CreadaEn:      ahora,
		ActualizadaEn: ahora,
	}
}

func (s *Sesion) editable() error {
	if s.Estado == Enviando {
		return fmt.Errorf("%w: hay un envío en curso", ErrTransicionInvalida)
	}
	if s.CambioID != "" {
		return ErrSeguimientoPendiente
	}
	return nil
}

func (s *Sesion) pasarA(e Estado) error {
	if err := transicion(s.Estado, e); err != nil {
		return err
	}
	s.Estado = e
	return nil
}

// SeleccionarVenta sets the original sale and clears the return selection.
// Starting over after a settlement is allowed.
func (s *Sesion) SeleccionarVenta(v VentaOriginal) error {
	if err := s.editable(); err != nil {
		return err
	}
	if s.Estado.Liquidado() {
		s.reiniciar()
	}
	if err := s.pasarA(SeleccionandoDevoluciones); err != nil {
		return err
	}
	s.Venta = &v
	s.Seleccion = SeleccionDevolucion{}
	s.UltimoError = ""
	return nil
}

// MarcarDevolucion sets the quantity to return for a line. Zero unselects it.
func (s *Sesion) MarcarDevolucion(lineaID string, cantidad int) error {
	if err := s.editable(); err != nil {
		return err
	}
	if s.Venta == nil {
		return ErrVentaNoSeleccionada
	}
	if s.Estado != SeleccionandoDevoluciones && s.Estado != ArmandoCarrito {
		return fmt.Errorf("%w: %s", ErrTransicionInvalida, s.Estado)
	}
	if s.Seleccion == nil {
		s.Seleccion = SeleccionDevolucion{}
	}
	if cantidad == 0 {
		delete(s.Seleccion, lineaID)
		return nil
	}
	if err := ValidarCantidad(*s.Venta, lineaID, cantidad); err != nil {
		return err
	}
	s.Seleccion[lineaID] = cantidad
	return nil
}

// AgregarProducto adds units of p to the new cart.
func (s *Sesion) AgregarProducto(p Producto, cantidad int) error {
	if err := s.editable(); err != nil {
		return err
	}
	if s.Venta == nil {
		return ErrVentaNoSeleccionada
	}
	if err := transicion(s.Estado, ArmandoCarrito); err != nil {
		return err
	}
	if err := s.Carrito.Agregar(p, cantidad); err != nil {
		return err
	}
	s.Estado = ArmandoCarrito
	return nil
}

// CambiarCantidad sets a cart line quantity; zero removes the line. An empty
// cart drops the session back to return selection.
func (s *Sesion) CambiarCantidad(productoID string, cantidad int) error {
	if err := s.editable(); err != nil {
		return err
	}
	if err := s.Carrito.CambiarCantidad(productoID, cantidad); err != nil {
		return err
	}
	if s.Carrito.Vacio() && s.Estado == ArmandoCarrito {
		s.Estado = SeleccionandoDevoluciones
	}
	return nil
}

// AplicarAjuste replaces the cart adjustment; a new mode clears the previous one.
func (s *Sesion) AplicarAjuste(a Ajuste, redondeo bool) error {
	if err := s.editable(); err != nil {
		return err
	}
	if a.Tipo == AjusteDescuentoMonto && a.Valor.GreaterThan(s.Carrito.Subtotal()) {
		return &ErrorValidacion{
			Campo:   "valor",
			Mensaje: fmt.Sprintf("el descuento de $%s supera el subtotal del carrito ($%s)", a.Valor.StringFixed(2), s.Carrito.Subtotal().StringFixed(2)),
		}
	}
	s.Carrito.Ajuste = a
	s.Carrito.Redondeo = redondeo
	return nil
}

// ElegirPago stores the payment method and, for financial methods, the fee
// plan. Allowed while a follow-up is pending so the charge can be retried
// with another method.
func (s *Sesion) ElegirPago(m MetodoPago, arancelID string) error {
	if s.Estado == Enviando {
		return fmt.Errorf("%w: hay un envío en curso", ErrTransicionInvalida)
	}
	s.MetodoPago = &m
	s.Arancel = nil
	if arancelID == "" {
		return nil
	}
	a, ok := m.Arancel(arancelID)
	if !ok {
		return &ErrorValidacion{Campo: "arancel_id", Mensaje: fmt.Sprintf("el plan %s no pertenece a %s", arancelID, m.Nombre)}
	}
	s.Arancel = &a
	return nil
}

// Liquidacion recomputes the settlement preview from the current state.
func (s *Sesion) Liquidacion() Liquidacion {
	if s.Venta == nil {
		return Previsualizar(VentaOriginal{}, nil, s.Carrito, s.Arancel)
	}
	return Previsualizar(*s.Venta, s.Seleccion, s.Carrito, s.Arancel)
}

// IniciarEnvio validates the session and moves it to Enviando. The returned
// settlement is what gets submitted.
func (s *Sesion) IniciarEnvio() (Liquidacion, error) {
	if s.Venta == nil {
		return Liquidacion{}, ErrVentaNoSeleccionada
	}
	liq, err := Calcular(*s.Venta, s.Seleccion, s.Carrito, s.Arancel)
	if err != nil {
		return Liquidacion{}, err
	}
	if err := ValidarPago(liq, s.Carrito, s.MetodoPago, s.Arancel); err != nil {
		return Liquidacion{}, err
	}
	previo := s.Estado
	if err := s.pasarA(Enviando); err != nil {
		return Liquidacion{}, err
	}
	s.EstadoPrevio = previo
	s.UltimoError = ""
	return liq, nil
}

// FallarEnvio returns the session to the state it had before submitting,
// keeping every user input.
func (s *Sesion) FallarEnvio(err error) {
	if s.Estado == Enviando {
		s.Estado = s.EstadoPrevio
		if s.Estado == "" {
			s.Estado = SeleccionandoDevoluciones
		}
	}
	s.EstadoPrevio = ""
	if err != nil {
		s.UltimoError = err.Error()
	}
}

// RegistrarCambio remembers the ledger id of an exchange created remotely.
func (s *Sesion) RegistrarCambio(id string) { s.CambioID = id }

// Liquidar clears all selection state and moves to the settled state for r.
func (s *Sesion) Liquidar(r Resultado) error {
	if err := s.pasarA(EstadoLiquidado(r)); err != nil {
		return err
	}
	estado := s.Estado
	s.reiniciar()
	s.Estado = estado
	return nil
}

func (s *Sesion) reiniciar() {
	s.Seleccion = SeleccionDevolucion{}
	s.Carrito.Vaciar()
	s.MetodoPago = nil
	s.Arancel = nil
	s.Motivo = ""
	s.CambioID = ""
	s.UltimoError = ""
	s.EstadoPrevio = ""
}
