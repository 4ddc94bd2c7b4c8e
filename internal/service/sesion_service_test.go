package service_test

import (
	"context"
	"testing"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/cambio"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/repository"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Session lifecycle ────────────────────────────────────────────────────────

func TestCrearSesion_SinVenta(t *testing.T) {
	e := nuevoEntorno()
	resp, err := e.sesiones.Crear(context.Background(), cajero, dto.CrearSesionRequest{})
	require.NoError(t, err)
	assert.Equal(t, cambio.SeleccionandoVenta, resp.Estado)
	assert.Nil(t, resp.Venta)
	assert.NotNil(t, resp.Devolucion)
}

func TestCrearSesion_VentaInexistente(t *testing.T) {
	e := nuevoEntorno()
	_, err := e.sesiones.Crear(context.Background(), cajero, dto.CrearSesionRequest{VentaID: "nope"})
	assert.ErrorIs(t, err, infra.ErrVentaNoEncontrada)
	assert.Empty(t, e.sesRepo.sesiones)
}

func TestSesion_PrevisualizaLiquidacion(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()
	ses, err := e.sesiones.Crear(ctx, cajero, dto.CrearSesionRequest{VentaID: "v1"})
	require.NoError(t, err)
	assert.Equal(t, cambio.SeleccionandoDevoluciones, ses.Estado)

	resp, err := e.sesiones.MarcarDevolucion(ctx, cajero, ses.ID, "l1", dto.MarcarDevolucionRequest{Cantidad: 1})
	require.NoError(t, err)
	require.Len(t, resp.Devolucion, 1)
	assert.Equal(t, "Remera lisa", resp.Devolucion[0].Producto)
	assert.True(t, d("50").Equal(resp.Liquidacion.MontoDevuelto))
	assert.Equal(t, cambio.AFavorCliente, resp.Resultado)

	resp, err = e.sesiones.AgregarProducto(ctx, cajero, ses.ID, dto.AgregarProductoRequest{ProductoID: "p3", Cantidad: 2})
	require.NoError(t, err)
	assert.Equal(t, cambio.ArmandoCarrito, resp.Estado)
	assert.True(t, d("160").Equal(resp.Liquidacion.Carrito.Total))
	assert.True(t, d("110").Equal(resp.Liquidacion.Diferencia))

	resp, err = e.sesiones.AplicarAjuste(ctx, cajero, ses.ID, dto.AjusteRequest{Tipo: "descuento_porcentaje", Valor: d("10")})
	require.NoError(t, err)
	assert.True(t, d("144").Equal(resp.Liquidacion.Carrito.Total), "got %s", resp.Liquidacion.Carrito.Total)

	resp, err = e.sesiones.AplicarAjuste(ctx, cajero, ses.ID, dto.AjusteRequest{Tipo: "ninguno", Redondeo: true})
	require.NoError(t, err)
	assert.True(t, d("100").Equal(resp.Liquidacion.Carrito.Total))
	assert.True(t, resp.Liquidacion.Carrito.Redondeado)

	resp, err = e.sesiones.CambiarCantidad(ctx, cajero, ses.ID, "p3", dto.CambiarCantidadRequest{Cantidad: 1})
	require.NoError(t, err)
	require.Len(t, resp.Carrito.Lineas, 1)
	assert.Equal(t, 1, resp.Carrito.Lineas[0].Cantidad)

	resp, err = e.sesiones.QuitarProducto(ctx, cajero, ses.ID, "p3")
	require.NoError(t, err)
	assert.Empty(t, resp.Carrito.Lineas)
	assert.Equal(t, cambio.SeleccionandoDevoluciones, resp.Estado)
}

func TestSesion_ErroresNoPersisten(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()
	id := e.armar(t, 1, "p2", 1)

	_, err := e.sesiones.MarcarDevolucion(ctx, cajero, id, "l1", dto.MarcarDevolucionRequest{Cantidad: 5})
	assert.True(t, cambio.EsValidacion(err))

	_, err = e.sesiones.AgregarProducto(ctx, cajero, id, dto.AgregarProductoRequest{ProductoID: "p2", Cantidad: 10})
	assert.ErrorIs(t, err, cambio.ErrStockInsuficiente)

	_, err = e.sesiones.AgregarProducto(ctx, cajero, id, dto.AgregarProductoRequest{ProductoID: "zz", Cantidad: 1})
	assert.ErrorIs(t, err, infra.ErrProductoNoEncontrado)

	ses := e.sesion(t, id)
	assert.Equal(t, 1, ses.Seleccion["l1"])
	require.Len(t, ses.Carrito.Lineas, 1)
	assert.Equal(t, 1, ses.Carrito.Lineas[0].Cantidad)
}

func TestSesion_AjusteInvalido(t *testing.T) {
	e := nuevoEntorno()
	id := e.armar(t, 1, "p2", 1)
	_, err := e.sesiones.AplicarAjuste(context.Background(), cajero, id, dto.AjusteRequest{Tipo: "descuento_porcentaje", Valor: d("120")})
	var ev *cambio.ErrorValidacion
	require.ErrorAs(t, err, &ev)
	assert.Equal(t, "valor", ev.Campo)
}

func TestSesion_Descartar(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()
	id := e.armar(t, 1, "", 0)

	otro := service.Operador{UsuarioID: "u-2", TiendaID: "t-1"}
	assert.ErrorIs(t, e.sesiones.Descartar(ctx, otro, id), repository.ErrSesionNoEncontrada)

	require.NoError(t, e.sesiones.Descartar(ctx, cajero, id))
	_, err := e.sesiones.Obtener(ctx, cajero, id)
	assert.ErrorIs(t, err, repository.ErrSesionNoEncontrada)
}

func TestSesion_NuevaVentaTrasLiquidar(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()
	id := e.armar(t, 2, "p2", 2)
	_, err := e.cambios.Confirmar(ctx, cajero, id, dto.ConfirmarRequest{})
	require.NoError(t, err)

	resp, err := e.sesiones.SeleccionarVenta(ctx, cajero, id, dto.SeleccionarVentaRequest{VentaID: "v1"})
	require.NoError(t, err)
	assert.Equal(t, cambio.SeleccionandoDevoluciones, resp.Estado)
	assert.Empty(t, resp.Devolucion)
}

// ── Payment ──────────────────────────────────────────────────────────────────

func TestElegirPago(t *testing.T) {
	e := nuevoEntorno()
	ctx := context.Background()
	id := e.armar(t, 1, "p3", 1)

	_, err := e.sesiones.ElegirPago(ctx, cajero, id, dto.PagoRequest{MetodoPagoID: "cheque"})
	var ev *cambio.ErrorValidacion
	require.ErrorAs(t, err, &ev)
	assert.Equal(t, "metodo_pago_id", ev.Campo)

	_, err = e.sesiones.ElegirPago(ctx, cajero, id, dto.PagoRequest{MetodoPagoID: "credito", ArancelID: "12c"})
	require.ErrorAs(t, err, &ev)
	assert.Equal(t, "arancel_id", ev.Campo)

	resp, err := e.sesiones.ElegirPago(ctx, cajero, id, dto.PagoRequest{MetodoPagoID: "credito", ArancelID: "3c"})
	require.NoError(t, err)
	require.NotNil(t, resp.Arancel)
	assert.Equal(t, 3, resp.Arancel.Cuotas)
	assert.True(t, d("33").Equal(resp.Liquidacion.MontoACobrar))
}

func TestMetodosPago_SinCache(t *testing.T) {
	retail := newStubRetail()
	svc := service.NewMetodoPagoService(retail, nil, 0)

	metodos, err := svc.Listar(context.Background())
	require.NoError(t, err)
	require.Len(t, metodos, 2)
	assert.True(t, metodos[1].Financiero)
	require.Len(t, metodos[1].Aranceles, 1)
	assert.True(t, d("10").Equal(metodos[1].Aranceles[0].Porcentaje))

	m, err := svc.Buscar(context.Background(), "efectivo")
	require.NoError(t, err)
	assert.Equal(t, "Efectivo", m.Nombre)
}

// ── Invoicing ────────────────────────────────────────────────────────────────

func TestEmitirFactura(t *testing.T) {
	retail := newStubRetail()
	svc := service.NewFacturacionService(retail, newStubCambios(), t.TempDir(), "Tienda")

	resp, err := svc.EmitirFactura(context.Background(), "vs-1", dto.FacturarRequest{Nombre: "  Ana Gómez ", CUIT: "20123456789"})
	require.NoError(t, err)
	assert.Equal(t, "vs-1", resp.VentaID)
	assert.Equal(t, "0001-00000042", resp.Numero)
	require.Len(t, retail.facturas, 1)
	assert.Equal(t, "Ana Gómez", retail.facturas[0].Nombre)
}

func TestEmitirFactura_Rechazada(t *testing.T) {
	retail := newStubRetail()
	retail.errFactura = &infra.RetailError{Operacion: infra.OpEmitirFactura, Status: 422, Campos: map[string]string{"cliente_cuit": "inválido"}}
	svc := service.NewFacturacionService(retail, newStubCambios(), t.TempDir(), "Tienda")

	_, err := svc.EmitirFactura(context.Background(), "vs-1", dto.FacturarRequest{Nombre: "Ana"})
	var re *infra.RetailError
	require.ErrorAs(t, err, &re)
	assert.True(t, re.Validacion())
}

func TestTicketPDF(t *testing.T) {
	e := nuevoEntorno()
	id := e.armar(t, 2, "p2", 2)
	resp, err := e.cambios.Confirmar(context.Background(), cajero, id, dto.ConfirmarRequest{})
	require.NoError(t, err)

	reg := e.ledger.unico()
	svc := service.NewFacturacionService(e.retail, e.ledger, t.TempDir(), "Tienda")
	path, err := svc.TicketPDF(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, path, resp.CambioID)
}
