package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/cambio"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/middleware"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/repository"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

// ── Fakes ────────────────────────────────────────────────────────────────────

type fakeCambios struct {
	confirmar func(op service.Operador, id string, req dto.ConfirmarRequest) (*dto.ConfirmarResponse, error)
	filtro    dto.CambioFilter
	obtener   error
}

func (f *fakeCambios) Confirmar(_ context.Context, op service.Operador, id string, req dto.ConfirmarRequest) (*dto.ConfirmarResponse, error) {
	return f.confirmar(op, id, req)
}

func (f *fakeCambios) ReintentarNotaCredito(_ context.Context, id uuid.UUID) (*dto.NotaCreditoResponse, error) {
	return nil, fmt.Errorf("%w (estado completado)", service.ErrSinSeguimiento)
}

func (f *fakeCambios) Obtener(_ context.Context, id uuid.UUID) (*dto.CambioResponse, error) {
	if f.obtener != nil {
		return nil, f.obtener
	}
	return &dto.CambioResponse{ID: id.String()}, nil
}

func (f *fakeCambios) Listar(_ context.Context, filter dto.CambioFilter) (*dto.CambioListResponse, error) {
	f.filtro = filter
	return &dto.CambioListResponse{Data: []dto.CambioResponse{}, Page: filter.Page, Limit: filter.Limit}, nil
}

// fakeSesiones implements only what the tests call.
type fakeSesiones struct {
	service.SesionService
	crear func(op service.Operador, req dto.CrearSesionRequest) (*dto.SesionResponse, error)
}

func (f *fakeSesiones) Crear(_ context.Context, op service.Operador, req dto.CrearSesionRequest) (*dto.SesionResponse, error) {
	return f.crear(op, req)
}

type fakeMetodos struct{}

func (fakeMetodos) Listar(context.Context) ([]cambio.MetodoPago, error) {
	return []cambio.MetodoPago{
		{ID: "efectivo", Nombre: "Efectivo"},
		{ID: "credito", Nombre: "Crédito", Financiero: true, Aranceles: []cambio.Arancel{
			{ID: "3c", Nombre: "3 cuotas", Cuotas: 3, Porcentaje: decimal.NewFromInt(10)},
		}},
	}, nil
}

func (fakeMetodos) Buscar(context.Context, string) (cambio.MetodoPago, error) {
	return cambio.MetodoPago{}, nil
}

// conOperador stands in for JWTAuth.
func conOperador() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ClaimsKey, &middleware.JWTClaims{UserID: "u-1", TiendaID: "t-1", Rol: middleware.RolCajero})
		c.Next()
	}
}

func nuevoRouter(ses service.SesionService, cambios service.CambioService) *gin.Engine {
	r := gin.New()
	r.Use(conOperador())
	sh := NewSesionesHandler(ses, cambios)
	ch := NewCambiosHandler(cambios, nil)
	r.POST("/cambios/sesiones", sh.Crear)
	r.POST("/cambios/sesiones/:id/confirmar", sh.Confirmar)
	r.GET("/cambios", ch.Listar)
	r.GET("/cambios/:id", ch.Obtener)
	r.POST("/cambios/:id/nota-credito", ch.ReintentarNotaCredito)
	r.GET("/metodos-pago", NewMetodosPagoHandler(fakeMetodos{}).Listar)
	return r
}

func hacer(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodificar(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// ── Error mapping ────────────────────────────────────────────────────────────

func TestResponderError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validación de campo", &cambio.ErrorValidacion{Campo: "cantidad", Mensaje: "excede"}, http.StatusUnprocessableEntity},
		{"validación de solicitud", cambio.ErrMetodoPagoRequerido, http.StatusUnprocessableEntity},
		{"sesión", repository.ErrSesionNoEncontrada, http.StatusNotFound},
		{"registro", repository.ErrNotFound, http.StatusNotFound},
		{"venta", fmt.Errorf("%w: v9", infra.ErrVentaNoEncontrada), http.StatusNotFound},
		{"envío en curso", repository.ErrEnvioEnCurso, http.StatusConflict},
		{"transición", cambio.ErrTransicionInvalida, http.StatusConflict},
		{"seguimiento pendiente", cambio.ErrSeguimientoPendiente, http.StatusConflict},
		{"sin registro", service.ErrCambioSinRegistro, http.StatusConflict},
		{"retail 400", &infra.RetailError{Operacion: infra.OpCrearCambio, Status: 400}, http.StatusUnprocessableEntity},
		{"retail 500", &infra.RetailError{Operacion: infra.OpCrearCambio, Status: 500}, http.StatusBadGateway},
		{"circuito", fmt.Errorf("retail: x: %w", infra.ErrCircuitOpen), http.StatusServiceUnavailable},
		{"inalcanzable", infra.ErrRetailInalcanzable, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"otro", errors.New("pq: connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			responderError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestResponderError_OcultaDetalleInterno(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	responderError(c, errors.New("pq: password authentication failed"))
	assert.NotContains(t, w.Body.String(), "password")
}

func TestResponderError_CamposDelServidor(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	responderError(c, &infra.RetailError{
		Operacion: infra.OpCrearVenta,
		Status:    400,
		Campos:    map[string]string{"metodo_pago_id": "requerido"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodificar(t, w)
	assert.Equal(t, infra.OpCrearVenta, body["operacion"])
	assert.Equal(t, map[string]any{"metodo_pago_id": "requerido"}, body["fields"])
}

// ── Sessions ─────────────────────────────────────────────────────────────────

func TestCrearSesion_UsaElOperadorDelToken(t *testing.T) {
	var got service.Operador
	ses := &fakeSesiones{crear: func(op service.Operador, req dto.CrearSesionRequest) (*dto.SesionResponse, error) {
		got = op
		return &dto.SesionResponse{ID: "s-1", Estado: cambio.SeleccionandoVenta}, nil
	}}
	w := hacer(nuevoRouter(ses, &fakeCambios{}), http.MethodPost, "/cambios/sesiones", `{}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, service.Operador{UsuarioID: "u-1", TiendaID: "t-1", Rol: "cajero"}, got)
}

func TestConfirmar_CuerpoOpcional(t *testing.T) {
	cambios := &fakeCambios{confirmar: func(op service.Operador, id string, req dto.ConfirmarRequest) (*dto.ConfirmarResponse, error) {
		assert.Equal(t, "s-1", id)
		assert.Nil(t, req.ClienteEmail)
		return &dto.ConfirmarResponse{CambioID: "x", Resultado: cambio.SaldoCero, Estado: cambio.LiquidadoPar}, nil
	}}
	w := hacer(nuevoRouter(&fakeSesiones{}, cambios), http.MethodPost, "/cambios/sesiones/s-1/confirmar", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "liquidado_par", decodificar(t, w)["estado"])
}

func TestConfirmar_EmailInvalido(t *testing.T) {
	cambios := &fakeCambios{confirmar: func(service.Operador, string, dto.ConfirmarRequest) (*dto.ConfirmarResponse, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	w := hacer(nuevoRouter(&fakeSesiones{}, cambios), http.MethodPost, "/cambios/sesiones/s-1/confirmar", `{"cliente_email":"no-es-email"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string]any{"cliente_email": "email"}, decodificar(t, w)["fields"])
}

func TestConfirmar_FalloDeSeguimiento(t *testing.T) {
	cambios := &fakeCambios{confirmar: func(service.Operador, string, dto.ConfirmarRequest) (*dto.ConfirmarResponse, error) {
		return nil, &service.ErrorSeguimiento{
			CambioID: "c-uuid",
			Paso:     "la venta por la diferencia",
			Err:      &infra.RetailError{Operacion: infra.OpCrearVenta, Status: 503},
		}
	}}
	w := hacer(nuevoRouter(&fakeSesiones{}, cambios), http.MethodPost, "/cambios/sesiones/s-1/confirmar", `{}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decodificar(t, w)
	assert.Equal(t, "c-uuid", body["cambio_id"])
	assert.Contains(t, body["detail"], "quedó registrado")
}

// ── Ledger ───────────────────────────────────────────────────────────────────

func TestListarCambios_Filtros(t *testing.T) {
	cambios := &fakeCambios{}
	r := nuevoRouter(&fakeSesiones{}, cambios)

	w := hacer(r, http.MethodGet, "/cambios", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, dto.CambioFilter{Estado: "all", Page: 1, Limit: 50}, cambios.filtro)

	w = hacer(r, http.MethodGet, "/cambios?estado=pendientes&fecha=2026-10-01&limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pendientes", cambios.filtro.Estado)
	assert.Equal(t, "2026-10-01", cambios.filtro.Fecha)

	w = hacer(r, http.MethodGet, "/cambios?estado=borrado&fecha=ayer", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	fields := decodificar(t, w)["fields"].(map[string]any)
	assert.Equal(t, "oneof", fields["estado"])
	assert.Equal(t, "datetime", fields["fecha"])
}

func TestObtenerCambio(t *testing.T) {
	cambios := &fakeCambios{}
	r := nuevoRouter(&fakeSesiones{}, cambios)

	assert.Equal(t, http.StatusBadRequest, hacer(r, http.MethodGet, "/cambios/no-uuid", "").Code)

	id := uuid.NewString()
	w := hacer(r, http.MethodGet, "/cambios/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decodificar(t, w)["id"])

	cambios.obtener = repository.ErrNotFound
	assert.Equal(t, http.StatusNotFound, hacer(r, http.MethodGet, "/cambios/"+id, "").Code)
}

func TestReintentarNotaCredito_SinSeguimiento(t *testing.T) {
	r := nuevoRouter(&fakeSesiones{}, &fakeCambios{})
	w := hacer(r, http.MethodPost, "/cambios/"+uuid.NewString()+"/nota-credito", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

// ── Payment methods ──────────────────────────────────────────────────────────

func TestListarMetodosPago(t *testing.T) {
	w := hacer(nuevoRouter(&fakeSesiones{}, &fakeCambios{}), http.MethodGet, "/metodos-pago", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out []dto.MetodoPagoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.NotNil(t, out[0].Aranceles)
	require.Len(t, out[1].Aranceles, 1)
	assert.Equal(t, 3, out[1].Aranceles[0].Cuotas)
}
