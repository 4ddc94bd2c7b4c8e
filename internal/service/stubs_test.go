package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/cambio"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/model"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/repository"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── Retail API stub ──────────────────────────────────────────────────────────

type stubRetail struct {
	mu        sync.Mutex
	ventas    map[string]*infra.VentaRetail
	productos map[string]*infra.ProductoRetail
	metodos   []infra.MetodoPagoRetail

	cambioResp infra.CambioRetail
	errCambio  error
	errVenta   error
	errNota    error
	errFactura error

	cambios       []infra.CambioRequest
	ventasCreadas []infra.VentaRequest
	notasPedidas  []string
	facturas      []infra.FacturaRequest
}

var _ service.RetailAPI = (*stubRetail)(nil)

func newStubRetail() *stubRetail {
	return &stubRetail{
		ventas: map[string]*infra.VentaRetail{
			"v1": {
				ID:    "v1",
				Fecha: time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC),
				Total: d("100"),
				Detalles: []infra.DetalleVentaRetail{
					{ID: "l1", ProductoID: "p1", ProductoNombre: "Remera lisa", Cantidad: 2, PrecioUnitario: d("50")},
				},
			},
		},
		productos: map[string]*infra.ProductoRetail{
			"p2": {ID: "p2", Nombre: "Remera estampada", Precio: d("50"), Stock: 10},
			"p3": {ID: "p3", Nombre: "Buzo", Precio: d("80"), Stock: 10},
			"p4": {ID: "p4", Nombre: "Medias", Precio: d("30"), Stock: 10},
		},
		metodos: []infra.MetodoPagoRetail{
			{ID: "efectivo", Nombre: "Efectivo"},
			{ID: "credito", Nombre: "Tarjeta de crédito", EsFinanciero: true, Aranceles: []infra.ArancelRetail{
				{ID: "3c", NombrePlan: "3 cuotas", Cuotas: 3, PorcentajeRecargo: d("10")},
			}},
		},
		cambioResp: infra.CambioRetail{ID: "c-1"},
	}
}

func (r *stubRetail) BuscarVenta(_ context.Context, id string) (*infra.VentaRetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", infra.ErrVentaNoEncontrada, id)
	}
	cp := *v
	return &cp, nil
}

func (r *stubRetail) ObtenerProducto(_ context.Context, id string) (*infra.ProductoRetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.productos[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", infra.ErrProductoNoEncontrado, id)
	}
	cp := *p
	return &cp, nil
}

func (r *stubRetail) ListarMetodosPago(context.Context) ([]infra.MetodoPagoRetail, error) {
	return r.metodos, nil
}

func (r *stubRetail) CrearCambio(_ context.Context, req infra.CambioRequest) (*infra.CambioRetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cambios = append(r.cambios, req)
	if r.errCambio != nil {
		return nil, r.errCambio
	}
	out := r.cambioResp
	return &out, nil
}

func (r *stubRetail) CrearVenta(_ context.Context, req infra.VentaRequest) (*infra.VentaRetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ventasCreadas = append(r.ventasCreadas, req)
	if r.errVenta != nil {
		return nil, r.errVenta
	}
	v := &infra.VentaRetail{ID: fmt.Sprintf("vs-%d", len(r.ventasCreadas)), CambioID: req.CambioID}
	for _, det := range req.Detalles {
		v.Detalles = append(v.Detalles, infra.DetalleVentaRetail{
			ProductoID: det.ProductoID, Cantidad: det.Cantidad, PrecioUnitario: det.PrecioUnitario,
		})
	}
	return v, nil
}

func (r *stubRetail) ObtenerNotaCredito(_ context.Context, ventaID string) (*infra.VentaRetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notasPedidas = append(r.notasPedidas, ventaID)
	if r.errNota != nil {
		return nil, r.errNota
	}
	return &infra.VentaRetail{ID: ventaID, Total: d("-70")}, nil
}

func (r *stubRetail) EmitirFactura(_ context.Context, ventaID string, req infra.FacturaRequest) (*infra.FacturaRetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facturas = append(r.facturas, req)
	if r.errFactura != nil {
		return nil, r.errFactura
	}
	return &infra.FacturaRetail{ID: "f-1", VentaID: ventaID, Tipo: "B", Numero: "0001-00000042", Total: d("30")}, nil
}

// ── Session repository stub ──────────────────────────────────────────────────

// stubSesiones round-trips sessions through JSON like the Redis store does.
type stubSesiones struct {
	mu       sync.Mutex
	sesiones map[string][]byte
	locks    map[string]bool
}

var _ repository.SesionRepository = (*stubSesiones)(nil)

func newStubSesiones() *stubSesiones {
	return &stubSesiones{sesiones: map[string][]byte{}, locks: map[string]bool{}}
}

func (r *stubSesiones) Save(_ context.Context, s *cambio.Sesion) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sesiones[s.ID] = b
	return nil
}

func (r *stubSesiones) Find(_ context.Context, id string) (*cambio.Sesion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.sesiones[id]
	if !ok {
		return nil, repository.ErrSesionNoEncontrada
	}
	var s cambio.Sesion
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *stubSesiones) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sesiones, id)
	return nil
}

func (r *stubSesiones) Bloquear(_ context.Context, id string) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks[id] {
		return nil, repository.ErrEnvioEnCurso
	}
	r.locks[id] = true
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.locks, id)
	}, nil
}

// ── Ledger repository stub ───────────────────────────────────────────────────

type stubCambios struct {
	mu        sync.Mutex
	cambios   map[uuid.UUID]*model.Cambio
	errCreate error
}

var _ repository.CambioRepository = (*stubCambios)(nil)

func newStubCambios() *stubCambios {
	return &stubCambios{cambios: map[uuid.UUID]*model.Cambio{}}
}

func (r *stubCambios) Create(_ context.Context, c *model.Cambio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errCreate != nil {
		return r.errCreate
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.cambios[c.ID] = &cp
	return nil
}

func (r *stubCambios) Update(_ context.Context, c *model.Cambio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.cambios[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *c
	cp.Lineas = prev.Lineas
	cp.UpdatedAt = time.Now()
	r.cambios[c.ID] = &cp
	return nil
}

func (r *stubCambios) FindByID(_ context.Context, id uuid.UUID) (*model.Cambio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cambios[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCambios) List(_ context.Context, f dto.CambioFilter) ([]model.Cambio, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Cambio
	for _, c := range r.cambios {
		switch f.Estado {
		case "", "all":
		case "pendientes":
			if !c.Pendiente() {
				continue
			}
		default:
			if c.Estado != f.Estado {
				continue
			}
		}
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *stubCambios) ListSeguimientos(_ context.Context, maxIntentos, limit int) ([]model.Cambio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Cambio
	for _, c := range r.cambios {
		if c.Estado == model.EstadoPendienteNotaCredito && c.Intentos < maxIntentos && len(out) < limit {
			out = append(out, *c)
		}
	}
	return out, nil
}

// unico returns the only ledger row; tests submit one exchange at a time.
func (r *stubCambios) unico() *model.Cambio {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cambios {
		cp := *c
		return &cp
	}
	return nil
}

// ── Job queue stub ───────────────────────────────────────────────────────────

type stubEncolador struct {
	mu      sync.Mutex
	tickets []interface{}
}

func (e *stubEncolador) EnqueueTicket(_ context.Context, payload interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickets = append(e.tickets, payload)
	return nil
}
