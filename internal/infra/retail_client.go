package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/cambio"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Operations, used in errors, logs and metric labels.
const (
	OpBuscarVenta       = "buscar_venta"
	OpObtenerProducto   = "obtener_producto"
	OpListarMetodosPago = "listar_metodos_pago"
	OpCrearCambio       = "crear_cambio"
	OpCrearVenta        = "crear_venta"
	OpNotaCredito       = "nota_credito"
	OpEmitirFactura     = "emitir_factura"
)

var (
	ErrVentaNoEncontrada    = errors.New("venta no encontrada")
	ErrProductoNoEncontrado = errors.New("producto no encontrado")
	// ErrRetailInalcanzable wraps transport failures (timeouts, refused
	// connections); the request may or may not have reached the server.
	ErrRetailInalcanzable = errors.New("servicio de ventas inalcanzable")
)

// mensajes404 distinguishes which endpoint went missing: each one calls for a
// different remediation by the operator.
var mensajes404 = map[string]string{
	OpCrearCambio:   "el servicio de cambios no está disponible: no se registró el cambio",
	OpNotaCredito:   "el cambio se registró pero la venta de nota de crédito no se encontró",
	OpCrearVenta:    "el cambio se registró pero el servicio de ventas no está disponible para cobrar la diferencia",
	OpEmitirFactura: "la venta no existe o no admite facturación",
}

// RetailError is a non-2xx answer of the retail API.
type RetailError struct {
	Operacion string
	Status    int
	Detalle   string
	Campos    map[string]string
}

func (e *RetailError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "retail: %s: %d", e.Operacion, e.Status)
	if e.Detalle != "" {
		b.WriteString(": " + e.Detalle)
	}
	if len(e.Campos) > 0 {
		keys := make([]string, 0, len(e.Campos))
		for k := range e.Campos {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "; %s: %s", k, e.Campos[k])
		}
	}
	return b.String()
}

// Validacion reports whether the server rejected the payload itself.
func (e *RetailError) Validacion() bool {
	return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
}

// ── Wire types ───────────────────────────────────────────────────────────────

type VentaRetail struct {
	ID                  string               `json:"id"`
	Fecha               time.Time            `json:"fecha"`
	Total               decimal.Decimal      `json:"total"`
	MetodoPago          string               `json:"metodo_pago"`
	DescuentoPorcentaje decimal.Decimal      `json:"descuento_porcentaje"`
	DescuentoMonto      decimal.Decimal      `json:"descuento_monto"`
	RecargoPorcentaje   decimal.Decimal      `json:"recargo_porcentaje"`
	RecargoMonto        decimal.Decimal      `json:"recargo_monto"`
	Anulada             bool                 `json:"anulada"`
	CambioID            string               `json:"cambio_id,omitempty"`
	Detalles            []DetalleVentaRetail `json:"detalles"`
}

type DetalleVentaRetail struct {
	ID             string          `json:"id"`
	ProductoID     string          `json:"producto_id"`
	ProductoNombre string          `json:"producto_nombre"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Anulado        bool            `json:"anulado"`
}

// Original maps the stored sale to the engine snapshot, collapsing the four
// adjustment fields into a single mode.
func (v VentaRetail) Original() cambio.VentaOriginal {
	o := cambio.VentaOriginal{
		ID:         v.ID,
		Fecha:      v.Fecha,
		Total:      v.Total,
		MetodoPago: v.MetodoPago,
		Ajuste:     cambio.AjusteDesdeCampos(v.DescuentoPorcentaje, v.DescuentoMonto, v.RecargoPorcentaje, v.RecargoMonto),
		Lineas:     make([]cambio.LineaVenta, 0, len(v.Detalles)),
	}
	for _, d := range v.Detalles {
		o.Lineas = append(o.Lineas, cambio.LineaVenta{
			ID:             d.ID,
			ProductoID:     d.ProductoID,
			Producto:       d.ProductoNombre,
			Cantidad:       d.Cantidad,
			PrecioUnitario: d.PrecioUnitario,
			Anulada:        d.Anulado,
		})
	}
	return o
}

type ProductoRetail struct {
	ID     string          `json:"id"`
	Nombre string          `json:"nombre"`
	Precio decimal.Decimal `json:"precio"`
	Stock  int             `json:"stock"`
}

func (p ProductoRetail) Producto() cambio.Producto {
	return cambio.Producto{ID: p.ID, Nombre: p.Nombre, Precio: p.Precio, Stock: p.Stock}
}

type MetodoPagoRetail struct {
	ID           string          `json:"id"`
	Nombre       string          `json:"nombre"`
	EsFinanciero bool            `json:"es_financiero"`
	Aranceles    []ArancelRetail `json:"aranceles"`
}

type ArancelRetail struct {
	ID                string          `json:"id"`
	NombrePlan        string          `json:"nombre_plan"`
	Cuotas            int             `json:"cuotas"`
	PorcentajeRecargo decimal.Decimal `json:"porcentaje_recargo"`
}

func (m MetodoPagoRetail) MetodoPago() cambio.MetodoPago {
	out := cambio.MetodoPago{ID: m.ID, Nombre: m.Nombre, Financiero: m.EsFinanciero}
	for _, a := range m.Aranceles {
		out.Aranceles = append(out.Aranceles, cambio.Arancel{
			ID: a.ID, Nombre: a.NombrePlan, Cuotas: a.Cuotas, Porcentaje: a.PorcentajeRecargo,
		})
	}
	return out
}

type CambioRequest struct {
	VentaOriginalID string               `json:"venta_original_id"`
	TiendaID        string               `json:"tienda_id"`
	UsuarioID       string               `json:"usuario_id"`
	Motivo          string               `json:"motivo,omitempty"`
	Lineas          []cambio.LineaCambio `json:"lineas"`
}

type CambioRetail struct {
	ID                  string `json:"id"`
	NotaCreditoGenerada bool   `json:"nota_credito_generada"`
	VentaNotaCreditoID  string `json:"venta_nota_credito_id,omitempty"`
}

type VentaRequest struct {
	TiendaID     string `json:"tienda_id"`
	UsuarioID    string `json:"usuario_id"`
	MetodoPagoID string `json:"metodo_pago_id"`
	ArancelID    string `json:"arancel_id,omitempty"`
	CambioID     string `json:"cambio_id"`
	cambio.CamposAjuste
	Detalles []DetalleVentaRequest `json:"detalles"`
}

type DetalleVentaRequest struct {
	ProductoID     string          `json:"producto_id"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
}

type FacturaRequest struct {
	Nombre       string `json:"cliente_nombre"`
	CUIT         string `json:"cliente_cuit,omitempty"`
	Domicilio    string `json:"cliente_domicilio,omitempty"`
	CondicionIVA string `json:"cliente_condicion_iva,omitempty"`
}

type FacturaRetail struct {
	ID      string          `json:"id"`
	VentaID string          `json:"venta_id"`
	Tipo    string          `json:"tipo"`
	Numero  string          `json:"numero"`
	CAE     string          `json:"cae,omitempty"`
	Total   decimal.Decimal `json:"total"`
	Fecha   time.Time       `json:"fecha"`
}

// ── Client ───────────────────────────────────────────────────────────────────

type RetailConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// LookupRetries is how many extra attempts GET lookups get after a
	// transport failure or 5xx. Writes are never retried.
	LookupRetries int
}

// RetailClient talks JSON to the retail REST API. Every call goes through a
// circuit breaker; only GETs are retried.
type RetailClient struct {
	baseURL    string
	token      string
	retries    int
	httpClient *http.Client
	cb         *CircuitBreaker
	backoff    time.Duration
}

func NewRetailClient(cfg RetailConfig, cb *CircuitBreaker) *RetailClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.LookupRetries < 0 {
		cfg.LookupRetries = 0
	}
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	return &RetailClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		retries:    cfg.LookupRetries,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cb:         cb,
		backoff:    300 * time.Millisecond,
	}
}

// Circuit exposes the breaker state for the health endpoint.
func (c *RetailClient) Circuit() CBState { return c.cb.State() }

func (c *RetailClient) BuscarVenta(ctx context.Context, id string) (*VentaRetail, error) {
	var v VentaRetail
	err := c.get(ctx, OpBuscarVenta, "/ventas/"+url.PathEscape(id)+"/", &v)
	if esStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrVentaNoEncontrada, id)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *RetailClient) ObtenerProducto(ctx context.Context, id string) (*ProductoRetail, error) {
	var p ProductoRetail
	err := c.get(ctx, OpObtenerProducto, "/productos/"+url.PathEscape(id)+"/", &p)
	if esStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProductoNoEncontrado, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RetailClient) ListarMetodosPago(ctx context.Context) ([]MetodoPagoRetail, error) {
	var out []MetodoPagoRetail
	if err := c.get(ctx, OpListarMetodosPago, "/metodos-pago/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ObtenerNotaCredito fetches the credit-note sale the server generated for an
// exchange.
func (c *RetailClient) ObtenerNotaCredito(ctx context.Context, ventaID string) (*VentaRetail, error) {
	var v VentaRetail
	if err := c.get(ctx, OpNotaCredito, "/ventas/"+url.PathEscape(ventaID)+"/", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *RetailClient) CrearCambio(ctx context.Context, req CambioRequest) (*CambioRetail, error) {
	var out CambioRetail
	if err := c.call(ctx, OpCrearCambio, http.MethodPost, "/cambios/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RetailClient) CrearVenta(ctx context.Context, req VentaRequest) (*VentaRetail, error) {
	var out VentaRetail
	if err := c.call(ctx, OpCrearVenta, http.MethodPost, "/ventas/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RetailClient) EmitirFactura(ctx context.Context, ventaID string, req FacturaRequest) (*FacturaRetail, error) {
	var out FacturaRetail
	path := "/ventas/" + url.PathEscape(ventaID) + "/factura/"
	if err := c.call(ctx, OpEmitirFactura, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RetailClient) get(ctx context.Context, op, path string, out any) error {
	var err error
	for intento := 0; intento <= c.retries; intento++ {
		if intento > 0 {
			log.Debug().Err(err).Str("operacion", op).Int("intento", intento+1).Msg("retail: reintentando consulta")
			select {
			case <-ctx.Done():
				return err
			case <-time.After(c.backoff * time.Duration(intento)):
			}
		}
		err = c.call(ctx, op, http.MethodGet, path, nil, out)
		if !reintentable(err) {
			return err
		}
	}
	return err
}

// call runs one request through the breaker. 4xx answers are returned to the
// caller without counting against the upstream.
func (c *RetailClient) call(ctx context.Context, op, method, path string, in, out any) error {
	var resultado error
	err := c.cb.Execute(func() error {
		resultado = c.send(ctx, op, method, path, in, out)
		if reintentable(resultado) {
			return resultado
		}
		return nil
	})
	if errors.Is(err, ErrCircuitOpen) {
		return fmt.Errorf("retail: %s: %w", op, err)
	}
	if err != nil {
		return err
	}
	return resultado
}

func (c *RetailClient) send(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("retail: %s: marshal payload: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("retail: %s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if rid := RequestIDFrom(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		RetailLatencia.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("retail: %s: %w: %w", op, ErrRetailInalcanzable, err)
	}
	defer resp.Body.Close()
	RetailLatencia.WithLabelValues(op, http.StatusText(resp.StatusCode)).Observe(time.Since(start).Seconds())

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("retail: %s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nuevoRetailError(op, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("retail: %s: decode response: %w", op, err)
	}
	return nil
}

func nuevoRetailError(op string, status int, raw []byte) *RetailError {
	e := &RetailError{Operacion: op, Status: status}
	e.Detalle, e.Campos = extraerErrores(raw)
	if status == http.StatusNotFound {
		if msg, ok := mensajes404[op]; ok {
			e.Detalle = msg
		}
	}
	if e.Detalle == "" && len(e.Campos) == 0 {
		e.Detalle = http.StatusText(status)
	}
	return e
}

// extraerErrores pulls a general message and per-field messages out of an
// error body. It understands {"detail": ...}, {"error": ...},
// {"message": ...}, {"errors": {...}} and flat {"campo": ["msg", ...]}
// shapes, including nested objects (reported as "padre.hijo"). Anything else
// is returned as plain text.
func extraerErrores(raw []byte) (string, map[string]string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		txt := string(raw)
		if len(txt) > 200 {
			txt = txt[:200]
		}
		return txt, nil
	}

	campos := map[string]string{}
	var detalle []string
	switch v := body.(type) {
	case map[string]any:
		for k, val := range v {
			switch k {
			case "detail", "error", "message", "mensaje", "non_field_errors":
				if s := aplanar(val); s != "" {
					detalle = append(detalle, s)
				}
			case "errors", "errores":
				if m, ok := val.(map[string]any); ok {
					recolectar("", m, campos)
				} else if s := aplanar(val); s != "" {
					detalle = append(detalle, s)
				}
			default:
				recolectarValor(k, val, campos)
			}
		}
	default:
		if s := aplanar(v); s != "" {
			detalle = append(detalle, s)
		}
	}
	sort.Strings(detalle)
	if len(campos) == 0 {
		campos = nil
	}
	return strings.Join(detalle, "; "), campos
}

func recolectar(prefijo string, m map[string]any, campos map[string]string) {
	for k, val := range m {
		clave := k
		if prefijo != "" {
			clave = prefijo + "." + k
		}
		recolectarValor(clave, val, campos)
	}
}

func recolectarValor(clave string, val any, campos map[string]string) {
	switch x := val.(type) {
	case map[string]any:
		recolectar(clave, x, campos)
	case []any:
		// lists of objects come from nested serializers (one per line item)
		var msgs []string
		for i, it := range x {
			if m, ok := it.(map[string]any); ok {
				if len(m) > 0 {
					recolectar(fmt.Sprintf("%s.%d", clave, i), m, campos)
				}
				continue
			}
			if s := aplanar(it); s != "" {
				msgs = append(msgs, s)
			}
		}
		if len(msgs) > 0 {
			campos[clave] = strings.Join(msgs, " ")
		}
	default:
		if s := aplanar(x); s != "" {
			campos[clave] = s
		}
	}
}

func aplanar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		var parts []string
		for _, it := range x {
			if s := aplanar(it); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func esStatus(err error, status int) bool {
	var re *RetailError
	return errors.As(err, &re) && re.Status == status
}

// reintentable: the upstream may be unhealthy, as opposed to having answered
// a well-formed "no".
func reintentable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRetailInalcanzable) {
		return true
	}
	var re *RetailError
	return errors.As(err, &re) && re.Status >= 500
}

// ── Request id propagation ───────────────────────────────────────────────────

type requestIDKey struct{}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
