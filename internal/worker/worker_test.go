package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/model"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { baseBackoff = time.Millisecond }

// ── Stubs ────────────────────────────────────────────────────────────────────

type stubMailer struct {
	configurado bool
	fallos      int
	intentos    int
	enviados    []string
}

func (m *stubMailer) Configurado() bool { return m.configurado }

func (m *stubMailer) EnviarTicket(to, _, _, _ string) error {
	m.intentos++
	if m.intentos <= m.fallos {
		return errors.New("smtp: 421 try later")
	}
	m.enviados = append(m.enviados, to)
	return nil
}

type stubLedger struct {
	mu       sync.Mutex
	cambios  map[uuid.UUID]*model.Cambio
	errFind  int // FindByID fails this many times first
	llamadas int
}

var _ repository.CambioRepository = (*stubLedger)(nil)

func (r *stubLedger) Create(_ context.Context, c *model.Cambio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cambios[c.ID] = c
	return nil
}

func (r *stubLedger) Update(_ context.Context, c *model.Cambio) error { return r.Create(context.Background(), c) }

func (r *stubLedger) FindByID(_ context.Context, id uuid.UUID) (*model.Cambio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llamadas++
	if r.llamadas <= r.errFind {
		return nil, errors.New("conexión rechazada")
	}
	c, ok := r.cambios[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (r *stubLedger) List(_ context.Context, f dto.CambioFilter) ([]model.Cambio, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Cambio
	for _, c := range r.cambios {
		if c.Estado == f.Estado {
			out = append(out, *c)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubLedger) ListSeguimientos(_ context.Context, maxIntentos, limit int) ([]model.Cambio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Cambio
	for _, c := range r.cambios {
		if c.Estado == model.EstadoPendienteNotaCredito && c.Intentos < maxIntentos {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stubEmails struct{ jobs []EmailJobPayload }

func (s *stubEmails) EnqueueEmail(_ context.Context, payload interface{}) error {
	s.jobs = append(s.jobs, payload.(EmailJobPayload))
	return nil
}

type stubReintentador struct {
	err     error
	pedidos []uuid.UUID
}

func (s *stubReintentador) ReintentarNotaCredito(_ context.Context, id uuid.UUID) (*dto.NotaCreditoResponse, error) {
	s.pedidos = append(s.pedidos, id)
	if s.err != nil {
		return nil, s.err
	}
	return &dto.NotaCreditoResponse{Cambio: dto.CambioResponse{ID: id.String(), Estado: model.EstadoCompletado}}, nil
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// ── withRetry ────────────────────────────────────────────────────────────────

func TestWithRetry(t *testing.T) {
	n := 0
	err := withRetry(context.Background(), 3, func(int) error {
		n++
		if n < 3 {
			return errors.New("todavía no")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	n = 0
	err = withRetry(context.Background(), 2, func(int) error { n++; return errors.New("nunca") })
	assert.EqualError(t, err, "nunca")
	assert.Equal(t, 2, n)
}

func TestWithRetry_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 3, func(int) error { return errors.New("falla") })
	assert.ErrorIs(t, err, context.Canceled)
}

// ── EmailWorker ──────────────────────────────────────────────────────────────

func TestEmailWorker_ReintentaYEnvia(t *testing.T) {
	m := &stubMailer{configurado: true, fallos: 2}
	w := NewEmailWorker(m)

	err := w.Process(context.Background(), raw(t, EmailJobPayload{ToEmail: "ana@example.com", Subject: "s"}))
	require.NoError(t, err)
	assert.Equal(t, 3, m.intentos)
	assert.Equal(t, []string{"ana@example.com"}, m.enviados)
}

func TestEmailWorker_AgotaIntentos(t *testing.T) {
	m := &stubMailer{configurado: true, fallos: 10}
	err := NewEmailWorker(m).Process(context.Background(), raw(t, EmailJobPayload{ToEmail: "ana@example.com"}))
	require.Error(t, err)
	assert.Equal(t, maxAttempts, m.intentos)
}

func TestEmailWorker_Descarta(t *testing.T) {
	m := &stubMailer{}
	w := NewEmailWorker(m)

	assert.NoError(t, w.Process(context.Background(), raw(t, EmailJobPayload{ToEmail: "ana@example.com"})), "SMTP off")
	assert.NoError(t, w.Process(context.Background(), raw(t, EmailJobPayload{})), "no recipient")
	assert.Error(t, w.Process(context.Background(), json.RawMessage(`{`)))
	assert.Zero(t, m.intentos)
}

// ── TicketWorker ─────────────────────────────────────────────────────────────

func nuevoCambio() *model.Cambio {
	remoto := "c-77"
	return &model.Cambio{
		ID:           uuid.New(),
		RemoteID:     &remoto,
		Estado:       model.EstadoCompletado,
		Resultado:    "a_favor_tienda",
		MontoACobrar: decimal.RequireFromString("33"),
	}
}

func TestTicketWorker_GeneraYEncolaEmail(t *testing.T) {
	c := nuevoCambio()
	ledger := &stubLedger{cambios: map[uuid.UUID]*model.Cambio{c.ID: c}, errFind: 1}
	emails := &stubEmails{}
	w := NewTicketWorker(ledger, emails, t.TempDir(), "Bonito Amor")
	var generados []uuid.UUID
	w.generar = func(c *model.Cambio, tienda, dir string) (string, error) {
		generados = append(generados, c.ID)
		return dir + "/ticket.pdf", nil
	}

	err := w.Process(context.Background(), raw(t, TicketJobPayload{CambioID: c.ID.String(), ClienteEmail: "ana@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID}, generados)
	require.Len(t, emails.jobs, 1)
	job := emails.jobs[0]
	assert.Equal(t, "ana@example.com", job.ToEmail)
	assert.Equal(t, "Bonito Amor: comprobante de cambio #c-77", job.Subject)
	assert.Contains(t, job.Body, "$33.00")
	assert.Contains(t, job.PDFPath, "ticket.pdf")
}

func TestTicketWorker_SinEmailSoloPDF(t *testing.T) {
	c := nuevoCambio()
	ledger := &stubLedger{cambios: map[uuid.UUID]*model.Cambio{c.ID: c}}
	emails := &stubEmails{}
	w := NewTicketWorker(ledger, emails, t.TempDir(), "Bonito Amor")

	err := w.Process(context.Background(), raw(t, TicketJobPayload{CambioID: c.ID.String()}))
	require.NoError(t, err)
	assert.Empty(t, emails.jobs)
}

func TestTicketWorker_Errores(t *testing.T) {
	ledger := &stubLedger{cambios: map[uuid.UUID]*model.Cambio{}}
	w := NewTicketWorker(ledger, &stubEmails{}, t.TempDir(), "x")

	assert.Error(t, w.Process(context.Background(), raw(t, TicketJobPayload{CambioID: "no-uuid"})))
	err := w.Process(context.Background(), raw(t, TicketJobPayload{CambioID: uuid.NewString()}))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// ── Pool ─────────────────────────────────────────────────────────────────────

func TestPool_DespachaPorTipo(t *testing.T) {
	var recibido json.RawMessage
	fallas := 0
	p := NewPool(nil, map[string]Handler{
		JobTicket: func(_ context.Context, payload json.RawMessage) error { recibido = payload; return nil },
		JobEmail:  func(context.Context, json.RawMessage) error { fallas++; return errors.New("x") },
	})

	p.process(context.Background(), QueueTicket, string(raw(t, Job{Type: JobTicket, Payload: raw(t, map[string]string{"a": "b"})})))
	assert.JSONEq(t, `{"a":"b"}`, string(recibido))

	// failures and unknown types go to the DLQ; with no Redis that is a log line
	p.process(context.Background(), QueueEmail, string(raw(t, Job{Type: JobEmail})))
	p.process(context.Background(), QueueEmail, string(raw(t, Job{Type: "otro"})))
	p.process(context.Background(), QueueEmail, "{no json")
	assert.Equal(t, 1, fallas)
}

// ── Credit-note follow-up cron ───────────────────────────────────────────────

func pendiente(intentos int, hace time.Duration, ahora time.Time) *model.Cambio {
	nc := "nc-1"
	return &model.Cambio{
		ID:                 uuid.New(),
		Estado:             model.EstadoPendienteNotaCredito,
		VentaNotaCreditoID: &nc,
		Intentos:           intentos,
		UpdatedAt:          ahora.Add(-hace),
	}
}

func TestProcessRetries(t *testing.T) {
	ahora := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	// one attempt waits 30s, three attempts wait 2m
	listo := pendiente(1, time.Minute, ahora)
	esperando := pendiente(3, time.Minute, ahora)
	abandonado := pendiente(MaxSeguimientoIntentos, time.Hour, ahora)
	completo := pendiente(0, 0, ahora)
	completo.Estado = model.EstadoCompletado

	ledger := &stubLedger{cambios: map[uuid.UUID]*model.Cambio{}}
	for _, c := range []*model.Cambio{listo, esperando, abandonado, completo} {
		ledger.cambios[c.ID] = c
	}
	seg := &stubReintentador{}
	cfg := RetryCronConfig{Cambios: ledger, Seguidor: seg, Circuito: func() infra.CBState { return infra.CBClosed }}

	n := processRetries(context.Background(), cfg, ahora)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{listo.ID}, seg.pedidos)
}

func TestProcessRetries_CircuitoAbierto(t *testing.T) {
	ahora := time.Now()
	c := pendiente(0, time.Hour, ahora)
	ledger := &stubLedger{cambios: map[uuid.UUID]*model.Cambio{c.ID: c}}
	seg := &stubReintentador{}
	cfg := RetryCronConfig{Cambios: ledger, Seguidor: seg, Circuito: func() infra.CBState { return infra.CBOpen }}

	assert.Zero(t, processRetries(context.Background(), cfg, ahora))
	assert.Empty(t, seg.pedidos)
	assert.Zero(t, ledger.llamadas)
}

func TestProcessRetries_UltimoIntentoVaALaDLQ(t *testing.T) {
	ahora := time.Now()
	c := pendiente(MaxSeguimientoIntentos-1, time.Hour, ahora)
	ledger := &stubLedger{cambios: map[uuid.UUID]*model.Cambio{c.ID: c}}
	seg := &stubReintentador{err: infra.ErrRetailInalcanzable}

	// RDB nil: SendToDLQ only logs
	n := processRetries(context.Background(), RetryCronConfig{Cambios: ledger, Seguidor: seg}, ahora)
	assert.Equal(t, 1, n)
	assert.Len(t, seg.pedidos, 1)
	assert.Equal(t, model.EstadoNotaCreditoAbandonada, ledger.cambios[c.ID].Estado)

	// abandoned rows leave the batch
	assert.Zero(t, processRetries(context.Background(), RetryCronConfig{Cambios: ledger, Seguidor: seg}, ahora.Add(time.Hour)))
	assert.Len(t, seg.pedidos, 1)
}

func TestProcessRetries_AgotadosNoAcaparanElLote(t *testing.T) {
	ahora := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	ledger := &stubLedger{cambios: map[uuid.UUID]*model.Cambio{}}
	for i := 0; i < retryBatchSize; i++ {
		c := pendiente(MaxSeguimientoIntentos, time.Duration(i)*time.Minute, ahora)
		ledger.cambios[c.ID] = c
	}
	viejo := pendiente(2, 2*time.Hour, ahora)
	ledger.cambios[viejo.ID] = viejo
	seg := &stubReintentador{}
	cfg := RetryCronConfig{Cambios: ledger, Seguidor: seg, Circuito: func() infra.CBState { return infra.CBClosed }}

	for tick := 0; tick < 3; tick++ {
		processRetries(context.Background(), cfg, ahora.Add(time.Duration(tick)*time.Hour))
	}
	require.NotEmpty(t, seg.pedidos)
	assert.Equal(t, viejo.ID, seg.pedidos[0])
}

func TestProcessRetries_LoteEmpiezaPorLosMasViejos(t *testing.T) {
	ahora := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	ledger := &stubLedger{cambios: map[uuid.UUID]*model.Cambio{}}
	orden := make([]uuid.UUID, 0, retryBatchSize+2)
	for i := retryBatchSize + 2; i > 0; i-- {
		c := pendiente(1, time.Duration(i)*time.Hour, ahora)
		c.Motivo = fmt.Sprintf("fila %d", i)
		ledger.cambios[c.ID] = c
		orden = append(orden, c.ID)
	}
	seg := &stubReintentador{}

	n := processRetries(context.Background(), RetryCronConfig{Cambios: ledger, Seguidor: seg}, ahora)
	assert.Equal(t, retryBatchSize, n)
	assert.Equal(t, orden[:retryBatchSize], seg.pedidos)
}

func TestComputeRetryBackoff(t *testing.T) {
	assert.Equal(t, time.Duration(0), computeRetryBackoff(0))
	assert.Equal(t, 30*time.Second, computeRetryBackoff(1))
	assert.Equal(t, time.Minute, computeRetryBackoff(2))
	assert.Equal(t, 4*time.Minute, computeRetryBackoff(4))
	assert.Equal(t, 30*time.Minute, computeRetryBackoff(9))
	assert.Equal(t, 30*time.Minute, computeRetryBackoff(80))
}
