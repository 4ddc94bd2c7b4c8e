package worker

// retry_cron.go
// Background goroutine that periodically re-fetches credit notes for exchanges
// stuck in estado='pendiente_nota_credito'. Skips ticks while the retail
// circuit breaker is open.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/model"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10

	// MaxSeguimientoIntentos is the number of failed follow-ups after which
	// the cron gives up on an exchange and leaves it to the operator.
	MaxSeguimientoIntentos = 10

	// QueueSeguimiento names the DLQ for abandoned follow-ups.
	QueueSeguimiento = "cambios:nota_credito"
)

// Reintentador re-runs the credit-note follow-up of one ledger row.
type Reintentador interface {
	ReintentarNotaCredito(ctx context.Context, id uuid.UUID) (*dto.NotaCreditoResponse, error)
}

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	Cambios   repository.CambioRepository
	Seguidor  Reintentador
	Circuito  func() infra.CBState
	RDB       *redis.Client
	Intervalo time.Duration // 0 = retryTickInterval
}

// StartRetryCron launches the follow-up goroutine. It respects the context
// for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	intervalo := cfg.Intervalo
	if intervalo <= 0 {
		intervalo = retryTickInterval
	}
	go func() {
		ticker := time.NewTicker(intervalo)
		defer ticker.Stop()

		log.Info().Dur("intervalo", intervalo).Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg, time.Now())
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig, now time.Time) int {
	if circuitoAbierto(cfg) {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return 0
	}

	pendientes, err := cfg.Cambios.ListSeguimientos(ctx, MaxSeguimientoIntentos, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending follow-ups")
		return 0
	}

	procesados := 0
	for i := range pendientes {
		c := &pendientes[i]
		if now.Sub(c.UpdatedAt) < computeRetryBackoff(c.Intentos) {
			continue
		}
		// it may have tripped mid-batch
		if circuitoAbierto(cfg) {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return procesados
		}

		procesados++
		resp, err := cfg.Seguidor.ReintentarNotaCredito(ctx, c.ID)
		if err != nil {
			intentos := c.Intentos + 1
			if intentos >= MaxSeguimientoIntentos {
				log.Error().
					Str("cambio_id", c.ID.String()).
					Int("intentos", intentos).
					Msg("retry_cron: max retries exceeded, moving to DLQ")
				payload, _ := json.Marshal(map[string]string{
					"cambio_id":             c.ID.String(),
					"venta_nota_credito_id": derefStr(c.VentaNotaCreditoID),
				})
				SendToDLQ(ctx, cfg.RDB, QueueSeguimiento, "nota_credito", payload,
					fmt.Sprintf("max retries (%d) exceeded: %s", MaxSeguimientoIntentos, err), intentos)
				abandonar(ctx, cfg, c.ID)
				continue
			}
			log.Warn().Err(err).
				Str("cambio_id", c.ID.String()).
				Int("intentos", intentos).
				Msg("retry_cron: credit note retry failed")
			continue
		}

		log.Info().
			Str("cambio_id", c.ID.String()).
			Str("estado", resp.Cambio.Estado).
			Int("intentos", c.Intentos+1).
			Msg("retry_cron: credit note recovered")
	}
	return procesados
}

// abandonar takes the row out of the pending set so it stops occupying the
// batch. The retry already updated it, so it is re-read before writing.
func abandonar(ctx context.Context, cfg RetryCronConfig, id uuid.UUID) {
	c, err := cfg.Cambios.FindByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("cambio_id", id.String()).Msg("retry_cron: failed to reload abandoned row")
		return
	}
	c.Estado = model.EstadoNotaCreditoAbandonada
	if err := cfg.Cambios.Update(ctx, c); err != nil {
		log.Error().Err(err).Str("cambio_id", id.String()).Msg("retry_cron: failed to mark row abandoned")
	}
}

func circuitoAbierto(cfg RetryCronConfig) bool {
	return cfg.Circuito != nil && cfg.Circuito() == infra.CBOpen
}

// computeRetryBackoff grows the wait between follow-ups: 30s, 1m, 2m, 4m...
// capped at 30m.
func computeRetryBackoff(intentos int) time.Duration {
	if intentos <= 0 {
		return 0
	}
	d := retryTickInterval << uint(intentos-1)
	if d > 30*time.Minute || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
