package worker

// dlq.go: work the service gave up on (jobs out of attempts, exchanges whose
// credit note never came back) lands in dlq:{queue} for an operator to look at.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry is one abandoned item with enough context to replay it by hand.
type DLQEntry struct {
	Queue    string          `json:"queue"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Motivo   string          `json:"motivo"`
	Intentos int             `json:"intentos"`
	Fecha    time.Time       `json:"fecha"`
}

func dlqKey(queue string) string { return DLQPrefix + queue }

// SendToDLQ records the item in the queue's dead-letter list. With a nil
// client the entry is only logged.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, tipo string, payload json.RawMessage, motivo string, intentos int) {
	infra.JobsProcesados.WithLabelValues(tipo, "dlq").Inc()
	logger := log.With().Str("queue", queue).Str("tipo", tipo).Int("intentos", intentos).Logger()
	logger.Warn().Str("motivo", motivo).Msg("dlq: abandonado")

	if rdb == nil {
		return
	}
	data, err := json.Marshal(DLQEntry{
		Queue:    queue,
		Type:     tipo,
		Payload:  payload,
		Motivo:   motivo,
		Intentos: intentos,
		Fecha:    time.Now().UTC(),
	})
	if err != nil {
		logger.Error().Err(err).Msg("dlq: no se pudo serializar")
		return
	}
	if err := rdb.LPush(ctx, dlqKey(queue), data).Err(); err != nil {
		logger.Error().Err(err).Msg("dlq: no se pudo guardar")
	}
}

// DLQLength is reported by the health endpoint.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, dlqKey(queue)).Result()
}
