package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/cambio"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const metodosPagoCacheKey = "cambio:cache:metodos_pago"

// MetodoPagoService serves payment methods and their fee plans, cached in
// Redis since they change rarely and every payment choice looks them up.
type MetodoPagoService interface {
	Listar(ctx context.Context) ([]cambio.MetodoPago, error)
	Buscar(ctx context.Context, id string) (cambio.MetodoPago, error)
}

type metodoPagoService struct {
	retail RetailAPI
	rdb    *redis.Client // nil disables the cache
	ttl    time.Duration
}

func NewMetodoPagoService(retail RetailAPI, rdb *redis.Client, ttl time.Duration) MetodoPagoService {
	return &metodoPagoService{retail: retail, rdb: rdb, ttl: ttl}
}

func (s *metodoPagoService) Listar(ctx context.Context) ([]cambio.MetodoPago, error) {
	if s.rdb != nil && s.ttl > 0 {
		if b, err := s.rdb.Get(ctx, metodosPagoCacheKey).Bytes(); err == nil {
			var out []cambio.MetodoPago
			if err := json.Unmarshal(b, &out); err == nil {
				return out, nil
			}
		}
	}

	remotos, err := s.retail.ListarMetodosPago(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]cambio.MetodoPago, 0, len(remotos))
	for _, m := range remotos {
		out = append(out, m.MetodoPago())
	}

	if s.rdb != nil && s.ttl > 0 {
		if b, err := json.Marshal(out); err == nil {
			if err := s.rdb.Set(ctx, metodosPagoCacheKey, b, s.ttl).Err(); err != nil {
				log.Warn().Err(err).Msg("metodos_pago: no se pudo cachear")
			}
		}
	}
	return out, nil
}

func (s *metodoPagoService) Buscar(ctx context.Context, id string) (cambio.MetodoPago, error) {
	metodos, err := s.Listar(ctx)
	if err != nil {
		return cambio.MetodoPago{}, err
	}
	for _, m := range metodos {
		if m.ID == id {
			return m, nil
		}
	}
	return cambio.MetodoPago{}, &cambio.ErrorValidacion{
		Campo:   "metodo_pago_id",
		Mensaje: fmt.Sprintf("método de pago %s inexistente", id),
	}
}
