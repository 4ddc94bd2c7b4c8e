package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/cambio"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSesionNoEncontrada = errors.New("sesión no encontrada o expirada")
	// ErrEnvioEnCurso: another submission of the same session holds the lock.
	ErrEnvioEnCurso = errors.New("ya hay un envío en curso para esta sesión")
)

// SesionRepository stores reconciliation sessions. Sessions expire after the
// configured TTL of inactivity.
type SesionRepository interface {
	Save(ctx context.Context, s *cambio.Sesion) error
	Find(ctx context.Context, id string) (*cambio.Sesion, error)
	Delete(ctx context.Context, id string) error
	// Bloquear takes the submit lock of a session. The returned func
	// releases it; the lock also expires on its own.
	Bloquear(ctx context.Context, id string) (func(), error)
}

type sesionRepo struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewSesionRepository(rdb *redis.Client, ttl, lockTTL time.Duration) SesionRepository {
	return &sesionRepo{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

func sesionKey(id string) string { return "cambio:sesion:" + id }
func lockKey(id string) string   { return "cambio:sesion:" + id + ":enviando" }

func (r *sesionRepo) Save(ctx context.Context, s *cambio.Sesion) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("sesion: marshal: %w", err)
	}
	return r.rdb.Set(ctx, sesionKey(s.ID), b, r.ttl).Err()
}

func (r *sesionRepo) Find(ctx context.Context, id string) (*cambio.Sesion, error) {
	b, err := r.rdb.Get(ctx, sesionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSesionNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	var s cambio.Sesion
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("sesion: unmarshal: %w", err)
	}
	return &s, nil
}

func (r *sesionRepo) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sesionKey(id), lockKey(id)).Err()
}

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock re-taken by another request is not released by mistake.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

func (r *sesionRepo) Bloquear(ctx context.Context, id string) (func(), error) {
	token := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, lockKey(id), token, r.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEnvioEnCurso
	}
	return func() {
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, r.rdb, []string{lockKey(id)}, token).Err()
	}, nil
}
