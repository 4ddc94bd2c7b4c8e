package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "*", cfg.CORSOrigins)
	assert.Equal(t, 15*time.Second, cfg.RetailTimeout())
	assert.Equal(t, 4*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 90*time.Second, cfg.SubmitLockTTL())
	assert.Equal(t, 10*time.Minute, cfg.MetodosPagoTTL())
	assert.Equal(t, 30*time.Second, cfg.CBOpenTimeout())
	assert.Equal(t, 30*time.Second, cfg.SeguimientoIntervalo())
}

func TestLoad_Entorno(t *testing.T) {
	t.Setenv("RETAIL_API_URL", "https://ventas.example.com/api")
	t.Setenv("RETAIL_API_TIMEOUT_SECONDS", "5")
	t.Setenv("SESSION_TTL_MINUTES", "30")
	t.Setenv("JWT_SECRET", "s3cr3t")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://ventas.example.com/api", cfg.RetailAPIURL)
	assert.Equal(t, 5*time.Second, cfg.RetailTimeout())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	assert.Equal(t, "s3cr3t", cfg.JWTSecret)
}
