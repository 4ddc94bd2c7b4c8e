package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the exchange ledger (GORM over pgx) and applies the
// schema. The ledger is small and owned by this service only, so the DDL
// lives here instead of a separate migrations tool.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(3)

	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return db, nil
}

// RunMigrations applies the idempotent ledger DDL. Also used by the
// integration tests against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"create cambios", `
CREATE TABLE IF NOT EXISTS cambios (
    id                       UUID PRIMARY KEY,
    remote_id                TEXT,
    venta_original_id        TEXT          NOT NULL,
    tienda_id                TEXT          NOT NULL DEFAULT '',
    usuario_id               TEXT          NOT NULL DEFAULT '',
    sesion_id                TEXT          NOT NULL DEFAULT '',
    motivo                   TEXT          NOT NULL DEFAULT '',
    estado                   VARCHAR(32)   NOT NULL,
    resultado                VARCHAR(32)   NOT NULL,
    monto_devuelto           DECIMAL(12,2) NOT NULL DEFAULT 0,
    total_carrito            DECIMAL(12,2) NOT NULL DEFAULT 0,
    diferencia               DECIMAL(12,2) NOT NULL DEFAULT 0,
    monto_a_cobrar           DECIMAL(12,2) NOT NULL DEFAULT 0,
    metodo_pago_id           TEXT,
    arancel_id               TEXT,
    venta_suplementaria_id   TEXT,
    venta_nota_credito_id    TEXT,
    cliente_email            TEXT,
    last_error               TEXT,
    intentos                 INT           NOT NULL DEFAULT 0,
    created_at               TIMESTAMPTZ   NOT NULL DEFAULT now(),
    updated_at               TIMESTAMPTZ   NOT NULL DEFAULT now()
)`},
		{"create cambio_lineas", `
CREATE TABLE IF NOT EXISTS cambio_lineas (
    id                 UUID PRIMARY KEY,
    cambio_id          UUID          NOT NULL REFERENCES cambios(id) ON DELETE CASCADE,
    orden              INT           NOT NULL,
    accion             VARCHAR(16)   NOT NULL,
    linea_venta_id     TEXT,
    cantidad           INT           NOT NULL,
    producto_nuevo_id  TEXT,
    precio_nuevo       DECIMAL(12,2) NOT NULL DEFAULT 0
)`},
		{"add cambios.cliente_email", `ALTER TABLE cambios ADD COLUMN IF NOT EXISTS cliente_email TEXT`},
		{"idx cambio_lineas.cambio_id", `CREATE INDEX IF NOT EXISTS idx_cambio_lineas_cambio ON cambio_lineas (cambio_id, orden)`},
		{"idx cambios.created_at", `CREATE INDEX IF NOT EXISTS idx_cambios_created_at ON cambios (created_at DESC)`},
		// follow-up queue: only rows still waiting for the sale or credit note
		{"idx cambios pendientes", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_cambios_pendientes') THEN
    CREATE INDEX idx_cambios_pendientes ON cambios (updated_at)
        WHERE estado IN ('pendiente_venta', 'pendiente_nota_credito');
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
