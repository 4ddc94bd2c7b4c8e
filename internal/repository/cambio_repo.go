package repository

import (
	"context"
	"errors"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/dto"
	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned by FindByID when no row matches.
var ErrNotFound = errors.New("registro no encontrado")

type CambioRepository interface {
	Create(ctx context.Context, c *model.Cambio) error
	Update(ctx context.Context, c *model.Cambio) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cambio, error)
	List(ctx context.Context, filter dto.CambioFilter) ([]model.Cambio, int64, error)
	// ListSeguimientos returns pending credit notes with attempts left, least
	// recently touched first.
	ListSeguimientos(ctx context.Context, maxIntentos, limit int) ([]model.Cambio, error)
}

type cambioRepo struct{ db *gorm.DB }

func NewCambioRepository(db *gorm.DB) CambioRepository { return &cambioRepo{db: db} }

// Create inserts the exchange and its lines in one transaction.
func (r *cambioRepo) Create(ctx context.Context, c *model.Cambio) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(c).Error
	})
}

// Update saves the header only; lines are immutable once written.
func (r *cambioRepo) Update(ctx context.Context, c *model.Cambio) error {
	return r.db.WithContext(ctx).Omit("Lineas").Save(c).Error
}

func (r *cambioRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cambio, error) {
	var c model.Cambio
	err := r.db.WithContext(ctx).
		Preload("Lineas", func(db *gorm.DB) *gorm.DB { return db.Order("orden ASC") }).
		First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cambioRepo) List(ctx context.Context, filter dto.CambioFilter) ([]model.Cambio, int64, error) {
	var cambios []model.Cambio
	var total int64
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Cambio{})

	switch filter.Estado {
	case "", "all":
	case "pendientes":
		q = q.Where("estado IN ?", []string{model.EstadoPendienteVenta, model.EstadoPendienteNotaCredito})
	default:
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.Fecha != "" {
		q = q.Where("DATE(created_at) = ?", filter.Fecha)
	}
	if filter.VentaID != "" {
		q = q.Where("venta_original_id = ?", filter.VentaID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Lineas", func(db *gorm.DB) *gorm.DB { return db.Order("orden ASC") }).
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&cambios).Error

	return cambios, total, err
}

func (r *cambioRepo) ListSeguimientos(ctx context.Context, maxIntentos, limit int) ([]model.Cambio, error) {
	var cambios []model.Cambio
	err := r.db.WithContext(ctx).
		Where("estado = ? AND intentos < ?", model.EstadoPendienteNotaCredito, maxIntentos).
		Order("updated_at ASC").
		Limit(limit).
		Find(&cambios).Error
	return cambios, err
}
