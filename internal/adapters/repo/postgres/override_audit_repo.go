package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/vitrina/internal/domain"
)

type OverrideAuditRepo struct{ db *gorm.DB }

func NewOverrideAuditRepo(db *gorm.DB) *OverrideAuditRepo {
	return &OverrideAuditRepo{db: db}
}

// Save inserta una fila; las filas de auditoría nunca se actualizan.
func (r *OverrideAuditRepo) Save(ctx context.Context, a *domain.OverrideAudit) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(a).Error
}

// Recent devuelve las últimas filas, la más nueva primero.
func (r *OverrideAuditRepo) Recent(ctx context.Context, limit int) ([]domain.OverrideAudit, error) {
	var list []domain.OverrideAudit
	if err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ForProduct devuelve el historial de un producto.
func (r *OverrideAuditRepo) ForProduct(ctx context.Context, productID string) ([]domain.OverrideAudit, error) {
	var list []domain.OverrideAudit
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
