package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OverrideMap guarda la disponibilidad manual por producto. Si la clave no
// existe se usa el valor del catálogo.
type OverrideMap map[string]bool

func (m OverrideMap) Clone() OverrideMap {
	out := make(OverrideMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// OverrideEvent se entrega a los suscriptores después de cada cambio.
// Available es nil cuando el override se eliminó.
type OverrideEvent struct {
	ProductID string
	Available *bool
	Overrides OverrideMap
}

type OverrideAction string

const (
	OverrideActionSet   OverrideAction = "set"
	OverrideActionClear OverrideAction = "clear"
)

type OverrideAudit struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID string         `gorm:"size:64;index" json:"productId"`
	Action    OverrideAction `gorm:"type:varchar(10)" json:"action"`
	Available *bool          `json:"available,omitempty"`
	Actor     string         `gorm:"size:140" json:"actor,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
}

type OverrideAuditRepo interface {
	Save(ctx context.Context, a *OverrideAudit) error
	Recent(ctx context.Context, limit int) ([]OverrideAudit, error)
	ForProduct(ctx context.Context, productID string) ([]OverrideAudit, error)
}
