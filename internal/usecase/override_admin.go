package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/vitrina/internal/domain"
)

type actorKey struct{}

// WithActor asocia quién hace el cambio para la auditoría.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	a, _ := ctx.Value(actorKey{}).(string)
	return a
}

// OverrideAdminUC es la herramienta de administración de overrides: cambia
// el bus y deja un registro de auditoría por cada cambio.
type OverrideAdminUC struct {
	Bus      *StockOverrideBus
	Audit    domain.OverrideAuditRepo
	Products domain.ProductRepo
	Now      func() time.Time

	unsub func()
}

// Attach suscribe la auditoría al bus. Devuelve la función para soltarla.
func (uc *OverrideAdminUC) Attach() func() {
	uc.unsub = uc.Bus.Subscribe(uc.record)
	return uc.unsub
}

func (uc *OverrideAdminUC) record(ctx context.Context, ev domain.OverrideEvent) {
	if uc.Audit == nil {
		return
	}
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}
	a := &domain.OverrideAudit{
		ID:        uuid.New(),
		ProductID: ev.ProductID,
		Action:    domain.OverrideActionSet,
		Available: ev.Available,
		Actor:     actorFrom(ctx),
		CreatedAt: now(),
	}
	if ev.Available == nil {
		a.Action = domain.OverrideActionClear
	}
	// la auditoría no debe depender de que la request siga viva
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := uc.Audit.Save(actx, a); err != nil {
		log.Error().Err(err).Str("product", ev.ProductID).Msg("guardar auditoría de override")
	}
}

func (uc *OverrideAdminUC) Set(ctx context.Context, actor, productID string, available bool) error {
	return uc.Bus.SetOverride(WithActor(ctx, actor), productID, available)
}

func (uc *OverrideAdminUC) Clear(ctx context.Context, actor, productID string) error {
	return uc.Bus.ClearOverride(WithActor(ctx, actor), productID)
}

func (uc *OverrideAdminUC) Recent(ctx context.Context, limit int) ([]domain.OverrideAudit, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if uc.Audit == nil {
		return []domain.OverrideAudit{}, nil
	}
	return uc.Audit.Recent(ctx, limit)
}

// History devuelve los cambios de un producto, el más nuevo primero.
func (uc *OverrideAdminUC) History(ctx context.Context, productID string) ([]domain.OverrideAudit, error) {
	if uc.Audit == nil {
		return []domain.OverrideAudit{}, nil
	}
	return uc.Audit.ForProduct(ctx, productID)
}

// Effective lista todo el catálogo activo con su disponibilidad efectiva.
func (uc *OverrideAdminUC) Effective(ctx context.Context) ([]CatalogItem, error) {
	p := &ProductUC{Products: uc.Products, Overrides: uc.Bus}
	var all []CatalogItem
	for page := 1; page <= 50; page++ {
		list, total, err := p.List(ctx, domain.ProductFilter{Page: page, PageSize: 200})
		if err != nil {
			return nil, err
		}
		all = append(all, list...)
		if len(list) == 0 || int64(len(all)) >= total {
			break
		}
	}
	return all, nil
}
