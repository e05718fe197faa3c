package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/phenrril/vitrina/internal/domain"
	"github.com/phenrril/vitrina/internal/persist"
)

const CustomerKey = "vitrina_customer"

// ProfileUC guarda los datos de contacto del checkout en el dispositivo.
type ProfileUC struct {
	Store *persist.Store[domain.CustomerRecord]
	Now   func() time.Time
}

func NewProfileStore(layers []persist.Layer) *persist.Store[domain.CustomerRecord] {
	return persist.NewStore[domain.CustomerRecord](CustomerKey, persist.JSONCodec[domain.CustomerRecord]{}, layers,
		persist.WithEmpty(func(c domain.CustomerRecord) bool { return c.IsBlank() }))
}

func (uc *ProfileUC) Save(ctx context.Context, c domain.CustomerRecord) {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Region = strings.TrimSpace(c.Region)
	c.Address = strings.TrimSpace(c.Address)
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}
	c.SavedAt = now().UnixMilli()
	uc.Store.Save(ctx, c)
}

func (uc *ProfileUC) Load(ctx context.Context) (domain.CustomerRecord, bool) {
	return uc.Store.Load(ctx)
}

func (uc *ProfileUC) HasSaved(ctx context.Context) bool {
	c, ok := uc.Store.Load(ctx)
	return ok && c.HasContact()
}

// Clear se llama cuando la orden quedó confirmada.
func (uc *ProfileUC) Clear(ctx context.Context) {
	uc.Store.Clear(ctx)
}
