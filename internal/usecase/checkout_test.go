package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/vitrina/internal/adapters/storage/memory"
	"github.com/phenrril/vitrina/internal/domain"
	"github.com/phenrril/vitrina/internal/persist"
	"github.com/phenrril/vitrina/internal/usecase"
)

type orderRepoFake struct {
	saved []*domain.Order
	err   error
}

func (r *orderRepoFake) Save(_ context.Context, o *domain.Order) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, o)
	return nil
}

func (r *orderRepoFake) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	for _, o := range r.saved {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, domain.ErrNotFound
}

type dismissSpy struct{ n int }

func (d *dismissSpy) Dismiss() { d.n++ }

func newCheckout(t *testing.T) (*usecase.CheckoutUC, *orderRepoFake, *dismissSpy) {
	t.Helper()
	ctx := context.Background()
	layer := memory.New("cookie")
	bus := usecase.NewStockOverrideBus(ctx, memory.New("persistent"))
	catalog := &productRepoFake{items: []domain.Product{product("A", 12), product("B", 3)}}
	cart := usecase.NewCart(ctx, usecase.CartConfig{Layer: layer, Guard: bus})
	profile := &usecase.ProfileUC{Store: usecase.NewProfileStore([]persist.Layer{layer})}
	repo := &orderRepoFake{}
	spy := &dismissSpy{}
	return &usecase.CheckoutUC{
		Orders:   repo,
		Products: catalog,
		Guard:    bus,
		Cart:     cart,
		Profile:  profile,
		Overlay:  spy,
		Now:      func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) },
	}, repo, spy
}

func TestCheckout_Success(t *testing.T) {
	ctx := context.Background()
	uc, repo, spy := newCheckout(t)
	uc.Cart.AddItem(ctx, product("A", 12))
	uc.Cart.AddItem(ctx, product("B", 3))

	o, err := uc.Submit(ctx, usecase.CheckoutForm{Name: " Nino ", Phone: "599 00 00 00", Region: "Imereti", Address: "Rustaveli 1", DeviceID: "abc", Zone: domain.ZoneRegion})
	require.NoError(t, err)
	require.Len(t, repo.saved, 1)

	assert.Equal(t, "Nino", o.Name)
	assert.Equal(t, "region", o.Zone)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, 15.0, o.Subtotal)
	assert.Equal(t, usecase.DefaultDeliveryFee, o.DeliveryFee)
	assert.Equal(t, 20.0, o.Total)
	for _, it := range o.Items {
		assert.Equal(t, o.ID, it.OrderID)
	}

	assert.Empty(t, uc.Cart.Entries())
	assert.False(t, uc.Profile.HasSaved(ctx))
	assert.Equal(t, 1, spy.n)
}

func TestCheckout_FreeDeliveryWhenUnlocked(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newCheckout(t)
	for i := 0; i < 3; i++ {
		uc.Cart.AddItem(ctx, product("A", 12))
	}
	uc.Cart.AddItem(ctx, product("B", 3))
	uc.Cart.AddItem(ctx, product("B", 3))
	o, err := uc.Submit(ctx, usecase.CheckoutForm{Name: "Giorgi", Phone: "555"})
	require.NoError(t, err)
	assert.Zero(t, o.DeliveryFee)
	assert.Equal(t, 42.0, o.Total)
}

func TestCheckout_InvalidCustomerKeepsDraft(t *testing.T) {
	ctx := context.Background()
	uc, repo, spy := newCheckout(t)
	uc.Cart.AddItem(ctx, product("A", 12))

	_, err := uc.Submit(ctx, usecase.CheckoutForm{Name: "Nino"})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)
	assert.Empty(t, repo.saved)
	assert.Zero(t, spy.n)

	rec, ok := uc.Profile.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "Nino", rec.Name)
	assert.Len(t, uc.Cart.Entries(), 1)
}

func TestCheckout_EmptyCart(t *testing.T) {
	uc, _, _ := newCheckout(t)
	_, err := uc.Submit(context.Background(), usecase.CheckoutForm{Name: "Nino", Phone: "1"})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCheckout_RepoFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	uc, repo, spy := newCheckout(t)
	repo.err = errors.New("db caída")
	uc.Cart.AddItem(ctx, product("A", 12))

	_, err := uc.Submit(ctx, usecase.CheckoutForm{Name: "Nino", Phone: "1"})
	require.Error(t, err)
	assert.Len(t, uc.Cart.Entries(), 1)
	assert.True(t, uc.Profile.HasSaved(ctx))
	assert.Zero(t, spy.n)
}

func TestCheckout_PricesFromCatalog(t *testing.T) {
	ctx := context.Background()
	uc, repo, _ := newCheckout(t)
	forged := product("A", 0.01)
	for i := 0; i < 4; i++ {
		uc.Cart.AddItem(ctx, forged)
	}
	assert.InDelta(t, 0.04, uc.Cart.Total(), 1e-9)

	o, err := uc.Submit(ctx, usecase.CheckoutForm{Name: "Nino", Phone: "1"})
	require.NoError(t, err)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, 12.0, o.Items[0].UnitPrice)
	assert.Equal(t, 48.0, o.Subtotal)
	assert.Zero(t, o.DeliveryFee, "el umbral se evalúa con precios del catálogo")
}

func TestCheckout_RejectsItemsOutOfStock(t *testing.T) {
	ctx := context.Background()
	uc, repo, spy := newCheckout(t)
	require.True(t, uc.Cart.AddItem(ctx, product("A", 12)))
	require.NoError(t, uc.Guard.(*usecase.StockOverrideBus).SetOverride(ctx, "A", false))

	_, err := uc.Submit(ctx, usecase.CheckoutForm{Name: "Nino", Phone: "1"})
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.Empty(t, repo.saved)
	assert.Zero(t, spy.n)
	assert.Len(t, uc.Cart.Entries(), 1)
}

func TestCheckout_RejectsItemsMissingFromCatalog(t *testing.T) {
	ctx := context.Background()
	uc, repo, _ := newCheckout(t)
	uc.Cart.AddItem(ctx, product("Z", 1))

	_, err := uc.Submit(ctx, usecase.CheckoutForm{Name: "Nino", Phone: "1"})
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.Empty(t, repo.saved)
}
