package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/vitrina/internal/adapters/storage/cookie"
	"github.com/phenrril/vitrina/internal/adapters/storage/memory"
	"github.com/phenrril/vitrina/internal/domain"
	"github.com/phenrril/vitrina/internal/persist"
	"github.com/phenrril/vitrina/internal/usecase"
)

type trackerSpy struct {
	events []string
}

func (t *trackerSpy) AddToCart(_ context.Context, p domain.Product, _ int) {
	t.events = append(t.events, p.ID)
}

func newCart(t *testing.T) (*usecase.CartUC, *usecase.StockOverrideBus, *memory.Layer, *trackerSpy) {
	t.Helper()
	ctx := context.Background()
	bus := usecase.NewStockOverrideBus(ctx, memory.New("persistent"))
	layer := memory.New("persistent")
	spy := &trackerSpy{}
	c := usecase.NewCart(ctx, usecase.CartConfig{Layer: layer, Guard: bus, Tracker: spy, Threshold: 40})
	return c, bus, layer, spy
}

func product(id string, price float64) domain.Product {
	return domain.Product{ID: id, Title: id, Price: price, Available: true}
}

func TestCart_ThresholdScenario(t *testing.T) {
	ctx := context.Background()
	c, _, _, spy := newCart(t)
	a := product("A", 15)

	require.True(t, c.AddItem(ctx, a))
	require.True(t, c.AddItem(ctx, a))
	assert.Equal(t, 30.0, c.Total())
	assert.Equal(t, 2, c.ItemCount())
	assert.Equal(t, 10.0, c.Remaining())
	assert.False(t, c.IsUnlocked())

	require.True(t, c.AddItem(ctx, a))
	assert.Equal(t, 45.0, c.Total())
	assert.True(t, c.IsUnlocked())
	assert.Equal(t, 0.0, c.Remaining())
	assert.Len(t, c.Entries(), 1)
	assert.Equal(t, []string{"A", "A", "A"}, spy.events)
}

func TestCart_OverrideBlocksAdd(t *testing.T) {
	ctx := context.Background()
	c, bus, layer, spy := newCart(t)
	require.NoError(t, bus.SetOverride(ctx, "A", false))

	assert.False(t, c.AddItem(ctx, product("A", 10)))
	assert.Empty(t, c.Entries())
	assert.Empty(t, spy.events)
	_, ok, _ := layer.Read(ctx, usecase.CartKey)
	assert.False(t, ok)
}

func TestCart_CatalogUnavailableBlocksAdd(t *testing.T) {
	ctx := context.Background()
	c, bus, _, _ := newCart(t)
	p := product("B", 10)
	p.Available = false
	assert.False(t, c.AddItem(ctx, p))

	require.NoError(t, bus.SetOverride(ctx, "B", true))
	assert.True(t, c.AddItem(ctx, p))
}

func TestCart_UpdateQuantityAsymmetry(t *testing.T) {
	ctx := context.Background()
	c, bus, _, _ := newCart(t)
	a := product("A", 5)
	c.AddItem(ctx, a)
	require.True(t, c.UpdateQuantity(ctx, "A", 4))
	assert.Equal(t, 4, c.Quantity("A"))

	require.NoError(t, bus.SetOverride(ctx, "A", false))
	assert.False(t, c.UpdateQuantity(ctx, "A", 5))
	assert.Equal(t, 4, c.Quantity("A"))
	assert.False(t, c.AddItem(ctx, a))
	assert.Equal(t, 4, c.Quantity("A"))

	assert.True(t, c.UpdateQuantity(ctx, "A", 2))
	assert.Equal(t, 2, c.Quantity("A"))
	assert.True(t, c.UpdateQuantity(ctx, "A", 2))

	c.RemoveItem(ctx, "A")
	assert.Equal(t, 0, c.Quantity("A"))
}

func TestCart_UpdateToZeroRemoves(t *testing.T) {
	ctx := context.Background()
	c, _, layer, _ := newCart(t)
	c.AddItem(ctx, product("A", 5))
	c.AddItem(ctx, product("B", 7))

	c.UpdateQuantity(ctx, "A", 0)
	assert.Equal(t, 0, c.Quantity("A"))
	require.Len(t, c.Entries(), 1)
	assert.Equal(t, "B", c.Entries()[0].Product.ID)

	c.UpdateQuantity(ctx, "B", -3)
	assert.Empty(t, c.Entries())
	_, ok, _ := layer.Read(ctx, usecase.CartKey)
	assert.False(t, ok, "carrito vacío borra la clave")
}

func TestCart_UpdateUnknownProduct(t *testing.T) {
	c, _, _, _ := newCart(t)
	assert.False(t, c.UpdateQuantity(context.Background(), "nada", 3))
	assert.Empty(t, c.Entries())
}

func TestCart_TotalsMatchEntries(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newCart(t)
	ops := []func(){
		func() { c.AddItem(ctx, product("A", 2.5)) },
		func() { c.AddItem(ctx, product("B", 10)) },
		func() { c.AddItem(ctx, product("A", 2.5)) },
		func() { c.UpdateQuantity(ctx, "B", 3) },
		func() { c.AddItem(ctx, product("C", 1)) },
		func() { c.RemoveItem(ctx, "A") },
		func() { c.UpdateQuantity(ctx, "C", 7) },
	}
	for i, op := range ops {
		op()
		total, count := 0.0, 0
		for _, e := range c.Entries() {
			total += e.Product.Price * float64(e.Quantity)
			count += e.Quantity
		}
		assert.InDelta(t, total, c.Total(), 1e-9, "op %d", i)
		assert.Equal(t, count, c.ItemCount(), "op %d", i)
		assert.Equal(t, c.Total() >= 40, c.IsUnlocked(), "op %d", i)
		want := 40 - c.Total()
		if want < 0 {
			want = 0
		}
		assert.InDelta(t, want, c.Remaining(), 1e-9, "op %d", i)
	}
	ids := []string{}
	for _, e := range c.Entries() {
		ids = append(ids, e.Product.ID)
	}
	assert.Equal(t, []string{"B", "C"}, ids)
}

func TestCart_PersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	c, bus, layer, _ := newCart(t)
	c.AddItem(ctx, product("A", 15))
	c.AddItem(ctx, product("B", 3))
	c.AddItem(ctx, product("A", 15))

	again := usecase.NewCart(ctx, usecase.CartConfig{Layer: layer, Guard: bus})
	assert.Equal(t, c.Entries(), again.Entries())
	assert.Equal(t, 33.0, again.Total())

	c.Clear(ctx)
	assert.Empty(t, usecase.NewCart(ctx, usecase.CartConfig{Layer: layer}).Entries())
}

func TestCart_CorruptOrUnavailableStorage(t *testing.T) {
	ctx := context.Background()
	layer := memory.New("persistent")
	require.NoError(t, layer.Write(ctx, usecase.CartKey, "[{"))
	c := usecase.NewCart(ctx, usecase.CartConfig{Layer: layer})
	assert.Empty(t, c.Entries())
	assert.Equal(t, domain.DefaultFreeDeliveryThreshold, c.Threshold())

	layer.FailWrites(errors.New("quota"))
	assert.True(t, c.AddItem(ctx, product("A", 1)))
	assert.Equal(t, 1, c.ItemCount())

	layer.FailReads(errors.New("disabled"))
	assert.Empty(t, usecase.NewCart(ctx, usecase.CartConfig{Layer: layer}).Entries())
}

func TestCart_LoadMergesDuplicates(t *testing.T) {
	ctx := context.Background()
	layer := memory.New("persistent")
	require.NoError(t, layer.Write(ctx, usecase.CartKey,
		`[{"product":{"id":"A","price":2,"available":true},"quantity":1},{"product":{"id":"A","price":2,"available":true},"quantity":2},{"product":{"id":"B","price":1},"quantity":0}]`))
	c := usecase.NewCart(ctx, usecase.CartConfig{Layer: layer})
	require.Len(t, c.Entries(), 1)
	assert.Equal(t, 3, c.Quantity("A"))
}

func bigProduct(i int) domain.Product {
	p := product(fmt.Sprintf("product-%02d", i), 10)
	p.Title = fmt.Sprintf("Churchkhela artesanal con nueces de Kakheti, caja %02d", i)
	p.Images = []string{fmt.Sprintf("https://cdn.shop.test/img/product-%02d-front.webp", i)}
	return p
}

func TestCart_CookieLayerNeverDropsItemsSilently(t *testing.T) {
	secret := cookie.WithSecret([]byte("k"))
	var cookies []*http.Cookie
	request := func(fn func(c *usecase.CartUC)) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		rec := httptest.NewRecorder()
		c := usecase.NewCart(context.Background(), usecase.CartConfig{Layer: cookie.New(rec, req, secret)})
		fn(c)
		if got := rec.Result().Cookies(); len(got) > 0 {
			cookies = got
		}
	}

	added := 0
	for i := 0; i < 40; i++ {
		request(func(c *usecase.CartUC) {
			if c.AddItem(context.Background(), bigProduct(i)) {
				added++
			}
		})
	}
	require.Less(t, added, 40, "la cookie tiene que llenarse en algún momento")

	request(func(c *usecase.CartUC) {
		assert.Len(t, c.Entries(), added, "cada add aceptado sigue en el carrito")
	})
}

func TestCart_TooLargeRollsBack(t *testing.T) {
	ctx := context.Background()
	layer := memory.New("cookie")
	c := usecase.NewCart(ctx, usecase.CartConfig{Layer: layer})
	require.True(t, c.AddItem(ctx, product("A", 5)))

	layer.FailWrites(persist.ErrTooLarge)
	assert.False(t, c.AddItem(ctx, product("B", 5)))
	assert.False(t, c.AddItem(ctx, product("A", 5)))
	assert.False(t, c.UpdateQuantity(ctx, "A", 3))
	assert.Equal(t, 1, c.ItemCount())
	assert.Equal(t, 5.0, c.Total())

	// un fallo que no es de tamaño deja el cambio en memoria
	layer.FailWrites(errors.New("quota"))
	assert.True(t, c.UpdateQuantity(ctx, "A", 3))
	assert.Equal(t, 3, c.Quantity("A"))
}

func TestCart_LargeCartInPersistentLayer(t *testing.T) {
	ctx := context.Background()
	layer := memory.New("persistent")
	for i := 0; i < 40; i++ {
		c := usecase.NewCart(ctx, usecase.CartConfig{Layer: layer})
		require.True(t, c.AddItem(ctx, bigProduct(i)))
	}
	c := usecase.NewCart(ctx, usecase.CartConfig{Layer: layer})
	assert.Len(t, c.Entries(), 40)
	assert.Equal(t, 400.0, c.Total())
}
