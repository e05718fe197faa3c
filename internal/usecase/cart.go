package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/vitrina/internal/domain"
	"github.com/phenrril/vitrina/internal/metrics"
	"github.com/phenrril/vitrina/internal/persist"
)

const CartKey = "vitrina_cart"

// StockGuard decide si un producto está sin stock en este momento.
type StockGuard interface {
	IsOOS(productID string, catalogAvailable bool) bool
}

// CartUC es el estado del carrito de un visitante. Las entradas se mantienen
// en orden de inserción y se persisten completas en una sola capa después de
// cada mutación.
type CartUC struct {
	layer     persist.Layer
	guard     StockGuard
	tracker   domain.Tracker
	threshold float64

	entries []domain.CartEntry
}

type CartConfig struct {
	Layer     persist.Layer
	Guard     StockGuard
	Tracker   domain.Tracker
	Threshold float64
}

// NewCart carga el carrito persistido. Cualquier error deja el carrito vacío.
func NewCart(ctx context.Context, cfg CartConfig) *CartUC {
	c := &CartUC{layer: cfg.Layer, guard: cfg.Guard, tracker: cfg.Tracker, threshold: cfg.Threshold}
	if c.tracker == nil {
		c.tracker = domain.NopTracker{}
	}
	if c.threshold <= 0 {
		c.threshold = domain.DefaultFreeDeliveryThreshold
	}
	c.entries = c.load(ctx)
	return c
}

func (c *CartUC) load(ctx context.Context) []domain.CartEntry {
	raw, ok, err := c.layer.Read(ctx, CartKey)
	if err != nil {
		log.Warn().Err(err).Str("layer", c.layer.Name()).Msg("no se pudo leer el carrito")
		return nil
	}
	if !ok {
		return nil
	}
	var stored []domain.CartEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Debug().Err(err).Msg("carrito corrupto, se descarta")
		return nil
	}
	// Normaliza: sin duplicados ni cantidades inválidas.
	out := make([]domain.CartEntry, 0, len(stored))
	seen := map[string]int{}
	for _, e := range stored {
		if e.Product.ID == "" || e.Quantity <= 0 {
			continue
		}
		if i, dup := seen[e.Product.ID]; dup {
			out[i].Quantity += e.Quantity
			continue
		}
		seen[e.Product.ID] = len(out)
		out = append(out, e)
	}
	return out
}

func (c *CartUC) index(productID string) int {
	for i, e := range c.entries {
		if e.Product.ID == productID {
			return i
		}
	}
	return -1
}

// AddItem suma una unidad de p. Devuelve false si el producto está sin stock
// según los overrides, o si el carrito ya no entra en su capa; en ambos casos
// el carrito no cambia.
func (c *CartUC) AddItem(ctx context.Context, p domain.Product) bool {
	if c.guard != nil && c.guard.IsOOS(p.ID, p.Available) {
		metrics.CartRejections.WithLabelValues("add").Inc()
		log.Debug().Str("product", p.ID).Msg("add rechazado: sin stock")
		return false
	}
	prev := c.Entries()
	qty := 1
	if i := c.index(p.ID); i >= 0 {
		c.entries[i].Quantity++
		qty = c.entries[i].Quantity
	} else {
		c.entries = append(c.entries, domain.CartEntry{Product: p, Quantity: 1})
	}
	if !c.commit(ctx, "add", prev) {
		return false
	}
	c.tracker.AddToCart(ctx, p, qty)
	return true
}

// commit persiste la mutación. Si el valor no entra en la capa se vuelve a
// prev: guardarlo a medias perdería el carrito en la próxima carga.
func (c *CartUC) commit(ctx context.Context, op string, prev []domain.CartEntry) bool {
	if err := c.save(ctx); errors.Is(err, persist.ErrTooLarge) {
		c.entries = prev
		metrics.CartRejections.WithLabelValues(op).Inc()
		log.Warn().Str("layer", c.layer.Name()).Int("entries", len(prev)).Msg(op + " rechazado: carrito lleno")
		return false
	}
	metrics.CartMutations.WithLabelValues(op).Inc()
	return true
}

// RemoveItem siempre está permitido.
func (c *CartUC) RemoveItem(ctx context.Context, productID string) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	metrics.CartMutations.WithLabelValues("remove").Inc()
	c.save(ctx)
}

// UpdateQuantity fija la cantidad. quantity <= 0 elimina la entrada. Subir la
// cantidad de un producto sin stock se rechaza; bajarla siempre se permite.
func (c *CartUC) UpdateQuantity(ctx context.Context, productID string, quantity int) bool {
	if quantity <= 0 {
		c.RemoveItem(ctx, productID)
		return true
	}
	i := c.index(productID)
	if i < 0 {
		return false
	}
	e := c.entries[i]
	if quantity > e.Quantity && c.guard != nil && c.guard.IsOOS(productID, e.Product.Available) {
		metrics.CartRejections.WithLabelValues("update").Inc()
		log.Debug().Str("product", productID).Int("from", e.Quantity).Int("to", quantity).Msg("update rechazado: sin stock")
		return false
	}
	prev := c.Entries()
	c.entries[i].Quantity = quantity
	return c.commit(ctx, "update", prev)
}

// Clear vacía el carrito después de confirmar la orden.
func (c *CartUC) Clear(ctx context.Context) {
	c.entries = nil
	metrics.CartMutations.WithLabelValues("clear").Inc()
	c.save(ctx)
}

func (c *CartUC) Entries() []domain.CartEntry {
	out := make([]domain.CartEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *CartUC) Total() float64 {
	t := 0.0
	for _, e := range c.entries {
		t += e.Subtotal()
	}
	return t
}

func (c *CartUC) ItemCount() int {
	n := 0
	for _, e := range c.entries {
		n += e.Quantity
	}
	return n
}

func (c *CartUC) Threshold() float64 { return c.threshold }

func (c *CartUC) Remaining() float64 { return math.Max(0, c.threshold-c.Total()) }

func (c *CartUC) IsUnlocked() bool { return c.Total() >= c.threshold }

func (c *CartUC) Quantity(productID string) int {
	if i := c.index(productID); i >= 0 {
		return c.entries[i].Quantity
	}
	return 0
}

func (c *CartUC) Snapshot() domain.CartSnapshot {
	total := c.Total()
	return domain.CartSnapshot{
		Entries:   c.Entries(),
		Total:     total,
		ItemCount: c.ItemCount(),
		Remaining: math.Max(0, c.threshold-total),
		Unlocked:  total >= c.threshold,
		Threshold: c.threshold,
	}
}

// save registra y devuelve el error de la capa; los que no son ErrTooLarge
// se ignoran arriba y el carrito sigue en memoria.
func (c *CartUC) save(ctx context.Context) error {
	if len(c.entries) == 0 {
		if err := c.layer.Remove(ctx, CartKey); err != nil {
			log.Warn().Err(err).Str("layer", c.layer.Name()).Msg("no se pudo borrar el carrito")
			return err
		}
		return nil
	}
	b, err := json.Marshal(c.entries)
	if err != nil {
		log.Warn().Err(err).Msg("serializar carrito")
		return err
	}
	if err := c.layer.Write(ctx, CartKey, string(b)); err != nil {
		log.Warn().Err(err).Str("layer", c.layer.Name()).Msg("no se pudo guardar el carrito")
		return err
	}
	return nil
}
