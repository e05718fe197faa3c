package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/vitrina/internal/domain"
	"github.com/phenrril/vitrina/internal/metrics"
	"github.com/phenrril/vitrina/internal/persist"
)

const OverridesKey = "vitrina_stock_overrides"

// ErrReentrantOverride se devuelve cuando se intenta cambiar un override
// mientras los suscriptores están siendo notificados.
var ErrReentrantOverride = errors.New("override modificado durante una notificación")

type OverrideListener func(ctx context.Context, ev domain.OverrideEvent)

type notifyingKey struct{}

// StockOverrideBus es el único estado compartido entre consumidores: el mapa
// de disponibilidad manual. Hay una instancia por proceso, creada con
// NewStockOverrideBus antes de la primera lectura, y vive lo que vive el
// proceso. Sólo se muta con SetOverride y ClearOverride.
type StockOverrideBus struct {
	layer persist.Layer
	key   string

	// writeMu serializa mutación + notificación entre goroutines.
	writeMu sync.Mutex
	mu      sync.RWMutex
	// notifying es true mientras corren los listeners; protegido por mu.
	notifying bool
	overrides domain.OverrideMap
	listeners []*subscription
	nextID    int
}

type subscription struct {
	id int
	fn OverrideListener
}

// NewStockOverrideBus carga el mapa persistido; si no se puede leer arranca
// vacío.
func NewStockOverrideBus(ctx context.Context, layer persist.Layer) *StockOverrideBus {
	b := &StockOverrideBus{layer: layer, key: OverridesKey, overrides: domain.OverrideMap{}}
	raw, ok, err := layer.Read(ctx, b.key)
	if err != nil {
		log.Warn().Err(err).Str("layer", layer.Name()).Msg("no se pudieron leer overrides")
		return b
	}
	if !ok {
		return b
	}
	var m domain.OverrideMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		log.Warn().Err(err).Msg("overrides corruptos, se ignoran")
		return b
	}
	if m != nil {
		b.overrides = m
	}
	return b
}

// Get devuelve una copia del mapa actual.
func (b *StockOverrideBus) Get() domain.OverrideMap {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.overrides.Clone()
}

// IsOOS es el único criterio de "se puede comprar ahora": el override si
// existe, si no la disponibilidad del catálogo.
func (b *StockOverrideBus) IsOOS(productID string, catalogAvailable bool) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v, ok := b.overrides[productID]; ok {
		return !v
	}
	return !catalogAvailable
}

func (b *StockOverrideBus) SetOverride(ctx context.Context, productID string, available bool) error {
	return b.mutate(ctx, productID, &available)
}

func (b *StockOverrideBus) ClearOverride(ctx context.Context, productID string) error {
	return b.mutate(ctx, productID, nil)
}

// Subscribe registra fn; se la llama sincrónicamente, en orden de registro,
// después de cada cambio. Un cambio hecho desde fn con el ctx recibido se
// rechaza con ErrReentrantOverride.
func (b *StockOverrideBus) Subscribe(fn OverrideListener) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, &subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.listeners {
				if s.id == id {
					b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *StockOverrideBus) mutate(ctx context.Context, productID string, available *bool) error {
	if ctx.Value(notifyingKey{}) == b {
		log.Warn().Str("product", productID).Msg("override ignorado: cambio durante notificación")
		return ErrReentrantOverride
	}
	// Un listener que muta con otro ctx no puede esperar writeMu: lo tiene
	// la mutación que lo está notificando.
	if !b.writeMu.TryLock() {
		b.mu.RLock()
		busy := b.notifying
		b.mu.RUnlock()
		if busy {
			log.Warn().Str("product", productID).Msg("override ignorado: cambio durante notificación")
			return ErrReentrantOverride
		}
		b.writeMu.Lock()
	}
	defer b.writeMu.Unlock()

	action := domain.OverrideActionSet
	b.mu.Lock()
	if available == nil {
		action = domain.OverrideActionClear
		if _, ok := b.overrides[productID]; !ok {
			b.mu.Unlock()
			return nil
		}
		delete(b.overrides, productID)
	} else {
		b.overrides[productID] = *available
	}
	b.persist(ctx)
	ev := domain.OverrideEvent{ProductID: productID, Available: available, Overrides: b.overrides.Clone()}
	listeners := make([]*subscription, len(b.listeners))
	copy(listeners, b.listeners)
	b.notifying = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.notifying = false
		b.mu.Unlock()
	}()

	metrics.OverrideChanges.WithLabelValues(string(action)).Inc()
	nctx := context.WithValue(ctx, notifyingKey{}, b)
	for _, s := range listeners {
		s.fn(nctx, ev)
	}
	return nil
}

// persist se llama con el lock tomado.
func (b *StockOverrideBus) persist(ctx context.Context) {
	if len(b.overrides) == 0 {
		if err := b.layer.Remove(ctx, b.key); err != nil {
			log.Warn().Err(err).Str("layer", b.layer.Name()).Msg("no se pudieron borrar overrides")
		}
		return
	}
	raw, err := json.Marshal(b.overrides)
	if err != nil {
		log.Warn().Err(err).Msg("serializar overrides")
		return
	}
	if err := b.layer.Write(ctx, b.key, string(raw)); err != nil {
		log.Warn().Err(err).Str("layer", b.layer.Name()).Msg("no se pudieron guardar overrides")
	}
}
