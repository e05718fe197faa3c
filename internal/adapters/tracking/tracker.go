// Package tracking implementa el colaborador de analítica. No hay pixel
// real: el evento se registra en el log y en métricas.
package tracking

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/vitrina/internal/domain"
	"github.com/phenrril/vitrina/internal/metrics"
)

type LogTracker struct {
	Currency string
}

func (t LogTracker) AddToCart(_ context.Context, p domain.Product, quantity int) {
	metrics.AddToCart.Inc()
	cur := t.Currency
	if cur == "" {
		cur = "GEL"
	}
	log.Info().
		Str("event", "AddToCart").
		Str("product", p.ID).
		Float64("value", p.Price).
		Str("currency", cur).
		Int("qty", quantity).
		Msg("analytics")
}
