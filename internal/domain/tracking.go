package domain

import "context"

// Tracker es el colaborador de analítica (pixel). Los errores no se propagan.
type Tracker interface {
	AddToCart(ctx context.Context, p Product, quantity int)
}

type NopTracker struct{}

func (NopTracker) AddToCart(context.Context, Product, int) {}
