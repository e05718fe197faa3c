package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/phenrril/vitrina/internal/domain"
)

// CatalogItem es un producto con la disponibilidad efectiva (override
// aplicado) que ve el cliente.
type CatalogItem struct {
	domain.Product
	Purchasable bool  `json:"purchasable"`
	Override    *bool `json:"override,omitempty"`
}

type ProductUC struct {
	Products  domain.ProductRepo
	Overrides *StockOverrideBus
}

func (uc *ProductUC) List(ctx context.Context, f domain.ProductFilter) ([]CatalogItem, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	list, total, err := uc.Products.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return uc.decorate(list), total, nil
}

func (uc *ProductUC) Get(ctx context.Context, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("id vacío")
	}
	return uc.Products.FindByID(ctx, id)
}

func (uc *ProductUC) Create(ctx context.Context, p *domain.Product) error {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return errors.New("id vacío")
	}
	if p.Price < 0 {
		return errors.New("precio negativo")
	}
	p.Active = true
	return uc.Products.Save(ctx, p)
}

func (uc *ProductUC) decorate(list []domain.Product) []CatalogItem {
	var overrides domain.OverrideMap
	if uc.Overrides != nil {
		overrides = uc.Overrides.Get()
	}
	out := make([]CatalogItem, 0, len(list))
	for _, p := range list {
		it := CatalogItem{Product: p, Purchasable: p.Available}
		if v, ok := overrides[p.ID]; ok {
			v := v
			it.Override = &v
			it.Purchasable = v
		}
		out = append(out, it)
	}
	return out
}
